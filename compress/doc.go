// Package compress provides the compression codecs used for otukit inputs
// and dataset snapshots.
//
// Two layers are offered:
//
//   - Block codecs (Codec: Compress / Decompress on whole payloads) used by
//     the snapshot package for its column payload.
//   - Stream readers and writers (Open, Create, NewReader, NewWriter) used to
//     read abundance, taxonomy and metadata tables that arrive compressed,
//     choosing the algorithm from the file extension.
//
// Supported algorithms:
//
//	Type   | Extension     | Library
//	-------|---------------|------------------------------------------------
//	None   |               |
//	Gzip   | .gz .gzip     | github.com/klauspost/compress/gzip
//	Zstd   | .zst .zstd    | github.com/klauspost/compress/zstd, valyala/gozstd (-tags gozstd)
//	S2     | .s2           | github.com/klauspost/compress/s2
//	LZ4    | .lz4          | github.com/pierrec/lz4/v4
//
// Reading a gzipped mothur shared file:
//
//	rc, err := compress.Open("final.opti_mcc.shared.gz")
//	if err != nil {
//	    return err
//	}
//	defer rc.Close()
//	abundance, err := table.ReadAbundance(rc, "final.opti_mcc.shared.gz")
//
// All codecs are safe for concurrent use.
package compress
