package compress

// ZstdCompressor provides Zstandard compression. It gives the best ratio of
// the built-in codecs and is the default for dataset snapshots.
//
// Two implementations exist: the pure-Go klauspost/compress encoder (default)
// and the cgo binding to libzstd in valyala/gozstd, selected with
// `-tags gozstd` on cgo-enabled builds. Both produce standard zstd frames and
// decode each other's output.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(payload)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
