// Package snapshot stores a merged table.Dataset in a compact binary file so
// that the import stage runs once and later analyses start from the merged
// tables directly.
//
// A snapshot is a 32-byte Header followed by the payload, optionally
// compressed with one of the codecs in package compress. The uncompressed
// payload holds, in order:
//
//  1. rank names
//  2. metadata id field name and attribute names
//  3. sample ids
//  4. taxon ids
//  5. lineages, taxon-major
//  6. metadata values, sample-major
//  7. read counts as unsigned varints, sample-major
//
// Strings are uint8 length-prefixed (see package encoding). The header
// carries an xxHash64 checksum of the uncompressed payload; Decode rejects a
// file whose payload does not match it.
//
// Example:
//
//	if err := snapshot.Save("study.otk", ds, snapshot.WithCompression(format.CompressionZstd)); err != nil {
//	    return err
//	}
//	ds, err := snapshot.Load("study.otk")
package snapshot

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/arloliu/otukit/compress"
	"github.com/arloliu/otukit/encoding"
	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/format"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/table"
)

// Config holds snapshot encoding parameters.
type Config struct {
	Compression format.CompressionType
	BigEndian   bool
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithCompression selects the payload codec. Gzip, zstd, S2, LZ4 and none
// are supported.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(cfg *Config) error {
		if _, err := compress.GetCodec(ct); err != nil {
			return errs.InvalidArgument("snapshot compression: %v", err)
		}
		cfg.Compression = ct

		return nil
	})
}

// WithBigEndian writes the fixed-width header fields big-endian.
func WithBigEndian() Option {
	return options.NoError(func(cfg *Config) {
		cfg.BigEndian = true
	})
}

// Encode serializes ds.
//
// Parameters:
//   - ds: The dataset to store
//   - opts: WithCompression (default zstd), WithBigEndian
//
// Returns:
//   - []byte: Header and payload
//   - error: ErrInvalidArgument if an identifier or label is longer than
//     encoding.MaxTextLength bytes or a table exceeds the header limits
func Encode(ds *table.Dataset, opts ...Option) ([]byte, error) {
	cfg := &Config{Compression: format.CompressionZstd}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	tax := ds.Taxonomy()
	meta := ds.Metadata()
	abund := ds.Abundance()

	if len(tax.Ranks()) > math.MaxUint16 || len(meta.Fields()) > math.MaxUint16 ||
		uint64(ds.NumSamples()) > math.MaxUint32 || uint64(ds.NumTaxa()) > math.MaxUint32 {
		return nil, errs.InvalidArgument("dataset too large for snapshot header")
	}

	enc := encoding.NewVarStringEncoder()
	defer enc.Finish()

	write := func(section string, values []string) error {
		if err := enc.WriteSlice(values); err != nil {
			return errs.InvalidArgument("snapshot %s: %v", section, err)
		}

		return nil
	}

	if err := write("ranks", tax.Ranks()); err != nil {
		return nil, err
	}
	if err := write("metadata fields", append([]string{meta.IDField()}, meta.Fields()...)); err != nil {
		return nil, err
	}
	if err := write("sample ids", ds.Samples()); err != nil {
		return nil, err
	}
	if err := write("taxon ids", ds.Taxa()); err != nil {
		return nil, err
	}
	for j := range ds.NumTaxa() {
		if err := write("lineage", tax.Lineage(j)); err != nil {
			return nil, err
		}
	}
	for i := range ds.NumSamples() {
		if err := write("metadata", meta.Values(i)); err != nil {
			return nil, err
		}
	}
	for i := range ds.NumSamples() {
		for _, c := range abund.Row(i) {
			enc.WriteUvarint(c)
		}
	}

	payload := enc.Bytes()
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, errs.InvalidArgument("snapshot payload of %d bytes exceeds 4GiB", len(payload))
	}

	codec, err := compress.GetCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	stored, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot payload: %w", err)
	}

	h := newHeader(cfg.BigEndian, cfg.Compression)
	h.SampleCount = uint32(ds.NumSamples())   //nolint:gosec
	h.TaxonCount = uint32(ds.NumTaxa())       //nolint:gosec
	h.RankCount = uint16(len(tax.Ranks()))    //nolint:gosec
	h.FieldCount = uint16(len(meta.Fields())) //nolint:gosec
	h.PayloadSize = uint32(len(payload))      //nolint:gosec
	h.StoredSize = uint32(len(stored))        //nolint:gosec
	h.Checksum = hash.Checksum(payload)

	out := make([]byte, 0, HeaderSize+len(stored))
	out = append(out, h.Bytes()...)
	out = append(out, stored...)

	return out, nil
}

// Decode rebuilds a dataset from a snapshot produced by Encode.
//
// Returns:
//   - *table.Dataset: The stored dataset
//   - error: *errs.MalformedInputError on bad magic, truncation, checksum
//     mismatch (also matching errs.ErrChecksumMismatch) or inconsistent tables
func Decode(data []byte) (*table.Dataset, error) {
	var h Header
	if err := h.Parse(data); err != nil {
		return nil, err
	}

	end := HeaderSize + int(h.StoredSize)
	if len(data) < end {
		return nil, errs.Malformed("snapshot", fmt.Sprintf("payload truncated: %d of %d bytes", len(data)-HeaderSize, h.StoredSize))
	}

	codec, err := compress.GetCodec(h.Compression)
	if err != nil {
		return nil, &errs.MalformedInputError{Source: "snapshot", Reason: "unknown compression", Err: err}
	}
	payload, err := codec.Decompress(data[HeaderSize:end])
	if err != nil {
		return nil, &errs.MalformedInputError{Source: "snapshot", Reason: "corrupt payload", Err: err}
	}
	if len(payload) != int(h.PayloadSize) || hash.Checksum(payload) != h.Checksum {
		return nil, &errs.MalformedInputError{Source: "snapshot", Reason: "payload does not match header", Err: errs.ErrChecksumMismatch}
	}

	return decodePayload(&h, payload)
}

func decodePayload(h *Header, payload []byte) (*table.Dataset, error) {
	dec := encoding.NewVarStringDecoder(payload)
	nSamples, nTaxa := int(h.SampleCount), int(h.TaxonCount)
	nRanks, nFields := int(h.RankCount), int(h.FieldCount)

	wrap := func(section string, err error) error {
		return &errs.MalformedInputError{Source: "snapshot", Reason: "decode " + section, Err: err}
	}

	if need, ok := minPayloadSize(h); !ok || need > uint64(len(payload)) {
		return nil, errs.Malformed("snapshot", fmt.Sprintf(
			"header declares %d samples, %d taxa, %d ranks and %d fields, too many for a %d-byte payload",
			h.SampleCount, h.TaxonCount, h.RankCount, h.FieldCount, len(payload)))
	}

	ranks, err := dec.ReadStrings(nRanks)
	if err != nil {
		return nil, wrap("ranks", err)
	}
	fields, err := dec.ReadStrings(nFields + 1)
	if err != nil {
		return nil, wrap("metadata fields", err)
	}
	samples, err := dec.ReadStrings(nSamples)
	if err != nil {
		return nil, wrap("sample ids", err)
	}
	taxa, err := dec.ReadStrings(nTaxa)
	if err != nil {
		return nil, wrap("taxon ids", err)
	}

	lineages := make([][]string, nTaxa)
	for j := range lineages {
		if lineages[j], err = dec.ReadStrings(nRanks); err != nil {
			return nil, wrap("lineages", err)
		}
	}
	values := make([][]string, nSamples)
	for i := range values {
		if values[i], err = dec.ReadStrings(nFields); err != nil {
			return nil, wrap("metadata", err)
		}
	}
	rows := make([][]uint64, nSamples)
	for i := range rows {
		rows[i] = make([]uint64, nTaxa)
		for j := range rows[i] {
			if rows[i][j], err = dec.ReadUvarint(); err != nil {
				return nil, wrap("counts", err)
			}
		}
	}
	if dec.Remaining() != 0 {
		return nil, errs.Malformed("snapshot", fmt.Sprintf("%d trailing payload bytes", dec.Remaining()))
	}

	abund, err := table.NewAbundanceTable(samples, taxa, rows)
	if err != nil {
		return nil, err
	}
	tax, err := table.NewTaxonomyTable(ranks, taxa, lineages)
	if err != nil {
		return nil, err
	}
	meta, err := table.NewMetadataTable(fields[0], fields[1:], samples, values)
	if err != nil {
		return nil, err
	}

	return table.Merge(abund, tax, meta)
}

// minPayloadSize returns the smallest payload that can hold the tables the
// header declares, since every string and every count takes at least one
// byte. It reports false when the sum overflows.
func minPayloadSize(h *Header) (uint64, bool) {
	s, t := uint64(h.SampleCount), uint64(h.TaxonCount)
	r, f := uint64(h.RankCount), uint64(h.FieldCount)

	var total, carry uint64
	for _, n := range []uint64{r, f + 1, s, t, t * r, s * f, s * t} {
		total, carry = bits.Add64(total, n, 0)
		if carry != 0 {
			return 0, false
		}
	}

	return total, true
}

// Write encodes ds to w.
func Write(w io.Writer, ds *table.Dataset, opts ...Option) error {
	data, err := Encode(ds, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)

	return err
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*table.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Decode(data)
}

// Save writes a snapshot of ds to path.
func Save(path string, ds *table.Dataset, opts ...Option) error {
	data, err := Encode(ds, opts...)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec
}

// Load reads the snapshot at path.
func Load(path string) (*table.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ds, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ds, nil
}
