package snapshot

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/format"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/table"
)

func testDataset(t *testing.T) *table.Dataset {
	t.Helper()

	abund, err := table.NewAbundanceTable(
		[]string{"F3D0", "F3D1", "Mock"},
		[]string{"Otu001", "Otu002", "Otu003"},
		[][]uint64{{10, 0, 5}, {3, 3, 3}, {0, 1 << 40, 0}},
	)
	require.NoError(t, err)
	tax, err := table.NewTaxonomyTable(
		[]string{"Kingdom", "Phylum"},
		[]string{"Otu001", "Otu002", "Otu003"},
		[][]string{{"Bacteria", "Firmicutes"}, {"Bacteria", ""}, {"Archaea", "Euryarchaeota"}},
	)
	require.NoError(t, err)
	meta, err := table.NewMetadataTable("sample", []string{"day", "type"},
		[]string{"F3D0", "F3D1", "Mock"},
		[][]string{{"0", "gut"}, {"1", "gut"}, {"", "mock"}},
	)
	require.NoError(t, err)

	ds, err := table.Merge(abund, tax, meta)
	require.NoError(t, err)

	return ds
}

func requireSameDataset(t *testing.T, want, got *table.Dataset) {
	t.Helper()

	require.Equal(t, want.Samples(), got.Samples())
	require.Equal(t, want.Taxa(), got.Taxa())
	require.Equal(t, want.Taxonomy().Ranks(), got.Taxonomy().Ranks())
	require.Equal(t, want.Metadata().IDField(), got.Metadata().IDField())
	require.Equal(t, want.Metadata().Fields(), got.Metadata().Fields())
	for i := range want.NumSamples() {
		require.Equal(t, want.Abundance().Row(i), got.Abundance().Row(i))
		require.Equal(t, want.Metadata().Values(i), got.Metadata().Values(i))
	}
	for j := range want.NumTaxa() {
		require.Equal(t, want.Taxonomy().Lineage(j), got.Taxonomy().Lineage(j))
	}
}

func TestEncodeDecode(t *testing.T) {
	ds := testDataset(t)

	tests := []struct {
		name string
		opts []Option
	}{
		{"default", nil},
		{"none", []Option{WithCompression(format.CompressionNone)}},
		{"s2", []Option{WithCompression(format.CompressionS2)}},
		{"lz4", []Option{WithCompression(format.CompressionLZ4)}},
		{"gzip big endian", []Option{WithCompression(format.CompressionGzip), WithBigEndian()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(ds, tt.opts...)
			require.NoError(t, err)

			var h Header
			require.NoError(t, h.Parse(data))
			require.Equal(t, uint32(3), h.SampleCount)
			require.Equal(t, uint16(2), h.RankCount)

			got, err := Decode(data)
			require.NoError(t, err)
			requireSameDataset(t, ds, got)
		})
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	for _, big := range []bool{false, true} {
		h := newHeader(big, format.CompressionLZ4)
		h.SampleCount = 12
		h.TaxonCount = 3400
		h.RankCount = 7
		h.FieldCount = 4
		h.PayloadSize = 1 << 20
		h.StoredSize = 1 << 18
		h.Checksum = 0xdeadbeefcafebabe

		b := h.Bytes()
		require.Len(t, b, HeaderSize)

		var parsed Header
		require.NoError(t, parsed.Parse(b))
		require.Equal(t, *h, parsed)
		require.Equal(t, big, parsed.IsBigEndian())
	}
}

func TestDecode_Malformed(t *testing.T) {
	data, err := Encode(testDataset(t), WithCompression(format.CompressionNone))
	require.NoError(t, err)

	t.Run("short", func(t *testing.T) {
		_, err := Decode(data[:10])
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[1] ^= 0xff
		_, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
		require.Contains(t, err.Error(), "magic")
	})

	t.Run("bad version", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[2] = 9
		_, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := Decode(data[:len(data)-1])
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0x01
		_, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})

	// headers with a valid checksum whose counts cannot fit the payload
	oversized := []struct {
		name string
		set  func(h *Header)
	}{
		{"huge sample and taxon counts", func(h *Header) { h.SampleCount, h.TaxonCount = 1<<30, 1<<30 }},
		{"max counts", func(h *Header) {
			h.SampleCount, h.TaxonCount = math.MaxUint32, math.MaxUint32
			h.RankCount, h.FieldCount = math.MaxUint16, math.MaxUint16
		}},
		{"huge rank count", func(h *Header) { h.RankCount = math.MaxUint16 }},
	}
	for _, tt := range oversized {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte{0}
			h := newHeader(false, format.CompressionNone)
			tt.set(h)
			h.PayloadSize = uint32(len(payload))
			h.StoredSize = uint32(len(payload))
			h.Checksum = hash.Checksum(payload)

			_, err := Decode(append(h.Bytes(), payload...))
			require.ErrorIs(t, err, errs.ErrMalformedInput)
			require.Contains(t, err.Error(), "too many")
		})
	}
}

func TestMinPayloadSize(t *testing.T) {
	h := &Header{SampleCount: 3, TaxonCount: 3, RankCount: 2, FieldCount: 1}
	need, ok := minPayloadSize(h)
	require.True(t, ok)
	// 2 ranks + 2 field names + 3 samples + 3 taxa + 6 labels + 3 values + 9 counts
	require.Equal(t, uint64(28), need)

	data, err := Encode(testDataset(t), WithCompression(format.CompressionNone))
	require.NoError(t, err)
	var parsed Header
	require.NoError(t, parsed.Parse(data))
	need, ok = minPayloadSize(&parsed)
	require.True(t, ok)
	require.LessOrEqual(t, need, uint64(parsed.PayloadSize))
}

func TestEncode_LabelTooLong(t *testing.T) {
	long := strings.Repeat("x", 300)
	abund, err := table.NewAbundanceTable([]string{"S1"}, []string{"A"}, [][]uint64{{1}})
	require.NoError(t, err)
	tax, err := table.NewTaxonomyTable([]string{"Kingdom"}, []string{"A"}, [][]string{{long}})
	require.NoError(t, err)
	meta, err := table.NewMetadataTable("id", nil, []string{"S1"}, [][]string{{}})
	require.NoError(t, err)
	ds, err := table.Merge(abund, tax, meta)
	require.NoError(t, err)

	_, err = Encode(ds)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSaveLoad(t *testing.T) {
	ds := testDataset(t)
	path := filepath.Join(t.TempDir(), "study.otk")

	require.NoError(t, Save(path, ds))
	got, err := Load(path)
	require.NoError(t, err)
	requireSameDataset(t, ds, got)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds, WithCompression(format.CompressionS2)))
	got, err = Read(&buf)
	require.NoError(t, err)
	requireSameDataset(t, ds, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.otk"))
	require.Error(t, err)

	_, err = Encode(ds, WithCompression(format.CompressionType(0x7f)))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}
