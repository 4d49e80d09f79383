package compress

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/otukit/format"
)

func TestCreateOpen_RoundTrip(t *testing.T) {
	data := sharedTable(12, 40)
	dir := t.TempDir()

	for _, name := range []string{"otu.shared", "otu.shared.gz", "otu.shared.zst", "otu.shared.s2", "otu.shared.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)

			w, err := Create(path)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := Open(path)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			require.Equal(t, data, got)
		})
	}
}

func TestCreate_CompressesByExtension(t *testing.T) {
	data := bytes.Repeat([]byte("0.03\tS001\t3\t0\t0\t0\n"), 2000)
	dir := t.TempDir()
	path := filepath.Join(dir, "repetitive.tsv.zst")

	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Less(t, info.Size(), int64(len(data)/10))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tsv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.tsv.gz")
	require.NoError(t, os.WriteFile(bad, []byte("plain text, not gzip"), 0o644))
	_, err = Open(bad)
	require.Error(t, err)
}

func TestNewReader_Unsupported(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), format.CompressionType(0x7f))
	require.Error(t, err)

	_, err = NewWriter(io.Discard, format.CompressionType(0x7f))
	require.Error(t, err)
}
