package encoding

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarStringEncoder_Write(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()

	require.NoError(t, encoder.Write(""))
	require.Equal(t, 1, encoder.Len())
	require.Equal(t, 1, encoder.Size())

	require.NoError(t, encoder.Write("Otu001"))
	require.Equal(t, 2, encoder.Len())
	require.Equal(t, 8, encoder.Size())

	bytes := encoder.Bytes()
	require.Equal(t, byte(0), bytes[0])
	require.Equal(t, byte(6), bytes[1])
	require.Equal(t, "Otu001", string(bytes[2:]))
}

func TestVarStringEncoder_Write_MaxLength(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()

	maxStr := strings.Repeat("a", MaxTextLength)
	require.NoError(t, encoder.Write(maxStr))
	require.Equal(t, 256, encoder.Size())

	err := encoder.Write(maxStr + "a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds maximum")
	require.Equal(t, 1, encoder.Len())
}

func TestVarStringEncoder_WriteSlice(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()

	require.NoError(t, encoder.WriteSlice([]string{"F3D0", "F3D1", "Mock"}))
	require.Equal(t, 3, encoder.Len())
	require.Equal(t, 15, encoder.Size())

	err := encoder.WriteSlice([]string{"ok", strings.Repeat("x", MaxTextLength+1)})
	require.Error(t, err)
	require.Equal(t, 3, encoder.Len())
	require.Equal(t, 15, encoder.Size())
}

func TestUvarint_RoundTrip(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()

	unsigned := []uint64{0, 1, 127, 128, 300, 1 << 40, math.MaxUint64}
	for _, v := range unsigned {
		encoder.WriteUvarint(v)
	}
	require.NoError(t, encoder.Write("tail"))

	decoder := NewVarStringDecoder(encoder.Bytes())
	for _, want := range unsigned {
		got, err := decoder.ReadUvarint()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	tail, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, "tail", tail)
	require.Zero(t, decoder.Remaining())
}

func TestReadStrings_CountExceedsData(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()
	require.NoError(t, encoder.WriteSlice([]string{"", "Otu001"}))

	decoder := NewVarStringDecoder(encoder.Bytes())
	_, err := decoder.ReadStrings(1 << 40)
	require.ErrorIs(t, err, ErrTruncated)
	_, err = decoder.ReadStrings(-1)
	require.ErrorIs(t, err, ErrTruncated)

	got, err := decoder.ReadStrings(2)
	require.NoError(t, err)
	require.Equal(t, []string{"", "Otu001"}, got)
}

func TestWriteUvarint_ZeroIsOneByte(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()

	for range 100 {
		encoder.WriteUvarint(0)
	}
	require.Equal(t, 100, encoder.Size())
}

func TestVarStringDecoder_Truncated(t *testing.T) {
	encoder := NewVarStringEncoder()
	defer encoder.Finish()
	require.NoError(t, encoder.WriteSlice([]string{"Bacteria", "Firmicutes"}))
	data := encoder.Bytes()

	decoder := NewVarStringDecoder(data[:len(data)-3])
	strs, err := decoder.ReadStrings(1)
	require.NoError(t, err)
	require.Equal(t, []string{"Bacteria"}, strs)

	_, err = decoder.ReadString()
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewVarStringDecoder(nil).ReadString()
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewVarStringDecoder([]byte{0x80}).ReadUvarint()
	require.ErrorIs(t, err, ErrTruncated)

	overflow := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	_, err = NewVarStringDecoder(overflow).ReadUvarint()
	require.Error(t, err)
}
