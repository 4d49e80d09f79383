package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	var testValue uint16 = 0x0102
	testBytes := (*[2]byte)(unsafe.Pointer(&testValue))

	switch testBytes[0] {
	case 0x01:
		require.Equal(t, binary.BigEndian, CheckEndianness())
		require.True(t, IsBigEndian(GetNativeEngine()))
	case 0x02:
		require.Equal(t, binary.LittleEndian, CheckEndianness())
		require.False(t, IsBigEndian(GetNativeEngine()))
	default:
		require.Failf(t, "unexpected byte value", "got: %v", testBytes[0])
	}
}

func TestEngines(t *testing.T) {
	le := GetLittleEndianEngine()
	be := GetBigEndianEngine()
	require.False(t, IsBigEndian(le))
	require.True(t, IsBigEndian(be))

	buf := make([]byte, 4)
	le.PutUint32(buf, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
	be.PutUint32(buf, 0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)

	require.Equal(t, []byte{0x02, 0x01}, le.AppendUint16(nil, 0x0102))
	require.Equal(t, uint64(7), be.Uint64(be.AppendUint64(nil, 7)))
}
