package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte("abcd"))
	bb.Grow(10)
	require.GreaterOrEqual(t, cap(bb.B)-bb.Len(), 10)
	require.Equal(t, []byte("abcd"), bb.Bytes())

	before := cap(bb.B)
	bb.Grow(1)
	require.Equal(t, before, cap(bb.B), "no growth when capacity suffices")
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(8)
	n, err := bb.Write([]byte("otu"))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(3), written)
	require.Equal(t, "otu", out.String())
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(16, 64)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))
	p.Put(bb)

	again := p.Get()
	require.Zero(t, again.Len(), "pooled buffers come back empty")

	oversized := NewByteBuffer(128)
	p.Put(oversized)
	p.Put(nil)
}

func TestSnapshotBuffer(t *testing.T) {
	bb := GetSnapshotBuffer()
	require.NotNil(t, bb)
	require.GreaterOrEqual(t, cap(bb.B), SnapshotBufferDefaultSize)
	PutSnapshotBuffer(bb)
}
