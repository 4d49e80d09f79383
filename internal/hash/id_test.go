package hash

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"another string", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestChecksumMatchesID(t *testing.T) {
	assert.Equal(t, ID("Otu0001"), Checksum([]byte("Otu0001")))
}

func TestStream(t *testing.T) {
	a := Stream(42, 0)
	require.Equal(t, a, Stream(42, 0), "stream must be a pure function of its inputs")
	require.NotEqual(t, a, Stream(42, 1))
	require.NotEqual(t, a, Stream(43, 0))
	require.NotEqual(t, Stream(42, 1, 2), Stream(42, 2, 1))

	seen := make(map[uint64]struct{}, 1000)
	for i := range uint64(1000) {
		seen[Stream(7, i)] = struct{}{}
	}
	require.Len(t, seen, 1000)
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := range b {
		b[i] = letters[seededRand.Intn(len(letters))]
	}

	return string(b)
}

func BenchmarkID(b *testing.B) {
	randStr := randString(20)
	b.ResetTimer()
	for b.Loop() {
		ID(randStr)
	}
}

func BenchmarkStream(b *testing.B) {
	for i := 0; b.Loop(); i++ {
		Stream(42, uint64(i))
	}
}
