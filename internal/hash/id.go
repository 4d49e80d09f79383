// Package hash wraps xxHash64 for identifier hashing, RNG stream derivation
// and payload checksums.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of an identifier such as a sample or taxon id.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Checksum computes the xxHash64 of a byte payload.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Stream derives a 64-bit value from a base seed and a sequence of indices.
// The result depends only on its arguments, so independent workers can
// derive per-trial or per-permutation RNG streams without coordinating.
func Stream(seed uint64, parts ...uint64) uint64 {
	var buf [8]byte
	d := xxhash.New()
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	for _, p := range parts {
		binary.LittleEndian.PutUint64(buf[:], p)
		_, _ = d.Write(buf[:])
	}

	return d.Sum64()
}
