package snapshot

import (
	"fmt"

	"github.com/arloliu/otukit/endian"
	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/format"
)

const (
	// HeaderSize is the fixed size of the snapshot header in bytes.
	HeaderSize = 32

	// Version is the current snapshot format version.
	Version = 1

	magicMask      = 0xFFF0 // bits 4-15 of the flag
	endiannessMask = 0x0002 // bit 1: 0=little, 1=big
	magicV1        = 0xC710
)

// Header is the fixed 32-byte preamble of a snapshot file.
//
// Layout:
//
//	offset  size  field
//	0       2     Flag (magic + endianness, always little-endian)
//	2       1     Version
//	3       1     Compression (format.CompressionType)
//	4       4     SampleCount
//	8       4     TaxonCount
//	12      2     RankCount
//	14      2     FieldCount
//	16      4     PayloadSize (uncompressed)
//	20      4     StoredSize (as written after the header)
//	24      8     Checksum (xxHash64 of the uncompressed payload)
type Header struct {
	Flag        uint16
	Version     uint8
	Compression format.CompressionType
	SampleCount uint32
	TaxonCount  uint32
	RankCount   uint16
	FieldCount  uint16
	PayloadSize uint32
	StoredSize  uint32
	Checksum    uint64
}

func newHeader(bigEndian bool, ct format.CompressionType) *Header {
	flag := uint16(magicV1)
	if bigEndian {
		flag |= endiannessMask
	}

	return &Header{Flag: flag, Version: Version, Compression: ct}
}

// IsBigEndian reports whether the multi-byte fields are big-endian.
func (h *Header) IsBigEndian() bool {
	return h.Flag&endiannessMask != 0
}

// GetEndianEngine returns the engine matching the header's byte order.
func (h *Header) GetEndianEngine() endian.EndianEngine {
	if h.IsBigEndian() {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// Parse decodes the header from data, which must hold at least HeaderSize bytes.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return errs.Malformed("snapshot", fmt.Sprintf("header needs %d bytes, got %d", HeaderSize, len(data)))
	}

	// the flag is little-endian regardless of the byte order it announces
	h.Flag = uint16(data[0]) | uint16(data[1])<<8
	if h.Flag&magicMask != magicV1 {
		return errs.Malformed("snapshot", fmt.Sprintf("bad magic 0x%04x", h.Flag&magicMask))
	}
	h.Version = data[2]
	if h.Version != Version {
		return errs.Malformed("snapshot", fmt.Sprintf("unsupported version %d", h.Version))
	}
	h.Compression = format.CompressionType(data[3])

	engine := h.GetEndianEngine()
	h.SampleCount = engine.Uint32(data[4:8])
	h.TaxonCount = engine.Uint32(data[8:12])
	h.RankCount = engine.Uint16(data[12:14])
	h.FieldCount = engine.Uint16(data[14:16])
	h.PayloadSize = engine.Uint32(data[16:20])
	h.StoredSize = engine.Uint32(data[20:24])
	h.Checksum = engine.Uint64(data[24:32])

	return nil
}

// Bytes serializes the header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := h.GetEndianEngine()

	b[0] = byte(h.Flag)
	b[1] = byte(h.Flag >> 8)
	b[2] = h.Version
	b[3] = uint8(h.Compression)
	engine.PutUint32(b[4:8], h.SampleCount)
	engine.PutUint32(b[8:12], h.TaxonCount)
	engine.PutUint16(b[12:14], h.RankCount)
	engine.PutUint16(b[14:16], h.FieldCount)
	engine.PutUint32(b[16:20], h.PayloadSize)
	engine.PutUint32(b[20:24], h.StoredSize)
	engine.PutUint64(b[24:32], h.Checksum)

	return b
}
