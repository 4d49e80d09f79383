package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arloliu/otukit/internal/pool"
)

// MaxTextLength is the maximum length of an encoded identifier or label.
// This limit follows from the uint8 length prefix.
const MaxTextLength = 255

// ErrTruncated reports that a payload ended before the expected field.
var ErrTruncated = errors.New("encoded data truncated")

// VarStringEncoder encodes variable-length strings with a uint8 length
// prefix, and unsigned varints, into a single pooled buffer.
//
// Each string is encoded as:
//   - 1 byte: length (0-255)
//   - N bytes: string data (UTF-8)
type VarStringEncoder struct {
	buf   *pool.ByteBuffer
	count int
}

// NewVarStringEncoder creates an encoder backed by a pooled snapshot buffer.
// Call Finish to return the buffer once the encoded bytes have been used.
func NewVarStringEncoder() *VarStringEncoder {
	return &VarStringEncoder{buf: pool.GetSnapshotBuffer()}
}

// Write encodes a single string.
//
// Parameters:
//   - text: String to encode (must not exceed MaxTextLength bytes)
//
// Returns:
//   - error: nil if successful, error if the string exceeds MaxTextLength
func (e *VarStringEncoder) Write(text string) error {
	if len(text) > MaxTextLength {
		return fmt.Errorf("text length %d exceeds maximum %d", len(text), MaxTextLength)
	}

	e.count++
	e.buf.Grow(1 + len(text))
	e.buf.MustWrite([]byte{uint8(len(text))}) //nolint:gosec
	e.buf.MustWrite([]byte(text))

	return nil
}

// WriteSlice encodes a slice of strings. All strings are validated before
// any is written, so a failed call leaves the encoder unchanged.
func (e *VarStringEncoder) WriteSlice(texts []string) error {
	totalSize := 0
	for _, text := range texts {
		if len(text) > MaxTextLength {
			return fmt.Errorf("text %.16q... length %d exceeds maximum %d", text, len(text), MaxTextLength)
		}
		totalSize += 1 + len(text)
	}

	e.buf.Grow(totalSize)
	for _, text := range texts {
		e.buf.MustWrite([]byte{uint8(len(text))}) //nolint:gosec
		e.buf.MustWrite([]byte(text))
		e.count++
	}

	return nil
}

// WriteUvarint encodes a non-negative count as an unsigned varint.
func (e *VarStringEncoder) WriteUvarint(val uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], val)
	e.buf.MustWrite(tmp[:n])
}

// Bytes returns the encoded data. The slice shares the encoder's buffer and
// is valid until Finish.
func (e *VarStringEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of strings encoded.
func (e *VarStringEncoder) Len() int {
	return e.count
}

// Size returns the total size of encoded data in bytes.
func (e *VarStringEncoder) Size() int {
	return e.buf.Len()
}

// Finish returns the buffer to the pool. The encoder must not be used afterwards.
func (e *VarStringEncoder) Finish() {
	if e.buf != nil {
		pool.PutSnapshotBuffer(e.buf)
		e.buf = nil
	}
	e.count = 0
}

// VarStringDecoder reads fields written by VarStringEncoder, in order.
type VarStringDecoder struct {
	data []byte
	pos  int
}

// NewVarStringDecoder creates a decoder over data. Decoded strings are
// copies and stay valid after data is reused.
func NewVarStringDecoder(data []byte) *VarStringDecoder {
	return &VarStringDecoder{data: data}
}

// ReadString decodes one length-prefixed string.
func (d *VarStringDecoder) ReadString() (string, error) {
	if d.pos >= len(d.data) {
		return "", ErrTruncated
	}

	n := int(d.data[d.pos])
	start := d.pos + 1
	if start+n > len(d.data) {
		return "", fmt.Errorf("%w: string of %d bytes at offset %d", ErrTruncated, n, d.pos)
	}
	d.pos = start + n

	return string(d.data[start:d.pos]), nil
}

// ReadStrings decodes count consecutive strings. Every string takes at
// least one byte, so a count above Remaining fails before allocating.
func (d *VarStringDecoder) ReadStrings(count int) ([]string, error) {
	if count < 0 || count > d.Remaining() {
		return nil, fmt.Errorf("%w: %d strings in %d bytes at offset %d", ErrTruncated, count, d.Remaining(), d.pos)
	}

	out := make([]string, count)
	for i := range out {
		s, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}

	return out, nil
}

// ReadUvarint decodes one unsigned varint.
func (d *VarStringDecoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.pos:])
	switch {
	case n == 0:
		return 0, ErrTruncated
	case n < 0:
		return 0, fmt.Errorf("varint overflow at offset %d", d.pos)
	}
	d.pos += n

	return v, nil
}

// Remaining returns the number of bytes not yet decoded.
func (d *VarStringDecoder) Remaining() int {
	return len(d.data) - d.pos
}
