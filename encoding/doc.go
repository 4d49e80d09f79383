// Package encoding implements the primitive field codecs of the otukit
// snapshot format.
//
// A snapshot payload is a flat sequence of two kinds of field:
//
//   - identifiers and labels: a uint8 length followed by the UTF-8 bytes
//     (at most MaxTextLength bytes)
//   - counts: unsigned LEB128 varints, so the many zero cells of a sparse
//     OTU table take one byte each
//
// VarStringEncoder appends both kinds into one pooled buffer and
// VarStringDecoder reads them back in the same order:
//
//	enc := encoding.NewVarStringEncoder()
//	defer enc.Finish()
//	_ = enc.WriteSlice(sampleIDs)
//	enc.WriteUvarint(readCount)
//
//	dec := encoding.NewVarStringDecoder(enc.Bytes())
//	ids, err := dec.ReadStrings(len(sampleIDs))
//	count, err := dec.ReadUvarint()
package encoding
