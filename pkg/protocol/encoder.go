package protocol

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Body is a message schema that can be written to and read from a
// protobuf field stream. Every framed message on the wire is a Body.
type Body interface {
	// EncodeTo appends the message fields to e.
	EncodeTo(e *Encoder)

	// DecodeFrom replaces the message fields with the ones read from d.
	DecodeFrom(d *Decoder) error
}

// Encoder appends protobuf wire-format fields to an internal buffer.
// Zero scalars and empty repeated fields are omitted (proto3 semantics).
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 256),
	}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next call to Reset or any write method.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Uint32 appends a varint field.
func (e *Encoder) Uint32(num protowire.Number, v uint32) {
	e.Uint64(num, uint64(v))
}

// Uint64 appends a varint field.
func (e *Encoder) Uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

// Int32 appends a varint field using two's complement, like protobuf int32.
func (e *Encoder) Int32(num protowire.Number, v int32) {
	e.Uint64(num, uint64(int64(v)))
}

// Bool appends a boolean field.
func (e *Encoder) Bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, protowire.EncodeBool(v))
}

// Float32 appends a fixed32 field holding an IEEE 754 float.
func (e *Encoder) Float32(num protowire.Number, v float32) {
	if v == 0 && !math.Signbit(float64(v)) {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.Fixed32Type)
	e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(v))
}

// Float32s appends a packed repeated float field.
func (e *Encoder) Float32s(num protowire.Number, v []float32) {
	if len(v) == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendVarint(e.buf, uint64(4*len(v)))
	for _, f := range v {
		e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(f))
	}
}

// String appends a length-delimited UTF-8 string field.
func (e *Encoder) String(num protowire.Number, s string) {
	if s == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, s)
}

// Message appends a nested message field. Nested messages are always
// written, even when empty, so repeated entries keep their count.
func (e *Encoder) Message(num protowire.Number, b Body) {
	sub := NewEncoder()
	b.EncodeTo(sub)
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, sub.Bytes())
}

// Marshal encodes a Body into a fresh byte slice.
func Marshal(b Body) []byte {
	e := NewEncoder()
	b.EncodeTo(e)
	return e.Bytes()
}
