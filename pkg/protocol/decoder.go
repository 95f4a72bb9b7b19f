package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Common decoding errors.
var (
	ErrWrongWireType      = errors.New("protocol: unexpected wire type")
	ErrMessageTooLarge    = errors.New("protocol: message size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// MaxCollectionCount is the maximum number of items in a decoded repeated
// field. This prevents OOM from huge counts with small per-item overhead.
const MaxCollectionCount = 1_000_000

// Field is a single decoded field. Scalar accessors convert the raw value
// according to protobuf rules; they do not fail, callers check Type where
// it matters.
type Field struct {
	Num  protowire.Number
	Type protowire.Type

	v   uint64 // varint, fixed32 or fixed64 payload
	raw []byte // length-delimited payload
}

// Uint32 returns the field as a uint32.
func (f Field) Uint32() uint32 { return uint32(f.v) }

// Uint64 returns the field as a uint64.
func (f Field) Uint64() uint64 { return f.v }

// Int32 returns the field as an int32.
func (f Field) Int32() int32 { return int32(f.v) }

// Bool returns the field as a bool.
func (f Field) Bool() bool { return protowire.DecodeBool(f.v) }

// Float32 returns a fixed32 field as a float.
func (f Field) Float32() (float32, error) {
	if f.Type != protowire.Fixed32Type {
		return 0, fmt.Errorf("%w: field %d is %d, want fixed32", ErrWrongWireType, f.Num, f.Type)
	}
	return math.Float32frombits(uint32(f.v)), nil
}

// String returns a length-delimited field as a string.
func (f Field) String() string { return string(f.raw) }

// Bytes returns a copy of a length-delimited field.
func (f Field) Bytes() []byte {
	b := make([]byte, len(f.raw))
	copy(b, f.raw)
	return b
}

// Float32s returns a repeated float field. Both the packed encoding and a
// single unpacked fixed32 element are accepted.
func (f Field) Float32s() ([]float32, error) {
	switch f.Type {
	case protowire.Fixed32Type:
		return []float32{math.Float32frombits(uint32(f.v))}, nil
	case protowire.BytesType:
		if len(f.raw)%4 != 0 {
			return nil, fmt.Errorf("protocol: packed float field %d has %d bytes", f.Num, len(f.raw))
		}
		n := len(f.raw) / 4
		if n > MaxCollectionCount {
			return nil, ErrCollectionTooLarge
		}
		out := make([]float32, 0, n)
		b := f.raw
		for len(b) > 0 {
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			out = append(out, math.Float32frombits(v))
			b = b[m:]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: field %d is %d, want packed floats", ErrWrongWireType, f.Num, f.Type)
	}
}

// Message decodes a nested message field into b.
func (f Field) Message(b Body) error {
	if f.Type != protowire.BytesType {
		return fmt.Errorf("%w: field %d is %d, want message", ErrWrongWireType, f.Num, f.Type)
	}
	return b.DecodeFrom(NewDecoder(f.raw))
}

// Decoder reads protobuf wire-format fields from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Next reads the next field. It must not be called once EOF reports true.
func (d *Decoder) Next() (Field, error) {
	b := d.buf[d.pos:]
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return Field{}, protowire.ParseError(n)
	}
	b = b[n:]
	f := Field{Num: num, Type: typ}

	var m int
	switch typ {
	case protowire.VarintType:
		f.v, m = protowire.ConsumeVarint(b)
	case protowire.Fixed32Type:
		var v uint32
		v, m = protowire.ConsumeFixed32(b)
		f.v = uint64(v)
	case protowire.Fixed64Type:
		f.v, m = protowire.ConsumeFixed64(b)
	case protowire.BytesType:
		f.raw, m = protowire.ConsumeBytes(b)
	default:
		m = protowire.ConsumeFieldValue(num, typ, b)
	}
	if m < 0 {
		return Field{}, protowire.ParseError(m)
	}
	d.pos += n + m
	return f, nil
}

// Fields calls fn for every field in the buffer, in wire order. Fields the
// callback does not recognise are simply ignored by it.
func (d *Decoder) Fields(fn func(f Field) error) error {
	for !d.EOF() {
		f, err := d.Next()
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal decodes data into b.
func Unmarshal(data []byte, b Body) error {
	return b.DecodeFrom(NewDecoder(data))
}

// Float32Into stores a fixed32 field in dst.
func (f Field) Float32Into(dst *float32) error {
	v, err := f.Float32()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// Float32sInto appends a repeated float field to dst. Repeated fields may
// arrive split over several wire entries.
func (f Field) Float32sInto(dst *[]float32) error {
	v, err := f.Float32s()
	if err != nil {
		return err
	}
	if len(*dst)+len(v) > MaxCollectionCount {
		return ErrCollectionTooLarge
	}
	*dst = append(*dst, v...)
	return nil
}
