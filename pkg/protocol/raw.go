package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ElementSize is the size in bytes of every raw element: float32 for
// vertex attributes and uint32 for triangle indices.
const ElementSize = 4

// Block is a shaped raw binary block. Raw blocks carry no length prefix of
// their own; the receiver derives the byte length from the counts declared
// in the preceding message.
type Block interface {
	// Count returns the number of elements (vertices, triangles).
	Count() int
	// Components returns the number of values per element.
	Components() int
	// ByteLen returns Count() * Components() * ElementSize.
	ByteLen() int

	appendTo(dst []byte) []byte
}

// Float32Block holds count×components little-endian floats.
type Float32Block struct {
	components int
	data       []float32
}

// NewFloat32Block returns a zeroed block of count elements.
func NewFloat32Block(count, components int) *Float32Block {
	if components <= 0 || count < 0 {
		panic(fmt.Sprintf("protocol: invalid float block shape %dx%d", count, components))
	}
	return &Float32Block{components: components, data: make([]float32, count*components)}
}

// Float32BlockOf wraps data as a block. The length of data must be a
// multiple of components.
func Float32BlockOf(components int, data []float32) (*Float32Block, error) {
	if components <= 0 || len(data)%components != 0 {
		return nil, fmt.Errorf("%w: %d floats in groups of %d", ErrMisshapenBlock, len(data), components)
	}
	return &Float32Block{components: components, data: data}, nil
}

func (b *Float32Block) Count() int      { return len(b.data) / b.components }
func (b *Float32Block) Components() int { return b.components }
func (b *Float32Block) ByteLen() int    { return len(b.data) * ElementSize }

// Data returns the backing slice.
func (b *Float32Block) Data() []float32 { return b.data }

// Set stores value v as component c of element i.
func (b *Float32Block) Set(i, c int, v float32) {
	b.data[i*b.components+c] = v
}

// At returns component c of element i.
func (b *Float32Block) At(i, c int) float32 {
	return b.data[i*b.components+c]
}

func (b *Float32Block) appendTo(dst []byte) []byte {
	for _, v := range b.data {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// Uint32Block holds count×components little-endian unsigned integers.
type Uint32Block struct {
	components int
	data       []uint32
}

// NewUint32Block returns a zeroed block of count elements.
func NewUint32Block(count, components int) *Uint32Block {
	if components <= 0 || count < 0 {
		panic(fmt.Sprintf("protocol: invalid index block shape %dx%d", count, components))
	}
	return &Uint32Block{components: components, data: make([]uint32, count*components)}
}

// Uint32BlockOf wraps data as a block. The length of data must be a
// multiple of components.
func Uint32BlockOf(components int, data []uint32) (*Uint32Block, error) {
	if components <= 0 || len(data)%components != 0 {
		return nil, fmt.Errorf("%w: %d integers in groups of %d", ErrMisshapenBlock, len(data), components)
	}
	return &Uint32Block{components: components, data: data}, nil
}

func (b *Uint32Block) Count() int      { return len(b.data) / b.components }
func (b *Uint32Block) Components() int { return b.components }
func (b *Uint32Block) ByteLen() int    { return len(b.data) * ElementSize }

// Data returns the backing slice.
func (b *Uint32Block) Data() []uint32 { return b.data }

// Set stores value v as component c of element i.
func (b *Uint32Block) Set(i, c int, v uint32) {
	b.data[i*b.components+c] = v
}

func (b *Uint32Block) appendTo(dst []byte) []byte {
	for _, v := range b.data {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}

// WriteRaw writes the block's bytes with a single Write call.
func WriteRaw(w io.Writer, b Block) error {
	if b.Components() <= 0 {
		return ErrMisshapenBlock
	}
	buf := b.appendTo(make([]byte, 0, b.ByteLen()))
	if _, err := w.Write(buf); err != nil {
		return lost("write raw block", err)
	}
	return nil
}

// ReadRaw reads exactly n bytes, looping over short reads. A stream that
// closes before n bytes arrive fails with ErrConnectionLost.
func ReadRaw(r io.Reader, n int) ([]byte, error) {
	if n < 0 || n > math.MaxInt32 {
		return nil, fmt.Errorf("protocol: invalid raw length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, lost("read raw block", err)
	}
	return buf, nil
}

// CopyRaw streams exactly n raw bytes from r to w.
func CopyRaw(w io.Writer, r io.Reader, n int64) error {
	if _, err := io.CopyN(w, r, n); err != nil {
		return lost("copy raw block", err)
	}
	return nil
}

// ReadFloat32Block reads count×components floats.
func ReadFloat32Block(r io.Reader, count, components int) (*Float32Block, error) {
	buf, err := ReadRaw(r, count*components*ElementSize)
	if err != nil {
		return nil, err
	}
	b := NewFloat32Block(count, components)
	for i := range b.data {
		b.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*ElementSize:]))
	}
	return b, nil
}

// ReadUint32Block reads count×components unsigned integers.
func ReadUint32Block(r io.Reader, count, components int) (*Uint32Block, error) {
	buf, err := ReadRaw(r, count*components*ElementSize)
	if err != nil {
		return nil, err
	}
	b := NewUint32Block(count, components)
	for i := range b.data {
		b.data[i] = binary.LittleEndian.Uint32(buf[i*ElementSize:])
	}
	return b, nil
}
