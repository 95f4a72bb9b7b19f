package protocol

import "fmt"

// ResultType is the kind of a RenderResult.
type ResultType uint32

const (
	ResultFrame    ResultType = 0
	ResultCanceled ResultType = 1
	ResultDone     ResultType = 2
)

func (t ResultType) String() string {
	switch t {
	case ResultFrame:
		return "FRAME"
	case ResultCanceled:
		return "CANCELED"
	case ResultDone:
		return "DONE"
	default:
		return fmt.Sprintf("ResultType(%d)", uint32(t))
	}
}

// Terminal reports whether the result ends the render loop.
func (t ResultType) Terminal() bool {
	return t == ResultCanceled || t == ResultDone
}

// RenderResult is sent by the server while rendering. A FRAME with a
// non-zero FileSize is followed by exactly FileSize raw bytes.
type RenderResult struct {
	Type            ResultType
	Sample          uint32
	Width           uint32
	Height          uint32
	ReductionFactor uint32
	FileName        string
	FileSize        uint64
	Variance        float32
	MemoryUsage     float32 // MiB
	PeakMemoryUsage float32 // MiB
}

func (r *RenderResult) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(r.Type))
	e.Uint32(2, r.Sample)
	e.Uint32(3, r.Width)
	e.Uint32(4, r.Height)
	e.Uint32(5, r.ReductionFactor)
	e.String(6, r.FileName)
	e.Uint64(7, r.FileSize)
	e.Float32(8, r.Variance)
	e.Float32(9, r.MemoryUsage)
	e.Float32(10, r.PeakMemoryUsage)
}

func (r *RenderResult) DecodeFrom(d *Decoder) error {
	*r = RenderResult{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			r.Type = ResultType(f.Uint32())
		case 2:
			r.Sample = f.Uint32()
		case 3:
			r.Width = f.Uint32()
		case 4:
			r.Height = f.Uint32()
		case 5:
			r.ReductionFactor = f.Uint32()
		case 6:
			r.FileName = f.String()
		case 7:
			r.FileSize = f.Uint64()
		case 8:
			return f.Float32Into(&r.Variance)
		case 9:
			return f.Float32Into(&r.MemoryUsage)
		case 10:
			return f.Float32Into(&r.PeakMemoryUsage)
		}
		return nil
	})
}
