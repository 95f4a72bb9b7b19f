package session

import "time"

// Stats are the cumulative render statistics reported by the server.
type Stats struct {
	Sample          uint32 // samples completed so far
	Samples         uint32 // sample budget
	Width           uint32
	Height          uint32
	ReductionFactor uint32
	Variance        float32
	MemoryUsage     float32 // MiB
	PeakMemoryUsage float32 // MiB
	Frames          int
	BytesReceived   int64
	Elapsed         time.Duration
}

// Progress returns the fraction of the sample budget completed, in [0, 1].
func (s Stats) Progress() float64 {
	if s.Samples == 0 {
		return 0
	}
	p := float64(s.Sample) / float64(s.Samples)
	if p > 1 {
		p = 1
	}
	return p
}

// FrameImage is a framebuffer update. Path is a temporary file holding the
// encoded image; it is removed once Image returns.
type FrameImage struct {
	Path     string
	FileName string // name the server gave the image, may be empty
	Size     int64
	Width    uint32
	Height   uint32
	Sample   uint32
}

// ProgressSink is the host side of a render. Its methods are called from
// the goroutine running Render.
type ProgressSink interface {
	// Progress reports the completed fraction of the sample budget.
	Progress(fraction float64)
	// Stats reports cumulative render statistics after every result.
	Stats(s Stats)
	// ShouldCancel is polled while no result is pending.
	ShouldCancel() bool
	// Image delivers a framebuffer update. An error is logged and the
	// render continues.
	Image(img FrameImage) error
}

// NopSink ignores everything and never cancels.
type NopSink struct{}

func (NopSink) Progress(float64)       {}
func (NopSink) Stats(Stats)            {}
func (NopSink) ShouldCancel() bool     { return false }
func (NopSink) Image(FrameImage) error { return nil }
