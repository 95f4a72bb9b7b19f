package sink

import (
	"errors"
	"sync/atomic"

	"github.com/RaphaelK12/blospray/pkg/session"
)

type multi []session.ProgressSink

// Multi fans out to several sinks. ShouldCancel is true when any sink
// asks for cancellation; Image errors are joined.
func Multi(sinks ...session.ProgressSink) session.ProgressSink {
	return multi(sinks)
}

func (m multi) Progress(f float64) {
	for _, s := range m {
		s.Progress(f)
	}
}

func (m multi) Stats(st session.Stats) {
	for _, s := range m {
		s.Stats(st)
	}
}

func (m multi) ShouldCancel() bool {
	for _, s := range m {
		if s.ShouldCancel() {
			return true
		}
	}
	return false
}

func (m multi) Image(img session.FrameImage) error {
	var errs []error
	for _, s := range m {
		if err := s.Image(img); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel is a sink whose ShouldCancel turns true once Request is called.
// It is safe to call Request from any goroutine.
type Cancel struct {
	session.NopSink
	requested atomic.Bool
}

// Request asks the render to stop.
func (c *Cancel) Request() { c.requested.Store(true) }

func (c *Cancel) ShouldCancel() bool { return c.requested.Load() }
