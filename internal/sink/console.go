package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/RaphaelK12/blospray/pkg/session"
)

// Console prints a progress line to a terminal. Each update overwrites the
// previous one; Finish ends the line.
type Console struct {
	session.NopSink

	mu    sync.Mutex
	w     io.Writer
	stats session.Stats
	wrote bool
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Stats redraws the progress line.
func (c *Console) Stats(s session.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
	fmt.Fprintf(c.w, "\r%s", Line(s))
	c.wrote = true
}

// Finish terminates the progress line.
func (c *Console) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wrote {
		fmt.Fprintln(c.w)
		c.wrote = false
	}
}

// Line formats stats as a single progress line.
func Line(s session.Stats) string {
	line := fmt.Sprintf("sample %d/%d (%3.0f%%)  %dx%d",
		s.Sample, s.Samples, s.Progress()*100, s.Width, s.Height)
	if s.ReductionFactor > 1 {
		line += fmt.Sprintf(" /%d", s.ReductionFactor)
	}
	if s.Variance > 0 {
		line += fmt.Sprintf("  variance %.4f", s.Variance)
	}
	if s.PeakMemoryUsage > 0 {
		line += fmt.Sprintf("  mem %.0f MiB (peak %.0f)", s.MemoryUsage, s.PeakMemoryUsage)
	}
	return line
}
