// Package export translates a scene into the render server's message
// stream.
//
// An Exporter writes one session's scene: settings, a clear-scene
// directive, then every object in provider order. Mesh data and materials
// are sent at most once per session, tracked in a cache.Cache. Problems
// that only affect one entity are logged, recorded in the Report and
// skipped; transport errors abort the export.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// Transport is the write side of a connection, plus the blocking read
// needed for plugin generation replies. *protocol.Conn implements it.
type Transport interface {
	WriteMessage(b protocol.Body) error
	WriteRaw(b protocol.Block) error
	ReadMessage(b protocol.Body) error
}

// Report summarizes one export pass.
type Report struct {
	Objects         int
	Lights          int
	MeshesSent      int
	MeshesReused    int
	MaterialsSent   int
	MaterialsReused int
	PluginInstances int
	Duration        time.Duration

	// Diagnostics are the recoverable errors met during the pass.
	Diagnostics []error
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exporter) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithSubstitutionPolicy sets how undefined ${NAME} variables are handled.
func WithSubstitutionPolicy(p SubstitutionPolicy) Option {
	return func(x *Exporter) { x.policy = p }
}

// WithFramebufferFormat sets the pixel format requested for final renders.
// The default is protocol.FormatRGBA32.
func WithFramebufferFormat(f protocol.PixelFormat) Option {
	return func(x *Exporter) { x.format = f }
}

// Exporter writes scene state to a Transport.
type Exporter struct {
	t      Transport
	cache  *cache.Cache
	logger *slog.Logger
	policy SubstitutionPolicy
	format protocol.PixelFormat

	provider scene.Provider
	subst    *substituter
	report   Report
}

// New creates an exporter writing to t. The cache belongs to the session
// and must not be shared between sessions.
func New(t Transport, c *cache.Cache, opts ...Option) *Exporter {
	x := &Exporter{
		t:      t,
		cache:  c,
		logger: slog.Default(),
		format: protocol.FormatRGBA32,
	}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = x.logger.With("component", "exporter")
	x.subst = newSubstituter(0, x.policy)
	return x
}

// Export sends the complete scene. The returned error is non-nil only for
// failures that end the session; skipped entities are listed in
// Report.Diagnostics.
func (x *Exporter) Export(p scene.Provider) (*Report, error) {
	start := time.Now()
	x.provider = p
	x.subst = newSubstituter(p.Frame(), x.policy)
	x.report = Report{}

	err := x.export(p)
	x.report.Duration = time.Since(start)
	report := x.report
	return &report, err
}

func (x *Exporter) export(p scene.Provider) error {
	settings := p.Settings()
	if err := x.ExportSettings(settings); err != nil {
		return err
	}
	if err := x.t.WriteMessage(protocol.ClearScene(settings.KeepPluginInstances)); err != nil {
		return err
	}

	for _, obj := range p.Objects() {
		var err error
		switch o := obj.(type) {
		case *scene.Light:
			err = x.ExportLight(o)
		case *scene.MeshObject:
			err = x.ExportObject(o)
		case *scene.CameraObject:
			continue
		default:
			err = unsupported("object", obj.ObjectName(), "unknown object type %T", obj)
		}
		if err = x.recover(err); err != nil {
			return err
		}
	}

	x.logger.Info("scene exported",
		"objects", x.report.Objects,
		"lights", x.report.Lights,
		"meshes", x.report.MeshesSent,
		"materials", x.report.MaterialsSent,
		"skipped", len(x.report.Diagnostics),
	)
	return nil
}

// Report returns the counters of the current or last export pass.
func (x *Exporter) Report() Report {
	return x.report
}

// recover records a locally recoverable error and swallows it. Any other
// error is returned.
func (x *Exporter) recover(err error) error {
	if err == nil {
		return nil
	}
	if !Recoverable(err) {
		return err
	}
	x.diagnose(err)
	return nil
}

func (x *Exporter) diagnose(err error) {
	x.report.Diagnostics = append(x.report.Diagnostics, err)

	var ue *UnsupportedEntityError
	var se *SubstitutionError
	switch {
	case errors.As(err, &ue):
		x.logger.Warn("entity skipped", "kind", ue.Kind, "name", ue.Name, "reason", ue.Reason)
	case errors.As(err, &se):
		x.logger.Warn("property substitution failed",
			"owner", se.Owner,
			"property", se.Property,
			"variable", se.Variable,
			"policy", x.policy.String(),
		)
	}
}

// properties splits and expands the custom properties of owner, recording
// substitution diagnostics.
func (x *Exporter) properties(owner string, props scene.Properties) properties {
	p := x.subst.split(owner, props)
	for _, err := range p.errs {
		x.diagnose(err)
	}
	return p
}

// send writes a header followed by its bodies.
func (x *Exporter) send(header *protocol.ClientMessage, bodies ...protocol.Body) error {
	if err := x.t.WriteMessage(header); err != nil {
		return fmt.Errorf("send %s: %w", header.Type, err)
	}
	for _, b := range bodies {
		if err := x.t.WriteMessage(b); err != nil {
			return fmt.Errorf("send %s body: %w", header.Type, err)
		}
	}
	return nil
}
