package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// Errors returned by Session.
var (
	// ErrConnectFailure means the server could not be reached. The session
	// never started; nothing was sent.
	ErrConnectFailure = errors.New("session: cannot connect to render server")

	// ErrHandshakeRejected is matched by every *HandshakeError.
	ErrHandshakeRejected = errors.New("session: handshake rejected")

	// ErrInvalidState is returned when an operation is called out of order.
	ErrInvalidState = errors.New("session: invalid state")
)

// HandshakeError is returned by Connect when the server refuses the
// session, usually over a protocol version mismatch.
type HandshakeError struct {
	Version uint32
	Message string
}

func (e *HandshakeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session: server rejected protocol version %d", e.Version)
	}
	return fmt.Sprintf("session: server rejected protocol version %d: %s", e.Version, e.Message)
}

func (e *HandshakeError) Is(target error) bool { return target == ErrHandshakeRejected }

// State is the lifecycle position of a Session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnected
	StateExporting
	StateRendering
	StateCanceling
	StateDone
	StateClosed
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnected:    "connected",
	StateExporting:    "exporting",
	StateRendering:    "rendering",
	StateCanceling:    "canceling",
	StateDone:         "done",
	StateClosed:       "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Config holds the connection and render-loop parameters.
type Config struct {
	// Addr is the server host:port.
	Addr string

	// DialTimeout bounds connecting and the handshake (default: 5s).
	DialTimeout time.Duration

	// Version is the protocol version sent in HELLO (default:
	// protocol.Version).
	Version uint32

	// Mode is the render mode sent with START_RENDERING (default:
	// protocol.ModeFinal).
	Mode string

	// PollInterval is the longest the render loop waits for a result
	// before checking for cancellation again (default: 10ms).
	PollInterval time.Duration

	// IdleTimeout fails the render loop with protocol.ErrConnectionLost
	// when no result arrives for this long. Zero waits forever.
	IdleTimeout time.Duration

	// TempDir receives framebuffer files while they are handed to the
	// sink (default: os.TempDir()).
	TempDir string

	// Substitution is the policy for undefined ${NAME} variables in
	// custom properties.
	Substitution export.SubstitutionPolicy

	// ExportOptions are passed to the exporter after the session's own.
	ExportOptions []export.Option
}

func (c *Config) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.Version == 0 {
		c.Version = protocol.Version
	}
	if c.Mode == "" {
		c.Mode = protocol.ModeFinal
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
}

// DialFunc opens the transport connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records the session in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracerProvider traces the session with tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Session) {
		if tp != nil {
			s.tracer = tp.Tracer(defaultTracerName)
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d DialFunc) Option {
	return func(s *Session) {
		if d != nil {
			s.dial = d
		}
	}
}

// Session is one connect, export, render and close cycle. It is not safe
// for concurrent use.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	dial    DialFunc

	state State
	conn  *protocol.Conn
	t     meteredTransport
	cache *cache.Cache

	samples    uint32
	updateRate uint32
	report     *export.Report
	stats      Stats
	result     protocol.ResultType
	cancelSent bool
	greeted    bool
	outcome    string // fixed by Close
	err        error
}

// New creates a disconnected session.
func New(cfg Config, opts ...Option) *Session {
	cfg.applyDefaults()
	s := &Session{
		cfg:    cfg,
		logger: slog.Default(),
		tracer: defaultTracer(),
		dial:   (&net.Dialer{}).DialContext,
		cache:  cache.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session", "server", cfg.Addr)
	return s
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Stats returns the statistics accumulated by Render.
func (s *Session) Stats() Stats { return s.stats }

// Report returns the last export report, or nil before Export.
func (s *Session) Report() *export.Report { return s.report }

// Cache returns the session's entity cache.
func (s *Session) Cache() *cache.Cache { return s.cache }

// Connect opens the connection and performs the handshake. A dial failure
// wraps ErrConnectFailure; a refusal is a *HandshakeError. In both cases
// the session cannot be used, but Close is still safe to call.
func (s *Session) Connect(ctx context.Context) (err error) {
	if s.state != StateDisconnected {
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, s.state)
	}
	ctx, span := s.startSpan(ctx, "connect", attribute.Int("blospray.protocol_version", int(s.cfg.Version)))
	defer func() { endSpan(span, err) }()

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()
	nc, err := s.dial(dctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.metrics.connectFailed()
		s.logger.Warn("connect failed", "error", err)
		err = fmt.Errorf("%w: %s: %w", ErrConnectFailure, s.cfg.Addr, err)
		s.err = err
		return err
	}
	s.conn = protocol.NewConn(nc)
	s.t = meteredTransport{Conn: s.conn, m: s.metrics}
	s.metrics.sessionStarted()

	if err := s.handshake(); err != nil {
		return s.fail(err)
	}
	s.greeted = true
	s.state = StateConnected
	s.logger.Info("connected", "protocol_version", s.cfg.Version)
	return nil
}

func (s *Session) handshake() error {
	if err := s.conn.SetDeadline(time.Now().Add(s.cfg.DialTimeout)); err != nil {
		return fmt.Errorf("%w: handshake: %w", protocol.ErrConnectionLost, err)
	}
	if err := s.t.WriteMessage(protocol.Hello(s.cfg.Version)); err != nil {
		return err
	}
	var res protocol.HelloResult
	if err := s.conn.ReadMessage(&res); err != nil {
		return err
	}
	if err := s.conn.SetDeadline(time.Time{}); err != nil {
		return fmt.Errorf("%w: handshake: %w", protocol.ErrConnectionLost, err)
	}
	if !res.Success {
		return &HandshakeError{Version: s.cfg.Version, Message: res.Message}
	}
	return nil
}

// Export sends the scene held by p. Entities the server already has from
// this session are not resent. The returned report lists entities that
// were skipped; a non-nil error ends the session.
func (s *Session) Export(ctx context.Context, p scene.Provider) (report *export.Report, err error) {
	if s.state != StateConnected {
		return nil, fmt.Errorf("%w: export while %s", ErrInvalidState, s.state)
	}
	_, span := s.startSpan(ctx, "export", attribute.Int("blospray.frame", p.Frame()))
	defer func() { endSpan(span, err) }()

	s.state = StateExporting
	settings := p.Settings()
	s.samples = settings.Render.Samples
	s.updateRate = settings.Render.UpdateRate
	s.stats = Stats{
		Samples: s.samples,
		Width:   settings.Framebuffer.Width,
		Height:  settings.Framebuffer.Height,
	}

	opts := append([]export.Option{
		export.WithLogger(s.logger),
		export.WithSubstitutionPolicy(s.cfg.Substitution),
	}, s.cfg.ExportOptions...)
	x := export.New(s.t, s.cache, opts...)
	report, err = x.Export(p)
	s.report = report
	s.metrics.exported(report)
	if err != nil {
		return report, s.fail(err)
	}
	span.SetAttributes(
		attribute.Int("blospray.objects", report.Objects),
		attribute.Int("blospray.skipped", len(report.Diagnostics)),
	)
	return report, nil
}

// Render starts rendering and runs the result loop until the server
// reports DONE or CANCELED. Cancellation is requested once, the first time
// sink.ShouldCancel returns true or ctx is done; Render then keeps waiting
// for the server to acknowledge it.
func (s *Session) Render(ctx context.Context, sink ProgressSink) (result protocol.ResultType, err error) {
	if s.state != StateExporting || s.report == nil {
		return 0, fmt.Errorf("%w: render while %s", ErrInvalidState, s.state)
	}
	if sink == nil {
		sink = NopSink{}
	}
	_, span := s.startSpan(ctx, "render",
		attribute.Int("blospray.samples", int(s.samples)),
		attribute.Int("blospray.update_rate", int(s.updateRate)),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("blospray.frames", s.stats.Frames),
			attribute.Bool("blospray.cancel_sent", s.cancelSent),
		)
		endSpan(span, err)
	}()

	start := time.Now()
	if err := s.t.WriteMessage(protocol.StartRendering(s.cfg.Mode, s.samples, s.updateRate)); err != nil {
		return 0, s.fail(err)
	}
	s.state = StateRendering
	s.logger.Info("rendering", "samples", s.samples, "update_rate", s.updateRate)

	last := time.Now()
	for {
		ready, err := s.conn.Ready(s.cfg.PollInterval)
		if err != nil {
			return 0, s.fail(err)
		}

		if ready {
			var res protocol.RenderResult
			if err := s.conn.ReadMessage(&res); err != nil {
				return 0, s.fail(err)
			}
			last = time.Now()
			s.stats.Elapsed = time.Since(start)

			switch res.Type {
			case protocol.ResultFrame:
				if err := s.frame(&res, sink); err != nil {
					return 0, s.fail(err)
				}
			case protocol.ResultCanceled, protocol.ResultDone:
				s.update(&res)
				sink.Stats(s.stats)
				s.state = StateDone
				s.result = res.Type
				s.metrics.rendered(time.Since(start).Seconds())
				s.logger.Info("render finished",
					"result", res.Type.String(),
					"sample", s.stats.Sample,
					"frames", s.stats.Frames,
					"elapsed", s.stats.Elapsed,
				)
				return res.Type, nil
			default:
				s.logger.Warn("unknown render result", "type", uint32(res.Type), "file_size", res.FileSize)
				if res.FileSize > 0 {
					if err := s.conn.CopyRaw(io.Discard, int64(res.FileSize)); err != nil {
						return 0, s.fail(err)
					}
				}
			}
			continue
		}

		// The host is asked on every idle pass; the wire signal goes out once.
		stop := ctx.Err() != nil || sink.ShouldCancel()
		if stop && !s.cancelSent {
			if err := s.cancel(); err != nil {
				return 0, s.fail(err)
			}
		}

		if s.cfg.IdleTimeout > 0 && time.Since(last) > s.cfg.IdleTimeout {
			return 0, s.fail(fmt.Errorf("%w: no render result for %s", protocol.ErrConnectionLost, s.cfg.IdleTimeout))
		}
	}
}

// cancel sends CANCEL_RENDERING. It is only ever called once per session.
func (s *Session) cancel() error {
	s.cancelSent = true
	s.state = StateCanceling
	s.metrics.cancelSent()
	s.logger.Info("cancel requested", "sample", s.stats.Sample)
	return s.t.WriteMessage(protocol.Header(protocol.KindCancelRendering))
}

// frame handles a FRAME result: the image payload, if any, is streamed to
// a temporary file and handed to the sink, then progress is reported.
func (s *Session) frame(res *protocol.RenderResult, sink ProgressSink) error {
	s.stats.Frames++
	s.metrics.frameReceived()
	s.update(res)

	if res.FileSize > 0 {
		if err := s.image(res, sink); err != nil {
			return err
		}
	}

	sink.Progress(s.stats.Progress())
	sink.Stats(s.stats)
	return nil
}

func (s *Session) image(res *protocol.RenderResult, sink ProgressSink) error {
	n := int64(res.FileSize)
	f, err := os.CreateTemp(s.cfg.TempDir, "blospray-frame-*"+filepath.Ext(res.FileName))
	if err != nil {
		// The payload still has to be consumed to stay in sync.
		s.logger.Error("cannot store frame", "error", err)
		return s.conn.CopyRaw(io.Discard, n)
	}
	path := f.Name()
	defer os.Remove(path)

	err = s.conn.CopyRaw(f, n)
	if cerr := f.Close(); err == nil && cerr != nil {
		s.logger.Error("cannot store frame", "path", path, "error", cerr)
		return nil
	}
	if err != nil {
		return err
	}

	img := FrameImage{
		Path:     path,
		FileName: res.FileName,
		Size:     n,
		Width:    res.Width,
		Height:   res.Height,
		Sample:   res.Sample,
	}
	if err := sink.Image(img); err != nil {
		s.logger.Warn("image sink failed", "sample", res.Sample, "error", err)
	}
	return nil
}

// update folds a result into the cumulative statistics.
func (s *Session) update(res *protocol.RenderResult) {
	st := &s.stats
	if res.Sample > st.Sample {
		st.Sample = res.Sample
	}
	if res.Width > 0 {
		st.Width, st.Height = res.Width, res.Height
	}
	st.ReductionFactor = res.ReductionFactor
	if res.Variance > 0 {
		st.Variance = res.Variance
	}
	if res.MemoryUsage > 0 {
		st.MemoryUsage = res.MemoryUsage
	}
	if res.PeakMemoryUsage > st.PeakMemoryUsage {
		st.PeakMemoryUsage = res.PeakMemoryUsage
	}
	st.BytesReceived = s.conn.Received()
}

// fail records a session-ending error and returns it.
func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	s.logger.Error("session failed", "state", s.state.String(), "error", err)
	return err
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error { return s.err }

// Outcome classifies how the session ended, as used for the sessions
// metric. A session that never finished rendering is "aborted". After
// Close the outcome no longer changes.
func (s *Session) Outcome() string {
	if s.outcome != "" {
		return s.outcome
	}
	var he *HandshakeError
	switch {
	case errors.Is(s.err, ErrConnectFailure):
		return OutcomeConnectFailed
	case errors.As(s.err, &he):
		return OutcomeRejected
	case s.err != nil:
		return OutcomeLost
	case s.state == StateDone && s.result == protocol.ResultCanceled:
		return OutcomeCanceled
	case s.state == StateDone:
		return OutcomeDone
	default:
		return OutcomeAborted
	}
}

// Close says BYE and closes the connection. It may be called in any state
// and more than once; only the first call has an effect. A failure to
// send BYE does not prevent closing. A session whose handshake did not
// succeed is closed without BYE.
func (s *Session) Close() (err error) {
	if s.state == StateClosed {
		return nil
	}
	outcome := s.Outcome()
	s.outcome = outcome
	if s.conn == nil {
		s.state = StateClosed
		return nil
	}
	_, span := s.startSpan(context.Background(), "close")
	defer func() { endSpan(span, err) }()

	var byeErr error
	if s.greeted {
		byeErr = s.t.WriteMessage(protocol.Header(protocol.KindBye))
	}
	closeErr := s.conn.Close()
	s.metrics.sessionEnded(outcome, s.conn.Sent(), s.conn.Received())
	s.state = StateClosed
	s.logger.Debug("closed", "outcome", outcome, "sent", s.conn.Sent(), "received", s.conn.Received())

	if s.err != nil {
		// BYE is best effort on a failed connection.
		return closeErr
	}
	return errors.Join(byeErr, closeErr)
}
