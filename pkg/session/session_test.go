package session

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/rendertest"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// recordingSink keeps everything the render loop reports.
type recordingSink struct {
	cancel   bool
	polls    int
	progress []float64
	stats    []Stats
	images   []FrameImage
	contents []string
}

func (s *recordingSink) Progress(f float64) { s.progress = append(s.progress, f) }
func (s *recordingSink) Stats(st Stats)     { s.stats = append(s.stats, st) }
func (s *recordingSink) ShouldCancel() bool { s.polls++; return s.cancel }
func (s *recordingSink) Image(img FrameImage) error {
	b, err := os.ReadFile(img.Path)
	if err != nil {
		return err
	}
	s.images = append(s.images, img)
	s.contents = append(s.contents, string(b))
	return nil
}

func testScene() *scene.Static {
	return scene.NewStatic(scene.Settings{
		Render:      scene.RenderSettings{Renderer: scene.RendererPathTracer, Samples: 4, UpdateRate: 1},
		Framebuffer: scene.Framebuffer{Width: 64, Height: 48},
	}, 1)
}

func newTestSession(t *testing.T, srv *rendertest.Server, opts ...Option) *Session {
	t.Helper()
	cfg := Config{Addr: "fake:5909", PollInterval: time.Millisecond, TempDir: t.TempDir()}
	s := New(cfg, append([]Option{WithDialer(srv.Dial)}, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s
}

// ready connects and exports the test scene.
func ready(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	_, err := s.Export(ctx, testScene())
	require.NoError(t, err)
}

func TestConnectRejected(t *testing.T) {
	srv := rendertest.NewServer(rendertest.Reject("version mismatch"))
	s := newTestSession(t, srv)

	err := s.Connect(context.Background())
	var he *HandshakeError
	require.ErrorAs(t, err, &he)
	assert.ErrorIs(t, err, ErrHandshakeRejected)
	assert.Equal(t, "version mismatch", he.Message)
	assert.Equal(t, protocol.Version, he.Version)

	_, err = s.Export(context.Background(), testScene())
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
	assert.Equal(t, []protocol.Kind{protocol.KindHello}, srv.Kinds())
	assert.Equal(t, StateClosed, s.State())
}

func TestConnectVersionMismatch(t *testing.T) {
	srv := rendertest.NewServer()
	s := New(Config{Addr: "fake", Version: 1}, WithDialer(srv.Dial))
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrHandshakeRejected)
	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
}

func TestConnectFailure(t *testing.T) {
	refused := errors.New("connection refused")
	s := New(Config{Addr: "nowhere:1"}, WithDialer(func(context.Context, string, string) (net.Conn, error) {
		return nil, refused
	}))

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectFailure)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, OutcomeConnectFailed, s.Outcome())
	assert.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
}

func TestConnectTCP(t *testing.T) {
	srv := rendertest.NewServer()
	addr := srv.Listen(t)

	s := New(Config{Addr: addr, PollInterval: time.Millisecond})
	ready(t, s)
	result, err := s.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResultDone, result)
	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
	assert.Equal(t, 1, srv.Count(protocol.KindBye))
}

func TestRenderFrameWithoutPayload(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.Frame(1, nil); err != nil {
			return err
		}
		return r.Done(4)
	}))
	s := newTestSession(t, srv)
	ready(t, s)

	sink := &recordingSink{}
	result, err := s.Render(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResultDone, result)
	assert.Equal(t, StateDone, s.State())

	assert.Equal(t, []float64{0.25}, sink.progress)
	require.Len(t, sink.stats, 2)
	assert.EqualValues(t, 1, sink.stats[0].Sample)
	assert.Equal(t, 1, sink.stats[0].Frames)
	assert.EqualValues(t, 4, sink.stats[1].Sample)
	assert.Empty(t, sink.images)

	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, OutcomeDone, s.Outcome())
	require.NoError(t, srv.Wait())
	assert.Zero(t, srv.Count(protocol.KindCancelRendering))
	kinds := srv.Kinds()
	assert.Equal(t, protocol.KindBye, kinds[len(kinds)-1])
}

func TestRenderSkipsUnknownResult(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.Result(protocol.RenderResult{Type: protocol.ResultType(42), Sample: 1}, []byte("not a message")); err != nil {
			return err
		}
		if err := r.Frame(2, []byte("image")); err != nil {
			return err
		}
		return r.Done(4)
	}))
	s := newTestSession(t, srv)
	ready(t, s)

	sink := &recordingSink{}
	result, err := s.Render(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResultDone, result)
	assert.Equal(t, []string{"image"}, sink.contents)
	assert.Equal(t, 1, s.Stats().Frames)
}

func TestRenderFramePayload(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		for i := uint32(1); i <= 2; i++ {
			if err := r.Frame(i*2, []byte("image-"+string(rune('0'+i)))); err != nil {
				return err
			}
		}
		return r.Done(4)
	}))
	s := newTestSession(t, srv)
	ready(t, s)

	sink := &recordingSink{}
	_, err := s.Render(context.Background(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"image-1", "image-2"}, sink.contents)
	assert.Equal(t, []float64{0.5, 1}, sink.progress)
	for _, img := range sink.images {
		assert.Equal(t, ".exr", img.Path[len(img.Path)-4:])
		_, err := os.Stat(img.Path)
		assert.True(t, os.IsNotExist(err), "frame file %s not removed", img.Path)
	}
	assert.EqualValues(t, 7, sink.images[1].Size)
	assert.Greater(t, s.Stats().BytesReceived, int64(14))
}

func TestCancelSentOnce(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.ExpectCancel(); err != nil {
			return err
		}
		time.Sleep(30 * time.Millisecond)
		return r.Canceled(0)
	}))
	s := newTestSession(t, srv)
	ready(t, s)

	sink := &recordingSink{cancel: true}
	result, err := s.Render(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, protocol.ResultCanceled, result)
	assert.Greater(t, sink.polls, 1, "cancel must be polled after it was sent")

	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
	assert.Equal(t, 1, srv.Count(protocol.KindCancelRendering))
	assert.Equal(t, OutcomeCanceled, s.Outcome())
}

func TestCancelOnContext(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.ExpectCancel(); err != nil {
			return err
		}
		return r.Canceled(0)
	}))
	s := newTestSession(t, srv)
	ready(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Render(ctx, NopSink{})
	require.NoError(t, err)
	assert.Equal(t, protocol.ResultCanceled, result)

	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
	assert.Equal(t, 1, srv.Count(protocol.KindCancelRendering))
}

func TestRenderConnectionLost(t *testing.T) {
	crash := errors.New("server crashed")
	srv := rendertest.NewServer(rendertest.OnRender(func(*rendertest.Render) error { return crash }))
	s := newTestSession(t, srv)
	ready(t, s)

	_, err := s.Render(context.Background(), nil)
	require.ErrorIs(t, err, protocol.ErrConnectionLost)
	assert.Equal(t, err, s.Err())
	assert.Equal(t, OutcomeLost, s.Outcome())

	assert.NoError(t, s.Close())
	assert.ErrorIs(t, srv.Wait(), crash)
}

func TestRenderIdleTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		<-release
		return nil
	}))
	s := New(Config{Addr: "fake", PollInterval: time.Millisecond, IdleTimeout: 20 * time.Millisecond}, WithDialer(srv.Dial))
	ready(t, s)

	_, err := s.Render(context.Background(), nil)
	assert.ErrorIs(t, err, protocol.ErrConnectionLost)
	close(release)
	assert.NoError(t, s.Close())
	srv.Wait()
}

func TestInvalidState(t *testing.T) {
	srv := rendertest.NewServer()
	s := newTestSession(t, srv)

	_, err := s.Render(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, s.Connect(context.Background()))
	assert.ErrorIs(t, s.Connect(context.Background()), ErrInvalidState)

	_, err = s.Render(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState, "render before export")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())
	assert.Equal(t, 1, srv.Count(protocol.KindBye))
}

func TestExportSceneFile(t *testing.T) {
	p, err := scene.LoadFile("../scene/testdata/slices.yaml")
	require.NoError(t, err)

	srv := rendertest.NewServer()
	s := newTestSession(t, srv)
	require.NoError(t, s.Connect(context.Background()))
	report, err := s.Export(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, report, s.Report())
	assert.True(t, s.Cache().AlreadySent(cache.MeshData, "VolumeData"))

	_, err = s.Render(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())

	var slices *protocol.Slices
	raw := 0
	for _, rec := range srv.Received() {
		raw += rec.Raw
		for _, b := range rec.Bodies {
			if sl, ok := b.(*protocol.Slices); ok {
				slices = sl
			}
		}
	}
	require.NotNil(t, slices)
	assert.Len(t, slices.Slices, 2)
	assert.Positive(t, raw)

	start := srv.Received()[len(srv.Received())-2].Header
	assert.Equal(t, protocol.KindStartRendering, start.Type)
	assert.EqualValues(t, 16, start.UintValue)
	assert.EqualValues(t, 1, start.UintValue2)
	assert.Equal(t, protocol.ModeFinal, start.StringValue)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "canceling", StateCanceling.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestStatsProgress(t *testing.T) {
	assert.Zero(t, Stats{Sample: 3}.Progress())
	assert.Equal(t, 0.5, Stats{Sample: 2, Samples: 4}.Progress())
	assert.Equal(t, 1.0, Stats{Sample: 9, Samples: 4}.Progress())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.Frame(2, []byte("x")); err != nil {
			return err
		}
		return r.Done(4)
	}))
	s := newTestSession(t, srv, WithMetrics(m))
	ready(t, s)
	assert.Equal(t, 1.0, gaugeValue(t, m.activeSessions))

	_, err := s.Render(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, srv.Wait())

	assert.Equal(t, 0.0, gaugeValue(t, m.activeSessions))
	assert.Equal(t, 1.0, counterValue(t, m.sessionsTotal.WithLabelValues(OutcomeDone)))
	assert.Equal(t, 1.0, counterValue(t, m.messagesSent.WithLabelValues("HELLO")))
	assert.Equal(t, 1.0, counterValue(t, m.messagesSent.WithLabelValues("BYE")))
	assert.Equal(t, 1.0, counterValue(t, m.framesReceived))
	assert.Zero(t, counterValue(t, m.cancellations))
	assert.Positive(t, counterValue(t, m.bytesSent))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_sessions_total"])
	assert.True(t, names["test_export_duration_seconds"])
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.sessionStarted()
	m.sessionEnded(OutcomeDone, 1, 1)
	m.messageSent(protocol.KindHello)
	m.exported(nil)
}

// recordingProvider records the names of started spans.
type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	names []string
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.p.mu.Lock()
	t.p.names = append(t.p.names, name)
	t.p.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

func TestSessionSpans(t *testing.T) {
	tp := &recordingProvider{}
	srv := rendertest.NewServer()
	s := newTestSession(t, srv, WithTracerProvider(tp))
	ready(t, s)
	_, err := s.Render(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"blospray.connect", "blospray.export", "blospray.render", "blospray.close"}, tp.names)
}
