package preview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RaphaelK12/blospray/pkg/session"
)

// MaxImageSize is the largest framebuffer image kept for GET /image.
const MaxImageSize = 256 << 20

// Status is the JSON body of GET /status.
type Status struct {
	Phase           string  `json:"phase"`
	Sample          uint32  `json:"sample"`
	Samples         uint32  `json:"samples"`
	Progress        float64 `json:"progress"`
	Width           uint32  `json:"width"`
	Height          uint32  `json:"height"`
	ReductionFactor uint32  `json:"reductionFactor,omitempty"`
	Variance        float32 `json:"variance,omitempty"`
	MemoryUsage     float32 `json:"memoryUsage,omitempty"`
	PeakMemoryUsage float32 `json:"peakMemoryUsage,omitempty"`
	Frames          int     `json:"frames"`
	BytesReceived   int64   `json:"bytesReceived"`
	ElapsedMS       int64   `json:"elapsedMs"`
	CancelRequested bool    `json:"cancelRequested"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer sets the registry served on /metrics
// (default: prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithCheckOrigin replaces the same-origin check for WebSocket upgrades.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.checkOrigin = fn }
}

// Server is a live preview of one render. It implements
// session.ProgressSink.
type Server struct {
	logger      *slog.Logger
	gatherer    prometheus.Gatherer
	checkOrigin func(*http.Request) bool
	upgrader    websocket.Upgrader
	hub         *hub
	router      chi.Router

	cancel atomic.Bool

	mu        sync.RWMutex
	status    Status
	image     []byte
	imageType string
}

// New creates a preview server. It does not listen until ListenAndServe.
func New(opts ...Option) *Server {
	s := &Server{
		logger:      slog.Default(),
		gatherer:    prometheus.DefaultGatherer,
		checkOrigin: SameOriginCheck,
		status:      Status{Phase: "idle"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "preview")
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.hub = newHub(s.logger, s.requestCancel)

	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Get("/image", s.handleImage)
	r.Post("/cancel", s.handleCancel)
	r.Get("/ws", s.handleWS)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("preview listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int { return s.hub.count() }

// SetPhase publishes the session phase, e.g. "connecting" or "rendering".
func (s *Server) SetPhase(phase string) {
	s.mu.Lock()
	s.status.Phase = phase
	s.mu.Unlock()
	s.hub.broadcast(Event{Type: "phase", Phase: phase})
}

// Status returns the latest status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.CancelRequested = s.cancel.Load()
	return st
}

func (s *Server) Progress(float64) {}

// Stats records and broadcasts the statistics.
func (s *Server) Stats(st session.Stats) {
	s.mu.Lock()
	s.status = Status{
		Phase:           s.status.Phase,
		Sample:          st.Sample,
		Samples:         st.Samples,
		Progress:        st.Progress(),
		Width:           st.Width,
		Height:          st.Height,
		ReductionFactor: st.ReductionFactor,
		Variance:        st.Variance,
		MemoryUsage:     st.MemoryUsage,
		PeakMemoryUsage: st.PeakMemoryUsage,
		Frames:          st.Frames,
		BytesReceived:   st.BytesReceived,
		ElapsedMS:       st.Elapsed.Milliseconds(),
	}
	snapshot := s.status
	s.mu.Unlock()
	s.hub.broadcast(Event{Type: "stats", Stats: &snapshot})
}

// ShouldCancel reports whether a client asked to cancel.
func (s *Server) ShouldCancel() bool { return s.cancel.Load() }

// Image keeps a copy of the framebuffer for GET /image.
func (s *Server) Image(img session.FrameImage) error {
	if img.Size > MaxImageSize {
		s.logger.Warn("image too large for preview", "bytes", img.Size)
		return nil
	}
	f, err := os.Open(img.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize))
	if err != nil {
		return err
	}

	ext := filepath.Ext(img.FileName)
	if ext == "" {
		ext = filepath.Ext(img.Path)
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	s.mu.Lock()
	s.image = data
	s.imageType = ctype
	s.mu.Unlock()
	s.hub.broadcast(Event{Type: "image", Sample: img.Sample, Bytes: int64(len(data))})
	return nil
}

func (s *Server) requestCancel() {
	if !s.cancel.Swap(true) {
		s.logger.Info("cancel requested from preview")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Status())
}

func (s *Server) handleImage(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	data, ctype := s.image, s.imageType
	s.mu.RUnlock()
	if data == nil {
		http.Error(w, "no image yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.requestCancel()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	// New clients start from the current state.
	st := s.Status()
	first, _ := json.Marshal(Event{Type: "stats", Stats: &st})
	c := s.hub.add(conn, first)

	go c.writePump()
	go c.readPump()
}

// SameOriginCheck accepts WebSocket requests without an Origin header or
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}
