package rendertest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/RaphaelK12/blospray/pkg/protocol"
)

// Received is one control message and the bodies that followed it.
type Received struct {
	Header protocol.ClientMessage
	Bodies []protocol.Body
	// Raw is the number of raw payload bytes that followed the bodies.
	Raw int
}

// Config configures a Server.
type Config struct {
	// Reject refuses the handshake with this message when non-empty.
	Reject string

	// PluginFailures maps plugin instance names to generation errors.
	PluginFailures map[string]string

	// Render scripts the result stream after START_RENDERING.
	Render func(r *Render) error
}

// Option configures a Server.
type Option func(*Config)

// Reject makes the server refuse every handshake.
func Reject(message string) Option {
	return func(c *Config) { c.Reject = message }
}

// FailPlugin makes generation of the named plugin instance fail.
func FailPlugin(name, message string) Option {
	return func(c *Config) {
		if c.PluginFailures == nil {
			c.PluginFailures = map[string]string{}
		}
		c.PluginFailures[name] = message
	}
}

// OnRender sets the render script.
func OnRender(fn func(r *Render) error) Option {
	return func(c *Config) { c.Render = fn }
}

// Server is a fake render server. It is safe to inspect from the test
// goroutine while connections are being served.
type Server struct {
	config Config

	mu   sync.Mutex
	log  []Received
	err  error
	wg   sync.WaitGroup
	once sync.Once
}

// NewServer creates a server that accepts every handshake.
func NewServer(opts ...Option) *Server {
	config := Config{Render: func(r *Render) error { return r.Done(r.Samples) }}
	for _, opt := range opts {
		opt(&config)
	}
	return &Server{config: config}
}

// Dial returns the client end of a new in-memory connection and serves
// the other end in the background.
func (s *Server) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, server := net.Pipe()
	s.serve(server)
	return client, nil
}

// Listen serves loopback TCP connections until the test ends and returns
// the listening address.
func (s *Server) Listen(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			s.serve(nc)
		}
	}()
	return ln.Addr().String()
}

func (s *Server) serve(nc net.Conn) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer nc.Close()
		c := &conn{srv: s, nc: nc, r: bufio.NewReader(nc)}
		if err := c.run(); err != nil {
			s.once.Do(func() { s.err = err })
		}
	}()
}

// Wait blocks until every connection has ended and returns the first
// protocol error seen, if any.
func (s *Server) Wait() error {
	s.wg.Wait()
	return s.err
}

// Received returns a copy of the message log.
func (s *Server) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.log...)
}

// Kinds returns the kinds of all received messages, in order.
func (s *Server) Kinds() []protocol.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Kind, len(s.log))
	for i, r := range s.log {
		out[i] = r.Header.Type
	}
	return out
}

// Count returns how many messages of kind k were received.
func (s *Server) Count(k protocol.Kind) int {
	n := 0
	for _, got := range s.Kinds() {
		if got == k {
			n++
		}
	}
	return n
}

func (s *Server) record(r Received) {
	s.mu.Lock()
	s.log = append(s.log, r)
	s.mu.Unlock()
}

// conn serves one client connection.
type conn struct {
	srv *Server
	nc  net.Conn
	r   *bufio.Reader
}

func (c *conn) read(b protocol.Body) error {
	return protocol.ReadMessage(c.r, b)
}

func (c *conn) write(b protocol.Body) error {
	return protocol.WriteMessage(c.nc, b)
}

func (c *conn) run() error {
	for {
		var hdr protocol.ClientMessage
		if err := c.read(&hdr); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("rendertest: read header: %w", err)
		}

		rec, err := c.handle(hdr)
		if err != nil {
			return fmt.Errorf("rendertest: %s: %w", hdr.Type, err)
		}
		if hdr.Type == protocol.KindStartRendering {
			// Recorded before the script runs so cancellations follow it.
			continue
		}
		c.srv.record(rec)
		if hdr.Type == protocol.KindBye || hdr.Type == protocol.KindQuit {
			return nil
		}
	}
}

// handle reads the bodies that follow hdr and answers when the protocol
// requires it.
func (c *conn) handle(hdr protocol.ClientMessage) (Received, error) {
	rec := Received{Header: hdr}
	body := func(b protocol.Body) error {
		if err := c.read(b); err != nil {
			return err
		}
		rec.Bodies = append(rec.Bodies, b)
		return nil
	}

	switch hdr.Type {
	case protocol.KindHello:
		res := &protocol.HelloResult{Success: c.srv.config.Reject == "", Message: c.srv.config.Reject}
		if hdr.UintValue != protocol.Version && res.Success {
			res = &protocol.HelloResult{Message: fmt.Sprintf("protocol version %d not supported", hdr.UintValue)}
		}
		return rec, c.write(res)

	case protocol.KindUpdateRenderSettings:
		return rec, body(&protocol.RenderSettings{})

	case protocol.KindUpdateWorldSettings:
		return rec, body(&protocol.WorldSettings{})

	case protocol.KindUpdateCamera:
		return rec, body(&protocol.CameraSettings{})

	case protocol.KindUpdateObject:
		upd := &protocol.UpdateObject{}
		if err := body(upd); err != nil {
			return rec, err
		}
		switch upd.Type {
		case protocol.ObjectLight:
			return rec, body(&protocol.LightSettings{})
		case protocol.ObjectVolume:
			return rec, body(&protocol.Volume{})
		case protocol.ObjectSlices:
			return rec, body(&protocol.Slices{})
		}
		return rec, nil

	case protocol.KindUpdateMaterial:
		mu := &protocol.MaterialUpdate{}
		if err := body(mu); err != nil {
			return rec, err
		}
		return rec, body(&protocol.ShaderSettings{Archetype: mu.Type})

	case protocol.KindUpdatePluginInstance:
		upi := &protocol.UpdatePluginInstance{}
		if err := body(upi); err != nil {
			return rec, err
		}
		res := &protocol.GenerateFunctionResult{Success: true}
		if msg, ok := c.srv.config.PluginFailures[upi.Name]; ok {
			res = &protocol.GenerateFunctionResult{Message: msg}
		}
		return rec, c.write(res)

	case protocol.KindUpdateMesh:
		md := &protocol.MeshData{}
		if err := body(md); err != nil {
			return rec, err
		}
		raw, err := protocol.ReadRaw(c.r, md.PayloadSize())
		rec.Raw = len(raw)
		return rec, err

	case protocol.KindStartRendering:
		c.srv.record(rec)
		r := &Render{conn: c, Samples: hdr.UintValue, UpdateRate: hdr.UintValue2}
		return rec, c.srv.config.Render(r)
	}
	// Header-only messages.
	return rec, nil
}

// Render is the server side of one render, handed to the render script.
type Render struct {
	conn       *conn
	Samples    uint32
	UpdateRate uint32
}

// Result sends a render result followed by payload, if any. FileSize is
// set from the payload.
func (r *Render) Result(res protocol.RenderResult, payload []byte) error {
	res.FileSize = uint64(len(payload))
	if err := r.conn.write(&res); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := r.conn.nc.Write(payload)
	return err
}

// Frame sends a FRAME for sample, carrying payload as the image file.
func (r *Render) Frame(sample uint32, payload []byte) error {
	return r.Result(protocol.RenderResult{
		Type:     protocol.ResultFrame,
		Sample:   sample,
		FileName: "/tmp/framebuffer.exr",
	}, payload)
}

// Done reports the render as finished.
func (r *Render) Done(sample uint32) error {
	return r.Result(protocol.RenderResult{Type: protocol.ResultDone, Sample: sample}, nil)
}

// Canceled acknowledges a cancellation.
func (r *Render) Canceled(sample uint32) error {
	return r.Result(protocol.RenderResult{Type: protocol.ResultCanceled, Sample: sample}, nil)
}

// ExpectCancel blocks until the next client message and fails unless it
// is CANCEL_RENDERING.
func (r *Render) ExpectCancel() error {
	var hdr protocol.ClientMessage
	if err := r.conn.read(&hdr); err != nil {
		return err
	}
	r.conn.srv.record(Received{Header: hdr})
	if hdr.Type != protocol.KindCancelRendering {
		return fmt.Errorf("got %s, want %s", hdr.Type, protocol.KindCancelRendering)
	}
	return nil
}
