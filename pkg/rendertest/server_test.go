package rendertest

import (
	"context"
	"reflect"
	"testing"

	"github.com/RaphaelK12/blospray/pkg/protocol"
)

func dial(t *testing.T, srv *Server) *protocol.Conn {
	t.Helper()
	nc, err := srv.Dial(context.Background(), "tcp", "fake")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return protocol.NewConn(nc)
}

// must fails the test on a client-side I/O error.
func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestServerHandshake(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		version uint32
		ok      bool
	}{
		{"accepted", nil, protocol.Version, true},
		{"rejected", []Option{Reject("busy")}, protocol.Version, false},
		{"old_version", nil, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewServer(tc.opts...)
			c := dial(t, srv)
			must(t, c.WriteMessage(protocol.Hello(tc.version)))
			var res protocol.HelloResult
			must(t, c.ReadMessage(&res))
			if res.Success != tc.ok {
				t.Errorf("Success = %v, want %v (%q)", res.Success, tc.ok, res.Message)
			}
			must(t, c.Close())
			if err := srv.Wait(); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		})
	}
}

func TestServerMeshAndPlugin(t *testing.T) {
	srv := NewServer(FailPlugin("bad", "no such file"))
	c := dial(t, srv)

	must(t, c.WriteMessage(protocol.UpdateMesh("tri")))
	must(t, c.WriteMessage(&protocol.MeshData{NumVertices: 3, NumTriangles: 1}))
	must(t, c.WriteRaw(protocol.NewFloat32Block(3, 3)))
	must(t, c.WriteRaw(protocol.NewUint32Block(1, 3)))

	must(t, c.WriteMessage(protocol.Header(protocol.KindUpdatePluginInstance)))
	must(t, c.WriteMessage(&protocol.UpdatePluginInstance{Name: "bad"}))
	var res protocol.GenerateFunctionResult
	must(t, c.ReadMessage(&res))
	if res.Success || res.Message != "no such file" {
		t.Errorf("GenerateFunctionResult = %+v, want failure \"no such file\"", res)
	}

	must(t, c.WriteMessage(protocol.Header(protocol.KindBye)))
	if err := srv.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	c.Close()

	got := srv.Received()
	if len(got) != 3 {
		t.Fatalf("received %d messages, want 3", len(got))
	}
	if got[0].Header.StringValue != "tri" || got[0].Raw != 3*3*4+3*4 {
		t.Errorf("mesh = %q with %d raw bytes", got[0].Header.StringValue, got[0].Raw)
	}
	want := []protocol.Kind{protocol.KindUpdateMesh, protocol.KindUpdatePluginInstance, protocol.KindBye}
	if kinds := srv.Kinds(); !reflect.DeepEqual(kinds, want) {
		t.Errorf("Kinds() = %v, want %v", kinds, want)
	}
}

func TestServerScriptedRender(t *testing.T) {
	srv := NewServer(OnRender(func(r *Render) error {
		if err := r.Frame(1, []byte("abc")); err != nil {
			return err
		}
		if err := r.ExpectCancel(); err != nil {
			return err
		}
		return r.Canceled(1)
	}))
	c := dial(t, srv)

	must(t, c.WriteMessage(protocol.StartRendering(protocol.ModeFinal, 8, 1)))
	var res protocol.RenderResult
	must(t, c.ReadMessage(&res))
	if res.Type != protocol.ResultFrame || res.FileSize != 3 {
		t.Fatalf("first result = %s with %d bytes, want FRAME with 3", res.Type, res.FileSize)
	}
	payload, err := c.ReadRaw(int(res.FileSize))
	must(t, err)
	if string(payload) != "abc" {
		t.Errorf("payload = %q", payload)
	}

	must(t, c.WriteMessage(protocol.Header(protocol.KindCancelRendering)))
	must(t, c.ReadMessage(&res))
	if res.Type != protocol.ResultCanceled {
		t.Errorf("second result = %s, want CANCELED", res.Type)
	}

	c.Close()
	if err := srv.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if n := srv.Count(protocol.KindCancelRendering); n != 1 {
		t.Errorf("Count(CANCEL_RENDERING) = %d, want 1", n)
	}
}
