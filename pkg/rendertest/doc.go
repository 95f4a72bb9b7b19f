// Package rendertest provides an in-process fake render server for
// testing clients of the render protocol.
//
// The server decodes everything a client sends, keeps a log of it, answers
// the handshake and plugin generation requests, and plays a scripted
// render when it receives START_RENDERING.
//
// # Quick Start
//
//	func TestRender(t *testing.T) {
//	    srv := rendertest.NewServer()
//	    s := session.New(session.Config{Addr: "fake"}, session.WithDialer(srv.Dial))
//	    require.NoError(t, s.Connect(ctx))
//	    ...
//	    require.NoError(t, s.Close())
//	    require.NoError(t, srv.Wait())
//	    assert.Equal(t, 1, srv.Count(protocol.KindStartRendering))
//	}
//
// # Scripted Renders
//
// OnRender runs when START_RENDERING arrives and drives the result stream:
//
//	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
//	    if err := r.Frame(1, []byte("png")); err != nil {
//	        return err
//	    }
//	    if err := r.ExpectCancel(); err != nil {
//	        return err
//	    }
//	    return r.Canceled(1)
//	}))
//
// The default script reports DONE at the requested sample count.
//
// # Transports
//
// Dial serves one connection over net.Pipe and matches the session
// package's dialer signature. Listen serves loopback TCP connections for
// tests that need a real address.
package rendertest
