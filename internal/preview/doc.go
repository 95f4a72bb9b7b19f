// Package preview serves a live view of a running render over HTTP.
//
// A Server is a session.ProgressSink: pass it (usually through sink.Multi)
// to Session.Render and every stats update and framebuffer image becomes
// visible to HTTP clients.
//
// Routes:
//
//	GET  /status   latest render statistics as JSON
//	GET  /image    latest framebuffer image
//	POST /cancel   ask the render to stop
//	GET  /ws       WebSocket stream of events
//	GET  /metrics  Prometheus metrics
//
// WebSocket events are JSON objects with a "type" of "phase", "stats" or
// "image". A client may send {"type":"cancel"} to cancel the render.
package preview
