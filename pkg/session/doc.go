// Package session drives one connect, export, render and close cycle
// against a render server.
//
// A Session owns its connection and its entity cache. It moves through the
// states
//
//	Disconnected -> Connected -> Exporting -> Rendering -> Canceling -> Done -> Closed
//
// where Canceling is skipped when the render finishes on its own. Close
// is valid in every state and always says BYE when a connection exists.
//
// Progress, statistics and frame images are reported through a
// ProgressSink, which is also asked once per poll iteration whether the
// render should be canceled. A cancellation request is sent to the server
// at most once per session.
package session
