// Package protocol implements the client side of the render server wire
// protocol.
//
// # Wire Format
//
// Every message is a protobuf wire-format field stream prefixed with its
// length:
//
//	┌───────────────────────────────┬──────────────────────────┐
//	│ Body length                   │ Body (protobuf fields)   │
//	│ (4 bytes, little-endian)      │ (variable)               │
//	└───────────────────────────────┴──────────────────────────┘
//
// Fields are written with google.golang.org/protobuf/encoding/protowire.
// Zero scalars and empty repeated fields are omitted and unknown fields are
// skipped, so both sides may add fields without breaking the other.
//
// # Control Headers
//
// Each client operation starts with a ClientMessage whose Type is a Kind.
// Kind-specific bodies follow as separate framed messages:
//
//	HELLO                       → (server) HelloResult
//	UPDATE_RENDER_SETTINGS      → RenderSettings
//	UPDATE_WORLD_SETTINGS       → WorldSettings
//	UPDATE_CAMERA               → CameraSettings
//	UPDATE_OBJECT               → UpdateObject → LightSettings | Volume | Slices
//	UPDATE_MATERIAL             → MaterialUpdate → ShaderSettings
//	UPDATE_PLUGIN_INSTANCE      → UpdatePluginInstance → (server) GenerateFunctionResult
//	UPDATE_BLENDER_MESH         → MeshData → raw blocks
//
// UPDATE_RENDERER_TYPE, UPDATE_FRAMEBUFFER_SETTINGS, CLEAR_SCENE,
// START_RENDERING, CANCEL_RENDERING and BYE are header only.
//
// # Raw Blocks
//
// Mesh attributes and the rendered image are sent as raw bytes right after
// the message that declares their size. Raw blocks have no framing of their
// own. Float32Block and Uint32Block are the only values WriteRaw accepts,
// and their length is always count × components × ElementSize.
//
// # Rendering
//
// After START_RENDERING the server sends RenderResult messages. A FRAME with
// a non-zero FileSize is followed by that many bytes of image file; CANCELED
// and DONE end the render.
package protocol
