package protocol

import "fmt"

// Kind identifies the control operation carried by a ClientMessage.
type Kind uint32

const (
	KindHello                     Kind = 0
	KindBye                       Kind = 1
	KindQuit                      Kind = 2
	KindUpdateRendererType        Kind = 3
	KindClearScene                Kind = 4
	KindUpdateRenderSettings      Kind = 5
	KindUpdateWorldSettings       Kind = 6
	KindUpdateFramebufferSettings Kind = 7
	KindUpdateCamera              Kind = 8
	KindUpdateObject              Kind = 9
	KindUpdateMaterial            Kind = 10
	KindUpdatePluginInstance      Kind = 11
	KindUpdateMesh                Kind = 12 // UPDATE_BLENDER_MESH
	KindStartRendering            Kind = 13
	KindCancelRendering           Kind = 14
	KindRequestRenderOutput       Kind = 15
	KindGetServerState            Kind = 16
)

var kindNames = [...]string{
	KindHello:                     "HELLO",
	KindBye:                       "BYE",
	KindQuit:                      "QUIT",
	KindUpdateRendererType:        "UPDATE_RENDERER_TYPE",
	KindClearScene:                "CLEAR_SCENE",
	KindUpdateRenderSettings:      "UPDATE_RENDER_SETTINGS",
	KindUpdateWorldSettings:       "UPDATE_WORLD_SETTINGS",
	KindUpdateFramebufferSettings: "UPDATE_FRAMEBUFFER_SETTINGS",
	KindUpdateCamera:              "UPDATE_CAMERA",
	KindUpdateObject:              "UPDATE_OBJECT",
	KindUpdateMaterial:            "UPDATE_MATERIAL",
	KindUpdatePluginInstance:      "UPDATE_PLUGIN_INSTANCE",
	KindUpdateMesh:                "UPDATE_BLENDER_MESH",
	KindStartRendering:            "START_RENDERING",
	KindCancelRendering:           "CANCEL_RENDERING",
	KindRequestRenderOutput:       "REQUEST_RENDER_OUTPUT",
	KindGetServerState:            "GET_SERVER_STATE",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Clear-scene policies carried in ClientMessage.StringValue.
const (
	ClearKeepPluginInstances = "keep_plugin_instances"
	ClearAll                 = "all"
)

// Framebuffer and render modes.
const (
	ModeFinal       = "final"
	ModeInteractive = "interactive"
)

// PixelFormat is the framebuffer format requested from the server.
type PixelFormat uint32

const (
	FormatRGBA8  PixelFormat = 0
	FormatSRGBA  PixelFormat = 1
	FormatRGBA32 PixelFormat = 2
)

// ClientMessage is the generic control header. Every client operation starts
// with one; kind-specific bodies follow as separate framed messages.
type ClientMessage struct {
	Type        Kind
	StringValue string
	UintValue   uint32
	UintValue2  uint32
	UintValue3  uint32
}

func (m *ClientMessage) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(m.Type))
	e.String(2, m.StringValue)
	e.Uint32(3, m.UintValue)
	e.Uint32(4, m.UintValue2)
	e.Uint32(5, m.UintValue3)
}

func (m *ClientMessage) DecodeFrom(d *Decoder) error {
	*m = ClientMessage{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = Kind(f.Uint32())
		case 2:
			m.StringValue = f.String()
		case 3:
			m.UintValue = f.Uint32()
		case 4:
			m.UintValue2 = f.Uint32()
		case 5:
			m.UintValue3 = f.Uint32()
		}
		return nil
	})
}

// Header returns a header-only message of the given kind.
func Header(k Kind) *ClientMessage {
	return &ClientMessage{Type: k}
}

// ClearScene returns the CLEAR_SCENE directive. keepPlugins selects the
// "keep plugin instances" policy.
func ClearScene(keepPlugins bool) *ClientMessage {
	m := &ClientMessage{Type: KindClearScene, StringValue: ClearAll}
	if keepPlugins {
		m.StringValue = ClearKeepPluginInstances
	}
	return m
}

// FramebufferSettings returns the UPDATE_FRAMEBUFFER_SETTINGS header.
func FramebufferSettings(mode string, format PixelFormat, width, height uint32) *ClientMessage {
	return &ClientMessage{
		Type:        KindUpdateFramebufferSettings,
		StringValue: mode,
		UintValue:   uint32(format),
		UintValue2:  width,
		UintValue3:  height,
	}
}

// StartRendering returns the START_RENDERING header.
func StartRendering(mode string, samples, updateRate uint32) *ClientMessage {
	return &ClientMessage{
		Type:        KindStartRendering,
		StringValue: mode,
		UintValue:   samples,
		UintValue2:  updateRate,
	}
}

// UpdateMesh returns the UPDATE_BLENDER_MESH header for the named mesh.
func UpdateMesh(name string) *ClientMessage {
	return &ClientMessage{Type: KindUpdateMesh, StringValue: name}
}
