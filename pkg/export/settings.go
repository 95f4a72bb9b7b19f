package export

import (
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// ExportSettings sends the renderer type, render settings, framebuffer
// size, world and camera. The renderer type goes first since material
// defaults depend on it.
func (x *Exporter) ExportSettings(s scene.Settings) error {
	r := s.Render
	renderer := r.Renderer.String()

	if err := x.send(&protocol.ClientMessage{Type: protocol.KindUpdateRendererType, StringValue: renderer}); err != nil {
		return err
	}

	rs := &protocol.RenderSettings{
		Renderer:           renderer,
		BackgroundColor:    s.World.Background[:],
		Samples:            r.Samples,
		MaxDepth:           r.MaxDepth,
		MinContribution:    r.MinContribution,
		VarianceThreshold:  r.VarianceThreshold,
		AOSamples:          r.AOSamples,
		AORadius:           r.AORadius,
		AOIntensity:        r.AOIntensity,
		RouletteDepth:      r.RouletteDepth,
		MaxContribution:    r.MaxContribution,
		GeometryLights:     r.GeometryLights,
		VolumeSamplingRate: r.VolumeSamplingRate,
	}
	if err := x.send(protocol.Header(protocol.KindUpdateRenderSettings), rs); err != nil {
		return err
	}

	fb := protocol.FramebufferSettings(protocol.ModeFinal, x.format, s.Framebuffer.Width, s.Framebuffer.Height)
	if err := x.send(fb); err != nil {
		return err
	}

	ws := &protocol.WorldSettings{
		AmbientColor:     s.World.AmbientColor[:],
		AmbientIntensity: s.World.AmbientIntensity,
		BackgroundColor:  s.World.Background[:],
	}
	if err := x.send(protocol.Header(protocol.KindUpdateWorldSettings), ws); err != nil {
		return err
	}

	return x.send(protocol.Header(protocol.KindUpdateCamera), cameraSettings(&s.Camera))
}

func cameraSettings(c *scene.Camera) *protocol.CameraSettings {
	cs := &protocol.CameraSettings{
		ObjectName:       c.Object,
		CameraName:       c.Name,
		Aspect:           c.Aspect,
		ClipStart:        c.ClipStart,
		Position:         c.Position[:],
		ViewDir:          c.ViewDir[:],
		UpDir:            c.UpDir[:],
		DofFocusDistance: c.DofFocusDistance,
		DofAperture:      c.DofAperture,
	}
	switch c.Type {
	case scene.CameraPerspective:
		cs.Type = protocol.CameraPerspective
		cs.FovY = c.FovY
	case scene.CameraOrthographic:
		cs.Type = protocol.CameraOrthographic
		cs.Height = c.Height
	case scene.CameraPanoramic:
		cs.Type = protocol.CameraPanoramic
	}
	if c.Border != nil {
		cs.Border = c.Border[:]
	}
	return cs
}
