package export

import (
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

var lightTypes = map[scene.LightType]protocol.LightType{
	scene.LightPoint: protocol.LightPoint,
	scene.LightSun:   protocol.LightSun,
	scene.LightSpot:  protocol.LightSpot,
	scene.LightArea:  protocol.LightArea,
}

// ExportLight sends the light triplet: UPDATE_OBJECT header, UpdateObject
// of type LIGHT and LightSettings.
//
// Which geometric fields are set depends on the type: a sun has a
// direction and angular diameter but no position; point and spot lights
// have a position and radius; spots add direction and cone angles; area
// lights send their corner as position plus two edge vectors.
func (x *Exporter) ExportLight(l *scene.Light) error {
	lt, ok := lightTypes[l.Type]
	if !ok {
		return unsupported("light", l.Name, "unknown light type %v", l.Type)
	}

	props := x.properties(l.Name, l.Properties)

	ls := &protocol.LightSettings{
		Type:       lt,
		ObjectName: l.Name,
		LightName:  l.LightName,
		Color:      vec(l.Color),
		Intensity:  l.Intensity,
		Visible:    l.Visible,
	}

	switch l.Type {
	case scene.LightSun:
		ls.Direction = vec(l.Direction())
		ls.AngularDiameter = l.AngularDiameter
	case scene.LightPoint:
		ls.Position = vec(l.Position())
		ls.Radius = l.Radius
	case scene.LightSpot:
		ls.Position = vec(l.Position())
		ls.Radius = l.Radius
		ls.Direction = vec(l.Direction())
		ls.OpeningAngle = l.OpeningAngle()
		ls.PenumbraAngle = l.PenumbraAngle()
	case scene.LightArea:
		corner, e1, e2 := l.AreaCorner()
		ls.Position = vec(corner)
		ls.Edge1 = vec(e1)
		ls.Edge2 = vec(e2)
	}

	props.takeFloat("intensity", &ls.Intensity)
	props.takeBool("visible", &ls.Visible)
	if l.Type != scene.LightArea && l.Type != scene.LightSun {
		props.takeFloat("radius", &ls.Radius)
	}
	if l.Type == scene.LightSun {
		props.takeFloat("angular_diameter", &ls.AngularDiameter)
	}

	custom, err := encodeJSON(props.merged())
	if err != nil {
		return unsupported("light", l.Name, "custom properties: %v", err)
	}

	update := &protocol.UpdateObject{
		Type:             protocol.ObjectLight,
		Name:             l.Name,
		Object2World:     l.Transform.Slice(),
		DataLink:         l.LightName,
		CustomProperties: custom,
	}
	if err := x.send(protocol.Header(protocol.KindUpdateObject), update, ls); err != nil {
		return err
	}
	x.report.Lights++
	return nil
}

func vec(v scene.Vec3) []float32 {
	return []float32{v[0], v[1], v[2]}
}
