package protocol

import "fmt"

// ObjectType classifies an UPDATE_OBJECT and decides which body follows it.
type ObjectType uint32

const (
	ObjectMesh        ObjectType = 0
	ObjectGeometry    ObjectType = 1
	ObjectScene       ObjectType = 2
	ObjectVolume      ObjectType = 3
	ObjectIsosurfaces ObjectType = 4
	ObjectSlices      ObjectType = 5
	ObjectLight       ObjectType = 6
)

func (t ObjectType) String() string {
	switch t {
	case ObjectMesh:
		return "MESH"
	case ObjectGeometry:
		return "GEOMETRY"
	case ObjectScene:
		return "SCENE"
	case ObjectVolume:
		return "VOLUME"
	case ObjectIsosurfaces:
		return "ISOSURFACES"
	case ObjectSlices:
		return "SLICES"
	case ObjectLight:
		return "LIGHT"
	default:
		return fmt.Sprintf("ObjectType(%d)", uint32(t))
	}
}

// UpdateObject follows an UPDATE_OBJECT header.
type UpdateObject struct {
	Type             ObjectType
	Name             string
	Object2World     []float32 // 16 values, row-major
	DataLink         string
	CustomProperties string // JSON object, opaque to the protocol
	MaterialLink     string
}

func (u *UpdateObject) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(u.Type))
	e.String(2, u.Name)
	e.Float32s(3, u.Object2World)
	e.String(4, u.DataLink)
	e.String(5, u.CustomProperties)
	e.String(6, u.MaterialLink)
}

func (u *UpdateObject) DecodeFrom(d *Decoder) error {
	*u = UpdateObject{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			u.Type = ObjectType(f.Uint32())
		case 2:
			u.Name = f.String()
		case 3:
			return f.Float32sInto(&u.Object2World)
		case 4:
			u.DataLink = f.String()
		case 5:
			u.CustomProperties = f.String()
		case 6:
			u.MaterialLink = f.String()
		}
		return nil
	})
}

// LightType selects the light model.
type LightType uint32

const (
	LightPoint LightType = 0
	LightSun   LightType = 1
	LightSpot  LightType = 2
	LightArea  LightType = 3
)

func (t LightType) String() string {
	switch t {
	case LightPoint:
		return "POINT"
	case LightSun:
		return "SUN"
	case LightSpot:
		return "SPOT"
	case LightArea:
		return "AREA"
	default:
		return fmt.Sprintf("LightType(%d)", uint32(t))
	}
}

// LightSettings is the third message of a light triplet. Nil vectors are
// not transmitted.
type LightSettings struct {
	Type            LightType
	ObjectName      string
	LightName       string
	Color           []float32
	Intensity       float32
	Visible         bool
	Position        []float32
	Direction       []float32
	AngularDiameter float32
	OpeningAngle    float32
	PenumbraAngle   float32
	Radius          float32
	Edge1           []float32
	Edge2           []float32
}

func (l *LightSettings) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(l.Type))
	e.String(2, l.ObjectName)
	e.String(3, l.LightName)
	e.Float32s(4, l.Color)
	e.Float32(5, l.Intensity)
	e.Bool(6, l.Visible)
	e.Float32s(7, l.Position)
	e.Float32s(8, l.Direction)
	e.Float32(9, l.AngularDiameter)
	e.Float32(10, l.OpeningAngle)
	e.Float32(11, l.PenumbraAngle)
	e.Float32(12, l.Radius)
	e.Float32s(13, l.Edge1)
	e.Float32s(14, l.Edge2)
}

func (l *LightSettings) DecodeFrom(d *Decoder) error {
	*l = LightSettings{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			l.Type = LightType(f.Uint32())
		case 2:
			l.ObjectName = f.String()
		case 3:
			l.LightName = f.String()
		case 4:
			return f.Float32sInto(&l.Color)
		case 5:
			return f.Float32Into(&l.Intensity)
		case 6:
			l.Visible = f.Bool()
		case 7:
			return f.Float32sInto(&l.Position)
		case 8:
			return f.Float32sInto(&l.Direction)
		case 9:
			return f.Float32Into(&l.AngularDiameter)
		case 10:
			return f.Float32Into(&l.OpeningAngle)
		case 11:
			return f.Float32Into(&l.PenumbraAngle)
		case 12:
			return f.Float32Into(&l.Radius)
		case 13:
			return f.Float32sInto(&l.Edge1)
		case 14:
			return f.Float32sInto(&l.Edge2)
		}
		return nil
	})
}

// Color is one RGBA transfer-function entry. The server indexes colors
// and positions in parallel, so Volume carries one Color message per
// control point.
type Color struct {
	R, G, B, A float32
}

func (c *Color) EncodeTo(e *Encoder) {
	e.Float32(1, c.R)
	e.Float32(2, c.G)
	e.Float32(3, c.B)
	e.Float32(4, c.A)
}

func (c *Color) DecodeFrom(d *Decoder) error {
	*c = Color{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			return f.Float32Into(&c.R)
		case 2:
			return f.Float32Into(&c.G)
		case 3:
			return f.Float32Into(&c.B)
		case 4:
			return f.Float32Into(&c.A)
		}
		return nil
	})
}

// Volume follows a VOLUME UpdateObject. The transfer function is a list of
// control points; TFColors[i] belongs to TFPositions[i]. A server seeing
// different lengths ignores both and uses its default.
type Volume struct {
	SamplingRate float32
	TFPositions  []float32
	TFColors     []Color
	DensityScale float32
	Anisotropy   float32
}

func (v *Volume) EncodeTo(e *Encoder) {
	e.Float32(1, v.SamplingRate)
	e.Float32s(2, v.TFPositions)
	for i := range v.TFColors {
		e.Message(3, &v.TFColors[i])
	}
	e.Float32(4, v.DensityScale)
	e.Float32(5, v.Anisotropy)
}

func (v *Volume) DecodeFrom(d *Decoder) error {
	*v = Volume{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			return f.Float32Into(&v.SamplingRate)
		case 2:
			return f.Float32sInto(&v.TFPositions)
		case 3:
			if len(v.TFColors) >= MaxCollectionCount {
				return ErrCollectionTooLarge
			}
			var c Color
			if err := f.Message(&c); err != nil {
				return err
			}
			v.TFColors = append(v.TFColors, c)
		case 4:
			return f.Float32Into(&v.DensityScale)
		case 5:
			return f.Float32Into(&v.Anisotropy)
		}
		return nil
	})
}

// Slice is one cutting plane of a SLICES object.
type Slice struct {
	Name         string
	MeshLink     string
	Object2World []float32
}

func (s *Slice) EncodeTo(e *Encoder) {
	e.String(1, s.Name)
	e.String(2, s.MeshLink)
	e.Float32s(3, s.Object2World)
}

func (s *Slice) DecodeFrom(d *Decoder) error {
	*s = Slice{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			s.Name = f.String()
		case 2:
			s.MeshLink = f.String()
		case 3:
			return f.Float32sInto(&s.Object2World)
		}
		return nil
	})
}

// Slices follows a SLICES UpdateObject.
type Slices struct {
	Slices []Slice
}

func (s *Slices) EncodeTo(e *Encoder) {
	for i := range s.Slices {
		e.Message(1, &s.Slices[i])
	}
}

func (s *Slices) DecodeFrom(d *Decoder) error {
	*s = Slices{}
	return d.Fields(func(f Field) error {
		if f.Num != 1 {
			return nil
		}
		if len(s.Slices) >= MaxCollectionCount {
			return ErrCollectionTooLarge
		}
		var sl Slice
		if err := f.Message(&sl); err != nil {
			return err
		}
		s.Slices = append(s.Slices, sl)
		return nil
	})
}

// PluginType is the kind of data a server-side plugin generates.
type PluginType uint32

const (
	PluginGeometry PluginType = 0
	PluginVolume   PluginType = 1
	PluginScene    PluginType = 2
)

func (t PluginType) String() string {
	switch t {
	case PluginGeometry:
		return "geometry"
	case PluginVolume:
		return "volume"
	case PluginScene:
		return "scene"
	default:
		return fmt.Sprintf("PluginType(%d)", uint32(t))
	}
}

// UpdatePluginInstance follows an UPDATE_PLUGIN_INSTANCE header. The server
// answers with a GenerateFunctionResult.
type UpdatePluginInstance struct {
	Type             PluginType
	Name             string
	PluginName       string
	PluginParameters string // JSON object
	CustomProperties string // JSON object
}

func (u *UpdatePluginInstance) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(u.Type))
	e.String(2, u.Name)
	e.String(3, u.PluginName)
	e.String(4, u.PluginParameters)
	e.String(5, u.CustomProperties)
}

func (u *UpdatePluginInstance) DecodeFrom(d *Decoder) error {
	*u = UpdatePluginInstance{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			u.Type = PluginType(f.Uint32())
		case 2:
			u.Name = f.String()
		case 3:
			u.PluginName = f.String()
		case 4:
			u.PluginParameters = f.String()
		case 5:
			u.CustomProperties = f.String()
		}
		return nil
	})
}
