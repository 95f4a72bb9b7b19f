package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Archetype is a server-side shading model.
type Archetype uint32

const (
	ArchetypeAlloy         Archetype = 0
	ArchetypeCarPaint      Archetype = 1
	ArchetypeGlass         Archetype = 2
	ArchetypeLuminous      Archetype = 3
	ArchetypeMetal         Archetype = 4
	ArchetypeMetallicPaint Archetype = 5
	ArchetypeOBJMaterial   Archetype = 6
	ArchetypePrincipled    Archetype = 7
	ArchetypeThinGlass     Archetype = 8
)

var archetypeNames = [...]string{
	ArchetypeAlloy:         "Alloy",
	ArchetypeCarPaint:      "CarPaint",
	ArchetypeGlass:         "Glass",
	ArchetypeLuminous:      "Luminous",
	ArchetypeMetal:         "Metal",
	ArchetypeMetallicPaint: "MetallicPaint",
	ArchetypeOBJMaterial:   "OBJMaterial",
	ArchetypePrincipled:    "Principled",
	ArchetypeThinGlass:     "ThinGlass",
}

func (a Archetype) String() string {
	if int(a) < len(archetypeNames) {
		return archetypeNames[a]
	}
	return fmt.Sprintf("Archetype(%d)", uint32(a))
}

// ParseArchetype maps a shading model name to its archetype.
func ParseArchetype(name string) (Archetype, bool) {
	for i, n := range archetypeNames {
		if n == name {
			return Archetype(i), true
		}
	}
	return 0, false
}

// ParamKind is the value shape of a shader parameter.
type ParamKind uint8

const (
	ParamFloat ParamKind = iota
	ParamColor           // RGB
	ParamBool
	ParamUint
)

// Param describes one archetype-specific shader parameter, keyed by the
// input socket name it is read from.
type Param struct {
	Socket string
	Num    protowire.Number
	Kind   ParamKind
}

var archetypeParams = [...][]Param{
	ArchetypeAlloy: {
		{"Color", 1, ParamColor},
		{"Edge color", 2, ParamColor},
		{"Roughness", 3, ParamFloat},
	},
	ArchetypeCarPaint: {
		{"Base color", 1, ParamColor},
		{"Roughness", 2, ParamFloat},
		{"Normal", 3, ParamFloat},
		{"Flake density", 4, ParamFloat},
		{"Flake scale", 5, ParamFloat},
		{"Flake spread", 6, ParamFloat},
		{"Flake jitter", 7, ParamFloat},
		{"Flake roughness", 8, ParamFloat},
		{"Coat", 9, ParamFloat},
		{"Coat IOR", 10, ParamFloat},
		{"Coat color", 11, ParamColor},
		{"Coat thickness", 12, ParamFloat},
		{"Coat roughness", 13, ParamFloat},
		{"Coat normal", 14, ParamFloat},
		{"Flipflop color", 15, ParamColor},
		{"Flipflop falloff", 16, ParamFloat},
	},
	ArchetypeGlass: {
		{"Eta", 1, ParamFloat},
		{"Attenuation color", 2, ParamColor},
		{"Attenuation distance", 3, ParamFloat},
	},
	ArchetypeLuminous: {
		{"Color", 1, ParamColor},
		{"Intensity", 2, ParamFloat},
		{"Transparency", 3, ParamFloat},
	},
	ArchetypeMetal: {
		{"Metal", 1, ParamUint},
		{"Roughness", 2, ParamFloat},
	},
	ArchetypeMetallicPaint: {
		{"Base color", 1, ParamColor},
		{"Flake amount", 2, ParamFloat},
		{"Flake color", 3, ParamColor},
		{"Flake spread", 4, ParamFloat},
		{"Eta", 5, ParamFloat},
	},
	ArchetypeOBJMaterial: {
		{"Diffuse", 1, ParamColor},
		{"Specular", 2, ParamColor},
		{"Shininess", 3, ParamFloat},
		{"Opacity", 4, ParamFloat},
		{"Transparency color", 5, ParamColor},
	},
	ArchetypePrincipled: {
		{"Base color", 1, ParamColor},
		{"Edge color", 2, ParamColor},
		{"Metallic", 3, ParamFloat},
		{"Diffuse", 4, ParamFloat},
		{"Specular", 5, ParamFloat},
		{"IOR", 6, ParamFloat},
		{"Transmission", 7, ParamFloat},
		{"Transmission color", 8, ParamColor},
		{"Transmission depth", 9, ParamFloat},
		{"Roughness", 10, ParamFloat},
		{"Anisotropy", 11, ParamFloat},
		{"Rotation", 12, ParamFloat},
		{"Normal", 13, ParamFloat},
		{"Base normal", 14, ParamFloat},
		{"Thin", 15, ParamBool},
		{"Thickness", 16, ParamFloat},
		{"Backlight", 17, ParamFloat},
		{"Coat", 18, ParamFloat},
		{"Coat IOR", 19, ParamFloat},
		{"Coat color", 20, ParamColor},
		{"Coat thickness", 21, ParamFloat},
		{"Coat roughness", 22, ParamFloat},
		{"Coat normal", 23, ParamFloat},
		{"Sheen", 24, ParamFloat},
		{"Sheen color", 25, ParamColor},
		{"Sheen tint", 26, ParamFloat},
		{"Sheen roughness", 27, ParamFloat},
		{"Opacity", 28, ParamFloat},
	},
	ArchetypeThinGlass: {
		{"Eta", 1, ParamFloat},
		{"Attenuation color", 2, ParamColor},
		{"Attenuation distance", 3, ParamFloat},
		{"Thickness", 4, ParamFloat},
	},
}

// Params returns the parameter table of the archetype, in field order.
func (a Archetype) Params() []Param {
	if int(a) < len(archetypeParams) {
		return archetypeParams[a]
	}
	return nil
}

// MaterialUpdate follows an UPDATE_MATERIAL header and is itself followed
// by the archetype's ShaderSettings.
type MaterialUpdate struct {
	Type Archetype
	Name string
}

func (m *MaterialUpdate) EncodeTo(e *Encoder) {
	e.Uint32(1, uint32(m.Type))
	e.String(2, m.Name)
}

func (m *MaterialUpdate) DecodeFrom(d *Decoder) error {
	*m = MaterialUpdate{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = Archetype(f.Uint32())
		case 2:
			m.Name = f.String()
		}
		return nil
	})
}

// ShaderSettings is the archetype-specific parameter set of a material.
// Values are keyed by socket name; a color holds three components, every
// other kind holds one. Values missing from the map are left to the
// server's defaults. Archetype must be set before decoding.
type ShaderSettings struct {
	Archetype Archetype
	Values    map[string][]float32
}

func (s *ShaderSettings) EncodeTo(e *Encoder) {
	for _, p := range s.Archetype.Params() {
		v, ok := s.Values[p.Socket]
		if !ok || len(v) == 0 {
			continue
		}
		switch p.Kind {
		case ParamColor:
			e.Float32s(p.Num, v)
		case ParamFloat:
			e.Float32(p.Num, v[0])
		case ParamBool:
			e.Bool(p.Num, v[0] != 0)
		case ParamUint:
			e.Uint32(p.Num, uint32(v[0]))
		}
	}
}

func (s *ShaderSettings) DecodeFrom(d *Decoder) error {
	params := s.Archetype.Params()
	s.Values = make(map[string][]float32, len(params))
	return d.Fields(func(f Field) error {
		for _, p := range params {
			if p.Num != f.Num {
				continue
			}
			switch p.Kind {
			case ParamColor:
				var v []float32
				if err := f.Float32sInto(&v); err != nil {
					return err
				}
				s.Values[p.Socket] = v
			case ParamFloat:
				v, err := f.Float32()
				if err != nil {
					return err
				}
				s.Values[p.Socket] = []float32{v}
			case ParamBool:
				if f.Bool() {
					s.Values[p.Socket] = []float32{1}
				} else {
					s.Values[p.Socket] = []float32{0}
				}
			case ParamUint:
				s.Values[p.Socket] = []float32{float32(f.Uint32())}
			}
			return nil
		}
		return nil
	})
}
