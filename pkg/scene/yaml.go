package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a YAML scene file.
type document struct {
	Frame     int `yaml:"frame"`
	Settings  `yaml:",inline"`
	Materials []*Material `yaml:"materials"`
	Meshes    []*Mesh     `yaml:"meshes"`
	Objects   []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"` // mesh, light or camera
	Light       *Light      `yaml:"light,omitempty"`
	Mesh        string      `yaml:"mesh,omitempty"`
	Parent      string      `yaml:"parent,omitempty"`
	Hidden      bool        `yaml:"hidden,omitempty"`
	Override    bool        `yaml:"ospray,omitempty"`
	VolumeUsage VolumeUsage `yaml:"volume_usage,omitempty"`
	Materials   []string    `yaml:"materials,omitempty"`
	Transform   Matrix      `yaml:"transform"`
	Local       Matrix      `yaml:"local_transform"`
	Properties  Properties  `yaml:"properties,omitempty"`
}

// ErrInvalidScene is wrapped by every error Parse returns.
var ErrInvalidScene = errors.New("scene: invalid")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidScene}, args...)...)
}

// LoadFile reads a YAML scene file.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML scene and resolves every name reference in it.
func Parse(data []byte) (*Static, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	materials := make(map[string]*Material, len(doc.Materials))
	for _, m := range doc.Materials {
		if _, dup := materials[m.Name]; dup {
			return nil, invalid("duplicate material %q", m.Name)
		}
		m.Resolve()
		materials[m.Name] = m
	}

	meshes := make(map[string]*Mesh, len(doc.Meshes))
	for _, m := range doc.Meshes {
		if _, dup := meshes[m.Name]; dup {
			return nil, invalid("duplicate mesh %q", m.Name)
		}
		if err := validateMesh(m); err != nil {
			return nil, err
		}
		meshes[m.Name] = m
	}

	names := make(map[string]bool, len(doc.Objects))
	objects := make([]Object, 0, len(doc.Objects))
	for i := range doc.Objects {
		od := &doc.Objects[i]
		if od.Name == "" {
			return nil, invalid("object %d has no name", i)
		}
		if names[od.Name] {
			return nil, invalid("duplicate object %q", od.Name)
		}
		names[od.Name] = true

		obj, err := od.object(meshes, materials)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	for _, od := range doc.Objects {
		if od.Parent != "" && !names[od.Parent] {
			return nil, invalid("object %q has unknown parent %q", od.Name, od.Parent)
		}
	}

	return NewStatic(doc.Settings, doc.Frame, objects...), nil
}

func (od *objectDoc) object(meshes map[string]*Mesh, materials map[string]*Material) (Object, error) {
	switch od.Type {
	case "light":
		if od.Light == nil {
			return nil, invalid("light %q has no light block", od.Name)
		}
		l := *od.Light
		l.Name = od.Name
		if l.LightName == "" {
			l.LightName = od.Name
		}
		if !od.Transform.IsZero() {
			l.Transform = od.Transform
		}
		if l.Properties == nil {
			l.Properties = od.Properties
		}
		return &l, nil

	case "mesh":
		mesh, ok := meshes[od.Mesh]
		if !ok {
			return nil, invalid("object %q references unknown mesh %q", od.Name, od.Mesh)
		}
		o := &MeshObject{
			Name:        od.Name,
			Mesh:        mesh,
			Transform:   od.Transform,
			Local:       od.Local,
			Parent:      od.Parent,
			Hidden:      od.Hidden,
			Override:    od.Override,
			VolumeUsage: od.VolumeUsage,
			Properties:  od.Properties,
		}
		for _, name := range od.Materials {
			if name == "" {
				o.Materials = append(o.Materials, nil)
				continue
			}
			m, ok := materials[name]
			if !ok {
				return nil, invalid("object %q references unknown material %q", od.Name, name)
			}
			o.Materials = append(o.Materials, m)
		}
		return o, nil

	case "camera":
		return &CameraObject{Name: od.Name}, nil

	default:
		return nil, invalid("object %q has unknown type %q", od.Name, od.Type)
	}
}

func validateMesh(m *Mesh) error {
	nv := uint32(len(m.Vertices))
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return invalid("mesh %q has %d normals for %d vertices", m.Name, len(m.Normals), nv)
	}
	for i, f := range m.Faces {
		for _, v := range f.Vertices {
			if v >= nv {
				return invalid("mesh %q face %d references vertex %d of %d", m.Name, i, v, nv)
			}
		}
		if len(f.Colors) != 0 && len(f.Colors) != len(f.Vertices) {
			return invalid("mesh %q face %d has %d colors for %d corners", m.Name, i, len(f.Colors), len(f.Vertices))
		}
	}
	return nil
}
