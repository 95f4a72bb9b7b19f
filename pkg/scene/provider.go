package scene

// Provider exposes the current state of a scene. Object names are stable
// and unique within the provider.
type Provider interface {
	Settings() Settings
	// Objects returns every object once, parents before children.
	Objects() []Object
	// Children returns the objects parented to name.
	Children(name string) []Object
	// Object returns the object called name, or nil.
	Object(name string) Object
	// Frame is the current frame number, used for property substitution.
	Frame() int
}

// Static is a Provider over a fixed object list.
type Static struct {
	settings Settings
	objects  []Object
	children map[string][]Object
	frame    int
}

// NewStatic returns a provider over objects. Unset transforms become the
// identity.
func NewStatic(settings Settings, frame int, objects ...Object) *Static {
	s := &Static{
		settings: settings,
		objects:  objects,
		children: make(map[string][]Object),
		frame:    frame,
	}
	for _, o := range objects {
		switch o := o.(type) {
		case *MeshObject:
			o.Transform = o.Transform.orIdentity()
			o.Local = o.Local.orIdentity()
			if o.Parent != "" {
				s.children[o.Parent] = append(s.children[o.Parent], o)
			}
		case *Light:
			o.Transform = o.Transform.orIdentity()
		}
	}
	return s
}

func (s *Static) Settings() Settings            { return s.settings }
func (s *Static) Objects() []Object             { return s.objects }
func (s *Static) Children(name string) []Object { return s.children[name] }
func (s *Static) Frame() int                    { return s.frame }

// SetFrame changes the current frame.
func (s *Static) SetFrame(frame int) { s.frame = frame }

func (s *Static) Object(name string) Object {
	for _, o := range s.objects {
		if o.ObjectName() == name {
			return o
		}
	}
	return nil
}
