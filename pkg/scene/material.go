package scene

import (
	"fmt"

	"github.com/RaphaelK12/blospray/pkg/protocol"
)

// NodeKind classifies a shader graph node.
type NodeKind uint8

const (
	NodeOther NodeKind = iota
	NodeOutput
	NodeShader
	NodeColorRamp
	NodeVolumeTexture
)

var nodeKinds = []string{"other", "output", "shader", "color_ramp", "volume_texture"}

func (k NodeKind) String() string { return enumString(nodeKinds, int(k), "NodeKind") }

// UnmarshalText parses a node kind name.
func (k *NodeKind) UnmarshalText(b []byte) error {
	return parseEnum(nodeKinds, string(b), "node kind", (*uint8)(k))
}

// Output node input sockets.
const (
	SocketMaterial         = "Material"
	SocketTransferFunction = "Transfer Function"
	SocketSamplingRate     = "Sampling rate"
)

// ColorStop is one control point of a color ramp.
type ColorStop struct {
	Position float32 `yaml:"position"`
	Color    Vec4    `yaml:"color"`
}

// Node is one node of a material graph.
type Node struct {
	Name string   `yaml:"name"`
	Kind NodeKind `yaml:"kind"`

	// Shader is the declared shading model of a NodeShader, as found in
	// the host application. Archetype is valid only when Known is true.
	Shader    string             `yaml:"shader,omitempty"`
	Archetype protocol.Archetype `yaml:"-"`
	Known     bool               `yaml:"-"`

	// Inputs holds unlinked socket values; colors have three components.
	Inputs map[string][]float32 `yaml:"inputs,omitempty"`
	// Links maps an input socket to the name of the node feeding it.
	Links map[string]string `yaml:"links,omitempty"`
	Stops []ColorStop       `yaml:"stops,omitempty"`
}

// resolve parses the declared shader name once, when the node enters the
// scene.
func (n *Node) resolve() {
	if n.Kind != NodeShader {
		return
	}
	n.Archetype, n.Known = protocol.ParseArchetype(n.Shader)
}

// Material is a named material. Only node-based materials are exportable.
type Material struct {
	Name     string `yaml:"name"`
	UseNodes bool   `yaml:"use_nodes"`
	Nodes    []Node `yaml:"nodes,omitempty"`
}

// Resolve prepares the graph for lookups. Providers call it once.
func (m *Material) Resolve() {
	for i := range m.Nodes {
		m.Nodes[i].resolve()
	}
}

// Node returns the node called name.
func (m *Material) Node(name string) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].Name == name {
			return &m.Nodes[i]
		}
	}
	return nil
}

// Find returns the first node of the given kind.
func (m *Material) Find(k NodeKind) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].Kind == k {
			return &m.Nodes[i]
		}
	}
	return nil
}

// Output returns the graph's output node, or an error if there is not
// exactly one.
func (m *Material) Output() (*Node, error) {
	var out *Node
	for i := range m.Nodes {
		if m.Nodes[i].Kind != NodeOutput {
			continue
		}
		if out != nil {
			return nil, fmt.Errorf("material %q has more than one output node", m.Name)
		}
		out = &m.Nodes[i]
	}
	if out == nil {
		return nil, fmt.Errorf("material %q has no output node", m.Name)
	}
	return out, nil
}

// Linked returns the node connected to socket of n, or nil.
func (m *Material) Linked(n *Node, socket string) *Node {
	src, ok := n.Links[socket]
	if !ok {
		return nil
	}
	return m.Node(src)
}

// TransferFunction returns the color ramp used as a volume transfer
// function: the node linked to the output's transfer-function socket if it
// is a ramp, otherwise the first ramp in the graph.
func (m *Material) TransferFunction() *Node {
	if out, err := m.Output(); err == nil {
		if n := m.Linked(out, SocketTransferFunction); n != nil && n.Kind == NodeColorRamp {
			return n
		}
	}
	return m.Find(NodeColorRamp)
}
