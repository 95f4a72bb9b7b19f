package export

import (
	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// ExportMaterial sends m unless it was already sent this session. force
// re-sends it, e.g. after its inputs changed.
//
// The graph's output node must be linked to a shader node of a known
// archetype. Otherwise nothing is sent and an *UnsupportedEntityError is
// returned; objects still reference the material by name and the server
// falls back to its default.
func (x *Exporter) ExportMaterial(m *scene.Material, force bool) error {
	if !force && x.cache.AlreadySent(cache.Material, m.Name) {
		x.report.MaterialsReused++
		return nil
	}
	if !m.UseNodes {
		return unsupported("material", m.Name, "not node based")
	}

	out, err := m.Output()
	if err != nil {
		return unsupported("material", m.Name, "%v", err)
	}
	shader := m.Linked(out, scene.SocketMaterial)
	if shader == nil {
		return unsupported("material", m.Name, "nothing connected to output %q", out.Name)
	}
	if shader.Kind != scene.NodeShader || !shader.Known {
		return unsupported("material", m.Name, "unrecognized shader %q on node %q", shader.Shader, shader.Name)
	}

	settings := shaderSettings(shader)
	update := &protocol.MaterialUpdate{Type: shader.Archetype, Name: m.Name}
	if err := x.send(protocol.Header(protocol.KindUpdateMaterial), update, settings); err != nil {
		return err
	}

	x.cache.MarkSent(cache.Material, m.Name)
	x.report.MaterialsSent++
	x.logger.Debug("material sent", "name", m.Name, "archetype", shader.Archetype.String(), "forced", force)
	return nil
}

// shaderSettings collects the archetype's parameters from the node's
// unlinked inputs. Inputs the node does not set are left to the server.
func shaderSettings(n *scene.Node) *protocol.ShaderSettings {
	s := &protocol.ShaderSettings{
		Archetype: n.Archetype,
		Values:    make(map[string][]float32),
	}
	for _, p := range n.Archetype.Params() {
		v, ok := n.Inputs[p.Socket]
		if !ok || len(v) == 0 {
			continue
		}
		want := 1
		if p.Kind == protocol.ParamColor {
			want = 3
		}
		if len(v) < want {
			continue
		}
		s.Values[p.Socket] = v[:want]
	}
	return s
}
