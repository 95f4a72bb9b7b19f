package export

import (
	"sort"

	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

// ExportObject sends a mesh object. Its mesh data is sent first unless the
// cache already holds it, then the object is classified:
//
//   - plain mesh: server-specific behavior is off on the object, its mesh
//     data is not plugin enabled, or the object is a slicing plane of a
//     volume shown as slices. Sent as MESH with its first material.
//   - geometry plugin: GEOMETRY with an optional material link.
//   - scene plugin: SCENE.
//   - volume plugin: VOLUME with a transfer function, SLICES with one
//     slice per visible mesh child, or ISOSURFACES whose values travel in
//     the custom properties.
func (x *Exporter) ExportObject(o *scene.MeshObject) error {
	if o.Mesh == nil {
		return unsupported("object", o.Name, "no mesh data")
	}

	var err error
	if o.Mesh.PluginEnabled() {
		err = x.ExportPluginInstance(o.Mesh)
	} else {
		err = x.ExportMesh(o.Mesh, scene.Identity())
	}
	if err = x.recover(err); err != nil {
		return err
	}

	props := x.properties(o.Name, o.Properties)
	update := &protocol.UpdateObject{
		Type:         protocol.ObjectMesh,
		Name:         o.Name,
		Object2World: o.Transform.Slice(),
		DataLink:     o.Mesh.Name,
	}

	var body protocol.Body
	switch {
	case !o.Override || !o.Mesh.PluginEnabled() || x.slicingChild(o):
		if err := x.linkMaterial(o, update); err != nil {
			return err
		}

	case o.Mesh.Plugin.Type == scene.PluginGeometry:
		update.Type = protocol.ObjectGeometry
		if err := x.linkMaterial(o, update); err != nil {
			return err
		}

	case o.Mesh.Plugin.Type == scene.PluginScene:
		update.Type = protocol.ObjectScene

	case o.Mesh.Plugin.Type == scene.PluginVolume:
		switch o.VolumeUsage {
		case scene.UsageVolume:
			update.Type = protocol.ObjectVolume
			body = x.volume(o, &props)
		case scene.UsageSlices:
			update.Type = protocol.ObjectSlices
			slices, err := x.slices(o)
			if err != nil {
				return err
			}
			body = slices
		case scene.UsageIsosurfaces:
			update.Type = protocol.ObjectIsosurfaces
		default:
			return unsupported("object", o.Name, "unknown volume usage %v", o.VolumeUsage)
		}

	default:
		return unsupported("object", o.Name, "unknown plugin type %v", o.Mesh.Plugin.Type)
	}

	custom, err := encodeJSON(props.merged())
	if err != nil {
		return unsupported("object", o.Name, "custom properties: %v", err)
	}
	update.CustomProperties = custom

	bodies := []protocol.Body{update}
	if body != nil {
		bodies = append(bodies, body)
	}
	if err := x.send(protocol.Header(protocol.KindUpdateObject), bodies...); err != nil {
		return err
	}
	x.report.Objects++
	return nil
}

// slicingChild reports whether o is parented to an object that shows a
// volume as slices.
func (x *Exporter) slicingChild(o *scene.MeshObject) bool {
	if o.Parent == "" || x.provider == nil {
		return false
	}
	parent, ok := x.provider.Object(o.Parent).(*scene.MeshObject)
	return ok && parent.SlicesVolume()
}

// linkMaterial exports the object's first material and links it. A
// material that fails to resolve is still linked by name.
func (x *Exporter) linkMaterial(o *scene.MeshObject, update *protocol.UpdateObject) error {
	m := o.Material()
	if m == nil {
		return nil
	}
	update.MaterialLink = m.Name
	return x.recover(x.ExportMaterial(m, false))
}

// volume builds the Volume body. The transfer function comes from the
// color ramp in the object's material; without one the arrays stay empty
// and the server uses its default.
func (x *Exporter) volume(o *scene.MeshObject, props *properties) *protocol.Volume {
	v := &protocol.Volume{}
	if m := o.Material(); m != nil {
		if tex := m.Find(scene.NodeVolumeTexture); tex != nil {
			if r := tex.Inputs[scene.SocketSamplingRate]; len(r) > 0 {
				v.SamplingRate = r[0]
			}
		}
		if tf := m.TransferFunction(); tf != nil {
			stops := append([]scene.ColorStop(nil), tf.Stops...)
			sort.SliceStable(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position })
			for _, s := range stops {
				v.TFPositions = append(v.TFPositions, s.Position)
				v.TFColors = append(v.TFColors, protocol.Color{R: s.Color[0], G: s.Color[1], B: s.Color[2], A: s.Color[3]})
			}
		} else {
			x.logger.Debug("no transfer function", "object", o.Name, "material", m.Name)
		}
	}
	props.takeFloat("sampling_rate", &v.SamplingRate)
	props.takeFloat("density_scale", &v.DensityScale)
	props.takeFloat("anisotropy", &v.Anisotropy)
	return v
}

// SliceMeshName is the mesh-data name a slicing plane is sent under. The
// plane's geometry is baked into the volume's object space, so it cannot
// share the child's own mesh data.
func SliceMeshName(parent, child string) string {
	return parent + "/" + child
}

// slices exports every visible mesh child of o as a raw mesh placed by the
// child's parent-relative transform, and returns the Slices body.
func (x *Exporter) slices(o *scene.MeshObject) (*protocol.Slices, error) {
	body := &protocol.Slices{}
	if x.provider == nil {
		return body, nil
	}
	for _, child := range x.provider.Children(o.Name) {
		c, ok := child.(*scene.MeshObject)
		if !ok {
			x.diagnose(unsupported("slice", child.ObjectName(), "child of %q is not a mesh", o.Name))
			continue
		}
		if c.Hidden {
			continue
		}
		if c.Mesh == nil || c.Mesh.PluginEnabled() {
			x.diagnose(unsupported("slice", c.Name, "slice needs raw mesh data"))
			continue
		}

		name := SliceMeshName(o.Name, c.Name)
		if err := x.exportMeshAs(name, c.Mesh, c.Local); err != nil {
			return nil, err
		}
		body.Slices = append(body.Slices, protocol.Slice{
			Name:         c.Name,
			MeshLink:     name,
			Object2World: o.Transform.Slice(),
		})
	}
	return body, nil
}
