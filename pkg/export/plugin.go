package export

import (
	"github.com/RaphaelK12/blospray/pkg/cache"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

var pluginTypes = map[scene.PluginType]protocol.PluginType{
	scene.PluginGeometry: protocol.PluginGeometry,
	scene.PluginVolume:   protocol.PluginVolume,
	scene.PluginScene:    protocol.PluginScene,
}

// ExportPluginInstance asks the server to generate a plugin-enabled mesh
// and waits for the result. Underscore properties of the mesh become its
// custom properties; all other properties are added to the plugin
// parameters. The instance is cached like any mesh-data block, also when
// generation fails, so the server is asked at most once per session.
func (x *Exporter) ExportPluginInstance(m *scene.Mesh) error {
	if x.cache.AlreadySent(cache.MeshData, m.Name) {
		x.report.MeshesReused++
		return nil
	}
	pt, ok := pluginTypes[m.Plugin.Type]
	if !ok {
		return unsupported("plugin", m.Name, "unknown plugin type %v", m.Plugin.Type)
	}

	params, errs := x.subst.expandAll(m.Name, m.Plugin.Parameters)
	for _, err := range errs {
		x.diagnose(err)
	}
	props := x.properties(m.Name, m.Properties)
	for k, v := range props.params {
		params[k] = v
	}

	paramJSON, err := encodeJSON(params)
	if err != nil {
		return unsupported("plugin", m.Name, "plugin parameters: %v", err)
	}
	customJSON, err := encodeJSON(props.declared)
	if err != nil {
		return unsupported("plugin", m.Name, "custom properties: %v", err)
	}

	update := &protocol.UpdatePluginInstance{
		Type:             pt,
		Name:             m.Name,
		PluginName:       m.Plugin.Name,
		PluginParameters: paramJSON,
		CustomProperties: customJSON,
	}
	if err := x.send(protocol.Header(protocol.KindUpdatePluginInstance), update); err != nil {
		return err
	}

	var result protocol.GenerateFunctionResult
	if err := x.t.ReadMessage(&result); err != nil {
		return err
	}
	x.cache.MarkSent(cache.MeshData, m.Name)
	x.report.PluginInstances++

	if !result.Success {
		return unsupported("plugin", m.Name, "generation failed: %s", result.Message)
	}
	x.logger.Debug("plugin instance generated", "name", m.Name, "plugin", m.Plugin.Name, "type", m.Plugin.Type.String())
	return nil
}
