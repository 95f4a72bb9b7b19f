package scene

// RenderSettings are the renderer parameters of a session.
type RenderSettings struct {
	Renderer           Renderer `yaml:"renderer"`
	Samples            uint32   `yaml:"samples"`
	MaxDepth           int32    `yaml:"max_depth"`
	MinContribution    float32  `yaml:"min_contribution"`
	VarianceThreshold  float32  `yaml:"variance_threshold"`
	AOSamples          int32    `yaml:"ao_samples"`
	AORadius           float32  `yaml:"ao_radius"`
	AOIntensity        float32  `yaml:"ao_intensity"`
	RouletteDepth      int32    `yaml:"roulette_depth"`
	MaxContribution    float32  `yaml:"max_contribution"`
	GeometryLights     bool     `yaml:"geometry_lights"`
	VolumeSamplingRate float32  `yaml:"volume_sampling_rate"`
	UpdateRate         uint32   `yaml:"update_rate"`
}

// World holds ambient lighting and background.
type World struct {
	AmbientColor     Vec3    `yaml:"ambient_color"`
	AmbientIntensity float32 `yaml:"ambient_intensity"`
	Background       Vec4    `yaml:"background"`
}

// Framebuffer is the output image size.
type Framebuffer struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// Camera is the active camera, already converted to server conventions.
type Camera struct {
	Object           string     `yaml:"object"`
	Name             string     `yaml:"name"`
	Type             CameraType `yaml:"type"`
	Aspect           float32    `yaml:"aspect"`
	ClipStart        float32    `yaml:"clip_start"`
	FovY             float32    `yaml:"fov_y"`
	Height           float32    `yaml:"height"`
	Position         Vec3       `yaml:"position"`
	ViewDir          Vec3       `yaml:"view_dir"`
	UpDir            Vec3       `yaml:"up_dir"`
	DofFocusDistance float32    `yaml:"dof_focus_distance"`
	DofAperture      float32    `yaml:"dof_aperture"`
	// Border is the render region (min x, min y, max x, max y) in
	// normalized coordinates; nil renders the full frame.
	Border *Vec4 `yaml:"border,omitempty"`
}

// Settings are the per-session scene-wide parameters.
type Settings struct {
	Render      RenderSettings `yaml:"render"`
	World       World          `yaml:"world"`
	Framebuffer Framebuffer    `yaml:"framebuffer"`
	Camera      Camera         `yaml:"camera"`
	// KeepPluginInstances selects the clear-scene policy: keep generated
	// plugin instances on the server, or clear everything.
	KeepPluginInstances bool `yaml:"keep_plugin_instances"`
}
