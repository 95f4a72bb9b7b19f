package protocol

// RenderSettings follows UPDATE_RENDER_SETTINGS.
type RenderSettings struct {
	Renderer           string
	BackgroundColor    []float32 // RGBA
	Samples            uint32
	MaxDepth           int32
	MinContribution    float32
	VarianceThreshold  float32
	AOSamples          int32
	AORadius           float32
	AOIntensity        float32
	RouletteDepth      int32
	MaxContribution    float32
	GeometryLights     bool
	VolumeSamplingRate float32
}

func (s *RenderSettings) EncodeTo(e *Encoder) {
	e.String(1, s.Renderer)
	e.Float32s(2, s.BackgroundColor)
	e.Uint32(3, s.Samples)
	e.Int32(4, s.MaxDepth)
	e.Float32(5, s.MinContribution)
	e.Float32(6, s.VarianceThreshold)
	e.Int32(7, s.AOSamples)
	e.Float32(8, s.AORadius)
	e.Float32(9, s.AOIntensity)
	e.Int32(10, s.RouletteDepth)
	e.Float32(11, s.MaxContribution)
	e.Bool(12, s.GeometryLights)
	e.Float32(13, s.VolumeSamplingRate)
}

func (s *RenderSettings) DecodeFrom(d *Decoder) error {
	*s = RenderSettings{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			s.Renderer = f.String()
		case 2:
			return f.Float32sInto(&s.BackgroundColor)
		case 3:
			s.Samples = f.Uint32()
		case 4:
			s.MaxDepth = f.Int32()
		case 5:
			return f.Float32Into(&s.MinContribution)
		case 6:
			return f.Float32Into(&s.VarianceThreshold)
		case 7:
			s.AOSamples = f.Int32()
		case 8:
			return f.Float32Into(&s.AORadius)
		case 9:
			return f.Float32Into(&s.AOIntensity)
		case 10:
			s.RouletteDepth = f.Int32()
		case 11:
			return f.Float32Into(&s.MaxContribution)
		case 12:
			s.GeometryLights = f.Bool()
		case 13:
			return f.Float32Into(&s.VolumeSamplingRate)
		}
		return nil
	})
}

// WorldSettings follows UPDATE_WORLD_SETTINGS.
type WorldSettings struct {
	AmbientColor     []float32 // RGB
	AmbientIntensity float32
	BackgroundColor  []float32 // RGBA
}

func (s *WorldSettings) EncodeTo(e *Encoder) {
	e.Float32s(1, s.AmbientColor)
	e.Float32(2, s.AmbientIntensity)
	e.Float32s(3, s.BackgroundColor)
}

func (s *WorldSettings) DecodeFrom(d *Decoder) error {
	*s = WorldSettings{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			return f.Float32sInto(&s.AmbientColor)
		case 2:
			return f.Float32Into(&s.AmbientIntensity)
		case 3:
			return f.Float32sInto(&s.BackgroundColor)
		}
		return nil
	})
}

// CameraType selects the server-side camera model.
type CameraType uint32

const (
	CameraPerspective  CameraType = 0
	CameraOrthographic CameraType = 1
	CameraPanoramic    CameraType = 2
)

// CameraSettings follows UPDATE_CAMERA.
type CameraSettings struct {
	ObjectName       string
	CameraName       string
	Type             CameraType
	Aspect           float32
	ClipStart        float32
	FovY             float32 // degrees, perspective only
	Height           float32 // orthographic only
	Position         []float32
	ViewDir          []float32
	UpDir            []float32
	DofFocusDistance float32
	DofAperture      float32
	Border           []float32 // min x, min y, max x, max y
}

func (s *CameraSettings) EncodeTo(e *Encoder) {
	e.String(1, s.ObjectName)
	e.String(2, s.CameraName)
	e.Uint32(3, uint32(s.Type))
	e.Float32(4, s.Aspect)
	e.Float32(5, s.ClipStart)
	e.Float32(6, s.FovY)
	e.Float32(7, s.Height)
	e.Float32s(8, s.Position)
	e.Float32s(9, s.ViewDir)
	e.Float32s(10, s.UpDir)
	e.Float32(11, s.DofFocusDistance)
	e.Float32(12, s.DofAperture)
	e.Float32s(13, s.Border)
}

func (s *CameraSettings) DecodeFrom(d *Decoder) error {
	*s = CameraSettings{}
	return d.Fields(func(f Field) error {
		switch f.Num {
		case 1:
			s.ObjectName = f.String()
		case 2:
			s.CameraName = f.String()
		case 3:
			s.Type = CameraType(f.Uint32())
		case 4:
			return f.Float32Into(&s.Aspect)
		case 5:
			return f.Float32Into(&s.ClipStart)
		case 6:
			return f.Float32Into(&s.FovY)
		case 7:
			return f.Float32Into(&s.Height)
		case 8:
			return f.Float32sInto(&s.Position)
		case 9:
			return f.Float32sInto(&s.ViewDir)
		case 10:
			return f.Float32sInto(&s.UpDir)
		case 11:
			return f.Float32Into(&s.DofFocusDistance)
		case 12:
			return f.Float32Into(&s.DofAperture)
		case 13:
			return f.Float32sInto(&s.Border)
		}
		return nil
	})
}
