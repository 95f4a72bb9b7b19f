package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
	"github.com/RaphaelK12/blospray/pkg/session"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "blospray.json"

	// DefaultPort is the render server's default port.
	DefaultPort = 5909

	// DefaultHost is the default render server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default directory for rendered images.
	DefaultOutput = "renders"

	// DefaultHistory is the default render history database.
	DefaultHistory = ".blospray/history.db"
)

// Config represents the complete blospray.json configuration.
type Config struct {
	// Server contains the render server connection settings.
	Server ServerConfig `json:"server,omitempty"`

	// Render contains overrides applied on top of the scene's settings.
	Render RenderConfig `json:"render,omitempty"`

	// Output contains where rendered images go.
	Output OutputConfig `json:"output,omitempty"`

	// Preview contains the live preview server settings.
	Preview PreviewConfig `json:"preview,omitempty"`

	// History contains the render history settings.
	History HistoryConfig `json:"history,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains render server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// ProtocolVersion overrides the version sent in HELLO.
	ProtocolVersion uint32 `json:"protocolVersion,omitempty"`

	// DialTimeout bounds connecting and the handshake (e.g., "5s").
	DialTimeout string `json:"dialTimeout,omitempty"`

	// IdleTimeout abandons a render when the server goes quiet for this
	// long. Empty waits forever.
	IdleTimeout string `json:"idleTimeout,omitempty"`
}

// RenderConfig overrides scene render settings. Zero values keep what the
// scene file says.
type RenderConfig struct {
	// Renderer is "scivis" or "pathtracer".
	Renderer string `json:"renderer,omitempty"`

	Samples    uint32 `json:"samples,omitempty"`
	UpdateRate uint32 `json:"updateRate,omitempty"`

	// Format is the framebuffer format: "rgba8", "srgba" or "rgba32".
	Format string `json:"format,omitempty"`

	// Clear is the clear-scene policy: "keep_plugin_instances" or "all".
	Clear string `json:"clear,omitempty"`

	// Substitution is "keep" or "fail" for undefined ${NAME} variables.
	Substitution string `json:"substitution,omitempty"`

	// PollInterval is how often the render loop checks for cancellation.
	PollInterval string `json:"pollInterval,omitempty"`
}

// OutputConfig contains image output settings.
type OutputConfig struct {
	// Dir receives each framebuffer update. Empty disables file output.
	Dir string `json:"dir,omitempty"`

	// S3 uploads framebuffer updates to a bucket when Bucket is set.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains object storage settings.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	// PathStyle forces path-style addressing, as most S3-compatible
	// servers require.
	PathStyle bool `json:"pathStyle,omitempty"`
}

// PreviewConfig contains live preview settings.
type PreviewConfig struct {
	// Addr is the listen address. Empty disables the preview server.
	Addr string `json:"addr,omitempty"`
}

// HistoryConfig contains render history settings.
type HistoryConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path,omitempty"`

	// Disabled turns off history recording.
	Disabled bool `json:"disabled,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			DialTimeout: "5s",
		},
		Render: RenderConfig{
			Format:       "rgba32",
			Substitution: "keep",
			PollInterval: "10ms",
		},
		Output: OutputConfig{
			Dir: DefaultOutput,
		},
		History: HistoryConfig{
			Path: DefaultHistory,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for blospray.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("B041").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("B040").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("B040").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadOrDefault loads blospray.json from dir, falling back to defaults
// when the file does not exist. Other errors are returned.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("B040").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("B040").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.DialTimeout == "" {
		c.Server.DialTimeout = "5s"
	}

	if c.Render.Format == "" {
		c.Render.Format = "rgba32"
	}
	if c.Render.Substitution == "" {
		c.Render.Substitution = "keep"
	}
	if c.Render.PollInterval == "" {
		c.Render.PollInterval = "10ms"
	}

	if c.History.Path == "" {
		c.History.Path = DefaultHistory
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("B040").
			WithDetail("server.port must be between 1 and 65535")
	}
	for name, v := range map[string]string{
		"server.dialTimeout":  c.Server.DialTimeout,
		"server.idleTimeout":  c.Server.IdleTimeout,
		"render.pollInterval": c.Render.PollInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			return errors.New("B040").
				WithDetail(name + ": " + err.Error()).
				WithSuggestion(`Use a Go duration such as "500ms" or "2m"`)
		}
	}
	if c.Render.Renderer != "" {
		var r scene.Renderer
		if err := r.UnmarshalText([]byte(c.Render.Renderer)); err != nil {
			return errors.New("B040").WithDetail("render.renderer: " + err.Error())
		}
	}
	if _, ok := pixelFormats[c.Render.Format]; !ok {
		return errors.New("B040").
			WithDetail("render.format must be rgba8, srgba or rgba32, got " + strconv.Quote(c.Render.Format))
	}
	switch c.Render.Clear {
	case "", protocol.ClearKeepPluginInstances, protocol.ClearAll:
	default:
		return errors.New("B040").
			WithDetail("render.clear must be keep_plugin_instances or all, got " + strconv.Quote(c.Render.Clear))
	}
	var p export.SubstitutionPolicy
	if err := p.UnmarshalText([]byte(c.Render.Substitution)); err != nil {
		return errors.New("B040").WithDetail("render.substitution: " + err.Error())
	}
	if c.Output.S3.Bucket == "" && (c.Output.S3.Prefix != "" || c.Output.S3.Endpoint != "") {
		return errors.New("B040").
			WithDetail("output.s3 sets a prefix or endpoint but no bucket")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("B040").
			WithDetail("log.format must be text or json, got " + strconv.Quote(c.Log.Format))
	}
	return nil
}

// ServerAddress returns the render server's host:port.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

var pixelFormats = map[string]protocol.PixelFormat{
	"rgba8":  protocol.FormatRGBA8,
	"srgba":  protocol.FormatSRGBA,
	"rgba32": protocol.FormatRGBA32,
}

// PixelFormat returns the configured framebuffer format.
func (c *Config) PixelFormat() protocol.PixelFormat {
	if f, ok := pixelFormats[c.Render.Format]; ok {
		return f
	}
	return protocol.FormatRGBA32
}

// Session returns the session configuration. Call Validate first;
// unparseable values fall back to the session defaults.
func (c *Config) Session() session.Config {
	var policy export.SubstitutionPolicy
	_ = policy.UnmarshalText([]byte(c.Render.Substitution))

	dial, _ := parseDuration(c.Server.DialTimeout)
	idle, _ := parseDuration(c.Server.IdleTimeout)
	poll, _ := parseDuration(c.Render.PollInterval)

	return session.Config{
		Addr:          c.ServerAddress(),
		DialTimeout:   dial,
		Version:       c.Server.ProtocolVersion,
		PollInterval:  poll,
		IdleTimeout:   idle,
		Substitution:  policy,
		ExportOptions: []export.Option{export.WithFramebufferFormat(c.PixelFormat())},
	}
}

// Override wraps p so its settings carry the render overrides.
func (c *Config) Override(p scene.Provider) scene.Provider {
	r := c.Render
	if r.Renderer == "" && r.Samples == 0 && r.UpdateRate == 0 && r.Clear == "" {
		return p
	}
	return &overridden{Provider: p, render: r}
}

type overridden struct {
	scene.Provider
	render RenderConfig
}

func (o *overridden) Settings() scene.Settings {
	s := o.Provider.Settings()
	if o.render.Renderer != "" {
		var r scene.Renderer
		if err := r.UnmarshalText([]byte(o.render.Renderer)); err == nil {
			s.Render.Renderer = r
		}
	}
	if o.render.Samples > 0 {
		s.Render.Samples = o.render.Samples
	}
	if o.render.UpdateRate > 0 {
		s.Render.UpdateRate = o.render.UpdateRate
	}
	switch o.render.Clear {
	case protocol.ClearKeepPluginInstances:
		s.KeepPluginInstances = true
	case protocol.ClearAll:
		s.KeepPluginInstances = false
	}
	return s
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
