package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Output.Dir != DefaultOutput {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, DefaultOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if be, ok := err.(*errors.BlosprayError); !ok || be.Code != "B041" {
		t.Errorf("missing config error = %v, want B041", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "server": {
    "host": "render01",
    "port": 6000,
    "idleTimeout": "2m"
  },
  "render": {
    "renderer": "pathtracer",
    "samples": 64,
    "format": "srgba"
  },
  "output": {
    "s3": {"bucket": "frames", "prefix": "shot010/"}
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Host != "render01" {
		t.Errorf("Server.Host = %q, want render01", cfg.Server.Host)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Render.Samples != 64 {
		t.Errorf("Render.Samples = %d, want 64", cfg.Render.Samples)
	}
	if cfg.Output.S3.Bucket != "frames" {
		t.Errorf("Output.S3.Bucket = %q, want frames", cfg.Output.S3.Bucket)
	}
	// Untouched sections keep their defaults.
	if cfg.Output.Dir != DefaultOutput {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, DefaultOutput)
	}
	if cfg.Render.PollInterval != "10ms" {
		t.Errorf("Render.PollInterval = %q, want 10ms", cfg.Render.PollInterval)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if be, ok := err.(*errors.BlosprayError); !ok || be.Code != "B040" {
		t.Errorf("invalid config error = %v, want B040", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Server.Host = "render02"
	cfg.Render.Clear = protocol.ClearAll

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved config should end with a newline")
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Server.Host != "render02" {
		t.Errorf("Server.Host = %q, want render02", loaded.Server.Host)
	}
	if loaded.Render.Clear != protocol.ClearAll {
		t.Errorf("Render.Clear = %q, want %q", loaded.Render.Clear, protocol.ClearAll)
	}

	loaded.Server.Port = 7000
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, err := LoadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if again.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", again.Server.Port)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad idle timeout", func(c *Config) { c.Server.IdleTimeout = "soon" }, "server.idleTimeout"},
		{"bad poll interval", func(c *Config) { c.Render.PollInterval = "10" }, "render.pollInterval"},
		{"unknown renderer", func(c *Config) { c.Render.Renderer = "raytracer" }, "render.renderer"},
		{"pathtracer", func(c *Config) { c.Render.Renderer = "pathtracer" }, ""},
		{"unknown format", func(c *Config) { c.Render.Format = "rgb" }, "render.format"},
		{"unknown clear policy", func(c *Config) { c.Render.Clear = "none" }, "render.clear"},
		{"unknown substitution", func(c *Config) { c.Render.Substitution = "drop" }, "render.substitution"},
		{"s3 prefix without bucket", func(c *Config) { c.Output.S3.Prefix = "x/" }, "output.s3"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			be, ok := err.(*errors.BlosprayError)
			if !ok || be.Code != "B040" {
				t.Fatalf("Validate() = %v, want B040", err)
			}
			if !strings.Contains(be.Detail, tt.wantErr) {
				t.Errorf("Detail = %q, want it to mention %q", be.Detail, tt.wantErr)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := New()
	if got := cfg.ServerAddress(); got != "localhost:5909" {
		t.Errorf("ServerAddress() = %q, want localhost:5909", got)
	}
	cfg.Server.Host = "::1"
	if got := cfg.ServerAddress(); got != "[::1]:5909" {
		t.Errorf("ServerAddress() = %q, want [::1]:5909", got)
	}
}

func TestSession(t *testing.T) {
	cfg := New()
	cfg.Server.ProtocolVersion = 7
	cfg.Server.IdleTimeout = "2m"
	cfg.Render.Substitution = "fail"
	cfg.Render.Format = "rgba8"

	sc := cfg.Session()
	if sc.Addr != "localhost:5909" {
		t.Errorf("Addr = %q", sc.Addr)
	}
	if sc.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v, want 5s", sc.DialTimeout)
	}
	if sc.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", sc.IdleTimeout)
	}
	if sc.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval = %v, want 10ms", sc.PollInterval)
	}
	if sc.Version != 7 {
		t.Errorf("Version = %d, want 7", sc.Version)
	}
	if sc.Substitution != export.SubstituteFail {
		t.Errorf("Substitution = %v, want fail", sc.Substitution)
	}
	if len(sc.ExportOptions) != 1 {
		t.Errorf("ExportOptions = %d, want 1", len(sc.ExportOptions))
	}
	if cfg.PixelFormat() != protocol.FormatRGBA8 {
		t.Errorf("PixelFormat() = %v, want rgba8", cfg.PixelFormat())
	}
}

func TestOverride(t *testing.T) {
	base := scene.Settings{KeepPluginInstances: true}
	base.Render.Samples = 8
	base.Render.UpdateRate = 2
	p := scene.NewStatic(base, 1)

	cfg := New()
	if got := cfg.Override(p); got != scene.Provider(p) {
		t.Error("Override without overrides should return the provider unchanged")
	}

	cfg.Render.Renderer = "pathtracer"
	cfg.Render.Samples = 128
	cfg.Render.Clear = protocol.ClearAll

	s := cfg.Override(p).Settings()
	if s.Render.Renderer != scene.RendererPathTracer {
		t.Errorf("Renderer = %v, want pathtracer", s.Render.Renderer)
	}
	if s.Render.Samples != 128 {
		t.Errorf("Samples = %d, want 128", s.Render.Samples)
	}
	if s.Render.UpdateRate != 2 {
		t.Errorf("UpdateRate = %d, want 2 from the scene", s.Render.UpdateRate)
	}
	if s.KeepPluginInstances {
		t.Error("Clear=all should drop plugin instances")
	}
	if cfg.Override(p).Frame() != 1 {
		t.Error("Override should delegate Frame")
	}
}
