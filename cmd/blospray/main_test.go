package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaphaelK12/blospray/internal/config"
	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/internal/history"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/rendertest"
	"github.com/RaphaelK12/blospray/pkg/session"
)

const testScene = "../../pkg/scene/testdata/slices.yaml"

// writeConfig writes a blospray.json that keeps every output inside dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.New()
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, cfg.SaveTo(path))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRenderCommand(t *testing.T) {
	srv := rendertest.NewServer(rendertest.OnRender(func(r *rendertest.Render) error {
		if err := r.Frame(1, []byte("first")); err != nil {
			return err
		}
		if err := r.Frame(r.Samples, []byte("final")); err != nil {
			return err
		}
		return r.Done(r.Samples)
	}))
	addr := srv.Listen(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, stderr, err := execute(t, "render", testScene, "--config", cfgPath, "--server", addr, "--samples", "8")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Rendered slices.yaml: 8/8 samples, 2 updates")

	final, err := os.ReadFile(filepath.Join(dir, "out", "slices", "0007-00008.exr"))
	require.NoError(t, err)
	assert.Equal(t, "final", string(final))

	// The session ends with BYE after START_RENDERING.
	require.NoError(t, srv.Wait())
	kinds := srv.Kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, protocol.KindHello, kinds[0])
	assert.Equal(t, protocol.KindBye, kinds[len(kinds)-1])
	assert.Equal(t, 1, srv.Count(protocol.KindStartRendering))

	h, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer h.Close()
	renders, err := h.List(history.Filter{})
	require.NoError(t, err)
	require.Len(t, renders, 1)
	r := renders[0]
	assert.Equal(t, session.OutcomeDone, r.Outcome)
	assert.Equal(t, 7, r.Frame)
	assert.Equal(t, uint32(8), r.Samples)
	assert.Equal(t, uint32(8), r.SamplesDone)
	assert.Equal(t, 4, r.Objects)
	assert.Equal(t, 2, r.Frames)
	assert.True(t, strings.HasSuffix(r.Image, "0007-00008.exr"), r.Image)
}

func TestRenderConnectFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, _, err := execute(t, "render", testScene, "--config", cfgPath, "--server", "127.0.0.1:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrConnectFailure)
	assert.Equal(t, "B001", errors.Classify(err).Code)

	h, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer h.Close()
	renders, err := h.List(history.Filter{})
	require.NoError(t, err)
	require.Len(t, renders, 1)
	assert.Equal(t, session.OutcomeConnectFailed, renders[0].Outcome)
	assert.NotEmpty(t, renders[0].Error)
}

func TestRenderRejected(t *testing.T) {
	srv := rendertest.NewServer(rendertest.Reject("version mismatch"))
	addr := srv.Listen(t)
	cfgPath := writeConfig(t, t.TempDir())

	_, _, err := execute(t, "render", testScene, "--config", cfgPath, "--server", addr, "--no-history")
	require.Error(t, err)
	be := errors.Classify(err)
	assert.Equal(t, "B002", be.Code)
	assert.Contains(t, be.Detail, "version mismatch")
}

func TestRenderMissingScene(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	_, _, err := execute(t, "render", "does-not-exist.yaml", "--config", cfgPath, "--no-history")
	require.Error(t, err)
	assert.Equal(t, "B020", errors.Classify(err).Code)
}

func TestRenderInvalidFlags(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"renderer", []string{"--renderer", "raytracer"}, "B040"},
		{"format", []string{"--format", "rgb"}, "B040"},
		{"server", []string{"--server", "render01:port"}, "B080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", testScene, "--config", cfgPath, "--no-history"}, tt.args...)
			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Classify(err).Code)
		})
	}
}

func TestHistoryCommands(t *testing.T) {
	srv := rendertest.NewServer()
	addr := srv.Listen(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	for i := 0; i < 2; i++ {
		_, stderr, err := execute(t, "render", testScene, "--config", cfgPath, "--server", addr)
		require.NoError(t, err, stderr)
	}

	out, _, err := execute(t, "history", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OUTCOME")
	assert.Equal(t, 2, strings.Count(out, "done"))

	out, _, err = execute(t, "history", "show", "1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Renderer:")
	assert.Contains(t, out, "pathtracer")

	_, _, err = execute(t, "history", "show", "abc", "--config", cfgPath)
	assert.Equal(t, "B080", errors.Classify(err).Code)

	out, _, err = execute(t, "history", "prune", "--keep", "1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 renders")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Protocol:")
}

func TestLoadConfigFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir)

	g := &globalFlags{config: dir, logLevel: "debug", logFormat: "json"}
	cfg, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])

	_, err = newLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestSplitServer(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		port    int
		wantErr bool
	}{
		{"render01", "render01", 5909, false},
		{"render01:6000", "render01", 6000, false},
		{"[::1]:6000", "::1", 6000, false},
		{"::1", "::1", 5909, false},
		{"render01:http", "", 0, true},
		{":6000", "", 0, true},
	}
	for _, tt := range tests {
		host, port, err := splitServer(tt.in, 5909)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.host, host, tt.in)
		assert.Equal(t, tt.port, port, tt.in)
	}
}

func TestSceneName(t *testing.T) {
	assert.Equal(t, "slices", sceneName("/a/b/slices.yaml"))
	assert.Equal(t, "scene", sceneName("scene"))
}
