package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/RaphaelK12/blospray/internal/config"
	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/internal/history"
	"github.com/RaphaelK12/blospray/internal/preview"
	"github.com/RaphaelK12/blospray/internal/sink"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
	"github.com/RaphaelK12/blospray/pkg/session"
)

// renderFlags override blospray.json for one invocation.
type renderFlags struct {
	server    string
	samples   uint32
	renderer  string
	format    string
	frame     int
	output    string
	bucket    string
	preview   string
	noHistory bool
	strict    bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.server, "server", "s", "", "Render server host:port (default from blospray.json)")
	cmd.Flags().Uint32VarP(&f.samples, "samples", "n", 0, "Sample budget (default from the scene)")
	cmd.Flags().StringVarP(&f.renderer, "renderer", "r", "", "Renderer: scivis or pathtracer")
	cmd.Flags().StringVar(&f.format, "format", "", "Framebuffer format: rgba8, srgba or rgba32")
	cmd.Flags().IntVarP(&f.frame, "frame", "f", 0, "Frame number, available as ${frame} in custom properties (default from the scene)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Directory for framebuffer images (\"-\" disables)")
	cmd.Flags().StringVar(&f.bucket, "s3-bucket", "", "Also upload framebuffer images to this S3 bucket")
	cmd.Flags().StringVar(&f.preview, "preview", "", "Serve live preview on this address, e.g. localhost:8090")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record the render in the history database")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Drop custom properties that use undefined ${NAME} variables")
}

// apply copies the flags that were set into cfg.
func (f *renderFlags) apply(cfg *config.Config) error {
	if f.server != "" {
		host, port, err := splitServer(f.server, cfg.Server.Port)
		if err != nil {
			return err
		}
		cfg.Server.Host, cfg.Server.Port = host, port
	}
	if f.samples > 0 {
		cfg.Render.Samples = f.samples
	}
	if f.renderer != "" {
		cfg.Render.Renderer = f.renderer
	}
	if f.format != "" {
		cfg.Render.Format = f.format
	}
	if f.output != "" {
		cfg.Output.Dir = f.output
	}
	if cfg.Output.Dir == "-" {
		cfg.Output.Dir = ""
	}
	if f.bucket != "" {
		cfg.Output.S3.Bucket = f.bucket
	}
	if f.preview != "" {
		cfg.Preview.Addr = f.preview
	}
	if f.noHistory {
		cfg.History.Disabled = true
	}
	if f.strict {
		cfg.Render.Substitution = "fail"
	}
	return cfg.Validate()
}

func renderCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render <scene.yaml>",
		Short: "Render a scene once",
		Long: `Connect to the render server, send the scene and follow the render
until the sample budget is reached.

Press Ctrl+C to cancel; the server is asked to stop and the last
framebuffer update is kept.

Examples:
  blospray render scene.yaml
  blospray render scene.yaml --server render01:5909 --samples 256
  blospray render scene.yaml --preview localhost:8090 --s3-bucket frames`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g, f)
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.render(cmd.Context(), args[0], f.frame)
			if err != nil {
				return err
			}
			a.summary(rec)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// app holds everything shared by the renders of one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	registry *prometheus.Registry
	metrics  *session.Metrics
	history  *history.Store
	preview  *preview.Server
	stores   []sink.Store
	dial     session.DialFunc

	stopPreview context.CancelFunc
	previewDone chan error
}

func newApp(cmd *cobra.Command, g *globalFlags, f *renderFlags) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := f.apply(cfg); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      cmd.ErrOrStderr(),
		registry: reg,
		metrics:  session.NewMetrics(session.WithRegistry(reg)),
	}

	if cfg.Output.Dir != "" {
		disk, err := sink.NewDiskStore(cfg.Output.Dir)
		if err != nil {
			return nil, errors.New("B060").Wrap(err)
		}
		a.stores = append(a.stores, disk)
	}
	if s3 := cfg.Output.S3; s3.Bucket != "" {
		client := sink.NewS3Client(sink.S3Options{Region: s3.Region, Endpoint: s3.Endpoint, PathStyle: s3.PathStyle})
		a.stores = append(a.stores, sink.NewS3Store(client, s3.Bucket, s3.Prefix))
	}

	if !cfg.History.Disabled {
		h, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, errors.New("B061").Wrap(err)
		}
		a.history = h
	}

	if cfg.Preview.Addr != "" {
		a.preview = preview.New(preview.WithLogger(logger), preview.WithGatherer(reg))
		ctx, cancel := context.WithCancel(context.Background())
		a.stopPreview = cancel
		a.previewDone = make(chan error, 1)
		go func() { a.previewDone <- a.preview.ListenAndServe(ctx, cfg.Preview.Addr) }()
		info(a.out, "Preview on http://%s/status", cfg.Preview.Addr)
	}
	return a, nil
}

func (a *app) close() {
	if a.stopPreview != nil {
		a.stopPreview()
		if err := <-a.previewDone; err != nil {
			a.logger.Warn("preview server", "error", errors.New("B062").Wrap(err))
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing history", "error", err)
		}
	}
}

func (a *app) phase(p string) {
	if a.preview != nil {
		a.preview.SetPhase(p)
	}
}

// render runs one complete session for the scene file.
func (a *app) render(ctx context.Context, path string, frame int) (rec *history.Render, err error) {
	static, err := scene.LoadFile(path)
	if err != nil {
		return nil, errors.Classify(err).WithLocationFromError(path, err)
	}
	if frame > 0 {
		static.SetFrame(frame)
	}
	frame = static.Frame()
	provider := a.cfg.Override(static)
	settings := provider.Settings()

	opts := []session.Option{session.WithLogger(a.logger), session.WithMetrics(a.metrics)}
	if a.dial != nil {
		opts = append(opts, session.WithDialer(a.dial))
	}
	s := session.New(a.cfg.Session(), opts...)

	rec = &history.Render{
		Scene:    path,
		Server:   a.cfg.ServerAddress(),
		Frame:    frame,
		Renderer: settings.Render.Renderer.String(),
		Samples:  settings.Render.Samples,
		Width:    settings.Framebuffer.Width,
		Height:   settings.Framebuffer.Height,
	}
	if a.history != nil {
		if err := a.history.Begin(rec); err != nil {
			a.logger.Warn("history not recorded", "error", err)
		}
	}

	images := sink.NewImages(sceneName(path), frame, a.stores...).WithLogger(a.logger).WithContext(context.WithoutCancel(ctx))
	console := sink.NewConsole(a.out)
	sinks := []session.ProgressSink{console, images}
	if a.preview != nil {
		sinks = append(sinks, a.preview)
	}

	defer func() {
		console.Finish()
		if cerr := s.Close(); cerr != nil && err == nil {
			a.logger.Warn("closing session", "error", cerr)
		}
		a.phase(s.Outcome())
		rec.ApplyReport(s.Report())
		rec.ApplyStats(s.Stats())
		rec.Image = images.Latest()
		if a.history != nil && rec.ID != 0 {
			if herr := a.history.Finish(rec, s.Outcome(), err); herr != nil {
				a.logger.Warn("history not recorded", "error", herr)
			}
		}
	}()

	a.phase("connecting")
	if err := s.Connect(ctx); err != nil {
		return rec, err
	}

	a.phase("exporting")
	report, err := s.Export(ctx, provider)
	if err != nil {
		return rec, err
	}
	for _, d := range report.Diagnostics {
		warn(a.out, "%s", d)
	}
	info(a.out, "Exported %d objects (%d meshes sent, %d reused) in %s",
		report.Objects, report.MeshesSent, report.MeshesReused, report.Duration.Round(time.Millisecond))

	a.phase("rendering")
	result, err := s.Render(ctx, sink.Multi(sinks...))
	if err != nil {
		return rec, err
	}
	if result == protocol.ResultCanceled {
		return rec, errors.New("B081").WithDetail(fmt.Sprintf("Stopped at sample %d of %d.", s.Stats().Sample, s.Stats().Samples))
	}
	return rec, nil
}

func (a *app) summary(rec *history.Render) {
	success(a.out, "Rendered %s: %d/%d samples, %d updates in %s",
		filepath.Base(rec.Scene), rec.SamplesDone, rec.Samples, rec.Frames,
		(time.Duration(rec.RenderMS) * time.Millisecond).Round(time.Millisecond))
	if rec.Image != "" {
		info(a.out, "Latest image: %s", rec.Image)
	}
}

// sceneName is the scene file name without extension, used as the image
// key prefix.
func sceneName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// splitServer parses host[:port].
func splitServer(s string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// No port given.
		host, portStr = strings.Trim(s, "[]"), strconv.Itoa(defaultPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || host == "" {
		return "", 0, errors.New("B080").WithDetail("invalid server address " + strconv.Quote(s))
	}
	return host, port, nil
}

// isCanceled reports whether err is the user canceling a render.
func isCanceled(err error) bool {
	var be *errors.BlosprayError
	return stderrors.As(err, &be) && be.Code == "B081"
}
