package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RaphaelK12/blospray/internal/config"
	"github.com/RaphaelK12/blospray/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	noColor   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "blospray",
		Short: "Render scenes on a remote OSPRay render server",
		Long: `blospray sends a scene to a remote OSPRay render server and follows
the progressive render as it refines.

  • Meshes and materials are sent once per session and reused
  • Framebuffer updates are stored locally or in S3
  • Live progress over HTTP/WebSocket with a Prometheus endpoint
  • Every session is recorded in a local history database`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				errors.DisableColors()
			}
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&g.config, "config", "c", "", "Path to blospray.json or its directory (default: ./blospray.json if present)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		renderCmd(g),
		watchCmd(g),
		historyCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads blospray.json from the --config path and applies the
// logging flags.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch info, statErr := os.Stat(g.config); {
	case g.config == "":
		cfg, err = config.LoadOrDefault(".")
	case statErr == nil && info.IsDir():
		cfg, err = config.Load(g.config)
	default:
		cfg, err = config.LoadFile(g.config)
	}
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

// newLogger builds the slog logger described by the log config.
func newLogger(c config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, errors.New("B040").WithDetail("log.level: " + err.Error())
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errors.Success(fmt.Sprintf(format, args...)))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errors.Warning(fmt.Sprintf(format, args...)))
}
