package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/internal/watch"
)

func watchCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <scene.yaml>",
		Short: "Re-render a scene whenever it changes",
		Long: `Render the scene, then watch the scene file. Each save cancels the
render in progress and starts a new session with the updated scene.

Examples:
  blospray watch scene.yaml
  blospray watch scene.yaml --preview localhost:8090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g, f)
			if err != nil {
				return err
			}
			defer a.close()
			return a.watch(cmd.Context(), args[0], f.frame, debounce)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period after a save before re-rendering")
	return cmd
}

// watch renders path and re-renders it on every change until ctx is done.
func (a *app) watch(ctx context.Context, path string, frame int, debounce time.Duration) error {
	w, err := watch.New(watch.Config{Files: []string{path}, Debounce: debounce})
	if err != nil {
		return errors.New("B080").WithDetail("cannot watch " + path).Wrap(err)
	}
	defer w.Close()

	changes := make(chan watch.Change, 1)
	w.OnChange(func(c watch.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	w.OnError(func(err error) { a.logger.Warn("watcher", "error", err) })
	go w.Start(ctx)

	info(a.out, "Watching %s (Ctrl+C to stop)", filepath.Base(path))
	for {
		rctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			rec, err := a.render(rctx, path, frame)
			if err == nil {
				a.summary(rec)
			}
			done <- err
		}()

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case <-changes:
			info(a.out, "Scene changed, restarting")
			cancel()
			a.report(<-done)
			continue
		case err := <-done:
			a.report(err)
		}

		// Wait for the next save.
		select {
		case <-ctx.Done():
			cancel()
			return nil
		case <-changes:
			info(a.out, "Scene changed, rendering")
		}
		cancel()
	}
}

// report prints a render error without stopping the watch loop.
func (a *app) report(err error) {
	if err == nil || isCanceled(err) {
		return
	}
	errors.Fprint(a.out, err)
}
