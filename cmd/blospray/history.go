package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/RaphaelK12/blospray/internal/errors"
	"github.com/RaphaelK12/blospray/internal/history"
)

func historyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past render sessions",
		Long: `List, inspect and prune the render history database.

Examples:
  blospray history list
  blospray history list --scene scene.yaml --outcome canceled
  blospray history show 12
  blospray history prune --keep 100`,
	}
	cmd.AddCommand(
		historyListCmd(g),
		historyShowCmd(g),
		historyPruneCmd(g),
	)
	return cmd
}

func openHistory(g *globalFlags) (*history.Store, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, errors.New("B061").Wrap(err)
	}
	return h, nil
}

func historyListCmd(g *globalFlags) *cobra.Command {
	var f history.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent renders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistory(g)
			if err != nil {
				return err
			}
			defer h.Close()

			renders, err := h.List(f)
			if err != nil {
				return errors.New("B061").Wrap(err)
			}
			printRenders(cmd.OutOrStdout(), renders)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Scene, "scene", "", "Only renders of this scene file")
	cmd.Flags().StringVar(&f.Outcome, "outcome", "", "Only renders with this outcome (done, canceled, ...)")
	cmd.Flags().IntVarP(&f.Limit, "limit", "l", 20, "Maximum number of renders")
	return cmd
}

func historyShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one render in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return errors.New("B080").WithDetail("render id must be a number, got " + strconv.Quote(args[0]))
			}
			h, err := openHistory(g)
			if err != nil {
				return err
			}
			defer h.Close()

			r, err := h.Get(uint(id))
			if err != nil {
				return errors.New("B061").Wrap(err)
			}
			printRender(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func historyPruneCmd(g *globalFlags) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New("B080").WithDetail("--keep must not be negative")
			}
			h, err := openHistory(g)
			if err != nil {
				return err
			}
			defer h.Close()

			n, err := h.Prune(keep)
			if err != nil {
				return errors.New("B061").Wrap(err)
			}
			success(cmd.OutOrStdout(), "Removed %d renders", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "Number of renders to keep")
	return cmd
}

func printRenders(w io.Writer, renders []history.Render) {
	if len(renders) == 0 {
		fmt.Fprintln(w, "No renders recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSCENE\tFRAME\tSAMPLES\tOUTCOME")
	for _, r := range renders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d/%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Scene, r.Frame, r.SamplesDone, r.Samples, r.Outcome)
	}
	tw.Flush()
}

func printRender(w io.Writer, r *history.Render) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k string, v any) { fmt.Fprintf(tw, "%s:\t%v\n", k, v) }
	row("ID", r.ID)
	row("Scene", r.Scene)
	row("Server", r.Server)
	row("Frame", r.Frame)
	row("Renderer", r.Renderer)
	row("Size", fmt.Sprintf("%dx%d", r.Width, r.Height))
	row("Samples", fmt.Sprintf("%d/%d", r.SamplesDone, r.Samples))
	row("Outcome", r.Outcome)
	if r.Error != "" {
		row("Error", r.Error)
	}
	row("Objects", r.Objects)
	row("Meshes", fmt.Sprintf("%d sent, %d reused", r.MeshesSent, r.MeshesReused))
	row("Materials", fmt.Sprintf("%d sent, %d reused", r.MaterialsSent, r.MaterialsReused))
	row("Plugins", r.PluginInstances)
	row("Skipped", r.Skipped)
	row("Updates", r.Frames)
	row("Received", fmt.Sprintf("%d bytes", r.BytesReceived))
	row("Export", time.Duration(r.ExportMS)*time.Millisecond)
	row("Render", time.Duration(r.RenderMS)*time.Millisecond)
	row("Started", r.StartedAt.Local().Format(time.DateTime))
	if r.FinishedAt != nil {
		row("Finished", r.FinishedAt.Local().Format(time.DateTime))
	}
	if r.Image != "" {
		row("Image", r.Image)
	}
	tw.Flush()
}
