package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/graph"
	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
	"github.com/Bellian/Godot-Translation-Tool/internal/layout"
)

func (c *CLI) graphCommand() *cobra.Command {
	var (
		format string
		engine string
		pinned bool
		ticks  int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "graph <project-id> <dialog-id>",
		Short: "Lay out a dialog's section graph",
		Long:  "Extracts the section graph of a dialog, runs the force layout and prints it as layout JSON, Graphviz DOT or SVG.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "dot", "svg":
			default:
				return fmt.Errorf("unsupported format %q (want json, dot or svg)", format)
			}
			projectID, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			d, err := e.repo.GetDialog(ctx, projectID, args[1])
			if err != nil {
				return err
			}
			opts := layout.DefaultOptions()
			opts.Width, opts.Height = e.cfg.Layout.Width, e.cfg.Layout.Height
			if e.cfg.Layout.Ticks > 0 {
				opts.Ticks = e.cfg.Layout.Ticks
			}
			if ticks > 0 {
				opts.Ticks = ticks
			}
			if engine == "" {
				engine = e.cfg.Layout.Engine
			}

			ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "cli", "graph", format)
			defer span.End()
			g := graph.Extract(d.Sections, d.StartSection)
			l := layout.Compute(g, opts)
			span.SetMetadata("nodes", len(g.Nodes))
			span.SetMetadata("ticks", l.Ticks)

			var body []byte
			switch format {
			case "json":
				body, err = json.MarshalIndent(l, "", "  ")
			case "dot":
				body = []byte(layout.ToDOT(l, pinned))
			case "svg":
				body, err = layout.RenderSVG(ctx, layout.ToDOT(l, pinned), engine)
			}
			if err != nil {
				span.SetStatus("error")
				return err
			}
			return writeOutput(cmd, out, body)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, dot or svg")
	cmd.Flags().StringVar(&engine, "engine", "", "graphviz engine for svg: fdp or neato (default: layout.engine)")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "keep the simulated positions when rendering")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "simulation ticks (default: layout.ticks)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
