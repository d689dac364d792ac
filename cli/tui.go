package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TFMV/webgraph/tui"
)

func (a *app) newTUICmd() *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Show the interactive graph in the terminal",
		Long: `Show the graph on a character grid. Hover nodes with the mouse and drag
them with the left button; q quits.

  webgraph tui
  webgraph tui --seed graph.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.loadWidget(cmd.Context(), seed)
			if err != nil {
				return err
			}

			title := "webgraph"
			if path := firstNonEmpty(seed, a.cfg.Graph.Seed); path != "" {
				title += " · " + filepath.Base(path)
			}
			return tui.Run(cmd.Context(), w, tui.Options{
				Title:     title,
				FrameRate: a.cfg.Runtime.FrameRate,
			})
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "seed graph file (json, yaml, toml, csv, log)")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
