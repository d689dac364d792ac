package cli

import (
	"github.com/spf13/cobra"

	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/metrics"
	"github.com/TFMV/webgraph/server"
)

type serveOpts struct {
	addr  string
	seed  string
	watch bool
}

func (a *app) newServeCmd() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive graph to browsers",
		Long: `Serve a page whose canvas shows the graph. Every browser tab gets its own
widget; pointer events travel over a websocket and frames come back as draw
operations. With --watch the seed file is reloaded when it changes.

  webgraph serve
  webgraph serve --addr :9000 --seed graph.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = opts.addr
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Server.Watch = opts.watch
			}
			return a.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "seed graph file (json, yaml, toml, csv, log)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the seed file when it changes")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, opts serveOpts) error {
	logger := logging.FromContext(cmd.Context())
	seedPath := opts.seed
	if seedPath == "" {
		seedPath = a.cfg.Graph.Seed
	}

	var watchPath string
	if a.cfg.Server.Watch {
		if seedPath == "" {
			logger.Warn("nothing to watch without a seed file")
		}
		watchPath = seedPath
	}

	srv, err := server.New(server.Config{
		Addr:        a.cfg.Server.Addr,
		Size:        a.size(),
		PixelRatio:  a.cfg.Surface.PixelRatio,
		FrameRate:   a.cfg.Runtime.FrameRate,
		Dispatch:    a.cfg.DispatchPolicy(),
		Layout:      a.cfg.Layout,
		ScatterSeed: a.cfg.Graph.RandomSeed,
		LoadSeed:    a.seedLoader(seedPath),
		WatchPath:   watchPath,
		Logger:      logger,
		Metrics:     metrics.NewCollector(),
	})
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
