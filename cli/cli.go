// Package cli implements the webgraph command-line interface.
//
// # Commands
//
//   - serve: host the graph in the browser over a websocket
//   - tui: host the graph in the terminal
//   - render: relax the graph headlessly and write SVG, PNG, ASCII or JSON
//   - config: write or show the TOML configuration
//   - version: print build information
//
// All commands read the TOML file named by --config (or the default path)
// and support --verbose for debug logging. The logger travels through the
// command context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TFMV/webgraph/config"
	"github.com/TFMV/webgraph/ingest"
	"github.com/TFMV/webgraph/logging"
	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/physics"
	"github.com/TFMV/webgraph/widget"
)

var (
	version = "dev" // semantic version
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the build information reported by version and --version
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// app is the state shared by every command of one invocation
type app struct {
	configPath string
	layout     string
	verbose    bool

	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the CLI with the process arguments
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree writing output to stdout and logs
// to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "webgraph",
		Short:         "webgraph lays out and animates interactive node-link graphs",
		Long:          `webgraph relaxes a graph of boxes and springs one frame at a time and lets you hover and drag its nodes in the browser or the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			switch a.layout {
			case "", "relaxation":
			case "repulsion":
				cfg.Layout.Repulsion = true
			default:
				return fmt.Errorf("unknown layout %q", a.layout)
			}
			a.cfg = cfg
			logger := logging.New(a.stderr, logging.ParseLevel(cfg.Log.Level, a.verbose))
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(fmt.Sprintf("webgraph %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&a.layout, "layout", "", "layout algorithm: relaxation, repulsion")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newTUICmd())
	root.AddCommand(a.newRenderCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(a.newVersionCmd())

	return root
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "webgraph %s\n", version)
			if commit != "" {
				fmt.Fprintf(a.stdout, "commit: %s\n", commit)
			}
			if date != "" {
				fmt.Fprintf(a.stdout, "built: %s\n", date)
			}
		},
	}
}

// size is the configured logical surface
func (a *app) size() models.Size {
	return models.Size{Width: a.cfg.Surface.Width, Height: a.cfg.Surface.Height}
}

// seedLoader returns the seed source: the file at path, else the configured
// seed file, else a random graph.
func (a *app) seedLoader(path string) func() (*ingest.Seed, error) {
	if path == "" {
		path = a.cfg.Graph.Seed
	}
	if path != "" {
		return func() (*ingest.Seed, error) {
			return ingest.Load(path)
		}
	}

	g := a.cfg.Graph
	size := a.size()
	return func() (*ingest.Seed, error) {
		return ingest.Random(g.RandomNodes, g.RandomEdges, size, g.RandomSeed), nil
	}
}

// newWidget builds a configured widget holding the seed
func (a *app) newWidget(ctx context.Context, seed *ingest.Seed) *widget.Widget {
	logger := logging.FromContext(ctx)
	w := widget.New(a.size(),
		widget.WithLogger(logger),
		widget.WithLayout(physics.GetLayoutAlgorithm(a.layout, a.cfg.Layout)),
		widget.WithDispatch(a.cfg.DispatchPolicy()),
		widget.WithPixelRatio(a.cfg.Surface.PixelRatio),
	)
	if _, err := seed.Apply(w, a.size(), a.cfg.Graph.RandomSeed); err != nil {
		logger.Warn("seed partially applied", "err", err)
	}
	return w
}

// loadWidget loads the seed and builds a widget from it
func (a *app) loadWidget(ctx context.Context, path string) (*widget.Widget, error) {
	seed, err := a.seedLoader(path)()
	if err != nil {
		return nil, err
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	logging.FromContext(ctx).Debug("seed loaded", "nodes", len(seed.Nodes), "edges", len(seed.Edges))
	return a.newWidget(ctx, seed), nil
}
