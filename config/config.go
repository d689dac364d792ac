// Package config loads the webgraph TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/TFMV/webgraph/physics"
	"github.com/TFMV/webgraph/widget"
)

// Config holds webgraph configuration.
type Config struct {
	Surface SurfaceConfig   `toml:"surface"`
	Layout  physics.Options `toml:"layout"`
	Runtime RuntimeConfig   `toml:"runtime"`
	Graph   GraphConfig     `toml:"graph"`
	Server  ServerConfig    `toml:"server"`
	Log     LogConfig       `toml:"log"`
}

// SurfaceConfig is the logical drawing area.
type SurfaceConfig struct {
	Width      float64 `toml:"width"`
	Height     float64 `toml:"height"`
	PixelRatio float64 `toml:"pixel_ratio"`
}

// RuntimeConfig controls how callbacks reach the widget.
type RuntimeConfig struct {
	FrameRate int    `toml:"frame_rate"`
	Dispatch  string `toml:"dispatch"` // "drop", "serialize"
}

// GraphConfig selects the initial graph. Without a seed file a random graph
// is generated.
type GraphConfig struct {
	Seed        string `toml:"seed"`
	RandomNodes int    `toml:"random_nodes"`
	RandomEdges int    `toml:"random_edges"`
	RandomSeed  int64  `toml:"random_seed"`
}

// ServerConfig controls the browser host.
type ServerConfig struct {
	Addr  string `toml:"addr"`
	Watch bool   `toml:"watch"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Surface: SurfaceConfig{Width: 800, Height: 600, PixelRatio: 1},
		Layout:  physics.DefaultOptions(),
		Runtime: RuntimeConfig{FrameRate: 60, Dispatch: "drop"},
		Graph:   GraphConfig{RandomNodes: 10, RandomEdges: 5, RandomSeed: 1},
		Server:  ServerConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info"},
	}
}

// ConfigDir returns the webgraph config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "webgraph")
}

// DefaultPath returns the path of the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path over the defaults. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse config %s: unknown key %s", path, undecoded[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
		return fmt.Errorf("surface size %gx%g must be positive", c.Surface.Width, c.Surface.Height)
	}
	if c.Surface.PixelRatio <= 0 {
		return fmt.Errorf("pixel_ratio %g must be positive", c.Surface.PixelRatio)
	}
	if c.Layout.Epsilon < 0 || c.Layout.MaxStep < 0 || c.Layout.RepulsionThreshold < 0 {
		return errors.New("layout settings must not be negative")
	}
	if c.Runtime.FrameRate <= 0 || c.Runtime.FrameRate > 240 {
		return fmt.Errorf("frame_rate %d must be within 1..240", c.Runtime.FrameRate)
	}
	if _, err := widget.ParseDispatch(c.Runtime.Dispatch); err != nil {
		return err
	}
	if c.Graph.RandomNodes < 0 || c.Graph.RandomEdges < 0 {
		return errors.New("random graph counts must not be negative")
	}
	return nil
}

// DispatchPolicy returns the parsed dispatch setting. It assumes Validate
// passed and falls back to drop otherwise.
func (c *Config) DispatchPolicy() widget.Dispatch {
	d, _ := widget.ParseDispatch(c.Runtime.Dispatch)
	return d
}
