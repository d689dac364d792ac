// Package ingest turns seed files into the nodes and edges of a widget.
//
// A seed lists nodes by a caller-chosen id and edges by the ids of their
// endpoints. Structured seeds (JSON, YAML, TOML) may place nodes; edge lists
// (CSV) and relationship logs only name them, and unplaced nodes are
// scattered over the surface when the seed is applied.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for unknown seed formats
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnknownNode is returned when an edge names a node the seed lacks
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateNode is returned when two seed nodes share an id
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrInvalidNumber is returned for NaN, infinite or negative seed values
	ErrInvalidNumber = errors.New("invalid number")
)

// Seed is the portable description of an initial graph
type Seed struct {
	Nodes []SeedNode `json:"nodes" yaml:"nodes" toml:"nodes"`
	Edges []SeedEdge `json:"edges" yaml:"edges" toml:"edges"`
}

// SeedNode is one node of a seed. Nil coordinates leave the placement to
// Apply; zero sizes fall back to DefaultNodeSize.
type SeedNode struct {
	ID     string   `json:"id" yaml:"id" toml:"id"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	X      *float64 `json:"x,omitempty" yaml:"x,omitempty" toml:"x,omitempty"`
	Y      *float64 `json:"y,omitempty" yaml:"y,omitempty" toml:"y,omitempty"`
	Width  float64  `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty"`
	Height float64  `json:"height,omitempty" yaml:"height,omitempty" toml:"height,omitempty"`
}

// SeedEdge is one edge of a seed. A zero weight falls back to DefaultWeight.
type SeedEdge struct {
	Source string  `json:"source" yaml:"source" toml:"source"`
	Target string  `json:"target" yaml:"target" toml:"target"`
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty" toml:"weight,omitempty"`
}

// Placed reports whether the node carries a position
func (n SeedNode) Placed() bool {
	return n.X != nil && n.Y != nil
}

// DataProcessor parses raw seed bytes
type DataProcessor interface {
	// ProcessData parses data into a seed
	ProcessData(data []byte) (*Seed, error)

	// GetName returns the name of the processor
	GetName() string
}

// JSONProcessor handles JSON seeds
type JSONProcessor struct{}

// GetName returns the name of the processor
func (p *JSONProcessor) GetName() string {
	return "JSON Processor"
}

// ProcessData parses a JSON seed
func (p *JSONProcessor) ProcessData(data []byte) (*Seed, error) {
	var seed Seed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return &seed, nil
}

// YAMLProcessor handles YAML seeds
type YAMLProcessor struct{}

// GetName returns the name of the processor
func (p *YAMLProcessor) GetName() string {
	return "YAML Processor"
}

// ProcessData parses a YAML seed
func (p *YAMLProcessor) ProcessData(data []byte) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	return &seed, nil
}

// TOMLProcessor handles TOML seeds, written as [[nodes]] and [[edges]] tables
type TOMLProcessor struct{}

// GetName returns the name of the processor
func (p *TOMLProcessor) GetName() string {
	return "TOML Processor"
}

// ProcessData parses a TOML seed
func (p *TOMLProcessor) ProcessData(data []byte) (*Seed, error) {
	var seed Seed
	md, err := toml.Decode(string(data), &seed)
	if err != nil {
		return nil, fmt.Errorf("error parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("error parsing TOML: unknown key %s", undecoded[0])
	}
	return &seed, nil
}

// CSVProcessor handles edge lists with a header row naming the source and
// target columns and optionally a weight column.
type CSVProcessor struct{}

// GetName returns the name of the processor
func (p *CSVProcessor) GetName() string {
	return "CSV Processor"
}

// ProcessData parses an edge list
func (p *CSVProcessor) ProcessData(data []byte) (*Seed, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	sourceIdx, targetIdx, weightIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "source", "from", "src":
			sourceIdx = i
		case "target", "to", "dst":
			targetIdx = i
		case "weight", "length", "distance":
			weightIdx = i
		}
	}
	if sourceIdx == -1 || targetIdx == -1 {
		return nil, fmt.Errorf("CSV must contain source and target columns")
	}

	b := newSeedBuilder()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}

		var weight float64
		if weightIdx >= 0 && weightIdx < len(row) && row[weightIdx] != "" {
			weight, err = strconv.ParseFloat(row[weightIdx], 64)
			if err != nil {
				return nil, fmt.Errorf("error reading CSV weight %q: %w", row[weightIdx], err)
			}
			if !finite(weight) {
				return nil, fmt.Errorf("CSV weight %q: %w", row[weightIdx], ErrInvalidNumber)
			}
		}
		b.edge(row[sourceIdx], row[targetIdx], weight)
	}

	return b.seed, nil
}

// LogProcessor handles relationship logs, one "A -> B" style line per edge.
// Lines matching no known separator are skipped.
type LogProcessor struct{}

// GetName returns the name of the processor
func (p *LogProcessor) GetName() string {
	return "Log Processor"
}

var logSeparators = []string{" -> ", " => ", " connected to ", " connects to ", " links to ", " linked to ", " - "}

// ProcessData parses a relationship log
func (p *LogProcessor) ProcessData(data []byte) (*Seed, error) {
	b := newSeedBuilder()

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, sep := range logSeparators {
			parts := strings.Split(line, sep)
			if len(parts) == 2 {
				b.edge(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), 0)
				break
			}
		}
	}

	return b.seed, nil
}

// seedBuilder collects nodes named by edges in first-seen order
type seedBuilder struct {
	seed  *Seed
	known map[string]bool
}

func newSeedBuilder() *seedBuilder {
	return &seedBuilder{seed: &Seed{}, known: make(map[string]bool)}
}

func (b *seedBuilder) node(id string) {
	if b.known[id] {
		return
	}
	b.known[id] = true
	b.seed.Nodes = append(b.seed.Nodes, SeedNode{ID: id, Label: id})
}

func (b *seedBuilder) edge(source, target string, weight float64) {
	b.node(source)
	b.node(target)
	b.seed.Edges = append(b.seed.Edges, SeedEdge{Source: source, Target: target, Weight: weight})
}

// GetProcessor returns the processor for a format name
func GetProcessor(format string) (DataProcessor, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return &JSONProcessor{}, nil
	case "yaml", "yml":
		return &YAMLProcessor{}, nil
	case "toml":
		return &TOMLProcessor{}, nil
	case "csv":
		return &CSVProcessor{}, nil
	case "log", "txt":
		return &LogProcessor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Parse parses data in the given format
func Parse(data []byte, format string) (*Seed, error) {
	p, err := GetProcessor(format)
	if err != nil {
		return nil, err
	}
	return p.ProcessData(data)
}

// Load reads a seed file, picking the format from its extension
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	seed, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
