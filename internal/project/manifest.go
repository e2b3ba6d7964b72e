package project

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Manifest mirrors pyscope.toml.
type Manifest struct {
	Quiet      bool     `toml:"quiet"`
	Debug      bool     `toml:"debug"`
	SearchPath []string `toml:"search_path"`
}

// LoadManifest parses a pyscope.toml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %q: %w", path, err)
	}
	return &m, nil
}

// Options is the analyzer configuration after merging the manifest,
// the environment and the caller-supplied option map.
type Options struct {
	Quiet      bool
	Debug      bool
	SearchPath []string
}

// ApplyMap overlays a generic option mapping. Recognized keys: "quiet"
// and "debug" with boolean values. Unknown keys are ignored.
func (o *Options) ApplyMap(m map[string]any) {
	if v, ok := m["quiet"].(bool); ok {
		o.Quiet = v
	}
	if v, ok := m["debug"].(bool); ok {
		o.Debug = v
	}
}

// ResolveOptions builds the effective options for an analysis rooted at
// startDir: manifest values first, then PYTHONPATH entries, then the
// caller's option map on top.
func ResolveOptions(startDir string, overrides map[string]any) (Options, error) {
	var opts Options
	manifestPath, ok, err := FindPyscopeToml(startDir)
	if err != nil {
		return opts, err
	}
	if ok {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return opts, err
		}
		opts.Quiet = m.Quiet
		opts.Debug = m.Debug
		opts.SearchPath = append(opts.SearchPath, m.SearchPath...)
	}
	opts.SearchPath = append(opts.SearchPath, PythonPath()...)
	opts.ApplyMap(overrides)
	return opts, nil
}
