package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/bubby932/rhl/internal/preprocess"
)

//go:embed schema.cue
var schemaCUE string

// FileNames lists the project file names Find looks for, in order.
var FileNames = []string{"rhl.cue", "rhl.yaml", "rhl.yml"}

// Config holds project-level preprocessing settings.
type Config struct {
	Defines          []string `json:"defines,omitempty" yaml:"defines,omitempty"`
	IncludeDirs      []string `json:"include_dirs,omitempty" yaml:"include_dirs,omitempty"`
	MaxIncludeDepth  int      `json:"max_include_depth,omitempty" yaml:"max_include_depth,omitempty"`
	InvertedPolarity bool     `json:"inverted_polarity,omitempty" yaml:"inverted_polarity,omitempty"`
	NormalizeUnicode bool     `json:"normalize_unicode,omitempty" yaml:"normalize_unicode,omitempty"`
	Cache            string   `json:"cache,omitempty" yaml:"cache,omitempty"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `json:"-" yaml:"-"`
}

// Error is a configuration error with source position if available.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Find returns the first project file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadDefault loads the project file in dir, or returns an empty config if
// there is none.
func LoadDefault(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return &Config{}, nil
	}
	return Load(path)
}

// Load reads and validates a .cue, .yaml or .yml project file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the config schema. The format is chosen by
// the extension of name.
func Parse(name string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var v cue.Value
	switch ext := filepath.Ext(name); ext {
	case ".cue":
		v = ctx.CompileBytes(data, cue.Filename(name))
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &Error{Path: name, Message: fmt.Sprintf("invalid YAML: %v", err)}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		v = ctx.Encode(raw)
	default:
		return nil, &Error{Path: name, Message: fmt.Sprintf("unsupported config format %q", ext)}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}

	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(name, err)
	}

	cfg := &Config{}
	if err := v.Decode(cfg); err != nil {
		return nil, formatCUEError(name, err)
	}
	cfg.Path = name

	if _, err := cfg.Definitions(); err != nil {
		return nil, &Error{Path: name, Message: err.Error()}
	}
	return cfg, nil
}

// Definitions parses Defines.
func (c *Config) Definitions() ([]preprocess.Definition, error) {
	defs := make([]preprocess.Definition, 0, len(c.Defines))
	for _, s := range c.Defines {
		d, err := preprocess.ParseDefine(s)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Polarity returns the conditional polarity selected by the config.
func (c *Config) Polarity() preprocess.Polarity {
	if c.InvertedPolarity {
		return preprocess.PolarityInverted
	}
	return preprocess.PolarityStandard
}

// formatCUEError keeps the first error and its position.
func formatCUEError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
