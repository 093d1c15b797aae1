package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bubby932/rhl/internal/preprocess"
)

// Scenario defines a preprocessing test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Defines are initial definitions, NAME or NAME=VALUE.
	Defines []string `yaml:"defines,omitempty"`

	InvertedPolarity bool     `yaml:"inverted_polarity,omitempty"`
	MaxIncludeDepth  int      `yaml:"max_include_depth,omitempty"`
	NormalizeUnicode bool     `yaml:"normalize_unicode,omitempty"`
	IncludeDirs      []string `yaml:"include_dirs,omitempty"`

	// Libraries are added to the builtin libraries, replacing any with the
	// same name.
	Libraries map[string]string `yaml:"libraries,omitempty"`

	// Files backs #with of a path. Nothing is read from disk.
	Files map[string]string `yaml:"files,omitempty"`

	Input string `yaml:"input"`

	Expect Expect `yaml:"expect"`

	// Assertions are extra checks on a successful run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected outcome. Exactly one of Output and Error is set.
type Expect struct {
	Output *string `yaml:"output,omitempty"`

	// Error is an error code such as UNKNOWN_DIRECTIVE.
	Error string `yaml:"error,omitempty"`

	// Line is the expected 1-based error line. Zero skips the check.
	Line int `yaml:"line,omitempty"`
}

// Assertion is an extra check on a successful run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is used by output_contains and output_excludes.
	Text string `yaml:"text,omitempty"`

	// Name is used by depends_on.
	Name string `yaml:"name,omitempty"`

	// Count is used by dependency_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains  = "output_contains"
	AssertOutputExcludes  = "output_excludes"
	AssertDependsOn       = "depends_on"
	AssertDependencyCount = "dependency_count"
)

var knownCodes = map[preprocess.ErrorCode]bool{
	preprocess.ErrCodeMalformedDirective:      true,
	preprocess.ErrCodeUnknownDirective:        true,
	preprocess.ErrCodeUnterminatedConditional: true,
	preprocess.ErrCodeUnexpectedCloser:        true,
	preprocess.ErrCodeUnresolvableInclude:     true,
	preprocess.ErrCodeIncludeDepthExceeded:    true,
	preprocess.ErrCodeIncludeCycle:            true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every scenario file under dir.
func LoadScenarios(dir string) ([]*Scenario, error) {
	files, err := FindScenarios(dir, "")
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(files))
	for _, path := range files {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted. A
// non-empty filter is a glob matched against file names without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := filepath.Base(path)
			name = name[:len(name)-len(ext)]
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxIncludeDepth < 0 {
		return fmt.Errorf("max_include_depth must be non-negative")
	}
	for _, d := range s.Defines {
		if _, err := preprocess.ParseDefine(d); err != nil {
			return fmt.Errorf("defines: %w", err)
		}
	}

	switch {
	case s.Expect.Output == nil && s.Expect.Error == "":
		return fmt.Errorf("expect: one of output or error is required")
	case s.Expect.Output != nil && s.Expect.Error != "":
		return fmt.Errorf("expect: output and error are mutually exclusive")
	case s.Expect.Error != "" && !knownCodes[preprocess.ErrorCode(s.Expect.Error)]:
		return fmt.Errorf("expect: unknown error code %q", s.Expect.Error)
	case s.Expect.Error == "" && s.Expect.Line != 0:
		return fmt.Errorf("expect: line requires error")
	case s.Expect.Line < 0:
		return fmt.Errorf("expect: line must be positive")
	}

	if s.Expect.Error != "" && len(s.Assertions) > 0 {
		return fmt.Errorf("assertions require an expected output")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains, AssertOutputExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertDependsOn:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for depends_on", index)
		}
	case AssertDependencyCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dependency_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
