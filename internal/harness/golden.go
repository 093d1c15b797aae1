package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden-file form of a scenario result. It leaves out
// content hashes and error messages so fixtures stay readable.
type Snapshot struct {
	Scenario     string         `json:"scenario"`
	Output       string         `json:"output"`
	Error        *SnapshotError `json:"error,omitempty"`
	Dependencies []string       `json:"dependencies"`
}

// SnapshotError records the code and line of a preprocessing error.
type SnapshotError struct {
	Code string `json:"code"`
	Line int    `json:"line"`
}

// NewSnapshot builds the snapshot of result for the named scenario.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario:     name,
		Output:       result.Output,
		Dependencies: make([]string, 0, len(result.Dependencies)),
	}
	if result.ErrorCode != "" {
		s.Error = &SnapshotError{Code: result.ErrorCode, Line: result.ErrorLine}
	}
	for _, d := range result.Dependencies {
		s.Dependencies = append(s.Dependencies, string(d.Kind)+":"+d.Name)
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// HTML characters are not escaped since outputs are compared verbatim.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
