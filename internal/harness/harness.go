package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/bubby932/rhl/internal/config"
	"github.com/bubby932/rhl/internal/pipeline"
	"github.com/bubby932/rhl/internal/preprocess"
	"github.com/bubby932/rhl/internal/stdlib"
	"github.com/bubby932/rhl/internal/testutil"
)

// SourceName names the scenario input in errors.
const SourceName = "input.rhl"

// RunID is the run id of every scenario run.
const RunID = "test-run"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the outcome matched the expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Output       string                  `json:"output"`
	Dependencies []preprocess.Dependency `json:"dependencies"`

	// ErrorCode, ErrorLine and ErrorMessage describe a preprocessing error.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorLine    int    `json:"error_line,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors lists expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:         true,
		Dependencies: []preprocess.Dependency{},
		Errors:       []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario. A returned error means the scenario could not be
// run at all; a scenario that ran but did not match has Pass set to false.
func Run(scenario *Scenario) (*Result, error) {
	reg, err := registry(scenario.Libraries)
	if err != nil {
		return nil, err
	}

	req := pipeline.Request{
		Name:   SourceName,
		Source: scenario.Input,
		Config: &config.Config{
			Defines:          scenario.Defines,
			IncludeDirs:      scenario.IncludeDirs,
			MaxIncludeDepth:  scenario.MaxIncludeDepth,
			InvertedPolarity: scenario.InvertedPolarity,
			NormalizeUnicode: scenario.NormalizeUnicode,
		},
		Registry: reg,
		ReadFile: fileReader(scenario.Files),
		IDs:      testutil.FixedID(RunID),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	res, err := pipeline.Run(context.Background(), req)
	if err != nil {
		var perr *preprocess.Error
		if !errors.As(err, &perr) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCode = string(perr.Code)
		result.ErrorLine = perr.Line
		result.ErrorMessage = perr.Error()
	} else {
		result.Output = res.Output
		if len(res.Dependencies) > 0 {
			result.Dependencies = res.Dependencies
		}
	}

	checkExpect(scenario.Expect, result)
	if result.ErrorCode == "" {
		for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
			result.AddError(msg)
		}
	}
	return result, nil
}

func checkExpect(want Expect, result *Result) {
	if want.Error != "" {
		switch {
		case result.ErrorCode == "":
			result.AddError(fmt.Sprintf("expected error %s, got output %q", want.Error, result.Output))
		case result.ErrorCode != want.Error:
			result.AddError(fmt.Sprintf("expected error %s, got %s", want.Error, result.ErrorMessage))
		case want.Line != 0 && result.ErrorLine != want.Line:
			result.AddError(fmt.Sprintf("expected error on line %d, got %s", want.Line, result.ErrorMessage))
		}
		return
	}

	if result.ErrorCode != "" {
		result.AddError(fmt.Sprintf("unexpected error: %s", result.ErrorMessage))
		return
	}
	if want.Output != nil && result.Output != *want.Output {
		result.AddError(fmt.Sprintf("output mismatch\n  Expected: %q\n  Actual: %q", *want.Output, result.Output))
	}
}

// registry returns the builtin libraries overlaid with extra.
func registry(extra map[string]string) (*stdlib.Registry, error) {
	base := stdlib.Default()
	if len(extra) == 0 {
		return base, nil
	}

	libs := make(map[string]string, base.Len()+len(extra))
	for _, name := range base.Names() {
		src, err := base.Lookup(name)
		if err != nil {
			return nil, err
		}
		libs[name] = src
	}
	for name, src := range extra {
		libs[name] = src
	}
	return stdlib.FromMap(libs), nil
}

func fileReader(files map[string]string) preprocess.ReadFileFunc {
	return func(name string) ([]byte, error) {
		src, ok := files[name]
		if !ok {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return []byte(src), nil
	}
}
