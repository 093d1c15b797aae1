package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the output to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nOutput:\n")
	for _, line := range strings.SplitAfter(e.Output, "\n") {
		if line != "" {
			fmt.Fprintf(&buf, "  | %s", line)
		}
	}
	if e.Output != "" && !strings.HasSuffix(e.Output, "\n") {
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOutputContains:
		if !strings.Contains(result.Output, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output containing %q", a.Text),
				Actual:   "not found",
				Output:   result.Output,
			}
		}
	case AssertOutputExcludes:
		if strings.Contains(result.Output, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output without %q", a.Text),
				Actual:   "found",
				Output:   result.Output,
			}
		}
	case AssertDependsOn:
		for _, d := range result.Dependencies {
			if d.Name == a.Name {
				return nil
			}
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("dependency %s", a.Name),
			Actual:   fmt.Sprintf("dependencies %v", dependencyNames(result)),
			Output:   result.Output,
		}
	case AssertDependencyCount:
		if len(result.Dependencies) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d dependencies", a.Count),
				Actual:   fmt.Sprintf("%d dependencies %v", len(result.Dependencies), dependencyNames(result)),
				Output:   result.Output,
			}
		}
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}

func dependencyNames(result *Result) []string {
	names := make([]string, len(result.Dependencies))
	for i, d := range result.Dependencies {
		names[i] = d.Name
	}
	return names
}
