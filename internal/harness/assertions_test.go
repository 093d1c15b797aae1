package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubby932/rhl/internal/preprocess"
)

func resultWith(output string, deps ...string) *Result {
	r := NewResult()
	r.Output = output
	for _, d := range deps {
		r.Dependencies = append(r.Dependencies, preprocess.Dependency{Kind: preprocess.DependencyFile, Name: d})
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	r := resultWith("hello\nworld\n", "a.rhl")

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertOutputContains, Text: "world"},
		{Type: AssertOutputExcludes, Text: "bye"},
		{Type: AssertDependsOn, Name: "a.rhl"},
		{Type: AssertDependencyCount, Count: 1},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_ZeroDependencies(t *testing.T) {
	errs := EvaluateAssertions(resultWith("x\n"), []Assertion{{Type: AssertDependencyCount}})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(resultWith(""), []Assertion{{Type: "trace_order"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown assertion type")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOutputContains,
		Expected: `output containing "x"`,
		Actual:   "not found",
		Output:   "one\ntwo",
	}

	want := "Assertion failed: output_contains\n" +
		"  Expected: output containing \"x\"\n" +
		"  Actual: not found\n" +
		"\nOutput:\n" +
		"  | one\n" +
		"  | two\n"
	assert.Equal(t, want, err.Error())
}

func TestAssertionError_DependsOnListsNames(t *testing.T) {
	errs := EvaluateAssertions(resultWith("", "a.rhl", "b.rhl"), []Assertion{{Type: AssertDependsOn, Name: "c.rhl"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "[a.rhl b.rhl]")
}
