package preprocess

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bubby932/rhl/internal/stdlib"
)

// DefaultMaxIncludeDepth bounds nested #with chains when Options leaves it unset.
const DefaultMaxIncludeDepth = 64

// DefaultSourceName names the top-level input when Options.Name is empty.
const DefaultSourceName = "<input>"

// Polarity selects how #ifdef and #ifundef decide which branch to keep.
type Polarity int

const (
	// PolarityStandard keeps an #ifdef block when the name is defined and an
	// #ifundef block when it is not.
	PolarityStandard Polarity = iota

	// PolarityInverted skips an #ifdef block when the name is defined and an
	// #ifundef block when it is not. Existing RHL sources written against
	// the first preprocessor release depend on it.
	PolarityInverted
)

// String returns the polarity name used in configuration and logs.
func (p Polarity) String() string {
	if p == PolarityInverted {
		return "inverted"
	}
	return "standard"
}

// ReadFileFunc reads an included file.
type ReadFileFunc func(name string) ([]byte, error)

// Options configures a Preprocessor. The zero value is usable.
type Options struct {
	// Name identifies the top-level source in errors and dependency records.
	Name string

	// Registry resolves `#with $name`. Nil means stdlib.Default().
	Registry *stdlib.Registry

	// ReadFile reads `#with path` targets. Nil means os.ReadFile.
	ReadFile ReadFileFunc

	// IncludeDirs are searched, in order, for relative paths that do not
	// exist relative to the working directory.
	IncludeDirs []string

	// MaxIncludeDepth bounds nested #with. Zero means DefaultMaxIncludeDepth.
	MaxIncludeDepth int

	// Polarity selects conditional semantics.
	Polarity Polarity

	// NormalizeUnicode converts every source (including spliced ones) to NFC
	// before it is split into lines.
	NormalizeUnicode bool

	// Logger receives debug records. Nil discards them.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultSourceName
	}
	if o.Registry == nil {
		o.Registry = stdlib.Default()
	}
	if o.ReadFile == nil {
		o.ReadFile = os.ReadFile
	}
	if o.MaxIncludeDepth <= 0 {
		o.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// splitLines splits text on "\n", dropping a trailing "\r" from each line.
// A final newline does not produce an extra empty line.
func splitLines(text string, normalize bool) []string {
	if normalize {
		text = norm.NFC.String(text)
	}
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
