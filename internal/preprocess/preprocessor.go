package preprocess

import (
	"fmt"
	"strings"
)

// Preprocessor is one preprocessing session: a body of source text split
// into lines, a cursor, a definition table and the accumulated output.
//
// Each `#with` runs the spliced text in a child session whose definition
// table starts empty. Definitions never flow into or out of an include.
//
// A Preprocessor is single-use and not safe for concurrent use.
type Preprocessor struct {
	lines []string
	index int
	defs  *Definitions
	out   strings.Builder

	// open holds the opener line indexes of conditionals whose branch is
	// currently being emitted, innermost last.
	open []int

	opts  Options
	depth int
	inc   *includeState
}

// New creates a session over source.
func New(source string, opts Options) *Preprocessor {
	opts = opts.withDefaults()
	return &Preprocessor{
		lines: splitLines(source, opts.NormalizeUnicode),
		defs:  NewDefinitions(),
		opts:  opts,
		inc:   newIncludeState(),
	}
}

// Process runs a fresh session over source with the given initial definitions.
func Process(source string, opts Options, defs ...Definition) (string, error) {
	p := New(source, opts)
	for _, d := range defs {
		p.Set(d)
	}
	return p.Run()
}

// Set pre-populates the definition table. Call before Run.
func (p *Preprocessor) Set(d Definition) {
	p.defs.Set(d)
}

// Define defines name without a value.
func (p *Preprocessor) Define(name string) {
	p.defs.Define(name)
}

// DefineValue defines name with a replacement value.
func (p *Preprocessor) DefineValue(name, value string) {
	p.defs.DefineValue(name, value)
}

// Definitions exposes the session's definition table.
func (p *Preprocessor) Definitions() *Definitions {
	return p.defs
}

// Dependencies returns every library and file spliced in by the session,
// transitively, in the order they were first included.
func (p *Preprocessor) Dependencies() []Dependency {
	return append([]Dependency(nil), p.inc.deps...)
}

// Run processes the session to completion and returns the output text.
// The first error aborts the run and no output is returned.
func (p *Preprocessor) Run() (string, error) {
	for p.index < len(p.lines) {
		line := p.lines[p.index]

		if !isDirective(line) {
			p.emit(p.defs.Expand(line))
			p.index++
			continue
		}

		if err := p.dispatch(line); err != nil {
			return "", err
		}
	}

	if n := len(p.open); n > 0 {
		return "", &Error{
			Code:    ErrCodeUnterminatedConditional,
			Message: "expected #endif before end of input",
			Source:  p.opts.Name,
			Line:    p.open[n-1] + 1,
		}
	}

	return p.out.String(), nil
}

func (p *Preprocessor) emit(line string) {
	p.out.WriteString(line)
	p.out.WriteByte('\n')
}

// child creates the session that processes spliced-in text.
func (p *Preprocessor) child(source, name string) *Preprocessor {
	opts := p.opts
	opts.Name = name
	return &Preprocessor{
		lines: splitLines(source, opts.NormalizeUnicode),
		defs:  NewDefinitions(),
		opts:  opts,
		depth: p.depth + 1,
		inc:   p.inc,
	}
}

// String dumps the session input and output for debugging.
func (p *Preprocessor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preprocessor %s:\n", p.opts.Name)
	b.WriteString("  Input:\n")
	for _, line := range p.lines {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	b.WriteString("  Output:\n")
	b.WriteString(p.out.String())
	return b.String()
}
