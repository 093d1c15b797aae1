package preprocess

import (
	"strings"
	"unicode"
)

// Marker starts every directive line.
const Marker = "#"

const (
	dirDefine   = "#define"
	dirUndefine = "#undefine"
	dirIfdef    = "#ifdef"
	dirIfundef  = "#ifundef"
	dirElse     = "#else"
	dirEndif    = "#endif"
	dirWith     = "#with"
)

func isDirective(line string) bool {
	return strings.HasPrefix(line, Marker)
}

// splitDirective returns the directive word and the trimmed rest of the line.
func splitDirective(line string) (name, rest string) {
	return cutSpace(strings.TrimSpace(line))
}

// cutSpace splits s at its first run of whitespace.
func cutSpace(s string) (head, tail string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// dispatch executes the directive on the current line. Every handler leaves
// the cursor on the next line to process.
func (p *Preprocessor) dispatch(line string) error {
	name, rest := splitDirective(line)
	if name == Marker {
		return p.errorf(ErrCodeMalformedDirective, "", "cannot extract directive name from %q", line)
	}

	p.opts.Logger.Debug("directive",
		"source", p.opts.Name,
		"line", p.index+1,
		"directive", name,
	)

	switch name {
	case dirDefine:
		return p.doDefine(rest)
	case dirUndefine:
		return p.doUndefine(rest)
	case dirIfdef, dirIfundef:
		return p.doConditional(name, rest)
	case dirElse:
		return p.doElse()
	case dirEndif:
		return p.doEndif()
	case dirWith:
		return p.doWith(rest)
	default:
		return p.errorf(ErrCodeUnknownDirective, name, "unknown directive %q", name)
	}
}

// doDefine handles `#define <ident> [value...]`. The value is the rest of
// the line after the identifier.
func (p *Preprocessor) doDefine(rest string) error {
	ident, value := cutSpace(rest)
	if ident == "" {
		return p.errorf(ErrCodeMalformedDirective, dirDefine, "expected identifier after %s", dirDefine)
	}

	if value == "" {
		p.defs.Define(ident)
	} else {
		p.defs.DefineValue(ident, value)
	}
	p.index++
	return nil
}

func (p *Preprocessor) doUndefine(rest string) error {
	ident, _ := cutSpace(rest)
	if ident == "" {
		return p.errorf(ErrCodeMalformedDirective, dirUndefine, "expected identifier after %s", dirUndefine)
	}

	p.defs.Undefine(ident)
	p.index++
	return nil
}

// doConditional handles #ifdef and #ifundef.
func (p *Preprocessor) doConditional(name, rest string) error {
	ident, _ := cutSpace(rest)
	if ident == "" {
		return p.errorf(ErrCodeMalformedDirective, name, "expected identifier after %s", name)
	}

	keep := p.defs.IsDefined(ident)
	if name == dirIfundef {
		keep = !keep
	}
	if p.opts.Polarity == PolarityInverted {
		keep = !keep
	}

	opener := p.index
	p.index++

	if keep {
		p.open = append(p.open, opener)
		return nil
	}

	closer, err := p.skipBranch(opener)
	if err != nil {
		return err
	}
	if closer == dirElse {
		// The alternate branch is emitted and still needs its #endif.
		p.open = append(p.open, opener)
	}
	return nil
}

// doElse discards the alternate branch of a conditional whose first branch
// was emitted.
func (p *Preprocessor) doElse() error {
	opener := p.index
	p.index++

	closer, err := p.skipBranch(opener)
	if err != nil {
		return err
	}
	if closer == dirEndif && len(p.open) > 0 {
		p.open = p.open[:len(p.open)-1]
	}
	return nil
}

func (p *Preprocessor) doEndif() error {
	if len(p.open) == 0 {
		return p.errorf(ErrCodeUnexpectedCloser, dirEndif, "unexpected %s", dirEndif)
	}

	p.open = p.open[:len(p.open)-1]
	p.index++
	return nil
}
