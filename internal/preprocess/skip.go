package preprocess

// skipBranch advances the cursor past a branch that is not emitted and
// returns the closer (#else or #endif) that ended it. The cursor is left on
// the line after the closer.
//
// depth counts conditionals opened inside the skipped region. A closer seen
// at depth zero belongs to the conditional being skipped.
func (p *Preprocessor) skipBranch(opener int) (string, error) {
	depth := 0

	for ; p.index < len(p.lines); p.index++ {
		line := p.lines[p.index]
		if !isDirective(line) {
			continue
		}

		name, _ := splitDirective(line)
		switch name {
		case dirIfdef, dirIfundef:
			depth++
		case dirEndif:
			if depth == 0 {
				p.index++
				return dirEndif, nil
			}
			depth--
		case dirElse:
			if depth == 0 {
				p.index++
				return dirElse, nil
			}
		}
	}

	return "", &Error{
		Code:    ErrCodeUnterminatedConditional,
		Message: "expected #endif or #else before end of input",
		Source:  p.opts.Name,
		Line:    opener + 1,
	}
}
