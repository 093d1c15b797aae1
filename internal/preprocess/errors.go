package preprocess

import (
	"errors"
	"fmt"
)

// Error is a fatal preprocessing error.
//
// Every error aborts the session that detects it and is returned unchanged
// through any enclosing sessions. There is no partial output.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Source names the text being processed ("<input>", a path or "$lib").
	Source string

	// Line is the 1-based line number within Source, or 0 if not applicable.
	Line int

	// Directive is the directive word involved, if any.
	Directive string

	// Err is the underlying cause (for example an I/O failure).
	Err error
}

// ErrorCode categorizes preprocessing errors.
type ErrorCode string

const (
	// ErrCodeMalformedDirective indicates a directive missing a required argument
	// or a marker line with no directive word at all.
	ErrCodeMalformedDirective ErrorCode = "MALFORMED_DIRECTIVE"

	// ErrCodeUnknownDirective indicates a directive word that is not recognized.
	ErrCodeUnknownDirective ErrorCode = "UNKNOWN_DIRECTIVE"

	// ErrCodeUnterminatedConditional indicates end of input inside a conditional.
	ErrCodeUnterminatedConditional ErrorCode = "UNTERMINATED_CONDITIONAL"

	// ErrCodeUnexpectedCloser indicates an #endif with no open conditional.
	ErrCodeUnexpectedCloser ErrorCode = "UNEXPECTED_CLOSER"

	// ErrCodeUnresolvableInclude indicates a #with naming an absent library or
	// an unreadable file.
	ErrCodeUnresolvableInclude ErrorCode = "UNRESOLVABLE_INCLUDE"

	// ErrCodeIncludeDepthExceeded indicates nested #with beyond the configured depth.
	ErrCodeIncludeDepthExceeded ErrorCode = "INCLUDE_DEPTH_EXCEEDED"

	// ErrCodeIncludeCycle indicates a #with of a source that is already being included.
	ErrCodeIncludeCycle ErrorCode = "INCLUDE_CYCLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s:%d: %s", e.Source, e.Line, msg)
	} else if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsMalformed reports whether err is a malformed directive error.
func IsMalformed(err error) bool {
	return CodeOf(err) == ErrCodeMalformedDirective
}

// IsUnknownDirective reports whether err is an unknown directive error.
func IsUnknownDirective(err error) bool {
	return CodeOf(err) == ErrCodeUnknownDirective
}

// IsUnterminated reports whether err is an unterminated conditional error.
func IsUnterminated(err error) bool {
	return CodeOf(err) == ErrCodeUnterminatedConditional
}

// IsUnexpectedCloser reports whether err is an unexpected #endif error.
func IsUnexpectedCloser(err error) bool {
	return CodeOf(err) == ErrCodeUnexpectedCloser
}

// IsUnresolvableInclude reports whether err is an unresolvable #with error.
func IsUnresolvableInclude(err error) bool {
	return CodeOf(err) == ErrCodeUnresolvableInclude
}

// IsIncludeLimit reports whether err stopped a runaway include chain,
// either by depth or by cycle detection.
func IsIncludeLimit(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeIncludeDepthExceeded || code == ErrCodeIncludeCycle
}

func (p *Preprocessor) errorf(code ErrorCode, directive string, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Source:    p.opts.Name,
		Line:      p.index + 1,
		Directive: directive,
	}
}
