// Package preprocess implements the RHL source preprocessor.
//
// The preprocessor runs over source text line by line before any
// tokenizing. A line whose first character is '#' is a directive; every
// other line has the session's valued definitions substituted into it and
// is appended to the output.
//
// # Directives
//
//	#define <ident>            define ident with no value
//	#define <ident> <value...> define ident; value is the rest of the line
//	#undefine <ident>          remove ident (no-op if absent)
//	#ifdef <ident>             conditional on ident being defined
//	#ifundef <ident>           conditional on ident not being defined
//	#else                      alternate branch of the innermost conditional
//	#endif                     close the innermost conditional
//	#with $name                splice in a builtin library (see package stdlib)
//	#with path                 splice in a file, relative to the working directory
//
// Spliced text runs in a child session with an empty definition table, so
// definitions made before a #with are invisible inside it and definitions
// made inside it do not leak out.
//
// # Polarity
//
// PolarityStandard keeps an #ifdef block when its identifier is defined.
// PolarityInverted reproduces the first release, which skipped the block
// in that case (and symmetrically for #ifundef).
//
// # Substitution
//
// Substitution is plain substring replacement without word boundaries.
// Longer names are matched first and replaced text is not re-scanned.
//
// # Errors
//
// Any error aborts the whole run, including enclosing sessions. Errors are
// *Error values carrying an ErrorCode and the 1-based line they were
// detected on.
package preprocess
