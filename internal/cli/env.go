package cli

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/bubby932/rhl/internal/config"
	"github.com/bubby932/rhl/internal/preprocess"
)

// newLogger returns a text logger on w. Verbose runs log at debug level,
// which includes every directive and include.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads --config, or the project file in dir if there is one.
func loadConfig(opts *RootOptions, dir string) (*config.Config, error) {
	if opts.Config != "" {
		return config.Load(opts.Config)
	}
	return config.LoadDefault(dir)
}

// configFailure reports a config error. A missing explicit config file is
// reported as not found.
func configFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
}

var preprocessErrCodes = map[preprocess.ErrorCode]string{
	preprocess.ErrCodeMalformedDirective:      ErrCodeMalformedDirective,
	preprocess.ErrCodeUnknownDirective:        ErrCodeUnknownDirective,
	preprocess.ErrCodeUnterminatedConditional: ErrCodeUnterminated,
	preprocess.ErrCodeUnexpectedCloser:        ErrCodeUnexpectedCloser,
	preprocess.ErrCodeUnresolvableInclude:     ErrCodeUnresolvableInclude,
	preprocess.ErrCodeIncludeDepthExceeded:    ErrCodeIncludeDepthExceeded,
	preprocess.ErrCodeIncludeCycle:            ErrCodeIncludeCycle,
}

// PreprocessErrorDetails is the JSON detail of a preprocessing error.
type PreprocessErrorDetails struct {
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	Line      int    `json:"line,omitempty"`
	Directive string `json:"directive,omitempty"`
}

// preprocessFailure reports err, which came from the pipeline.
func preprocessFailure(f *OutputFormatter, err error) error {
	var perr *preprocess.Error
	if !errors.As(err, &perr) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	code, ok := preprocessErrCodes[perr.Code]
	if !ok {
		code = ErrCodeGeneric
	}
	details := PreprocessErrorDetails{
		Kind:      string(perr.Code),
		Source:    perr.Source,
		Line:      perr.Line,
		Directive: perr.Directive,
	}
	return f.Fail(ExitFailure, code, perr.Error(), details)
}
