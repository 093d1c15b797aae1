package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bubby932/rhl/internal/cache"
	"github.com/bubby932/rhl/internal/config"
	"github.com/bubby932/rhl/internal/pipeline"
	"github.com/bubby932/rhl/internal/preprocess"
)

// stdinName names standard input in errors and cache records.
const stdinName = "<stdin>"

// PreprocessOptions holds flags for the preprocess command.
type PreprocessOptions struct {
	*RootOptions
	Output           string   // output file path, stdout if empty
	Defines          []string // -D NAME[=VALUE], appended to config defines
	IncludeDirs      []string // -I dir, searched after config include dirs
	InvertedPolarity bool
	MaxIncludeDepth  int
	NormalizeUnicode bool
	Cache            string // sqlite path, overrides config
	NoCache          bool
}

// PreprocessResult is the JSON payload of a successful run.
type PreprocessResult struct {
	RunID        string                  `json:"run_id"`
	Source       string                  `json:"source"`
	Output       string                  `json:"output"`
	OutputFile   string                  `json:"output_file,omitempty"`
	CacheHit     bool                    `json:"cache_hit"`
	Dependencies []preprocess.Dependency `json:"dependencies"`
}

// NewPreprocessCommand creates the preprocess command.
func NewPreprocessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreprocessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "preprocess [file|-]",
		Aliases: []string{"pp"},
		Short:   "Preprocess a RoseHip source",
		Long: `Run the preprocessor over a source file, or standard input if the
file is "-" or omitted, and write the result.

Flags override the project config; -D and -I add to it.

Exit codes:
  0 - Success
  1 - Preprocessing error
  2 - Command error (unreadable input, invalid config, etc.)

Examples:
  rhl preprocess main.rhl -o main.out.rhl
  rhl preprocess -D DEBUG -D LEVEL=3 main.rhl
  cat main.rhl | rhl preprocess --inverted-polarity
  rhl preprocess main.rhl --cache .rhl-cache.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runPreprocess(opts, input, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringArrayVarP(&opts.Defines, "define", "D", nil, "define NAME or NAME=VALUE (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.IncludeDirs, "include-dir", "I", nil, "directory searched by #with (repeatable)")
	cmd.Flags().BoolVar(&opts.InvertedPolarity, "inverted-polarity", false, "skip #ifdef blocks whose name is defined")
	cmd.Flags().IntVar(&opts.MaxIncludeDepth, "max-include-depth", 0, "maximum #with nesting (default 64)")
	cmd.Flags().BoolVar(&opts.NormalizeUnicode, "nfc", false, "normalize sources to Unicode NFC")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "sqlite build cache path")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "ignore any configured cache")

	return cmd
}

func runPreprocess(opts *PreprocessOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, ".")
	if err != nil {
		return configFailure(formatter, err)
	}
	if err := applyFlags(opts, cmd, cfg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlags, err.Error(), nil)
	}
	if cfg.Path != "" {
		formatter.VerboseLog("Using config %s", cfg.Path)
	}

	name, source, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("input not found: %s", input), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeReadInput, err.Error(), nil)
	}

	req := pipeline.Request{
		Name:   name,
		Source: source,
		Config: cfg,
		Logger: logger,
	}

	if cfg.Cache != "" && !opts.NoCache {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("error closing cache", "error", closeErr)
			}
		}()
		req.Cache = store
	}

	res, err := pipeline.Run(cmd.Context(), req)
	if err != nil {
		return preprocessFailure(formatter, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(res.Output), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.Format == "json" {
		deps := res.Dependencies
		if deps == nil {
			deps = []preprocess.Dependency{}
		}
		return formatter.Success(PreprocessResult{
			RunID:        res.RunID,
			Source:       name,
			Output:       res.Output,
			OutputFile:   opts.Output,
			CacheHit:     res.CacheHit,
			Dependencies: deps,
		})
	}

	if opts.Output == "" {
		if _, err := io.WriteString(formatter.Writer, res.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}
	return nil
}

// applyFlags merges command-line flags into cfg.
func applyFlags(opts *PreprocessOptions, cmd *cobra.Command, cfg *config.Config) error {
	for _, d := range opts.Defines {
		if _, err := preprocess.ParseDefine(d); err != nil {
			return err
		}
	}
	cfg.Defines = append(cfg.Defines, opts.Defines...)
	cfg.IncludeDirs = append(cfg.IncludeDirs, opts.IncludeDirs...)

	flags := cmd.Flags()
	if flags.Changed("inverted-polarity") {
		cfg.InvertedPolarity = opts.InvertedPolarity
	}
	if flags.Changed("nfc") {
		cfg.NormalizeUnicode = opts.NormalizeUnicode
	}
	if flags.Changed("max-include-depth") {
		if opts.MaxIncludeDepth < 1 {
			return fmt.Errorf("--max-include-depth must be at least 1, got %d", opts.MaxIncludeDepth)
		}
		cfg.MaxIncludeDepth = opts.MaxIncludeDepth
	}
	if opts.Cache != "" {
		cfg.Cache = opts.Cache
	}
	return nil
}

func readInput(input string, stdin io.Reader) (name, source string, err error) {
	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading standard input: %w", err)
		}
		return stdinName, string(data), nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return "", "", err
	}
	return input, string(data), nil
}
