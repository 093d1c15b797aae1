package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bubby932/rhl/internal/cache"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	Path  string
	Limit int
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the build cache",
		Long: `Inspect or clear the sqlite build cache.

The cache path comes from --cache or, if unset, from the project config.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "cache", "", "sqlite build cache path")

	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Show cache statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, func(f *OutputFormatter, s *cache.Store) error {
				st, err := s.Stats(cmd.Context())
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
				}
				if f.Format == "json" {
					return f.Success(st)
				}
				fmt.Fprintf(f.Writer, "entries:      %d\n", st.Entries)
				fmt.Fprintf(f.Writer, "dependencies: %d\n", st.Dependencies)
				fmt.Fprintf(f.Writer, "runs:         %d\n", st.Runs)
				fmt.Fprintf(f.Writer, "hits:         %d\n", st.Hits)
				return nil
			})
		},
	}

	runs := &cobra.Command{
		Use:           "runs",
		Short:         "List recent runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, func(f *OutputFormatter, s *cache.Store) error {
				list, err := s.Runs(cmd.Context(), opts.Limit)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
				}
				if f.Format == "json" {
					return f.Success(list)
				}
				for _, r := range list {
					status := "miss"
					if r.Hit {
						status = "hit"
					}
					fmt.Fprintf(f.Writer, "%s\t%s\t%s\n", r.ID, status, r.SourceName)
				}
				return nil
			})
		},
	}
	runs.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:           "clear",
		Short:         "Remove all cache entries and runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, func(f *OutputFormatter, s *cache.Store) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
				}
				if f.Format == "json" {
					return f.Success(map[string]bool{"cleared": true})
				}
				fmt.Fprintln(f.Writer, "Cache cleared.")
				return nil
			})
		},
	}

	cmd.AddCommand(stats, runs, clearCmd)
	return cmd
}

// withCache resolves the cache path, opens the store and runs fn.
func withCache(opts *CacheOptions, cmd *cobra.Command, fn func(*OutputFormatter, *cache.Store) error) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := opts.Path
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions, ".")
		if err != nil {
			return configFailure(formatter, err)
		}
		path = cfg.Cache
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlags, "no cache configured: use --cache or set cache in the project config", nil)
	}

	formatter.VerboseLog("Opening cache %s", path)
	store, err := cache.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer store.Close()

	return fn(formatter, store)
}
