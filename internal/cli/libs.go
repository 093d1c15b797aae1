package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bubby932/rhl/internal/stdlib"
)

// LibraryInfo describes one builtin library.
type LibraryInfo struct {
	Name   string `json:"name"`
	Lines  int    `json:"lines"`
	Source string `json:"source,omitempty"`
}

// NewLibsCommand creates the libs command.
func NewLibsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "libs [name]",
		Short: "List builtin libraries or print one",
		Long: `List the libraries available to #with $name, or print the source of
one of them.

Examples:
  rhl libs
  rhl libs std`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if len(args) == 1 {
				return showLibrary(formatter, stdlib.Default(), args[0])
			}
			return listLibraries(formatter, stdlib.Default())
		},
	}
}

func listLibraries(f *OutputFormatter, reg *stdlib.Registry) error {
	infos := make([]LibraryInfo, 0, reg.Len())
	for _, name := range reg.Names() {
		src, err := reg.Lookup(name)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		infos = append(infos, LibraryInfo{Name: name, Lines: countLines(src)})
	}

	if f.Format == "json" {
		return f.Success(infos)
	}
	for _, info := range infos {
		fmt.Fprintf(f.Writer, "%s\t%d lines\n", info.Name, info.Lines)
	}
	return nil
}

func showLibrary(f *OutputFormatter, reg *stdlib.Registry, name string) error {
	if !strings.HasPrefix(name, stdlib.Marker) {
		name = stdlib.Marker + name
	}
	src, err := reg.Lookup(name)
	if err != nil {
		if errors.Is(err, stdlib.ErrNotFound) {
			return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if f.Format == "json" {
		return f.Success(LibraryInfo{Name: name, Lines: countLines(src), Source: src})
	}
	fmt.Fprint(f.Writer, src)
	return nil
}

func countLines(src string) int {
	if src == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(src, "\n"), "\n") + 1
}
