package stdlib

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Marker prefixes every builtin library name.
const Marker = "$"

// Ext is the file extension of embedded library sources.
const Ext = ".rhl"

//go:embed lib/*.rhl
var libFS embed.FS

// ErrNotFound is returned by Lookup when no library has the requested name.
var ErrNotFound = errors.New("builtin library not found")

// Registry maps builtin library names to their source text.
// A Registry is never mutated after construction and is safe to share
// between any number of preprocessing sessions.
type Registry struct {
	libs map[string]string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded lib directory.
// It is constructed on first use; every call returns the same value.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := NewRegistry(libFS, "lib")
		if err != nil {
			// Embedded files are fixed at build time.
			panic(fmt.Sprintf("stdlib: loading embedded libraries: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// NewRegistry registers every *.rhl file directly under dir in fsys.
// lib/std.rhl becomes "$std".
func NewRegistry(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read library dir %q: %w", dir, err)
	}

	libs := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != Ext {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read library %q: %w", entry.Name(), err)
		}
		name := Marker + strings.TrimSuffix(entry.Name(), Ext)
		libs[name] = string(data)
	}

	return &Registry{libs: libs}, nil
}

// FromMap builds a registry from name/source pairs. Names missing the
// marker get it prepended. The map is copied.
func FromMap(m map[string]string) *Registry {
	libs := make(map[string]string, len(m))
	for name, src := range m {
		if !strings.HasPrefix(name, Marker) {
			name = Marker + name
		}
		libs[name] = src
	}
	return &Registry{libs: libs}
}

// Lookup returns the source of the named library.
func (r *Registry) Lookup(name string) (string, error) {
	src, ok := r.libs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return src, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.libs[name]
	return ok
}

// Names returns the registered library names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered libraries.
func (r *Registry) Len() int {
	return len(r.libs)
}
