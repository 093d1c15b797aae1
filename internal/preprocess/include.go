package preprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bubby932/rhl/internal/stdlib"
)

// DomainSource separates source content hashes from other hashes.
const DomainSource = "rhl/source/v1"

// DependencyKind tells how a dependency was resolved.
type DependencyKind string

const (
	DependencyLibrary DependencyKind = "library"
	DependencyFile    DependencyKind = "file"
)

// Dependency is a source spliced in by #with.
type Dependency struct {
	Kind DependencyKind `json:"kind"`
	// Name is the library name or the path the file was read from.
	Name string `json:"name"`
	// Hash is HashSource of the spliced text.
	Hash string `json:"hash"`
}

// HashSource computes the content hash recorded for a dependency.
// Format: hex(SHA256(DomainSource + 0x00 + data)).
func HashSource(data []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainSource))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// includeState is shared by a session and all of its descendants.
type includeState struct {
	active map[string]bool // sources currently being processed
	deps   []Dependency
	seen   map[string]bool
}

func newIncludeState() *includeState {
	return &includeState{
		active: map[string]bool{},
		seen:   map[string]bool{},
	}
}

func (s *includeState) record(d Dependency) {
	key := string(d.Kind) + ":" + d.Name
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.deps = append(s.deps, d)
}

// doWith handles `#with <$name | path>`: the named text is processed by a
// child session and its output is appended to this session's output.
func (p *Preprocessor) doWith(target string) error {
	if target == "" {
		return p.errorf(ErrCodeMalformedDirective, dirWith, "expected library name or file path after %s", dirWith)
	}
	if p.depth+1 > p.opts.MaxIncludeDepth {
		return p.errorf(ErrCodeIncludeDepthExceeded, dirWith,
			"include depth limit (%d) exceeded at %s", p.opts.MaxIncludeDepth, target)
	}

	var (
		src string
		key string
		dep Dependency
	)
	if strings.HasPrefix(target, stdlib.Marker) {
		text, err := p.opts.Registry.Lookup(target)
		if err != nil {
			e := p.errorf(ErrCodeUnresolvableInclude, dirWith, "no builtin library %s", target)
			e.Err = err
			return e
		}
		src, key = text, target
		dep = Dependency{Kind: DependencyLibrary, Name: target, Hash: HashSource([]byte(text))}
	} else {
		path, data, err := p.readInclude(target)
		if err != nil {
			e := p.errorf(ErrCodeUnresolvableInclude, dirWith, "cannot read %q", target)
			e.Err = err
			return e
		}
		src, key = string(data), path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		dep = Dependency{Kind: DependencyFile, Name: path, Hash: HashSource(data)}
	}

	if p.inc.active[key] {
		return p.errorf(ErrCodeIncludeCycle, dirWith, "%s includes itself", target)
	}

	p.opts.Logger.Debug("include",
		"source", p.opts.Name,
		"line", p.index+1,
		"kind", dep.Kind,
		"name", dep.Name,
		"depth", p.depth+1,
	)
	p.inc.record(dep)

	p.inc.active[key] = true
	out, err := p.child(src, dep.Name).Run()
	delete(p.inc.active, key)
	if err != nil {
		return err
	}

	p.out.WriteString(out)
	p.index++
	return nil
}

// readInclude reads target relative to the working directory, then from
// each include directory if target is relative and does not exist.
func (p *Preprocessor) readInclude(target string) (string, []byte, error) {
	data, err := p.opts.ReadFile(target)
	if err == nil || filepath.IsAbs(target) || !errors.Is(err, fs.ErrNotExist) {
		return target, data, err
	}

	for _, dir := range p.opts.IncludeDirs {
		candidate := filepath.Join(dir, target)
		if d, derr := p.opts.ReadFile(candidate); derr == nil {
			return candidate, d, nil
		}
	}

	if len(p.opts.IncludeDirs) > 0 {
		err = fmt.Errorf("%w (also searched %s)", err, strings.Join(p.opts.IncludeDirs, ", "))
	}
	return target, nil, err
}
