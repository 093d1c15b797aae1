package preprocess

import (
	"fmt"
	"sort"
	"strings"
)

// Definition is a named entry in a definition table. A definition without a
// value only answers #ifdef/#ifundef checks; one with a value is also
// substituted into emitted lines.
type Definition struct {
	Name     string
	Value    string
	HasValue bool
}

// Flag returns a definition with no value.
func Flag(name string) Definition {
	return Definition{Name: name}
}

// Valued returns a definition carrying a replacement value.
func Valued(name, value string) Definition {
	return Definition{Name: name, Value: value, HasValue: true}
}

// String renders the definition as NAME or NAME=VALUE.
func (d Definition) String() string {
	if d.HasValue {
		return d.Name + "=" + d.Value
	}
	return d.Name
}

// ParseDefine parses a command-line style definition, NAME or NAME=VALUE.
// "NAME=" defines NAME with an empty value.
func ParseDefine(s string) (Definition, error) {
	name, value, hasValue := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Definition{}, fmt.Errorf("invalid definition %q: empty name", s)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return Definition{}, fmt.Errorf("invalid definition %q: name contains whitespace", s)
	}
	if hasValue {
		return Valued(name, value), nil
	}
	return Flag(name), nil
}

// Definitions is the definition table of one preprocessing session.
// It is not safe for concurrent use.
type Definitions struct {
	entries  map[string]Definition
	replacer *strings.Replacer // rebuilt lazily after mutation
}

// NewDefinitions creates an empty table.
func NewDefinitions() *Definitions {
	return &Definitions{entries: map[string]Definition{}}
}

// Set inserts or overwrites d.
func (t *Definitions) Set(d Definition) {
	t.entries[d.Name] = d
	t.replacer = nil
}

// Define defines name without a value.
func (t *Definitions) Define(name string) {
	t.Set(Flag(name))
}

// DefineValue defines name with a replacement value.
func (t *Definitions) DefineValue(name, value string) {
	t.Set(Valued(name, value))
}

// Undefine removes name. Removing an absent name is a no-op.
func (t *Definitions) Undefine(name string) {
	if _, ok := t.entries[name]; !ok {
		return
	}
	delete(t.entries, name)
	t.replacer = nil
}

// IsDefined reports whether name is defined, with or without a value.
func (t *Definitions) IsDefined(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Lookup returns the definition for name.
func (t *Definitions) Lookup(name string) (Definition, bool) {
	d, ok := t.entries[name]
	return d, ok
}

// Len returns the number of definitions.
func (t *Definitions) Len() int {
	return len(t.entries)
}

// Names returns the defined names in sorted order.
func (t *Definitions) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every definition sorted by name.
func (t *Definitions) All() []Definition {
	all := make([]Definition, 0, len(t.entries))
	for _, name := range t.Names() {
		all = append(all, t.entries[name])
	}
	return all
}

// Clone returns an independent copy of the table.
func (t *Definitions) Clone() *Definitions {
	c := NewDefinitions()
	for name, d := range t.entries {
		c.entries[name] = d
	}
	return c
}

// Expand substitutes every valued definition into line.
//
// Matching is plain substring matching with no regard for word boundaries.
// At each position the longest matching name wins (ties broken by name),
// the scan is a single left-to-right pass and substituted text is never
// re-scanned, so the result does not depend on map order.
func (t *Definitions) Expand(line string) string {
	r := t.buildReplacer()
	if r == nil {
		return line
	}
	return r.Replace(line)
}

func (t *Definitions) buildReplacer() *strings.Replacer {
	if t.replacer != nil {
		return t.replacer
	}

	valued := make([]Definition, 0, len(t.entries))
	for _, d := range t.entries {
		if d.HasValue {
			valued = append(valued, d)
		}
	}
	if len(valued) == 0 {
		return nil
	}

	// strings.Replacer tries old strings in argument order at each position.
	sort.Slice(valued, func(i, j int) bool {
		if len(valued[i].Name) != len(valued[j].Name) {
			return len(valued[i].Name) > len(valued[j].Name)
		}
		return valued[i].Name < valued[j].Name
	})

	pairs := make([]string, 0, 2*len(valued))
	for _, d := range valued {
		pairs = append(pairs, d.Name, d.Value)
	}
	t.replacer = strings.NewReplacer(pairs...)
	return t.replacer
}
