// Package alias maps user-facing field names onto canonical field paths.
//
// An alias Map is hierarchical: each entry renames one or more path segments
// and may carry a child Map for the segments that follow. Keys may contain
// literal dots, so "a.b" can be aliased directly next to an "a" entry that has
// its own "b" child.
package alias

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is the target of one alias key.
type Entry struct {
	// Name replaces the matched segments. Empty keeps the written key.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Fields aliases the segments following the matched ones.
	Fields Map `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Map is one level of the alias hierarchy.
type Map map[string]Entry

// Result is a successful resolution.
type Result struct {
	// Name is the full resolved dotted path.
	Name string

	// Resolver resolves fields written relative to Name, e.g. the children
	// of a field-scoped group. It returns full paths prefixed with Name.
	Resolver Resolver
}

// Resolver resolves a dotted field path. It returns nil when no alias
// applies and the caller should keep the field as written.
type Resolver func(field string) *Result

// New returns the hierarchical resolver for m.
//
// The path is split on dots. At each level the longest run of leading parts
// that matches a key is consumed, its name is appended to the result and the
// scan restarts on the remaining parts against the matched entry's child
// level. Parts left over when a level has no match are appended verbatim.
// A path whose first part matches nothing yields nil.
func New(m Map) Resolver {
	return func(field string) *Result {
		return resolve("", m, field)
	}
}

// resolve runs the prefix-growing scan over m. A non-empty prefix is
// prepended to the resolved name.
func resolve(prefix string, m Map, field string) *Result {
	if field == "" {
		return nil
	}

	parts := strings.Split(field, ".")
	level := m
	var (
		resolved []string
		last     Entry
	)
	for len(parts) > 0 {
		n, key, entry := longestMatch(level, parts)
		if n == 0 {
			break
		}
		name := entry.Name
		if name == "" {
			name = key
		}
		resolved = append(resolved, name)
		parts = parts[n:]
		level = entry.Fields
		last = entry
	}
	if len(resolved) == 0 {
		return nil
	}

	name := strings.Join(resolved, ".")
	if prefix != "" {
		name = prefix + "." + name
	}
	if len(parts) > 0 {
		name += "." + strings.Join(parts, ".")
		return &Result{Name: name, Resolver: Nested(name, nil)}
	}
	return &Result{Name: name, Resolver: Nested(name, last.Fields)}
}

// longestMatch returns how many leading parts matched a key of level, the
// matched key and its entry. Zero means no match.
func longestMatch(level Map, parts []string) (int, string, Entry) {
	if len(level) == 0 {
		return 0, "", Entry{}
	}
	for n := len(parts); n > 0; n-- {
		key := strings.Join(parts[:n], ".")
		if e, ok := level[key]; ok {
			return n, key, e
		}
		if k, ok := foldMatch(level, key); ok {
			return n, key, level[k]
		}
	}
	return 0, "", Entry{}
}

// foldMatch returns the key of level equal to key under case folding. When
// several keys fold together the smallest one wins.
func foldMatch(level Map, key string) (string, bool) {
	var matches []string
	for k := range level {
		if strings.EqualFold(k, key) {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	return slices.Min(matches), true
}

// Nested returns a resolver for fields written relative to the resolved path
// prefix. Fields are resolved against children and always come back as full
// paths: unmatched fields are appended to prefix verbatim.
func Nested(prefix string, children Map) Resolver {
	return func(field string) *Result {
		if field == "" {
			return nil
		}
		if r := resolve(prefix, children, field); r != nil {
			return r
		}
		full := prefix + "." + field
		return &Result{Name: full, Resolver: Nested(full, nil)}
	}
}

// Scoped resolves fields as if they were written as "scope.field" against r.
// It is installed on field-qualified groups whose own field has no alias.
func Scoped(r Resolver, scope string) Resolver {
	if r == nil {
		return nil
	}
	return func(field string) *Result {
		if field == "" {
			return nil
		}
		return r(scope + "." + field)
	}
}

// UnmarshalYAML accepts either a mapping or a bare string shorthand for
// Entry{Name: s}.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Name = node.Value
		return nil
	}
	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("alias entry at line %d: %w", node.Line, err)
	}
	*e = Entry(p)
	return nil
}

// UnmarshalJSON accepts either an object or a bare string shorthand.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Name = s
		return nil
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("alias entry: %w", err)
	}
	*e = Entry(p)
	return nil
}
