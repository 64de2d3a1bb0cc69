package schema

import (
	"context"
	"sort"
	"strings"
)

// Static is an in-memory schema.
//
// Lookups match the exact dotted path first and fall back to a
// case-insensitive match, returning the canonical spelling. Field aliases
// (an alternate path pointing at a real field) resolve to their target.
type Static struct {
	fields  map[string]Field
	aliases map[string]string
	folded  map[string]string
}

// NewStatic builds a Static schema from fields.
func NewStatic(fields ...Field) *Static {
	s := &Static{
		fields:  make(map[string]Field),
		aliases: make(map[string]string),
		folded:  make(map[string]string),
	}
	for _, f := range fields {
		s.Add(f)
	}
	return s
}

// FromTypes builds a Static schema from a name → type map.
func FromTypes(types map[string]FieldType) *Static {
	s := NewStatic()
	for name, t := range types {
		s.Add(Field{Name: name, Type: t})
	}
	return s
}

// Add registers a field, replacing any previous definition.
func (s *Static) Add(f Field) {
	s.fields[f.Name] = f
	s.folded[strings.ToLower(f.Name)] = f.Name
}

// AddAlias registers name as an alternate path for target.
func (s *Static) AddAlias(name, target string) {
	s.aliases[name] = target
	s.folded[strings.ToLower(name)] = name
}

// Len returns the number of fields, aliases excluded.
func (s *Static) Len() int {
	return len(s.fields)
}

// Fields returns all fields sorted by name.
func (s *Static) Fields() []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Field implements Lookup.
func (s *Static) Field(_ context.Context, name string) (*Field, error) {
	key := name
	if _, ok := s.fields[key]; !ok {
		if _, ok := s.aliases[key]; !ok {
			canonical, ok := s.folded[strings.ToLower(name)]
			if !ok {
				return nil, nil
			}
			key = canonical
		}
	}
	if target, ok := s.aliases[key]; ok {
		key = target
	}
	f, ok := s.fields[key]
	if !ok {
		return nil, nil
	}
	return &f, nil
}
