package query

// Query represents a composed boolean query fragment.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend emitters.
//
// Query types:
//   - Bool: compound of must, should, must_not and filter clauses
//   - Term, Match, MatchPhrase, QueryString: value predicates
//   - Prefix, Wildcard, Regexp: pattern predicates
//   - Range: bounded comparison
//   - Exists: field presence
//   - Nested: scoping wrapper around a sub-query
//   - MatchAll: always true
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Bool represents a compound boolean query.
//
// Semantics:
//
//	(must1 AND must2 AND filter1) AND NOT (mustNot1) AND NOT (mustNot2)
//	AND (should1 OR should2)   -- only when no must/filter clause exists
//
// When Must or Filter are present, Should clauses are optional and only
// influence relevance. The composition helpers never produce that shape, but
// callers constructing a Bool directly may.
type Bool struct {
	Must    []Query
	Should  []Query
	MustNot []Query
	Filter  []Query
	Boost   float64
}

func (*Bool) queryNode() {}

// IsConjunction reports whether the Bool holds only must, must_not and
// filter clauses.
func (b *Bool) IsConjunction() bool {
	return len(b.Should) == 0 && b.Boost == 0
}

// IsDisjunction reports whether the Bool holds only should clauses.
func (b *Bool) IsDisjunction() bool {
	return len(b.Must) == 0 && len(b.MustNot) == 0 && len(b.Filter) == 0 &&
		len(b.Should) > 0 && b.Boost == 0
}

// Term matches an exact, unanalyzed value.
type Term struct {
	Field string
	Value string
	Boost float64
}

func (*Term) queryNode() {}

// Match matches analyzed text.
type Match struct {
	Field string
	Query string
	Boost float64
}

func (*Match) queryNode() {}

// MatchPhrase matches an analyzed phrase with an optional slop.
type MatchPhrase struct {
	Field string
	Query string
	Slop  int
	Boost float64
}

func (*MatchPhrase) queryNode() {}

// QueryString searches the default fields when a term names no field.
//
// An empty Fields slice means the backend's own default field set.
type QueryString struct {
	Query           string
	Fields          []string
	DefaultOperator string
	Boost           float64
}

func (*QueryString) queryNode() {}

// Prefix matches values starting with Value.
type Prefix struct {
	Field string
	Value string
	Boost float64
}

func (*Prefix) queryNode() {}

// Wildcard matches values against a pattern using * and ?.
type Wildcard struct {
	Field string
	Value string
	Boost float64
}

func (*Wildcard) queryNode() {}

// Regexp matches values against a regular expression.
type Regexp struct {
	Field string
	Value string
	Boost float64
}

func (*Regexp) queryNode() {}

// Range compares a field against up to two bounds.
//
// Empty bounds are open. At most one of GT/GTE and one of LT/LTE is set by
// the default builders.
type Range struct {
	Field string
	GT    string
	GTE   string
	LT    string
	LTE   string
	Boost float64
}

func (*Range) queryNode() {}

// Exists matches documents where Field has a value.
type Exists struct {
	Field string
}

func (*Exists) queryNode() {}

// Nested is the scoping wrapper: Query applies inside the nested documents
// stored under Path rather than to the top-level document.
type Nested struct {
	Path  string
	Query Query
}

func (*Nested) queryNode() {}

// MatchAll matches every document.
type MatchAll struct{}

func (*MatchAll) queryNode() {}

// SortField is one entry of a composed sort order.
type SortField struct {
	Field      string
	Descending bool

	// UnmappedType tells the backend which type to assume when the field is
	// absent from an index. Empty when the schema does not know the field.
	UnmappedType string
}

// Order returns "asc" or "desc".
func (s SortField) Order() string {
	if s.Descending {
		return "desc"
	}
	return "asc"
}
