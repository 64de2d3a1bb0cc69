package query

import "fmt"

// ValidationResult contains the portability analysis of a query.
//
// The portable fragment is the subset of the algebra that the SQL emitter
// renders with the same meaning the search engine gives it. Queries outside
// the fragment still compile to SQL, but the result approximates the search
// semantics (analyzed text becomes LIKE, scoring is dropped).
type ValidationResult struct {
	// IsPortable indicates if the query uses only portable fragment features.
	IsPortable bool

	// Warnings lists non-portable features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query conforms to the portable fragment rules.
//
// Portable fragment rules:
//  1. No analyzed text - Match, MatchPhrase and QueryString degrade to LIKE
//  2. No nested scopes - SQL rows have no nested documents
//  3. No boosts - SQL has no relevance scoring
//  4. No optional should clauses next to must clauses
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validate(q)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) boost(kind, field string, boost float64) {
	if boost != 0 {
		v.addWarning("%s on field '%s' has boost %g - SQL has no relevance scoring", kind, field, boost)
	}
}

func (v *validator) validate(q Query) {
	switch query := q.(type) {
	case nil:
		// nil matches everything; the emitter renders it as 1 = 1
	case *Bool:
		if len(query.Should) > 0 && (len(query.Must) > 0 || len(query.Filter) > 0) {
			v.addWarning("Optional should clauses next to must clauses - SQL treats them as ignored")
		}
		v.boost("bool", "", query.Boost)
		for _, group := range [][]Query{query.Must, query.Should, query.MustNot, query.Filter} {
			for _, sub := range group {
				v.validate(sub)
			}
		}
	case *Term:
		v.boost("term", query.Field, query.Boost)
	case *Match:
		v.addWarning("Match on field '%s' is analyzed text - SQL approximates it with LIKE", query.Field)
		v.boost("match", query.Field, query.Boost)
	case *MatchPhrase:
		v.addWarning("Phrase on field '%s' is analyzed text - SQL approximates it with LIKE", query.Field)
		if query.Slop > 0 {
			v.addWarning("Phrase slop %d on field '%s' is ignored by SQL", query.Slop, query.Field)
		}
	case *QueryString:
		v.addWarning("Query string '%s' searches default fields - SQL approximates it with LIKE", query.Query)
	case *Prefix:
		v.boost("prefix", query.Field, query.Boost)
	case *Wildcard:
		v.boost("wildcard", query.Field, query.Boost)
	case *Regexp:
		v.boost("regexp", query.Field, query.Boost)
	case *Range:
		v.boost("range", query.Field, query.Boost)
	case *Exists, *MatchAll:
		// portable
	case *Nested:
		v.addWarning("Nested scope '%s' - SQL rows have no nested documents", query.Path)
		v.validate(query.Query)
	default:
		v.addWarning("Unknown query type: %T - portability cannot be verified", q)
	}
}
