package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_PortableQuery(t *testing.T) {
	q := And(
		&Term{Field: "status", Value: "active"},
		&Range{Field: "age", GT: "30"},
		Not(&Exists{Field: "deleted_at"}),
		Or(&Prefix{Field: "name", Value: "ab"}, &Wildcard{Field: "name", Value: "a?c"}),
	)

	result := Validate(q)

	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_NilIsPortable(t *testing.T) {
	result := Validate(nil)

	assert.True(t, result.IsPortable)
}

func TestValidate_NonPortable(t *testing.T) {
	testCases := []struct {
		name     string
		query    Query
		contains string
	}{
		{"match", &Match{Field: "title", Query: "go"}, "analyzed text"},
		{"phrase", &MatchPhrase{Field: "title", Query: "go lang"}, "analyzed text"},
		{"query string", &QueryString{Query: "go"}, "default fields"},
		{"nested", &Nested{Path: "tags", Query: &Term{Field: "tags.name", Value: "x"}}, "nested documents"},
		{"boost", &Term{Field: "a", Value: "1", Boost: 2}, "relevance scoring"},
		{"mixed bool", &Bool{Must: []Query{&MatchAll{}}, Should: []Query{&MatchAll{}}}, "should clauses"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.query)

			assert.False(t, result.IsPortable)
			require.NotEmpty(t, result.Warnings)
			assert.Contains(t, result.Warnings[0], tc.contains)
		})
	}
}

func TestValidate_PhraseSlopWarnsTwice(t *testing.T) {
	result := Validate(&MatchPhrase{Field: "t", Query: "a b", Slop: 3})

	assert.Len(t, result.Warnings, 2)
}
