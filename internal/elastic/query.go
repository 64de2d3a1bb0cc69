// Package elastic renders compiler output as Elasticsearch request DSL.
//
// Every function returns plain maps and slices so the result can be passed
// to any client, marshaled with encoding/json or with package canonical.
package elastic

import (
	"fmt"

	"github.com/roach88/lucq/internal/query"
)

// Query renders q as a query DSL clause. A nil query matches everything.
func Query(q query.Query) (map[string]any, error) {
	switch v := q.(type) {
	case nil, *query.MatchAll:
		return map[string]any{"match_all": map[string]any{}}, nil

	case *query.Bool:
		body := map[string]any{}
		for key, clauses := range map[string][]query.Query{
			"must":     v.Must,
			"should":   v.Should,
			"must_not": v.MustNot,
			"filter":   v.Filter,
		} {
			if len(clauses) == 0 {
				continue
			}
			rendered := make([]any, 0, len(clauses))
			for _, c := range clauses {
				r, err := Query(c)
				if err != nil {
					return nil, err
				}
				rendered = append(rendered, r)
			}
			body[key] = rendered
		}
		withBoost(body, v.Boost)
		return map[string]any{"bool": body}, nil

	case *query.Term:
		return fieldClause("term", v.Field, map[string]any{"value": v.Value}, v.Boost), nil

	case *query.Match:
		return fieldClause("match", v.Field, map[string]any{"query": v.Query}, v.Boost), nil

	case *query.MatchPhrase:
		body := map[string]any{"query": v.Query}
		if v.Slop > 0 {
			body["slop"] = v.Slop
		}
		return fieldClause("match_phrase", v.Field, body, v.Boost), nil

	case *query.QueryString:
		body := map[string]any{"query": v.Query}
		if len(v.Fields) > 0 {
			fields := make([]any, len(v.Fields))
			for i, f := range v.Fields {
				fields[i] = f
			}
			body["fields"] = fields
		}
		if v.DefaultOperator != "" {
			body["default_operator"] = v.DefaultOperator
		}
		withBoost(body, v.Boost)
		return map[string]any{"query_string": body}, nil

	case *query.Prefix:
		return fieldClause("prefix", v.Field, map[string]any{"value": v.Value}, v.Boost), nil

	case *query.Wildcard:
		return fieldClause("wildcard", v.Field, map[string]any{"value": v.Value}, v.Boost), nil

	case *query.Regexp:
		return fieldClause("regexp", v.Field, map[string]any{"value": v.Value}, v.Boost), nil

	case *query.Range:
		body := map[string]any{}
		for key, bound := range map[string]string{"gt": v.GT, "gte": v.GTE, "lt": v.LT, "lte": v.LTE} {
			if bound != "" {
				body[key] = bound
			}
		}
		return fieldClause("range", v.Field, body, v.Boost), nil

	case *query.Exists:
		return map[string]any{"exists": map[string]any{"field": v.Field}}, nil

	case *query.Nested:
		inner, err := Query(v.Query)
		if err != nil {
			return nil, err
		}
		return map[string]any{"nested": map[string]any{"path": v.Path, "query": inner}}, nil

	default:
		return nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func fieldClause(kind, field string, body map[string]any, boost float64) map[string]any {
	withBoost(body, boost)
	return map[string]any{kind: map[string]any{field: body}}
}

func withBoost(body map[string]any, boost float64) {
	if boost != 0 {
		body["boost"] = boost
	}
}

// Sort renders sort fields as a sort array.
func Sort(fields []query.SortField) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		body := map[string]any{"order": f.Order()}
		if f.UnmappedType != "" {
			body["unmapped_type"] = f.UnmappedType
		}
		out = append(out, map[string]any{f.Field: body})
	}
	return out
}
