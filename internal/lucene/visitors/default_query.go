package visitors

import (
	"strconv"
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/query"
)

// QueryBuilder builds the leaf query for a node that has no result yet.
// Returning (nil, nil) contributes nothing to the enclosing group.
type QueryBuilder func(node ast.Node, ctx *ast.Context) (query.Query, error)

// DefaultQuery is the default QueryBuilder:
//
//	term without a field        query_string over the default fields
//	/regex/                     regexp
//	field:*                     exists
//	field:abc*                  prefix
//	field:a?c, field:*bc        wildcard
//	"phrase" on a text field    match_phrase, slop from ~n
//	word on a text field        match
//	anything else               term
//	range                       range, * is an open bound
//	_exists_ / _missing_        exists / NOT exists
//
// The field type comes from the schema or the runtime fields; unknown fields
// are treated as exact-value fields.
func DefaultQuery(node ast.Node, ctx *ast.Context) (query.Query, error) {
	switch n := node.(type) {
	case *ast.TermNode:
		return termQuery(n, ctx)
	case *ast.TermRangeNode:
		return rangeQuery(n), nil
	case *ast.ExistsNode:
		return &query.Exists{Field: ast.FullField(n)}, nil
	case *ast.MissingNode:
		return query.Not(&query.Exists{Field: ast.FullField(n)}), nil
	default:
		return nil, nil
	}
}

func termQuery(n *ast.TermNode, ctx *ast.Context) (query.Query, error) {
	field := ast.FullField(n)
	if isReserved(field) {
		return nil, nil
	}
	boost := parseBoost(n.Boost)

	if field == "" {
		text := n.Term
		switch {
		case n.IsQuoted:
			text = strconv.Quote(text)
		case n.IsRegex:
			text = "/" + text + "/"
		}
		return &query.QueryString{
			Query:           text,
			Fields:          ctx.DefaultFields,
			DefaultOperator: ctx.EffectiveOperator().String(),
			Boost:           boost,
		}, nil
	}

	if n.IsRegex {
		return &query.Regexp{Field: field, Value: n.Term, Boost: boost}, nil
	}
	if !n.IsQuoted {
		switch {
		case n.Term == "*":
			return &query.Exists{Field: field}, nil
		case isPrefixPattern(n.Term):
			return &query.Prefix{Field: field, Value: strings.TrimSuffix(n.Term, "*"), Boost: boost}, nil
		case strings.ContainsAny(n.Term, "*?"):
			return &query.Wildcard{Field: field, Value: n.Term, Boost: boost}, nil
		}
	}

	typ, err := FieldType(ctx, field)
	if err != nil {
		return nil, err
	}
	if typ.IsAnalyzed() {
		if n.IsQuoted {
			slop, _ := strconv.Atoi(n.Proximity)
			return &query.MatchPhrase{Field: field, Query: n.Term, Slop: slop, Boost: boost}, nil
		}
		return &query.Match{Field: field, Query: n.Term, Boost: boost}, nil
	}
	return &query.Term{Field: field, Value: n.Term, Boost: boost}, nil
}

func rangeQuery(n *ast.TermRangeNode) query.Query {
	r := &query.Range{Field: ast.FullField(n), Boost: parseBoost(n.Boost)}
	switch n.Operator {
	case ">":
		r.GT = n.Min
	case ">=":
		r.GTE = n.Min
	case "<":
		r.LT = n.Max
	case "<=":
		r.LTE = n.Max
	default:
		if open := n.Min == "" || n.Min == "*"; !open {
			if n.MinInclusive {
				r.GTE = n.Min
			} else {
				r.GT = n.Min
			}
		}
		if open := n.Max == "" || n.Max == "*"; !open {
			if n.MaxInclusive {
				r.LTE = n.Max
			} else {
				r.LT = n.Max
			}
		}
	}
	return r
}

// isPrefixPattern reports whether term's only wildcard is one trailing *.
func isPrefixPattern(term string) bool {
	body, ok := strings.CutSuffix(term, "*")
	return ok && body != "" && !strings.ContainsAny(body, "*?")
}

func parseBoost(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
