package query

import (
	"strconv"
	"strings"
)

// Format renders q as a compact prefix expression, e.g.
//
//	AND(term(hidden,true), range(data.age,>30,<=40))
//
// It is used in logs, CLI text output and tests. Format(nil) is "<none>".
func Format(q Query) string {
	var sb strings.Builder
	format(&sb, q)
	return sb.String()
}

func format(sb *strings.Builder, q Query) {
	switch v := q.(type) {
	case nil:
		sb.WriteString("<none>")
	case *Bool:
		formatBool(sb, v)
	case *Term:
		leaf(sb, "term", v.Boost, v.Field, v.Value)
	case *Match:
		leaf(sb, "match", v.Boost, v.Field, v.Query)
	case *MatchPhrase:
		args := []string{v.Field, strconv.Quote(v.Query)}
		if v.Slop > 0 {
			args = append(args, "~"+strconv.Itoa(v.Slop))
		}
		leaf(sb, "phrase", v.Boost, args...)
	case *QueryString:
		if len(v.Fields) > 0 {
			leaf(sb, "query_string", v.Boost, strings.Join(v.Fields, "|"), v.Query)
		} else {
			leaf(sb, "query_string", v.Boost, v.Query)
		}
	case *Prefix:
		leaf(sb, "prefix", v.Boost, v.Field, v.Value)
	case *Wildcard:
		leaf(sb, "wildcard", v.Boost, v.Field, v.Value)
	case *Regexp:
		leaf(sb, "regexp", v.Boost, v.Field, "/"+v.Value+"/")
	case *Range:
		args := []string{v.Field}
		if v.GT != "" {
			args = append(args, ">"+v.GT)
		}
		if v.GTE != "" {
			args = append(args, ">="+v.GTE)
		}
		if v.LT != "" {
			args = append(args, "<"+v.LT)
		}
		if v.LTE != "" {
			args = append(args, "<="+v.LTE)
		}
		leaf(sb, "range", v.Boost, args...)
	case *Exists:
		leaf(sb, "exists", 0, v.Field)
	case *Nested:
		sb.WriteString("nested(")
		sb.WriteString(v.Path)
		sb.WriteString(", ")
		format(sb, v.Query)
		sb.WriteString(")")
	case *MatchAll:
		sb.WriteString("match_all()")
	default:
		sb.WriteString("<unknown>")
	}
}

func formatBool(sb *strings.Builder, b *Bool) {
	var conj []string
	for _, q := range b.Must {
		conj = append(conj, Format(q))
	}
	for _, q := range b.Filter {
		conj = append(conj, "FILTER("+Format(q)+")")
	}
	for _, q := range b.MustNot {
		conj = append(conj, "NOT("+Format(q)+")")
	}
	var disj []string
	for _, q := range b.Should {
		disj = append(disj, Format(q))
	}

	switch {
	case len(disj) == 0 && len(conj) == 1:
		sb.WriteString(conj[0])
	case len(disj) == 0:
		sb.WriteString("AND(" + strings.Join(conj, ", ") + ")")
	case len(conj) == 0 && len(disj) == 1:
		sb.WriteString(disj[0])
	case len(conj) == 0:
		sb.WriteString("OR(" + strings.Join(disj, ", ") + ")")
	default:
		sb.WriteString("BOOL(must: [" + strings.Join(conj, ", ") + "], should: [" + strings.Join(disj, ", ") + "])")
	}
	if b.Boost != 0 {
		sb.WriteString("^" + strconv.FormatFloat(b.Boost, 'g', -1, 64))
	}
}

func leaf(sb *strings.Builder, name string, boost float64, args ...string) {
	sb.WriteString(name)
	sb.WriteString("(")
	sb.WriteString(strings.Join(args, ","))
	sb.WriteString(")")
	if boost != 0 {
		sb.WriteString("^" + strconv.FormatFloat(boost, 'g', -1, 64))
	}
}
