package ast

import (
	"strconv"
	"strings"
)

func writeQualifier(sb *strings.Builder, q *FieldQuery) {
	if q.IsNegated {
		sb.WriteString("NOT ")
	}
	sb.WriteString(q.Prefix)
	if q.Field != "" {
		sb.WriteString(q.Field)
		sb.WriteString(":")
	}
}

func writeModifiers(sb *strings.Builder, proximity, boost string) {
	if proximity != "" {
		sb.WriteString("~")
		sb.WriteString(proximity)
	}
	if boost != "" {
		sb.WriteString("^")
		sb.WriteString(boost)
	}
}

// String implements Node.
func (g *GroupNode) String() string {
	var sb strings.Builder
	writeQualifier(&sb, &g.FieldQuery)
	if g.HasParens {
		sb.WriteString("(")
	}
	if g.left != nil {
		sb.WriteString(g.left.String())
	}
	if g.left != nil && g.right != nil {
		if op := g.Operator.String(); op != "" {
			sb.WriteString(" " + op + " ")
		} else {
			sb.WriteString(" ")
		}
	}
	if g.right != nil {
		sb.WriteString(g.right.String())
	}
	if g.HasParens {
		sb.WriteString(")")
	}
	writeModifiers(&sb, g.Proximity, g.Boost)
	return sb.String()
}

// String implements Node.
func (t *TermNode) String() string {
	var sb strings.Builder
	writeQualifier(&sb, &t.FieldQuery)
	switch {
	case t.IsQuoted:
		sb.WriteString(strconv.Quote(t.Term))
	case t.IsRegex:
		sb.WriteString("/" + t.Term + "/")
	default:
		sb.WriteString(t.Term)
	}
	writeModifiers(&sb, t.Proximity, t.Boost)
	return sb.String()
}

// String implements Node.
func (r *TermRangeNode) String() string {
	var sb strings.Builder
	writeQualifier(&sb, &r.FieldQuery)
	switch {
	case r.Operator != "":
		sb.WriteString(r.Operator)
		if r.Operator[0] == '>' {
			sb.WriteString(r.Min)
		} else {
			sb.WriteString(r.Max)
		}
	case r.Delimiter == "..":
		sb.WriteString(r.Min + ".." + r.Max)
	default:
		if r.MinInclusive {
			sb.WriteString("[")
		} else {
			sb.WriteString("{")
		}
		sb.WriteString(r.Min + " TO " + r.Max)
		if r.MaxInclusive {
			sb.WriteString("]")
		} else {
			sb.WriteString("}")
		}
	}
	writeModifiers(&sb, r.Proximity, r.Boost)
	return sb.String()
}

// String implements Node.
func (e *ExistsNode) String() string {
	return existsLike("_exists_", &e.FieldQuery)
}

// String implements Node.
func (m *MissingNode) String() string {
	return existsLike("_missing_", &m.FieldQuery)
}

func existsLike(keyword string, q *FieldQuery) string {
	var sb strings.Builder
	if q.IsNegated {
		sb.WriteString("NOT ")
	}
	sb.WriteString(q.Prefix)
	sb.WriteString(keyword + ":" + q.Field)
	return sb.String()
}
