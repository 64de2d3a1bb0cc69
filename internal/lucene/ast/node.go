package ast

import "strings"

// Position locates a node in the query text. Offset is a zero-based byte
// offset; Line and Column are one-based. Synthesized nodes have the zero
// Position.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Operator is the explicit boolean operator of a group.
type Operator int

const (
	// OpDefault means no operator was written; the context decides.
	OpDefault Operator = iota
	OpAnd
	OpOr
)

// String returns the Lucene spelling, "" for OpDefault.
func (o Operator) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return ""
	}
}

// Node is one of the five AST node kinds: *GroupNode, *TermNode,
// *TermRangeNode, *ExistsNode and *MissingNode.
//
// Every node except the root is owned by exactly one parent group. Parent is
// a back pointer used for upward lookups only; traversal always goes through
// Children.
type Node interface {
	// Parent returns the owning group, nil for the root.
	Parent() *GroupNode
	// Children returns the owned sub-nodes in left-to-right order.
	Children() []Node
	// Data returns the node's side-table.
	Data() *Data
	// Pos returns where the node starts in the query text.
	Pos() Position
	// Accept dispatches to the visit method for the node's kind.
	Accept(v Visitor, ctx *Context) error
	// String regenerates Lucene syntax for the subtree.
	String() string

	setParent(*GroupNode)
}

// FieldQueryNode is a node carrying the field-query capability. All five
// node kinds implement it.
type FieldQueryNode interface {
	Node
	FieldPart() *FieldQuery
}

// FieldQuery holds the field qualifier and the negation markers shared by
// all node kinds.
type FieldQuery struct {
	// Field is the qualifying field, empty when none was written.
	Field string

	// Prefix is "+" (required) or "-" (excluded), empty otherwise.
	Prefix string

	// IsNegated is set by NOT or "!".
	IsNegated bool
}

// FieldPart returns q itself.
func (q *FieldQuery) FieldPart() *FieldQuery { return q }

// IsExcluded reports whether the clause must not match.
func (q *FieldQuery) IsExcluded() bool {
	return q.IsNegated || q.Prefix == "-"
}

// IsRequired reports whether the clause carries the "+" marker.
func (q *FieldQuery) IsRequired() bool {
	return q.Prefix == "+"
}

type base struct {
	parent *GroupNode
	data   Data
	pos    Position
}

func (b *base) Parent() *GroupNode     { return b.parent }
func (b *base) setParent(p *GroupNode) { b.parent = p }
func (b *base) Data() *Data            { return &b.data }
func (b *base) Pos() Position          { return b.pos }

// SetPos records where the node starts.
func (b *base) SetPos(p Position) { b.pos = p }

// GroupNode joins up to two operands with an operator. A group with a Field
// is either field-scoped, "field:(...)", or in aggregation expressions an
// operation applied to its operands.
type GroupNode struct {
	base
	FieldQuery

	left  Node
	right Node

	Operator  Operator
	HasParens bool
	Boost     string
	Proximity string
}

// Left returns the left operand.
func (g *GroupNode) Left() Node { return g.left }

// Right returns the right operand.
func (g *GroupNode) Right() Node { return g.right }

// SetLeft replaces the left operand and takes ownership of n.
func (g *GroupNode) SetLeft(n Node) {
	g.left = g.adopt(g.left, n)
}

// SetRight replaces the right operand and takes ownership of n.
func (g *GroupNode) SetRight(n Node) {
	g.right = g.adopt(g.right, n)
}

func (g *GroupNode) adopt(old, n Node) Node {
	if old != nil && old != n && old.Parent() == g {
		old.setParent(nil)
	}
	if isNil(n) {
		return nil
	}
	n.setParent(g)
	return n
}

// ReplaceChild swaps old for n and reports whether old was a child of g.
func (g *GroupNode) ReplaceChild(old, n Node) bool {
	switch {
	case g.left != nil && g.left == old:
		g.SetLeft(n)
		return true
	case g.right != nil && g.right == old:
		g.SetRight(n)
		return true
	}
	return false
}

// Children implements Node.
func (g *GroupNode) Children() []Node {
	out := make([]Node, 0, 2)
	if g.left != nil {
		out = append(out, g.left)
	}
	if g.right != nil {
		out = append(out, g.right)
	}
	return out
}

// Accept implements Node.
func (g *GroupNode) Accept(v Visitor, ctx *Context) error { return v.VisitGroup(g, ctx) }

// TermNode is a leaf predicate: a word, phrase, pattern or regex.
type TermNode struct {
	base
	FieldQuery

	Term      string
	IsQuoted  bool
	IsRegex   bool
	Boost     string
	Proximity string
}

// Children implements Node.
func (*TermNode) Children() []Node { return nil }

// Accept implements Node.
func (t *TermNode) Accept(v Visitor, ctx *Context) error { return v.VisitTerm(t, ctx) }

// TermRangeNode is a bounded comparison, written "[min TO max]",
// "{min TO max}", "min..max" or with a comparison operator like ">=10".
type TermRangeNode struct {
	base
	FieldQuery

	Min          string
	Max          string
	MinInclusive bool
	MaxInclusive bool

	// Operator is ">", ">=", "<" or "<=" for the short form, else empty.
	Operator string

	// Delimiter is "TO" or "..", empty for the short form.
	Delimiter string

	Boost     string
	Proximity string
}

// Children implements Node.
func (*TermRangeNode) Children() []Node { return nil }

// Accept implements Node.
func (r *TermRangeNode) Accept(v Visitor, ctx *Context) error { return v.VisitTermRange(r, ctx) }

// ExistsNode matches documents with a value for Field: "_exists_:field".
type ExistsNode struct {
	base
	FieldQuery
}

// Children implements Node.
func (*ExistsNode) Children() []Node { return nil }

// Accept implements Node.
func (e *ExistsNode) Accept(v Visitor, ctx *Context) error { return v.VisitExists(e, ctx) }

// MissingNode matches documents without a value for Field: "_missing_:field".
type MissingNode struct {
	base
	FieldQuery
}

// Children implements Node.
func (*MissingNode) Children() []Node { return nil }

// Accept implements Node.
func (m *MissingNode) Accept(v Visitor, ctx *Context) error { return v.VisitMissing(m, ctx) }

var (
	_ FieldQueryNode = (*GroupNode)(nil)
	_ FieldQueryNode = (*TermNode)(nil)
	_ FieldQueryNode = (*TermRangeNode)(nil)
	_ FieldQueryNode = (*ExistsNode)(nil)
	_ FieldQueryNode = (*MissingNode)(nil)
)

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *GroupNode:
		return v == nil
	case *TermNode:
		return v == nil
	case *TermRangeNode:
		return v == nil
	case *ExistsNode:
		return v == nil
	case *MissingNode:
		return v == nil
	}
	return false
}

// Root walks parent links up to the root node.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

// FieldPath returns the dotted path a node's own field denotes. A field
// written inside field-qualified groups is relative to them, so their fields
// are joined in front of it. The walk stops at a field already made absolute
// by alias or schema resolution, and at groups carrying an aggregation
// operation, whose children name absolute fields. It returns "" when the
// node has no field of its own.
func FieldPath(n FieldQueryNode) string {
	path := n.FieldPart().Field
	if path == "" || n.Data().FieldAbsolute {
		return path
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Field == "" || strings.HasPrefix(p.Field, "@") {
			continue
		}
		if p.Data().Operation != "" {
			break
		}
		path = p.Field + "." + path
		if p.Data().FieldAbsolute {
			break
		}
	}
	return path
}

// FullField returns the field a node applies to: the path of its own field,
// or of the nearest field-qualified ancestor group.
func FullField(n FieldQueryNode) string {
	if n.FieldPart().Field != "" {
		return FieldPath(n)
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Field != "" {
			return FieldPath(p)
		}
	}
	return ""
}
