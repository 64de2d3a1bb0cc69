package visitors

import (
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/query"
)

// CombineQueriesVisitor folds the tree into one boolean query, bottom up.
// It serves both the query and the filter pipeline; Context.QueryType picks
// the side-table slot it reads and writes.
//
// For each group:
//
//   - The fold starts from the group's own slot. A query.Nested seed is a
//     scoping wrapper: the children fold into its inner query and the
//     wrapper is put back around the result.
//   - Each child contributes its slot, or Build's leaf query when it has
//     none. An excluded child contributes NOT(result).
//   - Children combine with the group's explicit operator, else the context
//     default. OR turns into AND while the group or any clause folded so far
//     carries the "+" marker.
//   - A group boost wraps the fold in a boosted conjunction.
//
// The root's slot holds the final query; it is nil when nothing matched.
type CombineQueriesVisitor struct {
	ast.BaseVisitor

	// Build makes leaf queries. Nil uses DefaultQuery.
	Build QueryBuilder
}

// NewCombineQueriesVisitor returns a combination pass using build, which may
// be nil.
func NewCombineQueriesVisitor(build QueryBuilder) *CombineQueriesVisitor {
	return &CombineQueriesVisitor{Build: build}
}

// Name implements the pipeline's visitor naming.
func (*CombineQueriesVisitor) Name() string { return "combine_queries" }

// VisitGroup implements ast.Visitor.
func (v *CombineQueriesVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if err := ast.VisitChildren(v, node, ctx); err != nil {
		return err
	}

	op := node.Operator
	if op == ast.OpDefault {
		op = ctx.EffectiveOperator()
	}

	data := node.Data()
	seed := data.ResultFor(ctx.QueryType)
	wrapper, scoped := seed.(*query.Nested)
	container := seed
	if scoped {
		container = wrapper.Query
	}

	required := node.IsRequired()
	for _, child := range node.Children() {
		fq, ok := child.(ast.FieldQueryNode)
		if !ok {
			continue
		}
		res, err := v.result(fq, ctx)
		if err != nil {
			return err
		}
		if fq.FieldPart().IsExcluded() {
			res = query.Not(res)
		}
		required = required || fq.FieldPart().IsRequired()

		stepOp := query.OpOr
		if op == ast.OpAnd || required {
			stepOp = query.OpAnd
		}
		if container == nil {
			container = res
		} else {
			container = query.Combine(container, res, stepOp)
		}
	}

	if boost := parseBoost(node.Boost); boost != 0 && container != nil {
		container = &query.Bool{Must: []query.Query{container}, Boost: boost}
	}
	if node.Parent() == nil && node.IsExcluded() {
		container = query.Not(container)
	}

	if scoped {
		if container == nil {
			data.SetResultFor(ctx.QueryType, nil)
			return nil
		}
		container = &query.Nested{Path: wrapper.Path, Query: container}
	}
	data.SetResultFor(ctx.QueryType, container)
	return nil
}

// result returns the composed query of child.
func (v *CombineQueriesVisitor) result(child ast.FieldQueryNode, ctx *ast.Context) (query.Query, error) {
	data := child.Data()
	if _, ok := child.(*ast.GroupNode); ok {
		return data.ResultFor(ctx.QueryType), nil
	}

	if n, ok := data.ResultFor(ctx.QueryType).(*query.Nested); ok && n.Query == nil {
		inner, err := v.build(child, ctx)
		if err != nil || inner == nil {
			return nil, err
		}
		n.Query = inner
		return n, nil
	}

	compute := func() (query.Query, error) { return v.build(child, ctx) }
	if ctx.QueryType == ast.TypeFilter {
		return data.FilterOr(compute, true)
	}
	return data.QueryOr(compute, true)
}

func (v *CombineQueriesVisitor) build(node ast.Node, ctx *ast.Context) (query.Query, error) {
	if v.Build != nil {
		return v.Build(node, ctx)
	}
	return DefaultQuery(node, ctx)
}
