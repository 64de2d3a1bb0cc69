package visitors

import (
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/schema"
)

// NestedVisitor seeds a query.Nested scoping wrapper on every node whose
// field lies under a schema field of type nested, unless an ancestor already
// wraps the same path. CombineQueriesVisitor later folds the node's result
// into the wrapper.
type NestedVisitor struct {
	ast.BaseVisitor
}

// NewNestedVisitor returns a nested scoping pass.
func NewNestedVisitor() *NestedVisitor {
	return &NestedVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*NestedVisitor) Name() string { return "nested" }

// VisitGroup implements ast.Visitor.
func (v *NestedVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if err := v.scope(node, ctx); err != nil {
		return err
	}
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *NestedVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	return v.scope(node, ctx)
}

// VisitTermRange implements ast.Visitor.
func (v *NestedVisitor) VisitTermRange(node *ast.TermRangeNode, ctx *ast.Context) error {
	return v.scope(node, ctx)
}

// VisitExists implements ast.Visitor.
func (v *NestedVisitor) VisitExists(node *ast.ExistsNode, ctx *ast.Context) error {
	return v.scope(node, ctx)
}

// VisitMissing implements ast.Visitor.
func (v *NestedVisitor) VisitMissing(node *ast.MissingNode, ctx *ast.Context) error {
	return v.scope(node, ctx)
}

func (v *NestedVisitor) scope(node ast.FieldQueryNode, ctx *ast.Context) error {
	field := node.FieldPart().Field
	if field == "" || isReserved(field) || ctx.Schema == nil {
		return nil
	}
	path, err := NestedPath(ctx, ast.FieldPath(node))
	if err != nil || path == "" {
		return err
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		if n, ok := p.Data().ResultFor(ctx.QueryType).(*query.Nested); ok && n.Path == path {
			return nil
		}
	}
	node.Data().SetResultFor(ctx.QueryType, &query.Nested{Path: path})
	return nil
}

// NestedPath returns the longest dotted prefix of field, field included,
// that the schema types as nested. It returns "" outside nested objects.
func NestedPath(ctx *ast.Context, field string) (string, error) {
	parts := strings.Split(field, ".")
	for n := len(parts); n > 0; n-- {
		prefix := strings.Join(parts[:n], ".")
		f, err := ctx.Schema.Field(ctx.Context(), prefix)
		if err != nil {
			return "", err
		}
		if f != nil && f.Type == schema.TypeNested {
			return f.Name, nil
		}
	}
	return "", nil
}
