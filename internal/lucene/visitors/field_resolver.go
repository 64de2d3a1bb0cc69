package visitors

import (
	"github.com/roach88/lucq/internal/lucene/ast"
)

// FieldResolverVisitor canonicalizes field names against the schema, the
// registered runtime fields and the runtime field resolver, in that order.
//
// A renamed node keeps the written field in Data.OriginalField. Every node
// is resolved at most once per tree, so running the pass again is a no-op.
// Fields inside field-qualified groups are looked up by their full dotted
// path and rewritten to it when found. Misses leave the field as written and
// are recorded in Data.FieldUnresolved for the validation pass.
type FieldResolverVisitor struct {
	ast.BaseVisitor
}

// NewFieldResolverVisitor returns a field resolution pass.
func NewFieldResolverVisitor() *FieldResolverVisitor {
	return &FieldResolverVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*FieldResolverVisitor) Name() string { return "field_resolver" }

// VisitGroup implements ast.Visitor.
func (v *FieldResolverVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if err := v.resolve(node, ctx); err != nil {
		return err
	}
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *FieldResolverVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	return v.resolve(node, ctx)
}

// VisitTermRange implements ast.Visitor.
func (v *FieldResolverVisitor) VisitTermRange(node *ast.TermRangeNode, ctx *ast.Context) error {
	return v.resolve(node, ctx)
}

// VisitExists implements ast.Visitor.
func (v *FieldResolverVisitor) VisitExists(node *ast.ExistsNode, ctx *ast.Context) error {
	return v.resolve(node, ctx)
}

// VisitMissing implements ast.Visitor.
func (v *FieldResolverVisitor) VisitMissing(node *ast.MissingNode, ctx *ast.Context) error {
	return v.resolve(node, ctx)
}

func (v *FieldResolverVisitor) resolve(node ast.FieldQueryNode, ctx *ast.Context) error {
	fq := node.FieldPart()
	data := node.Data()
	if fq.Field == "" || isReserved(fq.Field) || data.FieldResolved || !namesField(node) {
		return nil
	}
	data.FieldResolved = true

	path := ast.FieldPath(node)
	name, ok, err := ResolveField(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		data.FieldUnresolved = true
		if HasFieldSources(ctx) {
			ctx.Log().Debug("field not resolved", "field", path)
		}
		return nil
	}
	data.FieldAbsolute = true
	if name != fq.Field {
		ctx.Log().Debug("field resolved", "field", path, "resolved", name)
		data.SetOriginalField(fq.Field, name)
		fq.Field = name
	}
	return nil
}
