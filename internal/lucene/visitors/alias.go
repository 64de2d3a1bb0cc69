package visitors

import (
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/ast"
)

// AliasVisitor rewrites aliased field names, top down.
//
// Each node's field is resolved against the nearest alias scope installed
// on an ancestor, or the context's root resolver. A field-qualified group
// installs a scope for its descendants: the nested resolver of its alias
// when the field resolved, or the parent scope prefixed with the group's
// field when it did not. Groups carrying an aggregation operation never
// scope their children, whose fields are absolute.
type AliasVisitor struct {
	ast.BaseVisitor
}

// NewAliasVisitor returns an alias rewriting pass.
func NewAliasVisitor() *AliasVisitor {
	return &AliasVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*AliasVisitor) Name() string { return "alias" }

// VisitGroup implements ast.Visitor.
func (v *AliasVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if node.Field != "" && !isReserved(node.Field) {
		resolver, inherited := scopeFor(node, ctx)
		written := node.Field
		result := v.rename(node, resolver, inherited, ctx)

		if node.Data().Operation == "" && resolver != nil {
			if result != nil {
				node.Data().AliasResolver = result.Resolver
			} else {
				node.Data().AliasResolver = alias.Scoped(resolver, written)
			}
		}
	}
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *AliasVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	v.visitLeaf(node, ctx)
	return nil
}

// VisitTermRange implements ast.Visitor.
func (v *AliasVisitor) VisitTermRange(node *ast.TermRangeNode, ctx *ast.Context) error {
	v.visitLeaf(node, ctx)
	return nil
}

// VisitExists implements ast.Visitor.
func (v *AliasVisitor) VisitExists(node *ast.ExistsNode, ctx *ast.Context) error {
	v.visitLeaf(node, ctx)
	return nil
}

// VisitMissing implements ast.Visitor.
func (v *AliasVisitor) VisitMissing(node *ast.MissingNode, ctx *ast.Context) error {
	v.visitLeaf(node, ctx)
	return nil
}

func (v *AliasVisitor) visitLeaf(node ast.FieldQueryNode, ctx *ast.Context) {
	field := node.FieldPart().Field
	if field == "" || isReserved(field) {
		return
	}
	resolver, inherited := scopeFor(node, ctx)
	v.rename(node, resolver, inherited, ctx)
}

// rename applies resolver to node's field. Results of an inherited scope are
// full paths, which the node's enclosing groups must not prefix again.
func (v *AliasVisitor) rename(node ast.FieldQueryNode, resolver alias.Resolver, inherited bool, ctx *ast.Context) *alias.Result {
	if resolver == nil {
		return nil
	}
	fq := node.FieldPart()
	result := resolver(fq.Field)
	if result == nil || result.Name == "" {
		return result
	}
	if inherited {
		node.Data().FieldAbsolute = true
	}
	if result.Name != fq.Field {
		ctx.Log().Debug("alias resolved", "field", fq.Field, "resolved", result.Name)
		node.Data().SetOriginalField(fq.Field, result.Name)
		fq.Field = result.Name
	}
	return result
}

// scopeFor returns the alias resolver in effect for node: the closest scope
// installed on an ancestor, else the context's resolver. inherited reports
// the former.
func scopeFor(node ast.Node, ctx *ast.Context) (resolver alias.Resolver, inherited bool) {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if r := p.Data().AliasResolver; r != nil {
			return r, true
		}
	}
	return ctx.AliasResolver, false
}
