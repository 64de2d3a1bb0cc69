package visitors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/parser"
)

const includeStackKey = "include.stack"

// IncludeVisitor replaces "@include:name" terms with the parsed text of the
// saved query the include resolver returns. The expansion is wrapped in a
// parenthesized group that keeps the term's prefix and negation, and
// includes inside the expansion are expanded in turn.
type IncludeVisitor struct {
	ast.BaseVisitor
}

// NewIncludeVisitor returns an include expansion pass.
func NewIncludeVisitor() *IncludeVisitor {
	return &IncludeVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*IncludeVisitor) Name() string { return "include" }

// VisitGroup implements ast.Visitor.
func (v *IncludeVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *IncludeVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	if !strings.EqualFold(node.Field, IncludeField) {
		return nil
	}
	name := node.Term
	ctx.ValidationResult.ReferencedIncludes.Add(name)

	if ctx.IncludeResolver == nil {
		return v.unresolved(node, name, ctx)
	}

	stack, _ := ctx.Get(includeStackKey)
	names, _ := stack.([]string)
	if slices.Contains(names, name) {
		cycle := strings.Join(append(slices.Clone(names), name), " -> ")
		return ctx.AddValidationError("include cycle: "+cycle, node.Pos().Offset)
	}

	text, found, err := ctx.IncludeResolver(ctx.Context(), name)
	if err != nil {
		return fmt.Errorf("resolve include %q: %w", name, err)
	}
	if !found {
		return v.unresolved(node, name, ctx)
	}

	sub, err := parser.Parse(text)
	if err != nil {
		return ctx.AddValidationError(fmt.Sprintf("include %s: %v", name, err), node.Pos().Offset)
	}
	sub.HasParens = true
	sub.IsNegated = node.IsNegated
	sub.Prefix = node.Prefix
	sub.SetPos(node.Pos())

	ctx.Set(includeStackKey, append(slices.Clone(names), name))
	err = sub.Accept(v, ctx)
	ctx.Set(includeStackKey, names)
	if err != nil {
		return err
	}

	if parent := node.Parent(); parent != nil {
		parent.ReplaceChild(node, sub)
	}
	ctx.Log().Debug("include expanded", "include", name, "query", sub.String())
	return nil
}

func (v *IncludeVisitor) unresolved(node *ast.TermNode, name string, ctx *ast.Context) error {
	ctx.ValidationResult.UnresolvedIncludes.Add(name)
	ctx.Log().Warn("include not found", "include", name)
	if ctx.ValidationOptions != nil && ctx.ValidationOptions.AllowUnresolvedIncludes {
		return nil
	}
	return ctx.AddValidationError("unresolved include: "+name, node.Pos().Offset)
}
