package visitors

import (
	"fmt"
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/validation"
)

// FieldResolvable reports whether field, the full path of node's field, is
// known to the field sources.
type FieldResolvable func(ctx *ast.Context, node ast.FieldQueryNode, field string) (bool, error)

// ValidationVisitor records the fields, includes, operations and nesting
// depth a tree uses into the context's validation result, and reports
// policy violations through Context.AddValidationError.
type ValidationVisitor struct {
	ast.BaseVisitor

	// Resolvable decides which fields count as unresolved. Nil treats every
	// field as resolvable.
	Resolvable FieldResolvable
}

// NewValidationVisitor returns a validation pass using resolvable, which may
// be nil.
func NewValidationVisitor(resolvable FieldResolvable) *ValidationVisitor {
	return &ValidationVisitor{Resolvable: resolvable}
}

// Name implements the pipeline's visitor naming.
func (*ValidationVisitor) Name() string { return "validation" }

// VisitGroup implements ast.Visitor.
func (v *ValidationVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if node.HasParens {
		depth := Depth(node)
		result := ctx.ValidationResult
		if depth > result.MaxNodeDepth {
			result.MaxNodeDepth = depth
		}
		if limit := options(ctx).AllowedMaxNodeDepth; limit > 0 && depth == limit+1 {
			msg := fmt.Sprintf("query exceeds maximum allowed depth of %d", limit)
			if err := ctx.AddValidationError(msg, node.Pos().Offset); err != nil {
				return err
			}
		}
	}

	if err := v.checkField(node, ctx); err != nil {
		return err
	}
	if err := v.checkOperation(node, ctx); err != nil {
		return err
	}
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *ValidationVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	if strings.EqualFold(node.Field, IncludeField) && ctx.QueryType != ast.TypeAggregation {
		ctx.ValidationResult.ReferencedIncludes.Add(node.Term)
		return nil
	}

	if options(ctx).DenyLeadingWildcards && !node.IsQuoted && !node.IsRegex &&
		node.Term != "*" && strings.IndexAny(node.Term, "*?") == 0 {
		msg := "terms must not start with a wildcard: " + node.Term
		if err := ctx.AddValidationError(msg, node.Pos().Offset); err != nil {
			return err
		}
	}

	if err := v.checkField(node, ctx); err != nil {
		return err
	}
	return v.checkOperation(node, ctx)
}

// VisitTermRange implements ast.Visitor.
func (v *ValidationVisitor) VisitTermRange(node *ast.TermRangeNode, ctx *ast.Context) error {
	return v.checkField(node, ctx)
}

// VisitExists implements ast.Visitor.
func (v *ValidationVisitor) VisitExists(node *ast.ExistsNode, ctx *ast.Context) error {
	return v.checkField(node, ctx)
}

// VisitMissing implements ast.Visitor.
func (v *ValidationVisitor) VisitMissing(node *ast.MissingNode, ctx *ast.Context) error {
	return v.checkField(node, ctx)
}

func (v *ValidationVisitor) checkField(node ast.FieldQueryNode, ctx *ast.Context) error {
	if f := node.FieldPart().Field; f == "" || isReserved(f) || !namesField(node) {
		return nil
	}
	field := ast.FieldPath(node)
	result := ctx.ValidationResult
	result.ReferencedFields.Add(field)

	if !options(ctx).FieldAllowed(field) {
		msg := "field not allowed: " + written(node)
		if err := ctx.AddValidationError(msg, node.Pos().Offset); err != nil {
			return err
		}
	}

	if v.Resolvable == nil {
		return nil
	}
	ok, err := v.Resolvable(ctx, node, field)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	result.UnresolvedFields.Add(field)
	ctx.Log().Warn("unresolved field", "field", field)
	if options(ctx).DenyUnresolvedFields {
		return ctx.AddValidationError("field is not resolvable: "+written(node), node.Pos().Offset)
	}
	return nil
}

func (v *ValidationVisitor) checkOperation(node ast.FieldQueryNode, ctx *ast.Context) error {
	op := node.Data().Operation
	if op == "" {
		return nil
	}
	ctx.ValidationResult.AddOperation(op, node.FieldPart().Field)
	if !options(ctx).OperationAllowed(op) {
		msg := "operation not allowed: " + op
		return ctx.AddValidationError(msg, node.Pos().Offset)
	}
	return nil
}

// Depth returns the number of parenthesized groups from the root down to
// and including node.
func Depth(node ast.Node) int {
	depth := 0
	if g, ok := node.(*ast.GroupNode); ok && g.HasParens {
		depth++
	}
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.HasParens {
			depth++
		}
	}
	return depth
}

// written returns the field as the user wrote it.
func written(node ast.FieldQueryNode) string {
	if f := node.Data().OriginalField; f != "" {
		return f
	}
	return node.FieldPart().Field
}

func options(ctx *ast.Context) *validation.Options {
	if ctx.ValidationOptions == nil {
		return &validation.Options{}
	}
	return ctx.ValidationOptions
}
