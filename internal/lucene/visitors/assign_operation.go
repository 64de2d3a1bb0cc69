package visitors

import (
	"fmt"

	"github.com/roach88/lucq/internal/lucene/ast"
)

// StructuralError reports an aggregation expression whose shape the
// aggregation passes cannot interpret. It is never collected as a
// validation issue; the pipeline stops.
type StructuralError struct {
	Message string
	Pos     ast.Position
}

// Error implements error.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("malformed aggregation at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// AssignOperationTypeVisitor rewrites aggregation expressions so that every
// operation is stored the same way: Data.Operation holds the keyword and
// Field holds the target field.
//
//	min:price             term  Field=min Term=price  ->  Operation=min Field=price
//	terms:(category ...)  group Field=terms, Left=category
//	                      ->  Operation=terms Field=category, Left cleared
//
// The group form takes the target term's modifiers, so "terms:(category~10)"
// and "terms:category~10" produce the same request.
type AssignOperationTypeVisitor struct {
	ast.BaseVisitor
}

// NewAssignOperationTypeVisitor returns an operation assignment pass.
func NewAssignOperationTypeVisitor() *AssignOperationTypeVisitor {
	return &AssignOperationTypeVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*AssignOperationTypeVisitor) Name() string { return "assign_operation_type" }

// VisitGroup implements ast.Visitor.
func (v *AssignOperationTypeVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if node.Field != "" && !isReserved(node.Field) && node.Data().Operation == "" {
		target, ok := node.Left().(*ast.TermNode)
		if !ok || target.Field != "" || target.IsQuoted || target.IsRegex || target.Term == "" {
			return &StructuralError{
				Message: fmt.Sprintf("%s:(...) must start with a target field name", node.Field),
				Pos:     node.Pos(),
			}
		}

		node.Data().Operation = node.Field
		node.Field = target.Term
		if target.Boost != "" {
			node.Boost = target.Boost
		}
		if target.Proximity != "" {
			node.Proximity = target.Proximity
		}
		node.SetLeft(nil)
		ctx.Log().Debug("operation assigned", "operation", node.Data().Operation, "field", node.Field)
	}
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *AssignOperationTypeVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	if node.Field == "" || isReserved(node.Field) || node.Data().Operation != "" {
		return nil
	}
	if node.Term == "" {
		return &StructuralError{
			Message: fmt.Sprintf("%s: needs a target field name", node.Field),
			Pos:     node.Pos(),
		}
	}
	node.Data().Operation = node.Field
	node.Field = node.Term
	node.Term = ""
	return nil
}
