package visitors

import (
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/query"
)

// TermToFieldVisitor turns the bare words of a sort expression into field
// references, so "-created name" names the fields created and name.
type TermToFieldVisitor struct {
	ast.BaseVisitor
}

// NewTermToFieldVisitor returns a sort term conversion pass.
func NewTermToFieldVisitor() *TermToFieldVisitor {
	return &TermToFieldVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*TermToFieldVisitor) Name() string { return "term_to_field" }

// VisitGroup implements ast.Visitor.
func (v *TermToFieldVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	return ast.VisitChildren(v, node, ctx)
}

// VisitTerm implements ast.Visitor.
func (v *TermToFieldVisitor) VisitTerm(node *ast.TermNode, _ *ast.Context) error {
	if node.Field == "" && node.Term != "" && !node.IsQuoted && !node.IsRegex {
		node.Field = node.Term
		node.Term = ""
	}
	return nil
}

// CombineSortsVisitor collects the sort fields of a sort expression in the
// order they are written. A "-" marker or NOT sorts descending; on a group
// it flips every field inside. The root's Sort slot holds the result.
type CombineSortsVisitor struct {
	ast.BaseVisitor
}

// NewCombineSortsVisitor returns a sort assembly pass.
func NewCombineSortsVisitor() *CombineSortsVisitor {
	return &CombineSortsVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*CombineSortsVisitor) Name() string { return "combine_sorts" }

// VisitGroup implements ast.Visitor.
func (v *CombineSortsVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if err := ast.VisitChildren(v, node, ctx); err != nil {
		return err
	}

	fields := make([]query.SortField, 0, 2)
	for _, child := range node.Children() {
		if g, ok := child.(*ast.GroupNode); ok {
			for _, f := range g.Data().Sort {
				if g.IsExcluded() {
					f.Descending = !f.Descending
				}
				fields = append(fields, f)
			}
			continue
		}

		fq, ok := child.(ast.FieldQueryNode)
		if !ok {
			continue
		}
		field := fq.FieldPart().Field
		if field == "" {
			continue
		}
		typ, err := FieldType(ctx, field)
		if err != nil {
			return err
		}
		fields = append(fields, query.SortField{
			Field:        field,
			Descending:   fq.FieldPart().IsExcluded(),
			UnmappedType: string(typ),
		})
	}
	node.Data().Sort = fields
	return nil
}
