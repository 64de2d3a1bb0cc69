package visitors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/schema"
)

const unknownOperationsKey = "aggs.unknown_operations"

// CombineAggregationsVisitor assembles the aggregation tree of an expression
// whose operations AssignOperationTypeVisitor already assigned.
//
// Every node with an operation gets its aggregation from the context's
// provider and is added, under its generated name, to the nearest ancestor
// with an operation. Top-level operations go into the root's aggs.Container,
// which the root's Aggregation slot holds when the pass ends.
//
// Terms carrying a control field configure the enclosing bucket instead of
// adding a sub-aggregation:
//
//	terms    @include:x @exclude:x   pattern for text fields, value list otherwise
//	         @missing:x              missing value substitute
//	         @min:n                  minimum document count
//	date     @missing:x @offset:x
//
// A "+" or "-" marker on a child of a terms bucket orders the buckets by the
// child's value, ascending or descending.
type CombineAggregationsVisitor struct {
	ast.BaseVisitor
}

// NewCombineAggregationsVisitor returns an aggregation assembly pass.
func NewCombineAggregationsVisitor() *CombineAggregationsVisitor {
	return &CombineAggregationsVisitor{}
}

// Name implements the pipeline's visitor naming.
func (*CombineAggregationsVisitor) Name() string { return "combine_aggregations" }

// VisitGroup implements ast.Visitor.
func (v *CombineAggregationsVisitor) VisitGroup(node *ast.GroupNode, ctx *ast.Context) error {
	if err := ast.VisitChildren(v, node, ctx); err != nil {
		return err
	}

	if node.Data().Operation != "" {
		if err := v.attach(node, ctx); err != nil {
			return err
		}
	}
	if node.Parent() != nil {
		return nil
	}

	container, err := rootContainer(node, ctx)
	if err != nil {
		return err
	}
	node.Data().Aggregation = container
	return nil
}

// VisitTerm implements ast.Visitor.
func (v *CombineAggregationsVisitor) VisitTerm(node *ast.TermNode, ctx *ast.Context) error {
	switch {
	case node.Data().Operation != "":
		return v.attach(node, ctx)
	case isReserved(node.Field):
		return v.control(node, ctx)
	default:
		return ctx.AddValidationError("expected an aggregation operation: "+node.String(), node.Pos().Offset)
	}
}

// VisitTermRange implements ast.Visitor.
func (v *CombineAggregationsVisitor) VisitTermRange(node *ast.TermRangeNode, ctx *ast.Context) error {
	return unsupportedClause(node, ctx)
}

// VisitExists implements ast.Visitor.
func (v *CombineAggregationsVisitor) VisitExists(node *ast.ExistsNode, ctx *ast.Context) error {
	return unsupportedClause(node, ctx)
}

// VisitMissing implements ast.Visitor.
func (v *CombineAggregationsVisitor) VisitMissing(node *ast.MissingNode, ctx *ast.Context) error {
	return unsupportedClause(node, ctx)
}

func unsupportedClause(node ast.Node, ctx *ast.Context) error {
	return ctx.AddValidationError("unsupported clause in aggregation: "+node.String(), node.Pos().Offset)
}

// attach adds the aggregation of node to its fold target. A root carrying
// an operation is added by rootContainer alone.
func (v *CombineAggregationsVisitor) attach(node ast.FieldQueryNode, ctx *ast.Context) error {
	if node.Parent() == nil {
		_, err := rootContainer(node, ctx)
		return err
	}

	agg, err := aggregationFor(node, ctx)
	if err != nil || agg == nil {
		return err
	}

	var target aggs.Aggregation
	if owner := operationOwner(node.Parent()); owner != nil {
		target, err = aggregationFor(owner, ctx)
		if err != nil || target == nil {
			return err
		}
	} else {
		target, err = rootContainer(node, ctx)
		if err != nil {
			return err
		}
	}

	data := node.Data()
	name := aggs.Name(data.Operation, node.FieldPart().Field, data.OriginalField)
	bucket, ok := target.(aggs.Bucket)
	if !ok {
		return ctx.AddValidationError(
			fmt.Sprintf("%s does not take sub-aggregations: %s", operationOf(target), name), node.Pos().Offset)
	}
	bucket.AddSub(name, agg)

	if t, ok := target.(*aggs.Terms); ok {
		switch node.FieldPart().Prefix {
		case "+":
			t.Order = append(t.Order, aggs.Order{Key: name})
		case "-":
			t.Order = append(t.Order, aggs.Order{Key: name, Descending: true})
		}
	}
	ctx.Log().Debug("aggregation added", "name", name)
	return nil
}

// control applies a control term to the aggregation it sits in.
func (v *CombineAggregationsVisitor) control(node *ast.TermNode, ctx *ast.Context) error {
	owner := operationOwner(node.Parent())
	if owner == nil {
		return ctx.AddValidationError(node.Field+" must be inside an aggregation", node.Pos().Offset)
	}
	target, err := aggregationFor(owner, ctx)
	if err != nil || target == nil {
		return err
	}

	key := strings.ToLower(node.Field)
	switch t := target.(type) {
	case *aggs.Terms:
		switch key {
		case IncludeField, ExcludeField:
			typ, err := FieldType(ctx, t.Field)
			if err != nil {
				return err
			}
			slot := &t.Exclude
			if key == IncludeField {
				slot = &t.Include
			}
			*slot = addFilterValue(*slot, node.Term, typ.IsStringLike() || typ == schema.TypeUnknown)
			return nil
		case MissingField:
			t.Missing = node.Term
			return nil
		case MinField:
			n, err := strconv.Atoi(node.Term)
			if err != nil || n < 0 {
				return ctx.AddValidationError("@min needs a non-negative integer: "+node.Term, node.Pos().Offset)
			}
			t.MinDocCount = &n
			return nil
		}
	case *aggs.DateHistogram:
		switch key {
		case MissingField:
			t.Missing = node.Term
			return nil
		case OffsetField:
			t.Offset = node.Term
			return nil
		}
	}
	msg := fmt.Sprintf("%s is not supported by %s", node.Field, owner.Data().Operation)
	return ctx.AddValidationError(msg, node.Pos().Offset)
}

func addFilterValue(f *aggs.Filter, value string, pattern bool) *aggs.Filter {
	if f == nil {
		f = &aggs.Filter{}
	}
	if pattern {
		if f.Pattern == "" {
			f.Pattern = value
		} else {
			f.Pattern += "|" + value
		}
		return f
	}
	f.Values = append(f.Values, value)
	return f
}

// aggregationFor returns the aggregation of a node with an operation,
// building it through the provider on first use. Unknown operations are
// reported once and yield nil.
func aggregationFor(node ast.FieldQueryNode, ctx *ast.Context) (aggs.Aggregation, error) {
	data := node.Data()
	agg, err := data.AggregationOr(func() (aggs.Aggregation, error) {
		typ, err := FieldType(ctx, node.FieldPart().Field)
		if err != nil {
			return nil, err
		}
		req := aggs.Request{
			Operation:     data.Operation,
			Field:         node.FieldPart().Field,
			OriginalField: data.OriginalField,
			FieldType:     typ,
		}
		req.Proximity, req.Boost = modifiersOf(node)

		var provider aggs.Provider = aggs.DefaultProvider{}
		if ctx.AggregationProvider != nil {
			provider = ctx.AggregationProvider
		}
		agg, err := provider.Aggregation(ctx.Context(), req)
		if err != nil {
			return nil, fmt.Errorf("aggregation %s:%s: %w", req.Operation, req.Field, err)
		}
		return agg, nil
	}, true)
	if err != nil || agg != nil {
		return agg, err
	}

	reported, _ := ctx.Get(unknownOperationsKey)
	seen, _ := reported.(map[ast.Node]bool)
	if seen[node] {
		return nil, nil
	}
	if seen == nil {
		seen = make(map[ast.Node]bool)
		ctx.Set(unknownOperationsKey, seen)
	}
	seen[node] = true
	return nil, ctx.AddValidationError("unknown aggregation operation: "+data.Operation, node.Pos().Offset)
}

// rootContainer returns the container holding the top-level aggregations,
// creating it on the root's slot on first use. A root that carries an
// operation itself is added to the container under its name.
func rootContainer(node ast.Node, ctx *ast.Context) (*aggs.Container, error) {
	root := ast.Root(node)
	data := root.Data()
	if c, ok := data.Aggregation.(*aggs.Container); ok {
		return c, nil
	}

	c := &aggs.Container{}
	if data.Operation != "" {
		fq, ok := root.(ast.FieldQueryNode)
		if ok {
			agg, err := aggregationFor(fq, ctx)
			if err != nil {
				return nil, err
			}
			if agg != nil {
				c.AddSub(aggs.Name(data.Operation, fq.FieldPart().Field, data.OriginalField), agg)
			}
		}
	}
	data.Aggregation = c
	return c, nil
}

// operationOwner returns the closest of g and its ancestors that carries an
// operation, or nil.
func operationOwner(g *ast.GroupNode) *ast.GroupNode {
	for ; g != nil; g = g.Parent() {
		if g.Data().Operation != "" {
			return g
		}
	}
	return nil
}

func modifiersOf(node ast.Node) (proximity, boost string) {
	switch n := node.(type) {
	case *ast.GroupNode:
		return n.Proximity, n.Boost
	case *ast.TermNode:
		return n.Proximity, n.Boost
	case *ast.TermRangeNode:
		return n.Proximity, n.Boost
	}
	return "", ""
}

func operationOf(agg aggs.Aggregation) string {
	switch a := agg.(type) {
	case *aggs.Metric:
		return string(a.Type)
	case *aggs.Percentiles:
		return "percentiles"
	case *aggs.TopHits:
		return "tophits"
	}
	return "aggregation"
}
