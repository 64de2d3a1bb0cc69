package visitors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/parser"
	"github.com/roach88/lucq/internal/lucene/pipeline"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/schema"
)

func aggregationPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New("aggregation")
	require.NoError(t, p.Add(NewAssignOperationTypeVisitor(), 0))
	require.NoError(t, p.Add(NewAliasVisitor(), 10))
	require.NoError(t, p.Add(NewFieldResolverVisitor(), 20))
	require.NoError(t, p.Add(NewValidationVisitor(Resolvable), 30))
	require.NoError(t, p.Add(NewCombineAggregationsVisitor(), 10000))
	return p
}

func compileAggs(t *testing.T, text string, setup func(*ast.Context)) (*aggs.Container, *ast.Context) {
	t.Helper()
	root, ctx := run(t, aggregationPipeline(t), ast.TypeAggregation, text, setup)
	c, ok := root.Data().Aggregation.(*aggs.Container)
	require.True(t, ok, "root holds a container")
	return c, ctx
}

func TestAssignOperationType(t *testing.T) {
	root, err := parser.Parse("min:price terms:(category~10^2 avg:price)")
	require.NoError(t, err)
	ctx := ast.NewContext(context.Background(), ast.TypeAggregation)
	_, err = ast.Accept(NewAssignOperationTypeVisitor(), root, ctx)
	require.NoError(t, err)

	term := root.Left().(*ast.TermNode)
	assert.Equal(t, "min", term.Data().Operation)
	assert.Equal(t, "price", term.Field)
	assert.Empty(t, term.Term)

	group := root.Right().(*ast.GroupNode)
	assert.Equal(t, "terms", group.Data().Operation)
	assert.Equal(t, "category", group.Field)
	assert.Equal(t, "10", group.Proximity)
	assert.Equal(t, "2", group.Boost)
	assert.Nil(t, group.Left())
	assert.Equal(t, "avg", group.Right().Data().Operation)
}

func TestAssignOperationType_Malformed(t *testing.T) {
	for _, input := range []string{"terms:(x:y)", `terms:("quoted")`, "terms:((a))"} {
		root, err := parser.Parse(input)
		require.NoError(t, err)
		ctx := ast.NewContext(context.Background(), ast.TypeAggregation)

		_, err = aggregationPipeline(t).Run(root, ctx)
		var serr *StructuralError
		require.True(t, errors.As(err, &serr), input)
		assert.Contains(t, serr.Error(), "terms:(...) must start with a target field name")
		assert.Equal(t, 1, serr.Pos.Column)
	}
}

func TestCombineAggregations_RootWithOperation(t *testing.T) {
	t.Run("group", func(t *testing.T) {
		avg := &ast.TermNode{FieldQuery: ast.FieldQuery{Field: "price"}}
		avg.Data().Operation = "avg"
		root := &ast.GroupNode{FieldQuery: ast.FieldQuery{Field: "category"}}
		root.Data().Operation = "terms"
		root.SetRight(avg)

		ctx := ast.NewContext(context.Background(), ast.TypeAggregation)
		_, err := ast.Accept(NewCombineAggregationsVisitor(), root, ctx)
		require.NoError(t, err)

		c, ok := root.Data().Aggregation.(*aggs.Container)
		require.True(t, ok, "root holds a container")
		require.Equal(t, []string{"terms_category"}, c.Subs().Names())
		terms := c.Subs()["terms_category"].(*aggs.Terms)
		assert.Equal(t, []string{"avg_price"}, terms.Subs().Names())
		assert.True(t, ctx.ValidationResult.IsValid())
	})

	t.Run("term", func(t *testing.T) {
		root := &ast.TermNode{FieldQuery: ast.FieldQuery{Field: "price"}}
		root.Data().Operation = "max"

		ctx := ast.NewContext(context.Background(), ast.TypeAggregation)
		_, err := ast.Accept(NewCombineAggregationsVisitor(), root, ctx)
		require.NoError(t, err)

		c, ok := root.Data().Aggregation.(*aggs.Container)
		require.True(t, ok, "root holds a container")
		assert.Equal(t, []string{"max_price"}, c.Subs().Names())
	})
}

func TestCombineAggregations_ReservedFields(t *testing.T) {
	c, ctx := compileAggs(t, "terms:(field1 @exclude:foo @min:2)", nil)

	require.Equal(t, []string{"terms_field1"}, c.Subs().Names())
	terms, ok := c.Subs()["terms_field1"].(*aggs.Terms)
	require.True(t, ok)
	assert.Equal(t, "field1", terms.Field)
	assert.Equal(t, &aggs.Filter{Pattern: "foo"}, terms.Exclude)
	require.NotNil(t, terms.MinDocCount)
	assert.Equal(t, 2, *terms.MinDocCount)
	assert.Empty(t, terms.Subs(), "control fields are not sub-aggregations")
	assert.True(t, ctx.ValidationResult.IsValid(), ctx.ValidationResult.Message())
}

func TestCombineAggregations_FilterValues(t *testing.T) {
	s := schema.NewStatic(schema.Field{Name: "code", Type: schema.TypeLong})
	c, _ := compileAggs(t, "terms:(code @include:1 @include:2 @missing:0)", func(ctx *ast.Context) { ctx.Schema = s })

	terms := c.Subs()["terms_code"].(*aggs.Terms)
	assert.Equal(t, &aggs.Filter{Values: []string{"1", "2"}}, terms.Include)
	assert.Nil(t, terms.Exclude)
	assert.Equal(t, "0", terms.Missing)
}

func TestCombineAggregations_Tree(t *testing.T) {
	c, ctx := compileAggs(t, "terms:(category~5 -avg:price +sum:qty date:(created~1d @offset:6h)) cardinality:user", nil)

	assert.Equal(t, []string{"cardinality_user", "terms_category"}, c.Subs().Names())

	terms := c.Subs()["terms_category"].(*aggs.Terms)
	assert.Equal(t, 5, terms.Size)
	assert.Equal(t, []string{"avg_price", "date_created", "sum_qty"}, terms.Subs().Names())
	assert.Equal(t, []aggs.Order{{Key: "avg_price", Descending: true}, {Key: "sum_qty"}}, terms.Order)

	date := terms.Subs()["date_created"].(*aggs.DateHistogram)
	assert.Equal(t, "1d", date.Interval)
	assert.Equal(t, "6h", date.Offset)

	assert.Equal(t, map[string]validation.Set{
		"terms":       validation.NewSet("category"),
		"avg":         validation.NewSet("price"),
		"sum":         validation.NewSet("qty"),
		"date":        validation.NewSet("created"),
		"cardinality": validation.NewSet("user"),
	}, ctx.ValidationResult.Operations)
}

func TestCombineAggregations_AliasNames(t *testing.T) {
	c, _ := compileAggs(t, "terms:cat", func(ctx *ast.Context) {
		ctx.AliasResolver = alias.New(alias.Map{"cat": {Name: "category.keyword"}})
	})

	terms := c.Subs()["terms_cat"].(*aggs.Terms)
	assert.Equal(t, "category.keyword", terms.Field, "named after the written field, built on the resolved one")
}

func TestCombineAggregations_FieldTypeMeta(t *testing.T) {
	s := schema.NewStatic(schema.Field{Name: "price", Type: schema.TypeDouble})
	c, _ := compileAggs(t, "avg:price", func(ctx *ast.Context) { ctx.Schema = s })

	assert.Equal(t, map[string]any{aggs.FieldTypeMeta: "double"}, c.Subs()["avg_price"].Meta())
}

func TestCombineAggregations_Issues(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"bogus:field", "unknown aggregation operation: bogus"},
		{"avg:(price min:qty)", "avg does not take sub-aggregations: min_qty"},
		{"date:(created @min:1)", "@min is not supported by date"},
		{"terms:(tag @min:many)", "@min needs a non-negative integer: many"},
		{"@missing:x", "@missing must be inside an aggregation"},
		{"loose", "expected an aggregation operation: loose"},
		{"terms:(tag n:[1 TO 2])", "unsupported clause in aggregation: n:[1 TO 2]"},
	}
	for _, tt := range tests {
		_, ctx := compileAggs(t, tt.input, nil)
		assert.Equal(t, tt.want, ctx.ValidationResult.Message(), tt.input)
	}
}

func TestCombineAggregations_RestrictedOperation(t *testing.T) {
	_, ctx := compileAggs(t, "cardinality:user terms:tag", func(ctx *ast.Context) {
		ctx.ValidationOptions.RestrictedOperations = validation.NewSet("cardinality")
	})
	assert.Equal(t, "operation not allowed: cardinality", ctx.ValidationResult.Message())
}

func TestCombineAggregations_Provider(t *testing.T) {
	var got []aggs.Request
	provider := aggs.ProviderFunc(func(ctx context.Context, req aggs.Request) (aggs.Aggregation, error) {
		got = append(got, req)
		return aggs.DefaultProvider{}.Aggregation(ctx, req)
	})

	compileAggs(t, "terms:(tag~3 max:n~0)", func(ctx *ast.Context) { ctx.AggregationProvider = provider })

	assert.Equal(t, []aggs.Request{
		{Operation: "max", Field: "n", Proximity: "0"},
		{Operation: "terms", Field: "tag", Proximity: "3"},
	}, got, "children first, each aggregation built once")
}

func TestCombineAggregations_ProviderError(t *testing.T) {
	boom := errors.New("no such index")
	root, err := parser.Parse("terms:tag")
	require.NoError(t, err)
	ctx := ast.NewContext(context.Background(), ast.TypeAggregation)
	ctx.AggregationProvider = aggs.ProviderFunc(func(context.Context, aggs.Request) (aggs.Aggregation, error) {
		return nil, boom
	})

	_, err = aggregationPipeline(t).Run(root, ctx)
	require.ErrorIs(t, err, boom)
}
