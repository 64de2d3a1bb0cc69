package visitors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/parser"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/schema"
)

func TestValidation_Depth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"x:a", 0},
		{"(x:a)", 1},
		{"((((x:a))))", 4},
		{"(x:a) OR ((x:b))", 2},
		{"((x:b)) OR (x:a)", 2},
		{"x:(a OR (b AND (c)))", 3},
	}
	for _, tt := range tests {
		_, ctx := compileQuery(t, tt.input, nil)
		assert.Equal(t, tt.want, ctx.ValidationResult.MaxNodeDepth, tt.input)
	}
}

func TestValidation_DepthLimit(t *testing.T) {
	_, ctx := compileQuery(t, "x:a OR (((x:b)))", func(ctx *ast.Context) {
		ctx.ValidationOptions.AllowedMaxNodeDepth = 2
	})

	require.Len(t, ctx.ValidationResult.Issues, 1, "reported once per branch")
	assert.Equal(t, validation.Issue{Message: "query exceeds maximum allowed depth of 2", Index: 9}, ctx.ValidationResult.Issues[0])
	assert.Equal(t, 3, ctx.ValidationResult.MaxNodeDepth)
}

func TestValidation_Policies(t *testing.T) {
	s := schema.NewStatic(
		schema.Field{Name: "x", Type: schema.TypeKeyword},
		schema.Field{Name: "secret", Type: schema.TypeKeyword},
	)

	tests := []struct {
		name       string
		input      string
		opts       validation.Options
		wantIssues []validation.Issue
		unresolved []string
	}{
		{
			name:       "leading wildcard denied",
			input:      "x:*abc x:* x:\"*abc\"",
			opts:       validation.Options{DenyLeadingWildcards: true},
			wantIssues: []validation.Issue{{Message: "terms must not start with a wildcard: *abc", Index: 0}},
		},
		{
			name:       "leading wildcard allowed",
			input:      "x:*abc",
			wantIssues: []validation.Issue{},
		},
		{
			name:       "allow list",
			input:      "x:1 secret:2",
			opts:       validation.Options{AllowedFields: validation.NewSet("X")},
			wantIssues: []validation.Issue{{Message: "field not allowed: secret", Index: 4}},
		},
		{
			name:       "restricted through alias",
			input:      "pw:1",
			opts:       validation.Options{RestrictedFields: validation.NewSet("secret")},
			wantIssues: []validation.Issue{{Message: "field not allowed: pw", Index: 0}},
		},
		{
			name:       "unresolved tolerated",
			input:      "x:1 y:2",
			wantIssues: []validation.Issue{},
			unresolved: []string{"y"},
		},
		{
			name:       "unresolved denied",
			input:      "x:1 y:2",
			opts:       validation.Options{DenyUnresolvedFields: true},
			wantIssues: []validation.Issue{{Message: "field is not resolvable: y", Index: 4}},
			unresolved: []string{"y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ctx := compileQuery(t, tt.input, func(ctx *ast.Context) {
				opts := tt.opts
				ctx.ValidationOptions = &opts
				ctx.Schema = s
				ctx.AliasResolver = alias.New(alias.Map{"pw": {Name: "secret"}})
			})
			assert.Equal(t, tt.wantIssues, ctx.ValidationResult.Issues)
			if tt.unresolved == nil {
				tt.unresolved = []string{}
			}
			assert.Equal(t, tt.unresolved, ctx.ValidationResult.UnresolvedFields.Sorted())
		})
	}
}

func TestValidation_NoFieldSources(t *testing.T) {
	_, ctx := compileQuery(t, "anything:1", func(ctx *ast.Context) {
		ctx.ValidationOptions.DenyUnresolvedFields = true
	})
	assert.True(t, ctx.ValidationResult.IsValid(), "without sources every field is resolvable")
}

func TestValidation_ShouldThrow(t *testing.T) {
	root, err := parser.Parse("a:1 b:2 c:3")
	require.NoError(t, err)

	ctx := ast.NewContext(context.Background(), ast.TypeQuery)
	ctx.ValidationOptions = &validation.Options{
		RestrictedFields: validation.NewSet("b", "c"),
		ShouldThrow:      true,
	}

	_, err = queryPipeline(t).Run(root, ctx)
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "field not allowed: b", verr.Issue.Message)
	assert.Len(t, ctx.ValidationResult.Issues, 1, "stops at the first issue")
	assert.Nil(t, root.Data().Query, "combination never ran")
}

func TestValidation_NilOptions(t *testing.T) {
	_, ctx := compileQuery(t, "x:*abc", func(ctx *ast.Context) { ctx.ValidationOptions = nil })
	assert.True(t, ctx.ValidationResult.IsValid())
}

func TestDepth(t *testing.T) {
	root, err := parser.Parse("(a (b))")
	require.NoError(t, err)

	outer := root.Left().(*ast.GroupNode)
	inner := outer.Right().(*ast.GroupNode)
	assert.Equal(t, 0, Depth(root))
	assert.Equal(t, 1, Depth(outer))
	assert.Equal(t, 2, Depth(inner))
	assert.Equal(t, 2, Depth(inner.Left()))
}
