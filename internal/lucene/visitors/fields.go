package visitors

import (
	"fmt"
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/schema"
)

// Reserved field names. In query expressions @include names a saved query;
// in aggregation expressions it filters terms buckets.
const (
	IncludeField = "@include"
	ExcludeField = "@exclude"
	MissingField = "@missing"
	MinField     = "@min"
	OffsetField  = "@offset"
)

// isReserved reports whether field is a control keyword rather than a
// document field.
func isReserved(field string) bool {
	return strings.HasPrefix(field, "@")
}

// LookupField returns the canonical field for name from the context's schema,
// falling back to the runtime fields registered so far. It returns nil when
// neither knows the field.
func LookupField(ctx *ast.Context, name string) (*schema.Field, error) {
	if name == "" {
		return nil, nil
	}
	if ctx.Schema != nil {
		f, err := ctx.Schema.Field(ctx.Context(), name)
		if err != nil {
			return nil, fmt.Errorf("schema lookup %q: %w", name, err)
		}
		if f != nil {
			return f, nil
		}
	}
	if rf, ok := ctx.RuntimeField(name); ok {
		return &schema.Field{Name: rf.Name, Type: rf.Type}, nil
	}
	return nil, nil
}

// FieldType returns the schema type of name, TypeUnknown when no source
// knows it.
func FieldType(ctx *ast.Context, name string) (schema.FieldType, error) {
	f, err := LookupField(ctx, name)
	if err != nil || f == nil {
		return schema.TypeUnknown, err
	}
	return f.Type, nil
}

// ResolveField canonicalizes name by consulting, in order, the schema, the
// registered runtime fields and the runtime field resolver. A field found by
// the resolver is registered on the context for later nodes.
func ResolveField(ctx *ast.Context, name string) (string, bool, error) {
	f, err := LookupField(ctx, name)
	if err != nil {
		return "", false, err
	}
	if f != nil {
		return f.Name, true, nil
	}

	if ctx.RuntimeFieldResolver == nil {
		return "", false, nil
	}
	rf, err := ctx.RuntimeFieldResolver(ctx.Context(), name)
	if err != nil {
		return "", false, fmt.Errorf("runtime field %q: %w", name, err)
	}
	if rf == nil {
		return "", false, nil
	}
	if rf.Name == "" {
		rf.Name = name
	}
	ctx.RuntimeFields = append(ctx.RuntimeFields, *rf)
	return rf.Name, true, nil
}

// HasFieldSources reports whether the context can resolve fields at all.
func HasFieldSources(ctx *ast.Context) bool {
	return ctx.Schema != nil || len(ctx.RuntimeFields) > 0 || ctx.RuntimeFieldResolver != nil
}

// Resolvable is a FieldResolvable predicate backed by the same sources as
// FieldResolverVisitor. Nodes the resolver already handled report its
// outcome; others are checked against the schema and the registered runtime
// fields only, so the runtime field resolver is never called twice for one
// field. Without any source every field counts as resolvable.
func Resolvable(ctx *ast.Context, node ast.FieldQueryNode, field string) (bool, error) {
	if !HasFieldSources(ctx) {
		return true, nil
	}
	if data := node.Data(); data.FieldResolved {
		return !data.FieldUnresolved, nil
	}
	f, err := LookupField(ctx, field)
	return f != nil, err
}

// namesField reports whether node's field is a document field that
// resolution and validation check. A field-qualified group without an
// aggregation operation only scopes its children's fields, unless it holds
// leaves that have no field of their own and so query the group's field.
func namesField(node ast.FieldQueryNode) bool {
	g, ok := node.(*ast.GroupNode)
	if !ok || g.Data().Operation != "" {
		return true
	}
	return hasBareLeaf(g)
}

func hasBareLeaf(g *ast.GroupNode) bool {
	for _, child := range g.Children() {
		switch c := child.(type) {
		case *ast.GroupNode:
			if c.Field == "" && hasBareLeaf(c) {
				return true
			}
		case ast.FieldQueryNode:
			if c.FieldPart().Field == "" {
				return true
			}
		}
	}
	return false
}
