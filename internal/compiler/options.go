package compiler

import (
	"log/slog"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/pipeline"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/lucene/visitors"
	"github.com/roach88/lucq/internal/schema"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. Each execution adds its execution_id.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver reports pipeline and visitor timings to o.
func WithObserver(o pipeline.Observer) Option {
	return func(c *Compiler) {
		c.observer = o
	}
}

// WithSchema sets the schema lookups, consulted in order.
func WithSchema(lookups ...schema.Lookup) Option {
	return func(c *Compiler) {
		switch len(lookups) {
		case 0:
			c.schema = nil
		case 1:
			c.schema = lookups[0]
		default:
			c.schema = schema.Chain(lookups...)
		}
	}
}

// WithRuntimeFields registers runtime fields known up front.
func WithRuntimeFields(fields ...schema.RuntimeField) Option {
	return func(c *Compiler) {
		c.runtimeFields = append(c.runtimeFields, fields...)
	}
}

// WithRuntimeFieldResolver sets the callback consulted for fields no other
// source knows.
func WithRuntimeFieldResolver(r schema.RuntimeFieldResolver) Option {
	return func(c *Compiler) {
		c.runtimeResolver = r
	}
}

// WithAliases resolves field names through the hierarchical alias map m.
func WithAliases(m alias.Map) Option {
	return func(c *Compiler) {
		if len(m) == 0 {
			c.aliases = nil
			return
		}
		c.aliases = alias.New(m)
	}
}

// WithAliasResolver sets a custom alias resolver.
func WithAliasResolver(r alias.Resolver) Option {
	return func(c *Compiler) {
		c.aliases = r
	}
}

// WithIncludes serves @include references from a fixed map of saved
// queries.
func WithIncludes(includes map[string]string) Option {
	return WithIncludeResolver(mapResolver(includes))
}

// WithIncludeResolver sets the resolver for @include references.
func WithIncludeResolver(r ast.IncludeResolver) Option {
	return func(c *Compiler) {
		c.includes = r
	}
}

// WithAggregationProvider sets the provider that turns operation and field
// into aggregation fragments.
func WithAggregationProvider(p aggs.Provider) Option {
	return func(c *Compiler) {
		c.aggregations = p
	}
}

// WithQueryBuilder replaces the default leaf query builder.
func WithQueryBuilder(b visitors.QueryBuilder) Option {
	return func(c *Compiler) {
		if b != nil {
			c.builder = b
		}
	}
}

// WithDefaultFields sets the fields searched by terms without a field.
func WithDefaultFields(fields ...string) Option {
	return func(c *Compiler) {
		c.defaultFields = fields
	}
}

// WithQueryOperator sets the implicit operator for queries (OR by default).
func WithQueryOperator(op ast.Operator) Option {
	return func(c *Compiler) {
		c.queryOperator = op
	}
}

// WithFilterOperator sets the implicit operator for filters (AND by default).
func WithFilterOperator(op ast.Operator) Option {
	return func(c *Compiler) {
		c.filterOperator = op
	}
}

// WithValidation sets the validation policy. Each call receives a copy.
func WithValidation(opts validation.Options) Option {
	return func(c *Compiler) {
		c.validation = opts
	}
}

// WithPipeline runs fn on every pipeline before it is frozen. Use the
// pipeline's Name to target one, and its matchers to add, replace or
// remove visitors.
func WithPipeline(fn func(p *pipeline.Pipeline) error) Option {
	return func(c *Compiler) {
		c.customize = append(c.customize, fn)
	}
}
