package ast

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/schema"
)

// QueryType selects how the pipeline interprets the tree.
type QueryType string

const (
	TypeQuery       QueryType = "query"
	TypeFilter      QueryType = "filter"
	TypeAggregation QueryType = "aggregation"
	TypeSort        QueryType = "sort"
)

// IncludeResolver returns the query text saved under name. found is false
// when no such include exists.
type IncludeResolver func(ctx context.Context, name string) (text string, found bool, err error)

// Context carries everything one pipeline execution needs. It is created per
// call and passed explicitly to every visit; visitors keep no per-call state.
type Context struct {
	ctx context.Context

	// ID identifies the execution in logs.
	ID string

	QueryType QueryType

	// DefaultOperator applies to groups without an explicit operator.
	// OpDefault picks OR for queries and AND for everything else.
	DefaultOperator Operator

	// DefaultFields are searched by terms that name no field.
	DefaultFields []string

	Schema               schema.Lookup
	RuntimeFields        []schema.RuntimeField
	RuntimeFieldResolver schema.RuntimeFieldResolver

	AliasResolver       alias.Resolver
	IncludeResolver     IncludeResolver
	AggregationProvider aggs.Provider

	ValidationOptions *validation.Options
	ValidationResult  *validation.Result

	Logger *slog.Logger

	bag map[string]any
}

// NewContext returns a Context for one execution of the given type.
func NewContext(ctx context.Context, queryType QueryType) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	result := validation.NewResult()
	result.QueryType = string(queryType)
	return &Context{
		ctx:               ctx,
		ID:                uuid.NewString(),
		QueryType:         queryType,
		ValidationOptions: &validation.Options{},
		ValidationResult:  result,
	}
}

// Context returns the caller's context for cancellation of external lookups.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Log returns the execution logger, tagged with the execution ID.
func (c *Context) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger.With("execution_id", c.ID)
}

// EffectiveOperator returns the operator a group without an explicit one
// combines its operands with.
func (c *Context) EffectiveOperator() Operator {
	if c.DefaultOperator != OpDefault {
		return c.DefaultOperator
	}
	if c.QueryType == TypeQuery {
		return OpOr
	}
	return OpAnd
}

// Get returns an extension value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.bag[key]
	return v, ok
}

// Set stores an extension value for the rest of the execution.
func (c *Context) Set(key string, value any) {
	if c.bag == nil {
		c.bag = make(map[string]any)
	}
	c.bag[key] = value
}

// AddValidationError records a validation issue. With ShouldThrow set it
// returns a *validation.Error that aborts the pipeline; otherwise it returns
// nil and the issue is collected.
func (c *Context) AddValidationError(message string, index int) error {
	c.ValidationResult.AddError(message, index)
	if c.ValidationOptions != nil && c.ValidationOptions.ShouldThrow {
		return &validation.Error{
			Issue:  validation.Issue{Message: message, Index: index},
			Result: c.ValidationResult,
		}
	}
	return nil
}

// RuntimeField returns the registered runtime field matching name under
// Unicode case folding.
func (c *Context) RuntimeField(name string) (schema.RuntimeField, bool) {
	fold := cases.Fold()
	key := fold.String(name)
	for _, f := range c.RuntimeFields {
		if fold.String(f.Name) == key {
			return f, true
		}
	}
	return schema.RuntimeField{}, false
}
