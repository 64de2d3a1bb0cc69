// Package compiler is the entry point for turning Lucene query text into
// backend-neutral results. It owns the three visitor pipelines, builds a
// fresh ast.Context per call from its options and hands the parsed tree to
// the pipeline matching the requested query type.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/parser"
	"github.com/roach88/lucq/internal/lucene/pipeline"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/lucene/visitors"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/schema"
)

// Pipeline names, also used as metric labels.
const (
	QueryPipeline       = "query"
	AggregationPipeline = "aggregation"
	SortPipeline        = "sort"
)

// Default visitor priorities. Combination passes run last.
const (
	PriorityFirst       = 0
	PriorityAlias       = 10
	PriorityResolve     = 20
	PriorityValidate    = 30
	PriorityNested      = 300
	PriorityCombination = 10000
)

// Result is the outcome of one compilation.
//
// Exactly one of Query, Filter, Aggregations and Sort is populated,
// according to the query type. Validation is always set; an invalid
// result may still carry a partial compilation when the policy collects
// issues instead of aborting.
type Result struct {
	Type         ast.QueryType
	Query        query.Query
	Filter       query.Query
	Aggregations aggs.Set
	Sort         []query.SortField

	// RuntimeFields lists the runtime fields the query needs, including
	// those discovered by the runtime field resolver during this call.
	RuntimeFields []schema.RuntimeField

	Validation *validation.Result

	// Root is the rewritten tree, useful for regenerating normalized text.
	Root ast.Node
}

// Compiler compiles query text with a fixed configuration.
//
// Thread-safety model:
//   - A Compiler is immutable after New and safe for concurrent use.
//   - Pipelines are frozen at construction; every call gets its own
//     ast.Context and parse tree.
type Compiler struct {
	logger   *slog.Logger
	observer pipeline.Observer

	schema          schema.Lookup
	runtimeFields   []schema.RuntimeField
	runtimeResolver schema.RuntimeFieldResolver
	aliases         alias.Resolver
	includes        ast.IncludeResolver
	aggregations    aggs.Provider
	builder         visitors.QueryBuilder

	defaultFields  []string
	queryOperator  ast.Operator
	filterOperator ast.Operator
	validation     validation.Options

	customize []func(*pipeline.Pipeline) error

	pipelines map[string]*pipeline.Pipeline
}

// New returns a compiler configured by opts.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		builder: visitors.DefaultQuery,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.pipelines = map[string]*pipeline.Pipeline{}
	for name, build := range map[string]func(*pipeline.Pipeline) error{
		QueryPipeline:       c.queryVisitors,
		AggregationPipeline: c.aggregationVisitors,
		SortPipeline:        c.sortVisitors,
	} {
		var popts []pipeline.Option
		if c.observer != nil {
			popts = append(popts, pipeline.WithObserver(c.observer))
		}
		p := pipeline.New(name, popts...)
		if err := build(p); err != nil {
			return nil, fmt.Errorf("build %s pipeline: %w", name, err)
		}
		for _, fn := range c.customize {
			if err := fn(p); err != nil {
				return nil, fmt.Errorf("customize %s pipeline: %w", name, err)
			}
		}
		p.Freeze()
		c.pipelines[name] = p
	}
	return c, nil
}

func (c *Compiler) queryVisitors(p *pipeline.Pipeline) error {
	return addAll(p,
		entry{visitors.NewIncludeVisitor(), PriorityFirst},
		entry{visitors.NewAliasVisitor(), PriorityAlias},
		entry{visitors.NewFieldResolverVisitor(), PriorityResolve},
		entry{visitors.NewValidationVisitor(visitors.Resolvable), PriorityValidate},
		entry{visitors.NewNestedVisitor(), PriorityNested},
		entry{visitors.NewCombineQueriesVisitor(c.builder), PriorityCombination},
	)
}

func (c *Compiler) aggregationVisitors(p *pipeline.Pipeline) error {
	return addAll(p,
		entry{visitors.NewAssignOperationTypeVisitor(), PriorityFirst},
		entry{visitors.NewAliasVisitor(), PriorityAlias},
		entry{visitors.NewFieldResolverVisitor(), PriorityResolve},
		entry{visitors.NewValidationVisitor(visitors.Resolvable), PriorityValidate},
		entry{visitors.NewCombineAggregationsVisitor(), PriorityCombination},
	)
}

func (c *Compiler) sortVisitors(p *pipeline.Pipeline) error {
	return addAll(p,
		entry{visitors.NewTermToFieldVisitor(), PriorityFirst},
		entry{visitors.NewAliasVisitor(), PriorityAlias},
		entry{visitors.NewFieldResolverVisitor(), PriorityResolve},
		entry{visitors.NewValidationVisitor(visitors.Resolvable), PriorityValidate},
		entry{visitors.NewCombineSortsVisitor(), PriorityCombination},
	)
}

type entry struct {
	visitor  ast.Visitor
	priority int
}

func addAll(p *pipeline.Pipeline, entries ...entry) error {
	for _, e := range entries {
		if err := p.Add(e.visitor, e.priority); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline returns the frozen pipeline registered under name, or nil.
func (c *Compiler) Pipeline(name string) *pipeline.Pipeline {
	return c.pipelines[name]
}

// pipelineFor maps a query type onto its pipeline.
func (c *Compiler) pipelineFor(qt ast.QueryType) (*pipeline.Pipeline, error) {
	switch qt {
	case ast.TypeQuery, ast.TypeFilter:
		return c.pipelines[QueryPipeline], nil
	case ast.TypeAggregation:
		return c.pipelines[AggregationPipeline], nil
	case ast.TypeSort:
		return c.pipelines[SortPipeline], nil
	default:
		return nil, fmt.Errorf("unknown query type %q", qt)
	}
}

// Parse parses text with the built-in front end.
func (c *Compiler) Parse(text string) (*ast.GroupNode, error) {
	return parser.Parse(text)
}

// NewContext returns the per-call context the compiler would use for qt.
func (c *Compiler) NewContext(ctx context.Context, qt ast.QueryType) *ast.Context {
	actx := ast.NewContext(ctx, qt)
	actx.DefaultFields = c.defaultFields
	actx.Schema = c.schema
	actx.RuntimeFields = append([]schema.RuntimeField(nil), c.runtimeFields...)
	actx.RuntimeFieldResolver = c.runtimeResolver
	actx.AliasResolver = c.aliases
	actx.IncludeResolver = c.includes
	actx.AggregationProvider = c.aggregations
	actx.Logger = c.logger

	opts := c.validation
	actx.ValidationOptions = &opts

	switch qt {
	case ast.TypeQuery:
		actx.DefaultOperator = c.queryOperator
	case ast.TypeFilter:
		actx.DefaultOperator = c.filterOperator
	}
	return actx
}

// Compile parses text and runs the pipeline for qt over it.
//
// Syntax errors become a single validation issue at the error offset and
// stop the compilation; the returned error is nil unless the policy asks
// to abort on the first issue. Structural errors and external lookup
// failures are always returned as errors.
func (c *Compiler) Compile(ctx context.Context, qt ast.QueryType, text string) (*Result, error) {
	p, err := c.pipelineFor(qt)
	if err != nil {
		return nil, err
	}
	actx := c.NewContext(ctx, qt)
	log := actx.Log().With("query_type", string(qt))
	start := time.Now()

	result := &Result{Type: qt, Validation: actx.ValidationResult}

	root, err := c.Parse(text)
	if err != nil {
		var serr *parser.SyntaxError
		if !errors.As(err, &serr) {
			return nil, err
		}
		log.Debug("syntax error", "error", serr)
		if verr := actx.AddValidationError(serr.Error(), serr.Offset); verr != nil {
			return result, verr
		}
		return result, nil
	}

	out, err := p.Run(root, actx)
	if err != nil {
		log.Debug("compilation aborted", "error", err)
		return result, err
	}

	result.Root = out
	result.RuntimeFields = actx.RuntimeFields
	data := out.Data()
	switch qt {
	case ast.TypeQuery:
		result.Query = data.Query
	case ast.TypeFilter:
		result.Filter = data.Filter
	case ast.TypeAggregation:
		if container, ok := data.Aggregation.(*aggs.Container); ok {
			result.Aggregations = container.Subs()
		}
	case ast.TypeSort:
		result.Sort = data.Sort
	}

	if len(actx.ValidationResult.UnresolvedFields) > 0 {
		log.Warn("unresolved fields", "fields", actx.ValidationResult.UnresolvedFields.Sorted())
	}
	log.Info("query compiled",
		"valid", actx.ValidationResult.IsValid(),
		"issues", len(actx.ValidationResult.Issues),
		"duration", time.Since(start),
	)
	return result, nil
}

// BuildQuery compiles text as a scoring query.
func (c *Compiler) BuildQuery(ctx context.Context, text string) (*Result, error) {
	return c.Compile(ctx, ast.TypeQuery, text)
}

// BuildFilter compiles text as a non-scoring filter.
func (c *Compiler) BuildFilter(ctx context.Context, text string) (*Result, error) {
	return c.Compile(ctx, ast.TypeFilter, text)
}

// BuildAggregations compiles an aggregation expression such as
// "terms:(category~10 avg:price)".
func (c *Compiler) BuildAggregations(ctx context.Context, text string) (*Result, error) {
	return c.Compile(ctx, ast.TypeAggregation, text)
}

// BuildSort compiles a sort expression such as "-created name".
func (c *Compiler) BuildSort(ctx context.Context, text string) (*Result, error) {
	return c.Compile(ctx, ast.TypeSort, text)
}

// Validate compiles text and returns only the validation result.
func (c *Compiler) Validate(ctx context.Context, qt ast.QueryType, text string) (*validation.Result, error) {
	result, err := c.Compile(ctx, qt, text)
	if result == nil {
		return nil, err
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return result.Validation, nil
	}
	return result.Validation, err
}
