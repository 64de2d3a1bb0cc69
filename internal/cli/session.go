package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/lucq/internal/compiler"
	"github.com/roach88/lucq/internal/config"
	"github.com/roach88/lucq/internal/elastic"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/metrics"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/querysql"
)

// Render targets.
const (
	TargetElastic = "elastic"
	TargetSQL     = "sql"
)

// CompileOutput is what compile and the repl print for one query.
type CompileOutput struct {
	Mode   string `json:"mode"`
	Target string `json:"target"`

	// Normalized is the rewritten query text.
	Normalized string `json:"normalized,omitempty"`

	Elastic map[string]any `json:"elastic,omitempty"`

	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`
	// Warnings lists constructs the SQL only approximates.
	Warnings []string `json:"warnings,omitempty"`

	Validation *validation.Result `json:"validation"`
}

// session is a compiler opened from one configuration.
//
// CRITICAL: close must be called to release the schema databases and the
// include store opened by the configuration.
type session struct {
	cfg      *config.Config
	setup    *compiler.Setup
	compiler *compiler.Compiler
	sql      *querysql.Compiler
	registry *prometheus.Registry
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	setup, err := compiler.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	opts := append(setup.Options,
		compiler.WithLogger(logger),
		compiler.WithObserver(metrics.NewPipelineMetrics(registry)),
	)
	c, err := compiler.New(opts...)
	if err != nil {
		setup.Close()
		return nil, err
	}

	dialect, err := querysql.ParseDialect(cfg.SQL.Dialect)
	if err != nil {
		setup.Close()
		return nil, err
	}
	sqlc := querysql.NewCompiler(dialect)
	sqlc.Schema = setup.Schema
	sqlc.DefaultFields = cfg.Query.DefaultFields
	sqlc.OrderKey = cfg.SQL.OrderKey

	return &session{cfg: cfg, setup: setup, compiler: c, sql: sqlc, registry: registry}, nil
}

func (s *session) close() error {
	return s.setup.Close()
}

// parseMode maps a --mode value onto a query type.
func parseMode(mode string) (ast.QueryType, error) {
	switch mode {
	case "", "query":
		return ast.TypeQuery, nil
	case "filter":
		return ast.TypeFilter, nil
	case "aggregation", "aggregations":
		return ast.TypeAggregation, nil
	case "sort":
		return ast.TypeSort, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be one of query, filter, aggregations, sort", mode)
}

func parseTarget(target string) (string, error) {
	switch target {
	case TargetElastic, TargetSQL:
		return target, nil
	}
	return "", fmt.Errorf("invalid target %q: must be elastic or sql", target)
}

// render compiles text and renders it for target. An invalid query is not
// an error: the output carries the validation result and nothing else.
func (s *session) render(ctx context.Context, qt ast.QueryType, target, text string) (*CompileOutput, error) {
	res, err := s.compiler.Compile(ctx, qt, text)
	var verr *validation.Error
	if err != nil && !errors.As(err, &verr) {
		return nil, err
	}

	out := &CompileOutput{Mode: string(qt), Target: target, Validation: res.Validation}
	if !res.Validation.IsValid() {
		return out, nil
	}
	if res.Root != nil {
		out.Normalized = res.Root.String()
	}

	var q query.Query
	switch qt {
	case ast.TypeQuery:
		q = res.Query
	case ast.TypeFilter:
		q = res.Filter
	}

	switch target {
	case TargetSQL:
		if qt == ast.TypeAggregation {
			return nil, fmt.Errorf("aggregations have no SQL rendering")
		}
		if out.SQL, out.Args, err = s.sql.Select(ctx, s.cfg.SQL.Table, q, res.Sort); err != nil {
			return nil, err
		}
		out.Warnings = query.Validate(q).Warnings
	default:
		req := elastic.Request{
			Aggregations:  res.Aggregations,
			Sort:          res.Sort,
			RuntimeFields: res.RuntimeFields,
		}
		if qt == ast.TypeFilter {
			req.Filter = q
		} else {
			req.Query = q
		}
		if out.Elastic, err = req.Body(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
