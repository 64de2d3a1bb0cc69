package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/lucq/internal/config"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/schema"
	"github.com/roach88/lucq/internal/store"
)

// Setup is what a configuration opens: compiler options plus the schema
// the emitters need for typed values.
//
// CRITICAL: Close releases the schema databases and the include store;
// callers must call it once the compiler is no longer used.
type Setup struct {
	Options []Option

	// Schema is nil when the configuration names no schema source.
	Schema schema.Lookup

	closers []func() error
}

// Close releases every resource the setup opened.
func (s *Setup) Close() error {
	var result *multierror.Error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result.ErrorOrNil()
}

// FromConfig translates a validated configuration into compiler options.
// Schema sources are consulted in the order inline fields, mapping file,
// SQLite table, PostgreSQL table. Includes from the file shadow those of
// the include store.
func FromConfig(ctx context.Context, cfg *config.Config) (*Setup, error) {
	s := &Setup{}
	if err := s.load(ctx, cfg); err != nil {
		if cerr := s.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Setup) load(ctx context.Context, cfg *config.Config) error {
	queryOp, err := config.ParseOperator(cfg.Query.DefaultOperator)
	if err != nil {
		return fmt.Errorf("query.default_operator: %w", err)
	}
	filterOp, err := config.ParseOperator(cfg.Query.FilterOperator)
	if err != nil {
		return fmt.Errorf("query.filter_operator: %w", err)
	}

	s.Options = append(s.Options,
		WithQueryOperator(queryOp),
		WithFilterOperator(filterOp),
		WithDefaultFields(cfg.Query.DefaultFields...),
		WithValidation(cfg.Validation),
		WithRuntimeFields(cfg.RuntimeFields...),
	)
	if len(cfg.Aliases) > 0 {
		s.Options = append(s.Options, WithAliases(cfg.Aliases))
	}

	lookups, err := s.schemas(ctx, cfg)
	if err != nil {
		return err
	}
	switch len(lookups) {
	case 0:
	case 1:
		s.Schema = lookups[0]
	default:
		s.Schema = schema.Chain(lookups...)
	}
	if s.Schema != nil {
		s.Options = append(s.Options, WithSchema(s.Schema))
	}

	resolver, err := s.includes(cfg)
	if err != nil {
		return err
	}
	if resolver != nil {
		s.Options = append(s.Options, WithIncludeResolver(resolver))
	}
	return nil
}

func (s *Setup) schemas(ctx context.Context, cfg *config.Config) ([]schema.Lookup, error) {
	var lookups []schema.Lookup

	if len(cfg.Schema.Fields) > 0 {
		lookups = append(lookups, schema.FromTypes(cfg.Schema.Fields))
	}

	if cfg.Schema.Mapping != "" {
		path := cfg.Path(cfg.Schema.Mapping)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema.mapping: %w", err)
		}
		m, err := schema.FromMapping(data)
		if err != nil {
			return nil, fmt.Errorf("schema.mapping %s: %w", path, err)
		}
		lookups = append(lookups, m)
	}

	if src := cfg.Schema.SQLite; src != nil {
		db, err := schema.OpenSQLite(cfg.Path(src.Path))
		if err != nil {
			return nil, fmt.Errorf("schema.sqlite: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		static, err := schema.LoadSQLite(ctx, db, src.Table)
		if err != nil {
			return nil, fmt.Errorf("schema.sqlite: %w", err)
		}
		lookups = append(lookups, static)
	}

	if src := cfg.Schema.Postgres; src != nil {
		pool, err := schema.ConnectPostgres(ctx, src.DSN)
		if err != nil {
			return nil, fmt.Errorf("schema.postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		static, err := schema.LoadPostgres(ctx, pool, src.Table)
		if err != nil {
			return nil, fmt.Errorf("schema.postgres: %w", err)
		}
		lookups = append(lookups, static)
	}

	return lookups, nil
}

func (s *Setup) includes(cfg *config.Config) (ast.IncludeResolver, error) {
	var stored ast.IncludeResolver
	if cfg.IncludeStore != "" {
		st, err := store.Open(cfg.Path(cfg.IncludeStore))
		if err != nil {
			return nil, fmt.Errorf("include_store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		stored = st.Resolver()
	}

	inline := cfg.Includes
	switch {
	case len(inline) == 0:
		return stored, nil
	case stored == nil:
		return mapResolver(inline), nil
	}
	return func(ctx context.Context, name string) (string, bool, error) {
		if text, ok := inline[name]; ok {
			return text, true, nil
		}
		return stored(ctx, name)
	}, nil
}

func mapResolver(m map[string]string) ast.IncludeResolver {
	return func(_ context.Context, name string) (string, bool, error) {
		text, ok := m[name]
		return text, ok, nil
	}
}
