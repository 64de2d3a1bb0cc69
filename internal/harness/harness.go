package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/lucq/internal/canonical"
	"github.com/roach88/lucq/internal/compiler"
	"github.com/roach88/lucq/internal/config"
	"github.com/roach88/lucq/internal/elastic"
	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/querysql"
	"github.com/roach88/lucq/internal/schema"
	"github.com/roach88/lucq/internal/store"
)

// Harness is the scenario execution engine.
type Harness struct {
	compiler *compiler.Compiler
	sql      *querysql.Compiler
	fixture  *sql.DB
	table    string
	orderKey string
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the compiler. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh temporary directory holding the fixture database
// and the saved query store, so runs are isolated from each other.
//
// Execution flow:
// 1. Load the configuration (or defaults)
// 2. Write saved queries and create the fixture table
// 3. Compile every step and check its expectations
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	dir, err := os.MkdirTemp("", "lucq-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	if scenario.Config != "" {
		if cfg, err = config.Load(scenario.Config); err != nil {
			return nil, err
		}
	}

	if len(scenario.SavedQueries) > 0 {
		path := filepath.Join(dir, "includes.db")
		if err := writeSavedQueries(ctx, path, scenario.SavedQueries); err != nil {
			return nil, err
		}
		cfg.IncludeStore = path
	}

	if f := scenario.Fixture; f != nil {
		path := filepath.Join(dir, "fixture.db")
		db, err := schema.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixture: %w", err)
		}
		defer db.Close()
		if err := createFixture(ctx, db, f); err != nil {
			return nil, err
		}
		h.fixture = db
		h.table = f.Table
		cfg.Schema.SQLite = &config.TableSource{Path: path, Table: f.Table}
		cfg.SQL.Table = f.Table
	}

	setup, err := compiler.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer setup.Close()

	h.compiler, err = compiler.New(append(setup.Options, compiler.WithLogger(h.logger))...)
	if err != nil {
		return nil, err
	}

	h.orderKey = cfg.SQL.OrderKey
	h.sql = querysql.NewCompiler(querysql.SQLite)
	h.sql.Schema = setup.Schema
	h.sql.DefaultFields = cfg.Query.DefaultFields
	h.sql.OrderKey = cfg.SQL.OrderKey

	result := NewResult()
	for _, step := range scenario.Steps {
		out, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		result.Steps = append(result.Steps, out)
		checkExpect(step, out, result)
	}

	actx := &AssertionContext{Ctx: ctx, DB: h.fixture, OrderKey: h.orderKey}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) (StepOutput, error) {
	qt, err := queryType(step.Type)
	if err != nil {
		return StepOutput{}, err
	}

	res, err := h.compiler.Compile(ctx, qt, step.Input)
	var verr *validation.Error
	if err != nil && !errors.As(err, &verr) {
		return StepOutput{}, err
	}

	v := res.Validation
	out := StepOutput{
		Name:             step.Name,
		Type:             string(qt),
		Input:            step.Input,
		Valid:            v.IsValid(),
		Issues:           v.Issues,
		ReferencedFields: v.ReferencedFields.Sorted(),
		UnresolvedFields: v.UnresolvedFields.Sorted(),
	}
	if !out.Valid {
		return out, nil
	}

	req := elastic.Request{RuntimeFields: res.RuntimeFields}
	var q query.Query
	switch qt {
	case ast.TypeQuery:
		q = res.Query
		req.Query = q
		out.Format = query.Format(q)
	case ast.TypeFilter:
		q = res.Filter
		req.Filter = q
		out.Format = query.Format(q)
	case ast.TypeAggregation:
		req.Aggregations = res.Aggregations
	case ast.TypeSort:
		req.Sort = res.Sort
	}
	if out.Elastic, err = req.Body(); err != nil {
		return StepOutput{}, err
	}

	if h.fixture != nil && qt != ast.TypeAggregation {
		if out.SQL, out.Args, err = h.sql.Select(ctx, h.table, q, res.Sort); err != nil {
			return StepOutput{}, err
		}
	}
	return out, nil
}

// checkExpect compares a step output with its expect clause.
func checkExpect(step Step, out StepOutput, result *Result) {
	exp := step.Expect
	if exp == nil {
		return
	}

	if exp.Valid != nil && *exp.Valid != out.Valid {
		result.AddError(fmt.Sprintf("step %s: expected valid=%t, got %t (issues: %v)",
			step.Name, *exp.Valid, out.Valid, issueMessages(out.Issues)))
	}
	if exp.Format != "" && exp.Format != out.Format {
		result.AddError(fmt.Sprintf("step %s: expected format %q, got %q", step.Name, exp.Format, out.Format))
	}
	if exp.SQL != "" && exp.SQL != out.SQL {
		result.AddError(fmt.Sprintf("step %s: expected SQL %q, got %q", step.Name, exp.SQL, out.SQL))
	}
	if exp.Issues != nil && !slices.Equal(exp.Issues, issueMessages(out.Issues)) {
		result.AddError(fmt.Sprintf("step %s: expected issues %q, got %q", step.Name, exp.Issues, issueMessages(out.Issues)))
	}
}

func issueMessages(issues []validation.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}

func writeSavedQueries(ctx context.Context, path string, saved map[string]string) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to create include store: %w", err)
	}
	defer st.Close()

	for _, name := range canonical.SortedKeys(saved) {
		if _, err := st.Put(ctx, store.SavedQuery{Name: name, Text: saved[name]}); err != nil {
			return err
		}
	}
	return nil
}

var columnType = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*$`)

// createFixture creates the fixture table and inserts its rows. Columns
// and values are written in sorted column order.
func createFixture(ctx context.Context, db *sql.DB, f *Fixture) error {
	columns := canonical.SortedKeys(f.Columns)

	defs := make([]string, len(columns))
	for i, col := range columns {
		if strings.ContainsRune(col, '"') {
			return fmt.Errorf("fixture: invalid column name %q", col)
		}
		if !columnType.MatchString(f.Columns[col]) {
			return fmt.Errorf("fixture: invalid type %q for column %s", f.Columns[col], col)
		}
		defs[i] = fmt.Sprintf("%q %s", col, f.Columns[col])
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", f.Table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("fixture: create table: %w", err)
	}

	for i, row := range f.Rows {
		names := make([]string, 0, len(row))
		marks := make([]string, 0, len(row))
		args := make([]any, 0, len(row))
		for _, col := range canonical.SortedKeys(row) {
			if _, ok := f.Columns[col]; !ok {
				return fmt.Errorf("fixture: rows[%d]: unknown column %s", i, col)
			}
			names = append(names, fmt.Sprintf("%q", col))
			marks = append(marks, "?")
			args = append(args, row[col])
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", f.Table, strings.Join(names, ", "), strings.Join(marks, ", "))
		if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("fixture: rows[%d]: %w", i, err)
		}
	}
	return nil
}
