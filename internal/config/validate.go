package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/querysql"
	"github.com/roach88/lucq/internal/schema"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "sql.dialect".
	Field   string
	Message string
}

// Error implements error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error implements error.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return "configuration validation failed: " + e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// ParseOperator parses an implicit operator name. The empty string means
// the per-type default.
func ParseOperator(s string) (ast.Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ast.OpDefault, nil
	case "and":
		return ast.OpAnd, nil
	case "or":
		return ast.OpOr, nil
	default:
		return ast.OpDefault, fmt.Errorf("unknown operator %q (want and, or)", s)
	}
}

// Validate checks cfg and returns a ValidationError listing every problem,
// or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := ParseOperator(cfg.Query.DefaultOperator); err != nil {
		add("query.default_operator", "%v", err)
	}
	if _, err := ParseOperator(cfg.Query.FilterOperator); err != nil {
		add("query.filter_operator", "%v", err)
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Includes)) {
		text := cfg.Includes[name]
		if strings.TrimSpace(name) == "" {
			add("includes", "include name must not be empty")
		}
		if strings.TrimSpace(text) == "" {
			add("includes."+name, "saved query must not be empty")
		}
	}

	for i, rf := range cfg.RuntimeFields {
		if rf.Name == "" {
			add(fmt.Sprintf("runtime_fields[%d].name", i), "name is required")
		}
	}

	if s := cfg.Schema.SQLite; s != nil {
		if s.Path == "" {
			add("schema.sqlite.path", "path is required")
		}
		if !schema.ValidIdentifier(s.Table) {
			add("schema.sqlite.table", "invalid table name %q", s.Table)
		}
	}
	if s := cfg.Schema.Postgres; s != nil {
		if s.DSN == "" {
			add("schema.postgres.dsn", "dsn is required")
		}
		if !schema.ValidIdentifier(s.Table) {
			add("schema.postgres.table", "invalid table name %q", s.Table)
		}
	}

	if cfg.Validation.AllowedMaxNodeDepth < 0 {
		add("validation.allowed_max_node_depth", "must not be negative")
	}

	if _, err := querysql.ParseDialect(cfg.SQL.Dialect); err != nil {
		add("sql.dialect", "%v", err)
	}
	if cfg.SQL.Table != "" && !schema.ValidIdentifier(cfg.SQL.Table) {
		add("sql.table", "invalid table name %q", cfg.SQL.Table)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		add("logging.level", "must be one of debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		add("logging.format", "must be text or json")
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
