// Package config loads the compiler configuration from YAML or CUE files.
//
// A configuration describes everything a compiler needs besides the query
// text: implicit operators, default fields, the alias map, saved queries for
// @include, runtime fields, schema sources, the validation policy and the
// SQL emitter settings.
package config

import (
	"path/filepath"

	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/schema"
)

// Config is the root configuration document.
type Config struct {
	Query QueryConfig `yaml:"query" json:"query"`

	// Aliases is the hierarchical alias map. An entry is either a string
	// (the target name) or {name, fields}.
	Aliases alias.Map `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// Includes are saved queries referenced as @include:name.
	Includes map[string]string `yaml:"includes,omitempty" json:"includes,omitempty"`

	// IncludeStore is a SQLite database of saved queries consulted after
	// Includes.
	IncludeStore string `yaml:"include_store,omitempty" json:"include_store,omitempty"`

	RuntimeFields []schema.RuntimeField `yaml:"runtime_fields,omitempty" json:"runtime_fields,omitempty"`

	Schema SchemaConfig `yaml:"schema" json:"schema"`

	Validation validation.Options `yaml:"validation" json:"validation"`

	SQL SQLConfig `yaml:"sql" json:"sql"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Dir is the directory of the loaded file. Relative paths resolve
	// against it.
	Dir string `yaml:"-" json:"-"`
}

// QueryConfig holds the implicit query settings.
type QueryConfig struct {
	// DefaultOperator joins query clauses without an explicit operator:
	// "and" or "or".
	DefaultOperator string `yaml:"default_operator,omitempty" json:"default_operator,omitempty"`

	// FilterOperator joins filter clauses without an explicit operator.
	FilterOperator string `yaml:"filter_operator,omitempty" json:"filter_operator,omitempty"`

	// DefaultFields are searched by terms that name no field.
	DefaultFields []string `yaml:"default_fields,omitempty" json:"default_fields,omitempty"`
}

// SchemaConfig lists the schema sources, consulted in this order: inline
// fields, mapping file, SQLite table, PostgreSQL table.
type SchemaConfig struct {
	Fields   map[string]schema.FieldType `yaml:"fields,omitempty" json:"fields,omitempty"`
	Mapping  string                      `yaml:"mapping,omitempty" json:"mapping,omitempty"`
	SQLite   *TableSource                `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	Postgres *PostgresSource             `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// TableSource reads field types from a SQLite table.
type TableSource struct {
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`
}

// PostgresSource reads field types from a PostgreSQL table.
type PostgresSource struct {
	DSN   string `yaml:"dsn" json:"dsn"`
	Table string `yaml:"table" json:"table"`
}

// SQLConfig configures the SQL emitter.
type SQLConfig struct {
	Dialect  string `yaml:"dialect,omitempty" json:"dialect,omitempty"`
	Table    string `yaml:"table,omitempty" json:"table,omitempty"`
	OrderKey string `yaml:"order_key,omitempty" json:"order_key,omitempty"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Path resolves p against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
