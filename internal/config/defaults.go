package config

// Default values for configuration fields.
const (
	DefaultQueryOperator  = "or"
	DefaultFilterOperator = "and"

	DefaultSQLDialect  = "sqlite"
	DefaultSQLTable    = "documents"
	DefaultSQLOrderKey = "id"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with their defaults. Fields already set
// are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Query.DefaultOperator == "" {
		cfg.Query.DefaultOperator = DefaultQueryOperator
	}
	if cfg.Query.FilterOperator == "" {
		cfg.Query.FilterOperator = DefaultFilterOperator
	}

	if cfg.SQL.Dialect == "" {
		cfg.SQL.Dialect = DefaultSQLDialect
	}
	if cfg.SQL.Table == "" {
		cfg.SQL.Table = DefaultSQLTable
	}
	if cfg.SQL.OrderKey == "" {
		cfg.SQL.OrderKey = DefaultSQLOrderKey
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
