package schema

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDriver is the database/sql driver name registered by this package.
// It is the stock sqlite3 driver plus a REGEXP function, which the SQL
// emitter relies on for /regex/ terms.
const SQLiteDriver = "sqlite3_lucq"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", sqliteRegexp, true)
			},
		})
	})
}

// sqliteRegexp implements "value REGEXP pattern", which SQLite calls as
// regexp(pattern, value).
func sqliteRegexp(pattern, value string) (bool, error) {
	return regexp.MatchString(pattern, value)
}

// OpenSQLite opens a SQLite database at path with the lucq driver.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func OpenSQLite(path string) (*sql.DB, error) {
	registerDriver()

	db, err := sql.Open(SQLiteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return db, nil
}

// LoadSQLite reads the columns of table into a Static schema.
//
// Column types follow SQLite's affinity rules: INT → long, REAL/FLOA/DOUB →
// double, BOOL → boolean, DATE/TIME → date, anything else → keyword.
func LoadSQLite(ctx context.Context, db *sql.DB, table string) (*Static, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("read table info for %s: %w", table, err)
	}
	defer rows.Close()

	s := NewStatic()
	for rows.Next() {
		var (
			cid     int
			name    string
			declTyp string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &declTyp, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info for %s: %w", table, err)
		}
		s.Add(Field{Name: name, Type: sqliteAffinity(declTyp)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table info for %s: %w", table, err)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return s, nil
}

func sqliteAffinity(decl string) FieldType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return TypeBoolean
	case strings.Contains(d, "INT"):
		return TypeLong
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return TypeDouble
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return TypeDate
	default:
		return TypeKeyword
	}
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether s is a plain SQL identifier, optionally
// schema-qualified. Identifiers are interpolated into SQL text, so anything
// else is rejected.
func ValidIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}
