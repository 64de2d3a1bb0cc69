package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of *pgxpool.Pool and *pgx.Conn used to read
// PostgreSQL catalogs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ConnectPostgres opens a connection pool for dsn and verifies it.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return pool, nil
}

const columnsSQL = `
	SELECT column_name, data_type
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

// LoadPostgres reads the columns of table ("name" or "schema.name") into a
// Static schema.
func LoadPostgres(ctx context.Context, q Querier, table string) (*Static, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	schemaName, tableName := "public", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schemaName, tableName = table[:i], table[i+1:]
	}

	rows, err := q.Query(ctx, columnsSQL, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("read columns for %s: %w", table, err)
	}
	defer rows.Close()

	s := NewStatic()
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("scan columns for %s: %w", table, err)
		}
		s.Add(Field{Name: name, Type: postgresType(dataType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns for %s: %w", table, err)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return s, nil
}

func postgresType(dataType string) FieldType {
	switch dataType {
	case "smallint", "integer":
		return TypeInteger
	case "bigint":
		return TypeLong
	case "real":
		return TypeFloat
	case "double precision", "numeric":
		return TypeDouble
	case "boolean":
		return TypeBoolean
	case "date", "timestamp without time zone", "timestamp with time zone":
		return TypeDate
	case "inet", "cidr":
		return TypeIP
	case "json", "jsonb":
		return TypeObject
	default:
		return TypeKeyword
	}
}
