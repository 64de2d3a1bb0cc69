// Package querysql renders the query algebra as parameterized SQL for the
// SQLite and PostgreSQL backends.
package querysql

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/schema"
)

// Dialect selects placeholder style and regex operator.
type Dialect string

const (
	// SQLite uses ? placeholders and the REGEXP function registered by
	// schema.OpenSQLite.
	SQLite Dialect = "sqlite"
	// Postgres uses $n placeholders and the ~ operator.
	Postgres Dialect = "postgres"
)

// ParseDialect returns the dialect named s.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case SQLite, Postgres:
		return d, nil
	case "", "sqlite3":
		return SQLite, nil
	case "postgresql", "pg":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unknown SQL dialect %q", s)
	}
}

// DefaultOrderKey is the tiebreaker column every compiled statement orders by.
const DefaultOrderKey = "id"

// Compiler renders the query algebra as parameterized SQL.
//
// CRITICAL: Values are NEVER interpolated; every value is a placeholder.
// CRITICAL: Field names are validated and quoted before they reach SQL text.
// MANDATORY: Statements built by Select always end in ORDER BY with a
// byte-order collated tiebreaker on OrderKey.
type Compiler struct {
	Dialect Dialect

	// Schema types range and term values: dates are normalized to RFC 3339
	// in UTC, numbers and booleans become native parameters. Nil keeps
	// every value a string.
	Schema schema.Lookup

	// DefaultFields are searched by query_string clauses that name none.
	DefaultFields []string

	// OrderKey is the tiebreaker column, DefaultOrderKey when empty.
	OrderKey string
}

// NewCompiler returns a compiler for dialect.
func NewCompiler(dialect Dialect) *Compiler {
	return &Compiler{Dialect: dialect}
}

// Where compiles q into a boolean SQL expression and its arguments.
// A nil query matches every row.
func (c *Compiler) Where(ctx context.Context, q query.Query) (string, []any, error) {
	b := &builder{compiler: c, ctx: ctx}
	sql, err := b.predicate(q)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

// Select compiles a full statement over table with the given sort.
func (c *Compiler) Select(ctx context.Context, table string, q query.Query, sort []query.SortField) (string, []any, error) {
	if !schema.ValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	where, args, err := c.Where(ctx, q)
	if err != nil {
		return "", nil, err
	}

	orderBy, err := c.orderBy(sort)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY %s", table, where, orderBy)
	return sql, args, nil
}

// orderBy renders the sort fields followed by the tiebreaker.
func (c *Compiler) orderBy(sort []query.SortField) (string, error) {
	key := c.OrderKey
	if key == "" {
		key = DefaultOrderKey
	}
	parts := make([]string, 0, len(sort)+1)
	seen := false
	for _, s := range sort {
		col, err := quoteField(s.Field)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" COLLATE "+c.collation()+" "+strings.ToUpper(s.Order()))
		seen = seen || s.Field == key
	}
	if !seen {
		col, err := quoteField(key)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" COLLATE "+c.collation()+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

// collation names the byte-order collation of the dialect.
func (c *Compiler) collation() string {
	if c.Dialect == Postgres {
		return `"C"`
	}
	return "BINARY"
}

// builder collects arguments while rendering one expression.
type builder struct {
	compiler *Compiler
	ctx      context.Context
	args     []any
}

// bind appends v and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.compiler.Dialect == Postgres {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *builder) predicate(q query.Query) (string, error) {
	switch v := q.(type) {
	case nil, *query.MatchAll:
		return "1 = 1", nil
	case *query.Bool:
		return b.boolean(v)
	case *query.Term:
		col, err := quoteField(v.Field)
		if err != nil {
			return "", err
		}
		param, err := b.value(v.Field, v.Value)
		if err != nil {
			return "", err
		}
		return col + " = " + b.bind(param), nil
	case *query.Match:
		return b.like(v.Field, "%"+escapeLike(v.Query)+"%")
	case *query.MatchPhrase:
		return b.like(v.Field, "%"+escapeLike(v.Query)+"%")
	case *query.Prefix:
		return b.like(v.Field, escapeLike(v.Value)+"%")
	case *query.Wildcard:
		return b.like(v.Field, wildcardToLike(v.Value))
	case *query.QueryString:
		return b.queryString(v)
	case *query.Regexp:
		col, err := quoteField(v.Field)
		if err != nil {
			return "", err
		}
		op := " REGEXP "
		if b.compiler.Dialect == Postgres {
			op = " ~ "
		}
		// Lucene regular expressions match the whole value
		return col + op + b.bind("^(?:" + v.Value + ")$"), nil
	case *query.Range:
		return b.rangeExpr(v)
	case *query.Exists:
		col, err := quoteField(v.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NOT NULL", nil
	case *query.Nested:
		// rows have no nested documents; the inner query applies to the row
		return b.predicate(v.Query)
	default:
		return "", fmt.Errorf("unsupported query type: %T", q)
	}
}

func (b *builder) boolean(q *query.Bool) (string, error) {
	var conj []string
	for _, sub := range append(append([]query.Query{}, q.Must...), q.Filter...) {
		sql, err := b.predicate(sub)
		if err != nil {
			return "", err
		}
		conj = append(conj, sql)
	}
	for _, sub := range q.MustNot {
		sql, err := b.predicate(sub)
		if err != nil {
			return "", err
		}
		conj = append(conj, "NOT "+enclose(sql))
	}

	// should clauses only restrict the match when nothing else does
	if len(conj) == 0 && len(q.Should) > 0 {
		var disj []string
		for _, sub := range q.Should {
			sql, err := b.predicate(sub)
			if err != nil {
				return "", err
			}
			disj = append(disj, sql)
		}
		if len(disj) == 1 {
			return disj[0], nil
		}
		return "(" + strings.Join(disj, " OR ") + ")", nil
	}

	switch len(conj) {
	case 0:
		return "1 = 1", nil
	case 1:
		return conj[0], nil
	default:
		return "(" + strings.Join(conj, " AND ") + ")", nil
	}
}

func (b *builder) like(field, pattern string) (string, error) {
	col, err := quoteField(field)
	if err != nil {
		return "", err
	}
	return col + " LIKE " + b.bind(pattern) + ` ESCAPE '\'`, nil
}

func (b *builder) queryString(q *query.QueryString) (string, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = b.compiler.DefaultFields
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("query_string %q: no default fields to search", q.Query)
	}
	text := strings.Trim(q.Query, `"/`)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		sql, err := b.like(f, "%"+escapeLike(text)+"%")
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (b *builder) rangeExpr(r *query.Range) (string, error) {
	col, err := quoteField(r.Field)
	if err != nil {
		return "", err
	}
	bounds := []struct{ op, value string }{
		{">", r.GT}, {">=", r.GTE}, {"<", r.LT}, {"<=", r.LTE},
	}
	var parts []string
	for _, bound := range bounds {
		if bound.value == "" {
			continue
		}
		param, err := b.value(r.Field, bound.value)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+" "+bound.op+" "+b.bind(param))
	}
	switch len(parts) {
	case 0:
		return col + " IS NOT NULL", nil
	case 1:
		return parts[0], nil
	default:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}
}

// value converts a query value to a parameter of the field's schema type.
func (b *builder) value(field, v string) (any, error) {
	if b.compiler.Schema == nil {
		return v, nil
	}
	f, err := b.compiler.Schema.Field(b.ctx, field)
	if err != nil {
		return nil, fmt.Errorf("schema lookup %q: %w", field, err)
	}
	if f == nil {
		return v, nil
	}

	switch {
	case f.Type == schema.TypeDate:
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid date %q: %w", field, v, err)
		}
		return t.UTC().Format(time.RFC3339), nil
	case f.Type == schema.TypeLong || f.Type == schema.TypeInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, nil
		}
		return parseFloat(field, v)
	case f.Type.IsNumeric():
		return parseFloat(field, v)
	case f.Type == schema.TypeBoolean:
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid boolean %q", field, v)
		}
		return ok, nil
	default:
		return v, nil
	}
}

func parseFloat(field, v string) (any, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q", field, v)
	}
	return f, nil
}

var fieldRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// quoteField returns field as a quoted identifier. Dotted paths name a
// single column.
func quoteField(field string) (string, error) {
	if !fieldRE.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return `"` + field + `"`, nil
}

// enclose parenthesizes sql unless it already is. Compound predicates are
// always rendered inside parentheses.
func enclose(sql string) string {
	if strings.HasPrefix(sql, "(") {
		return sql
	}
	return "(" + sql + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// wildcardToLike converts a Lucene wildcard pattern to a LIKE pattern.
func wildcardToLike(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '?':
			sb.WriteByte('_')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
