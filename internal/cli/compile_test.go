package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_ElasticJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "status:active")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp["status"])

	data := resp["data"].(map[string]any)
	assert.Equal(t, "query", data["mode"])
	assert.Equal(t, "elastic", data["target"])
	assert.Equal(t, "status:active", data["normalized"])
	assert.Equal(t, map[string]any{
		"query": map[string]any{
			"term": map[string]any{"status": map[string]any{"value": "active"}},
		},
	}, data["elastic"])

	validation := data["validation"].(map[string]any)
	assert.Equal(t, true, validation["is_valid"])
	assert.Equal(t, []any{"status"}, validation["referenced_fields"])
}

func TestCompile_TextIsIndentedCanonicalJSON(t *testing.T) {
	out, _, err := execute(t, "compile", "status:active")
	require.NoError(t, err)

	assert.Contains(t, out, "{\n  \"elastic\": {\n    \"query\": {\n      \"term\": {")
	assert.Contains(t, out, `"mode": "query"`)
	assert.Contains(t, out, `"target": "elastic"`)
}

func TestCompile_SQL(t *testing.T) {
	tests := []struct {
		name string
		args []string
		sql  string
	}{
		{
			name: "sqlite filter",
			args: []string{"--mode", "filter"},
			sql:  `SELECT * FROM documents WHERE ("x" = ? AND "x" = ?) ORDER BY "id" COLLATE BINARY ASC`,
		},
		{
			name: "postgres dialect and table",
			args: []string{"--mode", "filter", "--dialect", "postgres", "--table", "items"},
			sql:  `SELECT * FROM items WHERE ("x" = $1 AND "x" = $2) ORDER BY "id" COLLATE "C" ASC`,
		},
		{
			name: "query defaults to OR",
			args: nil,
			sql:  `SELECT * FROM documents WHERE ("x" = ? OR "x" = ?) ORDER BY "id" COLLATE BINARY ASC`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "compile", "--target", "sql"}, tt.args...)
			out, _, err := execute(t, append(args, "x:a x:b")...)
			require.NoError(t, err)

			data := decodeResponse(t, out)["data"].(map[string]any)
			assert.Equal(t, tt.sql, data["sql"])
			assert.Equal(t, []any{"a", "b"}, data["args"])
			assert.Nil(t, data["elastic"])
		})
	}
}

func TestCompile_SQLWarnings(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "--target", "sql", "x:a^2")
	require.NoError(t, err)

	data := decodeResponse(t, out)["data"].(map[string]any)
	assert.NotEmpty(t, data["warnings"], "boosts are not portable to SQL")
}

func TestCompile_Sort(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "--mode", "sort", "-created name")
	require.NoError(t, err)

	data := decodeResponse(t, out)["data"].(map[string]any)
	elastic := data["elastic"].(map[string]any)
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, elastic["query"])
	assert.Equal(t, []any{
		map[string]any{"created": map[string]any{"order": "desc"}},
		map[string]any{"name": map[string]any{"order": "asc"}},
	}, elastic["sort"])
}

func TestCompile_Aggregations(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "--mode", "aggregations", "terms:category~5")
	require.NoError(t, err)

	data := decodeResponse(t, out)["data"].(map[string]any)
	aggs := data["elastic"].(map[string]any)["aggs"].(map[string]any)
	assert.Equal(t, map[string]any{
		"terms": map[string]any{"field": "category", "size": float64(5)},
	}, aggs["terms_category"])

	_, _, err = execute(t, "compile", "--mode", "aggregations", "--target", "sql", "terms:category")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "aggregations have no SQL rendering")
}

func TestCompile_InvalidQuery(t *testing.T) {
	out, _, err := execute(t, "compile", "(a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ invalid query: 1 issue(s)")
	assert.Contains(t, out, "(at 2)")

	out, _, err = execute(t, "--format", "json", "compile", "(a")
	require.Error(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, ErrCodeInvalidQuery, resp["error"].(map[string]any)["code"])
}

func TestCompile_UsesConfig(t *testing.T) {
	cfg := writeConfig(t, `
query:
  default_operator: and
aliases:
  user:
    name: data.user
    fields:
      id: identifier
includes:
  adults: "age:>=18"
`)

	out, _, err := execute(t, "--format", "json", "--config", cfg, "compile", "--target", "sql", "user.id:7 @include:adults")
	require.NoError(t, err)

	data := decodeResponse(t, out)["data"].(map[string]any)
	assert.Equal(t,
		`SELECT * FROM documents WHERE ("data.user.identifier" = ? AND "age" >= ?) ORDER BY "id" COLLATE BINARY ASC`,
		data["sql"])
	assert.Equal(t, []any{"7", "18"}, data["args"])
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"bad mode", []string{"compile", "--mode", "bogus", "a"}, ExitCommandError, "invalid mode"},
		{"bad target", []string{"compile", "--target", "solr", "a"}, ExitCommandError, "invalid target"},
		{"bad dialect", []string{"compile", "--dialect", "oracle", "a"}, ExitCommandError, "unknown SQL dialect"},
		{"missing config", []string{"--config", "/nonexistent/lucq.yaml", "compile", "a"}, ExitCommandError, "failed to read configuration file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCompile_VerboseLogsToStderr(t *testing.T) {
	out, stderr, err := execute(t, "-v", "--format", "json", "compile", "x:a")
	require.NoError(t, err)

	decodeResponse(t, out)
	assert.Contains(t, stderr, "Compiling query for elastic")
	assert.Contains(t, stderr, "query compiled")
}
