package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaved_Lifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "saved.db")

	out, _, err := execute(t, "saved", "--store", db, "put", "adults", "age:>=18", "-d", "grown ups")
	require.NoError(t, err)
	assert.Equal(t, "✓ Saved adults (revision 1)\n", out)

	out, _, err = execute(t, "saved", "--store", db, "put", "active", "status:active")
	require.NoError(t, err)
	assert.Equal(t, "✓ Saved active (revision 2)\n", out)

	out, _, err = execute(t, "saved", "--store", db, "get", "adults")
	require.NoError(t, err)
	assert.Equal(t, "age:>=18\n", out)

	out, _, err = execute(t, "saved", "--store", db, "list")
	require.NoError(t, err)
	assert.Equal(t, "active\tstatus:active\nadults\tage:>=18\t# grown ups\n", out)

	out, _, err = execute(t, "saved", "--store", db, "delete", "active")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted active\n", out)

	_, _, err = execute(t, "saved", "--store", db, "get", "active")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSaved_JSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "saved.db")

	out, _, err := execute(t, "--format", "json", "saved", "--store", db, "list")
	require.NoError(t, err)
	assert.Equal(t, []any{}, decodeResponse(t, out)["data"])

	out, _, err = execute(t, "--format", "json", "saved", "--store", db, "put", "a", "x:1")
	require.NoError(t, err)
	data := decodeResponse(t, out)["data"].(map[string]any)
	assert.Equal(t, "a", data["name"])
	assert.Equal(t, "x:1", data["text"])
	assert.Equal(t, float64(1), data["revision"])
	assert.Len(t, data["hash"], 64)
}

func TestSaved_RejectsInvalidQuery(t *testing.T) {
	db := filepath.Join(t.TempDir(), "saved.db")

	out, _, err := execute(t, "saved", "--store", db, "put", "broken", "a AND (")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]: invalid query")
}

func TestSaved_StoreFromConfig(t *testing.T) {
	cfg := writeConfig(t, "include_store: saved.db\n")

	_, _, err := execute(t, "--config", cfg, "saved", "put", "adults", "age:>=18")
	require.NoError(t, err)

	// compile resolves the include through the same store
	out, _, err := execute(t, "--format", "json", "--config", cfg, "compile", "--target", "sql", "@include:adults")
	require.NoError(t, err)
	data := decodeResponse(t, out)["data"].(map[string]any)
	assert.Equal(t, `SELECT * FROM documents WHERE "age" >= ? ORDER BY "id" COLLATE BINARY ASC`, data["sql"])
}

func TestSaved_NoStore(t *testing.T) {
	out, _, err := execute(t, "saved", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no saved query store")
}
