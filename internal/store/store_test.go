package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			got, err := s.pragma(tt.pragma)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenContext(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	stored, err := s.Put(ctx, SavedQuery{Name: "adults", Text: "age:>=18", Description: "grown-ups"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Revision)
	assert.Equal(t, Hash("age:>=18"), stored.Hash)

	got, err := s.Get(ctx, "adults")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestPut_Revisions(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.Put(ctx, SavedQuery{Name: "a", Text: "x:1"})
	require.NoError(t, err)
	second, err := s.Put(ctx, SavedQuery{Name: "b", Text: "y:1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Revision)
	assert.Equal(t, int64(2), second.Revision)

	t.Run("unchanged rewrite keeps revision", func(t *testing.T) {
		again, err := s.Put(ctx, SavedQuery{Name: "a", Text: "x:1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), again.Revision)
	})

	t.Run("changed text takes next revision", func(t *testing.T) {
		changed, err := s.Put(ctx, SavedQuery{Name: "a", Text: "x:2"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), changed.Revision)

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "x:2", got.Text)
	})
}

func TestPut_RequiresName(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Put(context.Background(), SavedQuery{Text: "x:1"})
	assert.ErrorContains(t, err, "name is required")
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_OrderedByName(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, name := range []string{"beta", "Alpha", "alpha"} {
		_, err := s.Put(ctx, SavedQuery{Name: name, Text: name + ":1"})
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)

	names := make([]string, len(list))
	for i, q := range list {
		names[i] = q.Name
	}
	// Binary collation puts upper case first.
	assert.Equal(t, []string{"Alpha", "alpha", "beta"}, names)
}

func TestList_Empty(t *testing.T) {
	list, err := createTestStore(t).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Put(ctx, SavedQuery{Name: "a", Text: "x:1"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Put(ctx, SavedQuery{Name: "adults", Text: "age:>=18"})
	require.NoError(t, err)

	resolve := s.Resolver()

	text, found, err := resolve(ctx, "adults")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "age:>=18", text)

	text, found, err = resolve(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, text)
}

func TestHash_DomainSeparated(t *testing.T) {
	assert.Len(t, Hash(""), 64)
	assert.NotEqual(t, Hash("a"), Hash("b"))
	assert.Equal(t, Hash("a"), Hash("a"))
}
