package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/roach88/lucq/internal/lucene/ast"
)

// ErrNotFound is returned when no saved query has the requested name.
var ErrNotFound = errors.New("saved query not found")

// hashDomain separates saved query hashes from any other SHA-256 use.
const hashDomain = "lucq/saved-query/v1\x00"

// SavedQuery is a named fragment of query text.
type SavedQuery struct {
	Name        string `json:"name" yaml:"name"`
	Text        string `json:"text" yaml:"text"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Hash is the content hash of Text, set by the store.
	Hash string `json:"hash,omitempty" yaml:"-"`
	// Revision is the logical revision of the last change, set by the store.
	Revision int64 `json:"revision,omitempty" yaml:"-"`
}

// Hash returns the content hash of query text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(hashDomain + text))
	return hex.EncodeToString(sum[:])
}

// Put inserts or replaces a saved query and returns it as stored.
//
// Rewriting a query with identical text and description is a no-op that
// keeps its revision.
func (s *Store) Put(ctx context.Context, q SavedQuery) (SavedQuery, error) {
	if q.Name == "" {
		return SavedQuery{}, fmt.Errorf("put saved query: name is required")
	}
	q.Hash = Hash(q.Text)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("put saved query: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existing, err := scanSavedQuery(tx.QueryRowContext(ctx, `
		SELECT name, text, hash, revision, description
		FROM saved_queries
		WHERE name = ?
	`, q.Name))
	switch {
	case err == nil && existing.Hash == q.Hash && existing.Description == q.Description:
		return existing, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return SavedQuery{}, fmt.Errorf("put saved query %s: %w", q.Name, err)
	}

	if err := tx.QueryRowContext(ctx, `
		UPDATE revisions SET value = value + 1 WHERE id = 1
		RETURNING value
	`).Scan(&q.Revision); err != nil {
		return SavedQuery{}, fmt.Errorf("put saved query %s: next revision: %w", q.Name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saved_queries (name, text, hash, revision, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			hash = excluded.hash,
			revision = excluded.revision,
			description = excluded.description
	`, q.Name, q.Text, q.Hash, q.Revision, q.Description)
	if err != nil {
		return SavedQuery{}, fmt.Errorf("put saved query %s: %w", q.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return SavedQuery{}, fmt.Errorf("put saved query %s: commit: %w", q.Name, err)
	}
	return q, nil
}

// Get returns the saved query with the given name.
// Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, name string) (SavedQuery, error) {
	q, err := scanSavedQuery(s.db.QueryRowContext(ctx, `
		SELECT name, text, hash, revision, description
		FROM saved_queries
		WHERE name = ?
	`, name))
	if err != nil {
		return SavedQuery{}, fmt.Errorf("get saved query %s: %w", name, err)
	}
	return q, nil
}

// List returns all saved queries ordered by name.
func (s *Store) List(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, text, hash, revision, description
		FROM saved_queries
		ORDER BY name COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list saved queries: %w", err)
	}
	defer rows.Close()

	var out []SavedQuery
	for rows.Next() {
		q, err := scanSavedQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("list saved queries: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saved queries: %w", err)
	}
	return out, nil
}

// Delete removes a saved query. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_queries WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete saved query %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved query %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete saved query %s: %w", name, ErrNotFound)
	}
	return nil
}

// Resolver returns an include resolver backed by the store. Missing names
// report found=false rather than an error.
func (s *Store) Resolver() ast.IncludeResolver {
	return func(ctx context.Context, name string) (string, bool, error) {
		q, err := s.Get(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return q.Text, true, nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedQuery(row rowScanner) (SavedQuery, error) {
	var q SavedQuery
	err := row.Scan(&q.Name, &q.Text, &q.Hash, &q.Revision, &q.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedQuery{}, ErrNotFound
	}
	if err != nil {
		return SavedQuery{}, err
	}
	return q, nil
}
