package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/CTAG07/markov-chains/pkg/markov"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// testChain builds the chain used across the store tests.
func testChain(t *testing.T, stateSize int) *markov.Chain {
	t.Helper()
	c, err := markov.BuildJSON([]byte(`[["foo","bar","baz","qux."],["foo","baz","qux","bar."]]`), markov.WithStateSize(stateSize))
	if err != nil {
		t.Fatalf("BuildJSON() error = %v", err)
	}
	return c
}
