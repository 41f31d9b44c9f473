package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/markov-chains/pkg/markov"
)

func TestSaveAndLoad(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	original := testChain(t, 2)

	if err := s.Save(ctx, "sentences", original); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := s.Load(ctx, "sentences")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.StateSize() != 2 {
		t.Errorf("expected state size 2, got %d", loaded.StateSize())
	}
	if !loaded.Model().Equal(original.Model()) {
		t.Error("loaded model differs from saved model")
	}

	// Test failure case (nonexistent)
	_, err = s.Load(ctx, "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for nonexistent chain, got %v", err)
	}

	// Test failure case (empty name)
	if err := s.Save(ctx, "", original); err == nil {
		t.Error("expected an error when saving a chain without a name")
	}
}

func TestSaveReplaces(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	_ = s.Save(ctx, "chain", testChain(t, 1))
	replacement := testChain(t, 3)
	if err := s.Save(ctx, "chain", replacement); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	info, err := s.Info(ctx, "chain")
	if err != nil {
		t.Fatalf("Info() failed: %v", err)
	}
	if info.StateSize != 3 || info.States != replacement.Model().Len() {
		t.Errorf("got unexpected chain info: %+v", info)
	}

	infos, _ := s.List(ctx)
	if len(infos) != 1 {
		t.Errorf("expected 1 chain after replacing, got %d", len(infos))
	}
}

func TestList(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected no chains, got %d", len(infos))
	}

	_ = s.Save(ctx, "b_chain", testChain(t, 2))
	_ = s.Save(ctx, "a_chain", testChain(t, 1))

	infos, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(infos))
	}
	if infos[0].Name != "a_chain" || infos[1].Name != "b_chain" {
		t.Errorf("expected chains ordered by name, got %+v", infos)
	}
	if infos[0].StateSize != 1 || infos[1].StateSize != 2 {
		t.Errorf("got unexpected state sizes: %+v", infos)
	}
}

func TestRemove(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	_ = s.Save(ctx, "to_delete", testChain(t, 1))
	_ = s.Save(ctx, "to_keep", testChain(t, 1))

	if err := s.Remove(ctx, "to_delete"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	_, err := s.Load(ctx, "to_delete")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted chain, got %v", err)
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_models").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 remaining chain, found %d", count)
	}

	if err := s.Remove(ctx, "to_delete"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound when removing twice, got %v", err)
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO markov_models (model_name, state_size, state_count, document, updated_at) VALUES ('bad', 1, 2, ?, 0)`,
		`[["[\"A\"]", []], ["[\"A\",\"B\"]", []]]`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(ctx, "bad")
	if !errors.Is(err, markov.ErrInconsistentStateSize) {
		t.Errorf("expected ErrInconsistentStateSize, got %v", err)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	original := testChain(t, 2)

	if err := WriteFile(path, original); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !loaded.Model().Equal(original.Model()) {
		t.Error("model read from file differs from written model")
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestNewStorePrepareFailure(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "partial.db")
	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Without model_id the save and load statements prepare, but info does not.
	_, err = db.Exec(`CREATE TABLE markov_models (
    model_name TEXT NOT NULL UNIQUE,
    state_size INTEGER NOT NULL,
    state_count INTEGER NOT NULL,
    document TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);`)
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(db)
	if err == nil {
		t.Fatal("expected NewStore() to fail on a table without model_id")
	}
	if s != nil {
		t.Errorf("expected no Store on failure, got %+v", s)
	}

	// The database stays usable once the partial statements are released.
	if _, err = db.Exec(`DROP TABLE markov_models;`); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
	if err = SetupSchema(db); err != nil {
		t.Fatalf("SetupSchema() failed: %v", err)
	}
	s, err = NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() failed after fixing the schema: %v", err)
	}
	s.Close()
}
