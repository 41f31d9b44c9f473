package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/markov-chains/pkg/markov"
)

// ErrNotFound is returned when no chain is stored under a name.
var ErrNotFound = errors.New("chain not found")

// ChainInfo holds the metadata of a stored chain.
type ChainInfo struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	StateSize int       `json:"state_size"`
	States    int       `json:"states"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetupSchema initializes the chain table in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    state_size INTEGER NOT NULL,
    state_count INTEGER NOT NULL,
    document TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store persists serialized chains by name. Every chain is stored as the
// single JSON document produced by markov.Chain.MarshalJSON.
type Store struct {
	db         *sql.DB
	stmtSave   *sql.Stmt
	stmtLoad   *sql.Stmt
	stmtInfo   *sql.Stmt
	stmtList   *sql.Stmt
	stmtRemove *sql.Stmt
	chainOpts  []markov.Option
	logger     *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails. opts are passed to
// every chain hydrated by Load.
func NewStore(db *sql.DB, opts ...markov.Option) (s *Store, err error) {
	var prepared []*sql.Stmt
	prepare := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		if stmt, err = db.Prepare(query); err != nil {
			return nil
		}
		prepared = append(prepared, stmt)
		return stmt
	}
	// Statements prepared before a failure are released.
	defer func() {
		if err != nil {
			for _, stmt := range prepared {
				_ = stmt.Close()
			}
		}
	}()

	stmtSave := prepare(`
INSERT INTO markov_models (model_name, state_size, state_count, document, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(model_name) DO UPDATE SET
    state_size = excluded.state_size,
    state_count = excluded.state_count,
    document = excluded.document,
    updated_at = excluded.updated_at;`)
	stmtLoad := prepare(`SELECT document FROM markov_models WHERE model_name = ?;`)
	stmtInfo := prepare(`SELECT model_id, model_name, state_size, state_count, updated_at FROM markov_models WHERE model_name = ?;`)
	stmtList := prepare(`SELECT model_id, model_name, state_size, state_count, updated_at FROM markov_models ORDER BY model_name;`)
	stmtRemove := prepare(`DELETE FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare chain statements: %w", err)
	}

	return &Store{
		db:         db,
		stmtSave:   stmtSave,
		stmtLoad:   stmtLoad,
		stmtInfo:   stmtInfo,
		stmtList:   stmtList,
		stmtRemove: stmtRemove,
		chainOpts:  opts,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. The database
// itself is left open.
func (s *Store) Close() {
	_ = s.stmtSave.Close()
	_ = s.stmtLoad.Close()
	_ = s.stmtInfo.Close()
	_ = s.stmtList.Close()
	_ = s.stmtRemove.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save serializes chain and stores it under name, replacing any chain
// previously stored there.
func (s *Store) Save(ctx context.Context, name string, chain *markov.Chain) error {
	if name == "" {
		return errors.New("chain name must not be empty")
	}
	doc, err := chain.MarshalJSON()
	if err != nil {
		return fmt.Errorf("could not serialize chain '%s': %w", name, err)
	}

	_, err = s.stmtSave.ExecContext(ctx, name, chain.StateSize(), chain.Model().Len(), string(doc), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("could not save chain '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Chain saved",
		slog.String("chain_name", name),
		slog.Int("state_size", chain.StateSize()),
		slog.Int("states", chain.Model().Len()),
		slog.Int("document_bytes", len(doc)),
	)
	return nil
}

// Load hydrates the chain stored under name. opts are applied after the
// Store's own options. It returns ErrNotFound if there is none.
func (s *Store) Load(ctx context.Context, name string, opts ...markov.Option) (*markov.Chain, error) {
	var doc string
	err := s.stmtLoad.QueryRowContext(ctx, name).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
		}
		return nil, fmt.Errorf("could not load chain '%s': %w", name, err)
	}

	chainOpts := append(append([]markov.Option(nil), s.chainOpts...), opts...)
	chain, err := markov.FromJSON([]byte(doc), chainOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not hydrate chain '%s': %w", name, err)
	}

	s.logger.DebugContext(ctx, "Chain loaded",
		slog.String("chain_name", name),
		slog.Int("state_size", chain.StateSize()),
	)
	return chain, nil
}

// Info retrieves the metadata of the chain stored under name.
func (s *Store) Info(ctx context.Context, name string) (ChainInfo, error) {
	info, err := scanInfo(s.stmtInfo.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return ChainInfo{}, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	return info, err
}

// List retrieves the metadata of every stored chain, ordered by name.
func (s *Store) List(ctx context.Context) ([]ChainInfo, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	infos := make([]ChainInfo, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Remove deletes the chain stored under name. It returns ErrNotFound if there
// is none.
func (s *Store) Remove(ctx context.Context, name string) error {
	res, err := s.stmtRemove.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("could not remove chain '%s': %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}

	s.logger.InfoContext(ctx, "Chain removed", slog.String("chain_name", name))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (ChainInfo, error) {
	var info ChainInfo
	var updated int64
	if err := row.Scan(&info.Id, &info.Name, &info.StateSize, &info.States, &updated); err != nil {
		return ChainInfo{}, err
	}
	info.UpdatedAt = time.Unix(updated, 0).UTC()
	return info, nil
}
