// Package store implements the embedded persistence layer (C2): an
// ordered key-value store with ACID single-process transactions,
// backed by a single-table SQLite database (modernc.org/sqlite is pure
// Go, so opening a store never needs a C toolchain). Two logical
// namespaces live in the same table, distinguished by key prefix:
// "graph" holds the serialized CodeGraph, "meta" holds the serialized
// IndexMetadata.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/standardbeagle/lci-lsp/internal/ierrors"
)

// ErrAlreadyOpen is returned by Open when another process holds the
// store's lock marker, per spec §4.2's "concurrent opens from another
// process must fail with a clear error" contract.
var ErrAlreadyOpen = errors.New("store: already open by another process")

// Store is a directory-backed key-value database. Every key belongs to
// one of two namespaces ("graph", "meta"); Save/Load operate within a
// namespace so callers can't accidentally cross-read.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	dir      string
	lockPath string
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// Open creates dir if absent, acquires the store's lock marker, and
// opens the SQLite-backed table. Returns ErrAlreadyOpen if the marker
// is already held.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ierrors.NewStorageError("open store dir", err)
	}

	lockPath := filepath.Join(dir, ".lock")
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyOpen
		}
		return nil, ierrors.NewStorageError("create lock marker", err)
	}
	lockFile.Close()

	dbPath := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		os.Remove(lockPath)
		return nil, ierrors.NewStorageError("open sqlite db", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline (§4.1's CodeGraph note applies to the store too)

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		os.Remove(lockPath)
		return nil, ierrors.NewStorageError("create schema", err)
	}

	return &Store{db: db, dir: dir, lockPath: lockPath}, nil
}

// Close releases the lock marker and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Close()
	os.Remove(s.lockPath)
	return err
}

// Save writes value under (namespace, key) in a single transaction — an
// INSERT ... ON CONFLICT UPDATE is atomic per key in SQLite's
// transactional engine, satisfying the "never torn bytes" requirement.
func (s *Store) Save(ctx context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ierrors.NewStorageError("begin save tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		namespace, key, value)
	if err != nil {
		return ierrors.NewStorageError("save "+namespace+"/"+key, err)
	}

	if err := tx.Commit(); err != nil {
		return ierrors.NewStorageError("commit save tx", err)
	}
	return nil
}

// Load returns the value for (namespace, key), or (nil, false) if absent.
func (s *Store) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ierrors.NewStorageError("load "+namespace+"/"+key, err)
	}
	return value, true, nil
}

// Delete removes (namespace, key). No-op if absent.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return ierrors.NewStorageError("delete "+namespace+"/"+key, err)
	}
	return nil
}

func (s *Store) String() string {
	return fmt.Sprintf("Store{dir=%s}", s.dir)
}
