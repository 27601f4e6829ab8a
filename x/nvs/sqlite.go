//go:build !tinygo

package nvs

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite is a file backed Store for host builds. Every namespace lives in
// one table; Commit writes a handle's staged entries in one transaction.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path (":memory:" allowed).
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nvs_namespaces (
			name TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS nvs_entries (
			ns TEXT NOT NULL,
			key TEXT NOT NULL,
			kind INTEGER NOT NULL,
			val BLOB NOT NULL,
			PRIMARY KEY (ns, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) OpenNamespace(name string, mode Mode) (Handle, error) {
	var n string
	err := s.db.QueryRow(`SELECT name FROM nvs_namespaces WHERE name = ?`, name).Scan(&n)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if mode == ReadOnly {
			return nil, ErrNotFound
		}
		if _, err := s.db.Exec(`INSERT INTO nvs_namespaces(name) VALUES (?)`, name); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	h := &sqliteHandle{s: s, name: name}
	h.staged = staged{mode: mode, lookup: h.committed}
	return h, nil
}

type sqliteHandle struct {
	staged
	s    *SQLite
	name string
}

func (h *sqliteHandle) committed(key string) (entry, bool, error) {
	var e entry
	err := h.s.db.QueryRow(`SELECT kind, val FROM nvs_entries WHERE ns = ? AND key = ?`,
		h.name, key).Scan(&e.k, &e.data)
	if errors.Is(err, sql.ErrNoRows) {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, err
	}
	return e, true, nil
}

func (h *sqliteHandle) Commit() error {
	if h.closed {
		return ErrClosed
	}
	if len(h.pending) == 0 {
		return nil
	}
	tx, err := h.s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	for k, e := range h.pending {
		if _, err := tx.Exec(`INSERT INTO nvs_entries(ns, key, kind, val) VALUES (?, ?, ?, ?)
			ON CONFLICT(ns, key) DO UPDATE SET kind = excluded.kind, val = excluded.val`,
			h.name, k, int(e.k), e.data); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	h.pending = nil
	return nil
}

func (h *sqliteHandle) Close() error {
	h.closed = true
	h.pending = nil
	return nil
}
