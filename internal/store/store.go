// Package store keeps the session's delegation list in an in-memory SQLite
// database. Nothing is written to disk and the data is gone on Close.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"caveatlab/delegraph/internal/delegation"
)

// ErrNotFound is returned when no delegation matches.
var ErrNotFound = errors.New("delegation not found")

const schema = `
CREATE TABLE delegations (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL,
	hash          TEXT NOT NULL,
	delegator     TEXT NOT NULL,
	delegate      TEXT NOT NULL,
	delegator_key TEXT NOT NULL,
	delegate_key  TEXT NOT NULL,
	authority     TEXT NOT NULL,
	salt          TEXT NOT NULL,
	signature     TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX idx_delegations_id ON delegations(id);
CREATE INDEX idx_delegations_hash ON delegations(hash);
CREATE INDEX idx_delegations_delegator ON delegations(delegator_key);
CREATE INDEX idx_delegations_delegate ON delegations(delegate_key);

CREATE TABLE caveats (
	delegation_seq INTEGER NOT NULL REFERENCES delegations(seq) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	enforcer       TEXT NOT NULL,
	terms          TEXT NOT NULL,
	args           TEXT NOT NULL,
	PRIMARY KEY (delegation_seq, position)
);
`

// Store wraps an in-memory SQLite connection
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates an empty in-memory store with foreign keys enabled
func Open() (*Store, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every new connection would get its own empty database.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{conn: conn, now: time.Now}, nil
}

// Close releases the database and everything in it
func (s *Store) Close() error {
	return s.conn.Close()
}

// Add appends a delegation. Records sharing an identity are all kept.
func (s *Store) Add(d delegation.Delegation) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	if err := insert(tx, d, s.now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

// AddAll appends delegations in order, atomically.
func (s *Store) AddAll(ds []delegation.Delegation) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	for _, d := range ds {
		if err := insert(tx, d, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insert(tx *sql.Tx, d delegation.Delegation, createdAt int64) error {
	res, err := tx.Exec(`
		INSERT INTO delegations (id, hash, delegator, delegate, delegator_key, delegate_key,
		                         authority, salt, signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID(), d.Hash().Hex(), d.Delegator, d.Delegate, fold(d.Delegator), fold(d.Delegate),
		d.Authority, d.Salt, d.Signature, createdAt)
	if err != nil {
		return fmt.Errorf("inserting delegation %s: %w", d.ID(), err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	for i, c := range d.Caveats {
		if _, err := tx.Exec(`
			INSERT INTO caveats (delegation_seq, position, enforcer, terms, args)
			VALUES (?, ?, ?, ?, ?)
		`, seq, i, c.Enforcer, c.Terms, c.Args); err != nil {
			return fmt.Errorf("inserting caveat %d of %s: %w", i, d.ID(), err)
		}
	}
	return nil
}

// All returns every delegation in insertion order
func (s *Store) All() ([]delegation.Delegation, error) {
	return s.query("1 = 1")
}

// ByDelegator returns the delegations granted by address
func (s *Store) ByDelegator(address string) ([]delegation.Delegation, error) {
	return s.query("delegator_key = ?", fold(address))
}

// ByDelegate returns the delegations granted to address
func (s *Store) ByDelegate(address string) ([]delegation.Delegation, error) {
	return s.query("delegate_key = ?", fold(address))
}

// ByID returns every delegation with the given identity, oldest first
func (s *Store) ByID(id string) ([]delegation.Delegation, error) {
	return s.query("id = ?", fold(id))
}

// ByHash returns the first delegation whose hash matches
func (s *Store) ByHash(hash string) (delegation.Delegation, error) {
	ds, err := s.query("hash = ?", fold(hash))
	if err != nil {
		return delegation.Delegation{}, err
	}
	if len(ds) == 0 {
		return delegation.Delegation{}, fmt.Errorf("%w: hash %s", ErrNotFound, hash)
	}
	return ds[0], nil
}

// Chain walks authority links from d up to its root grant. The result
// starts with d. The walk stops at a root, at a parent missing from the
// store, or when a hash repeats.
func (s *Store) Chain(d delegation.Delegation) ([]delegation.Delegation, error) {
	chain := []delegation.Delegation{d}
	seen := map[string]bool{d.Hash().Hex(): true}
	cur := d
	for !cur.IsRoot() {
		parent, err := s.ByHash(cur.Authority)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		h := parent.Hash().Hex()
		if seen[h] {
			break
		}
		seen[h] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain, nil
}

// Len returns the number of stored delegations
func (s *Store) Len() (int, error) {
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM delegations").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting delegations: %w", err)
	}
	return n, nil
}

// Clear removes every delegation
func (s *Store) Clear() error {
	if _, err := s.conn.Exec("DELETE FROM delegations"); err != nil {
		return fmt.Errorf("clearing delegations: %w", err)
	}
	return nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
