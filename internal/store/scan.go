package store

import (
	"fmt"

	"caveatlab/delegraph/internal/delegation"
)

type row struct {
	seq int64
	d   delegation.Delegation
}

// scanDelegation scans a row into a delegation. The row must have the
// columns seq, delegator, delegate, authority, salt, signature in that order.
func scanDelegation(scanner interface{ Scan(dest ...any) error }) (row, error) {
	var r row
	err := scanner.Scan(&r.seq, &r.d.Delegator, &r.d.Delegate, &r.d.Authority, &r.d.Salt, &r.d.Signature)
	r.d.Caveats = []delegation.Caveat{}
	return r, err
}

// query loads the delegations matching where, with their caveats, in
// insertion order.
func (s *Store) query(where string, args ...any) ([]delegation.Delegation, error) {
	rows, err := s.conn.Query(`
		SELECT seq, delegator, delegate, authority, salt, signature
		FROM delegations WHERE `+where+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delegations: %w", err)
	}

	var found []row
	index := make(map[int64]int)
	for rows.Next() {
		r, err := scanDelegation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning delegation: %w", err)
		}
		index[r.seq] = len(found)
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]delegation.Delegation, 0, len(found))
	if len(found) == 0 {
		return out, nil
	}

	crows, err := s.conn.Query(`
		SELECT delegation_seq, enforcer, terms, args
		FROM caveats
		WHERE delegation_seq IN (SELECT seq FROM delegations WHERE `+where+`)
		ORDER BY delegation_seq, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying caveats: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var seq int64
		var c delegation.Caveat
		if err := crows.Scan(&seq, &c.Enforcer, &c.Terms, &c.Args); err != nil {
			return nil, fmt.Errorf("scanning caveat: %w", err)
		}
		if i, ok := index[seq]; ok {
			found[i].d.Caveats = append(found[i].d.Caveats, c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	for _, r := range found {
		out = append(out, r.d)
	}
	return out, nil
}
