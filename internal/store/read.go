package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// LoadLatest returns the snapshot of name with the highest seq.
// Returns an error wrapping sql.ErrNoRows if name has no snapshot.
func (s *Store) LoadLatest(ctx context.Context, name string) (state.State, Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, hash, seq, format_version, tool_version, state
		FROM snapshots
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, name)
	st, snap, err := scanStateRow(row)
	if err != nil {
		return state.State{}, Snapshot{}, fmt.Errorf("load latest %q: %w", name, err)
	}
	return st, snap, nil
}

// LoadSnapshot returns the snapshot of name with the given hash.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) LoadSnapshot(ctx context.Context, name, hash string) (state.State, Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, hash, seq, format_version, tool_version, state
		FROM snapshots
		WHERE name = ? AND hash = ?
	`, name, hash)
	st, snap, err := scanStateRow(row)
	if err != nil {
		return state.State{}, Snapshot{}, fmt.Errorf("load snapshot %q@%s: %w", name, hash, err)
	}
	return st, snap, nil
}

// List returns the snapshots of name ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) List(ctx context.Context, name string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, hash, seq, format_version, tool_version
		FROM snapshots
		WHERE name = ?
		ORDER BY seq ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// Names returns every name that has a snapshot or an action log, sorted
// by byte order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM snapshots
		UNION
		SELECT name FROM actions
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// ReadActions returns the action log of name ordered by seq.
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadActions(ctx context.Context, name string) ([]ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, seq, body, state_hash
		FROM actions
		WHERE name = ?
		ORDER BY seq ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	records := []ActionRecord{}
	for rows.Next() {
		var (
			rec  ActionRecord
			body string
		)
		if err := rows.Scan(&rec.Name, &rec.Seq, &body, &rec.StateHash); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.Action, err = unmarshalAction(body)
		if err != nil {
			return nil, fmt.Errorf("action %s#%d: %w", name, rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshotRow(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.Name, &snap.Hash, &snap.Seq, &snap.FormatVersion, &snap.ToolVersion)
	return snap, err
}

func scanStateRow(row *sql.Row) (state.State, Snapshot, error) {
	var (
		snap Snapshot
		body string
	)
	err := row.Scan(&snap.Name, &snap.Hash, &snap.Seq, &snap.FormatVersion, &snap.ToolVersion, &body)
	if err != nil {
		return state.State{}, Snapshot{}, err
	}
	if snap.FormatVersion != ir.FormatVersion {
		return state.State{}, Snapshot{}, fmt.Errorf("unsupported format version %q (want %q)", snap.FormatVersion, ir.FormatVersion)
	}
	st, err := unmarshalState(body)
	if err != nil {
		return state.State{}, Snapshot{}, err
	}
	return st, snap, nil
}
