package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// Snapshot describes one saved state tree.
type Snapshot struct {
	Name          string
	Hash          string
	Seq           int64
	FormatVersion string
	ToolVersion   string
}

// SaveSnapshot stores s under name. Uses ON CONFLICT(name, hash) DO NOTHING
// for idempotency: saving content that name already holds returns the
// existing snapshot and false. New snapshots get the next seq for name.
//
// Saving content held by an older snapshot moves that snapshot to the next
// seq, so LoadLatest always returns the most recently saved content.
func (s *Store) SaveSnapshot(ctx context.Context, name string, st state.State) (Snapshot, bool, error) {
	if name == "" {
		return Snapshot{}, false, fmt.Errorf("save snapshot: empty name")
	}

	hash, err := st.Hash()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}
	body, err := marshalState(st)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanSnapshotRow(tx.QueryRowContext(ctx, `
		SELECT name, hash, seq, format_version, tool_version
		FROM snapshots
		WHERE name = ? AND hash = ?
	`, name, hash))
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	seq, err := nextSeq(ctx, tx, "snapshots", name)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	if found {
		if existing.Seq == seq-1 {
			return existing, false, nil
		}
		// A state that returns to earlier content becomes the latest again.
		if _, err := tx.ExecContext(ctx, `
			UPDATE snapshots SET seq = ?, state = ? WHERE name = ? AND hash = ?
		`, seq, body, name, hash); err != nil {
			return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
		}
		existing.Seq = seq
		return existing, false, nil
	}

	snap := Snapshot{
		Name:          name,
		Hash:          hash,
		Seq:           seq,
		FormatVersion: ir.FormatVersion,
		ToolVersion:   ir.ToolVersion,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (name, hash, seq, state, format_version, tool_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, hash) DO NOTHING
	`, snap.Name, snap.Hash, snap.Seq, body, snap.FormatVersion, snap.ToolVersion)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: %w", err)
	}

	n, _ := res.RowsAffected()
	return snap, n > 0, nil
}

// ActionRecord is one entry of a name's action log.
type ActionRecord struct {
	Name      string
	Seq       int64
	Action    action.Action
	StateHash string
}

// AppendAction logs a as applied to name, with after the resulting state.
// Returns the seq assigned to the entry.
func (s *Store) AppendAction(ctx context.Context, name string, a action.Action, after state.State) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("append action: empty name")
	}

	body, err := marshalAction(a)
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}
	hash, err := after.Hash()
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "actions", name)
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actions (name, seq, type, body, state_hash)
		VALUES (?, ?, ?, ?, ?)
	`, name, seq, a.Type, body, hash)
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}
	return seq, nil
}

// nextSeq returns the next per-name sequence number of table. Sequence
// numbers are logical; ordering never depends on wall time.
func nextSeq(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s WHERE name = ?", table),
		name,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}
