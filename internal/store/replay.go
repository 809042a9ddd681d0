package store

import (
	"context"
	"fmt"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/state"
)

// ReplayMismatch records a log entry whose recomputed state hash differs
// from the logged one.
type ReplayMismatch struct {
	Seq      int64  `json:"seq"`
	Type     string `json:"type"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ReplayResult is the outcome of re-applying a name's action log.
type ReplayResult struct {
	Name       string
	State      state.State
	Steps      int
	LastSeq    int64
	Mismatches []ReplayMismatch
}

// Deterministic reports whether every step reproduced its logged hash.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replay rebuilds name's state by applying its action log, in seq order,
// to an empty state through r. Each step's state hash is compared with the
// logged one.
//
// Logged actions succeeded when they were recorded, so a reducer error
// during replay is returned as an error rather than a mismatch.
func (s *Store) Replay(ctx context.Context, name string, r *action.Reducer) (ReplayResult, error) {
	records, err := s.ReadActions(ctx, name)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", name, err)
	}

	result := ReplayResult{Name: name, Mismatches: []ReplayMismatch{}}
	current := state.State{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		next, err := r.Reduce(current, rec.Action)
		if err != nil {
			return result, fmt.Errorf("replay %q seq %d: %w", name, rec.Seq, err)
		}
		hash, err := next.Hash()
		if err != nil {
			return result, fmt.Errorf("replay %q seq %d: %w", name, rec.Seq, err)
		}
		if hash != rec.StateHash {
			result.Mismatches = append(result.Mismatches, ReplayMismatch{
				Seq:      rec.Seq,
				Type:     rec.Action.Type,
				Expected: rec.StateHash,
				Actual:   hash,
			})
		}

		current = next
		result.Steps++
		result.LastSeq = rec.Seq
	}
	result.State = current
	return result, nil
}
