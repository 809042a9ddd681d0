package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/state"
	"github.com/roach88/jsonapistore/internal/store"
)

func TestReplay_MissingDB(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestReplay_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No action logs found in database.")

	out, err = execute(t, "replay", "--db", db, "--format", "json")
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, true, data["all_deterministic"])
	assert.Empty(t, data["names"])
}

func TestReplay_Deterministic(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", mixedActions)
	_, err := execute(t, "apply", "--db", db, actions)
	require.Error(t, err) // one action fails and is not logged

	other := writeFile(t, t.TempDir(), "comments.json", `{"data": {"type": "comments", "id": "1"}}`)
	_, err = execute(t, "load", "--db", db, "--name", "other", other)
	require.NoError(t, err)

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Replay Summary: 2 state(s)")
	assert.Contains(t, out, "✓ State: default")
	assert.Contains(t, out, "  Actions: 3 (last seq 3)")
	assert.Contains(t, out, "✓ State: other")
	assert.Contains(t, out, "✓ All action logs verified deterministic")

	out, err = execute(t, "replay", "--db", db, "--name", "other", "--format", "json")
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	named := data["names"].([]any)[0].(map[string]any)
	assert.Equal(t, "other", named["name"])
	assert.Equal(t, true, named["matches_latest"])
	assert.Equal(t, true, named["deterministic"])
}

func TestReplay_DetectsTamperedLog(t *testing.T) {
	db := loadedDB(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.AppendAction(context.Background(), DefaultStateName, action.ClearEntityType("articles"), state.State{})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ State: default")
	assert.Contains(t, out, "  Mismatch at seq 2 (CLEAR_ENTITY_TYPE_ARTICLES)")
	assert.Contains(t, out, "  Warning: replayed state differs from the latest snapshot!")
	assert.Contains(t, out, "✗ Determinism verification failed")

	out, err = execute(t, "replay", "--db", db, "--format", "json")
	require.Error(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeNondeterministic, resp.Error.Code)
	named := resp.Data.(map[string]any)["names"].([]any)[0].(map[string]any)
	assert.Equal(t, false, named["deterministic"])
	assert.Len(t, named["mismatches"], 1)
}
