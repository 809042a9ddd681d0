package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/state"
	"github.com/roach88/jsonapistore/internal/testutil"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// articlesState returns the state produced by loading the articles
// fixture.
func articlesState(t *testing.T) state.State {
	t.Helper()
	s, err := state.NewNormalizer().InsertOrUpdateEntities(state.State{}, testutil.MustParse(t, testutil.ArticlesDocument))
	require.NoError(t, err)
	return s
}

// applyAndLog reduces each action and appends it to name's log.
func applyAndLog(t *testing.T, st *Store, name string, actions ...action.Action) state.State {
	t.Helper()
	r := action.NewReducer()
	s := state.State{}
	for _, a := range actions {
		next, err := r.Reduce(s, a)
		require.NoError(t, err)
		_, err = st.AppendAction(t.Context(), name, a, next)
		require.NoError(t, err)
		s = next
	}
	return s
}
