package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/action"
)

func tableExists(t *testing.T, s *Store, kind, name string) bool {
	t.Helper()
	var found string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type=? AND name=?", kind, name).Scan(&found)
	return err == nil
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := Open(path)
	require.NoError(t, err)
	snap, _, err := s.SaveSnapshot(t.Context(), "default", articlesState(t))
	require.NoError(t, err)
	_, err = s.AppendAction(t.Context(), "default", action.ClearEntityType("people"), articlesState(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Repeated opens reapply the schema and migrations without touching rows.
	for range 3 {
		s, err = Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"snapshots", "actions"} {
		assert.True(t, tableExists(t, s, "table", table), table)
	}
	_, latest, err := s.LoadLatest(t.Context(), "default")
	require.NoError(t, err)
	assert.Equal(t, snap.Hash, latest.Hash)

	actions, err := s.ReadActions(t.Context(), "default")
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "store.db"))
	assert.Error(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.SaveSnapshot(t.Context(), "default", articlesState(t))
	require.NoError(t, err)
	names, err := s.Names(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, names)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close(), "zero Store")

	s := createTestStore(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close")
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.want); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	for _, index := range []string{"idx_snapshots_name_seq", "idx_actions_name_type"} {
		assert.True(t, tableExists(t, s, "index", index), index)
	}
}

func TestMigration_FromVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("DROP INDEX idx_snapshots_name_seq"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
	assert.True(t, tableExists(t, s, "index", "idx_snapshots_name_seq"), "migration restores index")
}

func TestOpen_WithBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithBusyTimeout(250*time.Millisecond))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("busy_timeout", "250"); err != nil {
		t.Error(err)
	}
}
