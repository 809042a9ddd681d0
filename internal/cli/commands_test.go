package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/testutil"
)

const mixedActions = `[
  {"type": "UPDATE_ENTITY_ARTICLE", "entityKey": "articles", "entityId": "1",
   "data": {"type": "articles", "id": "1", "attributes": {"title": "Updated"}}},
  {"type": "LOAD_JSON_API_ENTITY_DATA", "data": {"type": "articles"}},
  {"type": "REMOVE_ENTITY_COMMENT", "entityKey": "comments", "entityId": "5"}
]`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "store.db")
	doc := writeFile(t, dir, "articles.json", testutil.ArticlesDocument)

	out, err := execute(t, "load", "--db", db, doc)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ default: applied 1 action(s), snapshot 1 saved")
	assert.Contains(t, out, "  articles: 1\n")
	assert.Contains(t, out, "  comments: 2\n")

	// Loading the same document again changes nothing.
	out, err = execute(t, "load", "--db", db, doc)
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot 1 unchanged")
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "store.db")
	first := writeFile(t, dir, "comments.json", testutil.CommentsDocument)
	second := writeFile(t, dir, "comment.yaml", `
data:
  type: comments
  id: "7"
  attributes: {body: from yaml}
`)

	out, err := execute(t, "load", "--db", db, "--name", "feed", "--format", "json", first, second)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "feed", data["name"])
	assert.Equal(t, float64(2), data["applied"])
	assert.Equal(t, true, data["created"])
	// Relationship targets get empty records.
	assert.Equal(t, []any{
		map[string]any{"type": "comments", "count": float64(3)},
		map[string]any{"type": "people", "count": float64(1)},
	}, data["types"])
}

func TestLoad_InvalidDocumentWritesNothing(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "store.db")
	good := writeFile(t, dir, "good.json", testutil.CommentDocument)
	bad := writeFile(t, dir, "bad.json", `{"data": {"type": "comments", "attributes": {"body": "no id"}}}`)

	out, err := execute(t, "load", "--db", db, "--format", "json", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeMissingID, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "bad.json")

	out, err = execute(t, "snapshots", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots saved for default.")
}

func TestLoad_MissingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	_, err := execute(t, "load", "--db", db, "/nonexistent/doc.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestApply_ContinuesPastFailures(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", mixedActions)

	out, err := execute(t, "apply", "--db", db, actions)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 3 action(s) failed")
	assert.Contains(t, out, "applied 2 action(s)")
	assert.Contains(t, out, "[1] LOAD_JSON_API_ENTITY_DATA E102")

	out, err = execute(t, "get", "--db", db, "--format", "json", "article", "1")
	require.NoError(t, err)
	view := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, map[string]any{"title": "Updated"}, view["attributes"])

	out, err = execute(t, "get", "--db", db, "--format", "json", "comments")
	require.NoError(t, err)
	views := decodeResponse(t, out).Data.([]any)
	require.Len(t, views, 1)
	assert.Equal(t, "12", views[0].(map[string]any)["id"])

	out, err = execute(t, "log", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] LOAD_JSON_API_ENTITY_DATA")
	assert.Contains(t, out, "[2] UPDATE_ENTITY_ARTICLE")
	assert.Contains(t, out, "[3] REMOVE_ENTITY_COMMENT")
}

func TestApply_JSONFailures(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", mixedActions)

	out, err := execute(t, "apply", "--db", db, "--format", "json", actions)
	require.Error(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeActionFailed, resp.Error.Code)
	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, float64(2), details["applied"])
	failures := details["failures"].([]any)
	require.Len(t, failures, 1)
	failure := failures[0].(map[string]any)
	assert.Equal(t, float64(1), failure["index"])
	assert.Equal(t, ErrCodeMissingID, failure["code"])
}

func TestApply_Atomic(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", mixedActions)

	out, err := execute(t, "apply", "--db", db, "--atomic", "--format", "json", actions)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out)
	assert.Equal(t, ErrCodeMissingID, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "action 1 (LOAD_JSON_API_ENTITY_DATA)")

	out, err = execute(t, "get", "--db", db, "--format", "json", "articles", "1")
	require.NoError(t, err)
	view := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, map[string]any{"title": "JSON API paints my bikeshed!"}, view["attributes"])

	out, err = execute(t, "log", "--db", db, "--format", "json")
	require.NoError(t, err)
	assert.Len(t, decodeResponse(t, out).Data.([]any), 1)
}

func TestApply_AtomicSuccess(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.yaml", `
- {type: UPDATE_ENTITY_META_ARTICLE, entityKey: article, entityId: "1", metaKey: isSaving, value: true}
- {type: CLEAR_ENTITY_TYPE_COMMENTS, entityKey: comments}
`)

	out, err := execute(t, "apply", "--db", db, "--atomic", actions)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 2 action(s), snapshot 2 saved")

	out, err = execute(t, "meta", "--db", db, "articles", "1", "--key", "isSaving")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, "get", "--db", db, "--format", "json", "comments")
	require.NoError(t, err)
	assert.Empty(t, decodeResponse(t, out).Data)
}

func TestApply_UnknownTypeIsNoop(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", `{"type": "SOMETHING_ELSE"}`)

	out, err := execute(t, "apply", "--db", db, actions)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 1 action(s), snapshot 1 unchanged")
}

func TestApply_BadActionFile(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", `{"entityKey": "articles"}`)

	_, err := execute(t, "apply", "--db", db, actions)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLog_Filter(t *testing.T) {
	db := loadedDB(t)
	actions := writeFile(t, t.TempDir(), "actions.json", mixedActions)
	_, err := execute(t, "apply", "--db", db, actions)
	require.Error(t, err)

	out, err := execute(t, "log", "--db", db, "--action", "UPDATE_ENTITY", "--format", "json")
	require.NoError(t, err)
	entries := decodeResponse(t, out).Data.([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "UPDATE_ENTITY_ARTICLE", entry["type"])
	assert.Equal(t, "UPDATE_ENTITY", entry["name"])

	out, err = execute(t, "log", "--db", db, "--action", "REMOVE_ENTITY_COMMENT")
	require.NoError(t, err)
	assert.Contains(t, out, "[3] REMOVE_ENTITY_COMMENT")
	assert.NotContains(t, out, "LOAD_JSON_API_ENTITY_DATA")

	out, err = execute(t, "log", "--db", db, "--name", "empty")
	require.NoError(t, err)
	assert.Equal(t, "No actions logged for empty.\n", out)
}
