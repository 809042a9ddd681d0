package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const inlineScenario = `name: inline
description: Load two comments and drop one
steps:
  - action:
      type: LOAD_JSON_API_ENTITY_DATA
      data:
        data:
          - {type: comments, id: "1", attributes: {body: one}}
          - {type: comments, id: "2", attributes: {body: two}}
  - action: {type: REMOVE_ENTITY_COMMENT, entityKey: comments, entityId: "1"}
assertions:
  - type: entities
    key: comments
    expect: ["2"]
`

func TestTestCommand_Args(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")

	_, err = execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios path not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, err = execute(t, "test", "--format", "json", dir)
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(0), resp.Data.(map[string]any)["total"])
}

func TestTestCommand_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ comment_flow")
	assert.Contains(t, out, "✓ comments_meta")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, "test", "--format", "json", "--filter", "comment_*", harnessScenarios)
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	scenarios := data["scenarios"].([]any)
	assert.Equal(t, "comment_flow", scenarios[0].(map[string]any)["name"])
}

func TestTestCommand_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "inline.yaml", inlineScenario)
	golden := goldenFilePath(scenario)

	out, err := execute(t, "test", "--update", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ inline (golden updated)")
	require.FileExists(t, golden)

	out, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ inline\n")

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ inline")
	assert.Contains(t, out, "golden file mismatch")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", `name: wrong
description: Expects a tag that was never loaded
steps:
  - action:
      type: LOAD_JSON_API_ENTITY_DATA
      data: {data: {type: tags, id: "1"}}
assertions:
  - type: entities
    key: tags
    expect: ["2"]
`)
	writeFile(t, dir, "broken.yaml", "name: [unclosed\n")

	out, err := execute(t, "test", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["failed"])
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.yaml", inlineScenario)
	writeFile(t, dir, "beta.yml", inlineScenario)
	writeFile(t, dir, "notes.txt", "ignored")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = findScenarioFiles(dir, "b*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "beta.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "flow.golden"), goldenFilePath(filepath.Join("a", "b", "flow.yaml")))
}
