package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

func TestLoadValue_Formats(t *testing.T) {
	dir := t.TempDir()
	want := ir.Object{
		"data": ir.Object{
			"type":       ir.String("articles"),
			"id":         ir.String("1"),
			"attributes": ir.Object{"title": ir.String("Hello"), "views": ir.Int(3)},
		},
	}

	tests := []struct {
		name    string
		content string
	}{
		{"doc.json", `{"data": {"type": "articles", "id": "1", "attributes": {"title": "Hello", "views": 3}}}`},
		{"doc.yaml", "data:\n  type: articles\n  id: \"1\"\n  attributes: {title: Hello, views: 3}\n"},
		{"doc.yml", "data: {type: articles, id: \"1\", attributes: {title: Hello, views: 3}}\n"},
		{"doc.cue", `
#Article: {
	type: "articles"
	id:   string
	attributes: {
		title: string
		...
	}
}

data: #Article & {
	id: "1"
	attributes: {
		title: "Hello"
		views: 3
	}
}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.content)
			v, err := LoadValue(path)
			require.NoError(t, err)
			assert.True(t, ir.Equal(want, v), "got %v", v)
		})
	}
}

func TestLoadValue_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
	}{
		{"missing", "", "", ErrCodeNotFound},
		{"bad json", "bad.json", `{"data": `, ErrCodeLoadFailed},
		{"bad yaml", "bad.yaml", "data: [unclosed\n", ErrCodeLoadFailed},
		{"bad cue syntax", "bad.cue", "data: {\n", ErrCodeLoadFailed},
		{"incomplete cue", "open.cue", "data: {type: string, id: \"1\"}\n", ErrCodeBuildFailed},
		{"unsupported", "doc.toml", "data = 1\n", ErrCodeFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := dir + "/does-not-exist.json"
			if tt.file != "" {
				path = writeFile(t, dir, tt.file, tt.content)
			}

			_, err := LoadValue(path)
			require.Error(t, err)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "got %T", err)
			assert.Equal(t, tt.wantCode, loadErr.Code)
			assert.Equal(t, tt.wantCode, errorCode(err))
		})
	}
}

func TestLoadValue_CueConflictPosition(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.cue", "data: {\n\ttype: \"articles\"\n\tid: 1 & 2\n}\n")

	_, err := LoadValue(path)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "got %v", err)
	require.True(t, loadErr.Pos.IsValid(), "no position in %v", err)
	assert.Equal(t, 3, loadErr.Pos.Line())
	assert.Contains(t, loadErr.Error(), path+":3:")
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "file not found: x.json"}
	assert.Equal(t, "E005: file not found: x.json", err.Error())
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	p, raw, err := LoadDocument(writeFile(t, dir, "ok.json", `{"data": [{"type": "tags", "id": 7}]}`))
	require.NoError(t, err)
	doc, ok := p.(jsonapi.Document)
	require.True(t, ok)
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "7", doc.Data[0].ID)
	assert.Equal(t, []string{"7"}, jsonapi.GetIDs(raw))

	_, _, err = LoadDocument(writeFile(t, dir, "bad.json", `{"data": {"type": 1, "id": "1"}}`))
	require.Error(t, err)
	assert.True(t, jsonapi.IsValidationError(err))
	assert.Contains(t, err.Error(), "bad.json")
}

func TestMapValidationCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing type", jsonapi.NewMissingTypeError("type", 0), ErrCodeMissingType},
		{"missing id", jsonapi.NewMissingIDError("id", 2), ErrCodeMissingID},
		{"invalid payload", jsonapi.NewInvalidPayloadError("data", "bad"), ErrCodeInvalidPayload},
		{"invalid meta", jsonapi.NewInvalidMetaError("x"), ErrCodeInvalidMeta},
		{"wrapped", errors.Join(errors.New("ctx"), jsonapi.NewMissingIDError("id", 0)), ErrCodeMissingID},
		{"other", errors.New("boom"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapValidationCode(tt.err))
		})
	}
}

func TestLoadActions(t *testing.T) {
	dir := t.TempDir()

	single := writeFile(t, dir, "one.json",
		`{"type": "CLEAR_ENTITY_TYPE_ARTICLES", "entityKey": "articles"}`)
	actions, err := LoadActions(single)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action.ClearEntityType("articles"), actions[0])

	many := writeFile(t, dir, "many.yaml", `
- {type: REMOVE_ENTITY_COMMENT, entityKey: comments, entityId: "5"}
- {type: UPDATE_ENTITIES_META_COMMENTS, entityKey: comments, metaKey: page, value: 2}
`)
	actions, err = LoadActions(many)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "REMOVE_ENTITY_COMMENT", actions[0].Type)
	assert.Equal(t, "5", actions[0].EntityID)
	assert.Equal(t, "page", actions[1].MetaKey)
	assert.Equal(t, ir.Int(2), actions[1].Value)

	bad := writeFile(t, dir, "bad.json", `{"type": "REMOVE_ENTITY_COMMENT", "entityKye": "comments"}`)
	_, err = LoadActions(bad)
	require.Error(t, err)
	assert.Equal(t, ErrCodeLoadFailed, errorCode(err))
	assert.Contains(t, err.Error(), "entityKye")
}
