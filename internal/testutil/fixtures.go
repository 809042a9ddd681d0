package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// ArticlesDocument is the jsonapi.org compound document: article 1 with
// author 9 and comments 5 and 12, all side-loaded. Comment 5 links to
// person 2, who is not included.
const ArticlesDocument = `{
  "links": {
    "self": "http://example.com/articles",
    "next": "http://example.com/articles?page[offset]=2",
    "last": "http://example.com/articles?page[offset]=10"
  },
  "data": [{
    "type": "articles",
    "id": "1",
    "attributes": {"title": "JSON API paints my bikeshed!"},
    "relationships": {
      "author": {
        "links": {"self": "http://example.com/articles/1/relationships/author"},
        "data": {"type": "people", "id": "9"}
      },
      "comments": {
        "links": {"self": "http://example.com/articles/1/relationships/comments"},
        "data": [{"type": "comments", "id": "5"}, {"type": "comments", "id": "12"}]
      }
    },
    "links": {"self": "http://example.com/articles/1"}
  }],
  "included": [{
    "type": "people",
    "id": "9",
    "attributes": {"first-name": "Dan", "last-name": "Gebhardt", "twitter": "dgeb"}
  }, {
    "type": "comments",
    "id": "5",
    "attributes": {"body": "First!"},
    "relationships": {"author": {"data": {"type": "people", "id": "2"}}}
  }, {
    "type": "comments",
    "id": "12",
    "attributes": {"body": "I like XML better"},
    "relationships": {"author": {"data": {"type": "people", "id": "9"}}}
  }]
}`

// CommentDocument wraps comment 44 by person 9.
const CommentDocument = `{
  "data": {
    "type": "comment",
    "id": "44",
    "attributes": {"body": "This is a terrible comment"},
    "relationships": {"author": {"data": {"type": "people", "id": "9"}}}
  }
}`

// CommentsDocument holds comments 42 and 44.
const CommentsDocument = `{
  "data": [{
    "type": "comments",
    "id": "42",
    "attributes": {"body": "JSON API is love"},
    "relationships": {"author": {"data": {"type": "people", "id": "9"}}}
  }, {
    "type": "comments",
    "id": "44",
    "attributes": {"body": "This is a terrible comment"},
    "relationships": {"author": {"data": {"type": "people", "id": "9"}}}
  }]
}`

// MustParse parses a payload fixture, failing the test on error.
func MustParse(t testing.TB, doc string) jsonapi.Payload {
	t.Helper()
	p, err := jsonapi.Parse([]byte(doc))
	require.NoError(t, err)
	return p
}

// MustValue decodes a JSON fixture into an ir.Value, failing the test on
// error.
func MustValue(t testing.TB, doc string) ir.Value {
	t.Helper()
	v, err := ir.Unmarshal([]byte(doc))
	require.NoError(t, err)
	return v
}

// MustObject decodes a JSON object fixture.
func MustObject(t testing.TB, doc string) ir.Object {
	t.Helper()
	obj, ok := MustValue(t, doc).(ir.Object)
	require.True(t, ok, "fixture is not an object: %s", doc)
	return obj
}
