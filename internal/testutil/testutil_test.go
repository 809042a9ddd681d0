package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/jsonapi"
)

func TestSequenceIDGenerator_Increments(t *testing.T) {
	gen := NewSequenceIDGenerator("comment")

	assert.Equal(t, int64(0), gen.Current())
	assert.Equal(t, "comment-1", gen.Generate())
	assert.Equal(t, "comment-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Current())
}

func TestSequenceIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequenceIDGenerator("")
	assert.Equal(t, "id-1", gen.Generate())
}

func TestSequenceIDGenerator_Reset(t *testing.T) {
	gen := NewSequenceIDGenerator("x")
	gen.Generate()
	gen.Generate()

	gen.Reset()

	assert.Equal(t, int64(0), gen.Current())
	assert.Equal(t, "x-1", gen.Generate())
}

func TestSequenceIDGenerator_Concurrent(t *testing.T) {
	gen := NewSequenceIDGenerator("c")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	assert.Equal(t, int64(50), gen.Current())
}

func TestFixedIDGenerator_ReturnsInOrder(t *testing.T) {
	gen := NewFixedIDGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.PanicsWithValue(t, "FixedIDGenerator: all ids exhausted", func() { gen.Generate() })
}

func TestGeneratorsSatisfyIDGenerator(t *testing.T) {
	var _ jsonapi.IDGenerator = NewSequenceIDGenerator("x")
	var _ jsonapi.IDGenerator = NewFixedIDGenerator()
}

func TestFixturesParse(t *testing.T) {
	articles, ok := MustParse(t, ArticlesDocument).(jsonapi.Document)
	require.True(t, ok)
	assert.True(t, articles.Many)
	assert.Len(t, articles.Data, 1)
	assert.Len(t, articles.Included, 3)

	comment, ok := MustParse(t, CommentDocument).(jsonapi.Document)
	require.True(t, ok)
	assert.Equal(t, "44", comment.Data[0].ID)

	comments, ok := MustParse(t, CommentsDocument).(jsonapi.Document)
	require.True(t, ok)
	assert.Len(t, comments.Data, 2)

	assert.Equal(t, []string{"42", "44"}, jsonapi.GetIDs(MustValue(t, CommentsDocument)))
}
