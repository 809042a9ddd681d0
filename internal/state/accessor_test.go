package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
	"github.com/roach88/jsonapistore/internal/testutil"
)

func viewIDs(views []View) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestArticleCommentsScenario(t *testing.T) {
	n := NewNormalizer()
	a := NewAccessor()

	s, err := n.InsertOrUpdateEntities(State{}, testutil.MustParse(t, `{
		"data": {
			"type": "articles", "id": "1",
			"attributes": {"title": "T"},
			"relationships": {"comments": {"data": [{"type": "comments", "id": "5"}, {"type": "comments", "id": "12"}]}}
		},
		"included": [{"type": "comments", "id": "5", "attributes": {"body": "First!"}}]
	}`))
	require.NoError(t, err)

	article, ok := a.GetEntity(s, "article", "1")
	require.True(t, ok)
	assert.Equal(t, ir.Object{
		"id":         ir.String("1"),
		"type":       ir.String("articles"),
		"attributes": ir.Object{"title": ir.String("T")},
		"comments":   ir.Strings("5", "12"),
	}, article.Object())

	comment, ok := a.GetEntity(s, "comment", "5")
	require.True(t, ok)
	assert.Equal(t, ir.Object{"body": ir.String("First!")}, comment.Attributes)

	s, err = n.RemoveRelationshipFromEntity(s, "articles", "1", "comments", "5")
	require.NoError(t, err)
	article, _ = a.GetEntity(s, "articles", "1")
	assert.Equal(t, []string{"12"}, article.Relationships["comments"].IDs)

	s, err = n.ClearEntityType(s, "articles")
	require.NoError(t, err)
	assert.Equal(t, []View{}, a.GetEntities(s, "articles", nil))
}

func TestGetEntity(t *testing.T) {
	s, _ := loadArticles(t)
	a := NewAccessor()

	t.Run("view splits attributes and relationships", func(t *testing.T) {
		v, ok := a.GetEntity(s, "articles", "1")
		require.True(t, ok)

		assert.Equal(t, "1", v.ID)
		assert.Equal(t, "articles", v.Type)
		assert.Equal(t, ir.Object{"title": ir.String("JSON API paints my bikeshed!")}, v.Attributes)
		assert.Equal(t, []string{"author", "comments"}, v.RelationshipKeys())
		assert.Equal(t, RelationshipView{Type: "people", IDs: []string{"9"}}, v.Relationships["author"])
		assert.Equal(t, RelationshipView{Type: "comments", Many: true, IDs: []string{"5", "12"}}, v.Relationships["comments"])
	})

	t.Run("json view", func(t *testing.T) {
		v, ok := a.GetEntity(s, "article", "1")
		require.True(t, ok)

		data, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t,
			`{"attributes":{"title":"JSON API paints my bikeshed!"},"author":"9","comments":["5","12"],"id":"1","type":"articles"}`,
			string(data))
	})

	misses := []struct {
		name, key, id string
	}{
		{"unknown type", "movies", "1"},
		{"unknown id", "articles", "404"},
		{"empty key", "", "1"},
	}
	for _, tt := range misses {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := a.GetEntity(s, tt.key, tt.id)
			assert.False(t, ok)
		})
	}

	t.Run("null to-one", func(t *testing.T) {
		n := NewNormalizer()
		next, err := n.RemoveRelationshipFromEntity(s, "articles", "1", "author", "9")
		require.NoError(t, err)

		v, ok := a.GetEntity(next, "articles", "1")
		require.True(t, ok)
		assert.Equal(t, []string{}, v.Relationships["author"].IDs)
		assert.Equal(t, ir.Null{}, v.Object()["author"])
	})
}

func TestGetEntity_Expand(t *testing.T) {
	s, _ := loadArticles(t)
	a := NewAccessor()

	v, ok := a.GetEntity(s, "articles", "1", Expand())
	require.True(t, ok)

	assert.Equal(t, ir.Object{
		"id":         ir.String("1"),
		"type":       ir.String("articles"),
		"attributes": ir.Object{"title": ir.String("JSON API paints my bikeshed!")},
		"author": ir.Object{
			"id":   ir.String("9"),
			"type": ir.String("people"),
			"attributes": ir.Object{
				"first-name": ir.String("Dan"),
				"last-name":  ir.String("Gebhardt"),
				"twitter":    ir.String("dgeb"),
			},
		},
		"comments": ir.Array{
			ir.Object{
				"id":         ir.String("5"),
				"type":       ir.String("comments"),
				"attributes": ir.Object{"body": ir.String("First!")},
				"author":     ir.String("2"),
			},
			ir.Object{
				"id":         ir.String("12"),
				"type":       ir.String("comments"),
				"attributes": ir.Object{"body": ir.String("I like XML better")},
				"author":     ir.String("9"),
			},
		},
	}, v.Object())

	deep, ok := a.GetEntity(s, "articles", "1", ExpandDepth(2))
	require.True(t, ok)
	first := deep.Relationships["comments"].Entities[0]
	require.True(t, first.Relationships["author"].Expanded)
	assert.Equal(t, ir.Object{
		"id":         ir.String("2"),
		"type":       ir.String("people"),
		"attributes": ir.Object{},
	}, first.Object()["author"])

	flat, ok := a.GetEntity(s, "articles", "1", ExpandDepth(-3))
	require.True(t, ok)
	assert.False(t, flat.Relationships["author"].Expanded)
}

func TestGetEntity_ExpandOmitsMissingTargets(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	s, err := n.RemoveEntity(s, "comments", "5")
	require.NoError(t, err)

	v, ok := a.GetEntity(s, "articles", "1", Expand())
	require.True(t, ok)

	comments := v.Relationships["comments"]
	assert.Equal(t, []string{"5", "12"}, comments.IDs)
	assert.Equal(t, []string{"12"}, viewIDs(comments.Entities))
}

func TestGetEntity_ExpandCycleGuard(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	s, err := n.SetRelationshipOnEntity(s, "people", "9", "articles", jsonapi.Many{jsonapi.Ref("articles", "1")})
	require.NoError(t, err)

	v, ok := a.GetEntity(s, "articles", "1", ExpandDepth(10))
	require.True(t, ok)

	author := v.Relationships["author"].Entities[0]
	require.Equal(t, "9", author.ID)
	require.True(t, author.Relationships["articles"].Expanded)

	again := author.Relationships["articles"].Entities[0]
	assert.Equal(t, "1", again.ID)
	assert.False(t, again.Relationships["author"].Expanded, "article 1 is already being expanded")
	assert.Equal(t, []string{"9"}, again.Relationships["author"].IDs)

	// A different path may expand person 9 again.
	viaComment := v.Relationships["comments"].Entities[1].Relationships["author"].Entities[0]
	assert.Equal(t, "9", viaComment.ID)
	assert.True(t, viaComment.Relationships["articles"].Expanded)
}

func TestGetEntities(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	s, err := n.InsertOrUpdateEntities(s, testutil.MustParse(t, testutil.CommentDocument))
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		ids  []string
		want []string
	}{
		{"all in insertion order", "comments", nil, []string{"5", "12", "44"}},
		{"singular key", "comment", nil, []string{"5", "12", "44"}},
		{"follows argument order", "comments", []string{"44", "5"}, []string{"44", "5"}},
		{"ascending ids", "comments", []string{"5", "44"}, []string{"5", "44"}},
		{"skips missing ids", "comments", []string{"5", "666"}, []string{"5"}},
		{"duplicates are kept", "comments", []string{"12", "12"}, []string{"12", "12"}},
		{"empty ids", "comments", []string{}, []string{}},
		{"unknown type", "movies", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := a.GetEntities(s, tt.key, tt.ids)
			require.NotNil(t, views)
			assert.Equal(t, tt.want, viewIDs(views))
		})
	}

	t.Run("expand applies to every view", func(t *testing.T) {
		views := a.GetEntities(s, "comments", []string{"12"}, Expand())
		require.Len(t, views, 1)
		assert.Equal(t, "9", views[0].Relationships["author"].Entities[0].ID)
	})
}

func TestGetEntitiesAfterRemoveIsEmptyButPresent(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	s, err := n.RemoveEntity(s, "articles", "1")
	require.NoError(t, err)

	assert.Equal(t, []View{}, a.GetEntities(s, "articles", nil))
	_, ok := a.GetEntitiesMeta(s, "articles", "")
	assert.False(t, ok)
}

func TestGetEntitiesMeta(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	_, ok := a.GetEntitiesMeta(s, "articles", "")
	assert.False(t, ok, "meta absent until first write")

	s, err := n.UpdateEntitiesMeta(s, "articles", "isLoading", ir.Bool(true))
	require.NoError(t, err)

	v, ok := a.GetEntitiesMeta(s, "article", "isLoading")
	require.True(t, ok)
	assert.Equal(t, ir.Bool(true), v)

	whole, ok := a.GetEntitiesMeta(s, "articles", "")
	require.True(t, ok)
	assert.Equal(t, ir.Object{"isLoading": ir.Bool(true)}, whole)

	_, ok = a.GetEntitiesMeta(s, "articles", "invalidMetaKey")
	assert.False(t, ok)
	_, ok = a.GetEntitiesMeta(s, "movies", "isLoading")
	assert.False(t, ok)

	cleared, err := n.ClearEntityType(s, "articles")
	require.NoError(t, err)
	_, ok = a.GetEntitiesMeta(cleared, "articles", "isLoading")
	assert.False(t, ok)
}

func TestGetEntityMeta(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	whole, ok := a.GetEntityMeta(s, "articles", "1", "")
	require.True(t, ok)
	assert.Equal(t, ir.Object{}, whole)

	s, err := n.UpdateEntityMeta(s, "articles", "1", "isLoading", ir.Bool(true))
	require.NoError(t, err)

	v, ok := a.GetEntityMeta(s, "article", "1", "isLoading")
	require.True(t, ok)
	assert.Equal(t, ir.Bool(true), v)

	_, ok = a.GetEntityMeta(s, "articles", "1", "invalidMetaKey")
	assert.False(t, ok)
	_, ok = a.GetEntityMeta(s, "authors", "1", "")
	assert.False(t, ok)
	_, ok = a.GetEntityMeta(s, "articles", "404", "")
	assert.False(t, ok)
}

func TestAccessorResultsAreCopies(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	s, err := n.UpdateEntitiesMeta(s, "articles", "", ir.Object{"page": ir.Int(1), "nav": ir.Object{"next": ir.String("/2")}})
	require.NoError(t, err)
	s, err = n.UpdateEntityMeta(s, "articles", "1", "flags", ir.Object{"dirty": ir.Bool(false)})
	require.NoError(t, err)
	s, err = n.UpdateEntity(s, "articles", "1", jsonapi.Attributes{"tags": ir.Array{ir.String("go")}})
	require.NoError(t, err)
	derived, err := n.UpdateEntitiesMeta(s, "articles", "isLoading", ir.Bool(true))
	require.NoError(t, err)

	whole, ok := a.GetEntitiesMeta(s, "articles", "")
	require.True(t, ok)
	whole.(ir.Object)["page"] = ir.Int(99)
	nav, ok := a.GetEntitiesMeta(s, "articles", "nav")
	require.True(t, ok)
	nav.(ir.Object)["next"] = ir.Null{}
	flags, ok := a.GetEntityMeta(s, "articles", "1", "flags")
	require.True(t, ok)
	flags.(ir.Object)["dirty"] = ir.Bool(true)
	view, ok := a.GetEntity(s, "articles", "1")
	require.True(t, ok)
	view.Attributes["title"] = ir.String("changed")
	view.Attributes["tags"].(ir.Array)[0] = ir.String("rust")

	for _, st := range []State{s, derived} {
		page, _ := a.GetEntitiesMeta(st, "articles", "page")
		assert.Equal(t, ir.Int(1), page)
		nav, _ := a.GetEntitiesMeta(st, "articles", "nav")
		assert.Equal(t, ir.Object{"next": ir.String("/2")}, nav)
		flags, _ := a.GetEntityMeta(st, "articles", "1", "flags")
		assert.Equal(t, ir.Object{"dirty": ir.Bool(false)}, flags)

		article, ok := a.GetEntity(st, "articles", "1")
		require.True(t, ok)
		assert.Equal(t, ir.String("JSON API paints my bikeshed!"), article.Attributes["title"])
		assert.Equal(t, ir.Array{ir.String("go")}, article.Attributes["tags"])
	}
}

func TestGetMostRecentlyLoaded(t *testing.T) {
	s, n := loadArticles(t)
	a := NewAccessor()

	assert.Equal(t, []View{}, a.GetMostRecentlyLoaded(s, "comments"))

	s, err := n.UpdateEntitiesMeta(s, "comments", MostRecentlyLoadedKey, ir.Strings("12", "5", "666"))
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "5"}, viewIDs(a.GetMostRecentlyLoaded(s, "comment")))

	s, err = n.UpdateEntitiesMeta(s, "comments", MostRecentlyLoadedKey, ir.Int(5))
	require.NoError(t, err)
	assert.Equal(t, []View{}, a.GetMostRecentlyLoaded(s, "comments"))
}

func TestAccessorExtractsIDs(t *testing.T) {
	a := NewAccessor()

	id, ok := a.GetID(testutil.MustValue(t, testutil.CommentDocument))
	require.True(t, ok)
	assert.Equal(t, "44", id)

	assert.Equal(t, []string{"42", "44"}, a.GetIDs(testutil.MustValue(t, testutil.CommentsDocument)))
}
