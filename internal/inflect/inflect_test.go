package inflect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralRegularAndIrregular(t *testing.T) {
	infl := New()

	tests := []struct {
		singular string
		plural   string
	}{
		{"article", "articles"},
		{"comment", "comments"},
		{"person", "people"},
		{"category", "categories"},
		{"tag", "tags"},
		{"child", "children"},
	}

	for _, tt := range tests {
		t.Run(tt.singular, func(t *testing.T) {
			assert.Equal(t, tt.plural, infl.Plural(tt.singular))
			assert.Equal(t, tt.singular, infl.Singular(tt.plural))
		})
	}
}

func TestPluralIdempotent(t *testing.T) {
	infl := New()

	for _, word := range []string{"articles", "comments", "people", "categories", "children", "tags"} {
		t.Run(word, func(t *testing.T) {
			assert.Equal(t, word, infl.Plural(word))
			assert.Equal(t, infl.Plural(word), infl.Plural(infl.Plural(word)))
		})
	}
}

func TestPluralEmpty(t *testing.T) {
	infl := New()

	assert.Equal(t, "", infl.Plural(""))
	assert.Equal(t, "", infl.Singular(""))
}

func TestWithIrregular(t *testing.T) {
	infl := New(WithIrregular("octopus", "octopodes"))

	assert.Equal(t, "octopodes", infl.Plural("octopus"))
	assert.Equal(t, "octopodes", infl.Plural("octopodes"))
	assert.Equal(t, "octopus", infl.Singular("octopodes"))
}

func TestWithUncountable(t *testing.T) {
	infl := New(WithUncountable("metadata"))

	assert.Equal(t, "metadata", infl.Plural("metadata"))
	assert.Equal(t, "metadata", infl.Singular("metadata"))
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Equal(t, "articles", Default().Plural("article"))
}

func TestStatic(t *testing.T) {
	infl := Static{
		Plurals: map[string]string{"author": "people"},
		Next:    New(),
	}

	assert.Equal(t, "people", infl.Plural("author"))
	assert.Equal(t, "people", infl.Plural("people"))
	assert.Equal(t, "author", infl.Singular("people"))
	assert.Equal(t, "comments", infl.Plural("comment"))
	assert.Equal(t, "comment", infl.Singular("comments"))

	bare := Static{Plurals: map[string]string{"x": "xs"}}
	assert.Equal(t, "y", bare.Plural("y"))
	assert.Equal(t, "y", bare.Singular("y"))
}
