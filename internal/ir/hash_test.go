package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIgnoresMapOrder(t *testing.T) {
	a := Object{"x": Int(1), "y": Strings("a", "b")}
	b := Object{"y": Strings("a", "b"), "x": Int(1)}

	ha, err := Hash(DomainState, a)
	require.NoError(t, err)
	hb, err := Hash(DomainState, b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestHashDomainSeparation(t *testing.T) {
	v := Object{"x": Int(1)}

	assert.NotEqual(t, MustHash(DomainState, v), MustHash("jsonapistore/other/v1", v))
}

func TestHashArrayOrderMatters(t *testing.T) {
	assert.NotEqual(t,
		MustHash(DomainState, Strings("5", "12")),
		MustHash(DomainState, Strings("12", "5")),
	)
}

func TestMustHashPanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() {
		MustHash(DomainState, make(chan int))
	})
}
