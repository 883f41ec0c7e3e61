package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteFirstMatchWins(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(`\bhello\b`, func(string) string { return "first" }))
	require.NoError(t, r.Register(`hello world`, func(string) string { return "second" }))

	reply, ok := r.Route("hello world")
	assert.True(t, ok)
	assert.Equal(t, "first", reply)
}

func TestRouteCaseInsensitive(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(`\bopen\s+youtube\b`, func(string) string { return "ok" }))

	_, ok := r.Route("Please OPEN YouTube now")
	assert.True(t, ok)
}

func TestRouteFallsThrough(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(`\bopen\s+youtube\b`, func(string) string { return "ok" }))

	reply, ok := r.Route("what's the weather like")
	assert.False(t, ok)
	assert.Empty(t, reply)
}

func TestRouteHandlerGetsFullText(t *testing.T) {
	r := NewRouter()
	var got string
	require.NoError(t, r.Register(`\bremind\b`, func(text string) string {
		got = text
		return ""
	}))

	r.Route("remind me to stretch")
	assert.Equal(t, "remind me to stretch", got)
}

func TestRegisterBadPattern(t *testing.T) {
	r := NewRouter()
	err := r.Register(`([`, func(string) string { return "" })
	assert.Error(t, err)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRouter()
	require.NoError(t, RegisterBuiltins(r))
	assert.Equal(t, 5, r.Len())

	reply, ok := r.Route("what can you do for me?")
	assert.True(t, ok)
	assert.Contains(t, reply, "internal commands")

	reply, ok = r.Route("play spotify music song")
	assert.True(t, ok)
	assert.Contains(t, reply, "Spotify")
}
