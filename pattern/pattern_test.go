package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLiterals(t *testing.T) {
	ok, err := Match("/foo/bar", "/foo/bar")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match("/foo/bar", "/foo/baz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchIdempotence(t *testing.T) {
	for _, name := range []string{"channel1", "amp", "osc-rt", "abc123"} {
		ok, err := Match(name, name)
		require.NoError(t, err)
		assert.True(t, ok, "name %q should match itself", name)
	}
}

func TestMatchSpecScenario(t *testing.T) {
	const p = "/foo/b?r/*"
	for _, tt := range []struct {
		name  string
		match bool
	}{
		{"/foo/bar/x", true},
		{"/foo/bor/xyz", true},
		{"/foo/br/x", false},
	} {
		ok, err := Match(tt.name, p)
		require.NoError(t, err)
		assert.Equal(t, tt.match, ok, "name=%q pattern=%q", tt.name, p)
	}
}

func TestMatchWildcardStar(t *testing.T) {
	ok, _ := Match("abcdef", "a*f")
	assert.True(t, ok)
	ok, _ = Match("af", "a*f")
	assert.True(t, ok)
	ok, _ = Match("abc", "a*f")
	assert.False(t, ok)
}

func TestMatchQuestionMark(t *testing.T) {
	ok, _ := Match("ab", "a?")
	assert.True(t, ok)
	ok, _ = Match("abc", "a?")
	assert.False(t, ok)
	ok, _ = Match("a", "a?")
	assert.False(t, ok)
}

func TestMatchCharacterClass(t *testing.T) {
	ok, _ := Match("b", "[abc]")
	assert.True(t, ok)
	ok, _ = Match("d", "[abc]")
	assert.False(t, ok)

	ok, _ = Match("m", "[a-z]")
	assert.True(t, ok)
	ok, _ = Match("M", "[a-z]")
	assert.False(t, ok)

	ok, _ = Match("d", "[!abc]")
	assert.True(t, ok)
	ok, _ = Match("a", "[!abc]")
	assert.False(t, ok)
}

func TestMatchAlternatives(t *testing.T) {
	ok, _ := Match("foo", "{foo,bar}")
	assert.True(t, ok)
	ok, _ = Match("bar", "{foo,bar}")
	assert.True(t, ok)
	ok, _ = Match("baz", "{foo,bar}")
	assert.False(t, ok)
}

func TestContainsMetasymbolsAndReserved(t *testing.T) {
	assert.True(t, ContainsPatternMetasymbols("a*b"))
	assert.False(t, ContainsPatternMetasymbols("abc"))

	assert.True(t, ContainsReservedSymbols("a/b"))
	assert.True(t, ContainsReservedSymbols("a,b"))
	assert.True(t, ContainsReservedSymbols("a b"))
	assert.False(t, ContainsReservedSymbols("a-b"))
}

func TestSplit(t *testing.T) {
	parts, err := Split("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, parts)

	_, err = Split("a/b")
	assert.Error(t, err)
}

func TestNestedClassRejected(t *testing.T) {
	_, err := Match("x", "[a[b]c]")
	assert.Error(t, err)
}
