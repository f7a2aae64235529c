package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysAndKeepsHTML(t *testing.T) {
	v := Object{
		"b": Int(2),
		"a": Array{String("<x&y>"), Bool(true)},
	}
	out, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":["<x&y>",true],"b":2}`, string(out))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FF5E in UTF-16 but after it in UTF-8.
	v := Object{"\uff5e": Int(1), "\U0001F600": Int(2)}
	out, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff5e\":1}", string(out))
}

func TestMarshalCanonical_Separators(t *testing.T) {
	out, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(out))

	out, err = MarshalCanonical(String(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(out), "escaped backslash stays text")
}

func TestMarshalCanonical_RejectsNil(t *testing.T) {
	_, err := MarshalCanonical(Object{"a": nil})
	assert.Error(t, err)
}

func TestDigest_DomainSeparated(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, Digest(DomainSignature, data), Digest(DomainStructure, data))
	assert.Equal(t, Digest64(DomainSignature, data), Digest64(DomainSignature, data))
	assert.Len(t, DigestHex(DomainStructure, data), 64)
}
