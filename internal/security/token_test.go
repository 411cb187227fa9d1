package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenEntropy(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestTokensEqual(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, TokensEqual(token, token))
	assert.False(t, TokensEqual(token, token[:len(token)-1]))
	assert.False(t, TokensEqual(token, ""))
	assert.False(t, TokensEqual("", token))
	assert.False(t, TokensEqual("", ""))
}
