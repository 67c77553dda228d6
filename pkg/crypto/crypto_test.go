package crypto

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestGenerateRandomHex(t *testing.T) {
	upperHex := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := GenerateRandomHex(4)
		require.NoError(t, err)
		assert.Regexp(t, upperHex, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 90)
}
