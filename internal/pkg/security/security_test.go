package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash := HashPassword("secret")
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret", hash)

	assert.NoError(t, CheckPassword(hash, "secret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	first := HashPassword("secret")
	second := HashPassword("secret")
	assert.NotEqual(t, first, second)
}
