package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("s3cret-key")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-key", hash)
	assert.True(t, CheckSecret("s3cret-key", hash))
	assert.False(t, CheckSecret("wrong", hash))
	assert.False(t, CheckSecret("", hash))
	assert.False(t, CheckSecret("s3cret-key", ""))
}
