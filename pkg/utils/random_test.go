package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewPurchaseKey(t *testing.T) {
	key := NewPurchaseKey()
	_, err := uuid.Parse(key)
	assert.NoError(t, err)
	assert.NotEqual(t, key, NewPurchaseKey())
}

func TestShortHash(t *testing.T) {
	// md5("http://example.com") = a9b9f04336ce0181a08e774e01113b31
	assert.Equal(t, "a9b9f04336", ShortHash("http://example.com", 10))
	assert.Equal(t, "a9b9f04336ce0181a08e774e01113b31", ShortHash("http://example.com", 0))
	assert.Len(t, ShortHash("x", 64), 32)
	assert.Equal(t, ShortHash("same", 10), ShortHash("same", 10))
}
