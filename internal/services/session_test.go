package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionKeys(t *testing.T) {
	keys := NewSessionKeys("http://example.com")

	assert.Equal(t, "edd_ct_a9b9f04336_source_id", keys.Key(SessionFieldSource))
	assert.Equal(t, "edd_ct_a9b9f04336_campaign_id", keys.Key(SessionFieldCampaign))

	other := NewSessionKeys("https://other.example.com")
	assert.NotEqual(t, keys.Key(SessionFieldSource), other.Key(SessionFieldSource))
}

func TestMapSessionStore(t *testing.T) {
	store := MapSessionStore{}

	_, ok := store.Get("a")
	assert.False(t, ok)

	store.Set("a", "1")
	v, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	store.Delete("a")
	_, ok = store.Get("a")
	assert.False(t, ok)
}
