package services

import (
	"testing"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderCampaignInfo(t *testing.T) {
	t.Run("Placeholder", func(t *testing.T) {
		out, err := RenderCampaignInfo(models.Attribution{}, false)
		assert.NoError(t, err)
		assert.Equal(t, NoCampaignInfo, out)
	})

	t.Run("Table With N/A", func(t *testing.T) {
		out, err := RenderCampaignInfo(models.Attribution{Source: "google", Name: "spring", Medium: "email"}, true)
		assert.NoError(t, err)
		assert.Contains(t, out, "<table")
		assert.Contains(t, out, ">spring</td>")
		assert.Contains(t, out, ">google</td>")
		assert.Contains(t, out, ">N/A</td>")
	})

	t.Run("Escapes Values", func(t *testing.T) {
		out, err := RenderCampaignInfo(models.Attribution{Source: "<script>", Name: "a&b", Medium: "x"}, true)
		assert.NoError(t, err)
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "&lt;script&gt;")
		assert.Contains(t, out, "a&amp;b")
	})
}

func TestCampaignColumn(t *testing.T) {
	assert.Equal(t, "spring", CampaignColumn(models.Attribution{Name: "spring"}, true))
	assert.Equal(t, NotAvailable, CampaignColumn(models.Attribution{Source: "google"}, true))
	assert.Equal(t, NotAvailable, CampaignColumn(models.Attribution{}, false))
}
