package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCaptureAttribution(t *testing.T) {
	h, db := setupTestHandler(t)
	r := setupTestRouter(h)

	t.Run("Complete Campaign Is Stored In Session", func(t *testing.T) {
		w := doRequest(r, "GET", "/health?utm_source=google&utm_campaign=spring&utm_medium=email&utm_term=shoes", nil, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		cookies := sessionCookie(w)
		assert.NotEmpty(t, cookies)

		w = doRequest(r, "GET", "/api/v1/attribution", nil, cookies, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Campaign models.Attribution `json:"campaign"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, models.Attribution{Source: "google", Name: "spring", Medium: "email", Term: "shoes"}, resp.Campaign)
	})

	t.Run("Later Touch Replaces Earlier One", func(t *testing.T) {
		w := doRequest(r, "GET", "/health?utm_source=google&utm_campaign=spring&utm_medium=email&utm_term=shoes", nil, nil, nil)
		first := sessionCookie(w)

		w = doRequest(r, "GET", "/health?utm_source=bing&utm_campaign=summer&utm_medium=cpc", nil, first, nil)
		second := sessionCookie(w)
		assert.NotEmpty(t, second)

		w = doRequest(r, "GET", "/api/v1/attribution", nil, second, nil)
		var resp struct {
			Campaign models.Attribution `json:"campaign"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, models.Attribution{Source: "bing", Name: "summer", Medium: "cpc"}, resp.Campaign)
	})

	t.Run("Incomplete Campaign Is Ignored", func(t *testing.T) {
		w := doRequest(r, "GET", "/health?utm_source=google&utm_campaign=spring", nil, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, sessionCookie(w))

		w = doRequest(r, "GET", "/api/v1/attribution", nil, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "No campaign information available")
	})

	t.Run("Touch Is Recorded", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go h.touchService.Start(ctx)

		doRequest(r, "GET", "/health?utm_source=newsletter&utm_campaign=touch&utm_medium=email", nil, nil, nil)

		assert.Eventually(t, func() bool {
			var count int64
			db.Model(&models.Touch{}).Where("utm_campaign = ?", "touch").Count(&count)
			return count == 1
		}, 2*time.Second, 20*time.Millisecond)
	})
}
