package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseGACookie(t *testing.T) {
	t.Run("Campaign Fields", func(t *testing.T) {
		c := ParseGACookie("12979384.1294887021.1.1.utmcsr=newsletter|utmccn=spring|utmcmd=email|utmctr=shoes|utmcct=banner")

		assert.True(t, c.Present)
		assert.Equal(t, models.Attribution{
			Source:  "newsletter",
			Name:    "spring",
			Medium:  "email",
			Term:    "shoes",
			Content: "banner",
		}, c.Attribution)
	})

	t.Run("Key Order Does Not Matter", func(t *testing.T) {
		a := ParseGACookie("1.2.3.4.utmcct=banner|utmcmd=email|utmctr=shoes|utmccn=spring|utmcsr=newsletter")
		b := ParseGACookie("1.2.3.4.utmcsr=newsletter|utmccn=spring|utmcmd=email|utmctr=shoes|utmcct=banner")
		assert.Equal(t, b.Attribution, a.Attribution)
	})

	t.Run("Dots In Campaign Data", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmcsr=news.example.com|utmccn=(referral)|utmcmd=referral|utmcct=/blog/post.html")

		assert.True(t, c.Present)
		assert.Equal(t, "news.example.com", c.Attribution.Source)
		assert.Equal(t, "(referral)", c.Attribution.Name)
		assert.Equal(t, "/blog/post.html", c.Attribution.Content)
	})

	t.Run("Missing Keys Are Empty", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmcsr=(direct)|utmccn=(direct)|utmcmd=(none)")

		assert.True(t, c.Present)
		assert.Equal(t, "(direct)", c.Attribution.Source)
		assert.Empty(t, c.Attribution.Term)
		assert.Empty(t, c.Attribution.Content)
	})

	t.Run("AdWords Click Overrides Campaign", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmgclid=123|utmcsr=bing|utmccn=spring|utmcmd=organic|utmctr=running shoes|utmcct=ad1")

		assert.True(t, c.Present)
		assert.Equal(t, models.Attribution{
			Source: "google",
			Name:   "",
			Medium: "cpc",
			Term:   "running shoes",
		}, c.Attribution)
	})

	t.Run("AdWords Click Without Term", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmgclid=abc")
		assert.Equal(t, "google", c.Attribution.Source)
		assert.Equal(t, "cpc", c.Attribution.Medium)
		assert.Empty(t, c.Attribution.Term)
	})

	t.Run("Encoded Values", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmcsr=google|utmccn=black+friday|utmcmd=email|utmctr=50%25%20off")
		assert.Equal(t, "black friday", c.Attribution.Name)
		assert.Equal(t, "50% off", c.Attribution.Term)
	})

	t.Run("Last Duplicate Wins", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.utmcsr=first|utmcsr=second")
		assert.Equal(t, "second", c.Attribution.Source)
	})

	t.Run("Malformed Is Not Present", func(t *testing.T) {
		for _, raw := range []string{"", "garbage", "1.2.3.utmcsr=google"} {
			c := ParseGACookie(raw)
			assert.False(t, c.Present, raw)
			assert.Equal(t, models.Attribution{}, c.Attribution)
		}
	})

	t.Run("Five Segments Without Data", func(t *testing.T) {
		c := ParseGACookie("1.2.3.4.")
		assert.True(t, c.Present)
		assert.Equal(t, models.Attribution{}, c.Attribution)
	})
}

func TestParseGACookieFromRequest(t *testing.T) {
	t.Run("No Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.False(t, ParseGACookieFromRequest(req).Present)
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: GACookieName, Value: "1.2.3.4.utmcsr=google|utmccn=spring|utmcmd=email"})

		c := ParseGACookieFromRequest(req)
		assert.True(t, c.Present)
		assert.Equal(t, "spring", c.Attribution.Name)
	})
}
