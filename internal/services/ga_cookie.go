package services

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
)

// GACookieName is the classic Google Analytics campaign cookie.
const GACookieName = "__utmz"

// GACookie is the campaign data decoded from a __utmz cookie. Attribution
// must only be read when Present is true.
type GACookie struct {
	Present     bool
	Attribution models.Attribution
}

// ParseGACookieFromRequest decodes the __utmz cookie of r, if any.
func ParseGACookieFromRequest(r *http.Request) GACookie {
	c, err := r.Cookie(GACookieName)
	if err != nil {
		return GACookie{}
	}
	return ParseGACookie(c.Value)
}

// ParseGACookie decodes a raw __utmz value of the form
// domainHash.timestamp.sessionNumber.campaignNumber.campaignData, where
// campaignData is a |-separated list of key=value pairs. The campaign data
// may itself contain dots. A value with fewer than five segments is not
// present. Unknown or missing keys leave fields empty.
func ParseGACookie(raw string) GACookie {
	parts := strings.SplitN(raw, ".", 5)
	if len(parts) < 5 {
		return GACookie{}
	}

	values := parseCampaignData(parts[4])

	a := models.Attribution{
		Source:  values["utmcsr"],
		Name:    values["utmccn"],
		Medium:  values["utmcmd"],
		Term:    values["utmctr"],
		Content: values["utmcct"],
	}

	// AdWords auto-tagging
	if _, ok := values["utmgclid"]; ok {
		a.Source = "google"
		a.Name = ""
		a.Medium = "cpc"
		a.Content = ""
	}

	return GACookie{Present: true, Attribution: a}
}

// parseCampaignData decodes "k=v|k=v" as a query string with | standing in
// for &. Undecodable keys are skipped and for repeated keys the last value wins.
func parseCampaignData(data string) map[string]string {
	out := make(map[string]string)
	pairs := strings.FieldsFunc(data, func(r rune) bool { return r == '|' || r == '&' })
	for _, pair := range pairs {
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			value = v
		}
		out[key] = value
	}
	return out
}
