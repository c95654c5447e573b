package services

import (
	"bytes"
	"html/template"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
)

const (
	NoCampaignInfo = "No campaign information available"
	NotAvailable   = "N/A"
)

var campaignTableTmpl = template.Must(template.New("campaign").Funcs(template.FuncMap{
	"orNA": func(s string) string {
		if s == "" {
			return NotAvailable
		}
		return s
	},
}).Parse(`<table style="width: 100%; border:1px solid #eee;" border="0">
<tr><th style="background:#333; color:#fff; text-align:left; padding:10px;">Campaign Detail</th><th style="background:#333; color:#fff; text-align:left; padding:10px;">Value</th></tr>
<tr><td style="text-align:left; padding:10px;">Campaign Name</td><td style="text-align:left; padding:10px;">{{orNA .Name}}</td></tr>
<tr style="background: #f7f7f7;"><td style="text-align:left; padding:10px;">Campaign Source</td><td style="text-align:left; padding:10px;">{{orNA .Source}}</td></tr>
<tr><td style="text-align:left; padding:10px;">Campaign Medium</td><td style="text-align:left; padding:10px;">{{orNA .Medium}}</td></tr>
<tr style="background: #f7f7f7;"><td style="text-align:left; padding:10px;">Campaign Term</td><td style="text-align:left; padding:10px;">{{orNA .Term}}</td></tr>
<tr><td style="text-align:left; padding:10px;">Campaign Content</td><td style="text-align:left; padding:10px;">{{orNA .Content}}</td></tr>
</table>`))

// RenderCampaignInfo renders the order screen / email table for a record,
// or the placeholder text when the order has none.
func RenderCampaignInfo(a models.Attribution, found bool) (string, error) {
	if !found {
		return NoCampaignInfo, nil
	}

	var buf bytes.Buffer
	if err := campaignTableTmpl.Execute(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CampaignColumn is the value shown in the orders list.
func CampaignColumn(a models.Attribution, found bool) string {
	if !found || a.Name == "" {
		return NotAvailable
	}
	return a.Name
}
