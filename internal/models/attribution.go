package models

// Attribution is the campaign that brought a visitor to the store.
// Term and Content are optional; the empty string means absent.
type Attribution struct {
	Source  string `json:"source"`
	Name    string `json:"name"`
	Medium  string `json:"medium"`
	Term    string `json:"term,omitempty"`
	Content string `json:"content,omitempty"`
}

// Valid reports whether the record names a source, a campaign and a medium.
func (a Attribution) Valid() bool {
	return a.Source != "" && a.Name != "" && a.Medium != ""
}
