package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// EmailTagFunc renders a tag for one order.
type EmailTagFunc func(ctx context.Context, orderID uint) (string, error)

type EmailTag struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
	render      EmailTagFunc
}

var emailTagRe = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// EmailTagRegistry expands {tag} placeholders in order emails. Unknown
// tags are left as they are.
type EmailTagRegistry struct {
	mu   sync.RWMutex
	tags map[string]EmailTag
}

func NewEmailTagRegistry() *EmailTagRegistry {
	return &EmailTagRegistry{tags: make(map[string]EmailTag)}
}

func (r *EmailTagRegistry) Register(tag, description string, fn EmailTagFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag] = EmailTag{Tag: tag, Description: description, render: fn}
}

// Tags lists the registered tags sorted by name.
func (r *EmailTagRegistry) Tags() []EmailTag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EmailTag, 0, len(r.tags))
	for _, t := range r.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func (r *EmailTagRegistry) Expand(ctx context.Context, orderID uint, body string) (string, error) {
	var firstErr error
	out := emailTagRe.ReplaceAllStringFunc(body, func(m string) string {
		name := m[1 : len(m)-1]

		r.mu.RLock()
		t, ok := r.tags[name]
		r.mu.RUnlock()
		if !ok || firstErr != nil {
			return m
		}

		v, err := t.render(ctx, orderID)
		if err != nil {
			firstErr = fmt.Errorf("failed to render email tag %q: %w", name, err)
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// RegisterCampaignEmailTags adds {campaign_info}.
func RegisterCampaignEmailTags(r *EmailTagRegistry, attribution *AttributionService) {
	r.Register("campaign_info", "Display Google Analytics Campaign info for this transaction", func(ctx context.Context, orderID uint) (string, error) {
		a, found, err := attribution.Lookup(ctx, orderID)
		if err != nil {
			return "", err
		}
		info, err := RenderCampaignInfo(a, found)
		if err != nil {
			return "", err
		}
		return "<h3>Campaign Information</h3>" + info, nil
	})
}
