package services

import (
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"
)

// SessionStore is a per-visitor string key/value store.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Session field names, in the order they are written.
const (
	SessionFieldSource   = "source"
	SessionFieldCampaign = "campaign"
	SessionFieldMedium   = "medium"
	SessionFieldTerm     = "term"
	SessionFieldContent  = "content"
)

// SessionKeys builds the install-scoped session keys for one site. Keys
// look like edd_ct_{first 10 chars of md5(siteURL)}_{field}_id.
type SessionKeys struct {
	prefix string
}

func NewSessionKeys(siteURL string) SessionKeys {
	return SessionKeys{prefix: "edd_ct_" + utils.ShortHash(siteURL, 10) + "_"}
}

func (k SessionKeys) Key(field string) string {
	return k.prefix + field + "_id"
}

// MapSessionStore is an in-memory SessionStore.
type MapSessionStore map[string]string

func (m MapSessionStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapSessionStore) Set(key, value string) {
	m[key] = value
}

func (m MapSessionStore) Delete(key string) {
	delete(m, key)
}
