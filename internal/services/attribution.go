package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/repository"
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"
)

// Query parameters read by Capture.
const (
	ParamSource   = "utm_source"
	ParamCampaign = "utm_campaign"
	ParamMedium   = "utm_medium"
	ParamTerm     = "utm_term"
	ParamContent  = "utm_content"
)

// Where a persisted record came from.
const (
	OriginCookie  = "cookie"
	OriginSession = "session"
	OriginLegacy  = "legacy"
)

type AttributionService struct {
	meta   *repository.OrderMetaRepository
	audit  *AuditService
	keys   SessionKeys
	logger *slog.Logger
}

func NewAttributionService(meta *repository.OrderMetaRepository, audit *AuditService, siteURL string, logger *slog.Logger) *AttributionService {
	return &AttributionService{
		meta:   meta,
		audit:  audit,
		keys:   NewSessionKeys(siteURL),
		logger: logger,
	}
}

// AttributionFromQuery builds a sanitized record from utm_* parameters.
func AttributionFromQuery(q url.Values) models.Attribution {
	return models.Attribution{
		Source:  utils.SanitizeText(q.Get(ParamSource)),
		Name:    utils.SanitizeText(q.Get(ParamCampaign)),
		Medium:  utils.SanitizeText(q.Get(ParamMedium)),
		Term:    utils.SanitizeText(q.Get(ParamTerm)),
		Content: utils.SanitizeText(q.Get(ParamContent)),
	}
}

// Capture stores the campaign carried by q into the visitor session. It
// only writes when source, campaign and medium are all present, in which
// case the whole session record is replaced by this touch. It reports
// whether the session was written.
func (s *AttributionService) Capture(q url.Values, store SessionStore) (models.Attribution, bool) {
	a := AttributionFromQuery(q)
	if !a.Valid() {
		return a, false
	}

	store.Set(s.keys.Key(SessionFieldSource), a.Source)
	store.Set(s.keys.Key(SessionFieldCampaign), a.Name)
	store.Set(s.keys.Key(SessionFieldMedium), a.Medium)
	setOrDelete(store, s.keys.Key(SessionFieldTerm), a.Term)
	setOrDelete(store, s.keys.Key(SessionFieldContent), a.Content)

	return a, true
}

func setOrDelete(store SessionStore, key, value string) {
	if value == "" {
		store.Delete(key)
		return
	}
	store.Set(key, value)
}

// FromSession reads the record captured earlier in this session. ok is
// false unless source, campaign and medium are all set.
func (s *AttributionService) FromSession(store SessionStore) (models.Attribution, bool) {
	get := func(field string) string {
		v, _ := store.Get(s.keys.Key(field))
		return v
	}

	a := models.Attribution{
		Source:  get(SessionFieldSource),
		Name:    get(SessionFieldCampaign),
		Medium:  get(SessionFieldMedium),
		Term:    get(SessionFieldTerm),
		Content: get(SessionFieldContent),
	}
	return a, a.Valid()
}

// Persist attaches attribution to a newly created order. A present GA
// cookie wins over the session; with neither nothing is written. Orders
// that already carry attribution are left alone. It reports whether a
// record was written.
func (s *AttributionService) Persist(ctx context.Context, orderID uint, cookie GACookie, store SessionStore, ip string) (models.Attribution, bool, error) {
	exists, err := s.meta.Exists(ctx, orderID, models.MetaKeyCampaign)
	if err != nil {
		return models.Attribution{}, false, err
	}
	if exists {
		s.logger.Debug("Order already has campaign attribution", "order_id", orderID)
		return models.Attribution{}, false, nil
	}

	// A record still in the legacy blob is existing attribution too; move it
	// to the current location instead of writing over it.
	if _, found, err := s.migrateLegacy(ctx, orderID); err != nil {
		return models.Attribution{}, false, err
	} else if found {
		s.logger.Debug("Order already has legacy campaign attribution", "order_id", orderID)
		return models.Attribution{}, false, nil
	}

	var (
		a      models.Attribution
		origin string
	)
	if cookie.Present {
		a = trimAttribution(cookie.Attribution)
		origin = OriginCookie
	} else if sa, ok := s.FromSession(store); ok {
		a = sa
		origin = OriginSession
	} else {
		return models.Attribution{}, false, nil
	}

	err = s.meta.Transaction(ctx, func(repo *repository.OrderMetaRepository) error {
		return writeAttribution(ctx, repo, orderID, a)
	})
	if err != nil {
		return models.Attribution{}, false, fmt.Errorf("failed to persist attribution for order %d: %w", orderID, err)
	}

	s.logger.Info("Campaign attribution stored", "order_id", orderID, "origin", origin, "campaign", a.Name)
	s.audit.LogAction(models.AuditActionLogCampaign, strconv.FormatUint(uint64(orderID), 10), map[string]interface{}{
		"origin":   origin,
		"campaign": a,
	}, ip)

	return a, true, nil
}

func trimAttribution(a models.Attribution) models.Attribution {
	return models.Attribution{
		Source:  strings.TrimSpace(a.Source),
		Name:    strings.TrimSpace(a.Name),
		Medium:  strings.TrimSpace(a.Medium),
		Term:    strings.TrimSpace(a.Term),
		Content: strings.TrimSpace(a.Content),
	}
}

// writeAttribution adds the composite record and, for a non-empty name,
// the campaign-name row used by reports.
func writeAttribution(ctx context.Context, repo *repository.OrderMetaRepository, orderID uint, a models.Attribution) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode attribution: %w", err)
	}
	if err := repo.Add(ctx, orderID, models.MetaKeyCampaign, string(data)); err != nil {
		return err
	}
	if a.Name == "" {
		return nil
	}
	return repo.Update(ctx, orderID, models.MetaKeyCampaignName, a.Name)
}

// Lookup returns the attribution stored for an order. Records still held
// in the legacy payment_meta blob are moved to the current location on
// first read. found is false when the order has no attribution.
func (s *AttributionService) Lookup(ctx context.Context, orderID uint) (a models.Attribution, found bool, err error) {
	value, ok, err := s.meta.Get(ctx, orderID, models.MetaKeyCampaign)
	if err != nil {
		return models.Attribution{}, false, err
	}
	if ok {
		if err := json.Unmarshal([]byte(value), &a); err == nil {
			return a, true, nil
		}
		// Unreadable current row: the legacy blob is the only usable copy.
		// It is read but not migrated, since the current row already exists.
		s.logger.Warn("Malformed campaign attribution", "order_id", orderID)
		return s.legacyRecord(ctx, orderID)
	}

	a, found, err = s.migrateLegacy(ctx, orderID)
	if err != nil && found {
		s.logger.Error("Failed to migrate legacy campaign attribution", "order_id", orderID, "error", err)
		return a, true, nil
	}
	return a, found, err
}

// MigrateLegacy moves every record still held in a payment_meta blob to
// the current location and returns how many orders were migrated.
func (s *AttributionService) MigrateLegacy(ctx context.Context) (int, error) {
	ids, err := s.meta.OrderIDsWithKey(ctx, models.MetaKeyPaymentMeta, models.MetaKeyCampaign)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return migrated, err
		}
		_, found, err := s.migrateLegacy(ctx, id)
		if err != nil {
			return migrated, err
		}
		if found {
			migrated++
		}
	}

	s.logger.Info("Legacy campaign migration finished", "candidates", len(ids), "migrated", migrated)
	return migrated, nil
}

// migrateLegacy reads the record from the order's payment_meta blob and,
// when there is one, writes it to the current location (unless already
// there) and strips it from the blob, deleting the blob once empty.
func (s *AttributionService) migrateLegacy(ctx context.Context, orderID uint) (models.Attribution, bool, error) {
	blob, ok, err := s.meta.Get(ctx, orderID, models.MetaKeyPaymentMeta)
	if err != nil || !ok {
		return models.Attribution{}, false, err
	}

	fields, a, ok := decodeLegacyBlob(blob)
	if !ok {
		return models.Attribution{}, false, nil
	}

	err = s.meta.Transaction(ctx, func(repo *repository.OrderMetaRepository) error {
		exists, err := repo.Exists(ctx, orderID, models.MetaKeyCampaign)
		if err != nil {
			return err
		}
		if !exists {
			if err := writeAttribution(ctx, repo, orderID, a); err != nil {
				return err
			}
		}

		delete(fields, models.MetaKeyCampaign)
		if len(fields) == 0 {
			return repo.Delete(ctx, orderID, models.MetaKeyPaymentMeta)
		}
		rest, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode payment meta: %w", err)
		}
		return repo.Update(ctx, orderID, models.MetaKeyPaymentMeta, string(rest))
	})
	if err != nil {
		return a, true, fmt.Errorf("failed to migrate attribution for order %d: %w", orderID, err)
	}

	s.logger.Info("Migrated legacy campaign attribution", "order_id", orderID)
	s.audit.LogAction(models.AuditActionMigrateCampaign, strconv.FormatUint(uint64(orderID), 10), map[string]interface{}{
		"origin":   OriginLegacy,
		"campaign": a,
	}, "")

	return a, true, nil
}

func (s *AttributionService) legacyRecord(ctx context.Context, orderID uint) (models.Attribution, bool, error) {
	blob, ok, err := s.meta.Get(ctx, orderID, models.MetaKeyPaymentMeta)
	if err != nil || !ok {
		return models.Attribution{}, false, err
	}
	_, a, ok := decodeLegacyBlob(blob)
	return a, ok, nil
}

// decodeLegacyBlob splits a payment_meta blob into its fields and the
// attribution it holds. ok is false when the blob is not a JSON object or
// its attribution is not a non-empty object. A record whose fields are
// all empty still counts.
func decodeLegacyBlob(blob string) (map[string]json.RawMessage, models.Attribution, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &fields); err != nil || fields == nil {
		return nil, models.Attribution{}, false
	}

	raw, ok := fields[models.MetaKeyCampaign]
	if !ok {
		return nil, models.Attribution{}, false
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil || len(present) == 0 {
		return nil, models.Attribution{}, false
	}

	var a models.Attribution
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, models.Attribution{}, false
	}
	return fields, a, true
}
