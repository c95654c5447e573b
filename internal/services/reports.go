package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"
	"github.com/easydigitaldownloads/edd-campaign-tracker/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type ReportInterval string

const (
	IntervalHour  ReportInterval = "hour"
	IntervalDay   ReportInterval = "day"
	IntervalMonth ReportInterval = "month"
)

const (
	reportCachePrefix = "eddct_report:"
	maxChartBuckets   = 5000
	defaultReportSpan = 30 * 24 * time.Hour
)

// Orders with these statuses count toward campaign reports.
var reportStatuses = []string{models.OrderStatusComplete, models.OrderStatusRevoked}

var ErrInvalidRange = errors.New("invalid report date range")

type ReportFilter struct {
	Campaign     string         `json:"campaign"` // Empty or "all" means every campaign
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	Interval     ReportInterval `json:"interval"`
	ExcludeTaxes bool           `json:"exclude_taxes"`
}

// Normalize fills defaults: the last 30 days, UTC times, and an interval
// derived from the range when none is given. A default end is the last
// second of the current hour so repeated requests share a cache key.
func (f ReportFilter) Normalize(now time.Time) (ReportFilter, error) {
	if f.Campaign == "all" {
		f.Campaign = ""
	}
	if f.End.IsZero() {
		f.End = now.UTC().Truncate(time.Hour).Add(time.Hour - time.Second)
	}
	if f.Start.IsZero() {
		f.Start = f.End.Add(time.Second - defaultReportSpan)
	}
	f.Start = f.Start.UTC()
	f.End = f.End.UTC()

	if f.End.Before(f.Start) {
		return f, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, f.End.Format(time.RFC3339), f.Start.Format(time.RFC3339))
	}

	switch f.Interval {
	case IntervalHour, IntervalDay, IntervalMonth:
	case "":
		span := f.End.Sub(f.Start)
		switch {
		case span <= 48*time.Hour:
			f.Interval = IntervalHour
		case span <= 90*24*time.Hour:
			f.Interval = IntervalDay
		default:
			f.Interval = IntervalMonth
		}
	default:
		return f, fmt.Errorf("%w: unknown interval %q", ErrInvalidRange, f.Interval)
	}

	return f, nil
}

// ChartPoint is [unix seconds, value].
type ChartPoint [2]float64

type EarningsChart struct {
	Interval ReportInterval `json:"interval"`
	Number   []ChartPoint   `json:"number"`
	Amount   []ChartPoint   `json:"amount"`
}

// ReportService aggregates campaign earnings and sales. Results are cached
// in redis for ttl when a client is configured.
type ReportService struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewReportService(db *gorm.DB, rdb *redis.Client, logger *slog.Logger, ttl time.Duration) *ReportService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportService{
		db:     db,
		rdb:    rdb,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Campaigns lists the distinct campaign names of complete or revoked orders.
func (s *ReportService) Campaigns(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Table("order_meta AS om").
		Joins("LEFT JOIN orders AS o ON o.id = om.order_id").
		Where("om.meta_key = ?", models.MetaKeyCampaignName).
		Where("o.status IN ?", reportStatuses).
		Where("om.meta_value <> ''").
		Distinct().
		Pluck("om.meta_value", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Earnings sums order totals (net of tax when ExcludeTaxes is set).
func (s *ReportService) Earnings(ctx context.Context, f ReportFilter) (float64, error) {
	f, err := f.Normalize(s.now())
	if err != nil {
		return 0, err
	}

	return cachedReport(ctx, s, "earnings", f, func() (float64, error) {
		var total float64
		row := s.ordersQuery(ctx, f).
			Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", amountColumn(f))).
			Row()
		if err := row.Scan(&total); err != nil {
			return 0, fmt.Errorf("failed to sum campaign earnings: %w", err)
		}
		return math.Round(total*100) / 100, nil
	})
}

// Sales counts orders attributed to a campaign.
func (s *ReportService) Sales(ctx context.Context, f ReportFilter) (int64, error) {
	f, err := f.Normalize(s.now())
	if err != nil {
		return 0, err
	}

	return cachedReport(ctx, s, "sales", f, func() (int64, error) {
		var count int64
		if err := s.ordersQuery(ctx, f).Select("COUNT(o.id)").Row().Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to count campaign sales: %w", err)
		}
		return count, nil
	})
}

// EarningsOverTime buckets sales and earnings by the filter's interval.
// Every bucket between Start and End is present.
func (s *ReportService) EarningsOverTime(ctx context.Context, f ReportFilter) (EarningsChart, error) {
	f, err := f.Normalize(s.now())
	if err != nil {
		return EarningsChart{}, err
	}

	return cachedReport(ctx, s, "earnings_chart", f, func() (EarningsChart, error) {
		buckets, err := chartBuckets(f)
		if err != nil {
			return EarningsChart{}, err
		}

		var rows []struct {
			Amount      float64
			DateCreated time.Time
		}
		err = s.ordersQuery(ctx, f).
			Select(fmt.Sprintf("%s AS amount, o.date_created AS date_created", amountColumn(f))).
			Scan(&rows).Error
		if err != nil {
			return EarningsChart{}, fmt.Errorf("failed to load campaign orders: %w", err)
		}

		index := make(map[int64]int, len(buckets))
		chart := EarningsChart{
			Interval: f.Interval,
			Number:   make([]ChartPoint, len(buckets)),
			Amount:   make([]ChartPoint, len(buckets)),
		}
		for i, b := range buckets {
			ts := b.Unix()
			index[ts] = i
			chart.Number[i] = ChartPoint{float64(ts), 0}
			chart.Amount[i] = ChartPoint{float64(ts), 0}
		}

		for _, r := range rows {
			i, ok := index[truncateTo(r.DateCreated.UTC(), f.Interval).Unix()]
			if !ok {
				continue
			}
			chart.Number[i][1]++
			chart.Amount[i][1] += math.Abs(r.Amount)
		}
		for i := range chart.Amount {
			chart.Amount[i][1] = math.Round(chart.Amount[i][1]*100) / 100
		}

		return chart, nil
	})
}

func (s *ReportService) ordersQuery(ctx context.Context, f ReportFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Table("orders AS o").
		Joins("INNER JOIN order_meta AS om ON om.order_id = o.id").
		Where("o.type = ?", models.OrderTypeSale).
		Where("o.status IN ?", reportStatuses).
		Where("o.date_created >= ? AND o.date_created <= ?", f.Start, f.End).
		Where("om.meta_key = ?", models.MetaKeyCampaignName)
	if f.Campaign != "" {
		q = q.Where("om.meta_value = ?", f.Campaign)
	}
	return q
}

func amountColumn(f ReportFilter) string {
	if f.ExcludeTaxes {
		return "o.total - o.tax"
	}
	return "o.total"
}

func truncateTo(t time.Time, interval ReportInterval) time.Time {
	switch interval {
	case IntervalHour:
		return t.Truncate(time.Hour)
	case IntervalDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
}

func chartBuckets(f ReportFilter) ([]time.Time, error) {
	var buckets []time.Time
	for b := truncateTo(f.Start, f.Interval); !b.After(f.End); {
		buckets = append(buckets, b)
		if len(buckets) > maxChartBuckets {
			return nil, fmt.Errorf("%w: more than %d %s buckets", ErrInvalidRange, maxChartBuckets, f.Interval)
		}
		switch f.Interval {
		case IntervalHour:
			b = b.Add(time.Hour)
		case IntervalDay:
			b = b.AddDate(0, 0, 1)
		default:
			b = b.AddDate(0, 1, 0)
		}
	}
	return buckets, nil
}

func (s *ReportService) cacheKey(kind string, f ReportFilter) string {
	data, _ := json.Marshal(f)
	return reportCachePrefix + utils.ShortHash(kind+":"+string(data), 0)
}

// cachedReport returns the cached value for kind and f, computing and
// storing it on a miss. Cache failures only cost a recomputation.
func cachedReport[T any](ctx context.Context, s *ReportService, kind string, f ReportFilter, compute func() (T, error)) (T, error) {
	if s.rdb == nil {
		return compute()
	}

	key := s.cacheKey(kind, f)
	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var v T
		if err := json.Unmarshal([]byte(val), &v); err == nil {
			return v, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Report cache read failed", "kind", kind, "error", err)
	}

	v, err := compute()
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err == nil {
		if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warn("Report cache write failed", "kind", kind, "error", err)
		}
	}
	return v, nil
}
