// Package reporting aggregates committed sales into range statistics and a
// per-day series. Failures degrade to zero results instead of propagating.
package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cafepos/internal/cache"
	"cafepos/internal/domain"
	"cafepos/internal/store"
)

const (
	MaxChartPoints = 31
	dayLayout      = "2006-01-02"
)

type View string

const (
	ViewDaily   View = "daily"
	ViewWeekly  View = "weekly"
	ViewMonthly View = "monthly"
	ViewCustom  View = "custom"
)

type Aggregator struct {
	repo   store.Repository
	cache  cache.ReportCache
	loc    *time.Location
	ttl    time.Duration
	logger zerolog.Logger
}

func NewAggregator(repo store.Repository, reportCache cache.ReportCache, loc *time.Location, ttl time.Duration) *Aggregator {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		repo:   repo,
		cache:  reportCache,
		loc:    loc,
		ttl:    ttl,
		logger: log.With().Str("component", "reporting").Logger(),
	}
}

func (a *Aggregator) Location() *time.Location { return a.loc }

// SalesReport aggregates sales with created_at in [start, end]. The vatable
// and exempt figures are the gross buckets with VAT backed out at the
// current rate.
func (a *Aggregator) SalesReport(ctx context.Context, start time.Time, end time.Time) domain.SalesReport {
	report := domain.SalesReport{Start: start, End: end}
	key := rangeKey("sales", start, end)
	if a.cached(ctx, key, &report) {
		return report
	}

	totals, err := a.repo.SalesSummary(ctx, start, end)
	if err != nil {
		a.logger.Error().Err(err).Msg("sales summary failed")
		return report
	}
	settings, err := a.repo.GetSettings(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("settings unavailable, using defaults")
		settings = store.DefaultSettings()
	}

	divisor := 1 + settings.VatPercentage/100
	report.SalesTotals = totals
	report.VatableSales = totals.VatableGross / divisor
	report.VatExemptSales = totals.ExemptGross / divisor

	a.store(ctx, key, report)
	return report
}

// SalesChart sums final_amount per local calendar day from start, filling
// days without sales with zero. The series covers ceil(end-start) days,
// capped at MaxChartPoints.
func (a *Aggregator) SalesChart(ctx context.Context, start time.Time, end time.Time) []domain.ChartPoint {
	var points []domain.ChartPoint
	key := rangeKey("chart", start, end)
	if a.cached(ctx, key, &points) {
		return points
	}

	days := chartDays(start, end)
	totals := map[string]float64{}
	sales, err := a.repo.ListSalesBetween(ctx, start, end)
	if err != nil {
		a.logger.Error().Err(err).Msg("chart query failed")
	} else {
		for _, sale := range sales {
			totals[sale.CreatedAt.In(a.loc).Format(dayLayout)] += sale.FinalAmount
		}
	}

	points = make([]domain.ChartPoint, 0, days)
	first := start.In(a.loc)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i).Format(dayLayout)
		points = append(points, domain.ChartPoint{Date: day, Total: totals[day]})
	}

	if err == nil {
		a.store(ctx, key, points)
	}
	return points
}

func chartDays(start time.Time, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	return min(days, MaxChartPoints)
}

func (a *Aggregator) cached(ctx context.Context, key string, dest any) bool {
	if a.ttl <= 0 {
		return false
	}
	hit, err := a.cache.Get(ctx, key, dest)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("report cache read failed")
		return false
	}
	return hit
}

func (a *Aggregator) store(ctx context.Context, key string, value any) {
	if a.ttl <= 0 {
		return
	}
	if err := a.cache.Set(ctx, key, value, a.ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}

func rangeKey(kind string, start time.Time, end time.Time) string {
	return fmt.Sprintf("%s:%d:%d", kind, start.UnixMilli(), end.UnixMilli())
}

// Range resolves a named view into [start, end] in loc. Custom ranges take
// YYYY-MM-DD bounds and cover whole days.
func Range(view string, rawStart string, rawEnd string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	switch View(strings.ToLower(strings.TrimSpace(view))) {
	case "", ViewDaily:
		return startOfDay(now), endOfDay(now), nil
	case ViewWeekly:
		return startOfDay(now.AddDate(0, 0, -7)), endOfDay(now), nil
	case ViewMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return first, endOfDay(first.AddDate(0, 1, -1)), nil
	case ViewCustom:
		start, err := time.ParseInLocation(dayLayout, strings.TrimSpace(rawStart), loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start must be YYYY-MM-DD: %w", store.ErrInvalid)
		}
		end, err := time.ParseInLocation(dayLayout, strings.TrimSpace(rawEnd), loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end must be YYYY-MM-DD: %w", store.ErrInvalid)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("end is before start: %w", store.ErrInvalid)
		}
		return start, endOfDay(end), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown view %q: %w", view, store.ErrInvalid)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Millisecond), t.Location())
}
