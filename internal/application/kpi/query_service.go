package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kpiboard/backend/internal/domain/kpi"
	"github.com/kpiboard/backend/internal/domain/unified"
)

// Query defaults, matching the dashboard the rollups were built for.
const (
	DefaultDailyLimit   = 30
	DefaultRevenueDays  = 30
	DefaultProductLimit = 50
	recentDaysLimit     = 7
)

// DailySnapshotsQuery filters the daily snapshot read. Omitted bounds default
// to the last Limit days ending today.
type DailySnapshotsQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// RevenueQuery filters the revenue summary read. An empty or unrecognized
// Platform applies no platform filter.
type RevenueQuery struct {
	Platform  string
	StartDate *time.Time
	EndDate   *time.Time
}

// ProductQuery filters the product performance read. An unrecognized Tier is
// rejected; an unrecognized Platform applies no filter.
type ProductQuery struct {
	Platform string
	Tier     string
	Limit    int
}

// DashboardSummary is the cross-platform headline view: platform overview
// totals summed across platforms with growth recomputed zero-safe, plus the
// last week of daily snapshots.
type DashboardSummary struct {
	TotalRevenueUSD     decimal.Decimal `json:"total_revenue_usd"`
	TotalOrders         int64           `json:"total_orders"`
	AvgOrderValueUSD    decimal.Decimal `json:"avg_order_value_usd"`
	RevenueThisMonthUSD decimal.Decimal `json:"revenue_this_month_usd"`
	RevenueLastMonthUSD decimal.Decimal `json:"revenue_last_month_usd"`
	RevenueGrowthPct    decimal.Decimal `json:"revenue_growth_pct"`
	OrdersThisMonth     int64           `json:"orders_this_month"`
	OrdersLastMonth     int64           `json:"orders_last_month"`
	OrdersGrowthPct     decimal.Decimal `json:"orders_growth_pct"`

	Platforms  []kpi.PlatformOverview `json:"platforms"`
	RecentDays []kpi.DailySnapshot    `json:"recent_days"`
}

// QueryService is the read-only façade over the current rollup generation.
// Every call resolves the generation pointer first, so readers always observe
// one complete generation, never a mix.
type QueryService struct {
	repo   kpi.RollupRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewQueryService creates a new QueryService.
func NewQueryService(repo kpi.RollupRepository, logger *zap.Logger) *QueryService {
	return &QueryService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// PlatformOverview returns all platforms sorted by total revenue descending.
func (s *QueryService) PlatformOverview(ctx context.Context) ([]kpi.PlatformOverview, error) {
	generationID, err := s.repo.CurrentGeneration(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.PlatformOverview(ctx, generationID)
}

// DailySnapshots returns snapshots in the query window, newest first.
func (s *QueryService) DailySnapshots(ctx context.Context, q DailySnapshotsQuery) ([]kpi.DailySnapshot, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	start, end, err := s.resolveWindow(q.StartDate, q.EndDate, limit)
	if err != nil {
		return nil, err
	}

	generationID, err := s.repo.CurrentGeneration(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.DailySnapshots(ctx, generationID, kpi.DailySnapshotFilter{
		StartDate: &start,
		EndDate:   &end,
		Limit:     limit,
	})
}

// RevenueByPlatform returns revenue summaries in the query window sorted by
// date descending then platform.
func (s *QueryService) RevenueByPlatform(ctx context.Context, q RevenueQuery) ([]kpi.RevenueSummary, error) {
	start, end, err := s.resolveWindow(q.StartDate, q.EndDate, DefaultRevenueDays)
	if err != nil {
		return nil, err
	}

	generationID, err := s.repo.CurrentGeneration(ctx)
	if err != nil {
		return nil, err
	}
	filter := kpi.RevenueFilter{StartDate: &start, EndDate: &end}
	if p := unified.Platform(q.Platform); q.Platform != "" && p.IsValid() {
		filter.Platform = &p
	}
	return s.repo.RevenueSummaries(ctx, generationID, filter)
}

// ProductPerformance returns products sorted by revenue descending. A tier
// outside the closed tier set is a caller error; an unrecognized platform
// falls back to no platform filter.
func (s *QueryService) ProductPerformance(ctx context.Context, q ProductQuery) ([]kpi.ProductPerformance, error) {
	if q.Tier != "" && !kpi.IsValidTier(q.Tier) {
		return nil, fmt.Errorf("%w: %q", kpi.ErrUnknownTier, q.Tier)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultProductLimit
	}

	generationID, err := s.repo.CurrentGeneration(ctx)
	if err != nil {
		return nil, err
	}
	filter := kpi.ProductFilter{Limit: limit}
	if p := unified.Platform(q.Platform); q.Platform != "" && p.IsValid() {
		filter.Platform = &p
	}
	if q.Tier != "" {
		tier := q.Tier
		filter.Tier = &tier
	}
	return s.repo.ProductPerformance(ctx, generationID, filter)
}

// DashboardSummary sums the platform overview across platforms and recomputes
// month-over-month growth with the same zero-safe rule the engine uses.
func (s *QueryService) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	generationID, err := s.repo.CurrentGeneration(ctx)
	if err != nil {
		return nil, err
	}

	platforms, err := s.repo.PlatformOverview(ctx, generationID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	weekAgo := today.AddDate(0, 0, -recentDaysLimit)
	recent, err := s.repo.DailySnapshots(ctx, generationID, kpi.DailySnapshotFilter{
		StartDate: &weekAgo,
		EndDate:   &today,
		Limit:     recentDaysLimit,
	})
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		Platforms:  platforms,
		RecentDays: recent,
	}
	for _, p := range platforms {
		summary.TotalRevenueUSD = summary.TotalRevenueUSD.Add(p.TotalRevenueUSD)
		summary.TotalOrders += p.TotalOrders
		summary.RevenueThisMonthUSD = summary.RevenueThisMonthUSD.Add(p.RevenueThisMonthUSD)
		summary.RevenueLastMonthUSD = summary.RevenueLastMonthUSD.Add(p.RevenueLastMonthUSD)
		summary.OrdersThisMonth += p.OrdersThisMonth
		summary.OrdersLastMonth += p.OrdersLastMonth
	}
	summary.TotalRevenueUSD = summary.TotalRevenueUSD.Round(2)
	summary.RevenueGrowthPct = kpi.GrowthPct(summary.RevenueThisMonthUSD, summary.RevenueLastMonthUSD)
	summary.OrdersGrowthPct = kpi.GrowthPct(
		decimal.NewFromInt(summary.OrdersThisMonth),
		decimal.NewFromInt(summary.OrdersLastMonth),
	)
	if summary.TotalOrders > 0 {
		summary.AvgOrderValueUSD = summary.TotalRevenueUSD.
			Div(decimal.NewFromInt(summary.TotalOrders)).Round(2)
	}
	return summary, nil
}

// resolveWindow validates the explicit bounds and fills omitted ones with the
// default window of days ending today.
func (s *QueryService) resolveWindow(start, end *time.Time, days int) (time.Time, time.Time, error) {
	resolvedEnd := s.today()
	if end != nil {
		resolvedEnd = dateOnly(*end)
	}
	resolvedStart := resolvedEnd.AddDate(0, 0, -days)
	if start != nil {
		resolvedStart = dateOnly(*start)
	}
	if resolvedStart.After(resolvedEnd) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s after %s",
			kpi.ErrInvalidDateRange,
			resolvedStart.Format("2006-01-02"),
			resolvedEnd.Format("2006-01-02"))
	}
	return resolvedStart, resolvedEnd, nil
}

func (s *QueryService) today() time.Time {
	return dateOnly(s.now().UTC())
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
