package kpi

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kpiboard/backend/internal/domain/unified"
)

var (
	// ErrNoGeneration indicates no rollup generation has been published yet.
	ErrNoGeneration = errors.New("kpi: no rollup generation published")
	// ErrInvalidDateRange indicates start_date is after end_date or a bound
	// could not be parsed.
	ErrInvalidDateRange = errors.New("kpi: invalid date range")
	// ErrUnknownTier indicates a tier filter value outside the closed tier set.
	ErrUnknownTier = errors.New("kpi: unknown performance tier")
	// ErrRebuildCancelled indicates the rebuild was cancelled cooperatively;
	// previously published rollups are untouched.
	ErrRebuildCancelled = errors.New("kpi: rebuild cancelled")
)

// DailySnapshotFilter bounds a daily snapshot query. Nil bounds default at the
// façade to the last Limit days ending today.
type DailySnapshotFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// RevenueFilter bounds a revenue summary query. A nil Platform means all
// platforms.
type RevenueFilter struct {
	Platform  *unified.Platform
	StartDate *time.Time
	EndDate   *time.Time
}

// ProductFilter bounds a product performance query.
type ProductFilter struct {
	Platform *unified.Platform
	Tier     *string
	Limit    int
}

// RollupRepository reads rollups for a specific published generation. All
// reads are pure; sorting contracts per operation are part of the interface.
type RollupRepository interface {
	// CurrentGeneration resolves the generation pointer. Returns
	// ErrNoGeneration before the first rebuild.
	CurrentGeneration(ctx context.Context) (uuid.UUID, error)

	// PlatformOverview returns all platforms sorted by total revenue descending.
	PlatformOverview(ctx context.Context, generationID uuid.UUID) ([]PlatformOverview, error)

	// DailySnapshots returns rows in the filter window sorted by date
	// descending, capped at filter.Limit.
	DailySnapshots(ctx context.Context, generationID uuid.UUID, filter DailySnapshotFilter) ([]DailySnapshot, error)

	// RevenueSummaries returns filtered rows sorted by date descending then
	// platform.
	RevenueSummaries(ctx context.Context, generationID uuid.UUID, filter RevenueFilter) ([]RevenueSummary, error)

	// ProductPerformance returns filtered rows sorted by revenue descending,
	// capped at filter.Limit.
	ProductPerformance(ctx context.Context, generationID uuid.UUID, filter ProductFilter) ([]ProductPerformance, error)
}

// RebuildStage is the storage surface available inside one rebuild
// transaction. Everything staged or published through it becomes visible to
// readers only when the transaction commits and the generation pointer flips.
type RebuildStage interface {
	// StageUnified inserts the unified orders and items for the new
	// generation.
	StageUnified(orders []unified.Order, items []unified.OrderItem) error

	// OverviewBases returns per-platform base aggregates with the month and
	// today windows fixed at refTime.
	OverviewBases(generationID uuid.UUID, refTime time.Time) ([]OverviewBase, error)

	// DailyBases returns per-date base aggregates, cancelled orders excluded.
	DailyBases(generationID uuid.UUID) ([]DailyBase, error)

	// RevenueBases returns per-(date, platform) base aggregates.
	RevenueBases(generationID uuid.UUID) ([]RevenueBase, error)

	// ProductBases returns per-(platform, product, name, sku) base
	// aggregates with the this-month window fixed at refTime.
	ProductBases(generationID uuid.UUID, refTime time.Time) ([]ProductBase, error)

	// PublishRollups inserts the generation row, all four rollups and flips
	// the current-generation pointer.
	PublishRollups(generation Generation, set RollupSet) error
}

// RebuildRepository owns the rebuild transaction and generation housekeeping.
type RebuildRepository interface {
	// ExecuteRebuild runs fn inside a single transaction. If fn returns an
	// error the transaction rolls back and readers keep the prior generation.
	ExecuteRebuild(ctx context.Context, fn func(stage RebuildStage) error) error

	// CleanupGenerations deletes all generations except keep, returning the
	// number of generations removed. Run after a successful publish, outside
	// the rebuild transaction.
	CleanupGenerations(ctx context.Context, keep uuid.UUID) (int64, error)
}
