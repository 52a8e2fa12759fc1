package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kpiboard/backend/internal/domain/kpi"
	"github.com/kpiboard/backend/internal/domain/unified"
)

const insertBatchSize = 500

// GormRollupRepository implements both kpi.RollupRepository and
// kpi.RebuildRepository. Reads always scope to an explicit generation id;
// the rebuild side stages a new generation and flips the pointer in one
// transaction.
type GormRollupRepository struct {
	db *gorm.DB
}

// NewGormRollupRepository creates a new GormRollupRepository
func NewGormRollupRepository(db *gorm.DB) *GormRollupRepository {
	return &GormRollupRepository{db: db}
}

// CurrentGeneration resolves the single-row generation pointer.
func (r *GormRollupRepository) CurrentGeneration(ctx context.Context) (uuid.UUID, error) {
	var state kpi.State
	err := r.db.WithContext(ctx).First(&state, "id = ?", kpi.StateRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, kpi.ErrNoGeneration
	}
	if err != nil {
		return uuid.Nil, err
	}
	return state.CurrentGenerationID, nil
}

// PlatformOverview returns the per-platform rollup sorted by revenue descending.
func (r *GormRollupRepository) PlatformOverview(ctx context.Context, generationID uuid.UUID) ([]kpi.PlatformOverview, error) {
	var rows []kpi.PlatformOverview
	err := r.db.WithContext(ctx).
		Where("generation_id = ?", generationID).
		Order("total_revenue_usd DESC").
		Find(&rows).Error
	return rows, err
}

// DailySnapshots returns snapshot rows in the filter window, newest first.
func (r *GormRollupRepository) DailySnapshots(ctx context.Context, generationID uuid.UUID, filter kpi.DailySnapshotFilter) ([]kpi.DailySnapshot, error) {
	query := r.db.WithContext(ctx).
		Where("generation_id = ?", generationID)
	if filter.StartDate != nil {
		query = query.Where("order_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("order_date <= ?", *filter.EndDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []kpi.DailySnapshot
	err := query.Order("order_date DESC").Find(&rows).Error
	return rows, err
}

// RevenueSummaries returns filtered rows sorted by date descending then platform.
func (r *GormRollupRepository) RevenueSummaries(ctx context.Context, generationID uuid.UUID, filter kpi.RevenueFilter) ([]kpi.RevenueSummary, error) {
	query := r.db.WithContext(ctx).
		Where("generation_id = ?", generationID)
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.StartDate != nil {
		query = query.Where("order_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("order_date <= ?", *filter.EndDate)
	}

	var rows []kpi.RevenueSummary
	err := query.Order("order_date DESC, platform ASC").Find(&rows).Error
	return rows, err
}

// ProductPerformance returns filtered rows sorted by revenue descending.
func (r *GormRollupRepository) ProductPerformance(ctx context.Context, generationID uuid.UUID, filter kpi.ProductFilter) ([]kpi.ProductPerformance, error) {
	query := r.db.WithContext(ctx).
		Where("generation_id = ?", generationID)
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Tier != nil {
		query = query.Where("performance_tier = ?", *filter.Tier)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []kpi.ProductPerformance
	err := query.Order("total_revenue_usd DESC, revenue_rank ASC").Find(&rows).Error
	return rows, err
}

// ExecuteRebuild runs fn inside a single transaction through a stage bound to
// that transaction.
func (r *GormRollupRepository) ExecuteRebuild(ctx context.Context, fn func(stage kpi.RebuildStage) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&rebuildStage{tx: tx})
	})
}

// CleanupGenerations removes every generation except keep, including its
// unified and rollup rows. Runs in its own transaction, after publish.
func (r *GormRollupRepository) CleanupGenerations(ctx context.Context, keep uuid.UUID) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		targets := []interface{}{
			&unified.OrderItem{},
			&unified.Order{},
			&kpi.PlatformOverview{},
			&kpi.DailySnapshot{},
			&kpi.RevenueSummary{},
			&kpi.ProductPerformance{},
		}
		for _, model := range targets {
			if err := tx.Where("generation_id <> ?", keep).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id <> ?", keep).Delete(&kpi.Generation{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

// rebuildStage implements kpi.RebuildStage against one transaction.
type rebuildStage struct {
	tx *gorm.DB
}

// StageUnified inserts the unified relations for the new generation.
func (s *rebuildStage) StageUnified(orders []unified.Order, items []unified.OrderItem) error {
	if len(orders) > 0 {
		if err := s.tx.CreateInBatches(orders, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(items) > 0 {
		if err := s.tx.CreateInBatches(items, insertBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

// OverviewBases aggregates per-platform order figures with the calendar
// windows fixed at refTime, then merges in the item counts from a second
// query so the item join cannot multiply order rows.
func (s *rebuildStage) OverviewBases(generationID uuid.UUID, refTime time.Time) ([]kpi.OverviewBase, error) {
	thisYear, thisMonth, lastYear, lastMonth, today := calendarWindows(refTime)

	var bases []kpi.OverviewBase
	err := s.tx.Table("unified_orders").
		Select(`
			platform,
			COUNT(*) AS total_orders,
			SUM(CASE WHEN NOT is_cancelled THEN 1 ELSE 0 END) AS completed_orders,
			SUM(CASE WHEN is_cancelled THEN 1 ELSE 0 END) AS cancelled_orders,
			SUM(CASE WHEN is_paid THEN 1 ELSE 0 END) AS paid_orders,
			SUM(CASE WHEN is_fulfilled THEN 1 ELSE 0 END) AS fulfilled_orders,
			COALESCE(SUM(CASE WHEN NOT is_cancelled THEN total_amount_usd ELSE 0 END), 0) AS total_revenue_usd,
			COALESCE(SUM(CASE WHEN NOT is_cancelled AND order_year = ? AND order_month = ? THEN total_amount_usd ELSE 0 END), 0) AS revenue_this_month_usd,
			COALESCE(SUM(CASE WHEN NOT is_cancelled AND order_year = ? AND order_month = ? THEN total_amount_usd ELSE 0 END), 0) AS revenue_last_month_usd,
			COALESCE(SUM(CASE WHEN NOT is_cancelled AND order_date = ? THEN total_amount_usd ELSE 0 END), 0) AS revenue_today_usd,
			SUM(CASE WHEN NOT is_cancelled AND order_year = ? AND order_month = ? THEN 1 ELSE 0 END) AS orders_this_month,
			SUM(CASE WHEN NOT is_cancelled AND order_year = ? AND order_month = ? THEN 1 ELSE 0 END) AS orders_last_month,
			MIN(order_date) AS first_order_date,
			MAX(order_date) AS last_order_date
		`,
			thisYear, thisMonth,
			lastYear, lastMonth,
			today,
			thisYear, thisMonth,
			lastYear, lastMonth,
		).
		Where("generation_id = ?", generationID).
		Group("platform").
		Scan(&bases).Error
	if err != nil {
		return nil, err
	}

	type itemCount struct {
		Platform   unified.Platform
		TotalItems int64
	}
	var counts []itemCount
	err = s.tx.Table("unified_order_items i").
		Select("i.platform, COALESCE(SUM(i.quantity), 0) AS total_items").
		Joins("JOIN unified_orders o ON o.order_id = i.order_id AND o.platform = i.platform AND o.generation_id = i.generation_id").
		Where("i.generation_id = ? AND NOT o.is_cancelled", generationID).
		Group("i.platform").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	itemsByPlatform := make(map[unified.Platform]int64, len(counts))
	for _, c := range counts {
		itemsByPlatform[c.Platform] = c.TotalItems
	}
	for i := range bases {
		bases[i].TotalItems = itemsByPlatform[bases[i].Platform]
	}
	return bases, nil
}

// DailyBases aggregates per-date figures across all platforms, cancelled
// orders excluded. Item counts come from a second query, merged by date, so
// the item join cannot multiply order rows.
func (s *rebuildStage) DailyBases(generationID uuid.UUID) ([]kpi.DailyBase, error) {
	var bases []kpi.DailyBase
	err := s.tx.Table("unified_orders").
		Select(`
			order_date,
			COUNT(*) AS total_orders,
			COALESCE(SUM(total_amount_usd), 0) AS total_revenue_usd,
			SUM(CASE WHEN platform = 'shopify' THEN 1 ELSE 0 END) AS shopify_orders,
			SUM(CASE WHEN platform = 'amazon' THEN 1 ELSE 0 END) AS amazon_orders,
			SUM(CASE WHEN platform = 'lazada' THEN 1 ELSE 0 END) AS lazada_orders,
			SUM(CASE WHEN platform = 'shopee' THEN 1 ELSE 0 END) AS shopee_orders,
			COALESCE(SUM(CASE WHEN platform = 'shopify' THEN total_amount_usd ELSE 0 END), 0) AS shopify_revenue_usd,
			COALESCE(SUM(CASE WHEN platform = 'amazon' THEN total_amount_usd ELSE 0 END), 0) AS amazon_revenue_usd,
			COALESCE(SUM(CASE WHEN platform = 'lazada' THEN total_amount_usd ELSE 0 END), 0) AS lazada_revenue_usd,
			COALESCE(SUM(CASE WHEN platform = 'shopee' THEN total_amount_usd ELSE 0 END), 0) AS shopee_revenue_usd,
			COUNT(DISTINCT customer_id) AS unique_customers,
			SUM(CASE WHEN is_fulfilled THEN 1 ELSE 0 END) AS fulfilled_orders
		`).
		Where("generation_id = ? AND NOT is_cancelled", generationID).
		Group("order_date").
		Order("order_date ASC").
		Scan(&bases).Error
	if err != nil {
		return nil, err
	}

	type itemCount struct {
		OrderDate      time.Time
		TotalItemsSold int64
	}
	var counts []itemCount
	err = s.tx.Table("unified_order_items i").
		Select("o.order_date, COALESCE(SUM(i.quantity), 0) AS total_items_sold").
		Joins("JOIN unified_orders o ON o.order_id = i.order_id AND o.platform = i.platform AND o.generation_id = i.generation_id").
		Where("i.generation_id = ? AND NOT o.is_cancelled", generationID).
		Group("o.order_date").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	itemsByDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		itemsByDate[c.OrderDate.Format("2006-01-02")] = c.TotalItemsSold
	}
	for i := range bases {
		bases[i].TotalItemsSold = itemsByDate[bases[i].OrderDate.Format("2006-01-02")]
	}
	return bases, nil
}

// RevenueBases aggregates per-(date, platform) figures, cancelled orders
// excluded. Net revenue is gross minus discounts.
func (s *rebuildStage) RevenueBases(generationID uuid.UUID) ([]kpi.RevenueBase, error) {
	var bases []kpi.RevenueBase
	err := s.tx.Table("unified_orders").
		Select(`
			order_date,
			platform,
			COALESCE(SUM(total_amount_usd), 0) AS gross_revenue_usd,
			COALESCE(SUM(total_amount_usd - discount_amount_usd), 0) AS net_revenue_usd,
			COUNT(*) AS total_orders,
			SUM(CASE WHEN is_paid THEN 1 ELSE 0 END) AS paid_orders,
			SUM(CASE WHEN is_fulfilled THEN 1 ELSE 0 END) AS fulfilled_orders,
			SUM(CASE WHEN NOT is_paid THEN 1 ELSE 0 END) AS unpaid_orders,
			SUM(CASE WHEN NOT is_fulfilled AND is_paid THEN 1 ELSE 0 END) AS pending_fulfillment_orders
		`).
		Where("generation_id = ? AND NOT is_cancelled", generationID).
		Group("order_date, platform").
		Order("platform ASC, order_date ASC").
		Scan(&bases).Error
	return bases, err
}

// ProductBases aggregates per-(platform, product, name, sku) item figures
// joined to their non-cancelled parent orders, with the this-month window
// fixed at refTime.
func (s *rebuildStage) ProductBases(generationID uuid.UUID, refTime time.Time) ([]kpi.ProductBase, error) {
	thisYear, thisMonth, _, _, _ := calendarWindows(refTime)

	var bases []kpi.ProductBase
	err := s.tx.Table("unified_order_items i").
		Select(`
			i.platform,
			i.product_id,
			i.product_name,
			COALESCE(i.sku, '') AS sku,
			COUNT(DISTINCT i.order_id) AS total_orders,
			COALESCE(SUM(i.quantity), 0) AS total_units,
			COALESCE(SUM(i.line_total_usd), 0) AS total_revenue_usd,
			COUNT(DISTINCT o.order_date) AS days_with_sales,
			SUM(CASE WHEN o.order_year = ? AND o.order_month = ? THEN i.quantity ELSE 0 END) AS this_month_units,
			COALESCE(SUM(CASE WHEN o.order_year = ? AND o.order_month = ? THEN i.line_total_usd ELSE 0 END), 0) AS this_month_revenue_usd
		`,
			thisYear, thisMonth,
			thisYear, thisMonth,
		).
		Joins("JOIN unified_orders o ON o.order_id = i.order_id AND o.platform = i.platform AND o.generation_id = i.generation_id").
		Where("i.generation_id = ? AND NOT o.is_cancelled", generationID).
		Group("i.platform, i.product_id, i.product_name, COALESCE(i.sku, '')").
		Scan(&bases).Error
	return bases, err
}

// PublishRollups inserts the generation row and all four rollups, then flips
// the current-generation pointer. Visibility changes only at commit.
func (s *rebuildStage) PublishRollups(generation kpi.Generation, set kpi.RollupSet) error {
	if err := s.tx.Create(&generation).Error; err != nil {
		return err
	}
	if len(set.Overview) > 0 {
		if err := s.tx.CreateInBatches(set.Overview, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(set.Daily) > 0 {
		if err := s.tx.CreateInBatches(set.Daily, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(set.Revenue) > 0 {
		if err := s.tx.CreateInBatches(set.Revenue, insertBatchSize).Error; err != nil {
			return err
		}
	}
	if len(set.Products) > 0 {
		if err := s.tx.CreateInBatches(set.Products, insertBatchSize).Error; err != nil {
			return err
		}
	}

	state := kpi.State{
		ID:                  kpi.StateRowID,
		CurrentGenerationID: generation.ID,
		UpdatedAt:           time.Now().UTC(),
	}
	return s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_generation_id", "updated_at"}),
	}).Create(&state).Error
}

// calendarWindows fixes the this-month, last-month and today windows at the
// given reference time, in UTC.
func calendarWindows(refTime time.Time) (thisYear, thisMonth, lastYear, lastMonth int, today time.Time) {
	ref := refTime.UTC()
	thisYear, thisMonth = ref.Year(), int(ref.Month())
	prev := time.Date(thisYear, ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	lastYear, lastMonth = prev.Year(), int(prev.Month())
	today = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return
}

var (
	_ kpi.RollupRepository  = (*GormRollupRepository)(nil)
	_ kpi.RebuildRepository = (*GormRollupRepository)(nil)
	_ kpi.RebuildStage      = (*rebuildStage)(nil)
)
