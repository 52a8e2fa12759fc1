package kpi

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kpiboard/backend/internal/domain/unified"
)

// Performance tiers assigned to products by rank and revenue percentile.
const (
	TierTop10          = "Top 10"
	TierTopPerformer   = "Top Performer"
	TierAverage        = "Average"
	TierUnderperformer = "Underperformer"
)

// AllTiers returns the closed set of performance tiers.
func AllTiers() []string {
	return []string{TierTop10, TierTopPerformer, TierAverage, TierUnderperformer}
}

// IsValidTier reports whether s is one of the performance tiers.
func IsValidTier(s string) bool {
	switch s {
	case TierTop10, TierTopPerformer, TierAverage, TierUnderperformer:
		return true
	default:
		return false
	}
}

// Generation is one complete, atomically published version of the rollup set.
type Generation struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuiltAt time.Time `gorm:"column:built_at;not null" json:"built_at"`
}

// TableName returns the generations table name.
func (Generation) TableName() string {
	return "kpi_generations"
}

// State is the single-row current-generation pointer. Flipping it inside the
// rebuild transaction is what makes a generation visible to readers.
type State struct {
	ID                  int16     `gorm:"column:id;primaryKey" json:"id"`
	CurrentGenerationID uuid.UUID `gorm:"column:current_generation_id;type:uuid;not null" json:"current_generation_id"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName returns the state table name.
func (State) TableName() string {
	return "kpi_state"
}

// StateRowID is the fixed primary key of the single kpi_state row.
const StateRowID int16 = 1

// PlatformOverview is the per-platform lifetime rollup. Fully recomputed on
// each rebuild; the month/today windows are fixed at the rebuild's reference
// time, not at query time.
type PlatformOverview struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GenerationID uuid.UUID        `gorm:"column:generation_id;type:uuid;not null;index" json:"generation_id"`
	Platform     unified.Platform `gorm:"column:platform;size:16;not null" json:"platform"`

	TotalOrders     int64 `gorm:"column:total_orders;not null" json:"total_orders"`
	CompletedOrders int64 `gorm:"column:completed_orders;not null" json:"completed_orders"`
	CancelledOrders int64 `gorm:"column:cancelled_orders;not null" json:"cancelled_orders"`

	TotalRevenueUSD     decimal.Decimal `gorm:"column:total_revenue_usd;type:decimal(14,2);not null" json:"total_revenue_usd"`
	RevenueThisMonthUSD decimal.Decimal `gorm:"column:revenue_this_month_usd;type:decimal(14,2);not null" json:"revenue_this_month_usd"`
	RevenueLastMonthUSD decimal.Decimal `gorm:"column:revenue_last_month_usd;type:decimal(14,2);not null" json:"revenue_last_month_usd"`
	RevenueTodayUSD     decimal.Decimal `gorm:"column:revenue_today_usd;type:decimal(14,2);not null" json:"revenue_today_usd"`
	OrdersThisMonth     int64           `gorm:"column:orders_this_month;not null" json:"orders_this_month"`
	OrdersLastMonth     int64           `gorm:"column:orders_last_month;not null" json:"orders_last_month"`

	AvgOrderValueUSD decimal.Decimal `gorm:"column:avg_order_value_usd;type:decimal(14,2);not null" json:"avg_order_value_usd"`
	AvgItemsPerOrder decimal.Decimal `gorm:"column:avg_items_per_order;type:decimal(10,2);not null" json:"avg_items_per_order"`

	PaymentRatePct      decimal.Decimal `gorm:"column:payment_rate_pct;type:decimal(6,2);not null" json:"payment_rate_pct"`
	FulfillmentRatePct  decimal.Decimal `gorm:"column:fulfillment_rate_pct;type:decimal(6,2);not null" json:"fulfillment_rate_pct"`
	CancellationRatePct decimal.Decimal `gorm:"column:cancellation_rate_pct;type:decimal(6,2);not null" json:"cancellation_rate_pct"`

	RevenueMoMGrowthPct decimal.Decimal `gorm:"column:revenue_mom_growth_pct;type:decimal(10,2);not null" json:"revenue_mom_growth_pct"`
	OrdersMoMGrowthPct  decimal.Decimal `gorm:"column:orders_mom_growth_pct;type:decimal(10,2);not null" json:"orders_mom_growth_pct"`

	FirstOrderDate *time.Time `gorm:"column:first_order_date;type:date" json:"first_order_date"`
	LastOrderDate  *time.Time `gorm:"column:last_order_date;type:date" json:"last_order_date"`
}

// TableName returns the platform overview rollup table name.
func (PlatformOverview) TableName() string {
	return "kpi_platform_overview"
}

// DailySnapshot is the one-row-per-date rollup across all platforms combined,
// excluding cancelled orders.
type DailySnapshot struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GenerationID uuid.UUID `gorm:"column:generation_id;type:uuid;not null;index" json:"generation_id"`
	OrderDate    time.Time `gorm:"column:order_date;type:date;not null;index" json:"order_date"`

	TotalOrders     int64           `gorm:"column:total_orders;not null" json:"total_orders"`
	TotalRevenueUSD decimal.Decimal `gorm:"column:total_revenue_usd;type:decimal(14,2);not null" json:"total_revenue_usd"`

	ShopifyOrders int64 `gorm:"column:shopify_orders;not null" json:"shopify_orders"`
	AmazonOrders  int64 `gorm:"column:amazon_orders;not null" json:"amazon_orders"`
	LazadaOrders  int64 `gorm:"column:lazada_orders;not null" json:"lazada_orders"`
	ShopeeOrders  int64 `gorm:"column:shopee_orders;not null" json:"shopee_orders"`

	ShopifyRevenueUSD decimal.Decimal `gorm:"column:shopify_revenue_usd;type:decimal(14,2);not null" json:"shopify_revenue_usd"`
	AmazonRevenueUSD  decimal.Decimal `gorm:"column:amazon_revenue_usd;type:decimal(14,2);not null" json:"amazon_revenue_usd"`
	LazadaRevenueUSD  decimal.Decimal `gorm:"column:lazada_revenue_usd;type:decimal(14,2);not null" json:"lazada_revenue_usd"`
	ShopeeRevenueUSD  decimal.Decimal `gorm:"column:shopee_revenue_usd;type:decimal(14,2);not null" json:"shopee_revenue_usd"`

	UniqueCustomers    int64           `gorm:"column:unique_customers;not null" json:"unique_customers"`
	AvgOrderValueUSD   decimal.Decimal `gorm:"column:avg_order_value_usd;type:decimal(14,2);not null" json:"avg_order_value_usd"`
	TotalItemsSold     int64           `gorm:"column:total_items_sold;not null" json:"total_items_sold"`
	FulfillmentRatePct decimal.Decimal `gorm:"column:fulfillment_rate_pct;type:decimal(6,2);not null" json:"fulfillment_rate_pct"`

	RevenueAvg7DayUSD  decimal.Decimal `gorm:"column:revenue_avg_7day_usd;type:decimal(14,2);not null" json:"revenue_avg_7day_usd"`
	RevenueAvg30DayUSD decimal.Decimal `gorm:"column:revenue_avg_30day_usd;type:decimal(14,2);not null" json:"revenue_avg_30day_usd"`
	OrdersAvg7Day      decimal.Decimal `gorm:"column:orders_avg_7day;type:decimal(14,2);not null" json:"orders_avg_7day"`
	OrdersAvg30Day     decimal.Decimal `gorm:"column:orders_avg_30day;type:decimal(14,2);not null" json:"orders_avg_30day"`

	// Nil for the first rows of the series, where no prior value exists.
	RevenueDoDUSD *decimal.Decimal `gorm:"column:revenue_dod_usd;type:decimal(14,2)" json:"revenue_dod_usd"`
	RevenueWoWUSD *decimal.Decimal `gorm:"column:revenue_wow_usd;type:decimal(14,2)" json:"revenue_wow_usd"`
	OrdersDoD     *int64           `gorm:"column:orders_dod" json:"orders_dod"`
	OrdersWoW     *int64           `gorm:"column:orders_wow" json:"orders_wow"`
}

// TableName returns the daily snapshot rollup table name.
func (DailySnapshot) TableName() string {
	return "kpi_daily_snapshot"
}

// RevenueSummary is the one-row-per-(date, platform) rollup.
type RevenueSummary struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GenerationID uuid.UUID        `gorm:"column:generation_id;type:uuid;not null;index" json:"generation_id"`
	OrderDate    time.Time        `gorm:"column:order_date;type:date;not null;index" json:"order_date"`
	Platform     unified.Platform `gorm:"column:platform;size:16;not null" json:"platform"`

	GrossRevenueUSD decimal.Decimal `gorm:"column:gross_revenue_usd;type:decimal(14,2);not null" json:"gross_revenue_usd"`
	NetRevenueUSD   decimal.Decimal `gorm:"column:net_revenue_usd;type:decimal(14,2);not null" json:"net_revenue_usd"`

	PaidOrders               int64 `gorm:"column:paid_orders;not null" json:"paid_orders"`
	FulfilledOrders          int64 `gorm:"column:fulfilled_orders;not null" json:"fulfilled_orders"`
	UnpaidOrders             int64 `gorm:"column:unpaid_orders;not null" json:"unpaid_orders"`
	PendingFulfillmentOrders int64 `gorm:"column:pending_fulfillment_orders;not null" json:"pending_fulfillment_orders"`

	PrevDayRevenueUSD *decimal.Decimal `gorm:"column:prev_day_revenue_usd;type:decimal(14,2)" json:"prev_day_revenue_usd"`
	RevenueDeltaUSD   *decimal.Decimal `gorm:"column:revenue_delta_usd;type:decimal(14,2)" json:"revenue_delta_usd"`
	RevenueGrowthPct  decimal.Decimal  `gorm:"column:revenue_growth_pct;type:decimal(10,2);not null" json:"revenue_growth_pct"`
	MTDRevenueUSD     decimal.Decimal  `gorm:"column:mtd_revenue_usd;type:decimal(14,2);not null" json:"mtd_revenue_usd"`
	MTDOrders         int64            `gorm:"column:mtd_orders;not null" json:"mtd_orders"`
}

// TableName returns the revenue summary rollup table name.
func (RevenueSummary) TableName() string {
	return "kpi_revenue_summary"
}

// ProductPerformance is the per-(platform, product, name, sku) rollup. The
// grouping key includes name and sku because products do not have a clean
// dedicated id on every platform.
type ProductPerformance struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GenerationID uuid.UUID        `gorm:"column:generation_id;type:uuid;not null;index" json:"generation_id"`
	Platform     unified.Platform `gorm:"column:platform;size:16;not null" json:"platform"`
	ProductID    string           `gorm:"column:product_id;size:64;not null" json:"product_id"`
	ProductName  string           `gorm:"column:product_name;size:500;not null" json:"product_name"`
	SKU          string           `gorm:"column:sku;size:100;not null" json:"sku"`

	TotalOrders     int64           `gorm:"column:total_orders;not null" json:"total_orders"`
	TotalUnits      int64           `gorm:"column:total_units;not null" json:"total_units"`
	TotalRevenueUSD decimal.Decimal `gorm:"column:total_revenue_usd;type:decimal(14,2);not null" json:"total_revenue_usd"`

	AvgSellingPriceUSD decimal.Decimal `gorm:"column:avg_selling_price_usd;type:decimal(14,2);not null" json:"avg_selling_price_usd"`
	DaysWithSales      int64           `gorm:"column:days_with_sales;not null" json:"days_with_sales"`

	ThisMonthUnits      int64           `gorm:"column:this_month_units;not null" json:"this_month_units"`
	ThisMonthRevenueUSD decimal.Decimal `gorm:"column:this_month_revenue_usd;type:decimal(14,2);not null" json:"this_month_revenue_usd"`
	AvgDailyUnits       decimal.Decimal `gorm:"column:avg_daily_units;type:decimal(14,2);not null" json:"avg_daily_units"`

	RevenueRank       int64           `gorm:"column:revenue_rank;not null" json:"revenue_rank"`
	UnitsRank         int64           `gorm:"column:units_rank;not null" json:"units_rank"`
	RevenuePercentile decimal.Decimal `gorm:"column:revenue_percentile;type:decimal(6,4);not null" json:"revenue_percentile"`
	PerformanceTier   string          `gorm:"column:performance_tier;size:32;not null" json:"performance_tier"`
}

// TableName returns the product performance rollup table name.
func (ProductPerformance) TableName() string {
	return "kpi_product_performance"
}

// RollupSet is one full generation of all four rollups, built by the engine
// and published atomically.
type RollupSet struct {
	Overview []PlatformOverview
	Daily    []DailySnapshot
	Revenue  []RevenueSummary
	Products []ProductPerformance
}
