package kpi

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kpiboard/backend/internal/domain/unified"
)

// The engine turns storage-computed base aggregates into finished rollups.
// Everything here is a pure, deterministic transform: grouping and summing
// happen in SQL, trailing windows, lags, cumulative sums, ranking and tiering
// happen here.

var hundred = decimal.NewFromInt(100)

// GrowthPct computes (current - prior) / prior * 100, rounded to 2 places.
// A prior of exactly zero yields exactly zero, never infinity.
func GrowthPct(current, prior decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		return decimal.Zero
	}
	return current.Sub(prior).Div(prior).Mul(hundred).Round(2)
}

// RatePct computes part/total as a 0-100 percentage, zero when total is zero.
func RatePct(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).Mul(hundred).Round(2)
}

// OverviewBase is the per-platform base aggregate, grouped in SQL with the
// month/today windows fixed at the rebuild's reference time.
type OverviewBase struct {
	Platform unified.Platform

	TotalOrders     int64
	CompletedOrders int64
	CancelledOrders int64
	PaidOrders      int64
	FulfilledOrders int64
	TotalItems      int64

	TotalRevenueUSD     decimal.Decimal
	RevenueThisMonthUSD decimal.Decimal
	RevenueLastMonthUSD decimal.Decimal
	RevenueTodayUSD     decimal.Decimal
	OrdersThisMonth     int64
	OrdersLastMonth     int64

	FirstOrderDate *time.Time
	LastOrderDate  *time.Time
}

// BuildPlatformOverview derives rates, averages and month-over-month growth
// from the per-platform bases. Output is sorted by revenue descending.
func BuildPlatformOverview(generationID uuid.UUID, bases []OverviewBase) []PlatformOverview {
	out := make([]PlatformOverview, 0, len(bases))
	for _, b := range bases {
		row := PlatformOverview{
			ID:                  uuid.New(),
			GenerationID:        generationID,
			Platform:            b.Platform,
			TotalOrders:         b.TotalOrders,
			CompletedOrders:     b.CompletedOrders,
			CancelledOrders:     b.CancelledOrders,
			TotalRevenueUSD:     b.TotalRevenueUSD.Round(2),
			RevenueThisMonthUSD: b.RevenueThisMonthUSD.Round(2),
			RevenueLastMonthUSD: b.RevenueLastMonthUSD.Round(2),
			RevenueTodayUSD:     b.RevenueTodayUSD.Round(2),
			OrdersThisMonth:     b.OrdersThisMonth,
			OrdersLastMonth:     b.OrdersLastMonth,
			PaymentRatePct: RatePct(b.PaidOrders, b.TotalOrders),
			// Fulfillment is measured against paid orders, not all orders.
			FulfillmentRatePct:  RatePct(b.FulfilledOrders, b.PaidOrders),
			CancellationRatePct: RatePct(b.CancelledOrders, b.TotalOrders),
			RevenueMoMGrowthPct: GrowthPct(b.RevenueThisMonthUSD, b.RevenueLastMonthUSD),
			OrdersMoMGrowthPct: GrowthPct(
				decimal.NewFromInt(b.OrdersThisMonth),
				decimal.NewFromInt(b.OrdersLastMonth),
			),
			FirstOrderDate: b.FirstOrderDate,
			LastOrderDate:  b.LastOrderDate,
		}
		// Averages cover non-cancelled orders only, matching the revenue sums.
		if b.CompletedOrders > 0 {
			row.AvgOrderValueUSD = b.TotalRevenueUSD.Div(decimal.NewFromInt(b.CompletedOrders)).Round(2)
			row.AvgItemsPerOrder = decimal.NewFromInt(b.TotalItems).Div(decimal.NewFromInt(b.CompletedOrders)).Round(2)
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalRevenueUSD.GreaterThan(out[j].TotalRevenueUSD)
	})
	return out
}

// DailyBase is the per-date base aggregate across all platforms combined,
// cancelled orders already excluded.
type DailyBase struct {
	OrderDate       time.Time
	TotalOrders     int64
	TotalRevenueUSD decimal.Decimal
	TotalItemsSold  int64

	ShopifyOrders int64
	AmazonOrders  int64
	LazadaOrders  int64
	ShopeeOrders  int64

	ShopifyRevenueUSD decimal.Decimal
	AmazonRevenueUSD  decimal.Decimal
	LazadaRevenueUSD  decimal.Decimal
	ShopeeRevenueUSD  decimal.Decimal

	UniqueCustomers int64
	FulfilledOrders int64
}

// BuildDailySnapshots computes trailing averages and lag deltas over the date
// series. Windows are inclusive of the current row plus the preceding 6 (or
// 29) rows; at the start of the series the average covers however many rows
// exist. Deltas are nil until n prior rows exist, never zero-filled.
func BuildDailySnapshots(generationID uuid.UUID, bases []DailyBase) []DailySnapshot {
	sort.SliceStable(bases, func(i, j int) bool {
		return bases[i].OrderDate.Before(bases[j].OrderDate)
	})

	out := make([]DailySnapshot, len(bases))
	for i, b := range bases {
		row := DailySnapshot{
			ID:                 uuid.New(),
			GenerationID:       generationID,
			OrderDate:          b.OrderDate,
			TotalOrders:        b.TotalOrders,
			TotalRevenueUSD:    b.TotalRevenueUSD.Round(2),
			TotalItemsSold:     b.TotalItemsSold,
			ShopifyOrders:      b.ShopifyOrders,
			AmazonOrders:       b.AmazonOrders,
			LazadaOrders:       b.LazadaOrders,
			ShopeeOrders:       b.ShopeeOrders,
			ShopifyRevenueUSD:  b.ShopifyRevenueUSD.Round(2),
			AmazonRevenueUSD:   b.AmazonRevenueUSD.Round(2),
			LazadaRevenueUSD:   b.LazadaRevenueUSD.Round(2),
			ShopeeRevenueUSD:   b.ShopeeRevenueUSD.Round(2),
			UniqueCustomers:    b.UniqueCustomers,
			FulfillmentRatePct: RatePct(b.FulfilledOrders, b.TotalOrders),
			RevenueAvg7DayUSD:  trailingAvg(bases, i, 7, dailyRevenue),
			RevenueAvg30DayUSD: trailingAvg(bases, i, 30, dailyRevenue),
			OrdersAvg7Day:      trailingAvg(bases, i, 7, dailyOrders),
			OrdersAvg30Day:     trailingAvg(bases, i, 30, dailyOrders),
		}
		if b.TotalOrders > 0 {
			row.AvgOrderValueUSD = b.TotalRevenueUSD.Div(decimal.NewFromInt(b.TotalOrders)).Round(2)
		}
		if i >= 1 {
			d := b.TotalRevenueUSD.Sub(bases[i-1].TotalRevenueUSD).Round(2)
			row.RevenueDoDUSD = &d
			n := b.TotalOrders - bases[i-1].TotalOrders
			row.OrdersDoD = &n
		}
		if i >= 7 {
			d := b.TotalRevenueUSD.Sub(bases[i-7].TotalRevenueUSD).Round(2)
			row.RevenueWoWUSD = &d
			n := b.TotalOrders - bases[i-7].TotalOrders
			row.OrdersWoW = &n
		}
		out[i] = row
	}
	return out
}

func dailyRevenue(b DailyBase) decimal.Decimal { return b.TotalRevenueUSD }

func dailyOrders(b DailyBase) decimal.Decimal { return decimal.NewFromInt(b.TotalOrders) }

// trailingAvg averages value over the inclusive window ending at index i with
// the given width, shrinking at the start of the series.
func trailingAvg(bases []DailyBase, i, width int, value func(DailyBase) decimal.Decimal) decimal.Decimal {
	start := i - width + 1
	if start < 0 {
		start = 0
	}
	sum := decimal.Zero
	for j := start; j <= i; j++ {
		sum = sum.Add(value(bases[j]))
	}
	return sum.Div(decimal.NewFromInt(int64(i - start + 1))).Round(2)
}

// RevenueBase is the per-(date, platform) base aggregate.
type RevenueBase struct {
	OrderDate time.Time
	Platform  unified.Platform

	GrossRevenueUSD decimal.Decimal
	NetRevenueUSD   decimal.Decimal
	TotalOrders     int64

	PaidOrders               int64
	FulfilledOrders          int64
	UnpaidOrders             int64
	PendingFulfillmentOrders int64
}

// BuildRevenueSummaries computes per-platform lag deltas, zero-safe day-over-
// day growth and month-partitioned cumulative month-to-date figures. The
// cumulative sum resets at each calendar month boundary within a platform
// partition.
func BuildRevenueSummaries(generationID uuid.UUID, bases []RevenueBase) []RevenueSummary {
	sort.SliceStable(bases, func(i, j int) bool {
		if bases[i].Platform != bases[j].Platform {
			return bases[i].Platform < bases[j].Platform
		}
		return bases[i].OrderDate.Before(bases[j].OrderDate)
	})

	out := make([]RevenueSummary, len(bases))
	var (
		prev       *RevenueBase
		mtdRevenue decimal.Decimal
		mtdOrders  int64
	)
	for i := range bases {
		b := bases[i]

		samePartition := prev != nil && prev.Platform == b.Platform
		sameMonth := samePartition &&
			prev.OrderDate.Year() == b.OrderDate.Year() &&
			prev.OrderDate.Month() == b.OrderDate.Month()
		if !sameMonth {
			mtdRevenue = decimal.Zero
			mtdOrders = 0
		}
		mtdRevenue = mtdRevenue.Add(b.GrossRevenueUSD)
		mtdOrders += b.TotalOrders

		row := RevenueSummary{
			ID:                       uuid.New(),
			GenerationID:             generationID,
			OrderDate:                b.OrderDate,
			Platform:                 b.Platform,
			GrossRevenueUSD:          b.GrossRevenueUSD.Round(2),
			NetRevenueUSD:            b.NetRevenueUSD.Round(2),
			PaidOrders:               b.PaidOrders,
			FulfilledOrders:          b.FulfilledOrders,
			UnpaidOrders:             b.UnpaidOrders,
			PendingFulfillmentOrders: b.PendingFulfillmentOrders,
			MTDRevenueUSD:            mtdRevenue.Round(2),
			MTDOrders:                mtdOrders,
		}
		if samePartition {
			prevRev := prev.GrossRevenueUSD.Round(2)
			delta := b.GrossRevenueUSD.Sub(prev.GrossRevenueUSD).Round(2)
			row.PrevDayRevenueUSD = &prevRev
			row.RevenueDeltaUSD = &delta
			row.RevenueGrowthPct = GrowthPct(b.GrossRevenueUSD, prev.GrossRevenueUSD)
		}
		out[i] = row
		prev = &bases[i]
	}
	return out
}

// ProductBase is the per-(platform, product, name, sku) base aggregate,
// cancelled orders already excluded.
type ProductBase struct {
	Platform    unified.Platform
	ProductID   string
	ProductName string
	SKU         string

	TotalOrders     int64
	TotalUnits      int64
	TotalRevenueUSD decimal.Decimal
	DaysWithSales   int64

	ThisMonthUnits      int64
	ThisMonthRevenueUSD decimal.Decimal
}

// BuildProductPerformance assigns per-platform revenue and units ranks
// (1 = highest, ties broken by product id then sku for determinism), the
// strictly-lower-revenue percentile and the performance tier.
func BuildProductPerformance(generationID uuid.UUID, bases []ProductBase) []ProductPerformance {
	out := make([]ProductPerformance, len(bases))
	for i, b := range bases {
		row := ProductPerformance{
			ID:                  uuid.New(),
			GenerationID:        generationID,
			Platform:            b.Platform,
			ProductID:           b.ProductID,
			ProductName:         b.ProductName,
			SKU:                 b.SKU,
			TotalOrders:         b.TotalOrders,
			TotalUnits:          b.TotalUnits,
			TotalRevenueUSD:     b.TotalRevenueUSD.Round(2),
			DaysWithSales:       b.DaysWithSales,
			ThisMonthUnits:      b.ThisMonthUnits,
			ThisMonthRevenueUSD: b.ThisMonthRevenueUSD.Round(2),
		}
		if b.TotalUnits > 0 {
			row.AvgSellingPriceUSD = b.TotalRevenueUSD.Div(decimal.NewFromInt(b.TotalUnits)).Round(2)
		}
		if b.DaysWithSales > 0 {
			row.AvgDailyUnits = decimal.NewFromInt(b.TotalUnits).Div(decimal.NewFromInt(b.DaysWithSales)).Round(2)
		}
		out[i] = row
	}

	byPlatform := make(map[unified.Platform][]*ProductPerformance)
	for i := range out {
		byPlatform[out[i].Platform] = append(byPlatform[out[i].Platform], &out[i])
	}

	for _, rows := range byPlatform {
		rankProducts(rows)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].RevenueRank < out[j].RevenueRank
	})
	return out
}

// rankProducts assigns ranks, percentile and tier within one platform
// partition.
func rankProducts(rows []*ProductPerformance) {
	n := int64(len(rows))

	byUnits := make([]*ProductPerformance, len(rows))
	copy(byUnits, rows)
	sort.SliceStable(byUnits, func(i, j int) bool {
		if byUnits[i].TotalUnits != byUnits[j].TotalUnits {
			return byUnits[i].TotalUnits > byUnits[j].TotalUnits
		}
		return productTieBreak(byUnits[i], byUnits[j])
	})
	for i, r := range byUnits {
		r.UnitsRank = int64(i + 1)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TotalRevenueUSD.Equal(rows[j].TotalRevenueUSD) {
			return rows[i].TotalRevenueUSD.GreaterThan(rows[j].TotalRevenueUSD)
		}
		return productTieBreak(rows[i], rows[j])
	})
	for i, r := range rows {
		r.RevenueRank = int64(i + 1)

		// Percentile is the fraction of same-platform products with strictly
		// lower revenue.
		lower := int64(0)
		for _, other := range rows {
			if other.TotalRevenueUSD.LessThan(r.TotalRevenueUSD) {
				lower++
			}
		}
		r.RevenuePercentile = decimal.NewFromInt(lower).
			Div(decimal.NewFromInt(n)).Round(4)
		r.PerformanceTier = assignTier(r.RevenueRank, r.RevenuePercentile)
	}
}

// productTieBreak orders equal-valued products deterministically.
func productTieBreak(a, b *ProductPerformance) bool {
	if a.ProductID != b.ProductID {
		return a.ProductID < b.ProductID
	}
	if a.ProductName != b.ProductName {
		return a.ProductName < b.ProductName
	}
	return a.SKU < b.SKU
}

var (
	tierTopPerformerCut = decimal.RequireFromString("0.8")
	tierAverageCut      = decimal.RequireFromString("0.5")
)

// assignTier applies the tier rules in order: rank, then percentile cuts,
// boundaries inclusive.
func assignTier(revenueRank int64, percentile decimal.Decimal) string {
	switch {
	case revenueRank <= 10:
		return TierTop10
	case percentile.GreaterThanOrEqual(tierTopPerformerCut):
		return TierTopPerformer
	case percentile.GreaterThanOrEqual(tierAverageCut):
		return TierAverage
	default:
		return TierUnderperformer
	}
}
