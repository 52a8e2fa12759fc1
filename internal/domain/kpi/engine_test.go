package kpi

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiboard/backend/internal/domain/unified"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ---------------------------------------------------------------------------
// Growth / Rate Tests
// ---------------------------------------------------------------------------

func TestGrowthPct(t *testing.T) {
	tests := []struct {
		name    string
		current string
		prior   string
		want    string
	}{
		{"fifty percent up", "150", "100", "50"},
		{"decline", "75", "100", "-25"},
		{"flat", "100", "100", "0"},
		{"zero prior reports zero", "150", "0", "0"},
		{"zero prior zero current", "0", "0", "0"},
		{"rounded to two places", "1", "3", "-66.67"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthPct(d(tt.current), d(tt.prior))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestRatePct(t *testing.T) {
	assert.True(t, RatePct(3, 4).Equal(d("75")))
	assert.True(t, RatePct(0, 4).Equal(d("0")))
	assert.True(t, RatePct(1, 0).Equal(d("0")))
}

// ---------------------------------------------------------------------------
// Platform Overview Tests
// ---------------------------------------------------------------------------

func TestBuildPlatformOverview(t *testing.T) {
	gen := uuid.New()

	t.Run("rates averages and growth", func(t *testing.T) {
		rows := BuildPlatformOverview(gen, []OverviewBase{{
			Platform:            unified.PlatformShopify,
			TotalOrders:         10,
			CompletedOrders:     9,
			CancelledOrders:     1,
			PaidOrders:          6,
			FulfilledOrders:     3,
			TotalItems:          18,
			TotalRevenueUSD:     d("900.00"),
			RevenueThisMonthUSD: d("150"),
			RevenueLastMonthUSD: d("100"),
			OrdersThisMonth:     3,
			OrdersLastMonth:     2,
		}})
		require.Len(t, rows, 1)
		row := rows[0]

		assert.Equal(t, gen, row.GenerationID)
		assert.True(t, row.PaymentRatePct.Equal(d("60")))
		assert.True(t, row.CancellationRatePct.Equal(d("10")))
		assert.True(t, row.RevenueMoMGrowthPct.Equal(d("50")))
		assert.True(t, row.OrdersMoMGrowthPct.Equal(d("50")))

		// Revenue only covers non-cancelled orders, so the average divides by
		// the completed count, not the total.
		assert.True(t, row.AvgOrderValueUSD.Equal(d("100.00")), "got %s", row.AvgOrderValueUSD)
		assert.True(t, row.AvgItemsPerOrder.Equal(d("2.00")))

		// 3 fulfilled of 6 paid, not of 10 total.
		assert.True(t, row.FulfillmentRatePct.Equal(d("50")), "got %s", row.FulfillmentRatePct)
	})

	t.Run("no paid orders yields zero fulfillment rate", func(t *testing.T) {
		rows := BuildPlatformOverview(gen, []OverviewBase{{
			Platform:        unified.PlatformLazada,
			TotalOrders:     4,
			CompletedOrders: 4,
			FulfilledOrders: 2,
		}})
		require.Len(t, rows, 1)
		assert.True(t, rows[0].FulfillmentRatePct.IsZero())
	})

	t.Run("zero baseline growth is zero", func(t *testing.T) {
		rows := BuildPlatformOverview(gen, []OverviewBase{{
			Platform:            unified.PlatformAmazon,
			TotalOrders:         1,
			RevenueThisMonthUSD: d("500"),
			RevenueLastMonthUSD: d("0"),
		}})
		require.Len(t, rows, 1)
		assert.True(t, rows[0].RevenueMoMGrowthPct.IsZero())
	})

	t.Run("sorted by revenue descending", func(t *testing.T) {
		rows := BuildPlatformOverview(gen, []OverviewBase{
			{Platform: unified.PlatformLazada, TotalRevenueUSD: d("10")},
			{Platform: unified.PlatformShopify, TotalRevenueUSD: d("300")},
			{Platform: unified.PlatformShopee, TotalRevenueUSD: d("50")},
		})
		require.Len(t, rows, 3)
		assert.Equal(t, unified.PlatformShopify, rows[0].Platform)
		assert.Equal(t, unified.PlatformShopee, rows[1].Platform)
		assert.Equal(t, unified.PlatformLazada, rows[2].Platform)
	})

	t.Run("empty base yields no division", func(t *testing.T) {
		rows := BuildPlatformOverview(gen, []OverviewBase{{Platform: unified.PlatformShopee}})
		require.Len(t, rows, 1)
		assert.True(t, rows[0].AvgOrderValueUSD.IsZero())
		assert.True(t, rows[0].PaymentRatePct.IsZero())
	})
}

// ---------------------------------------------------------------------------
// Daily Snapshot Tests
// ---------------------------------------------------------------------------

func TestBuildDailySnapshots(t *testing.T) {
	gen := uuid.New()

	t.Run("constant revenue keeps trailing averages constant", func(t *testing.T) {
		var bases []DailyBase
		for i := 0; i < 40; i++ {
			bases = append(bases, DailyBase{
				OrderDate:       day("2025-01-01").AddDate(0, 0, i),
				TotalOrders:     2,
				TotalRevenueUSD: d("100.00"),
			})
		}
		rows := BuildDailySnapshots(gen, bases)
		require.Len(t, rows, 40)
		for i, row := range rows {
			assert.True(t, row.RevenueAvg7DayUSD.Equal(d("100.00")), "row %d avg7 %s", i, row.RevenueAvg7DayUSD)
			assert.True(t, row.RevenueAvg30DayUSD.Equal(d("100.00")), "row %d avg30 %s", i, row.RevenueAvg30DayUSD)
		}
	})

	t.Run("partial window average", func(t *testing.T) {
		rows := BuildDailySnapshots(gen, []DailyBase{
			{OrderDate: day("2025-01-01"), TotalRevenueUSD: d("100")},
			{OrderDate: day("2025-01-02"), TotalRevenueUSD: d("200")},
		})
		require.Len(t, rows, 2)
		assert.True(t, rows[0].RevenueAvg7DayUSD.Equal(d("100")))
		assert.True(t, rows[1].RevenueAvg7DayUSD.Equal(d("150")))
	})

	t.Run("lag deltas nil before enough rows", func(t *testing.T) {
		var bases []DailyBase
		for i := 0; i < 9; i++ {
			bases = append(bases, DailyBase{
				OrderDate:       day("2025-02-01").AddDate(0, 0, i),
				TotalRevenueUSD: d(fmt.Sprintf("%d", (i+1)*10)),
			})
		}
		rows := BuildDailySnapshots(gen, bases)
		require.Len(t, rows, 9)

		assert.Nil(t, rows[0].RevenueDoDUSD)
		require.NotNil(t, rows[1].RevenueDoDUSD)
		assert.True(t, rows[1].RevenueDoDUSD.Equal(d("10")))

		for i := 0; i < 7; i++ {
			assert.Nil(t, rows[i].RevenueWoWUSD, "row %d", i)
		}
		require.NotNil(t, rows[7].RevenueWoWUSD)
		assert.True(t, rows[7].RevenueWoWUSD.Equal(d("70")))
	})

	t.Run("order counts get the same windows as revenue", func(t *testing.T) {
		var bases []DailyBase
		for i := 0; i < 9; i++ {
			bases = append(bases, DailyBase{
				OrderDate:       day("2025-04-01").AddDate(0, 0, i),
				TotalOrders:     int64(i + 1),
				TotalRevenueUSD: d("100"),
				TotalItemsSold:  int64((i + 1) * 3),
			})
		}
		rows := BuildDailySnapshots(gen, bases)
		require.Len(t, rows, 9)

		// Day 2: orders 1 and 2 seen so far.
		assert.True(t, rows[1].OrdersAvg7Day.Equal(d("1.5")))
		assert.Equal(t, int64(6), rows[1].TotalItemsSold)
		assert.True(t, rows[1].AvgOrderValueUSD.Equal(d("50.00")))

		assert.Nil(t, rows[0].OrdersDoD)
		require.NotNil(t, rows[1].OrdersDoD)
		assert.Equal(t, int64(1), *rows[1].OrdersDoD)

		for i := 0; i < 7; i++ {
			assert.Nil(t, rows[i].OrdersWoW, "row %d", i)
		}
		require.NotNil(t, rows[8].OrdersWoW)
		assert.Equal(t, int64(7), *rows[8].OrdersWoW)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		rows := BuildDailySnapshots(gen, []DailyBase{
			{OrderDate: day("2025-01-03"), TotalRevenueUSD: d("300")},
			{OrderDate: day("2025-01-01"), TotalRevenueUSD: d("100")},
			{OrderDate: day("2025-01-02"), TotalRevenueUSD: d("200")},
		})
		require.Len(t, rows, 3)
		assert.Equal(t, day("2025-01-01"), rows[0].OrderDate)
		assert.Equal(t, day("2025-01-03"), rows[2].OrderDate)
		require.NotNil(t, rows[2].RevenueDoDUSD)
		assert.True(t, rows[2].RevenueDoDUSD.Equal(d("100")))
	})
}

// ---------------------------------------------------------------------------
// Revenue Summary Tests
// ---------------------------------------------------------------------------

func TestBuildRevenueSummaries(t *testing.T) {
	gen := uuid.New()

	t.Run("mtd resets at month boundary", func(t *testing.T) {
		rows := BuildRevenueSummaries(gen, []RevenueBase{
			{OrderDate: day("2025-01-30"), Platform: unified.PlatformShopify, GrossRevenueUSD: d("100"), TotalOrders: 1},
			{OrderDate: day("2025-01-31"), Platform: unified.PlatformShopify, GrossRevenueUSD: d("50"), TotalOrders: 2},
			{OrderDate: day("2025-02-01"), Platform: unified.PlatformShopify, GrossRevenueUSD: d("70"), TotalOrders: 1},
		})
		require.Len(t, rows, 3)

		assert.True(t, rows[0].MTDRevenueUSD.Equal(d("100")))
		assert.True(t, rows[1].MTDRevenueUSD.Equal(d("150")))
		assert.Equal(t, int64(3), rows[1].MTDOrders)
		assert.True(t, rows[2].MTDRevenueUSD.Equal(d("70")))
		assert.Equal(t, int64(1), rows[2].MTDOrders)
	})

	t.Run("lag stays within platform partition", func(t *testing.T) {
		rows := BuildRevenueSummaries(gen, []RevenueBase{
			{OrderDate: day("2025-03-01"), Platform: unified.PlatformAmazon, GrossRevenueUSD: d("100")},
			{OrderDate: day("2025-03-02"), Platform: unified.PlatformAmazon, GrossRevenueUSD: d("150")},
			{OrderDate: day("2025-03-01"), Platform: unified.PlatformShopee, GrossRevenueUSD: d("40")},
		})
		require.Len(t, rows, 3)

		// amazon sorts before shopee
		assert.Nil(t, rows[0].PrevDayRevenueUSD)
		require.NotNil(t, rows[1].PrevDayRevenueUSD)
		assert.True(t, rows[1].PrevDayRevenueUSD.Equal(d("100")))
		assert.True(t, rows[1].RevenueDeltaUSD.Equal(d("50")))
		assert.True(t, rows[1].RevenueGrowthPct.Equal(d("50")))
		assert.Nil(t, rows[2].PrevDayRevenueUSD, "first shopee row must not see amazon's revenue")
	})

	t.Run("zero prior day growth is zero", func(t *testing.T) {
		rows := BuildRevenueSummaries(gen, []RevenueBase{
			{OrderDate: day("2025-03-01"), Platform: unified.PlatformLazada, GrossRevenueUSD: d("0")},
			{OrderDate: day("2025-03-02"), Platform: unified.PlatformLazada, GrossRevenueUSD: d("80")},
		})
		require.Len(t, rows, 2)
		assert.True(t, rows[1].RevenueGrowthPct.IsZero())
	})
}

// ---------------------------------------------------------------------------
// Product Performance Tests
// ---------------------------------------------------------------------------

func productBases(platform unified.Platform, n int) []ProductBase {
	bases := make([]ProductBase, n)
	for i := 0; i < n; i++ {
		bases[i] = ProductBase{
			Platform:        platform,
			ProductID:       fmt.Sprintf("P%03d", i),
			ProductName:     fmt.Sprintf("Product %d", i),
			TotalUnits:      int64(n - i),
			TotalRevenueUSD: decimal.NewFromInt(int64((n - i) * 10)),
			DaysWithSales:   1,
		}
	}
	return bases
}

func TestBuildProductPerformance(t *testing.T) {
	gen := uuid.New()

	t.Run("ranks are a permutation within each platform", func(t *testing.T) {
		bases := append(productBases(unified.PlatformShopify, 15), productBases(unified.PlatformLazada, 8)...)
		rows := BuildProductPerformance(gen, bases)
		require.Len(t, rows, 23)

		seen := map[unified.Platform]map[int64]bool{}
		counts := map[unified.Platform]int64{unified.PlatformShopify: 15, unified.PlatformLazada: 8}
		for _, row := range rows {
			if seen[row.Platform] == nil {
				seen[row.Platform] = map[int64]bool{}
			}
			assert.False(t, seen[row.Platform][row.RevenueRank], "duplicate rank %d on %s", row.RevenueRank, row.Platform)
			seen[row.Platform][row.RevenueRank] = true
			assert.GreaterOrEqual(t, row.RevenueRank, int64(1))
			assert.LessOrEqual(t, row.RevenueRank, counts[row.Platform])
		}
	})

	t.Run("rank ten is top 10 and rank eleven depends on percentile", func(t *testing.T) {
		rows := BuildProductPerformance(gen, productBases(unified.PlatformShopify, 55))
		require.Len(t, rows, 55)

		byRank := map[int64]ProductPerformance{}
		for _, row := range rows {
			byRank[row.RevenueRank] = row
		}

		assert.Equal(t, TierTop10, byRank[10].PerformanceTier)
		// Rank 11 of 55 has 44 products strictly below it: percentile 0.8.
		assert.True(t, byRank[11].RevenuePercentile.Equal(d("0.8")))
		assert.Equal(t, TierTopPerformer, byRank[11].PerformanceTier)
	})

	t.Run("percentile counts strictly lower revenue", func(t *testing.T) {
		bases := []ProductBase{
			{Platform: unified.PlatformAmazon, ProductID: "A", TotalRevenueUSD: d("100")},
			{Platform: unified.PlatformAmazon, ProductID: "B", TotalRevenueUSD: d("100")},
			{Platform: unified.PlatformAmazon, ProductID: "C", TotalRevenueUSD: d("50")},
			{Platform: unified.PlatformAmazon, ProductID: "D", TotalRevenueUSD: d("25")},
		}
		rows := BuildProductPerformance(gen, bases)
		require.Len(t, rows, 4)

		byID := map[string]ProductPerformance{}
		for _, row := range rows {
			byID[row.ProductID] = row
		}
		// Both 100s see the same two strictly-lower products.
		assert.True(t, byID["A"].RevenuePercentile.Equal(d("0.5")))
		assert.True(t, byID["B"].RevenuePercentile.Equal(d("0.5")))
		assert.True(t, byID["C"].RevenuePercentile.Equal(d("0.25")))
		assert.True(t, byID["D"].RevenuePercentile.Equal(d("0")))
	})

	t.Run("ties break by product id", func(t *testing.T) {
		bases := []ProductBase{
			{Platform: unified.PlatformShopee, ProductID: "B", TotalRevenueUSD: d("100")},
			{Platform: unified.PlatformShopee, ProductID: "A", TotalRevenueUSD: d("100")},
		}
		rows := BuildProductPerformance(gen, bases)
		require.Len(t, rows, 2)
		assert.Equal(t, "A", rows[0].ProductID)
		assert.Equal(t, int64(1), rows[0].RevenueRank)
		assert.Equal(t, int64(2), rows[1].RevenueRank)
	})

	t.Run("average daily units uses units over days with sales", func(t *testing.T) {
		rows := BuildProductPerformance(gen, []ProductBase{{
			Platform:        unified.PlatformShopify,
			ProductID:       "P1",
			TotalUnits:      8,
			TotalRevenueUSD: d("200.00"),
			DaysWithSales:   4,
		}})
		require.Len(t, rows, 1)
		assert.True(t, rows[0].AvgDailyUnits.Equal(d("2.00")))
		assert.True(t, rows[0].AvgSellingPriceUSD.Equal(d("25.00")))
	})
}

func TestAssignTier(t *testing.T) {
	tests := []struct {
		name       string
		rank       int64
		percentile string
		want       string
	}{
		{"rank one", 1, "1", TierTop10},
		{"rank ten boundary", 10, "0.1", TierTop10},
		{"percentile point eight boundary", 11, "0.8", TierTopPerformer},
		{"percentile point five boundary", 11, "0.5", TierAverage},
		{"below point five", 11, "0.49", TierUnderperformer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assignTier(tt.rank, d(tt.percentile)))
		})
	}
}
