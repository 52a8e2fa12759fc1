package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appkpi "github.com/kpiboard/backend/internal/application/kpi"
	"github.com/kpiboard/backend/internal/domain/kpi"
	"github.com/kpiboard/backend/internal/domain/unified"
)

// stubRollupRepo serves canned rollup rows for one fixed generation.
type stubRollupRepo struct {
	generation uuid.UUID
	genErr     error

	overview []kpi.PlatformOverview
	daily    []kpi.DailySnapshot
	revenue  []kpi.RevenueSummary
	products []kpi.ProductPerformance
}

func (r *stubRollupRepo) CurrentGeneration(ctx context.Context) (uuid.UUID, error) {
	if r.genErr != nil {
		return uuid.Nil, r.genErr
	}
	return r.generation, nil
}

func (r *stubRollupRepo) PlatformOverview(ctx context.Context, generationID uuid.UUID) ([]kpi.PlatformOverview, error) {
	return r.overview, nil
}

func (r *stubRollupRepo) DailySnapshots(ctx context.Context, generationID uuid.UUID, filter kpi.DailySnapshotFilter) ([]kpi.DailySnapshot, error) {
	return r.daily, nil
}

func (r *stubRollupRepo) RevenueSummaries(ctx context.Context, generationID uuid.UUID, filter kpi.RevenueFilter) ([]kpi.RevenueSummary, error) {
	return r.revenue, nil
}

func (r *stubRollupRepo) ProductPerformance(ctx context.Context, generationID uuid.UUID, filter kpi.ProductFilter) ([]kpi.ProductPerformance, error) {
	return r.products, nil
}

// stubStage implements kpi.RebuildStage over empty bases.
type stubStage struct{}

func (stubStage) StageUnified(orders []unified.Order, items []unified.OrderItem) error { return nil }
func (stubStage) OverviewBases(generationID uuid.UUID, refTime time.Time) ([]kpi.OverviewBase, error) {
	return nil, nil
}
func (stubStage) DailyBases(generationID uuid.UUID) ([]kpi.DailyBase, error)     { return nil, nil }
func (stubStage) RevenueBases(generationID uuid.UUID) ([]kpi.RevenueBase, error) { return nil, nil }
func (stubStage) ProductBases(generationID uuid.UUID, refTime time.Time) ([]kpi.ProductBase, error) {
	return nil, nil
}
func (stubStage) PublishRollups(generation kpi.Generation, set kpi.RollupSet) error { return nil }

// stubRebuildRepo optionally blocks inside the transaction so tests can
// observe the single-rebuild guarantee.
type stubRebuildRepo struct {
	started chan struct{}
	release chan struct{}
}

func (r *stubRebuildRepo) ExecuteRebuild(ctx context.Context, fn func(stage kpi.RebuildStage) error) error {
	if r.started != nil {
		close(r.started)
	}
	if r.release != nil {
		<-r.release
	}
	return fn(stubStage{})
}

func (r *stubRebuildRepo) CleanupGenerations(ctx context.Context, keep uuid.UUID) (int64, error) {
	return 1, nil
}

func newKPIRouter(rollupRepo kpi.RollupRepository, rebuildRepo kpi.RebuildRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	queryService := appkpi.NewQueryService(rollupRepo, zap.NewNop())
	rebuildService := appkpi.NewRebuildService(rebuildRepo, nil, zap.NewNop())
	h := NewKPIHandler(queryService, rebuildService)

	router := gin.New()
	kpis := router.Group("/api/v1/kpis")
	kpis.GET("/overview", h.PlatformOverview)
	kpis.GET("/daily", h.DailySnapshots)
	kpis.GET("/revenue", h.RevenueByPlatform)
	kpis.GET("/products", h.ProductPerformance)
	kpis.GET("/summary", h.DashboardSummary)
	kpis.POST("/rebuild", h.Rebuild)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seededRollupRepo() *stubRollupRepo {
	gen := uuid.New()
	return &stubRollupRepo{
		generation: gen,
		overview: []kpi.PlatformOverview{
			{
				ID:                  uuid.New(),
				GenerationID:        gen,
				Platform:            unified.PlatformShopify,
				TotalOrders:         120,
				TotalRevenueUSD:     decimal.RequireFromString("8400.50"),
				RevenueThisMonthUSD: decimal.RequireFromString("1200.00"),
				RevenueLastMonthUSD: decimal.RequireFromString("1000.00"),
				OrdersThisMonth:     12,
				OrdersLastMonth:     10,
			},
			{
				ID:                  uuid.New(),
				GenerationID:        gen,
				Platform:            unified.PlatformAmazon,
				TotalOrders:         80,
				TotalRevenueUSD:     decimal.RequireFromString("5100.00"),
				RevenueThisMonthUSD: decimal.RequireFromString("800.00"),
				RevenueLastMonthUSD: decimal.RequireFromString("400.00"),
				OrdersThisMonth:     8,
				OrdersLastMonth:     4,
			},
		},
		daily: []kpi.DailySnapshot{
			{
				ID:              uuid.New(),
				GenerationID:    gen,
				OrderDate:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
				TotalOrders:     10,
				TotalRevenueUSD: decimal.RequireFromString("640.00"),
			},
		},
		revenue: []kpi.RevenueSummary{
			{
				ID:              uuid.New(),
				GenerationID:    gen,
				OrderDate:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
				Platform:        unified.PlatformShopify,
				GrossRevenueUSD: decimal.RequireFromString("640.00"),
				NetRevenueUSD:   decimal.RequireFromString("590.00"),
			},
		},
		products: []kpi.ProductPerformance{
			{
				ID:              uuid.New(),
				GenerationID:    gen,
				Platform:        unified.PlatformShopify,
				ProductID:       "1001",
				ProductName:     "Wireless Mouse",
				SKU:             "WM-100",
				TotalUnits:      42,
				TotalRevenueUSD: decimal.RequireFromString("1260.00"),
				PerformanceTier: kpi.TierTop10,
			},
		},
	}
}

func TestKPIHandler_PlatformOverview(t *testing.T) {
	t.Run("returns rows with count", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/overview")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "shopify")
		assert.Contains(t, w.Body.String(), `"count":2`)
	})

	t.Run("returns 404 before first rebuild", func(t *testing.T) {
		repo := &stubRollupRepo{genErr: kpi.ErrNoGeneration}
		router := newKPIRouter(repo, &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/overview")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NO_GENERATION")
	})
}

func TestKPIHandler_DailySnapshots(t *testing.T) {
	t.Run("returns snapshots", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/daily?start_date=2026-08-01&end_date=2026-08-28&limit=10")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":1`)
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/daily?start_date=28-08-2026")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "start_date")
		assert.Contains(t, w.Body.String(), "YYYY-MM-DD")
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/daily?start_date=2026-08-28&end_date=2026-08-01")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INVALID_DATE_RANGE")
	})

	t.Run("rejects negative limit", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/daily?limit=-5")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "limit")
	})
}

func TestKPIHandler_RevenueByPlatform(t *testing.T) {
	router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

	w := get(router, "/api/v1/kpis/revenue?platform=shopify")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gross_revenue_usd")
}

func TestKPIHandler_ProductPerformance(t *testing.T) {
	t.Run("returns ranked products", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/products?limit=10")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Wireless Mouse")
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		w := get(router, "/api/v1/kpis/products?tier=Legendary")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UNKNOWN_TIER")
	})
}

func TestKPIHandler_DashboardSummary(t *testing.T) {
	router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

	w := get(router, "/api/v1/kpis/summary")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			TotalRevenueUSD string `json:"total_revenue_usd"`
			TotalOrders     int64  `json:"total_orders"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "13500.5", resp.Data.TotalRevenueUSD)
	assert.Equal(t, int64(200), resp.Data.TotalOrders)
}

func TestKPIHandler_Rebuild(t *testing.T) {
	t.Run("publishes a new generation", func(t *testing.T) {
		router := newKPIRouter(seededRollupRepo(), &stubRebuildRepo{})

		req := httptest.NewRequest("POST", "/api/v1/kpis/rebuild", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "generation_id")
		assert.Contains(t, w.Body.String(), `"generations_removed":1`)
	})

	t.Run("returns 409 while another rebuild is running", func(t *testing.T) {
		rebuildRepo := &stubRebuildRepo{
			started: make(chan struct{}),
			release: make(chan struct{}),
		}
		router := newKPIRouter(seededRollupRepo(), rebuildRepo)

		firstDone := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			req := httptest.NewRequest("POST", "/api/v1/kpis/rebuild", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			firstDone <- w
		}()

		<-rebuildRepo.started

		req := httptest.NewRequest("POST", "/api/v1/kpis/rebuild", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_REBUILD_IN_PROGRESS")

		close(rebuildRepo.release)
		first := <-firstDone
		assert.Equal(t, http.StatusOK, first.Code)
	})
}
