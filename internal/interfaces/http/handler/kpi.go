package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appkpi "github.com/kpiboard/backend/internal/application/kpi"
	"github.com/kpiboard/backend/internal/domain/kpi"
	"github.com/kpiboard/backend/internal/interfaces/http/dto"
)

const dateLayout = "2006-01-02"

// KPIHandler exposes the rollup read endpoints and the rebuild trigger.
type KPIHandler struct {
	BaseHandler
	queryService   *appkpi.QueryService
	rebuildService *appkpi.RebuildService
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(queryService *appkpi.QueryService, rebuildService *appkpi.RebuildService) *KPIHandler {
	return &KPIHandler{
		queryService:   queryService,
		rebuildService: rebuildService,
	}
}

// PlatformOverview returns the per-platform lifetime rollup, highest revenue first.
func (h *KPIHandler) PlatformOverview(c *gin.Context) {
	rows, err := h.queryService.PlatformOverview(c.Request.Context())
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.SuccessWithCount(c, rows, len(rows))
}

// DailySnapshots returns the cross-platform daily rollup, newest first.
func (h *KPIHandler) DailySnapshots(c *gin.Context) {
	start, ok := h.parseDateParam(c, "start_date")
	if !ok {
		return
	}
	end, ok := h.parseDateParam(c, "end_date")
	if !ok {
		return
	}
	limit, ok := h.parseLimitParam(c)
	if !ok {
		return
	}

	rows, err := h.queryService.DailySnapshots(c.Request.Context(), appkpi.DailySnapshotsQuery{
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
	})
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.SuccessWithCount(c, rows, len(rows))
}

// RevenueByPlatform returns the per-(date, platform) revenue rollup.
func (h *KPIHandler) RevenueByPlatform(c *gin.Context) {
	start, ok := h.parseDateParam(c, "start_date")
	if !ok {
		return
	}
	end, ok := h.parseDateParam(c, "end_date")
	if !ok {
		return
	}

	rows, err := h.queryService.RevenueByPlatform(c.Request.Context(), appkpi.RevenueQuery{
		Platform:  c.Query("platform"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.SuccessWithCount(c, rows, len(rows))
}

// ProductPerformance returns the product ranking rollup, highest revenue first.
func (h *KPIHandler) ProductPerformance(c *gin.Context) {
	limit, ok := h.parseLimitParam(c)
	if !ok {
		return
	}

	rows, err := h.queryService.ProductPerformance(c.Request.Context(), appkpi.ProductQuery{
		Platform: c.Query("platform"),
		Tier:     c.Query("tier"),
		Limit:    limit,
	})
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.SuccessWithCount(c, rows, len(rows))
}

// DashboardSummary returns the cross-platform headline view.
func (h *KPIHandler) DashboardSummary(c *gin.Context) {
	summary, err := h.queryService.DashboardSummary(c.Request.Context())
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.Success(c, summary)
}

// Rebuild runs a full synchronous rollup rebuild and reports the published
// generation. Readers keep seeing the previous generation until the new one
// is published.
func (h *KPIHandler) Rebuild(c *gin.Context) {
	result, err := h.rebuildService.Rebuild(c.Request.Context())
	if err != nil {
		h.handleKPIError(c, err)
		return
	}
	h.Success(c, result)
}

// parseDateParam reads an optional ISO date query parameter. The bool result
// is false when the handler already wrote a 400 response.
func (h *KPIHandler) parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: name, Message: "Must be a date in YYYY-MM-DD format"},
		})
		return nil, false
	}
	return &t, true
}

func (h *KPIHandler) parseLimitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "limit", Message: "Must be a non-negative integer"},
		})
		return 0, false
	}
	return limit, true
}

// handleKPIError maps the pipeline sentinel errors onto wire codes before
// falling back to the shared domain-error handling.
func (h *KPIHandler) handleKPIError(c *gin.Context, err error) {
	requestID := getRequestID(c)
	switch {
	case errors.Is(err, kpi.ErrNoGeneration):
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNoGeneration, "No KPI generation has been published yet", requestID))
	case errors.Is(err, kpi.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidDateRange, err.Error(), requestID))
	case errors.Is(err, kpi.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUnknownTier, err.Error(), requestID))
	case errors.Is(err, appkpi.ErrRebuildInProgress):
		c.JSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRebuildInProgress, "A rebuild is already in progress", requestID))
	default:
		h.HandleError(c, err)
	}
}
