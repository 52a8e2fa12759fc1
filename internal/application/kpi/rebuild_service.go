package kpi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kpiboard/backend/internal/domain/kpi"
	"github.com/kpiboard/backend/internal/domain/unified"
)

// ErrRebuildInProgress indicates another rebuild holds the single rebuild
// slot. Callers retry later; rollups stay readable throughout.
var ErrRebuildInProgress = errors.New("kpi: rebuild already in progress")

// RebuildResult reports one completed rebuild.
type RebuildResult struct {
	GenerationID       uuid.UUID             `json:"generation_id"`
	BuiltAt            time.Time             `json:"built_at"`
	Orders             int                   `json:"orders"`
	Items              int                   `json:"items"`
	Warnings           []unified.DataQuality `json:"warnings,omitempty"`
	GenerationsRemoved int64                 `json:"generations_removed"`
	Duration           time.Duration         `json:"-"`
}

// RebuildService runs the full pipeline: extract every platform through its
// adapter, stage the unified relations, compute the four rollups and publish
// them as one new generation. At most one rebuild runs at a time.
type RebuildService struct {
	repo     kpi.RebuildRepository
	adapters []unified.Adapter
	logger   *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewRebuildService creates a new RebuildService.
func NewRebuildService(repo kpi.RebuildRepository, adapters []unified.Adapter, logger *zap.Logger) *RebuildService {
	return &RebuildService{
		repo:     repo,
		adapters: adapters,
		logger:   logger,
		now:      time.Now,
	}
}

// Rebuild runs one full rebuild. A platform whose raw read fails contributes
// nothing and is reported as a degraded warning; any other failure rolls the
// whole rebuild back, leaving the previously published generation in place.
func (s *RebuildService) Rebuild(ctx context.Context) (*RebuildResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRebuildInProgress
	}
	defer s.mu.Unlock()

	start := s.now()
	refTime := start.UTC()
	generation := kpi.Generation{ID: uuid.New(), BuiltAt: refTime}

	orders, items, warnings, err := s.extractAll(ctx, generation.ID)
	if err != nil {
		return nil, err
	}

	err = s.repo.ExecuteRebuild(ctx, func(stage kpi.RebuildStage) error {
		if ctx.Err() != nil {
			return kpi.ErrRebuildCancelled
		}
		if err := stage.StageUnified(orders, items); err != nil {
			return err
		}

		overviewBases, err := stage.OverviewBases(generation.ID, refTime)
		if err != nil {
			return err
		}
		dailyBases, err := stage.DailyBases(generation.ID)
		if err != nil {
			return err
		}
		revenueBases, err := stage.RevenueBases(generation.ID)
		if err != nil {
			return err
		}
		productBases, err := stage.ProductBases(generation.ID, refTime)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return kpi.ErrRebuildCancelled
		}

		set := kpi.RollupSet{
			Overview: kpi.BuildPlatformOverview(generation.ID, overviewBases),
			Daily:    kpi.BuildDailySnapshots(generation.ID, dailyBases),
			Revenue:  kpi.BuildRevenueSummaries(generation.ID, revenueBases),
			Products: kpi.BuildProductPerformance(generation.ID, productBases),
		}
		return stage.PublishRollups(generation, set)
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, kpi.ErrRebuildCancelled) {
			err = kpi.ErrRebuildCancelled
		}
		s.logger.Error("kpi rebuild failed",
			zap.String("generation_id", generation.ID.String()),
			zap.Error(err))
		return nil, err
	}

	// Old generations only become garbage once the new pointer is committed,
	// so cleanup failures are not fatal.
	removed, cleanupErr := s.repo.CleanupGenerations(ctx, generation.ID)
	if cleanupErr != nil {
		s.logger.Warn("kpi generation cleanup failed",
			zap.String("keep_generation_id", generation.ID.String()),
			zap.Error(cleanupErr))
	}

	result := &RebuildResult{
		GenerationID:       generation.ID,
		BuiltAt:            refTime,
		Orders:             len(orders),
		Items:              len(items),
		Warnings:           warnings,
		GenerationsRemoved: removed,
		Duration:           s.now().Sub(start),
	}
	s.logger.Info("kpi rebuild published",
		zap.String("generation_id", generation.ID.String()),
		zap.Int("orders", result.Orders),
		zap.Int("items", result.Items),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// extractAll runs every adapter, stamps the generation onto the converted
// rows and derives the USD and calendar fields.
func (s *RebuildService) extractAll(ctx context.Context, generationID uuid.UUID) ([]unified.Order, []unified.OrderItem, []unified.DataQuality, error) {
	var (
		orders   []unified.Order
		items    []unified.OrderItem
		warnings []unified.DataQuality
	)
	for _, adapter := range s.adapters {
		if ctx.Err() != nil {
			return nil, nil, nil, kpi.ErrRebuildCancelled
		}

		ex, err := adapter.Extract(ctx)
		if err != nil {
			if errors.Is(err, unified.ErrPlatformDegraded) {
				s.logger.Warn("platform extract degraded",
					zap.String("platform", adapter.Platform().String()),
					zap.Error(err))
				warnings = append(warnings, unified.DataQuality{
					Platform: adapter.Platform(),
					Degraded: true,
					Reasons:  []string{err.Error()},
				})
				continue
			}
			return nil, nil, nil, err
		}

		currencies := make(map[unified.OrderKey]string, len(ex.Orders))
		for i := range ex.Orders {
			o := &ex.Orders[i]
			o.ID = uuid.New()
			o.GenerationID = generationID
			o.Derive()
			currencies[o.Key()] = o.CurrencyCode
		}
		for i := range ex.Items {
			it := &ex.Items[i]
			it.ID = uuid.New()
			it.GenerationID = generationID
			it.DeriveUSD(currencies[it.OrderKey()])
		}

		orders = append(orders, ex.Orders...)
		items = append(items, ex.Items...)
		if !ex.Quality.Clean() {
			warnings = append(warnings, ex.Quality)
		}
	}
	return orders, items, warnings, nil
}
