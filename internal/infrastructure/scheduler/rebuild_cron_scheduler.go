package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appkpi "github.com/kpiboard/backend/internal/application/kpi"
	"github.com/kpiboard/backend/internal/infrastructure/config"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// Rebuilder runs a full KPI rebuild cycle
type Rebuilder interface {
	Rebuild(ctx context.Context) (*appkpi.RebuildResult, error)
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// Returns defaults (2:00) if parsing fails or expression is empty.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	// Default values
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)

	if len(parts) < 2 {
		return hour, minute, nil
	}

	// Parse minute
	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}

	// Parse hour
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	// Validate ranges
	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// RebuildCronScheduler runs the KPI rebuild on a daily cron schedule
type RebuildCronScheduler struct {
	config    config.SchedulerConfig
	rebuilder Rebuilder
	logger    *zap.Logger

	cronHour   int
	cronMinute int

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewRebuildCronScheduler creates a new cron-based rebuild scheduler
func NewRebuildCronScheduler(
	cfg config.SchedulerConfig,
	rebuilder Rebuilder,
	logger *zap.Logger,
) (*RebuildCronScheduler, error) {
	hour, minute, err := ParseCronSchedule(cfg.RebuildCronSchedule)
	if err != nil {
		return nil, err
	}

	return &RebuildCronScheduler{
		config:     cfg,
		rebuilder:  rebuilder,
		logger:     logger,
		cronHour:   hour,
		cronMinute: minute,
	}, nil
}

// Start starts the cron scheduler
func (s *RebuildCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Rebuild cron scheduler started",
		zap.Int("cron_hour", s.cronHour),
		zap.Int("cron_minute", s.cronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *RebuildCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Rebuild cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Rebuild cron scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *RebuildCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	// A minute-resolution ticker matches the minute-resolution schedule
	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runRebuild(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *RebuildCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.cronHour && now.Minute() == s.cronMinute
}

// calculateNextRunTime calculates the next run time
func (s *RebuildCronScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cronHour, s.cronMinute, 0, 0, now.Location())

	// If we've already passed today's run time, schedule for tomorrow
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runRebuild executes one rebuild cycle under the configured timeout
func (s *RebuildCronScheduler) runRebuild(ctx context.Context) {
	s.logger.Info("Starting scheduled KPI rebuild")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	runCtx := ctx
	if s.config.RebuildTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.RebuildTimeout)
		defer cancel()
	}

	result, err := s.rebuilder.Rebuild(runCtx)
	if err != nil {
		if errors.Is(err, appkpi.ErrRebuildInProgress) {
			s.logger.Warn("Scheduled rebuild skipped, another rebuild is running")
			return
		}
		s.logger.Error("Scheduled KPI rebuild failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled KPI rebuild completed",
		zap.String("generation_id", result.GenerationID.String()),
		zap.Int("orders", result.Orders),
		zap.Int("items", result.Items),
		zap.Int("warnings", len(result.Warnings)),
	)
}

// TriggerManualRun triggers a rebuild outside the cron schedule.
// Uses a background context so the run outlives the caller's request.
func (s *RebuildCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runRebuild(context.Background())
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *RebuildCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"cron_hour":   s.cronHour,
		"cron_minute": s.cronMinute,
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *RebuildCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *RebuildCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
