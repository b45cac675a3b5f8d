package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"guardian-backend/internal/logger"
	"guardian-backend/internal/services"
)

// Sweeper periodically force-closes study sessions that ran past the limit.
// The sweep itself is idempotent, so an overlapping run would be harmless,
// but it is skipped anyway to keep row scans from stacking up.
type Sweeper struct {
	cron         *cron.Cron
	study        *services.StudyService
	limitMinutes int
	intervalMin  int

	mu      sync.Mutex
	running bool
}

func NewSweeper(study *services.StudyService, limitMinutes, intervalMin int) *Sweeper {
	return &Sweeper{
		cron:         cron.New(),
		study:        study,
		limitMinutes: limitMinutes,
		intervalMin:  intervalMin,
	}
}

func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %dm", s.intervalMin)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	s.cron.Start()
	logger.Log.Info("timeout sweeper started",
		zap.Int("limit_minutes", s.limitMinutes), zap.Int("interval_minutes", s.intervalMin))
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Log.Info("timeout sweeper stopped")
}

func (s *Sweeper) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.study.SweepTimeouts(ctx, s.limitMinutes)
	if err != nil {
		logger.Log.Error("timeout sweep failed", zap.Error(err))
		return
	}

	for _, e := range expired {
		logger.Log.Info("session force-closed by sweep",
			zap.String("user_id", e.UserID),
			zap.Int("row_id", e.RowID),
			zap.Int("minutes", e.Minutes),
			zap.String("subject", e.Subject))
	}
}
