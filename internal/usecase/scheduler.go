package usecase

import (
	"context"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
)

// Scheduler runs bill generation periodically as the system actor
type Scheduler struct {
	bills    *BillUseCase
	interval time.Duration
	logger   logger.Logger
	runs     chan<- *GenerationReport
}

// NewScheduler creates a scheduler that generates due bills every interval
func NewScheduler(bills *BillUseCase, interval time.Duration, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		bills:    bills,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Notify makes the scheduler publish every completed report on ch without blocking
func (s *Scheduler) Notify(ch chan<- *GenerationReport) {
	s.runs = ch
}

// RunOnce performs a single generation pass
func (s *Scheduler) RunOnce(ctx context.Context) (*GenerationReport, error) {
	report, err := s.bills.GenerateDue(ctx, domain.SystemActor, time.Time{})
	if err != nil {
		s.logger.Error(ctx, "Scheduled generation aborted", err, nil)
		return report, err
	}

	if len(report.Failed) > 0 {
		s.logger.Warn(ctx, "Scheduled generation finished with failures", map[string]interface{}{
			"failed":    len(report.Failed),
			"generated": len(report.Generated),
		})
	}

	if s.runs != nil {
		select {
		case s.runs <- report:
		default:
		}
	}
	return report, nil
}

// Run generates immediately and then on every tick until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info(ctx, "Scheduler disabled", nil)
		return
	}

	s.logger.Info(ctx, "Scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Scheduler stopped", nil)
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
