package worker

import (
	"context"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CodeSweeper garbage-collects expired attendance codes on a schedule.
// Expired codes are already invisible to lookups; sweeping keeps the
// table small and frees per-class code values for reuse.
type CodeSweeper struct {
	codeRepo  *repository.AttendanceCodeRepository
	retention time.Duration
	cron      *cron.Cron
	log       zerolog.Logger
}

// NewCodeSweeper creates a new CodeSweeper.
func NewCodeSweeper(codeRepo *repository.AttendanceCodeRepository, retention time.Duration, log zerolog.Logger) *CodeSweeper {
	return &CodeSweeper{
		codeRepo:  codeRepo,
		retention: retention,
		cron:      cron.New(),
		log:       log.With().Str("component", "code_sweeper").Logger(),
	}
}

// Start registers the sweep schedule and runs the cron loop until the
// context is cancelled. Call in a goroutine.
func (s *CodeSweeper) Start(ctx context.Context) {
	// Every 15 minutes; one sweep also runs immediately at startup.
	if _, err := s.cron.AddFunc("*/15 * * * *", func() { s.sweep(ctx) }); err != nil {
		s.log.Error().Err(err).Msg("Register sweep schedule")
		return
	}

	s.sweep(ctx)
	s.cron.Start()
	s.log.Info().Msg("Sweeper started")

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info().Msg("Sweeper stopped")
}

func (s *CodeSweeper) sweep(ctx context.Context) {
	deleted, err := s.codeRepo.DeleteExpired(ctx, s.retention)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("Sweep error")
		}
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("count", deleted).Msg("Swept expired codes")
	}
}
