package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"horse.fit/jobcatalog/internal/logging"
)

// Scheduler fires a cycle every intervalHours and once immediately on Start.
type Scheduler struct {
	cron   *cron.Cron
	cycle  *Cycle
	spec   string
	logger zerolog.Logger
}

func New(cycle *Cycle, intervalHours int, logger zerolog.Logger) *Scheduler {
	if intervalHours < 1 {
		intervalHours = 1
	}
	cronLogger := cronLog{logger: logging.Component(logger, "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		cycle:  cycle,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		logger: cronLogger.logger,
	}
}

func (s *Scheduler) Spec() string {
	return s.spec
}

// Start registers the cycle and runs one immediately in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("register cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("scheduler started")

	go s.runCycle(ctx)
	return nil
}

// Stop halts the cron and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
	return done
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.cycle.Run(ctx, ""); err != nil {
		if IsBusy(err) {
			s.logger.Info().Msg("cycle skipped, another cycle is running")
			return
		}
		s.logger.Error().Err(err).Msg("scheduled cycle failed")
	}
}

// cronLog adapts zerolog to cron.Logger.
type cronLog struct {
	logger zerolog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
