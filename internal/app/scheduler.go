/**
 * @description
 * Cron scheduler setup for the ledger's periodic jobs.
 */
package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type SchedulerConfig struct {
	BillPaymentDispatchSchedule string
	IdempotencyPurgeSchedule    string
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger zerolog.Logger
	config SchedulerConfig
}

// NewScheduler creates a new scheduler instance. Panicking jobs are recovered
// and logged.
func NewScheduler(jobs *Jobs, logger zerolog.Logger, cfg SchedulerConfig) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLogger := cron.PrintfLogger(&logger)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	s.register("bill payment dispatch", s.config.BillPaymentDispatchSchedule, s.jobs.DispatchDueBillPayments)
	s.register("idempotency key purge", s.config.IdempotencyPurgeSchedule, s.jobs.PurgeIdempotencyKeys)
	s.cron.Start()
}

func (s *Scheduler) register(name, schedule string, job func()) {
	if schedule == "" {
		s.logger.Info().Str("job", name).Msg("job disabled; no schedule configured")
		return
	}
	if _, err := s.cron.AddFunc(schedule, job); err != nil {
		s.logger.Error().Err(err).Str("job", name).Str("schedule", schedule).Msg("failed to schedule job")
		return
	}
	s.logger.Info().Str("job", name).Str("schedule", schedule).Msg("scheduled job")
}

// Stop gracefully stops the cron scheduler. The returned context is done once
// running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
