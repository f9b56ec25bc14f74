/**
 * @description
 * Scheduled job implementations: dispatching due bill payments and purging
 * expired transfer idempotency keys.
 */
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/rabbitmq"
)

// BillPaymentRunner lists and executes due bill payments.
type BillPaymentRunner interface {
	Due(ctx context.Context, asOf time.Time, limit int) ([]domain.BillPayment, error)
	Execute(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error)
}

// IdempotencyPurger deletes idempotency records last touched before a cutoff.
type IdempotencyPurger interface {
	PurgeIdempotencyRecords(ctx context.Context, completedBefore time.Time) (int64, error)
}

type JobsConfig struct {
	Exchange       string
	BatchSize      int
	IdempotencyTTL time.Duration
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	billPayments BillPaymentRunner
	purger       IdempotencyPurger
	publisher    rabbitmq.Publisher
	logger       zerolog.Logger
	config       JobsConfig
	now          func() time.Time
}

// NewJobs creates a job runner. With a nil publisher due payments are executed
// in-process instead of being queued.
func NewJobs(billPayments BillPaymentRunner, purger IdempotencyPurger, publisher rabbitmq.Publisher, logger zerolog.Logger, cfg JobsConfig) *Jobs {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "ledger.events"
	}
	return &Jobs{
		billPayments: billPayments,
		purger:       purger,
		publisher:    publisher,
		logger:       logger.With().Str("component", "jobs").Logger(),
		config:       cfg,
		now:          time.Now,
	}
}

// DispatchDueBillPayments queues (or executes) every bill payment that is due.
func (j *Jobs) DispatchDueBillPayments() {
	j.logger.Info().Msg("starting bill payment dispatch job")
	dispatched, err := j.dispatchDue(context.Background())
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to dispatch due bill payments")
		return
	}
	j.logger.Info().Int("dispatched", dispatched).Msg("bill payment dispatch job finished")
}

func (j *Jobs) dispatchDue(ctx context.Context) (int, error) {
	due, err := j.billPayments.Due(ctx, j.now().UTC(), j.config.BatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, payment := range due {
		if j.publisher != nil {
			event := domain.BillPaymentDueEvent{
				PaymentID:   payment.ID,
				PaymentDate: payment.PaymentDate.Format(domain.DateLayout),
			}
			err := j.publisher.Publish(ctx, j.config.Exchange, domain.RoutingKeyBillPaymentDue, event)
			if err == nil {
				dispatched++
				continue
			}
			j.logger.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to queue due bill payment; executing directly")
		}

		if _, err := j.billPayments.Execute(ctx, payment.ID); err != nil {
			j.logger.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("bill payment execution failed")
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// PurgeIdempotencyKeys removes idempotency records older than the configured TTL.
func (j *Jobs) PurgeIdempotencyKeys() {
	j.logger.Info().Msg("starting idempotency key purge job")
	cutoff := j.now().UTC().Add(-j.config.IdempotencyTTL)

	purged, err := j.purger.PurgeIdempotencyRecords(context.Background(), cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to purge idempotency keys")
		return
	}
	j.logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("idempotency key purge job finished")
}
