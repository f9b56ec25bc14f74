package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// BillPaymentExecutor settles one bill payment.
type BillPaymentExecutor interface {
	Execute(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error)
}

// BillPaymentDueConsumer executes bill payments announced on the billpay.due
// routing key.
type BillPaymentDueConsumer struct {
	billPayments BillPaymentExecutor
	logger       zerolog.Logger
}

func NewBillPaymentDueConsumer(billPayments BillPaymentExecutor, logger zerolog.Logger) *BillPaymentDueConsumer {
	return &BillPaymentDueConsumer{
		billPayments: billPayments,
		logger:       logger.With().Str("component", "billpay_consumer").Logger(),
	}
}

// HandleMessage returns true to acknowledge and false to requeue.
func (c *BillPaymentDueConsumer) HandleMessage(body []byte) bool {
	var event domain.BillPaymentDueEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal payload")
		return true
	}
	if event.PaymentID == uuid.Nil {
		c.logger.Error().Str("payment_date", event.PaymentDate).Msg("missing payment id in event")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payment, err := c.billPayments.Execute(ctx, event.PaymentID)
	switch {
	case err == nil:
		c.logger.Info().Str("payment_id", payment.ID.String()).Str("status", payment.Status).Msg("bill payment processed")
		return true
	case errors.Is(err, store.ErrBillPaymentNotFound):
		c.logger.Warn().Str("payment_id", event.PaymentID.String()).Msg("bill payment not found; acknowledging")
		return true
	case errors.Is(err, ErrBillPaymentInProgress), errors.Is(err, ErrBillPaymentNotDue):
		c.logger.Info().Err(err).Str("payment_id", event.PaymentID.String()).Msg("bill payment skipped; acknowledging")
		return true
	case errors.Is(err, ErrClearingAccountMissing):
		c.logger.Error().Err(err).Str("payment_id", event.PaymentID.String()).Msg("bill payments cannot settle; acknowledging")
		return true
	default:
		c.logger.Error().Err(err).Str("payment_id", event.PaymentID.String()).Msg("bill payment processing error")
		return false
	}
}
