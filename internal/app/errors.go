package app

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

var (
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrConflict                  = store.ErrVersionConflict
	ErrPartialFailureRecovered   = errors.New("transfer partially applied and compensated")
	ErrPartialFailureUnrecovered = errors.New("transfer partially applied and compensation failed")
	ErrIdempotencyKeyInUse       = errors.New("idempotency key is in use by a request still in progress")
	ErrBillPaymentNotCancellable = errors.New("bill payment can no longer be cancelled")
	ErrBillPaymentInProgress     = errors.New("bill payment is already being processed")
	ErrBillPaymentNotDue         = errors.New("bill payment is not due yet")
	ErrClearingAccountMissing    = errors.New("bill payment clearing account is not configured")
	ErrTicketClosed              = errors.New("support ticket no longer accepts messages")
	ErrInvalidTicketTransition   = errors.New("invalid support ticket status transition")
	ErrRateLimited               = errors.New("rate limit exceeded")
)

// PartialFailureError reports a saga-mode transfer where some legs were applied
// before a later step failed.
type PartialFailureError struct {
	CorrelationID   uuid.UUID
	Recovered       bool
	Cause           error
	CompensationErr error
}

func (e *PartialFailureError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("transfer %s failed and was compensated: %v", e.CorrelationID, e.Cause)
	}
	return fmt.Sprintf("transfer %s failed and compensation failed: %v (compensation: %v)", e.CorrelationID, e.Cause, e.CompensationErr)
}

func (e *PartialFailureError) Is(target error) bool {
	if e.Recovered {
		return target == ErrPartialFailureRecovered
	}
	return target == ErrPartialFailureUnrecovered
}

// RateLimitError carries the number of seconds until the window resets.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded; retry after %ds", e.RetryAfterSeconds)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// translateStoreError maps storage constraint errors to business errors.
func translateStoreError(err error) error {
	if errors.Is(err, store.ErrBalanceConstraint) {
		return ErrInsufficientFunds
	}
	return err
}
