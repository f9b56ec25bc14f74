/**
 * @description
 * Bill Payment Scheduler. Customers schedule one-off or recurring payments to a
 * beneficiary; a time trigger later executes each due payment through the
 * Transfer Orchestrator, moving funds from the customer's account to the bank's
 * clearing account that represents external beneficiaries.
 *
 * @notes
 * - Execution is safe under at-least-once triggers: terminal rows are returned
 *   unchanged and the transfer uses the idempotency key
 *   `billpay:<payment id>:<YYYY-MM-DD>`.
 * - The next occurrence of a recurring payment is created only by the call that
 *   moved the current one to a terminal status.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/rabbitmq"
)

// Transferer executes a transfer without customer-facing throttling.
type Transferer interface {
	Execute(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error)
}

type BillPaymentOptions struct {
	ClearingAccountID uuid.UUID
	StaleAfter        time.Duration
	Exchange          string
	Logger            zerolog.Logger
	Now               func() time.Time
}

type BillPaymentService struct {
	repo       store.Repository
	transfers  Transferer
	publisher  rabbitmq.Publisher
	clearing   uuid.UUID
	staleAfter time.Duration
	exchange   string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewBillPaymentService(repo store.Repository, transfers Transferer, publisher rabbitmq.Publisher, opts BillPaymentOptions) *BillPaymentService {
	s := &BillPaymentService{
		repo:       repo,
		transfers:  transfers,
		publisher:  publisher,
		clearing:   opts.ClearingAccountID,
		staleAfter: opts.StaleAfter,
		exchange:   opts.Exchange,
		logger:     opts.Logger.With().Str("component", "bill_payments").Logger(),
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.staleAfter <= 0 {
		s.staleAfter = 15 * time.Minute
	}
	if s.exchange == "" {
		s.exchange = "ledger.events"
	}
	return s
}

// Schedule validates and stores a new bill payment in status scheduled.
func (s *BillPaymentService) Schedule(ctx context.Context, ownerID uuid.UUID, req domain.ScheduleBillPaymentRequest) (*domain.BillPayment, error) {
	now := s.now().UTC()
	if req.PaymentDate.Before(domain.TruncateToDate(now)) {
		return nil, domain.NewValidationError("payment_date", "must not be in the past")
	}

	account, err := s.repo.GetAccountForOwner(ctx, req.AccountID, ownerID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, domain.NewValidationError("account_id", "account is not active")
	}
	if _, err := s.repo.GetBeneficiary(ctx, req.BeneficiaryID, ownerID); err != nil {
		return nil, err
	}
	if !account.CanDebit(req.Amount) {
		return nil, ErrInsufficientFunds
	}

	payment := &domain.BillPayment{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		AccountID:         req.AccountID,
		BeneficiaryID:     req.BeneficiaryID,
		Amount:            req.Amount,
		Description:       req.Description,
		PaymentDate:       req.PaymentDate,
		Recurring:         req.Recurring,
		RecurrencePattern: req.RecurrencePattern,
		Status:            domain.BillPaymentStatusScheduled,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if payment.Recurring {
		payment.AnchorDay = payment.PaymentDate.Day()
	}
	if err := s.repo.CreateBillPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to schedule bill payment: %w", err)
	}
	s.logger.Info().
		Str("owner_id", ownerID.String()).
		Str("payment_id", payment.ID.String()).
		Str("payment_date", payment.PaymentDate.Format(domain.DateLayout)).
		Bool("recurring", payment.Recurring).
		Msg("bill payment scheduled")
	return payment, nil
}

// Cancel removes a payment that is still scheduled.
func (s *BillPaymentService) Cancel(ctx context.Context, ownerID, paymentID uuid.UUID) error {
	payment, err := s.repo.GetBillPaymentForOwner(ctx, paymentID, ownerID)
	if err != nil {
		return err
	}
	if payment.Status != domain.BillPaymentStatusScheduled {
		return ErrBillPaymentNotCancellable
	}
	deleted, err := s.repo.DeleteScheduledBillPayment(ctx, paymentID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to cancel bill payment: %w", err)
	}
	if !deleted {
		// Claimed by the executor between the read and the delete.
		return ErrBillPaymentNotCancellable
	}
	s.logger.Info().Str("owner_id", ownerID.String()).Str("payment_id", paymentID.String()).Msg("bill payment cancelled")
	return nil
}

func (s *BillPaymentService) Get(ctx context.Context, ownerID, paymentID uuid.UUID) (*domain.BillPayment, error) {
	return s.repo.GetBillPaymentForOwner(ctx, paymentID, ownerID)
}

func (s *BillPaymentService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.BillPayment, error) {
	return s.repo.ListBillPayments(ctx, ownerID)
}

// Due lists payments dated on or before asOf that are scheduled, plus processing
// payments abandoned for longer than the stale window.
func (s *BillPaymentService) Due(ctx context.Context, asOf time.Time, limit int) ([]domain.BillPayment, error) {
	return s.repo.ListDueBillPayments(ctx, domain.TruncateToDate(asOf), s.now().UTC().Add(-s.staleAfter), limit)
}

// Execute settles one payment. Terminal payments are returned unchanged. A
// transient failure leaves the payment processing and returns the error; it is
// picked up again once the stale window has passed.
func (s *BillPaymentService) Execute(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error) {
	payment, err := s.repo.GetBillPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.IsTerminal() {
		return payment, nil
	}
	now := s.now().UTC()
	if payment.PaymentDate.After(domain.TruncateToDate(now)) {
		return nil, ErrBillPaymentNotDue
	}
	if s.clearing == uuid.Nil {
		return nil, ErrClearingAccountMissing
	}

	// 1. Claim scheduled -> processing
	claimed, err := s.repo.ClaimBillPayment(ctx, paymentID, now.Add(-s.staleAfter))
	if errors.Is(err, store.ErrBillPaymentNotClaimable) {
		current, getErr := s.repo.GetBillPayment(ctx, paymentID)
		if getErr != nil {
			return nil, getErr
		}
		if current.IsTerminal() {
			return current, nil
		}
		return nil, ErrBillPaymentInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim bill payment %s: %w", paymentID, err)
	}

	// 2. Resolve the beneficiary
	beneficiary, err := s.repo.GetBeneficiary(ctx, claimed.BeneficiaryID, claimed.OwnerID)
	if errors.Is(err, store.ErrBeneficiaryNotFound) {
		return s.finalize(ctx, claimed, nil, "beneficiary no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load beneficiary for bill payment %s: %w", paymentID, err)
	}

	// 3. Move the money
	detail := beneficiary.Name
	if claimed.Description != nil && *claimed.Description != "" {
		detail += " - " + *claimed.Description
	}
	detail = domain.TruncateDescription(detail)
	external := beneficiary.AccountNumber
	req := domain.TransferRequest{
		SourceAccountID:          claimed.AccountID,
		DestinationAccountID:     s.clearing,
		Amount:                   claimed.Amount,
		Description:              detail,
		IdempotencyKey:           claimed.IdempotencyKey(),
		DebitType:                domain.TransactionTypePayment,
		RecipientExternalAccount: &external,
	}
	result, err := s.transfers.Execute(ctx, claimed.OwnerID, req)
	if err != nil {
		if !isTerminalPaymentError(err) {
			s.logger.Warn().Err(err).Str("payment_id", paymentID.String()).Msg("bill payment transfer failed transiently; leaving it processing")
			return nil, fmt.Errorf("bill payment %s: %w", paymentID, err)
		}
		return s.finalize(ctx, claimed, nil, err.Error())
	}

	// 4. Record the outcome
	debitID := result.Debit.ID
	return s.finalize(ctx, claimed, &debitID, "")
}

// isTerminalPaymentError reports whether retrying the transfer cannot succeed
// without a change to the payment, the account or the ledger.
func isTerminalPaymentError(err error) bool {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, ErrPartialFailureRecovered),
		errors.Is(err, ErrPartialFailureUnrecovered):
		return true
	}
	return false
}

// finalize moves the payment to completed (transactionID set) or failed and, if
// this call made the transition, creates the next occurrence of a recurring
// payment in the same unit of work.
func (s *BillPaymentService) finalize(ctx context.Context, payment *domain.BillPayment, transactionID *uuid.UUID, reason string) (*domain.BillPayment, error) {
	var (
		changed bool
		next    *domain.BillPayment
	)
	err := s.inUnitOfWork(ctx, func(repo store.Repository) error {
		var err error
		if transactionID != nil {
			changed, err = repo.CompleteBillPayment(ctx, payment.ID, *transactionID)
		} else {
			changed, err = repo.FailBillPayment(ctx, payment.ID, reason)
		}
		if err != nil || !changed {
			return err
		}

		next, err = payment.NextOccurrence(s.now().UTC())
		if err != nil || next == nil {
			return err
		}
		if err := repo.CreateBillPayment(ctx, next); err != nil {
			if errors.Is(err, store.ErrBillPaymentExists) {
				next = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize bill payment %s: %w", payment.ID, err)
	}

	current, err := s.repo.GetBillPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	level := zerolog.InfoLevel
	if current.Status == domain.BillPaymentStatusFailed {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).
		Str("payment_id", current.ID.String()).
		Str("status", current.Status).
		Str("reason", reason).
		Msg("bill payment finalized")
	if next != nil {
		s.logger.Info().
			Str("payment_id", next.ID.String()).
			Str("previous_payment_id", current.ID.String()).
			Str("payment_date", next.PaymentDate.Format(domain.DateLayout)).
			Msg("next bill payment occurrence scheduled")
	}
	s.publishOutcome(ctx, current)
	return current, nil
}

func (s *BillPaymentService) inUnitOfWork(ctx context.Context, fn func(repo store.Repository) error) error {
	if tx, ok := s.repo.(store.Transactor); ok {
		return tx.RunInTx(ctx, fn)
	}
	return fn(s.repo)
}

func (s *BillPaymentService) publishOutcome(ctx context.Context, payment *domain.BillPayment) {
	if s.publisher == nil {
		return
	}
	routingKey := domain.RoutingKeyBillPaymentCompleted
	if payment.Status == domain.BillPaymentStatusFailed {
		routingKey = domain.RoutingKeyBillPaymentFailed
	}
	event := domain.BillPaymentOutcomeEvent{
		PaymentID:     payment.ID,
		OwnerID:       payment.OwnerID,
		Status:        payment.Status,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
		FailureReason: payment.FailureReason,
		Timestamp:     s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.exchange, routingKey, event); err != nil {
		s.logger.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to publish bill payment outcome")
	}
}

// ExecuteDue executes up to limit due payments directly and returns how many
// reached a terminal status.
func (s *BillPaymentService) ExecuteDue(ctx context.Context, asOf time.Time, limit int) (int, error) {
	due, err := s.Due(ctx, asOf, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due bill payments: %w", err)
	}
	settled := 0
	for _, payment := range due {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		result, err := s.Execute(ctx, payment.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("due bill payment not settled")
			continue
		}
		if result.IsTerminal() {
			settled++
		}
	}
	return settled, nil
}
