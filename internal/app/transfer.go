/**
 * @description
 * This file contains the Transfer Orchestrator, the core money movement use case
 * of the ledger service. A transfer debits a source account and credits a
 * destination account, producing two ledger entries that share a correlation id
 * and sum to zero.
 *
 * Key features:
 * - Transaction mode: all writes (both entries, both balance adjustments and the
 *   idempotency record) commit or roll back together.
 * - Saga mode: for stores without multi-row transactions. Entries start pending
 *   and failures after a balance was moved are compensated with reversing
 *   adjustments; failed compensation is escalated for reconciliation.
 * - Caller-supplied idempotency keys, replaying the original result.
 * - Bounded whole-operation retry on optimistic version conflicts.
 * - Publishes events to RabbitMQ for downstream consumers.
 *
 * @dependencies
 * - github.com/google/uuid: Correlation ids.
 * - github.com/rs/zerolog: Structured logging.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq, pkg/alerting: Event publishing and operator alerts.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/alerting"
	"github.com/Dannywaisein/north-trust-bank-replica/pkg/rabbitmq"
)

const (
	ModeTransaction = "transaction"
	ModeSaga        = "saga"

	maxRetryDelay            = 2 * time.Second
	compensationAttemptFloor = 3
	transferRateLimitScope   = "transfer"
)

// TransferOptions configures a TransferService. Zero values fall back to sane defaults.
type TransferOptions struct {
	Mode               string
	MaxConflictRetries int
	RetryBaseDelay     time.Duration
	Exchange           string
	RateLimiter        RateLimiter
	RateLimitPerMinute int
	Alerter            alerting.Alerter
	Logger             zerolog.Logger
	Now                func() time.Time
}

// TransferService moves money between accounts.
type TransferService struct {
	repo       store.Repository
	transactor store.Transactor
	publisher  rabbitmq.Publisher
	alerter    alerting.Alerter
	limiter    RateLimiter
	rateLimit  int
	exchange   string
	mode       string
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewTransferService creates a transfer orchestrator. Transaction mode requires a
// repository that implements store.Transactor; otherwise saga mode is used.
func NewTransferService(repo store.Repository, publisher rabbitmq.Publisher, opts TransferOptions) *TransferService {
	s := &TransferService{
		repo:       repo,
		publisher:  publisher,
		alerter:    opts.Alerter,
		limiter:    opts.RateLimiter,
		rateLimit:  opts.RateLimitPerMinute,
		exchange:   opts.Exchange,
		maxRetries: opts.MaxConflictRetries,
		baseDelay:  opts.RetryBaseDelay,
		logger:     opts.Logger.With().Str("component", "transfer").Logger(),
		now:        opts.Now,
		sleep:      sleepContext,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.baseDelay <= 0 {
		s.baseDelay = 25 * time.Millisecond
	}
	if s.exchange == "" {
		s.exchange = "ledger.events"
	}
	if s.alerter == nil {
		s.alerter = alerting.NewLogAlerter(opts.Logger)
	}

	s.mode = ModeSaga
	if tx, ok := repo.(store.Transactor); ok && opts.Mode != ModeSaga {
		s.transactor = tx
		s.mode = ModeTransaction
	}
	return s
}

// Mode reports the consistency mode in effect.
func (s *TransferService) Mode() string {
	return s.mode
}

// Transfer is the customer-facing entry point. It applies the per-owner rate
// limit and then executes the transfer.
func (s *TransferService) Transfer(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.Execute(ctx, ownerID, req)
}

// Execute runs a transfer on behalf of ownerID without rate limiting. The source
// account must belong to ownerID; the destination may belong to anyone.
func (s *TransferService) Execute(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		replayed, err := s.replay(ctx, s.repo, ownerID, req)
		if err != nil || replayed != nil {
			return replayed, err
		}
	}

	var (
		result *domain.TransferResult
		err    error
	)
	if s.mode == ModeTransaction {
		result, err = s.executeAtomic(ctx, ownerID, req)
	} else {
		result, err = s.executeSaga(ctx, ownerID, req)
	}
	if err != nil {
		return nil, err
	}
	if !result.Replayed {
		s.logger.Info().
			Str("owner_id", ownerID.String()).
			Str("correlation_id", result.CorrelationID.String()).
			Str("source_account_id", req.SourceAccountID.String()).
			Str("destination_account_id", req.DestinationAccountID.String()).
			Int64("amount", req.Amount).
			Str("mode", s.mode).
			Msg("transfer completed")
		s.publishCompleted(ctx, ownerID, req, result)
	}
	return result, nil
}

// replay returns the stored result for a completed idempotency key, nil when
// the key is unknown, a validation error when the key was used for a different
// request and ErrIdempotencyKeyInUse while the first request is still running.
func (s *TransferService) replay(ctx context.Context, repo store.Repository, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	record, err := repo.FindIdempotencyRecord(ctx, ownerID, req.IdempotencyKey)
	if errors.Is(err, store.ErrIdempotencyRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if record.RequestHash != req.Fingerprint() {
		return nil, domain.NewValidationError("idempotency_key", "was already used for a different request")
	}
	if record.Status != domain.IdempotencyStatusCompleted || record.CorrelationID == nil {
		return nil, ErrIdempotencyKeyInUse
	}

	entries, err := repo.FindTransactionsByCorrelationID(ctx, *record.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer %s: %w", *record.CorrelationID, err)
	}
	if len(entries) != 2 {
		return nil, fmt.Errorf("transfer %s has %d ledger entries, expected 2", *record.CorrelationID, len(entries))
	}
	return &domain.TransferResult{
		CorrelationID: *record.CorrelationID,
		Debit:         entries[0],
		Credit:        entries[1],
		Replayed:      true,
	}, nil
}

// executeAtomic runs the whole transfer inside one unit of work, restarting it on
// version conflicts.
func (s *TransferService) executeAtomic(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	for attempt := 0; ; attempt++ {
		var result *domain.TransferResult
		err := s.transactor.RunInTx(ctx, func(repo store.Repository) error {
			r, err := s.applyAtomic(ctx, repo, ownerID, req)
			result = r
			return err
		})
		if err == nil {
			return result, nil
		}

		if errors.Is(err, store.ErrIdempotencyKeyExists) {
			// A concurrent request with the same key committed first.
			replayed, replayErr := s.replay(ctx, s.repo, ownerID, req)
			if replayErr != nil {
				return nil, replayErr
			}
			if replayed != nil {
				return replayed, nil
			}
			return nil, ErrIdempotencyKeyInUse
		}
		if !errors.Is(err, ErrConflict) || attempt >= s.maxRetries {
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt+1).Str("owner_id", ownerID.String()).Msg("version conflict; retrying transfer")
		if sleepErr := s.backoff(ctx, attempt+1); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (s *TransferService) applyAtomic(ctx context.Context, repo store.Repository, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	accounts := NewAccountStore(repo)
	ledger := NewLedgerWriter(repo, s.now)
	correlationID := uuid.New()

	// 1. Claim the idempotency key first so a concurrent duplicate blocks on it.
	if req.IdempotencyKey != "" {
		now := s.now().UTC()
		record := &domain.IdempotencyRecord{
			OwnerID:       ownerID,
			Key:           req.IdempotencyKey,
			RequestHash:   req.Fingerprint(),
			Status:        domain.IdempotencyStatusCompleted,
			CorrelationID: &correlationID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.InsertIdempotencyRecord(ctx, record); err != nil {
			return nil, err
		}
	}

	// 2. Load and validate both parties
	source, destination, err := s.loadParties(ctx, accounts, ownerID, req)
	if err != nil {
		return nil, err
	}

	// 3. Debit leg
	debit, err := ledger.Append(ctx, source, s.debitParams(req, source, destination, correlationID, domain.TransactionStatusCompleted))
	if err != nil {
		return nil, err
	}
	if _, err := accounts.AdjustBalance(ctx, source.ID, debit.Amount, source.Version); err != nil {
		return nil, err
	}

	// 4. Credit leg
	credit, err := ledger.Append(ctx, destination, s.creditParams(req, source, correlationID, domain.TransactionStatusCompleted))
	if err != nil {
		return nil, err
	}
	if _, err := accounts.AdjustBalance(ctx, destination.ID, credit.Amount, destination.Version); err != nil {
		return nil, err
	}

	return &domain.TransferResult{CorrelationID: correlationID, Debit: *debit, Credit: *credit}, nil
}

// executeSaga reserves the idempotency key once, then runs saga attempts until one
// succeeds, a non-retryable error occurs or the retry budget is spent.
func (s *TransferService) executeSaga(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	if req.IdempotencyKey != "" {
		now := s.now().UTC()
		reservation := &domain.IdempotencyRecord{
			OwnerID:     ownerID,
			Key:         req.IdempotencyKey,
			RequestHash: req.Fingerprint(),
			Status:      domain.IdempotencyStatusProcessing,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.InsertIdempotencyRecord(ctx, reservation); err != nil {
			if !errors.Is(err, store.ErrIdempotencyKeyExists) {
				return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
			}
			replayed, replayErr := s.replay(ctx, s.repo, ownerID, req)
			if replayErr != nil {
				return nil, replayErr
			}
			if replayed != nil {
				return replayed, nil
			}
			return nil, ErrIdempotencyKeyInUse
		}
	}

	for attempt := 0; ; attempt++ {
		result, err := s.runSaga(ctx, ownerID, req)
		if err == nil {
			if req.IdempotencyKey != "" {
				if completeErr := s.repo.CompleteIdempotencyRecord(ctx, ownerID, req.IdempotencyKey, result.CorrelationID); completeErr != nil {
					s.logger.Error().Err(completeErr).Str("correlation_id", result.CorrelationID.String()).Msg("transfer applied but idempotency key could not be completed")
				}
			}
			return result, nil
		}

		if isRetryableSagaError(err) && attempt < s.maxRetries {
			s.logger.Warn().Err(err).Int("attempt", attempt+1).Str("owner_id", ownerID.String()).Msg("saga attempt hit a version conflict; retrying transfer")
			if sleepErr := s.backoff(ctx, attempt+1); sleepErr != nil {
				err = sleepErr
			} else {
				continue
			}
		}

		// An unrecovered saga keeps its key reserved so the request cannot run
		// again until the ledger has been reconciled.
		if req.IdempotencyKey != "" && !errors.Is(err, ErrPartialFailureUnrecovered) {
			if delErr := s.repo.DeleteIdempotencyRecord(ctx, ownerID, req.IdempotencyKey); delErr != nil {
				s.logger.Warn().Err(delErr).Str("owner_id", ownerID.String()).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}
}

func isRetryableSagaError(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var partial *PartialFailureError
	return errors.As(err, &partial) && partial.Recovered && errors.Is(partial.Cause, ErrConflict)
}

// appliedLeg is a balance adjustment that must be reversed if the saga fails.
type appliedLeg struct {
	accountID uuid.UUID
	delta     int64
}

func (s *TransferService) runSaga(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	accounts := NewAccountStore(s.repo)
	ledger := NewLedgerWriter(s.repo, s.now)

	source, destination, err := s.loadParties(ctx, accounts, ownerID, req)
	if err != nil {
		return nil, err
	}
	correlationID := uuid.New()

	debit, err := ledger.Append(ctx, source, s.debitParams(req, source, destination, correlationID, domain.TransactionStatusPending))
	if err != nil {
		return nil, err
	}
	if _, err := accounts.AdjustBalance(ctx, source.ID, debit.Amount, source.Version); err != nil {
		// Nothing has moved yet.
		if markErr := ledger.MarkStatus(ctx, debit, domain.TransactionStatusFailed); markErr != nil {
			s.logger.Warn().Err(markErr).Str("correlation_id", correlationID.String()).Msg("failed to mark pending debit failed")
		}
		return nil, err
	}

	legs := []appliedLeg{{accountID: source.ID, delta: debit.Amount}}
	entries := []*domain.Transaction{debit}

	credit, err := ledger.Append(ctx, destination, s.creditParams(req, source, correlationID, domain.TransactionStatusPending))
	if err != nil {
		return nil, s.compensate(ctx, ownerID, req, correlationID, err, legs, entries)
	}
	entries = append(entries, credit)
	if _, err := accounts.AdjustBalance(ctx, destination.ID, credit.Amount, destination.Version); err != nil {
		return nil, s.compensate(ctx, ownerID, req, correlationID, err, legs, entries)
	}
	legs = append(legs, appliedLeg{accountID: destination.ID, delta: credit.Amount})

	for _, entry := range entries {
		if err := ledger.MarkStatus(ctx, entry, domain.TransactionStatusCompleted); err != nil {
			return nil, s.compensate(ctx, ownerID, req, correlationID, err, legs, entries)
		}
	}

	return &domain.TransferResult{CorrelationID: correlationID, Debit: *debit, Credit: *credit}, nil
}

// compensate reverses applied legs newest first and fails pending entries.
func (s *TransferService) compensate(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest, correlationID uuid.UUID, cause error, legs []appliedLeg, entries []*domain.Transaction) error {
	ledger := NewLedgerWriter(s.repo, s.now)

	var compensationErr error
	for i := len(legs) - 1; i >= 0; i-- {
		if err := s.reverseLeg(ctx, legs[i], correlationID); err != nil {
			compensationErr = errors.Join(compensationErr, err)
		}
	}
	for _, entry := range entries {
		if entry.Status != domain.TransactionStatusPending {
			compensationErr = errors.Join(compensationErr, fmt.Errorf("ledger entry %s is already %s", entry.ID, entry.Status))
			continue
		}
		if err := ledger.MarkStatus(ctx, entry, domain.TransactionStatusFailed); err != nil {
			compensationErr = errors.Join(compensationErr, err)
		}
	}

	partial := &PartialFailureError{
		CorrelationID:   correlationID,
		Recovered:       compensationErr == nil,
		Cause:           cause,
		CompensationErr: compensationErr,
	}
	if partial.Recovered {
		s.logger.Warn().Err(cause).Str("correlation_id", correlationID.String()).Msg("transfer failed after debit; compensated")
		return partial
	}

	s.logger.Error().
		Err(cause).
		AnErr("compensation_error", compensationErr).
		Str("owner_id", ownerID.String()).
		Str("correlation_id", correlationID.String()).
		Str("source_account_id", req.SourceAccountID.String()).
		Str("destination_account_id", req.DestinationAccountID.String()).
		Int64("amount", req.Amount).
		Msg("transfer compensation failed; reconciliation required")
	s.escalate(ctx, ownerID, req, partial)
	return partial
}

// reverseLeg undoes one balance adjustment with a reversing adjustment entry
// computed against the freshly loaded account, reloading it on conflicts.
func (s *TransferService) reverseLeg(ctx context.Context, leg appliedLeg, correlationID uuid.UUID) error {
	accounts := NewAccountStore(s.repo)
	ledger := NewLedgerWriter(s.repo, s.now)
	attempts := s.maxRetries + compensationAttemptFloor
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		account, err := accounts.LoadAccount(ctx, leg.accountID)
		if err != nil {
			return err
		}
		reversal, err := ledger.Append(ctx, account, AppendParams{
			Type:          domain.TransactionTypeAdjustment,
			Amount:        -leg.delta,
			Description:   "Reversal of failed transfer",
			CorrelationID: correlationID,
			Status:        domain.TransactionStatusPending,
		})
		if err != nil {
			return err
		}
		_, err = accounts.AdjustBalance(ctx, leg.accountID, reversal.Amount, account.Version)
		if err == nil {
			return ledger.MarkStatus(ctx, reversal, domain.TransactionStatusCompleted)
		}
		if markErr := ledger.MarkStatus(ctx, reversal, domain.TransactionStatusFailed); markErr != nil {
			s.logger.Warn().Err(markErr).Str("correlation_id", correlationID.String()).Msg("failed to mark reversal entry failed")
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err
		if sleepErr := s.backoff(ctx, attempt+1); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func (s *TransferService) escalate(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest, partial *PartialFailureError) {
	// Escalation must outlive a cancelled request.
	ctx = context.WithoutCancel(ctx)

	event := domain.ReconciliationRequiredEvent{
		CorrelationID:        partial.CorrelationID,
		OwnerID:              ownerID,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Cause:                partial.Cause.Error(),
		CompensationError:    partial.CompensationErr.Error(),
		Timestamp:            s.now().UTC(),
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, s.exchange, domain.RoutingKeyReconciliationRequired, event); err != nil {
			s.logger.Error().Err(err).Str("correlation_id", partial.CorrelationID.String()).Msg("failed to publish reconciliation event")
		}
	}

	body := fmt.Sprintf(
		"Transfer %s could not be compensated.\n\nOwner: %s\nSource account: %s\nDestination account: %s\nAmount: %s\nCause: %v\nCompensation error: %v\n",
		partial.CorrelationID, ownerID, req.SourceAccountID, req.DestinationAccountID,
		domain.FormatMinorUnits(req.Amount), partial.Cause, partial.CompensationErr,
	)
	if err := s.alerter.Alert(ctx, "transfer reconciliation required", body); err != nil {
		s.logger.Error().Err(err).Str("correlation_id", partial.CorrelationID.String()).Msg("failed to send reconciliation alert")
	}
}

func (s *TransferService) loadParties(ctx context.Context, accounts *AccountStore, ownerID uuid.UUID, req domain.TransferRequest) (*domain.Account, *domain.Account, error) {
	source, err := accounts.GetAccount(ctx, req.SourceAccountID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	destination, err := accounts.LoadAccount(ctx, req.DestinationAccountID)
	if err != nil {
		return nil, nil, err
	}
	if !source.IsActive() {
		return nil, nil, domain.NewValidationError("source_account_id", "account is not active")
	}
	if !destination.IsActive() {
		return nil, nil, domain.NewValidationError("destination_account_id", "account is not active")
	}
	if !source.CanDebit(req.Amount) {
		return nil, nil, ErrInsufficientFunds
	}
	return source, destination, nil
}

func (s *TransferService) debitParams(req domain.TransferRequest, source, destination *domain.Account, correlationID uuid.UUID, status string) AppendParams {
	prefix := "Transfer to "
	if req.DebitEntryType() == domain.TransactionTypePayment {
		prefix = "Payment to "
	}
	destinationID := destination.ID
	return AppendParams{
		Type:                     req.DebitEntryType(),
		Amount:                   req.Amount,
		Description:              describe(prefix+destination.AccountName, req.Description),
		CounterpartyAccountID:    &destinationID,
		RecipientExternalAccount: req.RecipientExternalAccount,
		CorrelationID:            correlationID,
		Status:                   status,
	}
}

func (s *TransferService) creditParams(req domain.TransferRequest, source *domain.Account, correlationID uuid.UUID, status string) AppendParams {
	sourceID := source.ID
	return AppendParams{
		Type:                  domain.TransactionTypeDeposit,
		Amount:                req.Amount,
		Description:           describe("Transfer from "+source.AccountName, req.Description),
		CounterpartyAccountID: &sourceID,
		CorrelationID:         correlationID,
		Status:                status,
	}
}

func describe(headline, detail string) string {
	text := headline
	if detail != "" {
		text += " - " + detail
	}
	return domain.TruncateDescription(text)
}

func (s *TransferService) publishCompleted(ctx context.Context, ownerID uuid.UUID, req domain.TransferRequest, result *domain.TransferResult) {
	if s.publisher == nil {
		return
	}
	event := domain.TransferCompletedEvent{
		CorrelationID:        result.CorrelationID,
		OwnerID:              ownerID,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Timestamp:            s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.exchange, domain.RoutingKeyTransferCompleted, event); err != nil {
		s.logger.Warn().Err(err).Str("correlation_id", result.CorrelationID.String()).Msg("failed to publish transfer completed event")
	}
}

func (s *TransferService) checkRateLimit(ctx context.Context, ownerID uuid.UUID) error {
	if s.limiter == nil || s.rateLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, transferRateLimitScope, ownerID.String(), s.rateLimit, time.Minute)
	if err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("rate limiter unavailable; allowing transfer")
		return nil
	}
	if count > s.rateLimit {
		return &RateLimitError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

func (s *TransferService) backoff(ctx context.Context, attempt int) error {
	delay := s.baseDelay << (attempt - 1)
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return s.sleep(ctx, delay+jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
