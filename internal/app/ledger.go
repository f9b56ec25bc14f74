package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// AppendParams describes one ledger entry to write against an account.
type AppendParams struct {
	Type                     string
	Amount                   int64
	Description              string
	CounterpartyAccountID    *uuid.UUID
	RecipientExternalAccount *string
	CorrelationID            uuid.UUID
	Status                   string
}

// LedgerWriter appends immutable ledger entries. Entries are never updated
// except for a pending entry moving to a final status.
type LedgerWriter struct {
	repo store.LedgerRepository
	now  func() time.Time
}

func NewLedgerWriter(repo store.LedgerRepository, now func() time.Time) *LedgerWriter {
	if now == nil {
		now = time.Now
	}
	return &LedgerWriter{repo: repo, now: now}
}

// Append records an entry computed against the given account snapshot. The
// snapshot must be the version the caller is about to adjust: the entry's
// balance_after and account_version describe the account after that adjustment.
func (w *LedgerWriter) Append(ctx context.Context, account *domain.Account, params AppendParams) (*domain.Transaction, error) {
	signed, err := domain.SignedAmount(params.Type, params.Amount)
	if err != nil {
		return nil, err
	}
	if signed < 0 && !account.IsCredit() && account.AvailableBalance+signed < 0 {
		return nil, ErrInsufficientFunds
	}

	status := params.Status
	if status == "" {
		status = domain.TransactionStatusCompleted
	}
	correlationID := params.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	now := w.now().UTC()
	id := uuid.New()
	entry := &domain.Transaction{
		ID:                       id,
		AccountID:                account.ID,
		Type:                     params.Type,
		Amount:                   signed,
		Description:              params.Description,
		CounterpartyAccountID:    params.CounterpartyAccountID,
		RecipientExternalAccount: params.RecipientExternalAccount,
		ReferenceNumber:          referenceNumber(id),
		CorrelationID:            correlationID,
		Status:                   status,
		BalanceAfter:             account.Balance + signed,
		AccountVersion:           account.Version + 1,
		TransactionDate:          now,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := w.repo.InsertTransaction(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry, nil
}

// MarkStatus moves a pending entry to a final status.
func (w *LedgerWriter) MarkStatus(ctx context.Context, entry *domain.Transaction, status string) error {
	if err := w.repo.UpdatePendingTransactionStatus(ctx, entry.ID, status); err != nil {
		return fmt.Errorf("failed to mark ledger entry %s %s: %w", entry.ID, status, err)
	}
	entry.Status = status
	return nil
}

func referenceNumber(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "TXN-" + strings.ToUpper(hex[:16])
}
