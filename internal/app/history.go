package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// HistoryService serves read models over the ledger: transaction history,
// statements and balance verification.
type HistoryService struct {
	repo store.Repository
	now  func() time.Time
}

func NewHistoryService(repo store.Repository, now func() time.Time) *HistoryService {
	if now == nil {
		now = time.Now
	}
	return &HistoryService{repo: repo, now: now}
}

// ListTransactions returns the owner's ledger entries, newest first.
func (h *HistoryService) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	normalized, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	if normalized.AccountID != nil {
		if _, err := h.repo.GetAccountForOwner(ctx, *normalized.AccountID, ownerID); err != nil {
			return nil, err
		}
	}
	entries, err := h.repo.ListTransactions(ctx, ownerID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}

// GenerateStatement derives opening and closing balances for [start, end] from
// completed entries and stores the statement.
func (h *HistoryService) GenerateStatement(ctx context.Context, ownerID, accountID uuid.UUID, start, end time.Time) (*domain.Statement, error) {
	start = domain.TruncateToDate(start)
	end = domain.TruncateToDate(end)
	if start.IsZero() || end.IsZero() {
		return nil, domain.NewValidationError("period", "start and end dates are required")
	}
	if end.Before(start) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}

	account, err := h.repo.GetAccountForOwner(ctx, accountID, ownerID)
	if err != nil {
		return nil, err
	}
	sinceStart, err := h.repo.SumCompletedAmountsSince(ctx, accountID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to sum entries since %s: %w", start.Format(domain.DateLayout), err)
	}
	afterEnd, err := h.repo.SumCompletedAmountsSince(ctx, accountID, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to sum entries after %s: %w", end.Format(domain.DateLayout), err)
	}

	now := h.now().UTC()
	statement := &domain.Statement{
		ID:             uuid.New(),
		AccountID:      accountID,
		PeriodStart:    start,
		PeriodEnd:      end,
		StatementDate:  domain.TruncateToDate(now),
		OpeningBalance: account.Balance - sinceStart,
		ClosingBalance: account.Balance - afterEnd,
		CreatedAt:      now,
	}
	if err := h.repo.CreateStatement(ctx, statement); err != nil {
		return nil, fmt.Errorf("failed to store statement: %w", err)
	}
	return statement, nil
}

func (h *HistoryService) ListStatements(ctx context.Context, ownerID, accountID uuid.UUID) ([]domain.Statement, error) {
	if _, err := h.repo.GetAccountForOwner(ctx, accountID, ownerID); err != nil {
		return nil, err
	}
	return h.repo.ListStatements(ctx, accountID)
}

// BalanceReport compares an account balance with its latest ledger snapshot.
type BalanceReport struct {
	AccountID       uuid.UUID  `json:"account_id"`
	Balance         int64      `json:"balance"`
	Version         int64      `json:"version"`
	SnapshotBalance *int64     `json:"snapshot_balance,omitempty"`
	LatestEntryID   *uuid.UUID `json:"latest_entry_id,omitempty"`
	Drift           int64      `json:"drift"`
}

// Consistent reports whether the balance matches the latest completed entry.
// An account without completed entries has nothing to compare and is consistent.
func (r BalanceReport) Consistent() bool {
	return r.Drift == 0
}

// VerifyAccount checks that the stored balance equals the balance_after of the
// latest completed entry.
func (h *HistoryService) VerifyAccount(ctx context.Context, accountID uuid.UUID) (*BalanceReport, error) {
	account, err := h.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	report := &BalanceReport{AccountID: account.ID, Balance: account.Balance, Version: account.Version}

	latest, err := h.repo.FindLatestCompletedTransaction(ctx, accountID)
	if errors.Is(err, store.ErrTransactionNotFound) {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest entry: %w", err)
	}
	snapshot := latest.BalanceAfter
	entryID := latest.ID
	report.SnapshotBalance = &snapshot
	report.LatestEntryID = &entryID
	report.Drift = account.Balance - snapshot
	return report, nil
}

// VerifyOwnerAccounts runs VerifyAccount for every account of ownerID.
func (h *HistoryService) VerifyOwnerAccounts(ctx context.Context, ownerID uuid.UUID) ([]BalanceReport, error) {
	accounts, err := h.repo.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	reports := make([]BalanceReport, 0, len(accounts))
	for _, account := range accounts {
		report, err := h.VerifyAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
