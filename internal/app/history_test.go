package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

func TestHistory_StatementBalancesAroundTransfer(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "Alice Checking", domain.AccountTypeChecking, 1000)
	b := seedAccount(repo, bob, "Bob Savings", domain.AccountTypeSavings, 200)

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 300, "rent", "")
	if _, err := newTestTransferService(repo, ModeTransaction, TransferOptions{}).Transfer(context.Background(), alice, req); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	history := NewHistoryService(repo, fixedNow)
	tests := []struct {
		name             string
		start, end       time.Time
		opening, closing int64
	}{
		{"before transfer", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), 1000, 1000},
		{"covering transfer", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 1000, 700},
		{"transfer day only", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), 1000, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statement, err := history.GenerateStatement(context.Background(), alice, a.ID, tt.start, tt.end)
			if err != nil {
				t.Fatalf("GenerateStatement: %v", err)
			}
			if statement.OpeningBalance != tt.opening || statement.ClosingBalance != tt.closing {
				t.Fatalf("expected %d/%d, got %d/%d", tt.opening, tt.closing, statement.OpeningBalance, statement.ClosingBalance)
			}
		})
	}

	statements, err := history.ListStatements(context.Background(), alice, a.ID)
	if err != nil {
		t.Fatalf("ListStatements: %v", err)
	}
	if len(statements) != len(tests) {
		t.Fatalf("expected %d stored statements, got %d", len(tests), len(statements))
	}

	if _, err := history.GenerateStatement(context.Background(), bob, a.ID, tests[0].start, tests[0].end); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for a foreign account, got %v", err)
	}
	if _, err := history.GenerateStatement(context.Background(), alice, a.ID, tests[0].end, tests[0].start); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inverted period, got %v", err)
	}
}

func TestHistory_ListTransactionsChecksOwnership(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "Alice Checking", domain.AccountTypeChecking, 1000)
	b := seedAccount(repo, bob, "Bob Checking", domain.AccountTypeChecking, 0)

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 100, "", "")
	if _, err := newTestTransferService(repo, ModeTransaction, TransferOptions{}).Transfer(context.Background(), alice, req); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	history := NewHistoryService(repo, fixedNow)
	entries, err := history.ListTransactions(context.Background(), alice, domain.TransactionFilter{AccountID: &a.ID})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount != -100 {
		t.Fatalf("expected alice's single debit, got %+v", entries)
	}

	if _, err := history.ListTransactions(context.Background(), alice, domain.TransactionFilter{AccountID: &b.ID}); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound filtering by a foreign account, got %v", err)
	}
}

func TestHistory_VerifyAccountDetectsDrift(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "Alice Checking", domain.AccountTypeChecking, 1000)
	b := seedAccount(repo, bob, "Bob Checking", domain.AccountTypeChecking, 0)
	history := NewHistoryService(repo, fixedNow)

	report, err := history.VerifyAccount(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}
	if !report.Consistent() || report.SnapshotBalance != nil {
		t.Fatalf("expected an account without entries to be consistent, got %+v", report)
	}

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 250, "", "")
	if _, err := newTestTransferService(repo, ModeSaga, TransferOptions{}).Transfer(context.Background(), alice, req); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	reports, err := history.VerifyOwnerAccounts(context.Background(), alice)
	if err != nil {
		t.Fatalf("VerifyOwnerAccounts: %v", err)
	}
	if len(reports) != 1 || !reports[0].Consistent() || *reports[0].SnapshotBalance != 750 {
		t.Fatalf("expected consistent report at 750, got %+v", reports)
	}

	// A balance change that bypasses the ledger.
	current, _ := repo.GetAccount(context.Background(), a.ID)
	if _, err := repo.UpdateAccountBalance(context.Background(), a.ID, 50, current.Version); err != nil {
		t.Fatalf("UpdateAccountBalance: %v", err)
	}
	report, err = history.VerifyAccount(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}
	if report.Consistent() || report.Drift != 50 {
		t.Fatalf("expected drift of 50, got %+v", report)
	}
}
