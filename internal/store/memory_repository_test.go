package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

func seedMemoryAccount(t *testing.T, repo *MemoryRepository, owner uuid.UUID, balance int64) domain.Account {
	t.Helper()
	account := domain.Account{
		ID:               uuid.New(),
		OwnerID:          owner,
		AccountName:      "Everyday Checking",
		AccountNumber:    uuid.NewString()[:10],
		Type:             domain.AccountTypeChecking,
		Status:           domain.AccountStatusActive,
		Balance:          balance,
		AvailableBalance: balance,
		OpenedDate:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.SeedAccount(account)
	return account
}

func TestMemoryUpdateAccountBalance_RejectsStaleVersion(t *testing.T) {
	repo := NewMemoryRepository()
	account := seedMemoryAccount(t, repo, uuid.New(), 1000)
	ctx := context.Background()

	updated, err := repo.UpdateAccountBalance(ctx, account.ID, -300, 0)
	if err != nil {
		t.Fatalf("UpdateAccountBalance returned error: %v", err)
	}
	if updated.Balance != 700 || updated.AvailableBalance != 700 || updated.Version != 1 {
		t.Fatalf("unexpected account after update: %+v", updated)
	}

	if _, err := repo.UpdateAccountBalance(ctx, account.ID, -100, 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale version, got %v", err)
	}
	if _, err := repo.UpdateAccountBalance(ctx, uuid.New(), 10, 0); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := repo.UpdateAccountBalance(ctx, account.ID, -800, 1); !errors.Is(err, ErrBalanceConstraint) {
		t.Fatalf("expected ErrBalanceConstraint for overdraft, got %v", err)
	}
}

func TestMemoryGetAccountForOwner_HidesOtherOwners(t *testing.T) {
	repo := NewMemoryRepository()
	account := seedMemoryAccount(t, repo, uuid.New(), 10)

	if _, err := repo.GetAccountForOwner(context.Background(), account.ID, uuid.New()); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for foreign owner, got %v", err)
	}
}

func TestMemoryRunInTx_RollsBackOnError(t *testing.T) {
	repo := NewMemoryRepository()
	account := seedMemoryAccount(t, repo, uuid.New(), 1000)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.RunInTx(ctx, func(tx Repository) error {
		if _, err := tx.UpdateAccountBalance(ctx, account.ID, -500, 0); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &domain.Transaction{ID: uuid.New(), AccountID: account.ID, Amount: -500}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := repo.GetAccount(ctx, account.ID)
	if got.Balance != 1000 || got.Version != 0 {
		t.Fatalf("expected rollback to keep balance 1000 version 0, got %+v", got)
	}
	txs, _ := repo.ListTransactions(ctx, account.OwnerID, domain.TransactionFilter{Limit: 10})
	if len(txs) != 0 {
		t.Fatalf("expected no persisted entries, got %d", len(txs))
	}
}

func TestMemoryIdempotencyRecord_UniquePerOwner(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	owner := uuid.New()
	rec := &domain.IdempotencyRecord{OwnerID: owner, Key: "k1", RequestHash: "h", Status: domain.IdempotencyStatusProcessing}

	if err := repo.InsertIdempotencyRecord(ctx, rec); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := repo.InsertIdempotencyRecord(ctx, rec); !errors.Is(err, ErrIdempotencyKeyExists) {
		t.Fatalf("expected ErrIdempotencyKeyExists, got %v", err)
	}
	other := *rec
	other.OwnerID = uuid.New()
	if err := repo.InsertIdempotencyRecord(ctx, &other); err != nil {
		t.Fatalf("same key for another owner must be accepted: %v", err)
	}

	correlation := uuid.New()
	if err := repo.CompleteIdempotencyRecord(ctx, owner, "k1", correlation); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if err := repo.DeleteIdempotencyRecord(ctx, owner, "k1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := repo.FindIdempotencyRecord(ctx, owner, "k1")
	if err != nil {
		t.Fatalf("completed record must survive release: %v", err)
	}
	if got.Status != domain.IdempotencyStatusCompleted || got.CorrelationID == nil || *got.CorrelationID != correlation {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestMemoryUpdatePendingTransactionStatus_OnlyFromPending(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	entry := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusPending}
	if err := repo.InsertTransaction(ctx, entry); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := repo.UpdatePendingTransactionStatus(ctx, entry.ID, domain.TransactionStatusCompleted); err != nil {
		t.Fatalf("pending -> completed failed: %v", err)
	}
	if err := repo.UpdatePendingTransactionStatus(ctx, entry.ID, domain.TransactionStatusFailed); !errors.Is(err, ErrTransactionNotPending) {
		t.Fatalf("expected completed entry to be immutable, got %v", err)
	}
	if err := repo.UpdatePendingTransactionStatus(ctx, uuid.New(), domain.TransactionStatusFailed); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestMemoryClaimBillPayment_SingleWinnerAndStaleReclaim(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return now })
	ctx := context.Background()

	payment := &domain.BillPayment{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Amount:      100,
		PaymentDate: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Status:      domain.BillPaymentStatusScheduled,
		UpdatedAt:   now,
	}
	if err := repo.CreateBillPayment(ctx, payment); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	staleBefore := now.Add(-15 * time.Minute)
	if _, err := repo.ClaimBillPayment(ctx, payment.ID, staleBefore); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := repo.ClaimBillPayment(ctx, payment.ID, staleBefore); !errors.Is(err, ErrBillPaymentNotClaimable) {
		t.Fatalf("expected second claim to lose, got %v", err)
	}

	later := now.Add(time.Hour)
	if _, err := repo.ClaimBillPayment(ctx, payment.ID, later.Add(-15*time.Minute)); err != nil {
		t.Fatalf("expected stale processing payment to be reclaimable, got %v", err)
	}

	changed, err := repo.CompleteBillPayment(ctx, payment.ID, uuid.New())
	if err != nil || !changed {
		t.Fatalf("expected completion to apply, changed=%t err=%v", changed, err)
	}
	changed, _ = repo.FailBillPayment(ctx, payment.ID, "late failure")
	if changed {
		t.Fatalf("terminal payment must not change again")
	}
}

func TestMemoryCreateBillPayment_RejectsDuplicateOccurrence(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	previous := uuid.New()

	first := &domain.BillPayment{ID: uuid.New(), PreviousPaymentID: &previous}
	second := &domain.BillPayment{ID: uuid.New(), PreviousPaymentID: &previous}
	if err := repo.CreateBillPayment(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.CreateBillPayment(ctx, second); !errors.Is(err, ErrBillPaymentExists) {
		t.Fatalf("expected ErrBillPaymentExists, got %v", err)
	}
}

func TestMemoryListTransactions_FiltersAndOrders(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	owner := uuid.New()
	account := seedMemoryAccount(t, repo, owner, 0)
	foreign := seedMemoryAccount(t, repo, uuid.New(), 0)

	base := time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
	entries := []domain.Transaction{
		{ID: uuid.New(), AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: 100, Description: "Salary", ReferenceNumber: "TXN-A", TransactionDate: base},
		{ID: uuid.New(), AccountID: account.ID, Type: domain.TransactionTypeTransfer, Amount: -40, Description: "Transfer to Savings", ReferenceNumber: "TXN-B", TransactionDate: base.Add(time.Hour)},
		{ID: uuid.New(), AccountID: foreign.ID, Type: domain.TransactionTypeDeposit, Amount: 1, Description: "Salary", ReferenceNumber: "TXN-C", TransactionDate: base},
	}
	for i := range entries {
		if err := repo.InsertTransaction(ctx, &entries[i]); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	all, _ := repo.ListTransactions(ctx, owner, domain.TransactionFilter{Limit: 100})
	if len(all) != 2 || all[0].ReferenceNumber != "TXN-B" {
		t.Fatalf("expected owner entries newest first, got %+v", all)
	}

	search, _ := repo.ListTransactions(ctx, owner, domain.TransactionFilter{Search: "salary", Limit: 100})
	if len(search) != 1 || search[0].ReferenceNumber != "TXN-A" {
		t.Fatalf("expected search to match description case-insensitively, got %+v", search)
	}

	byType, _ := repo.ListTransactions(ctx, owner, domain.TransactionFilter{Type: domain.TransactionTypeTransfer, Limit: 100})
	if len(byType) != 1 || byType[0].Amount != -40 {
		t.Fatalf("expected type filter to keep the transfer only, got %+v", byType)
	}
}

func TestMemorySupportTicketMessage_TouchesTicket(t *testing.T) {
	repo := NewMemoryRepository()
	created := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	touched := created.Add(2 * time.Hour)
	repo.SetClock(func() time.Time { return touched })
	ctx := context.Background()
	owner := uuid.New()

	ticket := &domain.SupportTicket{ID: uuid.New(), OwnerID: owner, Status: domain.TicketStatusOpen, CreatedAt: created, UpdatedAt: created}
	if err := repo.CreateSupportTicket(ctx, ticket); err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}
	if err := repo.CreateSupportTicketMessage(ctx, &domain.SupportTicketMessage{ID: uuid.New(), TicketID: ticket.ID, OwnerID: owner, Message: "hello", CreatedAt: touched}); err != nil {
		t.Fatalf("create message failed: %v", err)
	}

	got, err := repo.GetSupportTicket(ctx, ticket.ID, owner)
	if err != nil {
		t.Fatalf("get ticket failed: %v", err)
	}
	if !got.UpdatedAt.Equal(touched) {
		t.Fatalf("expected updated_at %s, got %s", touched, got.UpdatedAt)
	}
	if err := repo.CreateSupportTicketMessage(ctx, &domain.SupportTicketMessage{ID: uuid.New(), TicketID: uuid.New()}); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestMemoryPurgeIdempotencyRecords_KeepsReservations(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	owner := uuid.New()
	expired := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.IdempotencyRecord{
		{OwnerID: owner, Key: "done", RequestHash: "h", Status: domain.IdempotencyStatusCompleted, CreatedAt: expired, UpdatedAt: expired},
		{OwnerID: owner, Key: "stuck", RequestHash: "h", Status: domain.IdempotencyStatusProcessing, CreatedAt: expired, UpdatedAt: expired},
	}
	for _, rec := range records {
		if err := repo.InsertIdempotencyRecord(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.Key, err)
		}
	}

	purged, err := repo.PurgeIdempotencyRecords(ctx, expired.AddDate(0, 0, 7))
	if err != nil || purged != 1 {
		t.Fatalf("PurgeIdempotencyRecords = %d, %v; want 1", purged, err)
	}
	if _, err := repo.FindIdempotencyRecord(ctx, owner, "done"); !errors.Is(err, ErrIdempotencyRecordNotFound) {
		t.Fatalf("expected completed record purged, got %v", err)
	}
	if _, err := repo.FindIdempotencyRecord(ctx, owner, "stuck"); err != nil {
		t.Fatalf("processing reservation must survive the purge: %v", err)
	}
}
