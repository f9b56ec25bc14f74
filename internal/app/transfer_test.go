package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

var testNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) byRoutingKey(key string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.routingKey == key {
			out = append(out, e)
		}
	}
	return out
}

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (a *recordingAlerter) Alert(ctx context.Context, subject, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
	return nil
}

func newMemoryRepo() *store.MemoryRepository {
	repo := store.NewMemoryRepository()
	repo.SetClock(fixedNow)
	return repo
}

func seedAccount(repo *store.MemoryRepository, ownerID uuid.UUID, name, accountType string, balance int64) domain.Account {
	account := domain.Account{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		AccountName:      name,
		AccountNumber:    "10" + uuid.NewString()[:8],
		Type:             accountType,
		Status:           domain.AccountStatusActive,
		Balance:          balance,
		AvailableBalance: balance,
		OpenedDate:       testNow.AddDate(-1, 0, 0),
		Version:          1,
		CreatedAt:        testNow.AddDate(-1, 0, 0),
		UpdatedAt:        testNow.AddDate(-1, 0, 0),
	}
	repo.SeedAccount(account)
	return account
}

func newTestTransferService(repo store.Repository, mode string, opts TransferOptions) *TransferService {
	opts.Mode = mode
	opts.Logger = zerolog.Nop()
	opts.Now = fixedNow
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = time.Millisecond
	}
	svc := NewTransferService(repo, nil, opts)
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func balanceOf(t *testing.T, repo store.Repository, accountID uuid.UUID) int64 {
	t.Helper()
	account, err := repo.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("load account %s: %v", accountID, err)
	}
	return account.Balance
}

func entriesOf(t *testing.T, repo store.Repository, ownerIDs ...uuid.UUID) []domain.Transaction {
	t.Helper()
	var out []domain.Transaction
	for _, ownerID := range ownerIDs {
		entries, err := repo.ListTransactions(context.Background(), ownerID, domain.TransactionFilter{Limit: domain.MaxHistoryLimit})
		if err != nil {
			t.Fatalf("list transactions: %v", err)
		}
		out = append(out, entries...)
	}
	return out
}

var modes = []string{ModeTransaction, ModeSaga}

func TestTransfer_ScenarioMovesFundsAndPairsEntries(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			repo := newMemoryRepo()
			alice, bob := uuid.New(), uuid.New()
			a := seedAccount(repo, alice, "Alice Checking", domain.AccountTypeChecking, 1000)
			b := seedAccount(repo, bob, "Bob Savings", domain.AccountTypeSavings, 200)
			svc := newTestTransferService(repo, mode, TransferOptions{})
			if svc.Mode() != mode {
				t.Fatalf("expected mode %s, got %s", mode, svc.Mode())
			}

			req, err := domain.NewTransferRequest(a.ID, b.ID, 300, "rent share", "")
			if err != nil {
				t.Fatalf("NewTransferRequest: %v", err)
			}
			result, err := svc.Transfer(context.Background(), alice, req)
			if err != nil {
				t.Fatalf("Transfer returned error: %v", err)
			}

			if got := balanceOf(t, repo, a.ID); got != 700 {
				t.Fatalf("expected A balance 700, got %d", got)
			}
			if got := balanceOf(t, repo, b.ID); got != 500 {
				t.Fatalf("expected B balance 500, got %d", got)
			}

			entries := entriesOf(t, repo, alice, bob)
			if len(entries) != 2 {
				t.Fatalf("expected 2 ledger entries, got %d", len(entries))
			}
			var sum int64
			for _, e := range entries {
				if e.CorrelationID != result.CorrelationID {
					t.Fatalf("entry %s has correlation %s, want %s", e.ID, e.CorrelationID, result.CorrelationID)
				}
				if e.Status != domain.TransactionStatusCompleted {
					t.Fatalf("expected completed entry, got %s", e.Status)
				}
				sum += e.Amount
			}
			if sum != 0 {
				t.Fatalf("expected entry amounts to sum to zero, got %d", sum)
			}
			if result.Debit.Amount != -300 || result.Debit.BalanceAfter != 700 || result.Debit.Type != domain.TransactionTypeTransfer {
				t.Fatalf("unexpected debit entry %+v", result.Debit)
			}
			if result.Credit.Amount != 300 || result.Credit.BalanceAfter != 500 || result.Credit.Type != domain.TransactionTypeDeposit {
				t.Fatalf("unexpected credit entry %+v", result.Credit)
			}
			if result.Debit.Description != "Transfer to Bob Savings - rent share" {
				t.Fatalf("unexpected debit description %q", result.Debit.Description)
			}

			for _, id := range []uuid.UUID{a.ID, b.ID} {
				report, err := NewHistoryService(repo, fixedNow).VerifyAccount(context.Background(), id)
				if err != nil {
					t.Fatalf("VerifyAccount: %v", err)
				}
				if !report.Consistent() {
					t.Fatalf("expected balance to match latest snapshot, drift %d", report.Drift)
				}
			}
		})
	}
}

func TestTransfer_InsufficientFundsPersistsNothing(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			repo := newMemoryRepo()
			alice, bob := uuid.New(), uuid.New()
			a := seedAccount(repo, alice, "Alice", domain.AccountTypeChecking, 100)
			b := seedAccount(repo, bob, "Bob", domain.AccountTypeChecking, 0)
			svc := newTestTransferService(repo, mode, TransferOptions{})

			req, _ := domain.NewTransferRequest(a.ID, b.ID, 300, "", "key-1")
			_, err := svc.Transfer(context.Background(), alice, req)
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("expected ErrInsufficientFunds, got %v", err)
			}
			if got := balanceOf(t, repo, a.ID); got != 100 {
				t.Fatalf("expected A balance to stay 100, got %d", got)
			}
			if entries := entriesOf(t, repo, alice, bob); len(entries) != 0 {
				t.Fatalf("expected zero ledger entries, got %d", len(entries))
			}
			if _, err := repo.FindIdempotencyRecord(context.Background(), alice, "key-1"); !errors.Is(err, store.ErrIdempotencyRecordNotFound) {
				t.Fatalf("expected idempotency key to be released, got %v", err)
			}
		})
	}
}

func TestTransfer_CreditAccountMayGoNegative(t *testing.T) {
	repo := newMemoryRepo()
	alice := uuid.New()
	card := seedAccount(repo, alice, "Card", domain.AccountTypeCredit, 0)
	checking := seedAccount(repo, alice, "Checking", domain.AccountTypeChecking, 0)
	svc := newTestTransferService(repo, ModeTransaction, TransferOptions{})

	req, _ := domain.NewTransferRequest(card.ID, checking.ID, 250, "cash advance", "")
	if _, err := svc.Transfer(context.Background(), alice, req); err != nil {
		t.Fatalf("Transfer returned error: %v", err)
	}
	if got := balanceOf(t, repo, card.ID); got != -250 {
		t.Fatalf("expected credit balance -250, got %d", got)
	}
}

func TestTransfer_ConservesFunds(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			repo := newMemoryRepo()
			alice, bob := uuid.New(), uuid.New()
			a := seedAccount(repo, alice, "A", domain.AccountTypeChecking, 5000)
			b := seedAccount(repo, bob, "B", domain.AccountTypeChecking, 1234)
			svc := newTestTransferService(repo, mode, TransferOptions{})

			total := balanceOf(t, repo, a.ID) + balanceOf(t, repo, b.ID)
			for _, amount := range []int64{1, 99, 250, 1000, 3650} {
				req, _ := domain.NewTransferRequest(a.ID, b.ID, amount, "", "")
				_, err := svc.Transfer(context.Background(), alice, req)
				if err != nil && !errors.Is(err, ErrInsufficientFunds) {
					t.Fatalf("transfer of %d: %v", amount, err)
				}
				if got := balanceOf(t, repo, a.ID) + balanceOf(t, repo, b.ID); got != total {
					t.Fatalf("after transfer of %d: total %d, want %d", amount, got, total)
				}
			}
		})
	}
}

func TestTransfer_IdempotentReplay(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			repo := newMemoryRepo()
			alice, bob := uuid.New(), uuid.New()
			a := seedAccount(repo, alice, "A", domain.AccountTypeChecking, 1000)
			b := seedAccount(repo, bob, "B", domain.AccountTypeChecking, 0)
			pub := &recordingPublisher{}
			svc := newTestTransferService(repo, mode, TransferOptions{})
			svc.publisher = pub

			req, _ := domain.NewTransferRequest(a.ID, b.ID, 400, "invoice 7", "idem-7")
			first, err := svc.Transfer(context.Background(), alice, req)
			if err != nil {
				t.Fatalf("first transfer: %v", err)
			}
			second, err := svc.Transfer(context.Background(), alice, req)
			if err != nil {
				t.Fatalf("replayed transfer: %v", err)
			}

			if first.Replayed || !second.Replayed {
				t.Fatalf("expected only the second result to be a replay: %v %v", first.Replayed, second.Replayed)
			}
			if second.CorrelationID != first.CorrelationID || second.Debit.ID != first.Debit.ID || second.Credit.ID != first.Credit.ID {
				t.Fatalf("replay returned different entries")
			}
			if got := balanceOf(t, repo, a.ID); got != 600 {
				t.Fatalf("expected one debit, balance 600, got %d", got)
			}
			if entries := entriesOf(t, repo, alice, bob); len(entries) != 2 {
				t.Fatalf("expected exactly one pair of entries, got %d", len(entries))
			}
			if events := pub.byRoutingKey(domain.RoutingKeyTransferCompleted); len(events) != 1 {
				t.Fatalf("expected one completed event, got %d", len(events))
			}

			changed := req
			changed.Amount = 401
			_, err = svc.Transfer(context.Background(), alice, changed)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error for reused key, got %v", err)
			}
		})
	}
}

func TestTransfer_KeyInUseWhileFirstRequestRuns(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(repo, bob, "B", domain.AccountTypeChecking, 0)
	svc := newTestTransferService(repo, ModeSaga, TransferOptions{})

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 10, "", "busy")
	err := repo.InsertIdempotencyRecord(context.Background(), &domain.IdempotencyRecord{
		OwnerID: alice, Key: "busy", RequestHash: req.Fingerprint(), Status: domain.IdempotencyStatusProcessing,
		CreatedAt: testNow, UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	_, err = svc.Transfer(context.Background(), alice, req)
	if !errors.Is(err, ErrIdempotencyKeyInUse) {
		t.Fatalf("expected ErrIdempotencyKeyInUse, got %v", err)
	}
}

func TestTransfer_ConcurrentDrainSerializes(t *testing.T) {
	const n = 20
	const amount = 50

	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			repo := newMemoryRepo()
			alice := uuid.New()
			source := seedAccount(repo, alice, "Source", domain.AccountTypeChecking, n*amount)
			destinations := make([]domain.Account, n)
			for i := range destinations {
				destinations[i] = seedAccount(repo, uuid.New(), fmt.Sprintf("Dest %d", i), domain.AccountTypeChecking, 0)
			}
			svc := newTestTransferService(repo, mode, TransferOptions{MaxConflictRetries: n})

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(dst uuid.UUID) {
					defer wg.Done()
					req, _ := domain.NewTransferRequest(source.ID, dst, amount, "", "")
					if _, err := svc.Transfer(context.Background(), alice, req); err != nil {
						errs <- err
					}
				}(destinations[i].ID)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("concurrent transfer failed: %v", err)
			}

			if got := balanceOf(t, repo, source.ID); got != 0 {
				t.Fatalf("expected drained source balance 0, got %d", got)
			}
			var credited int64
			for _, d := range destinations {
				credited += balanceOf(t, repo, d.ID)
			}
			if credited != n*amount {
				t.Fatalf("expected %d credited in total, got %d", n*amount, credited)
			}
		})
	}
}

// failingBalanceRepo fails balance updates selected by shouldFail. It embeds
// only store.Repository, so transfers through it run in saga mode.
type failingBalanceRepo struct {
	store.Repository
	shouldFail func(accountID uuid.UUID, delta int64) error
	calls      int
}

func (r *failingBalanceRepo) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error) {
	r.calls++
	if err := r.shouldFail(accountID, delta); err != nil {
		return nil, err
	}
	return r.Repository.UpdateAccountBalance(ctx, accountID, delta, expectedVersion)
}

func TestTransfer_SagaCompensatesFailedCredit(t *testing.T) {
	mem := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(mem, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(mem, bob, "B", domain.AccountTypeChecking, 200)
	repo := &failingBalanceRepo{Repository: mem, shouldFail: func(id uuid.UUID, delta int64) error {
		if id == b.ID {
			return errors.New("storage unavailable")
		}
		return nil
	}}
	svc := newTestTransferService(repo, ModeTransaction, TransferOptions{})
	if svc.Mode() != ModeSaga {
		t.Fatalf("expected saga mode for a store without transactions, got %s", svc.Mode())
	}

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 300, "", "comp-1")
	_, err := svc.Transfer(context.Background(), alice, req)
	if !errors.Is(err, ErrPartialFailureRecovered) {
		t.Fatalf("expected ErrPartialFailureRecovered, got %v", err)
	}
	var partial *PartialFailureError
	if !errors.As(err, &partial) || partial.Cause == nil || partial.Cause.Error() != "storage unavailable" {
		t.Fatalf("expected partial failure carrying the cause, got %#v", err)
	}

	if got := balanceOf(t, mem, a.ID); got != 1000 {
		t.Fatalf("expected source restored to 1000, got %d", got)
	}
	if got := balanceOf(t, mem, b.ID); got != 200 {
		t.Fatalf("expected destination unchanged at 200, got %d", got)
	}
	var reversals int
	for _, e := range entriesOf(t, mem, alice, bob) {
		if e.Type == domain.TransactionTypeAdjustment {
			reversals++
			if e.Status != domain.TransactionStatusCompleted || e.Amount != 300 || e.BalanceAfter != 1000 || e.CorrelationID != partial.CorrelationID {
				t.Fatalf("unexpected reversal entry: %+v", e)
			}
			continue
		}
		if e.Status != domain.TransactionStatusFailed {
			t.Fatalf("expected compensated entries to be failed, got %s", e.Status)
		}
	}
	if reversals != 1 {
		t.Fatalf("expected one reversal entry, got %d", reversals)
	}
	if _, err := mem.FindIdempotencyRecord(context.Background(), alice, "comp-1"); !errors.Is(err, store.ErrIdempotencyRecordNotFound) {
		t.Fatalf("expected reservation to be released after a recovered failure, got %v", err)
	}
}

func TestTransfer_SagaCompensationKeepsLedgerConsistent(t *testing.T) {
	mem := newMemoryRepo()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	a := seedAccount(mem, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(mem, bob, "B", domain.AccountTypeChecking, 200)
	c := seedAccount(mem, carol, "C", domain.AccountTypeChecking, 0)

	// A second transfer out of A settles between the failing transfer's debit
	// and its compensation.
	other := newTestTransferService(mem, ModeSaga, TransferOptions{})
	interleaved := false
	repo := &failingBalanceRepo{Repository: mem, shouldFail: func(id uuid.UUID, delta int64) error {
		if id != b.ID {
			return nil
		}
		if !interleaved {
			interleaved = true
			req, _ := domain.NewTransferRequest(a.ID, c.ID, 100, "", "")
			if _, err := other.Transfer(context.Background(), alice, req); err != nil {
				t.Errorf("interleaved transfer failed: %v", err)
			}
		}
		return errors.New("storage unavailable")
	}}
	svc := newTestTransferService(repo, ModeSaga, TransferOptions{})

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 300, "", "")
	if _, err := svc.Transfer(context.Background(), alice, req); !errors.Is(err, ErrPartialFailureRecovered) {
		t.Fatalf("expected ErrPartialFailureRecovered, got %v", err)
	}
	if got := balanceOf(t, mem, a.ID); got != 900 {
		t.Fatalf("expected source at 900 after the interleaved transfer, got %d", got)
	}

	history := NewHistoryService(mem, fixedNow)
	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
		report, err := history.VerifyAccount(context.Background(), id)
		if err != nil {
			t.Fatalf("VerifyAccount(%s): %v", id, err)
		}
		if !report.Consistent() {
			t.Fatalf("account %s drifted after compensation: balance=%d drift=%d", id, report.Balance, report.Drift)
		}
	}
}

func TestDescribe_TruncatesOnRuneBoundary(t *testing.T) {
	got := describe("Transfer to A", strings.Repeat("é", 127))
	if !utf8.ValidString(got) {
		t.Fatalf("description is not valid UTF-8")
	}
	if len(got) > domain.MaxDescriptionLength {
		t.Fatalf("description too long: %d bytes", len(got))
	}
}

func TestTransfer_SagaUnrecoveredEscalates(t *testing.T) {
	mem := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(mem, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(mem, bob, "B", domain.AccountTypeChecking, 200)
	repo := &failingBalanceRepo{Repository: mem, shouldFail: func(id uuid.UUID, delta int64) error {
		if id == b.ID || (id == a.ID && delta > 0) {
			return errors.New("storage unavailable")
		}
		return nil
	}}
	pub := &recordingPublisher{}
	alerter := &recordingAlerter{}
	svc := newTestTransferService(repo, ModeSaga, TransferOptions{Alerter: alerter})
	svc.publisher = pub
	svc.alerter = alerter

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 300, "", "comp-2")
	_, err := svc.Transfer(context.Background(), alice, req)
	if !errors.Is(err, ErrPartialFailureUnrecovered) {
		t.Fatalf("expected ErrPartialFailureUnrecovered, got %v", err)
	}
	if errors.Is(err, ErrPartialFailureRecovered) {
		t.Fatalf("unrecovered failure must not match the recovered sentinel")
	}
	if got := len(pub.byRoutingKey(domain.RoutingKeyReconciliationRequired)); got != 1 {
		t.Fatalf("expected one reconciliation event, got %d", got)
	}
	if len(alerter.subjects) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerter.subjects))
	}

	_, err = svc.Transfer(context.Background(), alice, req)
	if !errors.Is(err, ErrIdempotencyKeyInUse) {
		t.Fatalf("expected the key to stay reserved, got %v", err)
	}
}

func TestTransfer_ConflictRetriesAreBounded(t *testing.T) {
	mem := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(mem, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(mem, bob, "B", domain.AccountTypeChecking, 0)
	repo := &failingBalanceRepo{Repository: mem, shouldFail: func(uuid.UUID, int64) error {
		return store.ErrVersionConflict
	}}
	svc := newTestTransferService(repo, ModeSaga, TransferOptions{MaxConflictRetries: 2})

	req, _ := domain.NewTransferRequest(a.ID, b.ID, 10, "", "")
	_, err := svc.Transfer(context.Background(), alice, req)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after retries, got %v", err)
	}
	if repo.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.calls)
	}
	if got := balanceOf(t, mem, a.ID); got != 1000 {
		t.Fatalf("expected untouched balance, got %d", got)
	}
}

type stubLimiter struct {
	count      int
	retryAfter int
	err        error
}

func (s *stubLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return s.count, s.retryAfter, s.err
}

func TestTransfer_RateLimit(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "A", domain.AccountTypeChecking, 1000)
	b := seedAccount(repo, bob, "B", domain.AccountTypeChecking, 0)
	req, _ := domain.NewTransferRequest(a.ID, b.ID, 10, "", "")

	limited := newTestTransferService(repo, ModeTransaction, TransferOptions{RateLimiter: &stubLimiter{count: 6, retryAfter: 42}, RateLimitPerMinute: 5})
	_, err := limited.Transfer(context.Background(), alice, req)
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) || rateErr.RetryAfterSeconds != 42 || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected RateLimitError with retry after 42, got %v", err)
	}

	failOpen := newTestTransferService(repo, ModeTransaction, TransferOptions{RateLimiter: &stubLimiter{err: errors.New("redis down")}, RateLimitPerMinute: 5})
	if _, err := failOpen.Transfer(context.Background(), alice, req); err != nil {
		t.Fatalf("expected transfer to proceed when the limiter errors, got %v", err)
	}
}

func TestTransfer_RejectsInactiveAndForeignAccounts(t *testing.T) {
	repo := newMemoryRepo()
	alice, bob := uuid.New(), uuid.New()
	a := seedAccount(repo, alice, "A", domain.AccountTypeChecking, 1000)
	frozen := seedAccount(repo, bob, "Frozen", domain.AccountTypeChecking, 0)
	frozen.Status = domain.AccountStatusFrozen
	repo.SeedAccount(frozen)
	svc := newTestTransferService(repo, ModeTransaction, TransferOptions{})

	req, _ := domain.NewTransferRequest(a.ID, frozen.ID, 10, "", "")
	if _, err := svc.Transfer(context.Background(), alice, req); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for frozen destination, got %v", err)
	}

	req, _ = domain.NewTransferRequest(a.ID, frozen.ID, 10, "", "")
	if _, err := svc.Transfer(context.Background(), bob, req); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected not found when debiting another owner's account, got %v", err)
	}
}
