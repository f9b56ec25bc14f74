package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

// MemoryRepository is an in-memory implementation of Repository and Transactor.
// It is safe for concurrent use; RunInTx holds the lock for the whole unit of work
// and applies its changes only when fn succeeds. Data is lost on restart.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemoryState(time.Now)}
}

// SetClock overrides the time source used for timestamps.
func (m *MemoryRepository) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.now = now
}

// SeedAccount inserts or replaces an account. Account opening is outside the
// ledger, so this is how fixtures and local setups create accounts.
func (m *MemoryRepository) SeedAccount(account domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.accounts[account.ID] = account
}

// RunInTx runs fn against a private copy of the state and swaps it in on success.
func (m *MemoryRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memoryState struct {
	now           func() time.Time
	accounts      map[uuid.UUID]domain.Account
	transactions  []domain.Transaction
	idempotency   map[string]domain.IdempotencyRecord
	beneficiaries map[uuid.UUID]domain.Beneficiary
	billPayments  map[uuid.UUID]domain.BillPayment
	tickets       map[uuid.UUID]domain.SupportTicket
	messages      []domain.SupportTicketMessage
	statements    []domain.Statement
}

func newMemoryState(now func() time.Time) *memoryState {
	return &memoryState{
		now:           now,
		accounts:      map[uuid.UUID]domain.Account{},
		idempotency:   map[string]domain.IdempotencyRecord{},
		beneficiaries: map[uuid.UUID]domain.Beneficiary{},
		billPayments:  map[uuid.UUID]domain.BillPayment{},
		tickets:       map[uuid.UUID]domain.SupportTicket{},
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState(s.now)
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	c.transactions = append([]domain.Transaction(nil), s.transactions...)
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	for k, v := range s.beneficiaries {
		c.beneficiaries[k] = v
	}
	for k, v := range s.billPayments {
		c.billPayments[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	c.messages = append([]domain.SupportTicketMessage(nil), s.messages...)
	c.statements = append([]domain.Statement(nil), s.statements...)
	return c
}

func idempotencyMapKey(ownerID uuid.UUID, key string) string {
	return ownerID.String() + "|" + key
}

// Accounts

func (s *memoryState) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (s *memoryState) GetAccountForOwner(ctx context.Context, accountID uuid.UUID, ownerID uuid.UUID) (*domain.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (s *memoryState) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	out := []domain.Account{}
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedDate.Equal(out[j].OpenedDate) {
			return out[i].AccountNumber < out[j].AccountNumber
		}
		return out[i].OpenedDate.Before(out[j].OpenedDate)
	})
	return out, nil
}

func (s *memoryState) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error) {
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if a.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	balance := a.Balance + delta
	available := a.AvailableBalance + delta
	if !a.IsCredit() && (balance < 0 || available < 0) {
		return nil, ErrBalanceConstraint
	}
	now := s.now()
	a.Balance = balance
	a.AvailableBalance = available
	a.Version++
	a.LastActivityAt = &now
	a.UpdatedAt = now
	s.accounts[accountID] = a
	return &a, nil
}

// Ledger

func (s *memoryState) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *memoryState) UpdatePendingTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) error {
	for i := range s.transactions {
		if s.transactions[i].ID != transactionID {
			continue
		}
		if s.transactions[i].Status != domain.TransactionStatusPending {
			return ErrTransactionNotPending
		}
		s.transactions[i].Status = status
		s.transactions[i].UpdatedAt = s.now()
		return nil
	}
	return ErrTransactionNotFound
}

func (s *memoryState) FindTransactionsByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, tx := range s.transactions {
		if tx.CorrelationID == correlationID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

func (s *memoryState) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	search := strings.ToLower(filter.Search)
	out := []domain.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		account, ok := s.accounts[tx.AccountID]
		if !ok || account.OwnerID != ownerID {
			continue
		}
		if filter.AccountID != nil && tx.AccountID != *filter.AccountID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.From != nil && tx.TransactionDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.TransactionDate.After(*filter.To) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Description), search) &&
			!strings.Contains(strings.ToLower(tx.ReferenceNumber), search) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryState) FindLatestCompletedTransaction(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	var latest *domain.Transaction
	for i := range s.transactions {
		tx := s.transactions[i]
		if tx.AccountID != accountID || tx.Status != domain.TransactionStatusCompleted {
			continue
		}
		if latest == nil || tx.AccountVersion > latest.AccountVersion {
			latest = &tx
		}
	}
	if latest == nil {
		return nil, ErrTransactionNotFound
	}
	return latest, nil
}

func (s *memoryState) SumCompletedAmountsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	for _, tx := range s.transactions {
		if tx.AccountID == accountID && tx.Status == domain.TransactionStatusCompleted && !tx.TransactionDate.Before(since) {
			total += tx.Amount
		}
	}
	return total, nil
}

// Idempotency

func (s *memoryState) FindIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := s.idempotency[idempotencyMapKey(ownerID, key)]
	if !ok {
		return nil, ErrIdempotencyRecordNotFound
	}
	return &rec, nil
}

func (s *memoryState) InsertIdempotencyRecord(ctx context.Context, record *domain.IdempotencyRecord) error {
	k := idempotencyMapKey(record.OwnerID, record.Key)
	if _, exists := s.idempotency[k]; exists {
		return ErrIdempotencyKeyExists
	}
	s.idempotency[k] = *record
	return nil
}

func (s *memoryState) CompleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string, correlationID uuid.UUID) error {
	k := idempotencyMapKey(ownerID, key)
	rec, ok := s.idempotency[k]
	if !ok {
		return ErrIdempotencyRecordNotFound
	}
	rec.Status = domain.IdempotencyStatusCompleted
	rec.CorrelationID = &correlationID
	rec.UpdatedAt = s.now()
	s.idempotency[k] = rec
	return nil
}

func (s *memoryState) DeleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) error {
	k := idempotencyMapKey(ownerID, key)
	if rec, ok := s.idempotency[k]; ok && rec.Status == domain.IdempotencyStatusProcessing {
		delete(s.idempotency, k)
	}
	return nil
}

func (s *memoryState) PurgeIdempotencyRecords(ctx context.Context, completedBefore time.Time) (int64, error) {
	var purged int64
	for k, rec := range s.idempotency {
		if rec.Status == domain.IdempotencyStatusCompleted && rec.UpdatedAt.Before(completedBefore) {
			delete(s.idempotency, k)
			purged++
		}
	}
	return purged, nil
}

// Beneficiaries

func (s *memoryState) CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	s.beneficiaries[b.ID] = *b
	return nil
}

func (s *memoryState) GetBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) (*domain.Beneficiary, error) {
	b, ok := s.beneficiaries[beneficiaryID]
	if !ok || b.OwnerID != ownerID {
		return nil, ErrBeneficiaryNotFound
	}
	return &b, nil
}

func (s *memoryState) ListBeneficiaries(ctx context.Context, ownerID uuid.UUID) ([]domain.Beneficiary, error) {
	out := []domain.Beneficiary{}
	for _, b := range s.beneficiaries {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memoryState) UpdateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	existing, ok := s.beneficiaries[b.ID]
	if !ok || existing.OwnerID != b.OwnerID {
		return ErrBeneficiaryNotFound
	}
	s.beneficiaries[b.ID] = *b
	return nil
}

func (s *memoryState) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) error {
	existing, ok := s.beneficiaries[beneficiaryID]
	if !ok || existing.OwnerID != ownerID {
		return ErrBeneficiaryNotFound
	}
	delete(s.beneficiaries, beneficiaryID)
	return nil
}

// Bill payments

func (s *memoryState) CreateBillPayment(ctx context.Context, p *domain.BillPayment) error {
	if p.PreviousPaymentID != nil {
		for _, existing := range s.billPayments {
			if existing.PreviousPaymentID != nil && *existing.PreviousPaymentID == *p.PreviousPaymentID {
				return ErrBillPaymentExists
			}
		}
	}
	s.billPayments[p.ID] = *p
	return nil
}

func (s *memoryState) GetBillPayment(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error) {
	p, ok := s.billPayments[paymentID]
	if !ok {
		return nil, ErrBillPaymentNotFound
	}
	return &p, nil
}

func (s *memoryState) GetBillPaymentForOwner(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (*domain.BillPayment, error) {
	p, ok := s.billPayments[paymentID]
	if !ok || p.OwnerID != ownerID {
		return nil, ErrBillPaymentNotFound
	}
	return &p, nil
}

func sortBillPayments(out []domain.BillPayment) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
}

func (s *memoryState) ListBillPayments(ctx context.Context, ownerID uuid.UUID) ([]domain.BillPayment, error) {
	out := []domain.BillPayment{}
	for _, p := range s.billPayments {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sortBillPayments(out)
	return out, nil
}

func (s *memoryState) ListDueBillPayments(ctx context.Context, asOf time.Time, staleBefore time.Time, limit int) ([]domain.BillPayment, error) {
	out := []domain.BillPayment{}
	for _, p := range s.billPayments {
		due := p.Status == domain.BillPaymentStatusScheduled && !p.PaymentDate.After(asOf)
		stale := p.Status == domain.BillPaymentStatusProcessing && p.UpdatedAt.Before(staleBefore)
		if due || stale {
			out = append(out, p)
		}
	}
	sortBillPayments(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryState) ClaimBillPayment(ctx context.Context, paymentID uuid.UUID, staleBefore time.Time) (*domain.BillPayment, error) {
	p, ok := s.billPayments[paymentID]
	if !ok {
		return nil, ErrBillPaymentNotFound
	}
	claimable := p.Status == domain.BillPaymentStatusScheduled ||
		(p.Status == domain.BillPaymentStatusProcessing && p.UpdatedAt.Before(staleBefore))
	if !claimable {
		return nil, ErrBillPaymentNotClaimable
	}
	p.Status = domain.BillPaymentStatusProcessing
	p.UpdatedAt = s.now()
	s.billPayments[paymentID] = p
	return &p, nil
}

func (s *memoryState) CompleteBillPayment(ctx context.Context, paymentID uuid.UUID, transactionID uuid.UUID) (bool, error) {
	p, ok := s.billPayments[paymentID]
	if !ok || p.Status != domain.BillPaymentStatusProcessing {
		return false, nil
	}
	p.Status = domain.BillPaymentStatusCompleted
	p.TransactionID = &transactionID
	p.FailureReason = nil
	p.UpdatedAt = s.now()
	s.billPayments[paymentID] = p
	return true, nil
}

func (s *memoryState) FailBillPayment(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error) {
	p, ok := s.billPayments[paymentID]
	if !ok || p.Status != domain.BillPaymentStatusProcessing {
		return false, nil
	}
	p.Status = domain.BillPaymentStatusFailed
	p.FailureReason = &reason
	p.UpdatedAt = s.now()
	s.billPayments[paymentID] = p
	return true, nil
}

func (s *memoryState) DeleteScheduledBillPayment(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (bool, error) {
	p, ok := s.billPayments[paymentID]
	if !ok || p.OwnerID != ownerID || p.Status != domain.BillPaymentStatusScheduled {
		return false, nil
	}
	delete(s.billPayments, paymentID)
	return true, nil
}

// Support

func (s *memoryState) CreateSupportTicket(ctx context.Context, t *domain.SupportTicket) error {
	s.tickets[t.ID] = *t
	return nil
}

func (s *memoryState) GetSupportTicket(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID) (*domain.SupportTicket, error) {
	t, ok := s.tickets[ticketID]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrTicketNotFound
	}
	return &t, nil
}

func (s *memoryState) ListSupportTickets(ctx context.Context, ownerID uuid.UUID) ([]domain.SupportTicket, error) {
	out := []domain.SupportTicket{}
	for _, t := range s.tickets {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryState) UpdateSupportTicketStatus(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID, status string, resolvedAt *time.Time) (*domain.SupportTicket, error) {
	t, ok := s.tickets[ticketID]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrTicketNotFound
	}
	t.Status = status
	t.ResolvedAt = resolvedAt
	t.UpdatedAt = s.now()
	s.tickets[ticketID] = t
	return &t, nil
}

func (s *memoryState) CreateSupportTicketMessage(ctx context.Context, m *domain.SupportTicketMessage) error {
	t, ok := s.tickets[m.TicketID]
	if !ok {
		return ErrTicketNotFound
	}
	t.UpdatedAt = s.now()
	s.tickets[m.TicketID] = t
	s.messages = append(s.messages, *m)
	return nil
}

func (s *memoryState) ListSupportTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]domain.SupportTicketMessage, error) {
	out := []domain.SupportTicketMessage{}
	for _, m := range s.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Statements

func (s *memoryState) CreateStatement(ctx context.Context, statement *domain.Statement) error {
	s.statements = append(s.statements, *statement)
	return nil
}

func (s *memoryState) ListStatements(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	out := []domain.Statement{}
	for _, st := range s.statements {
		if st.AccountID == accountID {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StatementDate.After(out[j].StatementDate) })
	return out, nil
}
