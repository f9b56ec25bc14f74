package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Transactor = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
	_ Transactor = (*PostgresRepository)(nil)
)

// The methods below serialize access to the committed state.

func (m *MemoryRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAccount(ctx, accountID)
}

func (m *MemoryRepository) GetAccountForOwner(ctx context.Context, accountID uuid.UUID, ownerID uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAccountForOwner(ctx, accountID, ownerID)
}

func (m *MemoryRepository) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListAccountsByOwner(ctx, ownerID)
}

func (m *MemoryRepository) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateAccountBalance(ctx, accountID, delta, expectedVersion)
}

func (m *MemoryRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.InsertTransaction(ctx, tx)
}

func (m *MemoryRepository) UpdatePendingTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdatePendingTransactionStatus(ctx, transactionID, status)
}

func (m *MemoryRepository) FindTransactionsByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FindTransactionsByCorrelationID(ctx, correlationID)
}

func (m *MemoryRepository) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListTransactions(ctx, ownerID, filter)
}

func (m *MemoryRepository) FindLatestCompletedTransaction(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FindLatestCompletedTransaction(ctx, accountID)
}

func (m *MemoryRepository) SumCompletedAmountsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SumCompletedAmountsSince(ctx, accountID, since)
}

func (m *MemoryRepository) FindIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FindIdempotencyRecord(ctx, ownerID, key)
}

func (m *MemoryRepository) InsertIdempotencyRecord(ctx context.Context, record *domain.IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.InsertIdempotencyRecord(ctx, record)
}

func (m *MemoryRepository) CompleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string, correlationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CompleteIdempotencyRecord(ctx, ownerID, key, correlationID)
}

func (m *MemoryRepository) DeleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteIdempotencyRecord(ctx, ownerID, key)
}

func (m *MemoryRepository) PurgeIdempotencyRecords(ctx context.Context, completedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.PurgeIdempotencyRecords(ctx, completedBefore)
}

func (m *MemoryRepository) CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateBeneficiary(ctx, beneficiary)
}

func (m *MemoryRepository) GetBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) (*domain.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetBeneficiary(ctx, beneficiaryID, ownerID)
}

func (m *MemoryRepository) ListBeneficiaries(ctx context.Context, ownerID uuid.UUID) ([]domain.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListBeneficiaries(ctx, ownerID)
}

func (m *MemoryRepository) UpdateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateBeneficiary(ctx, beneficiary)
}

func (m *MemoryRepository) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteBeneficiary(ctx, beneficiaryID, ownerID)
}

func (m *MemoryRepository) CreateBillPayment(ctx context.Context, payment *domain.BillPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateBillPayment(ctx, payment)
}

func (m *MemoryRepository) GetBillPayment(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetBillPayment(ctx, paymentID)
}

func (m *MemoryRepository) GetBillPaymentForOwner(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (*domain.BillPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetBillPaymentForOwner(ctx, paymentID, ownerID)
}

func (m *MemoryRepository) ListBillPayments(ctx context.Context, ownerID uuid.UUID) ([]domain.BillPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListBillPayments(ctx, ownerID)
}

func (m *MemoryRepository) ListDueBillPayments(ctx context.Context, asOf time.Time, staleBefore time.Time, limit int) ([]domain.BillPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListDueBillPayments(ctx, asOf, staleBefore, limit)
}

func (m *MemoryRepository) ClaimBillPayment(ctx context.Context, paymentID uuid.UUID, staleBefore time.Time) (*domain.BillPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ClaimBillPayment(ctx, paymentID, staleBefore)
}

func (m *MemoryRepository) CompleteBillPayment(ctx context.Context, paymentID uuid.UUID, transactionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CompleteBillPayment(ctx, paymentID, transactionID)
}

func (m *MemoryRepository) FailBillPayment(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FailBillPayment(ctx, paymentID, reason)
}

func (m *MemoryRepository) DeleteScheduledBillPayment(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteScheduledBillPayment(ctx, paymentID, ownerID)
}

func (m *MemoryRepository) CreateSupportTicket(ctx context.Context, ticket *domain.SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateSupportTicket(ctx, ticket)
}

func (m *MemoryRepository) GetSupportTicket(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID) (*domain.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetSupportTicket(ctx, ticketID, ownerID)
}

func (m *MemoryRepository) ListSupportTickets(ctx context.Context, ownerID uuid.UUID) ([]domain.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListSupportTickets(ctx, ownerID)
}

func (m *MemoryRepository) UpdateSupportTicketStatus(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID, status string, resolvedAt *time.Time) (*domain.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateSupportTicketStatus(ctx, ticketID, ownerID, status, resolvedAt)
}

func (m *MemoryRepository) CreateSupportTicketMessage(ctx context.Context, message *domain.SupportTicketMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateSupportTicketMessage(ctx, message)
}

func (m *MemoryRepository) ListSupportTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]domain.SupportTicketMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListSupportTicketMessages(ctx, ticketID)
}

func (m *MemoryRepository) CreateStatement(ctx context.Context, statement *domain.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateStatement(ctx, statement)
}

func (m *MemoryRepository) ListStatements(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListStatements(ctx, accountID)
}
