/**
 * @description
 * This file defines the repository contracts of the ledger service. Business
 * logic depends on these interfaces only, so the PostgreSQL and in-memory
 * implementations are interchangeable.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

var (
	ErrAccountNotFound           = errors.New("account not found")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrTransactionNotPending     = errors.New("transaction is not pending")
	ErrBeneficiaryNotFound       = errors.New("beneficiary not found")
	ErrBillPaymentNotFound       = errors.New("bill payment not found")
	ErrBillPaymentNotClaimable   = errors.New("bill payment is not claimable")
	ErrBillPaymentExists         = errors.New("bill payment occurrence already exists")
	ErrIdempotencyRecordNotFound = errors.New("idempotency record not found")
	ErrIdempotencyKeyExists      = errors.New("idempotency key already exists")
	ErrTicketNotFound            = errors.New("support ticket not found")
	ErrVersionConflict           = errors.New("account version conflict")
	ErrBalanceConstraint         = errors.New("balance would violate account constraint")
)

// AccountRepository reads accounts and applies versioned balance deltas.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	GetAccountForOwner(ctx context.Context, accountID uuid.UUID, ownerID uuid.UUID) (*domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	// UpdateAccountBalance applies delta to balance and available balance only when the
	// stored version equals expectedVersion. It returns ErrVersionConflict otherwise.
	UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error)
}

// LedgerRepository is append-only for completed entries.
type LedgerRepository interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdatePendingTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) error
	FindTransactionsByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error)
	FindLatestCompletedTransaction(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error)
	SumCompletedAmountsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
}

// IdempotencyRepository stores transfer idempotency keys, unique per owner.
type IdempotencyRepository interface {
	FindIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) (*domain.IdempotencyRecord, error)
	InsertIdempotencyRecord(ctx context.Context, record *domain.IdempotencyRecord) error
	CompleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string, correlationID uuid.UUID) error
	DeleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) error
	PurgeIdempotencyRecords(ctx context.Context, completedBefore time.Time) (int64, error)
}

type BeneficiaryRepository interface {
	CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error
	GetBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) (*domain.Beneficiary, error)
	ListBeneficiaries(ctx context.Context, ownerID uuid.UUID) ([]domain.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error
	DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) error
}

type BillPaymentRepository interface {
	CreateBillPayment(ctx context.Context, payment *domain.BillPayment) error
	GetBillPayment(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error)
	GetBillPaymentForOwner(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (*domain.BillPayment, error)
	ListBillPayments(ctx context.Context, ownerID uuid.UUID) ([]domain.BillPayment, error)
	// ListDueBillPayments returns scheduled payments dated on or before asOf, plus
	// processing payments that have not been touched since staleBefore.
	ListDueBillPayments(ctx context.Context, asOf time.Time, staleBefore time.Time, limit int) ([]domain.BillPayment, error)
	// ClaimBillPayment moves a scheduled (or stale processing) payment to processing.
	ClaimBillPayment(ctx context.Context, paymentID uuid.UUID, staleBefore time.Time) (*domain.BillPayment, error)
	CompleteBillPayment(ctx context.Context, paymentID uuid.UUID, transactionID uuid.UUID) (bool, error)
	FailBillPayment(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error)
	DeleteScheduledBillPayment(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (bool, error)
}

type SupportRepository interface {
	CreateSupportTicket(ctx context.Context, ticket *domain.SupportTicket) error
	GetSupportTicket(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID) (*domain.SupportTicket, error)
	ListSupportTickets(ctx context.Context, ownerID uuid.UUID) ([]domain.SupportTicket, error)
	UpdateSupportTicketStatus(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID, status string, resolvedAt *time.Time) (*domain.SupportTicket, error)
	// CreateSupportTicketMessage stores the message and touches the ticket's updated_at.
	CreateSupportTicketMessage(ctx context.Context, message *domain.SupportTicketMessage) error
	ListSupportTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]domain.SupportTicketMessage, error)
}

type StatementRepository interface {
	CreateStatement(ctx context.Context, statement *domain.Statement) error
	ListStatements(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error)
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	AccountRepository
	LedgerRepository
	IdempotencyRepository
	BeneficiaryRepository
	BillPaymentRepository
	SupportRepository
	StatementRepository
}

// Transactor is implemented by stores that can run several writes as one
// all-or-nothing unit. fn receives a Repository bound to the unit of work; a
// non-nil error from fn rolls everything back.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(repo Repository) error) error
}
