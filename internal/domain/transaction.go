package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeTransfer   = "transfer"
	TransactionTypePayment    = "payment"
	TransactionTypeFee        = "fee"
	TransactionTypeInterest   = "interest"
	TransactionTypeRefund     = "refund"
	TransactionTypeAdjustment = "adjustment"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusRejected  = "rejected"
)

const (
	MaxDescriptionLength    = 255
	MaxIdempotencyKeyLength = 128
	DefaultHistoryLimit     = 100
	MaxHistoryLimit         = 500
)

// Transaction is one immutable ledger entry on a single account.
// The two legs of a transfer share CorrelationID and their amounts sum to zero.
type Transaction struct {
	ID                       uuid.UUID  `json:"id"`
	AccountID                uuid.UUID  `json:"account_id"`
	Type                     string     `json:"transaction_type"`
	Amount                   int64      `json:"amount"` // signed, in cents
	Description              string     `json:"description"`
	CounterpartyAccountID    *uuid.UUID `json:"recipient_account_id,omitempty"`
	RecipientExternalAccount *string    `json:"recipient_external_account,omitempty"`
	ReferenceNumber          string     `json:"reference_number"`
	CorrelationID            uuid.UUID  `json:"correlation_id"`
	Status                   string     `json:"status"`
	BalanceAfter             int64      `json:"balance_after_transaction"`
	AccountVersion           int64      `json:"account_version"`
	TransactionDate          time.Time  `json:"transaction_date"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// SignedAmount derives the ledger sign of amount from the transaction type.
// Credits (deposit, interest, refund) are positive, debits (withdrawal, transfer,
// payment, fee) are negative, and adjustments keep the caller's sign.
func SignedAmount(txType string, amount int64) (int64, error) {
	magnitude := amount
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch txType {
	case TransactionTypeDeposit, TransactionTypeInterest, TransactionTypeRefund:
		return magnitude, nil
	case TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypePayment, TransactionTypeFee:
		return -magnitude, nil
	case TransactionTypeAdjustment:
		return amount, nil
	default:
		return 0, NewValidationError("transaction_type", fmt.Sprintf("unknown type %q", txType))
	}
}

// ValidTransactionType reports whether t is a known ledger entry type.
func ValidTransactionType(t string) bool {
	_, err := SignedAmount(t, 1)
	return err == nil
}

// TransactionFilter narrows the transaction history listing.
type TransactionFilter struct {
	AccountID *uuid.UUID
	Type      string
	From      *time.Time
	To        *time.Time
	Search    string
	Limit     int
}

// Normalize clamps the limit and trims the search term.
func (f TransactionFilter) Normalize() (TransactionFilter, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Type = strings.TrimSpace(strings.ToLower(f.Type))
	if f.Type != "" && !ValidTransactionType(f.Type) {
		return f, NewValidationError("type", "unknown transaction type")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, NewValidationError("to", "must not be before from")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	return f, nil
}

// TransferRequest is a validated instruction to move Amount from the source
// account to the destination account.
type TransferRequest struct {
	SourceAccountID      uuid.UUID `json:"source_account_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	Amount               int64     `json:"amount"` // in cents
	Description          string    `json:"description"`
	IdempotencyKey       string    `json:"-"`

	// Settlement overrides used by bill payment execution.
	DebitType                string  `json:"-"`
	RecipientExternalAccount *string `json:"-"`
}

// NewTransferRequest builds and validates a customer transfer request.
func NewTransferRequest(source, destination uuid.UUID, amount int64, description, idempotencyKey string) (TransferRequest, error) {
	req := TransferRequest{
		SourceAccountID:      source,
		DestinationAccountID: destination,
		Amount:               amount,
		Description:          strings.TrimSpace(description),
		IdempotencyKey:       strings.TrimSpace(idempotencyKey),
	}
	return req, req.Validate()
}

// Validate checks the request shape. Balance and status checks need storage and happen later.
func (r TransferRequest) Validate() error {
	if r.SourceAccountID == uuid.Nil {
		return NewValidationError("source_account_id", "is required")
	}
	if r.DestinationAccountID == uuid.Nil {
		return NewValidationError("destination_account_id", "is required")
	}
	if r.SourceAccountID == r.DestinationAccountID {
		return NewValidationError("destination_account_id", "must differ from the source account")
	}
	if r.Amount <= 0 {
		return NewValidationError("amount", "must be greater than zero")
	}
	if len(r.Description) > MaxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return NewValidationError("idempotency_key", fmt.Sprintf("must be at most %d characters", MaxIdempotencyKeyLength))
	}
	switch r.DebitType {
	case "", TransactionTypeTransfer, TransactionTypePayment:
	default:
		return NewValidationError("debit_type", "must be transfer or payment")
	}
	return nil
}

// TruncateDescription cuts text to MaxDescriptionLength bytes without splitting a rune.
func TruncateDescription(text string) string {
	if len(text) <= MaxDescriptionLength {
		return text
	}
	cut := MaxDescriptionLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// DebitEntryType returns the ledger type of the source leg.
func (r TransferRequest) DebitEntryType() string {
	if r.DebitType == "" {
		return TransactionTypeTransfer
	}
	return r.DebitType
}

// Fingerprint hashes the fields that define the request so a reused idempotency
// key can be told apart from a genuine retry.
func (r TransferRequest) Fingerprint() string {
	external := ""
	if r.RecipientExternalAccount != nil {
		external = *r.RecipientExternalAccount
	}
	raw := strings.Join([]string{
		r.SourceAccountID.String(),
		r.DestinationAccountID.String(),
		fmt.Sprintf("%d", r.Amount),
		r.Description,
		r.DebitEntryType(),
		external,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TransferResult is the outcome of a transfer: the debit and credit legs.
type TransferResult struct {
	CorrelationID uuid.UUID   `json:"correlation_id"`
	Debit         Transaction `json:"debit"`
	Credit        Transaction `json:"credit"`
	Replayed      bool        `json:"replayed"`
}

const (
	IdempotencyStatusProcessing = "processing"
	IdempotencyStatusCompleted  = "completed"
)

// IdempotencyRecord remembers the outcome of a keyed transfer request per owner.
type IdempotencyRecord struct {
	OwnerID       uuid.UUID  `json:"user_id"`
	Key           string     `json:"key"`
	RequestHash   string     `json:"request_hash"`
	Status        string     `json:"status"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Statement summarizes an account over a period.
type Statement struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	PeriodStart    time.Time `json:"start_date"`
	PeriodEnd      time.Time `json:"end_date"`
	StatementDate  time.Time `json:"statement_date"`
	OpeningBalance int64     `json:"opening_balance"`
	ClosingBalance int64     `json:"closing_balance"`
	CreatedAt      time.Time `json:"created_at"`
}
