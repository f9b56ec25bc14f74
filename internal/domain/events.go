package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the ledger events exchange.
const (
	RoutingKeyTransferCompleted      = "ledger.transfer.completed"
	RoutingKeyReconciliationRequired = "ledger.transfer.reconciliation_required"
	RoutingKeyBillPaymentDue         = "billpay.due"
	RoutingKeyBillPaymentCompleted   = "billpay.completed"
	RoutingKeyBillPaymentFailed      = "billpay.failed"
)

// TransferCompletedEvent is published after a transfer commits.
type TransferCompletedEvent struct {
	CorrelationID        uuid.UUID `json:"correlation_id"`
	OwnerID              uuid.UUID `json:"user_id"`
	SourceAccountID      uuid.UUID `json:"source_account_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	Amount               int64     `json:"amount"`
	Timestamp            time.Time `json:"timestamp"`
}

// ReconciliationRequiredEvent is published when a compensation could not be applied.
type ReconciliationRequiredEvent struct {
	CorrelationID        uuid.UUID `json:"correlation_id"`
	OwnerID              uuid.UUID `json:"user_id"`
	SourceAccountID      uuid.UUID `json:"source_account_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	Amount               int64     `json:"amount"`
	Cause                string    `json:"cause"`
	CompensationError    string    `json:"compensation_error"`
	Timestamp            time.Time `json:"timestamp"`
}

// BillPaymentDueEvent asks a worker to execute a due bill payment.
type BillPaymentDueEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	PaymentDate string    `json:"payment_date"`
}

// BillPaymentOutcomeEvent reports the terminal state of an executed bill payment.
type BillPaymentOutcomeEvent struct {
	PaymentID     uuid.UUID  `json:"payment_id"`
	OwnerID       uuid.UUID  `json:"user_id"`
	Status        string     `json:"status"`
	Amount        int64      `json:"amount"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}
