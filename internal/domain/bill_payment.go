package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BillPaymentStatusScheduled  = "scheduled"
	BillPaymentStatusProcessing = "processing"
	BillPaymentStatusCompleted  = "completed"
	BillPaymentStatusFailed     = "failed"
)

const (
	RecurrenceWeekly    = "weekly"
	RecurrenceBiweekly  = "biweekly"
	RecurrenceMonthly   = "monthly"
	RecurrenceQuarterly = "quarterly"
	RecurrenceAnnually  = "annually"
)

// DateLayout is the calendar date format used for payment dates and idempotency keys.
const DateLayout = "2006-01-02"

// Beneficiary is an external payee saved by an account owner.
type Beneficiary struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"user_id"`
	Name          string    `json:"beneficiary_name"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	RoutingNumber *string   `json:"routing_number,omitempty"`
	IsFavorite    bool      `json:"is_favorite"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeneficiaryInput carries the editable beneficiary fields.
type BeneficiaryInput struct {
	Name          string  `json:"beneficiary_name"`
	AccountNumber string  `json:"account_number"`
	BankName      string  `json:"bank_name"`
	RoutingNumber *string `json:"routing_number,omitempty"`
	IsFavorite    bool    `json:"is_favorite"`
}

// Normalize trims the input and validates minimum lengths.
func (in BeneficiaryInput) Normalize() (BeneficiaryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.BankName = strings.TrimSpace(in.BankName)
	if in.RoutingNumber != nil {
		routing := strings.TrimSpace(*in.RoutingNumber)
		if routing == "" {
			in.RoutingNumber = nil
		} else {
			in.RoutingNumber = &routing
		}
	}
	if len(in.Name) < 2 {
		return in, NewValidationError("beneficiary_name", "must be at least 2 characters")
	}
	if len(in.AccountNumber) < 6 {
		return in, NewValidationError("account_number", "must be at least 6 characters")
	}
	if len(in.BankName) < 2 {
		return in, NewValidationError("bank_name", "must be at least 2 characters")
	}
	return in, nil
}

// BillPayment is a future-dated payment intent from an account to a beneficiary.
type BillPayment struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"user_id"`
	AccountID         uuid.UUID  `json:"account_id"`
	BeneficiaryID     uuid.UUID  `json:"beneficiary_id"`
	Amount            int64      `json:"amount"`
	Description       *string    `json:"description,omitempty"`
	PaymentDate       time.Time  `json:"payment_date"`
	Recurring         bool       `json:"recurring"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	AnchorDay         int        `json:"anchor_day,omitempty"`
	Status            string     `json:"status"`
	TransactionID     *uuid.UUID `json:"transaction_id,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	PreviousPaymentID *uuid.UUID `json:"previous_payment_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the payment has settled one way or the other.
func (p *BillPayment) IsTerminal() bool {
	return p.Status == BillPaymentStatusCompleted || p.Status == BillPaymentStatusFailed
}

// IdempotencyKey is stable per payment and scheduled date, so a repeated trigger
// for the same due date never settles twice.
func (p *BillPayment) IdempotencyKey() string {
	return fmt.Sprintf("billpay:%s:%s", p.ID, p.PaymentDate.Format(DateLayout))
}

// NextOccurrence builds the follow-up payment of a recurring payment.
func (p *BillPayment) NextOccurrence(now time.Time) (*BillPayment, error) {
	if !p.Recurring || p.RecurrencePattern == nil {
		return nil, nil
	}
	anchor := p.AnchorDay
	if anchor <= 0 {
		anchor = p.PaymentDate.Day()
	}
	next, err := nextPaymentDate(*p.RecurrencePattern, p.PaymentDate, anchor)
	if err != nil {
		return nil, err
	}
	previous := p.ID
	return &BillPayment{
		ID:                uuid.New(),
		OwnerID:           p.OwnerID,
		AccountID:         p.AccountID,
		BeneficiaryID:     p.BeneficiaryID,
		Amount:            p.Amount,
		Description:       p.Description,
		PaymentDate:       next,
		Recurring:         true,
		RecurrencePattern: p.RecurrencePattern,
		AnchorDay:         anchor,
		Status:            BillPaymentStatusScheduled,
		PreviousPaymentID: &previous,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ValidRecurrencePattern reports whether pattern is supported.
func ValidRecurrencePattern(pattern string) bool {
	switch pattern {
	case RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly, RecurrenceQuarterly, RecurrenceAnnually:
		return true
	}
	return false
}

// NextPaymentDate advances from by one recurrence period. Month based patterns
// clamp to the last day of the target month (Jan 31 monthly -> Feb 28/29).
func NextPaymentDate(pattern string, from time.Time) (time.Time, error) {
	return nextPaymentDate(pattern, from, from.UTC().Day())
}

// nextPaymentDate lands month based patterns on anchorDay, clamped to the
// target month, so a Jan 31 schedule returns to the 31st after February.
func nextPaymentDate(pattern string, from time.Time, anchorDay int) (time.Time, error) {
	from = TruncateToDate(from)
	switch pattern {
	case RecurrenceWeekly:
		return from.AddDate(0, 0, 7), nil
	case RecurrenceBiweekly:
		return from.AddDate(0, 0, 14), nil
	case RecurrenceMonthly:
		return addMonthsClamped(from, 1, anchorDay), nil
	case RecurrenceQuarterly:
		return addMonthsClamped(from, 3, anchorDay), nil
	case RecurrenceAnnually:
		return addMonthsClamped(from, 12, anchorDay), nil
	default:
		return time.Time{}, NewValidationError("recurrence_pattern", fmt.Sprintf("unknown pattern %q", pattern))
	}
}

func addMonthsClamped(t time.Time, months, day int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

// TruncateToDate drops the clock part of t in UTC.
func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// ScheduleBillPaymentRequest is a validated request to schedule a bill payment.
type ScheduleBillPaymentRequest struct {
	AccountID         uuid.UUID
	BeneficiaryID     uuid.UUID
	Amount            int64
	PaymentDate       time.Time
	Description       *string
	Recurring         bool
	RecurrencePattern *string
}

// NewScheduleBillPaymentRequest builds and validates a scheduling request.
func NewScheduleBillPaymentRequest(accountID, beneficiaryID uuid.UUID, amount int64, paymentDate time.Time, description string, recurring bool, pattern string) (ScheduleBillPaymentRequest, error) {
	req := ScheduleBillPaymentRequest{
		AccountID:     accountID,
		BeneficiaryID: beneficiaryID,
		Amount:        amount,
		PaymentDate:   TruncateToDate(paymentDate),
		Recurring:     recurring,
	}
	if desc := strings.TrimSpace(description); desc != "" {
		req.Description = &desc
	}
	if p := strings.TrimSpace(strings.ToLower(pattern)); p != "" {
		req.RecurrencePattern = &p
	}

	if req.AccountID == uuid.Nil {
		return req, NewValidationError("account_id", "is required")
	}
	if req.BeneficiaryID == uuid.Nil {
		return req, NewValidationError("beneficiary_id", "is required")
	}
	if req.Amount <= 0 {
		return req, NewValidationError("amount", "must be greater than zero")
	}
	if paymentDate.IsZero() {
		return req, NewValidationError("payment_date", "is required")
	}
	if req.Description != nil && len(*req.Description) > MaxDescriptionLength {
		return req, NewValidationError("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	if req.Recurring {
		if req.RecurrencePattern == nil {
			return req, NewValidationError("recurrence_pattern", "is required for recurring payments")
		}
		if !ValidRecurrencePattern(*req.RecurrencePattern) {
			return req, NewValidationError("recurrence_pattern", "must be weekly, biweekly, monthly, quarterly or annually")
		}
	} else {
		req.RecurrencePattern = nil
	}
	return req, nil
}
