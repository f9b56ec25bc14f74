/**
 * @description
 * Core domain models for the ledger service. Accounts and ledger entries map
 * directly to the `accounts` and `transactions` tables.
 *
 * @notes
 * - Amounts are `int64` minor currency units (cents) to avoid floating-point
 *   inaccuracies. Interest rates are decimals.
 * - `Version` is the optimistic concurrency token checked on every balance write.
 */

package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountTypeChecking   = "checking"
	AccountTypeSavings    = "savings"
	AccountTypeCredit     = "credit"
	AccountTypeInvestment = "investment"
	AccountTypeLoan       = "loan"
)

const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
	AccountStatusFrozen   = "frozen"
	AccountStatusClosed   = "closed"
)

// Account holds the balance and status of one customer account.
type Account struct {
	ID               uuid.UUID           `json:"id"`
	OwnerID          uuid.UUID           `json:"user_id"`
	AccountName      string              `json:"account_name"`
	AccountNumber    string              `json:"account_number"`
	Type             string              `json:"account_type"`
	Status           string              `json:"status"`
	Balance          int64               `json:"balance"`
	AvailableBalance int64               `json:"available_balance"`
	InterestRate     decimal.NullDecimal `json:"interest_rate"`
	OpenedDate       time.Time           `json:"opened_date"`
	LastActivityAt   *time.Time          `json:"last_activity_date,omitempty"`
	Version          int64               `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// IsCredit reports whether the account may carry a negative balance.
func (a *Account) IsCredit() bool {
	return a.Type == AccountTypeCredit
}

// IsActive reports whether the account may take part in money movement.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// CanDebit reports whether available funds cover amount (always true for credit accounts).
func (a *Account) CanDebit(amount int64) bool {
	if a.IsCredit() {
		return true
	}
	return a.AvailableBalance >= amount
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit, AccountTypeInvestment, AccountTypeLoan:
		return true
	}
	return false
}

// FormatMinorUnits renders a minor-unit amount as a two decimal string, e.g. 12345 -> "123.45".
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ParseMajorUnits converts a decimal string in major units ("123.45") to minor units.
// More than two fractional digits are rejected instead of rounded.
func ParseMajorUnits(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, NewValidationError("amount", "must be a decimal number")
	}
	scaled := d.Shift(2)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, NewValidationError("amount", "must have at most two decimal places")
	}
	if scaled.GreaterThan(maxMinorUnits) || scaled.LessThan(minMinorUnits) {
		return 0, NewValidationError("amount", "is out of range")
	}
	return scaled.IntPart(), nil
}
