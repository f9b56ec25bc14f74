package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestSignedAmount_DerivesSignFromType(t *testing.T) {
	cases := []struct {
		txType string
		amount int64
		want   int64
	}{
		{TransactionTypeDeposit, 500, 500},
		{TransactionTypeDeposit, -500, 500},
		{TransactionTypeInterest, 12, 12},
		{TransactionTypeRefund, 90, 90},
		{TransactionTypeWithdrawal, 500, -500},
		{TransactionTypeTransfer, -300, -300},
		{TransactionTypePayment, 300, -300},
		{TransactionTypeFee, 25, -25},
		{TransactionTypeAdjustment, -40, -40},
		{TransactionTypeAdjustment, 40, 40},
	}
	for _, tc := range cases {
		got, err := SignedAmount(tc.txType, tc.amount)
		if err != nil {
			t.Fatalf("SignedAmount(%s, %d) returned error: %v", tc.txType, tc.amount, err)
		}
		if got != tc.want {
			t.Fatalf("SignedAmount(%s, %d) = %d, want %d", tc.txType, tc.amount, got, tc.want)
		}
	}

	if _, err := SignedAmount("bonus", 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestNewTransferRequest_RejectsInvalidInput(t *testing.T) {
	src := uuid.New()
	dst := uuid.New()

	cases := []struct {
		name   string
		src    uuid.UUID
		dst    uuid.UUID
		amount int64
		field  string
	}{
		{"same account", src, src, 100, "destination_account_id"},
		{"zero amount", src, dst, 0, "amount"},
		{"negative amount", src, dst, -5, "amount"},
		{"missing source", uuid.Nil, dst, 100, "source_account_id"},
	}
	for _, tc := range cases {
		_, err := NewTransferRequest(tc.src, tc.dst, tc.amount, "rent", "key-1")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, verr.Field)
		}
	}

	req, err := NewTransferRequest(src, dst, 100, "  rent  ", " key-1 ")
	if err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.Description != "rent" || req.IdempotencyKey != "key-1" {
		t.Fatalf("expected trimmed fields, got %+v", req)
	}
	if req.DebitEntryType() != TransactionTypeTransfer {
		t.Fatalf("expected default debit type transfer, got %s", req.DebitEntryType())
	}
}

func TestTransferRequestFingerprint_ChangesWithAmount(t *testing.T) {
	src, dst := uuid.New(), uuid.New()
	a, _ := NewTransferRequest(src, dst, 100, "rent", "k")
	b, _ := NewTransferRequest(src, dst, 100, "rent", "other-key")
	c, _ := NewTransferRequest(src, dst, 101, "rent", "k")

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("fingerprint must not depend on the idempotency key")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("fingerprint must change when the amount changes")
	}
}

func TestNextPaymentDate_ClampsToMonthEnd(t *testing.T) {
	jan31 := time.Date(2024, time.January, 31, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		pattern string
		from    time.Time
		want    string
	}{
		{RecurrenceMonthly, jan31, "2024-02-29"},
		{RecurrenceMonthly, time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC), "2023-02-28"},
		{RecurrenceQuarterly, time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC), "2025-02-28"},
		{RecurrenceAnnually, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), "2025-02-28"},
		{RecurrenceWeekly, jan31, "2024-02-07"},
		{RecurrenceBiweekly, jan31, "2024-02-14"},
	}
	for _, tc := range cases {
		got, err := NextPaymentDate(tc.pattern, tc.from)
		if err != nil {
			t.Fatalf("NextPaymentDate(%s) returned error: %v", tc.pattern, err)
		}
		if got.Format(DateLayout) != tc.want {
			t.Fatalf("NextPaymentDate(%s, %s) = %s, want %s", tc.pattern, tc.from.Format(DateLayout), got.Format(DateLayout), tc.want)
		}
	}
}

func TestBillPaymentIdempotencyKey_UsesIDAndDate(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	p := BillPayment{ID: id, PaymentDate: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)}
	want := "billpay:11111111-2222-3333-4444-555555555555:2025-03-05"
	if got := p.IdempotencyKey(); got != want {
		t.Fatalf("IdempotencyKey() = %q, want %q", got, want)
	}
}

func TestNewScheduleBillPaymentRequest_RequiresPatternWhenRecurring(t *testing.T) {
	date := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	_, err := NewScheduleBillPaymentRequest(uuid.New(), uuid.New(), 1000, date, "", true, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req, err := NewScheduleBillPaymentRequest(uuid.New(), uuid.New(), 1000, date, "", false, "monthly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RecurrencePattern != nil {
		t.Fatalf("non recurring payment must drop the pattern")
	}
}

func TestBeneficiaryInputNormalize(t *testing.T) {
	blank := "   "
	in, err := BeneficiaryInput{Name: " Acme Power ", AccountNumber: "12345678", BankName: "First Bank", RoutingNumber: &blank}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Name != "Acme Power" || in.RoutingNumber != nil {
		t.Fatalf("unexpected normalized input: %+v", in)
	}

	if _, err := (BeneficiaryInput{Name: "Acme", AccountNumber: "123", BankName: "First"}).Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected short account number to be rejected, got %v", err)
	}
}

func TestCanTransitionTicket(t *testing.T) {
	if !CanTransitionTicket(TicketStatusOpen, TicketStatusInProgress) {
		t.Fatalf("open -> in_progress must be allowed")
	}
	if !CanTransitionTicket(TicketStatusResolved, TicketStatusOpen) {
		t.Fatalf("resolved -> open (reopen) must be allowed")
	}
	if CanTransitionTicket(TicketStatusClosed, TicketStatusOpen) {
		t.Fatalf("closed tickets must stay closed")
	}
	if CanTransitionTicket(TicketStatusInProgress, TicketStatusOpen) {
		t.Fatalf("in_progress -> open must be rejected")
	}
}

func TestParseMajorUnits(t *testing.T) {
	got, err := ParseMajorUnits("123.45")
	if err != nil || got != 12345 {
		t.Fatalf("ParseMajorUnits(123.45) = %d, %v", got, err)
	}
	if _, err := ParseMajorUnits("1.005"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected three decimal places to be rejected, got %v", err)
	}
	for _, raw := range []string{"184467440737095516.17", "92233720368547758.08", "-92233720368547758.09"} {
		if got, err := ParseMajorUnits(raw); !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseMajorUnits(%s) = %d, %v; want out of range", raw, got, err)
		}
	}
	if got, err := ParseMajorUnits("92233720368547758.07"); err != nil || got != 9223372036854775807 {
		t.Fatalf("ParseMajorUnits(max) = %d, %v", got, err)
	}
	if FormatMinorUnits(-70000) != "-700.00" {
		t.Fatalf("FormatMinorUnits(-70000) = %s", FormatMinorUnits(-70000))
	}
}

func TestTruncateDescription_KeepsRunesWhole(t *testing.T) {
	short := "Transfer to Savings"
	if got := TruncateDescription(short); got != short {
		t.Fatalf("short text changed: %q", got)
	}

	text := "Transfer to A - " + strings.Repeat("é", 127)
	got := TruncateDescription(text)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8")
	}
	if len(got) > MaxDescriptionLength || len(got) < MaxDescriptionLength-1 {
		t.Fatalf("unexpected truncated length %d", len(got))
	}
	if !strings.HasPrefix(text, got) {
		t.Fatalf("truncation must keep a prefix of the text")
	}
}

func TestNextOccurrence_ReturnsToAnchorDay(t *testing.T) {
	pattern := RecurrenceMonthly
	payment := &BillPayment{
		ID:                uuid.New(),
		PaymentDate:       time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		Recurring:         true,
		RecurrencePattern: &pattern,
		AnchorDay:         31,
	}

	want := []string{"2025-02-28", "2025-03-31", "2025-04-30", "2025-05-31"}
	for _, date := range want {
		next, err := payment.NextOccurrence(time.Now())
		if err != nil {
			t.Fatalf("NextOccurrence: %v", err)
		}
		if got := next.PaymentDate.Format(DateLayout); got != date {
			t.Fatalf("next occurrence = %s, want %s", got, date)
		}
		if next.AnchorDay != 31 {
			t.Fatalf("anchor day must carry forward, got %d", next.AnchorDay)
		}
		payment = next
	}
}

func TestNextOccurrence_WithoutAnchorUsesPaymentDay(t *testing.T) {
	pattern := RecurrenceQuarterly
	payment := &BillPayment{
		ID:                uuid.New(),
		PaymentDate:       time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Recurring:         true,
		RecurrencePattern: &pattern,
	}
	next, err := payment.NextOccurrence(time.Now())
	if err != nil {
		t.Fatalf("NextOccurrence: %v", err)
	}
	if next.PaymentDate.Format(DateLayout) != "2025-04-15" || next.AnchorDay != 15 {
		t.Fatalf("unexpected next occurrence %s anchor %d", next.PaymentDate.Format(DateLayout), next.AnchorDay)
	}
}
