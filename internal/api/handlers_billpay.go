package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

// Beneficiaries

func (h *Handlers) CreateBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var input domain.BeneficiaryInput
	if !decodeJSON(w, r, &input) {
		return
	}
	beneficiary, err := h.services.Beneficiaries.Create(r.Context(), ownerID, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, beneficiary)
}

func (h *Handlers) ListBeneficiariesHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	beneficiaries, err := h.services.Beneficiaries.List(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beneficiaries)
}

func (h *Handlers) UpdateBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	beneficiaryID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var input domain.BeneficiaryInput
	if !decodeJSON(w, r, &input) {
		return
	}
	beneficiary, err := h.services.Beneficiaries.Update(r.Context(), ownerID, beneficiaryID, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beneficiary)
}

func (h *Handlers) DeleteBeneficiaryHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	beneficiaryID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.services.Beneficiaries.Delete(r.Context(), ownerID, beneficiaryID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bill payments

type scheduleBillPaymentRequest struct {
	AccountID         uuid.UUID   `json:"account_id"`
	BeneficiaryID     uuid.UUID   `json:"beneficiary_id"`
	Amount            amountField `json:"amount"`
	PaymentDate       string      `json:"payment_date"`
	Description       string      `json:"description"`
	Recurring         bool        `json:"recurring"`
	RecurrencePattern string      `json:"recurrence_pattern"`
}

func (h *Handlers) ScheduleBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var body scheduleBillPaymentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	paymentDate, err := domain.ParseDate("payment_date", body.PaymentDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	req, err := domain.NewScheduleBillPaymentRequest(
		body.AccountID,
		body.BeneficiaryID,
		int64(body.Amount),
		paymentDate,
		body.Description,
		body.Recurring,
		body.RecurrencePattern,
	)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	payment, err := h.services.BillPayments.Schedule(r.Context(), ownerID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handlers) ListBillPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	payments, err := h.services.BillPayments.List(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handlers) GetBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.services.BillPayments.Get(r.Context(), ownerID, paymentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *Handlers) CancelBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.services.BillPayments.Cancel(r.Context(), ownerID, paymentID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteBillPaymentHandler is the internal trigger used by schedulers outside
// this process. Settled payments are returned unchanged.
func (h *Handlers) ExecuteBillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.services.BillPayments.Execute(r.Context(), paymentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
