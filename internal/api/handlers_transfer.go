package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

// IdempotencyKeyHeader carries the caller's retry key for a transfer.
const IdempotencyKeyHeader = "Idempotency-Key"

type transferRequest struct {
	SourceAccountID      uuid.UUID   `json:"source_account_id"`
	DestinationAccountID uuid.UUID   `json:"destination_account_id"`
	Amount               amountField `json:"amount"`
	Description          string      `json:"description"`
}

// TransferHandler moves funds between two accounts. The source account must
// belong to the caller.
func (h *Handlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var body transferRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	req, err := domain.NewTransferRequest(
		body.SourceAccountID,
		body.DestinationAccountID,
		int64(body.Amount),
		body.Description,
		r.Header.Get(IdempotencyKeyHeader),
	)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, err := h.services.Transfers.Transfer(r.Context(), ownerID, req)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("owner_id", ownerID.String()).
			Str("source_account_id", req.SourceAccountID.String()).
			Int64("amount", req.Amount).
			Msg("transfer rejected")
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}
