/**
 * @description
 * HTTP handlers for the ledger service. Handlers parse the request, call the
 * application services with the authenticated owner id and map service errors
 * to status codes.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameters.
 * - internal/app, internal/domain, internal/store: Services, models and sentinel errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/app"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// Services groups the application services the handlers call.
type Services struct {
	Accounts      *app.AccountStore
	Transfers     *app.TransferService
	History       *app.HistoryService
	Beneficiaries *app.BeneficiaryService
	BillPayments  *app.BillPaymentService
	Support       *app.SupportService
}

// Handlers holds the application services that handlers will use.
type Handlers struct {
	services Services
	logger   zerolog.Logger
}

func NewHandlers(services Services, logger zerolog.Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// owner returns the authenticated owner id or writes a 401.
func (h *Handlers) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
	}
	return ownerID, ok
}

// pathID parses the named chi URL parameter as a UUID or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON decodes the request body into dst or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// writeServiceError maps application errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	var rateLimited *app.RateLimitError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, "Too many transfer requests. Please try again later.")
	case errors.Is(err, app.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "Insufficient funds")
	case errors.Is(err, store.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, store.ErrBeneficiaryNotFound):
		writeError(w, http.StatusNotFound, "Beneficiary not found")
	case errors.Is(err, store.ErrBillPaymentNotFound):
		writeError(w, http.StatusNotFound, "Bill payment not found")
	case errors.Is(err, store.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, "Support ticket not found")
	case errors.Is(err, store.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, "The account was modified concurrently. Please retry.")
	case errors.Is(err, app.ErrIdempotencyKeyInUse):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrBillPaymentNotCancellable),
		errors.Is(err, app.ErrBillPaymentInProgress),
		errors.Is(err, app.ErrBillPaymentNotDue),
		errors.Is(err, app.ErrInvalidTicketTransition),
		errors.Is(err, app.ErrTicketClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrPartialFailureRecovered):
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("transfer compensated after partial failure")
		writeError(w, http.StatusInternalServerError, "Transfer failed and was rolled back. No funds were moved.")
	case errors.Is(err, app.ErrPartialFailureUnrecovered):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("transfer left partially applied")
		writeError(w, http.StatusInternalServerError, "Transfer failed and requires manual reconciliation. Support has been notified.")
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// amountField accepts either integer minor units (12345) or a major-unit
// decimal string ("123.45").
type amountField int64

func (a *amountField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		minor, err := domain.ParseMajorUnits(s)
		if err != nil {
			return err
		}
		*a = amountField(minor)
		return nil
	}
	minor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.NewValidationError("amount", "must be an integer number of cents or a decimal string")
	}
	*a = amountField(minor)
	return nil
}
