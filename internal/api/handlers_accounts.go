package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

// ListAccountsHandler returns the caller's accounts.
func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	accounts, err := h.services.Accounts.ListAccounts(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler returns one of the caller's accounts.
func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.services.Accounts.GetAccount(r.Context(), accountID, ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// VerifyAccountsHandler compares every account balance of the caller with its
// latest ledger entry.
func (h *Handlers) VerifyAccountsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	reports, err := h.services.History.VerifyOwnerAccounts(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	consistent := true
	for _, report := range reports {
		if !report.Consistent() {
			consistent = false
			h.logger.Warn().
				Str("account_id", report.AccountID.String()).
				Int64("drift", report.Drift).
				Msg("account balance does not match ledger")
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"consistent": consistent, "accounts": reports})
}

// ListTransactionsHandler returns ledger entries filtered by the query string:
// account_id, type, from, to (YYYY-MM-DD), search and limit.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:   query.Get("type"),
		Search: query.Get("search"),
	}
	if raw := query.Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid account_id")
			return
		}
		filter.AccountID = &id
	}
	if raw := query.Get("from"); raw != "" {
		from, err := domain.ParseDate("from", raw)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		filter.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := domain.ParseDate("to", raw)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		// Inclusive of the whole day.
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.services.History.ListTransactions(r.Context(), ownerID, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type statementRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// GenerateStatementHandler creates a statement for the account and period.
func (h *Handlers) GenerateStatementHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := domain.ParseDate("start_date", req.StartDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	end, err := domain.ParseDate("end_date", req.EndDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	statement, err := h.services.History.GenerateStatement(r.Context(), ownerID, accountID, start, end)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, statement)
}

// ListStatementsHandler returns the stored statements of the account.
func (h *Handlers) ListStatementsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	statements, err := h.services.History.ListStatements(r.Context(), ownerID, accountID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statements)
}
