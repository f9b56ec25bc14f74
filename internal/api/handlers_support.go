package api

import (
	"net/http"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

func (h *Handlers) CreateTicketHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var input domain.NewTicketInput
	if !decodeJSON(w, r, &input) {
		return
	}
	ticket, err := h.services.Support.CreateTicket(r.Context(), ownerID, input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handlers) ListTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	tickets, err := h.services.Support.ListTickets(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handlers) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ticketID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ticket, err := h.services.Support.GetTicket(r.Context(), ownerID, ticketID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) UpdateTicketStatusHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ticketID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ticketStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ticket, err := h.services.Support.UpdateStatus(r.Context(), ownerID, ticketID, req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type ticketMessageRequest struct {
	Message string `json:"message"`
}

func (h *Handlers) AddTicketMessageHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ticketID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ticketMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message, err := h.services.Support.AddMessage(r.Context(), ownerID, ticketID, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *Handlers) ListTicketMessagesHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ticketID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	messages, err := h.services.Support.ListMessages(r.Context(), ownerID, ticketID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
