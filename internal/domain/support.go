package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TicketPriorityLow      = "low"
	TicketPriorityMedium   = "medium"
	TicketPriorityHigh     = "high"
	TicketPriorityCritical = "critical"
)

const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// SupportTicket is a customer support request.
type SupportTicket struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"user_id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AcceptsMessages reports whether the conversation on the ticket is still open.
func (t *SupportTicket) AcceptsMessages() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}

// SupportTicketMessage is one message in a ticket conversation.
type SupportTicketMessage struct {
	ID        uuid.UUID `json:"id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	OwnerID   uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketInput is the request to open a ticket.
type NewTicketInput struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Normalize trims the input, defaults the priority and validates it.
func (in NewTicketInput) Normalize() (NewTicketInput, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Priority = strings.TrimSpace(strings.ToLower(in.Priority))
	if in.Priority == "" {
		in.Priority = TicketPriorityMedium
	}
	if len(in.Subject) < 3 {
		return in, NewValidationError("subject", "must be at least 3 characters")
	}
	if len(in.Description) < 10 {
		return in, NewValidationError("description", "must be at least 10 characters")
	}
	switch in.Priority {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
	default:
		return in, NewValidationError("priority", "must be low, medium, high or critical")
	}
	return in, nil
}

var ticketTransitions = map[string][]string{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusOpen, TicketStatusClosed},
	TicketStatusClosed:     {},
}

// CanTransitionTicket reports whether a ticket may move from one status to another.
func CanTransitionTicket(from, to string) bool {
	for _, allowed := range ticketTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
