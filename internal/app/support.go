package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

const maxTicketMessageLength = 4000

// SupportService handles customer support tickets and their message threads.
type SupportService struct {
	repo store.SupportRepository
	now  func() time.Time
}

func NewSupportService(repo store.SupportRepository, now func() time.Time) *SupportService {
	if now == nil {
		now = time.Now
	}
	return &SupportService{repo: repo, now: now}
}

func (s *SupportService) CreateTicket(ctx context.Context, ownerID uuid.UUID, input domain.NewTicketInput) (*domain.SupportTicket, error) {
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ticket := &domain.SupportTicket{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Subject:     input.Subject,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateSupportTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create support ticket: %w", err)
	}
	return ticket, nil
}

func (s *SupportService) ListTickets(ctx context.Context, ownerID uuid.UUID) ([]domain.SupportTicket, error) {
	return s.repo.ListSupportTickets(ctx, ownerID)
}

func (s *SupportService) GetTicket(ctx context.Context, ownerID, ticketID uuid.UUID) (*domain.SupportTicket, error) {
	return s.repo.GetSupportTicket(ctx, ticketID, ownerID)
}

// UpdateStatus applies a status transition. Resolving stamps resolved_at;
// reopening clears it.
func (s *SupportService) UpdateStatus(ctx context.Context, ownerID, ticketID uuid.UUID, status string) (*domain.SupportTicket, error) {
	status = strings.TrimSpace(strings.ToLower(status))
	ticket, err := s.repo.GetSupportTicket(ctx, ticketID, ownerID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTicket(ticket.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTicketTransition, ticket.Status, status)
	}

	resolvedAt := ticket.ResolvedAt
	switch status {
	case domain.TicketStatusResolved:
		now := s.now().UTC()
		resolvedAt = &now
	case domain.TicketStatusOpen, domain.TicketStatusInProgress:
		resolvedAt = nil
	}
	return s.repo.UpdateSupportTicketStatus(ctx, ticketID, ownerID, status, resolvedAt)
}

// AddMessage appends a message to an open or in-progress ticket.
func (s *SupportService) AddMessage(ctx context.Context, ownerID, ticketID uuid.UUID, text string) (*domain.SupportTicketMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("message", "is required")
	}
	if len(text) > maxTicketMessageLength {
		return nil, domain.NewValidationError("message", fmt.Sprintf("must be at most %d characters", maxTicketMessageLength))
	}
	ticket, err := s.repo.GetSupportTicket(ctx, ticketID, ownerID)
	if err != nil {
		return nil, err
	}
	if !ticket.AcceptsMessages() {
		return nil, ErrTicketClosed
	}
	message := &domain.SupportTicketMessage{
		ID:        uuid.New(),
		TicketID:  ticketID,
		OwnerID:   ownerID,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateSupportTicketMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	return message, nil
}

// ListMessages returns the ticket's messages oldest first.
func (s *SupportService) ListMessages(ctx context.Context, ownerID, ticketID uuid.UUID) ([]domain.SupportTicketMessage, error) {
	if _, err := s.repo.GetSupportTicket(ctx, ticketID, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListSupportTicketMessages(ctx, ticketID)
}
