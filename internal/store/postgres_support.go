package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

const ticketColumns = `id, user_id, subject, description, priority, status, assigned_to, resolved_at, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.SupportTicket, error) {
	var t domain.SupportTicket
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Subject, &t.Description, &t.Priority, &t.Status, &t.AssignedTo, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) CreateSupportTicket(ctx context.Context, t *domain.SupportTicket) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO support_tickets (`+ticketColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OwnerID, t.Subject, t.Description, t.Priority, t.Status, t.AssignedTo, t.ResolvedAt, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) GetSupportTicket(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID) (*domain.SupportTicket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1 AND user_id = $2`,
		ticketID, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) ListSupportTickets(ctx context.Context, ownerID uuid.UUID) ([]domain.SupportTicket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SupportTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateSupportTicketStatus(ctx context.Context, ticketID uuid.UUID, ownerID uuid.UUID, status string, resolvedAt *time.Time) (*domain.SupportTicket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx,
		`UPDATE support_tickets SET status = $3, resolved_at = $4, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+ticketColumns,
		ticketID, ownerID, status, resolvedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *PostgresRepository) CreateSupportTicketMessage(ctx context.Context, m *domain.SupportTicketMessage) error {
	tag, err := r.db.Exec(ctx,
		`WITH touched AS (
			UPDATE support_tickets SET updated_at = NOW() WHERE id = $2 RETURNING id
		)
		INSERT INTO support_ticket_messages (id, ticket_id, user_id, message, created_at)
		SELECT $1, touched.id, $3, $4, $5 FROM touched`,
		m.ID, m.TicketID, m.OwnerID, m.Message, m.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *PostgresRepository) ListSupportTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]domain.SupportTicketMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, ticket_id, user_id, message, created_at FROM support_ticket_messages
		 WHERE ticket_id = $1 ORDER BY created_at ASC`,
		ticketID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SupportTicketMessage{}
	for rows.Next() {
		var m domain.SupportTicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.OwnerID, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
