package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

const beneficiaryColumns = `id, user_id, beneficiary_name, account_number, bank_name, routing_number, is_favorite, created_at, updated_at`

func scanBeneficiary(row pgx.Row) (*domain.Beneficiary, error) {
	var b domain.Beneficiary
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.AccountNumber, &b.BankName, &b.RoutingNumber, &b.IsFavorite, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresRepository) CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO beneficiaries (`+beneficiaryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.OwnerID, b.Name, b.AccountNumber, b.BankName, b.RoutingNumber, b.IsFavorite, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) GetBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) (*domain.Beneficiary, error) {
	b, err := scanBeneficiary(r.db.QueryRow(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1 AND user_id = $2`,
		beneficiaryID, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListBeneficiaries returns favorites first, then the newest.
func (r *PostgresRepository) ListBeneficiaries(ctx context.Context, ownerID uuid.UUID) ([]domain.Beneficiary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE user_id = $1 ORDER BY is_favorite DESC, created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Beneficiary{}
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE beneficiaries
		 SET beneficiary_name = $3, account_number = $4, bank_name = $5, routing_number = $6, is_favorite = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		b.ID, b.OwnerID, b.Name, b.AccountNumber, b.BankName, b.RoutingNumber, b.IsFavorite, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID, ownerID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM beneficiaries WHERE id = $1 AND user_id = $2`, beneficiaryID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}

const billPaymentColumns = `id, user_id, account_id, beneficiary_id, amount, description, payment_date, recurring,
	recurrence_pattern, anchor_day, status, transaction_id, failure_reason, previous_payment_id, created_at, updated_at`

func scanBillPayment(row pgx.Row) (*domain.BillPayment, error) {
	var p domain.BillPayment
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.AccountID,
		&p.BeneficiaryID,
		&p.Amount,
		&p.Description,
		&p.PaymentDate,
		&p.Recurring,
		&p.RecurrencePattern,
		&p.AnchorDay,
		&p.Status,
		&p.TransactionID,
		&p.FailureReason,
		&p.PreviousPaymentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectBillPayments(rows pgx.Rows) ([]domain.BillPayment, error) {
	defer rows.Close()
	out := []domain.BillPayment{}
	for rows.Next() {
		p, err := scanBillPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateBillPayment(ctx context.Context, p *domain.BillPayment) error {
	// ON CONFLICT keeps an enclosing transaction usable when the next occurrence already exists.
	tag, err := r.db.Exec(ctx,
		`INSERT INTO bill_payments (`+billPaymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (previous_payment_id) DO NOTHING`,
		p.ID, p.OwnerID, p.AccountID, p.BeneficiaryID, p.Amount, p.Description, p.PaymentDate, p.Recurring,
		p.RecurrencePattern, p.AnchorDay, p.Status, p.TransactionID, p.FailureReason, p.PreviousPaymentID, p.CreatedAt, p.UpdatedAt,
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return ErrBillPaymentExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillPaymentExists
	}
	return nil
}

func (r *PostgresRepository) GetBillPayment(ctx context.Context, paymentID uuid.UUID) (*domain.BillPayment, error) {
	p, err := scanBillPayment(r.db.QueryRow(ctx, `SELECT `+billPaymentColumns+` FROM bill_payments WHERE id = $1`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) GetBillPaymentForOwner(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (*domain.BillPayment, error) {
	p, err := scanBillPayment(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE id = $1 AND user_id = $2`,
		paymentID, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) ListBillPayments(ctx context.Context, ownerID uuid.UUID) ([]domain.BillPayment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE user_id = $1 ORDER BY payment_date ASC, created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectBillPayments(rows)
}

func (r *PostgresRepository) ListDueBillPayments(ctx context.Context, asOf time.Time, staleBefore time.Time, limit int) ([]domain.BillPayment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments
		 WHERE (status = 'scheduled' AND payment_date <= $1)
		    OR (status = 'processing' AND updated_at < $2)
		 ORDER BY payment_date ASC, created_at ASC
		 LIMIT $3`,
		asOf, staleBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectBillPayments(rows)
}

// ClaimBillPayment is the conditional scheduled -> processing transition. Only one
// concurrent caller can win it.
func (r *PostgresRepository) ClaimBillPayment(ctx context.Context, paymentID uuid.UUID, staleBefore time.Time) (*domain.BillPayment, error) {
	p, err := scanBillPayment(r.db.QueryRow(ctx,
		`UPDATE bill_payments SET status = 'processing', updated_at = NOW()
		 WHERE id = $1 AND (status = 'scheduled' OR (status = 'processing' AND updated_at < $2))
		 RETURNING `+billPaymentColumns,
		paymentID, staleBefore,
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := r.GetBillPayment(ctx, paymentID); err != nil {
		return nil, err
	}
	return nil, ErrBillPaymentNotClaimable
}

func (r *PostgresRepository) CompleteBillPayment(ctx context.Context, paymentID uuid.UUID, transactionID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE bill_payments SET status = 'completed', transaction_id = $2, failure_reason = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		paymentID, transactionID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) FailBillPayment(ctx context.Context, paymentID uuid.UUID, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE bill_payments SET status = 'failed', failure_reason = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		paymentID, reason,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) DeleteScheduledBillPayment(ctx context.Context, paymentID uuid.UUID, ownerID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM bill_payments WHERE id = $1 AND user_id = $2 AND status = 'scheduled'`,
		paymentID, ownerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
