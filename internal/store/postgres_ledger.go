package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

const transactionColumns = `t.id, t.account_id, t.transaction_type, t.amount, t.description, t.recipient_account_id,
	t.recipient_external_account, t.reference_number, t.correlation_id, t.status, t.balance_after_transaction,
	t.account_version, t.transaction_date, t.created_at, t.updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Type,
		&tx.Amount,
		&tx.Description,
		&tx.CounterpartyAccountID,
		&tx.RecipientExternalAccount,
		&tx.ReferenceNumber,
		&tx.CorrelationID,
		&tx.Status,
		&tx.BalanceAfter,
		&tx.AccountVersion,
		&tx.TransactionDate,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	out := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// InsertTransaction appends a ledger entry.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, transaction_type, amount, description, recipient_account_id,
			recipient_external_account, reference_number, correlation_id, status,
			balance_after_transaction, account_version, transaction_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Type,
		tx.Amount,
		tx.Description,
		tx.CounterpartyAccountID,
		tx.RecipientExternalAccount,
		tx.ReferenceNumber,
		tx.CorrelationID,
		tx.Status,
		tx.BalanceAfter,
		tx.AccountVersion,
		tx.TransactionDate,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return err
}

// UpdatePendingTransactionStatus moves a pending entry to a final status.
func (r *PostgresRepository) UpdatePendingTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		transactionID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, transactionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTransactionNotFound
	}
	return ErrTransactionNotPending
}

// FindTransactionsByCorrelationID returns both legs of a transfer, debit first.
func (r *PostgresRepository) FindTransactionsByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.correlation_id = $1 ORDER BY t.amount ASC`,
		correlationID,
	)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// ListTransactions returns the owner's entries matching filter, newest first.
func (r *PostgresRepository) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions t JOIN accounts a ON a.id = t.account_id WHERE a.user_id = $1`)
	args := []any{ownerID}

	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AccountID != nil {
		sb.WriteString(" AND t.account_id = " + addArg(*filter.AccountID))
	}
	if filter.Type != "" {
		sb.WriteString(" AND t.transaction_type = " + addArg(filter.Type))
	}
	if filter.From != nil {
		sb.WriteString(" AND t.transaction_date >= " + addArg(*filter.From))
	}
	if filter.To != nil {
		sb.WriteString(" AND t.transaction_date <= " + addArg(*filter.To))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		placeholder := addArg(pattern)
		sb.WriteString(" AND (t.description ILIKE " + placeholder + " OR t.reference_number ILIKE " + placeholder + ")")
	}
	sb.WriteString(" ORDER BY t.transaction_date DESC, t.created_at DESC LIMIT " + addArg(filter.Limit))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindLatestCompletedTransaction returns the most recent completed entry by account version.
func (r *PostgresRepository) FindLatestCompletedTransaction(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		 WHERE t.account_id = $1 AND t.status = 'completed'
		 ORDER BY t.account_version DESC LIMIT 1`,
		accountID,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// SumCompletedAmountsSince sums completed signed amounts dated at or after since.
func (r *PostgresRepository) SumCompletedAmountsSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::bigint FROM transactions
		 WHERE account_id = $1 AND status = 'completed' AND transaction_date >= $2`,
		accountID, since,
	).Scan(&total)
	return total, err
}

// Idempotency keys

func (r *PostgresRepository) FindIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := r.db.QueryRow(ctx,
		`SELECT user_id, key, request_hash, status, correlation_id, created_at, updated_at
		 FROM idempotency_keys WHERE user_id = $1 AND key = $2`,
		ownerID, key,
	).Scan(&rec.OwnerID, &rec.Key, &rec.RequestHash, &rec.Status, &rec.CorrelationID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdempotencyRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) InsertIdempotencyRecord(ctx context.Context, record *domain.IdempotencyRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO idempotency_keys (user_id, key, request_hash, status, correlation_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.OwnerID, record.Key, record.RequestHash, record.Status, record.CorrelationID, record.CreatedAt, record.UpdatedAt,
	)
	if pgErrorCode(err) == pgUniqueViolation {
		return ErrIdempotencyKeyExists
	}
	return err
}

func (r *PostgresRepository) CompleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string, correlationID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE idempotency_keys SET status = 'completed', correlation_id = $3, updated_at = NOW()
		 WHERE user_id = $1 AND key = $2`,
		ownerID, key, correlationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyRecordNotFound
	}
	return nil
}

// DeleteIdempotencyRecord releases an in-flight reservation. Completed keys are kept.
func (r *PostgresRepository) DeleteIdempotencyRecord(ctx context.Context, ownerID uuid.UUID, key string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE user_id = $1 AND key = $2 AND status = 'processing'`,
		ownerID, key,
	)
	return err
}

func (r *PostgresRepository) PurgeIdempotencyRecords(ctx context.Context, completedBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE status = 'completed' AND updated_at < $1`, completedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Statements

func (r *PostgresRepository) CreateStatement(ctx context.Context, statement *domain.Statement) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO statements (id, account_id, start_date, end_date, statement_date, opening_balance, closing_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		statement.ID, statement.AccountID, statement.PeriodStart, statement.PeriodEnd, statement.StatementDate,
		statement.OpeningBalance, statement.ClosingBalance, statement.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) ListStatements(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, start_date, end_date, statement_date, opening_balance, closing_balance, created_at
		 FROM statements WHERE account_id = $1 ORDER BY statement_date DESC, created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := []domain.Statement{}
	for rows.Next() {
		var s domain.Statement
		if err := rows.Scan(&s.ID, &s.AccountID, &s.PeriodStart, &s.PeriodEnd, &s.StatementDate, &s.OpeningBalance, &s.ClosingBalance, &s.CreatedAt); err != nil {
			return nil, err
		}
		statements = append(statements, s)
	}
	return statements, rows.Err()
}
