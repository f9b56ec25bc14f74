/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * Every query runs through `dbtx`, so the same methods serve both the pool and
 * an open transaction handed out by RunInTx.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Interest rates.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool, pool: pool}
}

// RunInTx executes fn inside a single database transaction. Nested calls reuse
// the outer transaction.
func (r *PostgresRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresRepository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const accountColumns = `id, user_id, account_name, account_number, account_type, status, balance,
	available_balance, interest_rate::text, opened_date, last_activity_date, version, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	var interestRate *string
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.AccountName,
		&account.AccountNumber,
		&account.Type,
		&account.Status,
		&account.Balance,
		&account.AvailableBalance,
		&interestRate,
		&account.OpenedDate,
		&account.LastActivityAt,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if interestRate != nil {
		rate, parseErr := decimal.NewFromString(*interestRate)
		if parseErr != nil {
			return nil, fmt.Errorf("parse interest rate %q: %w", *interestRate, parseErr)
		}
		account.InterestRate = decimal.NullDecimal{Decimal: rate, Valid: true}
	}
	return &account, nil
}

// GetAccount retrieves an account by id without owner scoping. It is used for
// destination accounts and internal jobs only.
func (r *PostgresRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetAccountForOwner retrieves an account only when it belongs to ownerID.
func (r *PostgresRepository) GetAccountForOwner(ctx context.Context, accountID uuid.UUID, ownerID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND user_id = $2`, accountID, ownerID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccountsByOwner returns the owner's accounts, oldest first.
func (r *PostgresRepository) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY opened_date ASC, created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// UpdateAccountBalance applies a versioned balance delta.
func (r *PostgresRepository) UpdateAccountBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
			available_balance = available_balance + $2,
			version = version + 1,
			last_activity_date = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND version = $3
		RETURNING ` + accountColumns
	account, err := scanAccount(r.db.QueryRow(ctx, query, accountID, delta, expectedVersion))
	if err == nil {
		return account, nil
	}
	if pgErrorCode(err) == pgCheckViolation {
		return nil, ErrBalanceConstraint
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}
	return nil, ErrVersionConflict
}
