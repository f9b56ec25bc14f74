package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// AccountStore reads accounts and applies optimistic, versioned balance changes.
// It is bound to one repository, which may be a unit of work.
type AccountStore struct {
	repo store.AccountRepository
}

func NewAccountStore(repo store.AccountRepository) *AccountStore {
	return &AccountStore{repo: repo}
}

// GetAccount returns the account when it belongs to ownerID. Accounts of other
// owners are reported as store.ErrAccountNotFound.
func (s *AccountStore) GetAccount(ctx context.Context, accountID, ownerID uuid.UUID) (*domain.Account, error) {
	account, err := s.repo.GetAccountForOwner(ctx, accountID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return account, nil
}

// LoadAccount returns an account without an ownership check.
func (s *AccountStore) LoadAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *AccountStore) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.repo.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// AdjustBalance applies delta to balance and available balance if the stored
// version still equals expectedVersion. A stale version yields ErrConflict.
func (s *AccountStore) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta int64, expectedVersion int64) (*domain.Account, error) {
	account, err := s.repo.UpdateAccountBalance(ctx, accountID, delta, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance of account %s: %w", accountID, translateStoreError(err))
	}
	return account, nil
}
