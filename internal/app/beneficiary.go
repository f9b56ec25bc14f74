package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dannywaisein/north-trust-bank-replica/internal/domain"
	"github.com/Dannywaisein/north-trust-bank-replica/internal/store"
)

// BeneficiaryService manages the saved payees of a customer.
type BeneficiaryService struct {
	repo store.BeneficiaryRepository
	now  func() time.Time
}

func NewBeneficiaryService(repo store.BeneficiaryRepository, now func() time.Time) *BeneficiaryService {
	if now == nil {
		now = time.Now
	}
	return &BeneficiaryService{repo: repo, now: now}
}

func (s *BeneficiaryService) Create(ctx context.Context, ownerID uuid.UUID, input domain.BeneficiaryInput) (*domain.Beneficiary, error) {
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	beneficiary := &domain.Beneficiary{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Name:          input.Name,
		AccountNumber: input.AccountNumber,
		BankName:      input.BankName,
		RoutingNumber: input.RoutingNumber,
		IsFavorite:    input.IsFavorite,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateBeneficiary(ctx, beneficiary); err != nil {
		return nil, fmt.Errorf("failed to create beneficiary: %w", err)
	}
	return beneficiary, nil
}

// List returns favorites first, then newest first.
func (s *BeneficiaryService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Beneficiary, error) {
	return s.repo.ListBeneficiaries(ctx, ownerID)
}

func (s *BeneficiaryService) Update(ctx context.Context, ownerID, beneficiaryID uuid.UUID, input domain.BeneficiaryInput) (*domain.Beneficiary, error) {
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	beneficiary, err := s.repo.GetBeneficiary(ctx, beneficiaryID, ownerID)
	if err != nil {
		return nil, err
	}
	beneficiary.Name = input.Name
	beneficiary.AccountNumber = input.AccountNumber
	beneficiary.BankName = input.BankName
	beneficiary.RoutingNumber = input.RoutingNumber
	beneficiary.IsFavorite = input.IsFavorite
	beneficiary.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateBeneficiary(ctx, beneficiary); err != nil {
		return nil, fmt.Errorf("failed to update beneficiary: %w", err)
	}
	return beneficiary, nil
}

func (s *BeneficiaryService) Delete(ctx context.Context, ownerID, beneficiaryID uuid.UUID) error {
	return s.repo.DeleteBeneficiary(ctx, beneficiaryID, ownerID)
}
