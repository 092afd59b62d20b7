package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Account, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	if id <= 0 {
		return Account{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if err := s.validate(ctx, 0, account); err != nil {
		return Account{}, err
	}
	return s.repo.Create(ctx, account)
}

func (s *Service) Update(ctx context.Context, id int64, account Account) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(ctx, id, account); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, account)
}

// Delete removes a leaf account. Accounts with children stay deletable only
// after the subtree is gone.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return fmt.Errorf("%w: account has child accounts", shared.ErrInUse)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(ctx context.Context, id int64, account Account) error {
	if strings.TrimSpace(account.Code) == "" {
		return fmt.Errorf("%w: account code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("%w: account name is required", shared.ErrValidation)
	}
	if !account.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, account.Type)
	}
	if account.ParentID != nil {
		if id != 0 && *account.ParentID == id {
			return fmt.Errorf("%w: account cannot be its own parent", shared.ErrValidation)
		}
		parent, err := s.repo.Get(ctx, *account.ParentID)
		if err != nil {
			return fmt.Errorf("%w: parent account not found", shared.ErrValidation)
		}
		if parent.Type != account.Type {
			return fmt.Errorf("%w: parent account type mismatch", shared.ErrValidation)
		}
	}
	return nil
}
