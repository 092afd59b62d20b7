package costcenters

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (CostCenter, error) {
	if id <= 0 {
		return CostCenter{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, cc CostCenter) (CostCenter, error) {
	if err := validate(cc); err != nil {
		return CostCenter{}, err
	}
	return s.repo.Create(ctx, cc)
}

func (s *Service) Update(ctx context.Context, id int64, cc CostCenter) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(cc); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, cc)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func validate(cc CostCenter) error {
	if strings.TrimSpace(cc.Code) == "" {
		return fmt.Errorf("%w: cost center code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(cc.Name) == "" {
		return fmt.Errorf("%w: cost center name is required", shared.ErrValidation)
	}
	return nil
}
