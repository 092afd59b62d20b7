package vendors

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

func (s *Service) validate(v Vendor) error {
	if strings.TrimSpace(v.Code) == "" {
		return fmt.Errorf("%w: vendor code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: vendor name is required", shared.ErrValidation)
	}
	if v.Email != "" {
		if _, err := mail.ParseAddress(v.Email); err != nil {
			return fmt.Errorf("%w: invalid email", shared.ErrValidation)
		}
	}
	return nil
}
