package currency

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Resolver resolves the exchange rate effective for a currency on a date.
// Purchase orders capture the resolved rate at creation time and never look it
// up again.
type Resolver interface {
	ResolveRate(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error)
}

// Service orchestrates currency and exchange-rate management.
type Service struct {
	repo Repository
}

// NewService constructs the currency service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all currencies.
func (s *Service) List(ctx context.Context) ([]Currency, error) {
	return s.repo.List(ctx)
}

// Get returns one currency by code.
func (s *Service) Get(ctx context.Context, code string) (Currency, error) {
	return s.repo.Get(ctx, normalizeCode(code))
}

// Create registers a new currency. The first currency must be promoted with
// SetBase explicitly; Create never touches the base flag.
func (s *Service) Create(ctx context.Context, c Currency) (Currency, error) {
	c.Code = normalizeCode(c.Code)
	if !codePattern.MatchString(c.Code) {
		return Currency{}, fmt.Errorf("%w: code must be three uppercase letters", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return Currency{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.Create(ctx, c)
}

// SetBase promotes a currency to the system base. The repository swaps the
// flag transactionally so exactly one base exists at any time.
func (s *Service) SetBase(ctx context.Context, code string) error {
	return s.repo.SetBase(ctx, normalizeCode(code))
}

// AddRate records an exchange rate valid from the given date.
func (s *Service) AddRate(ctx context.Context, code string, rate decimal.Decimal, validFrom time.Time) (ExchangeRate, error) {
	code = normalizeCode(code)
	if rate.LessThanOrEqual(decimal.Zero) {
		return ExchangeRate{}, fmt.Errorf("%w: rate must be positive", ErrValidation)
	}
	if validFrom.IsZero() {
		return ExchangeRate{}, fmt.Errorf("%w: valid_from is required", ErrValidation)
	}
	if _, err := s.repo.Get(ctx, code); err != nil {
		return ExchangeRate{}, err
	}
	return s.repo.InsertRate(ctx, ExchangeRate{Code: code, Rate: rate, ValidFrom: validFrom})
}

// Rates lists recorded rates for a currency, newest first.
func (s *Service) Rates(ctx context.Context, code string, limit int) ([]ExchangeRate, error) {
	return s.repo.ListRates(ctx, normalizeCode(code), limit)
}

// ResolveRate selects the rate with the greatest valid_from not after asOf.
// The base currency always resolves to 1 without a lookup; any other currency
// without an applicable rate fails with ErrNoRateAvailable, never a silent 1.0.
func (s *Service) ResolveRate(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error) {
	code = normalizeCode(code)
	base, err := s.repo.BaseCode(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return decimal.Decimal{}, err
	}
	if base != "" && code == base {
		return decimal.NewFromInt(1), nil
	}
	rate, err := s.repo.LatestRateBefore(ctx, code, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return rate.Rate, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
