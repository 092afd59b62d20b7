package currency

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a tradable currency. Exactly one currency carries IsBase at any
// time; SetBase swaps the flag inside a single transaction.
type Currency struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	IsBase    bool      `json:"is_base"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExchangeRate converts one unit of a currency into the base currency. The
// rate effective for a date is the one with the greatest ValidFrom not after
// that date.
type ExchangeRate struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Rate      decimal.Decimal `json:"rate"`
	ValidFrom time.Time       `json:"valid_from"`
	CreatedAt time.Time       `json:"created_at"`
}

var (
	// ErrNoRateAvailable indicates no exchange rate exists on or before the
	// requested date. Callers must not default to 1.0.
	ErrNoRateAvailable = errors.New("currency: no exchange rate available")
	// ErrNotFound indicates an unknown currency code.
	ErrNotFound = errors.New("currency: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("currency: invalid input")
	// ErrDuplicateCode indicates the currency code is already registered.
	ErrDuplicateCode = errors.New("currency: code already exists")
)
