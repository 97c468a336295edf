/*
Package money provides the monetary value type used across the engine.

PURPOSE:
  A Money value pairs a decimal amount with its currency tag. Every balance,
  transaction amount, loan principal and payment in the system is a Money.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal arithmetic, never float64
  2. Currency safety: amounts of different currencies never combine silently
  3. Minor units: monetary results are rounded to 2 decimal places, half-up

NO FX:
  Each value carries a currency tag but there is no conversion. Operations
  across currencies are a caller error, surfaced via SameCurrency checks at
  the service layer.

SEE ALSO:
  - bank/types.go: Entities holding Money values
  - loan/amortize.go: Heaviest decimal arithmetic in the system
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

// Currency is an ISO-style currency tag. The engine ships with the two
// currencies the back office operates in.
type Currency string

const (
	HTG Currency = "HTG"
	USD Currency = "USD"
)

// Supported lists the currencies accepted by validation.
func Supported() []Currency {
	return []Currency{HTG, USD}
}

// IsSupported reports whether c is a known currency.
func (c Currency) IsSupported() bool {
	for _, s := range Supported() {
		if c == s {
			return true
		}
	}
	return false
}

// =============================================================================
// MONEY - decimal amount + currency tag
// =============================================================================

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func New(value float64, currency Currency) Money {
	return Money{Amount: decimal.NewFromFloat(value), Currency: currency}
}

func FromDecimal(d decimal.Decimal, currency Currency) Money {
	return Money{Amount: d, Currency: currency}
}

// Parse builds a Money from its string representation, e.g. "227.28".
func Parse(s string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Arithmetic. Operands are assumed to share a currency; the service layer
// enforces that before arithmetic happens.
func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency} }
func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency} }
func (m Money) Neg() Money        { return Money{Amount: m.Amount.Neg(), Currency: m.Currency} }

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

func (m Money) Equal(o Money) bool       { return m.Currency == o.Currency && m.Amount.Equal(o.Amount) }
func (m Money) LessThan(o Money) bool    { return m.Amount.LessThan(o.Amount) }
func (m Money) GreaterThan(o Money) bool { return m.Amount.GreaterThan(o.Amount) }

// SameCurrency reports whether both values carry the same tag.
func (m Money) SameCurrency(o Money) bool { return m.Currency == o.Currency }

// Round normalizes to the currency's minor unit (2 decimal places, half-up).
// decimal.Round rounds half away from zero, which for the non-negative
// amounts handled here is exactly round-half-up.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// String renders "1234.56 HTG".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}
