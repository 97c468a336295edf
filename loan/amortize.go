/*
Package loan implements loan origination, amortization and payment tracking.

PURPOSE:
  Two pieces: a pure amortization calculator (this file) and the Book
  service owning the loan status state machine and remaining-balance
  invariant (book.go).

AMORTIZATION:
  Standard fixed-payment annuity. For principal P, monthly rate r and term
  n months:

      payment = P * r * (1+r)^n / ((1+r)^n - 1)

  A zero rate degenerates to straight-line P/n, which also keeps the
  formula's denominator away from zero. The payment is rounded to the
  currency's minor unit (2 decimal places, half-up); totals derive from the
  rounded payment.

DETERMINISM:
  Amortize is stateless and side-effect-free: identical inputs produce
  identical outputs on every call. The API exposes it standalone for live
  form previews before a loan exists.
*/
package loan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/bank"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Schedule is the result of amortizing a loan.
type Schedule struct {
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalRepayment decimal.Decimal `json:"totalRepayment"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
}

// Amortize computes the fixed monthly payment for a standard amortizing
// loan. principal must be positive, annualRatePercent non-negative and
// termMonths positive.
func Amortize(principal decimal.Decimal, annualRatePercent decimal.Decimal, termMonths int) (Schedule, error) {
	if !principal.IsPositive() {
		return Schedule{}, fmt.Errorf("principal must be positive: %w", bank.ErrInvalidAmount)
	}
	if annualRatePercent.IsNegative() {
		return Schedule{}, fmt.Errorf("interest rate must not be negative: %w", bank.ErrInvalidAmount)
	}
	if termMonths <= 0 {
		return Schedule{}, fmt.Errorf("term must be positive: %w", bank.ErrInvalidAmount)
	}

	term := decimal.NewFromInt(int64(termMonths))
	monthlyRate := annualRatePercent.Div(hundred).Div(twelve)

	var payment decimal.Decimal
	if monthlyRate.IsZero() {
		payment = principal.Div(term)
	} else {
		factor := one.Add(monthlyRate).Pow(term)
		payment = principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one))
	}
	payment = payment.Round(2)

	total := payment.Mul(term)
	return Schedule{
		MonthlyPayment: payment,
		TotalRepayment: total,
		TotalInterest:  total.Sub(principal),
	}, nil
}
