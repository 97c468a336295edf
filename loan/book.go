/*
book.go - Loan lifecycle and payment ledger

STATE MACHINE:
  pending --(approve)--> active
  pending --(reject)--> defaulted
  active  --(post payment, balance > 0 after)--> active
  active  --(post payment, balance == 0 after)--> completed
  active  --(mark defaulted)--> defaulted

  completed and defaulted are terminal. completed is reachable ONLY through
  a payment bringing the remaining balance to exactly zero; SetStatus
  refuses it. No transition happens on the passage of time - default
  detection belongs to external reporting.

INVARIANT:
  remainingBalance == principal - sum(payments), and never negative.
  Payments are append-only; overpayment is rejected with ExceedsBalance
  rather than silently clamped, so no amount ever vanishes from the
  accounting trail.
*/
package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/money"
)

// Policy carries the configured validation limits for loans.
type Policy struct {
	// MinAmount is the smallest accepted loan principal.
	MinAmount decimal.Decimal
}

// transitions is the closed set of SetStatus moves. Completion is absent:
// it only happens through PostPayment.
var transitions = map[bank.LoanStatus][]bank.LoanStatus{
	bank.LoanPending: {bank.LoanActive, bank.LoanDefaulted},
	bank.LoanActive:  {bank.LoanDefaulted},
}

func allowed(from, to bank.LoanStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// =============================================================================
// BOOK - Loan origination and payment service
// =============================================================================

type Book struct {
	store  bank.Store
	policy Policy

	now   func() time.Time
	newID func() string
}

func NewBook(store bank.Store, policy Policy) *Book {
	return &Book{store: store, policy: policy, now: time.Now, newID: uuid.NewString}
}

// Create originates a loan in pending state with the full principal
// outstanding. The monthly payment is computed once, here.
func (b *Book) Create(ctx context.Context, org bank.OrgID, clientID bank.ClientID, amount money.Money, annualRatePercent decimal.Decimal, termMonths int, startDate time.Time, purpose string) (bank.Loan, error) {
	if !amount.Currency.IsSupported() {
		return bank.Loan{}, fmt.Errorf("unsupported currency %q: %w", amount.Currency, bank.ErrInvalidAmount)
	}
	if amount.Amount.LessThan(b.policy.MinAmount) {
		return bank.Loan{}, &bank.BelowMinimumError{
			Minimum:   money.FromDecimal(b.policy.MinAmount, amount.Currency),
			Requested: amount,
		}
	}

	schedule, err := Amortize(amount.Amount, annualRatePercent, termMonths)
	if err != nil {
		return bank.Loan{}, err
	}

	if _, err := b.store.Client(ctx, org, clientID); err != nil {
		return bank.Loan{}, err
	}

	l := bank.Loan{
		ID:               bank.LoanID(b.newID()),
		OrgID:            org,
		ClientID:         clientID,
		Amount:           amount,
		InterestRate:     annualRatePercent,
		TermMonths:       termMonths,
		StartDate:        startDate,
		EndDate:          startDate.AddDate(0, termMonths, 0),
		PaymentAmount:    money.FromDecimal(schedule.MonthlyPayment, amount.Currency),
		Status:           bank.LoanPending,
		Purpose:          purpose,
		RemainingBalance: amount,
		Payments:         nil,
	}
	if err := b.store.SaveLoan(ctx, l); err != nil {
		return bank.Loan{}, err
	}
	return l, nil
}

// Approve moves a pending loan to active.
func (b *Book) Approve(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	return b.SetStatus(ctx, org, id, bank.LoanActive)
}

// Reject moves a pending loan to defaulted.
func (b *Book) Reject(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	return b.SetStatus(ctx, org, id, bank.LoanDefaulted)
}

// MarkDefaulted marks an active loan as defaulted. This is a manual
// back-office action; nothing times out automatically.
func (b *Book) MarkDefaulted(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	return b.SetStatus(ctx, org, id, bank.LoanDefaulted)
}

// SetStatus applies a lifecycle transition, enforcing the transition table.
// Disallowed transitions fail with ErrInvalidLoanState; nothing is applied
// silently.
func (b *Book) SetStatus(ctx context.Context, org bank.OrgID, id bank.LoanID, to bank.LoanStatus) (bank.Loan, error) {
	l, err := b.store.Loan(ctx, org, id)
	if err != nil {
		return bank.Loan{}, err
	}
	if !allowed(l.Status, to) {
		return bank.Loan{}, &bank.LoanStateError{LoanID: id, From: l.Status, To: to}
	}
	l.Status = to
	if err := b.store.SaveLoan(ctx, l); err != nil {
		return bank.Loan{}, err
	}
	return l, nil
}

// PostPayment appends a completed payment to an active loan and decrements
// the remaining balance. The loan completes when the balance reaches
// exactly zero.
func (b *Book) PostPayment(ctx context.Context, org bank.OrgID, id bank.LoanID, amount money.Money) (bank.Loan, error) {
	l, err := b.store.Loan(ctx, org, id)
	if err != nil {
		return bank.Loan{}, err
	}
	if l.Status != bank.LoanActive {
		return bank.Loan{}, &bank.LoanStateError{LoanID: id, From: l.Status, To: bank.LoanCompleted}
	}
	if !amount.SameCurrency(l.Amount) {
		return bank.Loan{}, bank.ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return bank.Loan{}, fmt.Errorf("payment must be positive: %w", bank.ErrInvalidAmount)
	}
	if amount.GreaterThan(l.RemainingBalance) {
		return bank.Loan{}, &bank.ExceedsBalanceError{
			LoanID:    id,
			Remaining: l.RemainingBalance,
			Requested: amount,
		}
	}

	l.Payments = append(l.Payments, bank.LoanPayment{
		ID:     bank.PaymentID(b.newID()),
		LoanID: id,
		Amount: amount,
		Date:   b.now(),
		Status: bank.PaymentCompleted,
	})
	l.RemainingBalance = l.RemainingBalance.Sub(amount)
	if l.RemainingBalance.IsZero() {
		l.Status = bank.LoanCompleted
	}

	if err := b.store.SaveLoan(ctx, l); err != nil {
		return bank.Loan{}, err
	}
	return l, nil
}

// Get returns one loan within the organization.
func (b *Book) Get(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	return b.store.Loan(ctx, org, id)
}

// List returns the organization's loans.
func (b *Book) List(ctx context.Context, org bank.OrgID) ([]bank.Loan, error) {
	return b.store.Loans(ctx, org)
}

// ByClient returns the client's loans.
func (b *Book) ByClient(ctx context.Context, org bank.OrgID, clientID bank.ClientID) ([]bank.Loan, error) {
	all, err := b.store.Loans(ctx, org)
	if err != nil {
		return nil, err
	}
	var result []bank.Loan
	for _, l := range all {
		if l.ClientID == clientID {
			result = append(result, l)
		}
	}
	return result, nil
}
