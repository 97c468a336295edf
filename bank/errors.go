/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All domain error kinds in one place. Services return these; the API layer
  maps them to HTTP statuses. Every operation is validate-then-commit: when
  one of these errors is returned, no state was mutated.

ERROR CATEGORIES:
  1. NotFound   - id does not resolve within the caller's organization
  2. Validation - bad amounts, currency mismatches, same-account transfers
  3. Funds      - insufficient balance, loan overpayment
  4. Lifecycle  - disallowed loan state transitions
  5. Archive    - malformed backup documents

USAGE:
  if errors.Is(err, bank.ErrInsufficientFunds) { ... }

  var ife *bank.InsufficientFundsError
  if errors.As(err, &ife) { fmt.Println(ife.Shortfall) }
*/
package bank

import (
	"errors"
	"fmt"

	"github.com/bvolvy/bwat-sekre/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrClientNotFound is returned when a client id does not resolve
	// within the caller's organization.
	ErrClientNotFound = errors.New("client not found")

	// ErrAccountNotFound is returned when a client/account pair does not
	// resolve within the caller's organization.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound is returned for unknown transaction ids.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLoanNotFound is returned for unknown loan ids.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrInvalidAmount is returned for zero, negative, or below-minimum
	// amounts. Rejected before any state change.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidClient is returned when client profile input fails
	// validation.
	ErrInvalidClient = errors.New("invalid client profile")

	// ErrInsufficientFunds is returned when a withdrawal or transfer exceeds
	// the account balance. The account is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidLoanState is returned for disallowed lifecycle transitions
	// or payments on non-active loans.
	ErrInvalidLoanState = errors.New("invalid loan state")

	// ErrExceedsBalance is returned when a loan payment exceeds the
	// remaining balance. Overpayment is rejected, never silently clamped.
	ErrExceedsBalance = errors.New("payment exceeds remaining balance")

	// ErrSameAccount is returned when a transfer names the same account on
	// both sides.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrCurrencyMismatch is returned when an operation mixes currencies.
	// The engine carries currency tags but performs no conversion.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidArchive is returned when a backup document fails structural
	// validation. Restore changes nothing in that case.
	ErrInvalidArchive = errors.New("invalid backup archive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError details a balance shortage.
type InsufficientFundsError struct {
	AccountID AccountID
	Available money.Money
	Requested money.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Shortfall returns how much the request exceeded the balance.
func (e *InsufficientFundsError) Shortfall() money.Money {
	return e.Requested.Sub(e.Available)
}

// BelowMinimumError details a policy-minimum violation.
type BelowMinimumError struct {
	Minimum   money.Money
	Requested money.Money
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("amount %s is below the minimum %s", e.Requested, e.Minimum)
}

func (e *BelowMinimumError) Unwrap() error { return ErrInvalidAmount }

// LoanStateError details a disallowed lifecycle transition.
type LoanStateError struct {
	LoanID LoanID
	From   LoanStatus
	To     LoanStatus
}

func (e *LoanStateError) Error() string {
	return fmt.Sprintf("loan %s: transition %s -> %s is not allowed", e.LoanID, e.From, e.To)
}

func (e *LoanStateError) Unwrap() error { return ErrInvalidLoanState }

// ExceedsBalanceError details a loan overpayment.
type ExceedsBalanceError struct {
	LoanID    LoanID
	Remaining money.Money
	Requested money.Money
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("loan %s: payment %s exceeds remaining balance %s",
		e.LoanID, e.Requested, e.Remaining)
}

func (e *ExceedsBalanceError) Unwrap() error { return ErrExceedsBalance }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidClient) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidLoanState) ||
		errors.Is(err, ErrExceedsBalance) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidArchive)
}
