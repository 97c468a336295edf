/*
Package bank defines the core domain model of the back-office engine.

PURPOSE:
  This package is the single source of truth for entities and their
  invariants: clients with embedded accounts, the transaction log, loans
  with embedded payments. Services in ledger/ and loan/ operate on these
  types through the Store interfaces defined in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers: OrgID, ClientID, AccountID, TransactionID, LoanID
  - Kind/Direction: closed tagged variants for money movements
  - Client.TotalBalance(): aggregate balance is DERIVED, never stored

DESIGN PRINCIPLES:
  1. Derive, don't cache: a client's total balance is always the sum of its
     account balances. There is no independently mutable total field.
  2. Closed variants: movement kinds and directions are exhaustively matched
     in one balance-application function (ledger.applyDelta), so a new
     movement kind is a compile-visible change.
  3. Org scoping: every entity carries OrgID; every lookup filters on it.

SEE ALSO:
  - errors.go: Error taxonomy
  - store.go: Persistence interfaces
  - ledger/: Account ledger and transaction log services
  - loan/: Amortization and loan lifecycle
*/
package bank

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/money"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrgID string
type ClientID string
type AccountID string
type TransactionID string
type LoanID string
type PaymentID string

// =============================================================================
// CLIENT - Owns accounts; aggregate balance is derived
// =============================================================================

type EmergencyContact struct {
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Relationship string `json:"relationship"`
}

type Client struct {
	ID           ClientID         `json:"id"`
	OrgID        OrgID            `json:"organizationId"`
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	PhoneNumber  string           `json:"phoneNumber"`
	Address      string           `json:"address"`
	Email        string           `json:"email"`
	Emergency    EmergencyContact `json:"emergencyContact"`
	ProfileImage string           `json:"profileImage"`
	CreatedAt    time.Time        `json:"createdAt"`
	Accounts     []Account        `json:"accounts"`
}

// TotalBalance is the sum of the client's account balances in the given
// currency. It is a projection, recomputed on every call; storing it was a
// drift bug in an earlier incarnation of this system.
func (c Client) TotalBalance(currency money.Currency) money.Money {
	total := money.Zero(currency)
	for _, a := range c.Accounts {
		if a.Balance.Currency == currency {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// Account returns the embedded account with the given id.
func (c Client) Account(id AccountID) (Account, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountSavings  AccountType = "savings"
	AccountChecking AccountType = "checking"
)

type Account struct {
	ID            AccountID   `json:"id"`
	AccountNumber string      `json:"accountNumber"`
	Type          AccountType `json:"type"`
	Balance       money.Money `json:"balance"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// =============================================================================
// TRANSACTION - One recorded money movement
// =============================================================================

// Kind is the closed set of movement types. A transfer is recorded as TWO
// transactions sharing a TransferRef: a debit leg at the sender and a credit
// leg at the recipient.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Direction states how a transaction moves its account's balance.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Reverse returns the opposite direction; reversing a debit is a credit of
// the same amount and vice versa.
func (d Direction) Reverse() Direction {
	if d == Credit {
		return Debit
	}
	return Credit
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID          TransactionID     `json:"id"`
	OrgID       OrgID             `json:"organizationId"`
	ClientID    ClientID          `json:"clientId"`
	AccountID   AccountID         `json:"accountId"`
	Kind        Kind              `json:"type"`
	Direction   Direction         `json:"direction"`
	Amount      money.Money       `json:"amount"`
	Description string            `json:"description"`
	Date        time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`

	// Transfer legs only. RecipientAccountID on the debit leg points at the
	// receiving account, on the credit leg at the sending account. Both legs
	// carry the same TransferRef so they can be reversed together.
	RecipientAccountID AccountID `json:"recipientAccountId,omitempty"`
	RecipientClientID  ClientID  `json:"recipientClientId,omitempty"`
	TransferRef        string    `json:"transferRef,omitempty"`
}

// IsTransferLeg reports whether the transaction is one half of a transfer.
func (t Transaction) IsTransferLeg() bool { return t.Kind == KindTransfer }

// =============================================================================
// LOAN - Amortized loan with embedded payment history
// =============================================================================

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanDefaulted LoanStatus = "defaulted"
)

// Terminal reports whether no further transition is defined out of s.
func (s LoanStatus) Terminal() bool {
	return s == LoanCompleted || s == LoanDefaulted
}

type Loan struct {
	ID               LoanID        `json:"id"`
	OrgID            OrgID         `json:"organizationId"`
	ClientID         ClientID      `json:"clientId"`
	Amount           money.Money   `json:"amount"`
	InterestRate     decimal.Decimal `json:"interestRate"` // annual percent
	TermMonths       int           `json:"term"`
	StartDate        time.Time     `json:"startDate"`
	EndDate          time.Time     `json:"endDate"`
	PaymentAmount    money.Money   `json:"paymentAmount"`
	Status           LoanStatus    `json:"status"`
	Purpose          string        `json:"purpose"`
	RemainingBalance money.Money   `json:"remainingBalance"`
	Payments         []LoanPayment `json:"payments"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// LoanPayment is append-only: once posted it is never edited or deleted,
// since the remaining balance is derived by accumulating payments against
// the principal.
type LoanPayment struct {
	ID     PaymentID     `json:"id"`
	LoanID LoanID        `json:"loanId"`
	Amount money.Money   `json:"amount"`
	Date   time.Time     `json:"date"`
	Status PaymentStatus `json:"status"`
}

// PaidToDate sums the loan's posted payments.
func (l Loan) PaidToDate() money.Money {
	total := money.Zero(l.Amount.Currency)
	for _, p := range l.Payments {
		total = total.Add(p.Amount)
	}
	return total
}
