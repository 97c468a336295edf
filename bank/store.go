/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the contract between services and storage. The engine holds three
  collections per organization - clients (embedding accounts), transactions,
  loans (embedding payments) - and every operation is organization-scoped.

ATOMICITY:
  Multi-step mutations (transfers, paired deletions, restores) run inside
  TxStore.WithTx. Either every write in the function commits or none do.
  This is what keeps a transfer from ever existing with a single leg.

IMPLEMENTATIONS:
  - bank/store: In-memory (tests, dev)
  - store/sqlite: SQLite (production)

SEE ALSO:
  - ledger/transactions.go: Transfer and paired-delete orchestration
  - backup/backup.go: ReplaceOrganization for all-or-nothing restore
*/
package bank

import (
	"context"
	"time"
)

// Organization is the metadata carried alongside an organization's
// collections, mainly for backup archives.
type Organization struct {
	ID        OrgID     `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// =============================================================================
// STORE - Organization-scoped collection persistence
// =============================================================================

// Store persists the three collections of one or more organizations.
// Every read filters by organization; an id that exists under a different
// organization behaves exactly like a missing id.
type Store interface {
	// Clients (accounts are embedded in the client record).
	SaveClient(ctx context.Context, c Client) error
	Client(ctx context.Context, org OrgID, id ClientID) (Client, error)
	Clients(ctx context.Context, org OrgID) ([]Client, error)

	// Transactions. AppendTransactions writes all records or none; it is
	// how both legs of a transfer land together. RemoveTransactions exists
	// solely for delete-with-reversal; the ledger reverses balances first.
	AppendTransaction(ctx context.Context, tx Transaction) error
	AppendTransactions(ctx context.Context, txs []Transaction) error
	RemoveTransactions(ctx context.Context, org OrgID, ids ...TransactionID) error
	Transaction(ctx context.Context, org OrgID, id TransactionID) (Transaction, error)
	Transactions(ctx context.Context, org OrgID) ([]Transaction, error)
	TransactionsByRef(ctx context.Context, org OrgID, transferRef string) ([]Transaction, error)

	// Loans (payments are embedded in the loan record).
	SaveLoan(ctx context.Context, l Loan) error
	Loan(ctx context.Context, org OrgID, id LoanID) (Loan, error)
	Loans(ctx context.Context, org OrgID) ([]Loan, error)

	// ReplaceOrganization atomically swaps an organization's full state.
	// Used by backup restore; all-or-nothing.
	ReplaceOrganization(ctx context.Context, org OrgID, clients []Client, txs []Transaction, loans []Loan) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with a transaction boundary.
// If fn returns an error the whole transaction rolls back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
