/*
Package ledger implements the account ledger and the transaction log.

PURPOSE:
  The account ledger is the single authority for account balances. Balances
  change through exactly one primitive - applyDelta - which is unconditional
  and side-effect-only so that reversal stays symmetric: reversing a debit
  is a credit of the same amount, and vice versa.

  Validation (minimum amounts, insufficient funds, currency matching) lives
  in the transaction log, which performs every check BEFORE the first
  balance mutation. See transactions.go.

ACCOUNT NUMBERS:
  System-generated: a two-letter prefix plus six zero-padded digits. The
  generator checks candidates against the organization's existing numbers
  and retries on collision.

SEE ALSO:
  - transactions.go: Deposit/withdrawal/transfer orchestration
  - clients.go: Client onboarding
  - bank/types.go: Entity model
*/
package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/money"
)

// maxNumberAttempts bounds the collision-retry loop. The number space is
// 10^6 per prefix; a back office exhausting it has outgrown this generator.
const maxNumberAttempts = 50

// =============================================================================
// ACCOUNTS - Account lifecycle and the balance primitive
// =============================================================================

type Accounts struct {
	store  bank.Store
	prefix string

	now     func() time.Time
	newID   func() string
	randInt func(n int) int
}

// NewAccounts creates the account service. prefix is the two-letter account
// number prefix from policy configuration.
func NewAccounts(store bank.Store, prefix string) *Accounts {
	return &Accounts{
		store:   store,
		prefix:  prefix,
		now:     time.Now,
		newID:   uuid.NewString,
		randInt: rand.Intn,
	}
}

// Open creates a zero-balance account for the client and returns it.
func (a *Accounts) Open(ctx context.Context, org bank.OrgID, clientID bank.ClientID, typ bank.AccountType, currency money.Currency) (bank.Account, error) {
	if typ != bank.AccountSavings && typ != bank.AccountChecking {
		return bank.Account{}, fmt.Errorf("unknown account type %q: %w", typ, bank.ErrInvalidAmount)
	}
	if !currency.IsSupported() {
		return bank.Account{}, fmt.Errorf("unsupported currency %q: %w", currency, bank.ErrCurrencyMismatch)
	}

	client, err := a.store.Client(ctx, org, clientID)
	if err != nil {
		return bank.Account{}, err
	}

	number, err := a.uniqueNumber(ctx, org)
	if err != nil {
		return bank.Account{}, err
	}

	account := bank.Account{
		ID:            bank.AccountID(a.newID()),
		AccountNumber: number,
		Type:          typ,
		Balance:       money.Zero(currency),
		CreatedAt:     a.now(),
	}
	client.Accounts = append(client.Accounts, account)

	if err := a.store.SaveClient(ctx, client); err != nil {
		return bank.Account{}, err
	}
	return account, nil
}

// List returns the client's accounts.
func (a *Accounts) List(ctx context.Context, org bank.OrgID, clientID bank.ClientID) ([]bank.Account, error) {
	client, err := a.store.Client(ctx, org, clientID)
	if err != nil {
		return nil, err
	}
	return client.Accounts, nil
}

// ApplyDelta mutates the account balance by +amount (credit) or -amount
// (debit) and returns the client's new aggregate balance in the account's
// currency. It performs NO balance checks: the caller validates first.
func (a *Accounts) ApplyDelta(ctx context.Context, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money, dir bank.Direction) (money.Money, error) {
	return applyDelta(ctx, a.store, org, clientID, accountID, amount, dir)
}

// uniqueNumber generates an account number not yet in use within the
// organization, retrying on collision.
func (a *Accounts) uniqueNumber(ctx context.Context, org bank.OrgID) (string, error) {
	clients, err := a.store.Clients(ctx, org)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool)
	for _, c := range clients {
		for _, acc := range c.Accounts {
			taken[acc.AccountNumber] = true
		}
	}

	for i := 0; i < maxNumberAttempts; i++ {
		candidate := fmt.Sprintf("%s%06d", a.prefix, a.randInt(1000000))
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique account number after %d attempts", maxNumberAttempts)
}

// =============================================================================
// BALANCE APPLICATION - The one place balances change
// =============================================================================

// applyDelta is shared between the public primitive and the transaction
// log's transactional paths, which pass the store view bound to their
// transaction.
func applyDelta(ctx context.Context, st bank.Store, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money, dir bank.Direction) (money.Money, error) {
	client, err := st.Client(ctx, org, clientID)
	if err != nil {
		return money.Money{}, err
	}

	idx := -1
	for i := range client.Accounts {
		if client.Accounts[i].ID == accountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return money.Money{}, bank.ErrAccountNotFound
	}

	account := &client.Accounts[idx]
	switch dir {
	case bank.Credit:
		account.Balance = account.Balance.Add(amount)
	case bank.Debit:
		account.Balance = account.Balance.Sub(amount)
	default:
		return money.Money{}, fmt.Errorf("unknown direction %q", dir)
	}

	if err := st.SaveClient(ctx, client); err != nil {
		return money.Money{}, err
	}
	return client.TotalBalance(account.Balance.Currency), nil
}
