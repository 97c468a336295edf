/*
transactions.go - The transaction log

PURPOSE:
  Validates and records money movements, orchestrating the account ledger.
  Every operation is validate-then-commit: all checks run before the first
  balance mutation, and multi-step mutations (transfers, paired deletions)
  run inside one store transaction.

TRANSFERS:
  A transfer is recorded as TWO transactions - a debit leg at the sender and
  a credit leg at the recipient - written atomically together with both
  balance updates. Both legs carry the same TransferRef. The log never
  leaves a transfer with exactly one leg recorded.

DELETION:
  Delete reverses the balance effect (credit becomes debit and vice versa)
  and removes the record. Deleting either leg of a transfer removes BOTH
  legs and reverses BOTH balances in the same store transaction.

SEE ALSO:
  - accounts.go: applyDelta, the only balance mutation path
  - bank/errors.go: ErrInsufficientFunds, ErrInvalidAmount, ErrSameAccount
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/money"
)

// =============================================================================
// POLICY - Configured limits, never hardcoded in the engine
// =============================================================================

// Policy carries the configured validation limits for money movements.
type Policy struct {
	// MinAmount is the smallest accepted deposit/withdrawal/transfer amount.
	MinAmount decimal.Decimal
}

// =============================================================================
// LOG - Transaction recording service
// =============================================================================

type Log struct {
	store  bank.TxStore
	policy Policy

	now   func() time.Time
	newID func() string
}

func NewLog(store bank.TxStore, policy Policy) *Log {
	return &Log{store: store, policy: policy, now: time.Now, newID: uuid.NewString}
}

// Deposit records a completed deposit and credits the account. Deposits
// never fail for insufficient funds.
func (l *Log) Deposit(ctx context.Context, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money, description string) (bank.Transaction, error) {
	if err := l.validateAmount(amount); err != nil {
		return bank.Transaction{}, err
	}
	tx := l.newTransaction(org, clientID, accountID, bank.KindDeposit, bank.Credit, amount, description)
	err := l.store.WithTx(ctx, func(st bank.Store) error {
		if _, err := resolveAccountIn(ctx, st, org, clientID, accountID, amount); err != nil {
			return err
		}
		if _, err := applyDelta(ctx, st, org, clientID, accountID, amount, bank.Credit); err != nil {
			return err
		}
		return st.AppendTransaction(ctx, tx)
	})
	if err != nil {
		return bank.Transaction{}, err
	}
	return tx, nil
}

// Withdraw records a completed withdrawal and debits the account. Fails
// with ErrInsufficientFunds before touching the ledger when the amount
// exceeds the balance.
func (l *Log) Withdraw(ctx context.Context, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money, description string) (bank.Transaction, error) {
	if err := l.validateAmount(amount); err != nil {
		return bank.Transaction{}, err
	}

	tx := l.newTransaction(org, clientID, accountID, bank.KindWithdrawal, bank.Debit, amount, description)
	err := l.store.WithTx(ctx, func(st bank.Store) error {
		// The funds check happens inside the transaction boundary so a
		// concurrent withdrawal cannot validate against a stale balance.
		account, err := resolveAccountIn(ctx, st, org, clientID, accountID, amount)
		if err != nil {
			return err
		}
		if amount.GreaterThan(account.Balance) {
			return &bank.InsufficientFundsError{
				AccountID: accountID,
				Available: account.Balance,
				Requested: amount,
			}
		}
		if _, err := applyDelta(ctx, st, org, clientID, accountID, amount, bank.Debit); err != nil {
			return err
		}
		return st.AppendTransaction(ctx, tx)
	})
	if err != nil {
		return bank.Transaction{}, err
	}
	return tx, nil
}

// Transfer debits the sender, credits the recipient, and records both legs.
// All four effects commit together or not at all.
func (l *Log) Transfer(ctx context.Context, org bank.OrgID, fromClient bank.ClientID, fromAccount bank.AccountID, toClient bank.ClientID, toAccount bank.AccountID, amount money.Money, description string) (debit, credit bank.Transaction, err error) {
	if err := l.validateAmount(amount); err != nil {
		return bank.Transaction{}, bank.Transaction{}, err
	}
	if fromAccount == toAccount {
		return bank.Transaction{}, bank.Transaction{}, bank.ErrSameAccount
	}

	ref := l.newID()
	debit = l.newTransaction(org, fromClient, fromAccount, bank.KindTransfer, bank.Debit, amount, description)
	debit.RecipientAccountID = toAccount
	debit.RecipientClientID = toClient
	debit.TransferRef = ref

	credit = l.newTransaction(org, toClient, toAccount, bank.KindTransfer, bank.Credit, amount, description)
	credit.RecipientAccountID = fromAccount
	credit.RecipientClientID = fromClient
	credit.TransferRef = ref

	err = l.store.WithTx(ctx, func(st bank.Store) error {
		sender, err := resolveAccountIn(ctx, st, org, fromClient, fromAccount, amount)
		if err != nil {
			return err
		}
		recipient, err := resolveAccountIn(ctx, st, org, toClient, toAccount, amount)
		if err != nil {
			return err
		}
		if !sender.Balance.SameCurrency(recipient.Balance) {
			return bank.ErrCurrencyMismatch
		}
		if amount.GreaterThan(sender.Balance) {
			return &bank.InsufficientFundsError{
				AccountID: fromAccount,
				Available: sender.Balance,
				Requested: amount,
			}
		}

		if _, err := applyDelta(ctx, st, org, fromClient, fromAccount, amount, bank.Debit); err != nil {
			return err
		}
		if _, err := applyDelta(ctx, st, org, toClient, toAccount, amount, bank.Credit); err != nil {
			return err
		}
		return st.AppendTransactions(ctx, []bank.Transaction{debit, credit})
	})
	if err != nil {
		return bank.Transaction{}, bank.Transaction{}, err
	}
	return debit, credit, nil
}

// Delete reverses a transaction's balance effect and removes its record.
// For transfer legs both legs are removed and both balances reversed
// atomically; the log never holds a one-legged transfer.
func (l *Log) Delete(ctx context.Context, org bank.OrgID, id bank.TransactionID) error {
	tx, err := l.store.Transaction(ctx, org, id)
	if err != nil {
		return err
	}

	legs := []bank.Transaction{tx}
	if tx.IsTransferLeg() {
		legs, err = l.store.TransactionsByRef(ctx, org, tx.TransferRef)
		if err != nil {
			return err
		}
	}

	return l.store.WithTx(ctx, func(st bank.Store) error {
		ids := make([]bank.TransactionID, 0, len(legs))
		for _, leg := range legs {
			if _, err := applyDelta(ctx, st, org, leg.ClientID, leg.AccountID, leg.Amount, leg.Direction.Reverse()); err != nil {
				return err
			}
			ids = append(ids, leg.ID)
		}
		return st.RemoveTransactions(ctx, org, ids...)
	})
}

// Get returns one transaction within the organization.
func (l *Log) Get(ctx context.Context, org bank.OrgID, id bank.TransactionID) (bank.Transaction, error) {
	return l.store.Transaction(ctx, org, id)
}

// List returns the organization's transactions, oldest first.
func (l *Log) List(ctx context.Context, org bank.OrgID) ([]bank.Transaction, error) {
	return l.store.Transactions(ctx, org)
}

// ByClient returns the client's transactions.
func (l *Log) ByClient(ctx context.Context, org bank.OrgID, clientID bank.ClientID) ([]bank.Transaction, error) {
	all, err := l.store.Transactions(ctx, org)
	if err != nil {
		return nil, err
	}
	var result []bank.Transaction
	for _, tx := range all {
		if tx.ClientID == clientID {
			result = append(result, tx)
		}
	}
	return result, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func (l *Log) validateAmount(amount money.Money) error {
	if !amount.Currency.IsSupported() {
		return fmt.Errorf("unsupported currency %q: %w", amount.Currency, bank.ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %w", bank.ErrInvalidAmount)
	}
	if amount.Amount.LessThan(l.policy.MinAmount) {
		return &bank.BelowMinimumError{
			Minimum:   money.FromDecimal(l.policy.MinAmount, amount.Currency),
			Requested: amount,
		}
	}
	return nil
}

// resolveAccountIn loads the account and checks the movement's currency
// against it.
func resolveAccountIn(ctx context.Context, st bank.Store, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money) (bank.Account, error) {
	client, err := st.Client(ctx, org, clientID)
	if err != nil {
		return bank.Account{}, err
	}
	account, ok := client.Account(accountID)
	if !ok {
		return bank.Account{}, bank.ErrAccountNotFound
	}
	if !account.Balance.SameCurrency(amount) {
		return bank.Account{}, bank.ErrCurrencyMismatch
	}
	return account, nil
}

func (l *Log) newTransaction(org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, kind bank.Kind, dir bank.Direction, amount money.Money, description string) bank.Transaction {
	return bank.Transaction{
		ID:          bank.TransactionID(l.newID()),
		OrgID:       org,
		ClientID:    clientID,
		AccountID:   accountID,
		Kind:        kind,
		Direction:   dir,
		Amount:      amount,
		Description: description,
		Date:        l.now(),
		Status:      bank.TxCompleted,
	}
}
