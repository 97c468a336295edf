/*
Package report provides read-only projections over the engine's state.

PURPOSE:
  Date-ranged summaries for the reporting screens: deposit and withdrawal
  totals, transfer volume, new-client counts, active-loan counts and
  outstanding principal. Pure reads - no mutation, safe to call repeatedly
  and concurrently with reads elsewhere.

RANGES:
  A Range is inclusive on both ends. The zero Range matches everything,
  which is what the all-time dashboard uses.
*/
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/money"
)

// Range is an inclusive date window. Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Summary is the aggregate view of one organization over a range.
type Summary struct {
	Range Range `json:"-"`

	TransactionCount int             `json:"transactionCount"`
	DepositTotal     decimal.Decimal `json:"depositTotal"`
	WithdrawalTotal  decimal.Decimal `json:"withdrawalTotal"`
	TransferVolume   decimal.Decimal `json:"transferVolume"`
	NetFlow          decimal.Decimal `json:"netFlow"`

	NewClients int `json:"newClients"`

	ActiveLoans          int             `json:"activeLoans"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	store bank.Store
}

func NewAggregator(store bank.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summary computes the organization's aggregate view for the range.
// Transfer legs count into TransferVolume once per pair (debit legs only);
// active-loan figures ignore the range since outstanding principal is a
// point-in-time quantity.
func (a *Aggregator) Summary(ctx context.Context, org bank.OrgID, r Range) (Summary, error) {
	s := Summary{
		Range:                r,
		DepositTotal:         decimal.Zero,
		WithdrawalTotal:      decimal.Zero,
		TransferVolume:       decimal.Zero,
		NetFlow:              decimal.Zero,
		OutstandingPrincipal: decimal.Zero,
	}

	txs, err := a.store.Transactions(ctx, org)
	if err != nil {
		return Summary{}, err
	}
	for _, tx := range txs {
		if !r.Contains(tx.Date) {
			continue
		}
		s.TransactionCount++
		switch tx.Kind {
		case bank.KindDeposit:
			s.DepositTotal = s.DepositTotal.Add(tx.Amount.Amount)
		case bank.KindWithdrawal:
			s.WithdrawalTotal = s.WithdrawalTotal.Add(tx.Amount.Amount)
		case bank.KindTransfer:
			if tx.Direction == bank.Debit {
				s.TransferVolume = s.TransferVolume.Add(tx.Amount.Amount)
			}
		}
	}
	s.NetFlow = s.DepositTotal.Sub(s.WithdrawalTotal)

	clients, err := a.store.Clients(ctx, org)
	if err != nil {
		return Summary{}, err
	}
	for _, c := range clients {
		if r.Contains(c.CreatedAt) {
			s.NewClients++
		}
	}

	loans, err := a.store.Loans(ctx, org)
	if err != nil {
		return Summary{}, err
	}
	for _, l := range loans {
		if l.Status == bank.LoanActive {
			s.ActiveLoans++
			s.OutstandingPrincipal = s.OutstandingPrincipal.Add(l.RemainingBalance.Amount)
		}
	}

	return s, nil
}

// TransactionsIn lists the organization's transactions dated in the range.
func (a *Aggregator) TransactionsIn(ctx context.Context, org bank.OrgID, r Range) ([]bank.Transaction, error) {
	txs, err := a.store.Transactions(ctx, org)
	if err != nil {
		return nil, err
	}
	var result []bank.Transaction
	for _, tx := range txs {
		if r.Contains(tx.Date) {
			result = append(result, tx)
		}
	}
	return result, nil
}

// LoansIn lists the organization's loans started in the range.
func (a *Aggregator) LoansIn(ctx context.Context, org bank.OrgID, r Range) ([]bank.Loan, error) {
	loans, err := a.store.Loans(ctx, org)
	if err != nil {
		return nil, err
	}
	var result []bank.Loan
	for _, l := range loans {
		if r.Contains(l.StartDate) {
			result = append(result, l)
		}
	}
	return result, nil
}

// ClientsIn lists the organization's clients onboarded in the range.
func (a *Aggregator) ClientsIn(ctx context.Context, org bank.OrgID, r Range) ([]bank.Client, error) {
	clients, err := a.store.Clients(ctx, org)
	if err != nil {
		return nil, err
	}
	var result []bank.Client
	for _, c := range clients {
		if r.Contains(c.CreatedAt) {
			result = append(result, c)
		}
	}
	return result, nil
}

// TotalBalances sums every client's aggregate balance in the currency.
func (a *Aggregator) TotalBalances(ctx context.Context, org bank.OrgID, currency money.Currency) (money.Money, error) {
	clients, err := a.store.Clients(ctx, org)
	if err != nil {
		return money.Money{}, err
	}
	total := money.Zero(currency)
	for _, c := range clients {
		total = total.Add(c.TotalBalance(currency))
	}
	return total, nil
}
