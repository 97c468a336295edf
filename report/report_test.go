package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/bank/store"
	"github.com/bvolvy/bwat-sekre/money"
	"github.com/bvolvy/bwat-sekre/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testOrg = bank.OrgID("org-1")

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC)
}

func tx(id string, kind bank.Kind, dir bank.Direction, amount float64, date time.Time) bank.Transaction {
	return bank.Transaction{
		ID:        bank.TransactionID(id),
		OrgID:     testOrg,
		ClientID:  "client-1",
		AccountID: "acc-1",
		Kind:      kind,
		Direction: dir,
		Amount:    money.New(amount, money.HTG),
		Date:      date,
		Status:    bank.TxCompleted,
	}
}

func seedStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, st.SaveClient(ctx, bank.Client{
		ID: "client-1", OrgID: testOrg, FirstName: "Marie", LastName: "Joseph",
		CreatedAt: day(2),
		Accounts: []bank.Account{{
			ID: "acc-1", AccountNumber: "BS000001", Type: bank.AccountSavings,
			Balance: money.New(700, money.HTG), CreatedAt: day(2),
		}},
	}))
	require.NoError(t, st.SaveClient(ctx, bank.Client{
		ID: "client-2", OrgID: testOrg, FirstName: "Jean", LastName: "Pierre",
		CreatedAt: day(20),
		Accounts: []bank.Account{{
			ID: "acc-2", AccountNumber: "BS000002", Type: bank.AccountChecking,
			Balance: money.New(300, money.HTG), CreatedAt: day(20),
		}},
	}))

	require.NoError(t, st.AppendTransactions(ctx, []bank.Transaction{
		tx("t1", bank.KindDeposit, bank.Credit, 1000, day(3)),
		tx("t2", bank.KindWithdrawal, bank.Debit, 250, day(5)),
		tx("t3", bank.KindTransfer, bank.Debit, 100, day(8)),
		tx("t4", bank.KindTransfer, bank.Credit, 100, day(8)),
		tx("t5", bank.KindDeposit, bank.Credit, 400, day(25)),
	}))

	require.NoError(t, st.SaveLoan(ctx, bank.Loan{
		ID: "loan-1", OrgID: testOrg, ClientID: "client-1",
		Amount: money.New(5000, money.HTG), Status: bank.LoanActive,
		RemainingBalance: money.New(4500, money.HTG),
		StartDate:        day(4), EndDate: day(4).AddDate(2, 0, 0),
	}))
	require.NoError(t, st.SaveLoan(ctx, bank.Loan{
		ID: "loan-2", OrgID: testOrg, ClientID: "client-2",
		Amount: money.New(1000, money.HTG), Status: bank.LoanPending,
		RemainingBalance: money.New(1000, money.HTG),
		StartDate:        day(22), EndDate: day(22).AddDate(1, 0, 0),
	}))
	return st
}

// =============================================================================
// RANGE SEMANTICS
// =============================================================================

func TestRange_InclusiveBounds(t *testing.T) {
	r := report.Range{From: day(5), To: day(10)}

	assert.True(t, r.Contains(day(5)), "start is inclusive")
	assert.True(t, r.Contains(day(10)), "end is inclusive")
	assert.True(t, r.Contains(day(7)))
	assert.False(t, r.Contains(day(4)))
	assert.False(t, r.Contains(day(11)))
}

func TestRange_OpenBounds(t *testing.T) {
	assert.True(t, report.Range{}.Contains(day(1)), "zero range contains everything")
	assert.True(t, report.Range{From: day(5)}.Contains(day(30)))
	assert.False(t, report.Range{From: day(5)}.Contains(day(1)))
	assert.True(t, report.Range{To: day(5)}.Contains(day(1)))
	assert.False(t, report.Range{To: day(5)}.Contains(day(30)))
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestAggregator_Summary_FullMonth(t *testing.T) {
	agg := report.NewAggregator(seedStore(t))

	s, err := agg.Summary(context.Background(), testOrg, report.Range{From: day(1), To: day(31)})
	require.NoError(t, err)

	assert.Equal(t, 5, s.TransactionCount)
	assert.Equal(t, "1400", s.DepositTotal.String())
	assert.Equal(t, "250", s.WithdrawalTotal.String())
	// Only the debit leg counts; the pair moves 100 once.
	assert.Equal(t, "100", s.TransferVolume.String())
	assert.Equal(t, "1150", s.NetFlow.String())
	assert.Equal(t, 2, s.NewClients)
	assert.Equal(t, 1, s.ActiveLoans)
	assert.Equal(t, "4500", s.OutstandingPrincipal.String())
}

func TestAggregator_Summary_PartialRange(t *testing.T) {
	// GIVEN: Activity across March
	// WHEN: Summarizing March 1-10 only
	// THEN: Late-month activity is excluded, loan figures stay point-in-time

	agg := report.NewAggregator(seedStore(t))

	s, err := agg.Summary(context.Background(), testOrg, report.Range{From: day(1), To: day(10)})
	require.NoError(t, err)

	assert.Equal(t, 4, s.TransactionCount)
	assert.Equal(t, "1000", s.DepositTotal.String())
	assert.Equal(t, 1, s.NewClients)
	assert.Equal(t, 1, s.ActiveLoans, "active loans ignore the range")
}

func TestAggregator_Summary_EmptyOrg(t *testing.T) {
	agg := report.NewAggregator(store.NewMemory())

	s, err := agg.Summary(context.Background(), "empty-org", report.Range{})
	require.NoError(t, err)

	assert.Zero(t, s.TransactionCount)
	assert.True(t, s.DepositTotal.IsZero())
	assert.True(t, s.NetFlow.IsZero())
	assert.Zero(t, s.ActiveLoans)
}

// =============================================================================
// LISTINGS AND BALANCES
// =============================================================================

func TestAggregator_TransactionsIn(t *testing.T) {
	agg := report.NewAggregator(seedStore(t))

	txs, err := agg.TransactionsIn(context.Background(), testOrg, report.Range{From: day(4), To: day(9)})
	require.NoError(t, err)
	require.Len(t, txs, 3)
}

func TestAggregator_LoansAndClientsIn(t *testing.T) {
	agg := report.NewAggregator(seedStore(t))
	ctx := context.Background()

	loans, err := agg.LoansIn(ctx, testOrg, report.Range{To: day(10)})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, bank.LoanID("loan-1"), loans[0].ID)

	clients, err := agg.ClientsIn(ctx, testOrg, report.Range{From: day(15)})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, bank.ClientID("client-2"), clients[0].ID)
}

func TestAggregator_TotalBalances(t *testing.T) {
	agg := report.NewAggregator(seedStore(t))

	total, err := agg.TotalBalances(context.Background(), testOrg, money.HTG)
	require.NoError(t, err)
	assert.Equal(t, "1000.00 HTG", total.String())

	usd, err := agg.TotalBalances(context.Background(), testOrg, money.USD)
	require.NoError(t, err)
	assert.True(t, usd.IsZero())
}
