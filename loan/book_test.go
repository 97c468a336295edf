package loan_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/bank/store"
	"github.com/bvolvy/bwat-sekre/loan"
	"github.com/bvolvy/bwat-sekre/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testOrg = bank.OrgID("org-1")

func newTestBook(t *testing.T) (*loan.Book, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	book := loan.NewBook(st, loan.Policy{MinAmount: decimal.NewFromInt(50)})

	err := st.SaveClient(context.Background(), bank.Client{
		ID:        "client-1",
		OrgID:     testOrg,
		FirstName: "Marie",
		LastName:  "Joseph",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return book, st
}

func newActiveLoan(t *testing.T, book *loan.Book, amount float64) bank.Loan {
	t.Helper()
	ctx := context.Background()
	l, err := book.Create(ctx, testOrg, "client-1", money.New(amount, money.HTG),
		dec("8.5"), 24, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), "business")
	require.NoError(t, err)
	l, err = book.Approve(ctx, testOrg, l.ID)
	require.NoError(t, err)
	return l
}

// =============================================================================
// ORIGINATION
// =============================================================================

func TestBook_Create_PendingWithSchedule(t *testing.T) {
	// GIVEN: A known client
	// WHEN: Originating 5000 HTG at 8.5% over 24 months
	// THEN: Loan is pending, fully outstanding, with the computed payment

	book, _ := newTestBook(t)
	start := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	l, err := book.Create(context.Background(), testOrg, "client-1",
		money.New(5000, money.HTG), dec("8.5"), 24, start, "inventory purchase")
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, bank.LoanPending, l.Status)
	assert.Equal(t, "227.28 HTG", l.PaymentAmount.String())
	assert.Equal(t, "5000.00 HTG", l.RemainingBalance.String())
	assert.Equal(t, start.AddDate(0, 24, 0), l.EndDate)
	assert.Empty(t, l.Payments)
}

func TestBook_Create_BelowMinimum(t *testing.T) {
	book, _ := newTestBook(t)

	_, err := book.Create(context.Background(), testOrg, "client-1",
		money.New(49.99, money.HTG), dec("8.5"), 24, time.Now(), "")

	var minErr *bank.BelowMinimumError
	require.ErrorAs(t, err, &minErr)
	assert.Equal(t, "50.00 HTG", minErr.Minimum.String())
}

func TestBook_Create_UnknownClient(t *testing.T) {
	book, _ := newTestBook(t)

	_, err := book.Create(context.Background(), testOrg, "nobody",
		money.New(5000, money.HTG), dec("8.5"), 24, time.Now(), "")
	assert.ErrorIs(t, err, bank.ErrClientNotFound)
}

func TestBook_Create_UnsupportedCurrency(t *testing.T) {
	book, _ := newTestBook(t)

	_, err := book.Create(context.Background(), testOrg, "client-1",
		money.New(5000, "EUR"), dec("8.5"), 24, time.Now(), "")
	assert.ErrorIs(t, err, bank.ErrInvalidAmount)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestBook_Lifecycle_ApproveThenDefault(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()

	l, err := book.Create(ctx, testOrg, "client-1", money.New(5000, money.HTG),
		dec("8.5"), 24, time.Now(), "")
	require.NoError(t, err)

	l, err = book.Approve(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.LoanActive, l.Status)

	l, err = book.MarkDefaulted(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.LoanDefaulted, l.Status)
}

func TestBook_Lifecycle_RejectPending(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()

	l, err := book.Create(ctx, testOrg, "client-1", money.New(5000, money.HTG),
		dec("8.5"), 24, time.Now(), "")
	require.NoError(t, err)

	l, err = book.Reject(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.LoanDefaulted, l.Status)
	assert.True(t, l.Status.Terminal())
}

func TestBook_Lifecycle_TerminalStatesAreFinal(t *testing.T) {
	// GIVEN: A defaulted loan
	// WHEN: Trying any further transition or payment
	// THEN: Everything is rejected

	book, _ := newTestBook(t)
	ctx := context.Background()

	l := newActiveLoan(t, book, 5000)
	l, err := book.MarkDefaulted(ctx, testOrg, l.ID)
	require.NoError(t, err)

	_, err = book.Approve(ctx, testOrg, l.ID)
	var stateErr *bank.LoanStateError
	assert.ErrorAs(t, err, &stateErr)

	_, err = book.PostPayment(ctx, testOrg, l.ID, money.New(100, money.HTG))
	assert.ErrorAs(t, err, &stateErr)
}

func TestBook_Lifecycle_PaymentOnPendingRejected(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()

	l, err := book.Create(ctx, testOrg, "client-1", money.New(5000, money.HTG),
		dec("8.5"), 24, time.Now(), "")
	require.NoError(t, err)

	_, err = book.PostPayment(ctx, testOrg, l.ID, money.New(100, money.HTG))
	var stateErr *bank.LoanStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, bank.LoanPending, stateErr.From)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestBook_PostPayment_DecrementsBalance(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	l := newActiveLoan(t, book, 5000)

	l, err := book.PostPayment(ctx, testOrg, l.ID, money.New(227.28, money.HTG))
	require.NoError(t, err)

	assert.Equal(t, "4772.72 HTG", l.RemainingBalance.String())
	assert.Equal(t, bank.LoanActive, l.Status)
	require.Len(t, l.Payments, 1)
	assert.Equal(t, bank.PaymentCompleted, l.Payments[0].Status)
	assert.Equal(t, "227.28 HTG", l.PaidToDate().String())
}

func TestBook_PostPayment_OverpaymentRejected(t *testing.T) {
	// GIVEN: An active loan with 100 HTG outstanding after payments
	// WHEN: Paying more than the remaining balance
	// THEN: The payment is rejected and nothing is recorded

	book, _ := newTestBook(t)
	ctx := context.Background()
	l := newActiveLoan(t, book, 5000)

	_, err := book.PostPayment(ctx, testOrg, l.ID, money.New(5000.01, money.HTG))
	var exceedsErr *bank.ExceedsBalanceError
	require.ErrorAs(t, err, &exceedsErr)
	assert.Equal(t, "5000.00 HTG", exceedsErr.Remaining.String())

	l, err = book.Get(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.Empty(t, l.Payments)
	assert.Equal(t, "5000.00 HTG", l.RemainingBalance.String())
}

func TestBook_PostPayment_ExactZeroCompletes(t *testing.T) {
	// GIVEN: An active loan
	// WHEN: Paying the remaining balance exactly
	// THEN: The loan completes and further payments are rejected

	book, _ := newTestBook(t)
	ctx := context.Background()
	l := newActiveLoan(t, book, 5000)

	l, err := book.PostPayment(ctx, testOrg, l.ID, money.New(3000, money.HTG))
	require.NoError(t, err)
	assert.Equal(t, bank.LoanActive, l.Status)

	l, err = book.PostPayment(ctx, testOrg, l.ID, money.New(2000, money.HTG))
	require.NoError(t, err)
	assert.Equal(t, bank.LoanCompleted, l.Status)
	assert.True(t, l.RemainingBalance.IsZero())

	_, err = book.PostPayment(ctx, testOrg, l.ID, money.New(1, money.HTG))
	var stateErr *bank.LoanStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestBook_PostPayment_Validation(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	l := newActiveLoan(t, book, 5000)

	_, err := book.PostPayment(ctx, testOrg, l.ID, money.New(0, money.HTG))
	assert.ErrorIs(t, err, bank.ErrInvalidAmount)

	_, err = book.PostPayment(ctx, testOrg, l.ID, money.New(-10, money.HTG))
	assert.ErrorIs(t, err, bank.ErrInvalidAmount)

	_, err = book.PostPayment(ctx, testOrg, l.ID, money.New(100, money.USD))
	assert.ErrorIs(t, err, bank.ErrCurrencyMismatch)
}

// =============================================================================
// SCOPING
// =============================================================================

func TestBook_OrgIsolation(t *testing.T) {
	// GIVEN: A loan in org-1
	// WHEN: Looking it up under another organization
	// THEN: It behaves as missing

	book, _ := newTestBook(t)
	ctx := context.Background()
	l := newActiveLoan(t, book, 5000)

	_, err := book.Get(ctx, "org-2", l.ID)
	assert.ErrorIs(t, err, bank.ErrLoanNotFound)

	loans, err := book.List(ctx, "org-2")
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestBook_ByClient(t *testing.T) {
	book, st := newTestBook(t)
	ctx := context.Background()

	require.NoError(t, st.SaveClient(ctx, bank.Client{
		ID: "client-2", OrgID: testOrg, FirstName: "Jean", LastName: "Pierre", CreatedAt: time.Now(),
	}))

	newActiveLoan(t, book, 5000)
	_, err := book.Create(ctx, testOrg, "client-2", money.New(1000, money.HTG),
		dec("12"), 12, time.Now(), "")
	require.NoError(t, err)

	loans, err := book.ByClient(ctx, testOrg, "client-1")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, bank.ClientID("client-1"), loans[0].ClientID)
}
