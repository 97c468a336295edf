package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvolvy/bwat-sekre/api"
	"github.com/bvolvy/bwat-sekre/bank/store"
	"github.com/bvolvy/bwat-sekre/ledger"
	"github.com/bvolvy/bwat-sekre/loan"
	"github.com/bvolvy/bwat-sekre/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testOrg = "org-1"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := api.NewHandler(store.NewTxMemory(), "BS",
		ledger.Policy{MinAmount: decimal.NewFromInt(5)},
		loan.Policy{MinAmount: decimal.NewFromInt(50)},
		money.HTG)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Organization-ID", testOrg)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// createClient creates a client and one account, returning their ids.
func createClient(t *testing.T, srv *httptest.Server) (clientID, accountID string) {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/clients", api.ClientRequest{
		FirstName: "Marie", LastName: "Joseph",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var client struct {
		ID string `json:"id"`
	}
	decodeInto(t, resp, &client)

	resp = do(t, http.MethodPost, srv.URL+"/api/clients/"+client.ID+"/accounts",
		api.OpenAccountRequest{Type: "savings", Currency: "HTG"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var account struct {
		ID string `json:"id"`
	}
	decodeInto(t, resp, &account)
	return client.ID, account.ID
}

func deposit(t *testing.T, srv *httptest.Server, clientID, accountID, amount string) {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/transactions/deposits", api.MovementRequest{
		ClientID: clientID, AccountID: accountID, Amount: amount, Currency: "HTG",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// TENANCY
// =============================================================================

func TestAPI_MissingOrgHeader(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/clients", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CLIENTS AND ACCOUNTS
// =============================================================================

func TestAPI_ClientLifecycle(t *testing.T) {
	srv := newTestServer(t)
	clientID, _ := createClient(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/api/clients/"+clientID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var client struct {
		FirstName string `json:"firstName"`
		Accounts  []struct {
			AccountNumber string `json:"accountNumber"`
		} `json:"accounts"`
	}
	decodeInto(t, resp, &client)
	assert.Equal(t, "Marie", client.FirstName)
	require.Len(t, client.Accounts, 1)
	assert.Regexp(t, `^BS\d{6}$`, client.Accounts[0].AccountNumber)

	resp = do(t, http.MethodPut, srv.URL+"/api/clients/"+clientID, api.ClientRequest{
		FirstName: "Marie", LastName: "Renamed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/clients", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []json.RawMessage
	decodeInto(t, resp, &list)
	assert.Len(t, list, 1)
}

func TestAPI_UnknownClientIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/clients/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestAPI_DepositWithdrawBalance(t *testing.T) {
	srv := newTestServer(t)
	clientID, accountID := createClient(t, srv)

	deposit(t, srv, clientID, accountID, "500")

	resp := do(t, http.MethodPost, srv.URL+"/api/transactions/withdrawals", api.MovementRequest{
		ClientID: clientID, AccountID: accountID, Amount: "120.50", Currency: "HTG",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/clients/"+clientID+"/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance api.BalanceDTO
	decodeInto(t, resp, &balance)
	assert.Equal(t, "379.5", balance.Total)
	assert.Equal(t, "HTG", balance.Currency)
}

func TestAPI_InsufficientFundsIs400(t *testing.T) {
	srv := newTestServer(t)
	clientID, accountID := createClient(t, srv)
	deposit(t, srv, clientID, accountID, "100")

	resp := do(t, http.MethodPost, srv.URL+"/api/transactions/withdrawals", api.MovementRequest{
		ClientID: clientID, AccountID: accountID, Amount: "150", Currency: "HTG",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeInto(t, resp, &errResp)
	assert.NotEmpty(t, errResp.Details)
}

func TestAPI_TransferAndDelete(t *testing.T) {
	srv := newTestServer(t)
	fromClient, fromAccount := createClient(t, srv)
	toClient, toAccount := createClient(t, srv)
	deposit(t, srv, fromClient, fromAccount, "500")

	resp := do(t, http.MethodPost, srv.URL+"/api/transactions/transfers", api.TransferRequest{
		FromClientID: fromClient, FromAccount: fromAccount,
		ToClientID: toClient, ToAccount: toAccount,
		Amount: "200", Currency: "HTG",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var legs struct {
		Debit struct {
			ID          string `json:"id"`
			TransferRef string `json:"transferRef"`
		} `json:"debit"`
		Credit struct {
			TransferRef string `json:"transferRef"`
		} `json:"credit"`
	}
	decodeInto(t, resp, &legs)
	assert.Equal(t, legs.Debit.TransferRef, legs.Credit.TransferRef)

	// Deleting one leg reverses the pair.
	resp = do(t, http.MethodDelete, srv.URL+"/api/transactions/"+legs.Debit.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/clients/"+fromClient+"/balance", nil)
	var balance api.BalanceDTO
	decodeInto(t, resp, &balance)
	assert.Equal(t, "500", balance.Total)
}

// =============================================================================
// LOANS
// =============================================================================

func TestAPI_LoanLifecycle(t *testing.T) {
	srv := newTestServer(t)
	clientID, _ := createClient(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/api/loans", api.CreateLoanRequest{
		ClientID: clientID, Amount: "5000", Currency: "HTG",
		InterestRate: "8.5", TermMonths: 24, Purpose: "inventory",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PaymentAmount struct {
			Amount string `json:"amount"`
		} `json:"paymentAmount"`
	}
	decodeInto(t, resp, &created)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "227.28", created.PaymentAmount.Amount)

	resp = do(t, http.MethodPost, srv.URL+"/api/loans/"+created.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/loans/"+created.ID+"/payments",
		api.LoanPaymentRequest{Amount: "227.28", Currency: "HTG"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var paid struct {
		RemainingBalance struct {
			Amount string `json:"amount"`
		} `json:"remainingBalance"`
	}
	decodeInto(t, resp, &paid)
	assert.Equal(t, "4772.72", paid.RemainingBalance.Amount)

	// Approving an already-active loan conflicts.
	resp = do(t, http.MethodPost, srv.URL+"/api/loans/"+created.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_AmortizationCalculator(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/amortization", api.AmortizationRequest{
		Principal: "5000", InterestRate: "8.5", TermMonths: 24,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var schedule struct {
		MonthlyPayment string `json:"monthlyPayment"`
		TotalInterest  string `json:"totalInterest"`
	}
	decodeInto(t, resp, &schedule)
	assert.Equal(t, "227.28", schedule.MonthlyPayment)
	assert.Equal(t, "454.72", schedule.TotalInterest)
}

// =============================================================================
// REPORTS AND BACKUP
// =============================================================================

func TestAPI_ReportSummary(t *testing.T) {
	srv := newTestServer(t)
	clientID, accountID := createClient(t, srv)
	deposit(t, srv, clientID, accountID, "1000")

	resp := do(t, http.MethodGet, srv.URL+"/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		TransactionCount int    `json:"transactionCount"`
		DepositTotal     string `json:"depositTotal"`
	}
	decodeInto(t, resp, &summary)
	assert.Equal(t, 1, summary.TransactionCount)
	assert.Equal(t, "1000", summary.DepositTotal)
}

func TestAPI_BackupRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	clientID, accountID := createClient(t, srv)
	deposit(t, srv, clientID, accountID, "750")

	resp := do(t, http.MethodPost, srv.URL+"/api/backup/export?name=Kes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var archive json.RawMessage
	decodeInto(t, resp, &archive)

	// Restore into a second server for the same organization.
	srv2 := newTestServer(t)
	resp = do(t, http.MethodPost, srv2.URL+"/api/backup/restore",
		api.RestoreRequest{Archive: string(archive)})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv2.URL+"/api/clients/"+clientID+"/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance api.BalanceDTO
	decodeInto(t, resp, &balance)
	assert.Equal(t, "750", balance.Total)
}
