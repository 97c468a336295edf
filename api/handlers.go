/*
handlers.go - HTTP API handlers for the ledger and loan engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Clients:
    GET    /api/clients                  List clients
    POST   /api/clients                  Create client
    GET    /api/clients/{id}             Get client with accounts
    PUT    /api/clients/{id}             Update client profile
    GET    /api/clients/{id}/balance     Derived total balance
    POST   /api/clients/{id}/accounts    Open account
    GET    /api/clients/{id}/transactions Transaction history
    GET    /api/clients/{id}/loans       Loans for a client

  Transactions:
    GET    /api/transactions             List transactions
    POST   /api/transactions/deposits    Record deposit
    POST   /api/transactions/withdrawals Record withdrawal
    POST   /api/transactions/transfers   Record transfer (two legs)
    GET    /api/transactions/{id}        Get transaction
    DELETE /api/transactions/{id}        Delete with balance reversal

  Loans:
    GET    /api/loans                    List loans
    POST   /api/loans                    Originate loan
    GET    /api/loans/{id}               Get loan with payments
    POST   /api/loans/{id}/approve       Activate pending loan
    POST   /api/loans/{id}/reject        Reject pending loan
    POST   /api/loans/{id}/default       Mark active loan defaulted
    POST   /api/loans/{id}/payments      Post payment
    POST   /api/amortization             Stateless payment calculator

  Reports / Backup:
    GET    /api/reports/summary          Period aggregates
    GET    /api/reports/balances         Organization-wide balance
    POST   /api/backup/export            Export archive (optionally sealed)
    POST   /api/backup/restore           Restore archive (all-or-nothing)

TENANCY:
  Every request carries the organization in the X-Organization-ID
  header. A missing header is a 400; an id from another organization
  behaves as not found.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, amounts below minimum, insufficient funds
  - 404: Unknown client/account/transaction/loan
  - 409: Disallowed loan lifecycle transition
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/backup"
	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/ledger"
	"github.com/bvolvy/bwat-sekre/loan"
	"github.com/bvolvy/bwat-sekre/money"
	"github.com/bvolvy/bwat-sekre/report"
)

const orgHeader = "X-Organization-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    bank.TxStore
	Clients  *ledger.Clients
	Accounts *ledger.Accounts
	Ledger   *ledger.Log
	Loans    *loan.Book
	Reports  *report.Aggregator

	DefaultCurrency money.Currency
}

// NewHandler wires the domain services on top of the given store.
func NewHandler(store bank.TxStore, accountPrefix string, ledgerPolicy ledger.Policy, loanPolicy loan.Policy, defaultCurrency money.Currency) *Handler {
	return &Handler{
		Store:           store,
		Clients:         ledger.NewClients(store),
		Accounts:        ledger.NewAccounts(store, accountPrefix),
		Ledger:          ledger.NewLog(store, ledgerPolicy),
		Loans:           loan.NewBook(store, loanPolicy),
		Reports:         report.NewAggregator(store),
		DefaultCurrency: defaultCurrency,
	}
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients of the organization.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	clients, err := h.Clients.List(r.Context(), org)
	if err != nil {
		writeDomainError(w, "Failed to list clients", err)
		return
	}
	if clients == nil {
		clients = []bank.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient returns a single client with embedded accounts.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	client, err := h.Clients.Get(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get client", err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	client, err := h.Clients.Create(r.Context(), org, clientInput(req))
	if err != nil {
		writeDomainError(w, "Failed to create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// UpdateClient updates a client's profile fields.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	client, err := h.Clients.Update(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")), clientInput(req))
	if err != nil {
		writeDomainError(w, "Failed to update client", err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// GetClientBalance returns the client's derived total balance.
func (h *Handler) GetClientBalance(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	client, err := h.Clients.Get(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get client", err)
		return
	}

	currency := h.currencyParam(r)
	total := client.TotalBalance(currency)
	writeJSON(w, http.StatusOK, BalanceDTO{
		Total:    total.Amount.String(),
		Currency: string(currency),
		AsOf:     time.Now().UTC().Format(time.RFC3339),
	})
}

// OpenAccount opens a new account for the client.
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	currency := money.Currency(req.Currency)
	if currency == "" {
		currency = h.DefaultCurrency
	}
	account, err := h.Accounts.Open(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")),
		bank.AccountType(req.Type), currency)
	if err != nil {
		writeDomainError(w, "Failed to open account", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetClientTransactions returns the client's transaction history.
func (h *Handler) GetClientTransactions(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	txs, err := h.Ledger.ByClient(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	if txs == nil {
		txs = []bank.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// GetClientLoans returns the client's loans.
func (h *Handler) GetClientLoans(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	loans, err := h.Loans.ByClient(r.Context(), org, bank.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to list loans", err)
		return
	}
	if loans == nil {
		loans = []bank.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions of the organization.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	txs, err := h.Ledger.List(r.Context(), org)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	if txs == nil {
		txs = []bank.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	tx, err := h.Ledger.Get(r.Context(), org, bank.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Deposit records a deposit and credits the account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.Ledger.Deposit)
}

// Withdraw records a withdrawal and debits the account.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.Ledger.Withdraw)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, org bank.OrgID, clientID bank.ClientID, accountID bank.AccountID, amount money.Money, description string) (bank.Transaction, error)) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := h.parseAmount(req.Amount, req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	tx, err := op(r.Context(), org, bank.ClientID(req.ClientID), bank.AccountID(req.AccountID),
		amount, req.Description)
	if err != nil {
		writeDomainError(w, "Failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Transfer moves funds between two accounts and returns both legs.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := h.parseAmount(req.Amount, req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	debit, credit, err := h.Ledger.Transfer(r.Context(), org,
		bank.ClientID(req.FromClientID), bank.AccountID(req.FromAccount),
		bank.ClientID(req.ToClientID), bank.AccountID(req.ToAccount),
		amount, req.Description)
	if err != nil {
		writeDomainError(w, "Failed to record transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"debit":  debit,
		"credit": credit,
	})
}

// DeleteTransaction removes a transaction and reverses its balance
// effect. Transfer legs are removed in pairs.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.Delete(r.Context(), org, bank.TransactionID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans returns all loans of the organization.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	loans, err := h.Loans.List(r.Context(), org)
	if err != nil {
		writeDomainError(w, "Failed to list loans", err)
		return
	}
	if loans == nil {
		loans = []bank.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

// GetLoan returns a single loan with its payment history.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	l, err := h.Loans.Get(r.Context(), org, bank.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get loan", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CreateLoan originates a pending loan with a computed payment schedule.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := h.parseAmount(req.Amount, req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	rate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interest rate", err)
		return
	}

	start := time.Now().UTC()
	if req.StartDate != "" {
		start, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	l, err := h.Loans.Create(r.Context(), org, bank.ClientID(req.ClientID), amount, rate,
		req.TermMonths, start, req.Purpose)
	if err != nil {
		writeDomainError(w, "Failed to create loan", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// ApproveLoan activates a pending loan.
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	h.setLoanStatus(w, r, h.Loans.Approve)
}

// RejectLoan rejects a pending loan.
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	h.setLoanStatus(w, r, h.Loans.Reject)
}

// DefaultLoan marks an active loan as defaulted.
func (h *Handler) DefaultLoan(w http.ResponseWriter, r *http.Request) {
	h.setLoanStatus(w, r, h.Loans.MarkDefaulted)
}

// PostLoanPayment records a payment against an active loan.
func (h *Handler) PostLoanPayment(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	var req LoanPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := h.parseAmount(req.Amount, req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	l, err := h.Loans.PostPayment(r.Context(), org, bank.LoanID(chi.URLParam(r, "id")), amount)
	if err != nil {
		writeDomainError(w, "Failed to post payment", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Amortization computes a payment schedule without touching any state.
func (h *Handler) Amortization(w http.ResponseWriter, r *http.Request) {
	var req AmortizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return
	}
	rate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interest rate", err)
		return
	}

	schedule, err := loan.Amortize(principal, rate, req.TermMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid loan terms", err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ReportSummary aggregates transactions, clients, and loans over a
// period. from/to are inclusive YYYY-MM-DD query parameters; either may
// be omitted for an open bound.
func (h *Handler) ReportSummary(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	rng, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	summary, err := h.Reports.Summary(r.Context(), org, rng)
	if err != nil {
		writeDomainError(w, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ReportBalances returns the organization-wide derived balance.
func (h *Handler) ReportBalances(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	currency := h.currencyParam(r)
	total, err := h.Reports.TotalBalances(r.Context(), org, currency)
	if err != nil {
		writeDomainError(w, "Failed to compute balances", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		Total:    total.Amount.String(),
		Currency: string(currency),
		AsOf:     time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup exports the organization's full dataset. With a
// passphrase query parameter the archive is sealed and the response is
// the binary sealed form.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	organization := bank.Organization{
		ID:       org,
		Name:     r.URL.Query().Get("name"),
		Currency: string(h.currencyParam(r)),
	}

	passphrase := r.URL.Query().Get("passphrase")
	var data []byte
	var err error
	if passphrase != "" {
		data, err = backup.ExportEncrypted(r.Context(), h.Store, organization, passphrase)
	} else {
		data, err = backup.Export(r.Context(), h.Store, organization)
	}
	if err != nil {
		writeDomainError(w, "Failed to export backup", err)
		return
	}

	if passphrase != "" {
		w.Header().Set("Content-Type", "application/octet-stream")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="backup-`+string(org)+`.bwat"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// RestoreBackup replaces the organization's dataset from an archive.
// The swap is all-or-nothing; a bad archive leaves existing data
// untouched.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	var data []byte
	switch r.Header.Get("Content-Type") {
	case "application/json":
		var req RestoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Archive)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid base64 archive", err)
				return
			}
			data = decoded
		} else {
			data = []byte(req.Archive)
		}
		if err := backup.Restore(r.Context(), h.Store, org, data, req.Passphrase); err != nil {
			writeDomainError(w, "Failed to restore backup", err)
			return
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read archive", err)
			return
		}
		if err := backup.Restore(r.Context(), h.Store, org, body, r.URL.Query().Get("passphrase")); err != nil {
			writeDomainError(w, "Failed to restore backup", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setLoanStatus(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error)) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	l, err := op(r.Context(), org, bank.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to update loan", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) parseAmount(amount, currency string) (money.Money, error) {
	cur := money.Currency(currency)
	if cur == "" {
		cur = h.DefaultCurrency
	}
	return money.Parse(amount, cur)
}

func (h *Handler) currencyParam(r *http.Request) money.Currency {
	if c := r.URL.Query().Get("currency"); c != "" {
		return money.Currency(c)
	}
	return h.DefaultCurrency
}

func clientInput(req ClientRequest) ledger.ClientInput {
	return ledger.ClientInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Address:      req.Address,
		Email:        req.Email,
		ProfileImage: req.ProfileImage,
		Emergency: bank.EmergencyContact{
			Name:         req.EmergencyName,
			PhoneNumber:  req.EmergencyPhone,
			Relationship: req.EmergencyRelationship,
		},
	}
}

func orgID(w http.ResponseWriter, r *http.Request) (bank.OrgID, bool) {
	org := r.Header.Get(orgHeader)
	if org == "" {
		writeError(w, http.StatusBadRequest, "Missing "+orgHeader+" header", nil)
		return "", false
	}
	return bank.OrgID(org), true
}

func rangeParams(r *http.Request) (report.Range, error) {
	var rng report.Range
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return report.Range{}, err
		}
		rng.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return report.Range{}, err
		}
		// Inclusive end of day.
		rng.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return rng, nil
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var stateErr *bank.LoanStateError
	switch {
	case bank.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, message, err)
	case bank.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
