/*
Package sqlite provides the SQLite-backed implementation of bank.TxStore.

PURPOSE:
  Production persistence for the engine's three organization-scoped
  collections. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  clients:       Client profiles
  accounts:      One row per account, unique (org_id, account_number)
  transactions:  Money movement records, transfer legs share transfer_ref
  loans:         Loan records
  loan_payments: Append-only payment rows per loan

ATOMICITY:
  WithTx runs the callback against a view bound to one database
  transaction; everything the callback writes commits together or rolls
  back together. Single-call mutations that span multiple statements
  (SaveClient replaces the account rows, ReplaceOrganization swaps five
  tables) open their own transaction when called outside WithTx.

WAL MODE:
  The database is opened with WAL so readers don't block the single
  writer, plus foreign keys on.

SEE ALSO:
  - bank/store.go: Interface definitions
  - bank/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/bvolvy/bwat-sekre/bank"
	"github.com/bvolvy/bwat-sekre/money"
)

// Store implements bank.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone_number TEXT,
		address TEXT,
		email TEXT,
		emergency_name TEXT,
		emergency_phone TEXT,
		emergency_relationship TEXT,
		profile_image TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		account_number TEXT NOT NULL,
		account_type TEXT NOT NULL,
		balance TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);

	-- Account numbers are unique within an organization.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_number
		ON accounts(org_id, account_number);
	CREATE INDEX IF NOT EXISTS idx_accounts_client
		ON accounts(org_id, client_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		recipient_account_id TEXT,
		recipient_client_id TEXT,
		transfer_ref TEXT,
		PRIMARY KEY (org_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_client
		ON transactions(org_id, client_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(org_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_ref
		ON transactions(org_id, transfer_ref) WHERE transfer_ref IS NOT NULL;

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		payment_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		purpose TEXT,
		remaining_balance TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_loans_client
		ON loans(org_id, client_id);
	CREATE INDEX IF NOT EXISTS idx_loans_status
		ON loans(org_id, status);

	CREATE TABLE IF NOT EXISTS loan_payments (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (org_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_loan_payments_loan
		ON loan_payments(org_id, loan_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTION BOUNDARY
// =============================================================================

// WithTx executes fn against a store view bound to one database
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(bank.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&view{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// inTx runs fn in a fresh transaction; used by multi-statement single
// calls made outside WithTx.
func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// view is the Store implementation bound to a querier (root db or tx).
type view struct {
	q querier
}

// =============================================================================
// bank.Store ON THE ROOT STORE - lock, then delegate
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c bank.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return saveClient(ctx, q, c) })
}

func (s *Store) Client(ctx context.Context, org bank.OrgID, id bank.ClientID) (bank.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadClient(ctx, s.db, org, id)
}

func (s *Store) Clients(ctx context.Context, org bank.OrgID) ([]bank.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadClients(ctx, s.db, org)
}

func (s *Store) AppendTransaction(ctx context.Context, tx bank.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func (s *Store) AppendTransactions(ctx context.Context, txs []bank.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		for _, tx := range txs {
			if err := appendTransaction(ctx, q, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) RemoveTransactions(ctx context.Context, org bank.OrgID, ids ...bank.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return removeTransactions(ctx, q, org, ids...) })
}

func (s *Store) Transaction(ctx context.Context, org bank.OrgID, id bank.TransactionID) (bank.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTransaction(ctx, s.db, org, id)
}

func (s *Store) Transactions(ctx context.Context, org bank.OrgID) ([]bank.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTransactions(ctx, s.db, org, "")
}

func (s *Store) TransactionsByRef(ctx context.Context, org bank.OrgID, ref string) ([]bank.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTransactions(ctx, s.db, org, ref)
}

func (s *Store) SaveLoan(ctx context.Context, l bank.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error { return saveLoan(ctx, q, l) })
}

func (s *Store) Loan(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadLoan(ctx, s.db, org, id)
}

func (s *Store) Loans(ctx context.Context, org bank.OrgID) ([]bank.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadLoans(ctx, s.db, org)
}

func (s *Store) ReplaceOrganization(ctx context.Context, org bank.OrgID, clients []bank.Client, txs []bank.Transaction, loans []bank.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		return replaceOrganization(ctx, q, org, clients, txs, loans)
	})
}

// =============================================================================
// bank.Store ON THE TRANSACTIONAL VIEW
// =============================================================================

func (v *view) SaveClient(ctx context.Context, c bank.Client) error { return saveClient(ctx, v.q, c) }
func (v *view) Client(ctx context.Context, org bank.OrgID, id bank.ClientID) (bank.Client, error) {
	return loadClient(ctx, v.q, org, id)
}
func (v *view) Clients(ctx context.Context, org bank.OrgID) ([]bank.Client, error) {
	return loadClients(ctx, v.q, org)
}
func (v *view) AppendTransaction(ctx context.Context, tx bank.Transaction) error {
	return appendTransaction(ctx, v.q, tx)
}
func (v *view) AppendTransactions(ctx context.Context, txs []bank.Transaction) error {
	for _, tx := range txs {
		if err := appendTransaction(ctx, v.q, tx); err != nil {
			return err
		}
	}
	return nil
}
func (v *view) RemoveTransactions(ctx context.Context, org bank.OrgID, ids ...bank.TransactionID) error {
	return removeTransactions(ctx, v.q, org, ids...)
}
func (v *view) Transaction(ctx context.Context, org bank.OrgID, id bank.TransactionID) (bank.Transaction, error) {
	return loadTransaction(ctx, v.q, org, id)
}
func (v *view) Transactions(ctx context.Context, org bank.OrgID) ([]bank.Transaction, error) {
	return loadTransactions(ctx, v.q, org, "")
}
func (v *view) TransactionsByRef(ctx context.Context, org bank.OrgID, ref string) ([]bank.Transaction, error) {
	return loadTransactions(ctx, v.q, org, ref)
}
func (v *view) SaveLoan(ctx context.Context, l bank.Loan) error { return saveLoan(ctx, v.q, l) }
func (v *view) Loan(ctx context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	return loadLoan(ctx, v.q, org, id)
}
func (v *view) Loans(ctx context.Context, org bank.OrgID) ([]bank.Loan, error) {
	return loadLoans(ctx, v.q, org)
}
func (v *view) ReplaceOrganization(ctx context.Context, org bank.OrgID, clients []bank.Client, txs []bank.Transaction, loans []bank.Loan) error {
	return replaceOrganization(ctx, v.q, org, clients, txs, loans)
}

// =============================================================================
// SHARED SQL - every statement goes through a querier
// =============================================================================

func saveClient(ctx context.Context, q querier, c bank.Client) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO clients
			(id, org_id, first_name, last_name, phone_number, address, email,
			 emergency_name, emergency_phone, emergency_relationship,
			 profile_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			phone_number = excluded.phone_number,
			address = excluded.address,
			email = excluded.email,
			emergency_name = excluded.emergency_name,
			emergency_phone = excluded.emergency_phone,
			emergency_relationship = excluded.emergency_relationship,
			profile_image = excluded.profile_image
	`,
		c.ID, c.OrgID, c.FirstName, c.LastName, c.PhoneNumber, c.Address, c.Email,
		c.Emergency.Name, c.Emergency.PhoneNumber, c.Emergency.Relationship,
		c.ProfileImage, c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	// The embedded accounts are authoritative: replace the rows.
	if _, err := q.ExecContext(ctx,
		`DELETE FROM accounts WHERE org_id = ? AND client_id = ?`, c.OrgID, c.ID); err != nil {
		return err
	}
	for _, a := range c.Accounts {
		_, err := q.ExecContext(ctx, `
			INSERT INTO accounts
				(id, org_id, client_id, account_number, account_type, balance, currency, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			a.ID, c.OrgID, c.ID, a.AccountNumber, a.Type,
			a.Balance.Amount.String(), a.Balance.Currency,
			a.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadClient(ctx context.Context, q querier, org bank.OrgID, id bank.ClientID) (bank.Client, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, org_id, first_name, last_name, phone_number, address, email,
		       emergency_name, emergency_phone, emergency_relationship,
		       profile_image, created_at
		FROM clients WHERE org_id = ? AND id = ?
	`, org, id)

	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return bank.Client{}, bank.ErrClientNotFound
	}
	if err != nil {
		return bank.Client{}, err
	}

	accounts, err := loadAccounts(ctx, q, org, id)
	if err != nil {
		return bank.Client{}, err
	}
	c.Accounts = accounts
	return c, nil
}

func loadClients(ctx context.Context, q querier, org bank.OrgID) ([]bank.Client, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, org_id, first_name, last_name, phone_number, address, email,
		       emergency_name, emergency_phone, emergency_relationship,
		       profile_image, created_at
		FROM clients WHERE org_id = ? ORDER BY created_at
	`, org)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []bank.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range clients {
		accounts, err := loadAccounts(ctx, q, org, clients[i].ID)
		if err != nil {
			return nil, err
		}
		clients[i].Accounts = accounts
	}
	return clients, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(r rowScanner) (bank.Client, error) {
	var c bank.Client
	var createdAt string
	err := r.Scan(&c.ID, &c.OrgID, &c.FirstName, &c.LastName, &c.PhoneNumber,
		&c.Address, &c.Email, &c.Emergency.Name, &c.Emergency.PhoneNumber,
		&c.Emergency.Relationship, &c.ProfileImage, &createdAt)
	if err != nil {
		return bank.Client{}, err
	}
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}

func loadAccounts(ctx context.Context, q querier, org bank.OrgID, clientID bank.ClientID) ([]bank.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, account_number, account_type, balance, currency, created_at
		FROM accounts WHERE org_id = ? AND client_id = ? ORDER BY created_at
	`, org, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []bank.Account
	for rows.Next() {
		var a bank.Account
		var balance, currency, createdAt string
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.Type, &balance, &currency, &createdAt); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("account %s: bad balance %q: %w", a.ID, balance, err)
		}
		a.Balance = money.FromDecimal(amount, money.Currency(currency))
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func appendTransaction(ctx context.Context, q querier, tx bank.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions
			(id, org_id, client_id, account_id, kind, direction, amount, currency,
			 description, date, status, recipient_account_id, recipient_client_id, transfer_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID, tx.OrgID, tx.ClientID, tx.AccountID, tx.Kind, tx.Direction,
		tx.Amount.Amount.String(), tx.Amount.Currency, tx.Description,
		tx.Date.UTC().Format(time.RFC3339Nano), tx.Status,
		nullString(string(tx.RecipientAccountID)), nullString(string(tx.RecipientClientID)),
		nullString(tx.TransferRef),
	)
	return err
}

func removeTransactions(ctx context.Context, q querier, org bank.OrgID, ids ...bank.TransactionID) error {
	for _, id := range ids {
		res, err := q.ExecContext(ctx,
			`DELETE FROM transactions WHERE org_id = ? AND id = ?`, org, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return bank.ErrTransactionNotFound
		}
	}
	return nil
}

const transactionColumns = `id, org_id, client_id, account_id, kind, direction, amount, currency,
	description, date, status, recipient_account_id, recipient_client_id, transfer_ref`

func loadTransaction(ctx context.Context, q querier, org bank.OrgID, id bank.TransactionID) (bank.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE org_id = ? AND id = ?`, org, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return bank.Transaction{}, bank.ErrTransactionNotFound
	}
	return tx, err
}

func loadTransactions(ctx context.Context, q querier, org bank.OrgID, ref string) ([]bank.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE org_id = ?`
	args := []any{org}
	if ref != "" {
		query += ` AND transfer_ref = ?`
		args = append(args, ref)
	}
	query += ` ORDER BY date`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []bank.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(r rowScanner) (bank.Transaction, error) {
	var tx bank.Transaction
	var amount, currency, date string
	var description, recipientAccount, recipientClient, ref sql.NullString
	err := r.Scan(&tx.ID, &tx.OrgID, &tx.ClientID, &tx.AccountID, &tx.Kind,
		&tx.Direction, &amount, &currency, &description, &date, &tx.Status,
		&recipientAccount, &recipientClient, &ref)
	if err != nil {
		return bank.Transaction{}, err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return bank.Transaction{}, fmt.Errorf("transaction %s: bad amount %q: %w", tx.ID, amount, err)
	}
	tx.Amount = money.FromDecimal(value, money.Currency(currency))
	tx.Description = description.String
	tx.RecipientAccountID = bank.AccountID(recipientAccount.String)
	tx.RecipientClientID = bank.ClientID(recipientClient.String)
	tx.TransferRef = ref.String
	tx.Date, err = parseTime(date)
	return tx, err
}

func saveLoan(ctx context.Context, q querier, l bank.Loan) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans
			(id, org_id, client_id, amount, currency, interest_rate, term_months,
			 start_date, end_date, payment_amount, status, purpose, remaining_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, id) DO UPDATE SET
			status = excluded.status,
			remaining_balance = excluded.remaining_balance
	`,
		l.ID, l.OrgID, l.ClientID, l.Amount.Amount.String(), l.Amount.Currency,
		l.InterestRate.String(), l.TermMonths,
		l.StartDate.UTC().Format(time.RFC3339Nano), l.EndDate.UTC().Format(time.RFC3339Nano),
		l.PaymentAmount.Amount.String(), l.Status, l.Purpose,
		l.RemainingBalance.Amount.String(),
	)
	if err != nil {
		return err
	}

	// Payments are append-only; re-inserting the embedded set keeps the
	// rows aligned with the record without ever rewriting an existing one.
	for _, p := range l.Payments {
		_, err := q.ExecContext(ctx, `
			INSERT INTO loan_payments (id, org_id, loan_id, amount, currency, date, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (org_id, id) DO NOTHING
		`,
			p.ID, l.OrgID, p.LoanID, p.Amount.Amount.String(), p.Amount.Currency,
			p.Date.UTC().Format(time.RFC3339Nano), p.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadLoan(ctx context.Context, q querier, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, org_id, client_id, amount, currency, interest_rate, term_months,
		       start_date, end_date, payment_amount, status, purpose, remaining_balance
		FROM loans WHERE org_id = ? AND id = ?
	`, org, id)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return bank.Loan{}, bank.ErrLoanNotFound
	}
	if err != nil {
		return bank.Loan{}, err
	}
	l.Payments, err = loadPayments(ctx, q, org, l.ID, l.Amount.Currency)
	return l, err
}

func loadLoans(ctx context.Context, q querier, org bank.OrgID) ([]bank.Loan, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, org_id, client_id, amount, currency, interest_rate, term_months,
		       start_date, end_date, payment_amount, status, purpose, remaining_balance
		FROM loans WHERE org_id = ? ORDER BY start_date
	`, org)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []bank.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range loans {
		loans[i].Payments, err = loadPayments(ctx, q, org, loans[i].ID, loans[i].Amount.Currency)
		if err != nil {
			return nil, err
		}
	}
	return loans, nil
}

func scanLoan(r rowScanner) (bank.Loan, error) {
	var l bank.Loan
	var amount, currency, rate, start, end, payment, remaining string
	var purpose sql.NullString
	err := r.Scan(&l.ID, &l.OrgID, &l.ClientID, &amount, &currency, &rate,
		&l.TermMonths, &start, &end, &payment, &l.Status, &purpose, &remaining)
	if err != nil {
		return bank.Loan{}, err
	}

	cur := money.Currency(currency)
	if l.Amount, err = parseMoney(amount, cur); err != nil {
		return bank.Loan{}, err
	}
	if l.PaymentAmount, err = parseMoney(payment, cur); err != nil {
		return bank.Loan{}, err
	}
	if l.RemainingBalance, err = parseMoney(remaining, cur); err != nil {
		return bank.Loan{}, err
	}
	if l.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return bank.Loan{}, err
	}
	l.Purpose = purpose.String
	if l.StartDate, err = parseTime(start); err != nil {
		return bank.Loan{}, err
	}
	l.EndDate, err = parseTime(end)
	return l, err
}

func loadPayments(ctx context.Context, q querier, org bank.OrgID, loanID bank.LoanID, cur money.Currency) ([]bank.LoanPayment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, loan_id, amount, date, status
		FROM loan_payments WHERE org_id = ? AND loan_id = ? ORDER BY date
	`, org, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []bank.LoanPayment
	for rows.Next() {
		var p bank.LoanPayment
		var amount, date string
		if err := rows.Scan(&p.ID, &p.LoanID, &amount, &date, &p.Status); err != nil {
			return nil, err
		}
		if p.Amount, err = parseMoney(amount, cur); err != nil {
			return nil, err
		}
		if p.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func replaceOrganization(ctx context.Context, q querier, org bank.OrgID, clients []bank.Client, txs []bank.Transaction, loans []bank.Loan) error {
	for _, table := range []string{"loan_payments", "loans", "transactions", "accounts", "clients"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE org_id = ?`, org); err != nil {
			return err
		}
	}
	for _, c := range clients {
		if err := saveClient(ctx, q, c); err != nil {
			return err
		}
	}
	for _, tx := range txs {
		if err := appendTransaction(ctx, q, tx); err != nil {
			return err
		}
	}
	for _, l := range loans {
		if err := saveLoan(ctx, q, l); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseMoney(s string, cur money.Currency) (money.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return money.Money{}, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return money.FromDecimal(d, cur), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
