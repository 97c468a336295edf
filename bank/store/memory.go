// Package store provides the in-memory Store implementation (tests/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/bvolvy/bwat-sekre/bank"
)

// =============================================================================
// MEMORY STORE - Mutex-guarded maps, one entry per organization+id
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	clients      map[entityKey]bank.Client
	transactions map[entityKey]bank.Transaction
	loans        map[entityKey]bank.Loan
}

type entityKey struct {
	Org bank.OrgID
	ID  string
}

func NewMemory() *Memory {
	return &Memory{
		clients:      make(map[entityKey]bank.Client),
		transactions: make(map[entityKey]bank.Transaction),
		loans:        make(map[entityKey]bank.Loan),
	}
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) SaveClient(_ context.Context, c bank.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[entityKey{c.OrgID, string(c.ID)}] = cloneClient(c)
	return nil
}

func (m *Memory) Client(_ context.Context, org bank.OrgID, id bank.ClientID) (bank.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[entityKey{org, string(id)}]
	if !ok {
		return bank.Client{}, bank.ErrClientNotFound
	}
	return cloneClient(c), nil
}

func (m *Memory) Clients(_ context.Context, org bank.OrgID) ([]bank.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bank.Client
	for k, c := range m.clients {
		if k.Org == org {
			result = append(result, cloneClient(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx bank.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[entityKey{tx.OrgID, string(tx.ID)}] = tx
	return nil
}

func (m *Memory) AppendTransactions(_ context.Context, txs []bank.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		m.transactions[entityKey{tx.OrgID, string(tx.ID)}] = tx
	}
	return nil
}

func (m *Memory) RemoveTransactions(_ context.Context, org bank.OrgID, ids ...bank.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		k := entityKey{org, string(id)}
		if _, ok := m.transactions[k]; !ok {
			return bank.ErrTransactionNotFound
		}
		delete(m.transactions, k)
	}
	return nil
}

func (m *Memory) Transaction(_ context.Context, org bank.OrgID, id bank.TransactionID) (bank.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[entityKey{org, string(id)}]
	if !ok {
		return bank.Transaction{}, bank.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *Memory) Transactions(_ context.Context, org bank.OrgID) ([]bank.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bank.Transaction
	for k, tx := range m.transactions {
		if k.Org == org {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) TransactionsByRef(_ context.Context, org bank.OrgID, ref string) ([]bank.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bank.Transaction
	for k, tx := range m.transactions {
		if k.Org == org && tx.TransferRef == ref && ref != "" {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// LOANS
// =============================================================================

func (m *Memory) SaveLoan(_ context.Context, l bank.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[entityKey{l.OrgID, string(l.ID)}] = cloneLoan(l)
	return nil
}

func (m *Memory) Loan(_ context.Context, org bank.OrgID, id bank.LoanID) (bank.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[entityKey{org, string(id)}]
	if !ok {
		return bank.Loan{}, bank.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (m *Memory) Loans(_ context.Context, org bank.OrgID) ([]bank.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bank.Loan
	for k, l := range m.loans {
		if k.Org == org {
			result = append(result, cloneLoan(l))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

// =============================================================================
// FULL-STATE REPLACEMENT (restore)
// =============================================================================

func (m *Memory) ReplaceOrganization(_ context.Context, org bank.OrgID, clients []bank.Client, txs []bank.Transaction, loans []bank.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.clients {
		if k.Org == org {
			delete(m.clients, k)
		}
	}
	for k := range m.transactions {
		if k.Org == org {
			delete(m.transactions, k)
		}
	}
	for k := range m.loans {
		if k.Org == org {
			delete(m.loans, k)
		}
	}

	for _, c := range clients {
		m.clients[entityKey{org, string(c.ID)}] = cloneClient(c)
	}
	for _, tx := range txs {
		m.transactions[entityKey{org, string(tx.ID)}] = tx
	}
	for _, l := range loans {
		m.loans[entityKey{org, string(l.ID)}] = cloneLoan(l)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with a snapshot/rollback transaction boundary.
// Transactions are serialized by txMu so a rollback can never clobber a
// concurrent transaction's writes.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against the store; on error the pre-transaction state
// is restored wholesale.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(bank.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	s := memorySnapshot{
		clients:      make(map[entityKey]bank.Client, len(tm.clients)),
		transactions: make(map[entityKey]bank.Transaction, len(tm.transactions)),
		loans:        make(map[entityKey]bank.Loan, len(tm.loans)),
	}
	for k, v := range tm.clients {
		s.clients[k] = cloneClient(v)
	}
	for k, v := range tm.transactions {
		s.transactions[k] = v
	}
	for k, v := range tm.loans {
		s.loans[k] = cloneLoan(v)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.clients = s.clients
	tm.transactions = s.transactions
	tm.loans = s.loans
}

type memorySnapshot struct {
	clients      map[entityKey]bank.Client
	transactions map[entityKey]bank.Transaction
	loans        map[entityKey]bank.Loan
}

// =============================================================================
// DEEP COPIES - Embedded slices must not leak across the store boundary
// =============================================================================

func cloneClient(c bank.Client) bank.Client {
	out := c
	out.Accounts = append([]bank.Account(nil), c.Accounts...)
	return out
}

func cloneLoan(l bank.Loan) bank.Loan {
	out := l
	out.Payments = append([]bank.LoanPayment(nil), l.Payments...)
	return out
}
