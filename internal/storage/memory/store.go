package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Each account is guarded by its own one-slot semaphore, held for the whole
// life of a unit of work; mu only protects the maps and the log slice.
type MemoryLedgerStore struct {
	mu           sync.RWMutex
	accountTypes map[int64]models.AccountType
	accounts     map[int64]*models.Account
	transactions []models.Transaction // committed order, never rewritten
	nextSeq      int64

	locksMu sync.Mutex
	locks   map[int64]*semaphore.Weighted
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accountTypes: make(map[int64]models.AccountType),
		accounts:     make(map[int64]*models.Account),
		transactions: make([]models.Transaction, 0),
		locks:        make(map[int64]*semaphore.Weighted),
	}
}

// accountLock returns the semaphore of a registered account. Semaphores are
// created with their account, so unknown numbers never add entries.
func (m *MemoryLedgerStore) accountLock(accountNo int64) (*semaphore.Weighted, bool) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.locks[accountNo]
	return lock, ok
}

// CreateAccountType registers t. A second type with the same ID is
// ErrDuplicateAccount.
func (m *MemoryLedgerStore) CreateAccountType(ctx context.Context, t models.AccountType) error {
	if _, err := models.NewAccountType(t.ID, t.Name, t.MaxWithdrawal); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountTypes[t.ID]; exists {
		return fmt.Errorf("account type %d: %w", t.ID, models.ErrDuplicateAccount)
	}
	m.accountTypes[t.ID] = t
	return nil
}

// CreateAccount registers a and its lock. The stored type is the registered
// one, whatever a.Type carries besides its ID.
func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, a models.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.accountTypes[a.Type.ID]
	if !ok {
		return fmt.Errorf("account %d: type %d: %w", a.No, a.Type.ID, models.ErrUnknownAccountType)
	}
	if _, exists := m.accounts[a.No]; exists {
		return fmt.Errorf("account %d: %w", a.No, models.ErrDuplicateAccount)
	}
	a.Type = t
	m.accounts[a.No] = &a

	m.locksMu.Lock()
	m.locks[a.No] = semaphore.NewWeighted(1)
	m.locksMu.Unlock()
	return nil
}

// GetAccount returns a copy of the stored account.
func (m *MemoryLedgerStore) GetAccount(ctx context.Context, accountNo int64) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[accountNo]
	if !ok {
		return models.Account{}, fmt.Errorf("account %d: %w", accountNo, models.ErrAccountNotFound)
	}
	return *a, nil // copy, callers cannot reach the stored record
}

// GetBalance returns the committed balance.
func (m *MemoryLedgerStore) GetBalance(ctx context.Context, accountNo int64) (decimal.Decimal, error) {
	a, err := m.GetAccount(ctx, accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

// Begin acquires the per-account semaphores in ascending order. Waiting
// respects ctx, so a cancelled caller gives up without holding anything.
// Accounts are never removed, so a number with a semaphore is registered.
func (m *MemoryLedgerStore) Begin(ctx context.Context, accountNos ...int64) (interfaces.UnitOfWork, error) {
	ordered := models.LockOrder(accountNos...)
	held := make([]*semaphore.Weighted, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, no := range ordered {
		lock, ok := m.accountLock(no)
		if !ok {
			release()
			return nil, fmt.Errorf("account %d: %w", no, models.ErrAccountNotFound)
		}
		if err := lock.Acquire(ctx, 1); err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}

	return &unitOfWork{
		store:   m,
		scope:   ordered,
		deltas:  make(map[int64]decimal.Decimal, len(ordered)),
		release: release,
	}, nil
}

// Transactions yields a snapshot of the account's history taken when the
// range loop starts; ranging again takes a fresh snapshot.
func (m *MemoryLedgerStore) Transactions(ctx context.Context, accountNo int64, r models.DateRange) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(models.Transaction{}, err)
			return
		}

		m.mu.RLock()
		if _, ok := m.accounts[accountNo]; !ok {
			m.mu.RUnlock()
			yield(models.Transaction{}, fmt.Errorf("account %d: %w", accountNo, models.ErrAccountNotFound))
			return
		}
		var matched []models.Transaction
		for _, t := range m.transactions {
			if t.AccountNo == accountNo && r.Contains(t.Timestamp) {
				matched = append(matched, t)
			}
		}
		m.mu.RUnlock()

		// newest first: timestamps may tie, commit sequence never does
		slices.SortFunc(matched, func(a, b models.Transaction) int {
			if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
				return c
			}
			return cmp.Compare(b.Seq, a.Seq)
		})

		for _, t := range matched {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
