package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

var errUnitClosed = errors.New("unit of work already finished")

// unitOfWork stages balance deltas and log appends against the accounts it
// holds. Commit publishes them under the store mutex in one step.
type unitOfWork struct {
	store   *MemoryLedgerStore
	scope   []int64 // held accounts, ascending
	deltas  map[int64]decimal.Decimal
	pending []models.Transaction
	release func()
	done    bool
}

func (u *unitOfWork) checkScope(accountNo int64) error {
	if u.done {
		return errUnitClosed
	}
	if _, ok := slices.BinarySearch(u.scope, accountNo); !ok {
		return fmt.Errorf("account %d is not held by this unit of work", accountNo)
	}
	return nil
}

func (u *unitOfWork) GetAccount(ctx context.Context, accountNo int64) (models.Account, error) {
	if err := u.checkScope(accountNo); err != nil {
		return models.Account{}, err
	}
	a, err := u.store.GetAccount(ctx, accountNo)
	if err != nil {
		return models.Account{}, err
	}
	a.Balance = a.Balance.Add(u.deltas[accountNo])
	return a, nil
}

func (u *unitOfWork) GetBalance(ctx context.Context, accountNo int64) (decimal.Decimal, error) {
	a, err := u.GetAccount(ctx, accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

func (u *unitOfWork) GetAccountTypeLimits(ctx context.Context, accountNo int64) (models.AccountTypeLimits, error) {
	a, err := u.GetAccount(ctx, accountNo)
	if err != nil {
		return models.AccountTypeLimits{}, err
	}
	return a.Type.Limits(), nil
}

func (u *unitOfWork) ApplyDelta(ctx context.Context, accountNo int64, delta decimal.Decimal) (decimal.Decimal, error) {
	current, err := u.GetBalance(ctx, accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	next := current.Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		return decimal.Zero, fmt.Errorf("account %d: balance %s, debit %s: %w", accountNo, current, delta.Neg(), models.ErrInsufficientFunds)
	}
	if next.GreaterThan(models.MaxAmount) {
		return decimal.Zero, fmt.Errorf("account %d: balance %s would exceed %s: %w", accountNo, next, models.MaxAmount, models.ErrInvalidAmount)
	}
	u.deltas[accountNo] = u.deltas[accountNo].Add(delta)
	return next, nil
}

func (u *unitOfWork) Append(ctx context.Context, tx models.Transaction) (uuid.UUID, error) {
	if err := u.checkScope(tx.AccountNo); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Validate(); err != nil {
		return uuid.Nil, err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	u.pending = append(u.pending, tx)
	return tx.ID, nil
}

// Commit applies the staged changes unless ctx is already done, in which
// case the unit is rolled back and the context error returned.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return errUnitClosed
	}
	if err := ctx.Err(); err != nil {
		u.Rollback(ctx)
		return err
	}

	m := u.store
	m.mu.Lock()
	for no, delta := range u.deltas {
		a := m.accounts[no]
		a.Balance = a.Balance.Add(delta)
	}
	for _, tx := range u.pending {
		m.nextSeq++
		tx.Seq = m.nextSeq
		m.transactions = append(m.transactions, tx)
	}
	m.mu.Unlock()

	u.finish()
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *unitOfWork) finish() {
	u.done = true
	u.deltas = nil
	u.pending = nil
	u.release()
}
