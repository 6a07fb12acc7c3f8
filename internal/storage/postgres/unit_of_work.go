package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// unitOfWork is a SQL transaction holding row locks on scope.
type unitOfWork struct {
	tx    *sql.Tx
	scope []int64
	done  bool
}

func (u *unitOfWork) checkScope(accountNo int64) error {
	if u.done {
		return sql.ErrTxDone
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
	return getAccount(ctx, u.tx, accountNo)
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

// ApplyDelta is a single conditional UPDATE: a debit that would overdraw
// matches no row.
func (u *unitOfWork) ApplyDelta(ctx context.Context, accountNo int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := u.checkScope(accountNo); err != nil {
		return decimal.Zero, err
	}

	const query = `UPDATE accounts SET balance = balance + $1
	WHERE account_no = $2 AND balance + $1 >= 0
	RETURNING balance`

	var balance decimal.Decimal
	err := u.tx.QueryRowContext(ctx, query, delta, accountNo).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// the row is locked by this unit, so it exists: the debit was too large
		return decimal.Zero, fmt.Errorf("account %d: debit %s: %w", accountNo, delta.Neg(), models.ErrInsufficientFunds)
	}
	if pqCode(err) == numericOverflow {
		return decimal.Zero, fmt.Errorf("account %d: balance would exceed %s: %w", accountNo, models.MaxAmount, models.ErrInvalidAmount)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (u *unitOfWork) Append(ctx context.Context, t models.Transaction) (uuid.UUID, error) {
	if err := u.checkScope(t.AccountNo); err != nil {
		return uuid.Nil, err
	}
	if err := t.Validate(); err != nil {
		return uuid.Nil, err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	const query = `INSERT INTO transactions (id, account_no, amount, kind, created_at, balance_after)
	VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := u.tx.ExecContext(ctx, query, t.ID, t.AccountNo, t.Amount, string(t.Kind), t.Timestamp, t.BalanceAfter); err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return sql.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		u.Rollback(ctx)
		return err
	}
	u.done = true
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
