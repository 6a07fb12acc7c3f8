// Package report answers read-only questions about account history:
// transaction listings, statements and the conservation audit.
package report

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// ErrConservationViolated means an account's history does not add up to its
// recorded balances.
var ErrConservationViolated = errors.New("conservation violated")

// Reporter reads committed history. It never mutates the store.
type Reporter struct {
	store interfaces.LedgerStore
}

// NewReporter reports over store.
func NewReporter(store interfaces.LedgerStore) *Reporter {
	return &Reporter{store: store}
}

// Statement summarises an account's transactions inside a date range.
type Statement struct {
	AccountNo        int64           `json:"account_no"`
	From             string          `json:"from,omitempty"`
	To               string          `json:"to,omitempty"`
	Count            int             `json:"count"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	// ClosingBalance is the balance after the newest transaction in range,
	// zero when the range is empty.
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// ListTransactions yields the account's transactions inside r, newest first.
// An invalid range or unknown account surfaces as the first yielded error.
func (rp *Reporter) ListTransactions(ctx context.Context, accountNo int64, r models.DateRange) iter.Seq2[models.Transaction, error] {
	if err := r.Validate(); err != nil {
		return func(yield func(models.Transaction, error) bool) {
			yield(models.Transaction{}, err)
		}
	}
	return rp.store.Transactions(ctx, accountNo, r)
}

// Collect drains seq, stopping at the first error.
func Collect(seq iter.Seq2[models.Transaction, error]) ([]models.Transaction, error) {
	var out []models.Transaction
	for tx, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Statement totals the account's deposits and withdrawals inside r and
// returns them with the matching transactions, newest first.
func (rp *Reporter) Statement(ctx context.Context, accountNo int64, r models.DateRange) (Statement, error) {
	st := Statement{AccountNo: accountNo}
	if !r.From.IsZero() {
		st.From = r.From.Format("2006-01-02")
	}
	if !r.To.IsZero() {
		st.To = r.To.Format("2006-01-02")
	}

	for tx, err := range rp.ListTransactions(ctx, accountNo, r) {
		if err != nil {
			return Statement{}, err
		}
		if st.Count == 0 {
			st.ClosingBalance = tx.BalanceAfter
		}
		st.Count++
		switch tx.Kind {
		case models.Deposit:
			st.TotalDeposits = st.TotalDeposits.Add(tx.Amount)
		case models.Withdrawal:
			st.TotalWithdrawals = st.TotalWithdrawals.Add(tx.Amount)
		}
	}
	return st, nil
}

// Audit replays the account's whole history oldest first and checks that the
// running total matches every BalanceAfter and the current balance. The
// account is held for the duration so no operation lands mid-replay.
func (rp *Reporter) Audit(ctx context.Context, accountNo int64) error {
	uow, err := rp.store.Begin(ctx, accountNo)
	if err != nil {
		return err
	}
	defer uow.Rollback(context.WithoutCancel(ctx))

	balance, err := uow.GetBalance(ctx, accountNo)
	if err != nil {
		return err
	}
	history, err := Collect(rp.store.Transactions(ctx, accountNo, models.DateRange{}))
	if err != nil {
		return err
	}
	slices.Reverse(history)

	running := decimal.Zero
	for _, tx := range history {
		running = running.Add(tx.SignedAmount())
		if !running.Equal(tx.BalanceAfter) {
			return fmt.Errorf("account %d: transaction %s records balance %s, history sums to %s: %w",
				accountNo, tx.ID, tx.BalanceAfter, running, ErrConservationViolated)
		}
	}
	if !running.Equal(balance) {
		return fmt.Errorf("account %d: balance %s, history sums to %s: %w",
			accountNo, balance, running, ErrConservationViolated)
	}
	return nil
}
