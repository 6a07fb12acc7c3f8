package interfaces

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// AccountStore reads and mutates account balances.
type AccountStore interface {
	GetAccount(ctx context.Context, accountNo int64) (models.Account, error)
	GetBalance(ctx context.Context, accountNo int64) (decimal.Decimal, error)
	// ApplyDelta adds delta to the balance and returns the new balance. A
	// negative delta that would leave the balance below zero fails with
	// models.ErrInsufficientFunds and changes nothing.
	ApplyDelta(ctx context.Context, accountNo int64, delta decimal.Decimal) (decimal.Decimal, error)
	GetAccountTypeLimits(ctx context.Context, accountNo int64) (models.AccountTypeLimits, error)
}

// TransactionLog appends immutable transaction records.
type TransactionLog interface {
	Append(ctx context.Context, tx models.Transaction) (uuid.UUID, error)
}

// UnitOfWork holds exclusive access to a fixed set of accounts. Nothing it
// stages is visible to other readers until Commit; Rollback discards it.
// Rollback after Commit is a no-op.
type UnitOfWork interface {
	AccountStore
	TransactionLog
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionReader is the read side of the transaction log.
type TransactionReader interface {
	// Transactions yields an account's history newest first. The sequence is
	// lazy and may be ranged over again to re-run the read.
	Transactions(ctx context.Context, accountNo int64, r models.DateRange) iter.Seq2[models.Transaction, error]
}

// LedgerStore is the persistence behind the ledger.
type LedgerStore interface {
	TransactionReader

	// Begin locks the given accounts in ascending account number order and
	// fails with models.ErrAccountNotFound, holding nothing, if any is unknown.
	Begin(ctx context.Context, accountNos ...int64) (UnitOfWork, error)

	GetAccount(ctx context.Context, accountNo int64) (models.Account, error)
	GetBalance(ctx context.Context, accountNo int64) (decimal.Decimal, error)

	// Registration hooks, called by the account-opening collaborator.
	CreateAccountType(ctx context.Context, t models.AccountType) error
	CreateAccount(ctx context.Context, a models.Account) error
}
