package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models/events"
	"github.com/shopspring/decimal"
)

// DefaultTopic is where committed-operation events go unless WithPublisher
// names another topic.
const DefaultTopic = "ledger.transactions"

// DefaultPublishTimeout bounds how long a committed operation waits on its
// event before returning to the caller.
const DefaultPublishTimeout = 5 * time.Second

// Ledger is the only component allowed to change a balance. Every operation
// runs as one unit of work on the store: balance changes and log appends
// commit together or not at all.
type Ledger struct {
	store          interfaces.LedgerStore
	policy         Policy
	publisher      interfaces.EventPublisher
	topic          string
	publishTimeout time.Duration
	logger         *slog.Logger

	clockMu sync.Mutex
	clock   func() time.Time
	last    time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = p }
}

// WithPublisher sends a TransactionCommitted event to topic after every commit.
func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = p
		if topic != "" {
			l.topic = topic
		}
	}
}

// WithPublishTimeout replaces DefaultPublishTimeout. An event not delivered
// in time is logged as lost; the operation still succeeds.
func WithPublishTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.publishTimeout = d }
}

// WithLogger replaces slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides time.Now. Timestamps handed out are still forced to
// increase strictly.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// NewLedger creates a Ledger over store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		policy:         DefaultPolicy(),
		topic:          DefaultTopic,
		publishTimeout: DefaultPublishTimeout,
		logger:         slog.Default(),
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result describes one committed transaction.
type Result struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	AccountNo     int64           `json:"account_no"`
	Balance       decimal.Decimal `json:"balance"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TransferResult holds both legs of a committed transfer.
type TransferResult struct {
	Debit  Result `json:"debit"`
	Credit Result `json:"credit"`
}

// Deposit credits amount to the account.
func (l *Ledger) Deposit(ctx context.Context, accountNo int64, amount decimal.Decimal) (Result, error) {
	if err := l.policy.checkDeposit(amount); err != nil {
		return Result{}, err
	}

	var res Result
	err := l.run(ctx, events.OperationDeposit, []int64{accountNo}, func(uow interfaces.UnitOfWork) error {
		balance, err := uow.ApplyDelta(ctx, accountNo, amount)
		if err != nil {
			return err
		}
		res, err = l.record(ctx, uow, accountNo, amount, models.Deposit, balance)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	l.publish(ctx, events.TransactionCommitted{
		Operation:      events.OperationDeposit,
		ToAccount:      accountNo,
		Amount:         amount,
		TransactionIDs: []uuid.UUID{res.TransactionID},
		OccurredAt:     res.Timestamp,
	})
	return res, nil
}

// Withdraw debits amount from the account. The checks run in order: amount
// well-formed and above the minimum, within the account type's maximum,
// covered by the balance.
func (l *Ledger) Withdraw(ctx context.Context, accountNo int64, amount decimal.Decimal) (Result, error) {
	if err := l.policy.checkWithdrawal(amount); err != nil {
		return Result{}, err
	}

	var res Result
	err := l.run(ctx, events.OperationWithdraw, []int64{accountNo}, func(uow interfaces.UnitOfWork) error {
		if err := checkLimit(ctx, uow, accountNo, amount); err != nil {
			return err
		}
		balance, err := uow.ApplyDelta(ctx, accountNo, amount.Neg())
		if err != nil {
			return err
		}
		res, err = l.record(ctx, uow, accountNo, amount, models.Withdrawal, balance)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	l.publish(ctx, events.TransactionCommitted{
		Operation:      events.OperationWithdraw,
		FromAccount:    accountNo,
		Amount:         amount,
		TransactionIDs: []uuid.UUID{res.TransactionID},
		OccurredAt:     res.Timestamp,
	})
	return res, nil
}

// Transfer moves amount from one account to another as a single unit: a
// WITHDRAWAL on from and a DEPOSIT on to, each carrying its own account's
// post-balance. Both accounts are held for the whole unit, taken in
// ascending account number order whatever the argument order.
func (l *Ledger) Transfer(ctx context.Context, from, to int64, amount decimal.Decimal) (TransferResult, error) {
	if from == to {
		return TransferResult{}, fmt.Errorf("transfer %d -> %d: %w", from, to, models.ErrSameAccount)
	}
	if err := l.policy.checkTransfer(amount); err != nil {
		return TransferResult{}, err
	}

	var res TransferResult
	err := l.run(ctx, events.OperationTransfer, []int64{from, to}, func(uow interfaces.UnitOfWork) error {
		if l.policy.TransferAppliesWithdrawalRules {
			if err := checkLimit(ctx, uow, from, amount); err != nil {
				return err
			}
		}

		fromBalance, err := uow.ApplyDelta(ctx, from, amount.Neg())
		if err != nil {
			return err
		}
		if res.Debit, err = l.record(ctx, uow, from, amount, models.Withdrawal, fromBalance); err != nil {
			return err
		}

		toBalance, err := uow.ApplyDelta(ctx, to, amount)
		if err != nil {
			return err
		}
		res.Credit, err = l.record(ctx, uow, to, amount, models.Deposit, toBalance)
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}

	l.publish(ctx, events.TransactionCommitted{
		Operation:      events.OperationTransfer,
		FromAccount:    from,
		ToAccount:      to,
		Amount:         amount,
		TransactionIDs: []uuid.UUID{res.Debit.TransactionID, res.Credit.TransactionID},
		OccurredAt:     res.Credit.Timestamp,
	})
	return res, nil
}

// Balance returns the committed balance of an account.
func (l *Ledger) Balance(ctx context.Context, accountNo int64) (decimal.Decimal, error) {
	balance, err := l.store.GetBalance(ctx, accountNo)
	if err != nil {
		return decimal.Zero, l.fail("balance", err)
	}
	return balance, nil
}

// Account returns the committed account record.
func (l *Ledger) Account(ctx context.Context, accountNo int64) (models.Account, error) {
	a, err := l.store.GetAccount(ctx, accountNo)
	if err != nil {
		return models.Account{}, l.fail("account", err)
	}
	return a, nil
}

// run opens a unit of work over accountNos, runs fn inside it and commits.
// Any error from fn or from the commit rolls the unit back.
func (l *Ledger) run(ctx context.Context, op string, accountNos []int64, fn func(uow interfaces.UnitOfWork) error) error {
	uow, err := l.store.Begin(ctx, accountNos...)
	if err != nil {
		return l.fail(op, err)
	}

	if err := fn(uow); err != nil {
		// rollback must run even when ctx is what made fn fail
		if rbErr := uow.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			l.logger.Error("ledger: rollback failed", "op", op, "error", rbErr)
		}
		return l.fail(op, err)
	}

	if err := uow.Commit(ctx); err != nil {
		if rbErr := uow.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			l.logger.Error("ledger: rollback failed", "op", op, "error", rbErr)
		}
		return l.fail(op, err)
	}

	l.logger.Debug("ledger: committed", "op", op, "accounts", accountNos)
	return nil
}

// record appends one log entry inside uow.
func (l *Ledger) record(ctx context.Context, uow interfaces.UnitOfWork, accountNo int64, amount decimal.Decimal, kind models.Kind, balance decimal.Decimal) (Result, error) {
	at := l.now()
	tx, err := models.NewTransaction(accountNo, amount, kind, balance, at)
	if err != nil {
		return Result{}, err
	}
	id, err := uow.Append(ctx, tx)
	if err != nil {
		return Result{}, err
	}
	return Result{TransactionID: id, AccountNo: accountNo, Balance: balance, Timestamp: at}, nil
}

// fail passes ledger validation errors through and wraps everything else in
// a StorageError.
func (l *Ledger) fail(op string, err error) error {
	if models.IsDomainError(err) {
		l.logger.Debug("ledger: aborted", "op", op, "reason", err)
		return err
	}
	l.logger.Error("ledger: aborted on storage failure", "op", op, "error", err)
	return &models.StorageError{Op: op, Err: err}
}

func (l *Ledger) publish(ctx context.Context, evt events.TransactionCommitted) {
	if l.publisher == nil {
		return
	}
	evt.EventID = uuid.New()
	// the operation is committed; a lost event must not surface as a failure
	// nor keep the caller waiting past publishTimeout
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.publishTimeout)
	defer cancel()
	if err := l.publisher.Publish(pubCtx, l.topic, evt); err != nil {
		l.logger.Warn("ledger: event publish failed", "event_id", evt.EventID, "operation", evt.Operation, "error", err)
	}
}

// now returns the next transaction timestamp, strictly after the previous
// one and truncated to the microsecond precision postgres keeps.
func (l *Ledger) now() time.Time {
	l.clockMu.Lock()
	defer l.clockMu.Unlock()

	t := l.clock().UTC().Truncate(time.Microsecond)
	if !t.After(l.last) {
		t = l.last.Add(time.Microsecond)
	}
	l.last = t
	return t
}

func checkLimit(ctx context.Context, uow interfaces.UnitOfWork, accountNo int64, amount decimal.Decimal) error {
	limits, err := uow.GetAccountTypeLimits(ctx, accountNo)
	if err != nil {
		return err
	}
	if amount.GreaterThan(limits.MaxWithdrawal) {
		return fmt.Errorf("account %d: %s above maximum %s: %w", accountNo, amount, limits.MaxWithdrawal, models.ErrLimitExceeded)
	}
	return nil
}
