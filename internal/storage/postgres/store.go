package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
	numericOverflow     = pq.ErrorCode("22003")
)

// PostgresLedgerStore implements interfaces.LedgerStore on postgres. Units
// of work are SQL transactions holding row locks on their accounts.
type PostgresLedgerStore struct {
	db *sql.DB
}

// NewPostgresLedgerStore wraps an open connection pool; see Open.
func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to postgres through lib/pq and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist yet.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateAccountType inserts t. A taken ID is ErrDuplicateAccount.
func (p *PostgresLedgerStore) CreateAccountType(ctx context.Context, t models.AccountType) error {
	if _, err := models.NewAccountType(t.ID, t.Name, t.MaxWithdrawal); err != nil {
		return err
	}

	const query = `INSERT INTO account_types (id, name, maximum_withdrawal_amount) VALUES ($1, $2, $3)`

	_, err := p.db.ExecContext(ctx, query, t.ID, t.Name, t.MaxWithdrawal)
	if pqCode(err) == uniqueViolation {
		return fmt.Errorf("account type %d: %w", t.ID, models.ErrDuplicateAccount)
	}
	return err
}

// CreateAccount inserts a. A taken number is ErrDuplicateAccount and a
// missing type is ErrUnknownAccountType.
func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, a models.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO accounts (account_no, owner, account_type_id, gender, birth_date, balance, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	birthDate := sql.NullTime{Time: a.BirthDate, Valid: !a.BirthDate.IsZero()}
	_, err := p.db.ExecContext(ctx, query, a.No, a.Owner, a.Type.ID, a.Gender, birthDate, a.Balance, a.CreatedAt)
	switch pqCode(err) {
	case uniqueViolation:
		return fmt.Errorf("account %d: %w", a.No, models.ErrDuplicateAccount)
	case foreignKeyViolation:
		return fmt.Errorf("account %d: type %d: %w", a.No, a.Type.ID, models.ErrUnknownAccountType)
	}
	return err
}

// GetAccount reads the account with its type joined in.
func (p *PostgresLedgerStore) GetAccount(ctx context.Context, accountNo int64) (models.Account, error) {
	return getAccount(ctx, p.db, accountNo)
}

// GetBalance returns the committed balance.
func (p *PostgresLedgerStore) GetBalance(ctx context.Context, accountNo int64) (decimal.Decimal, error) {
	a, err := getAccount(ctx, p.db, accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

// Begin opens a SQL transaction and row-locks the accounts in ascending
// account_no order.
func (p *PostgresLedgerStore) Begin(ctx context.Context, accountNos ...int64) (interfaces.UnitOfWork, error) {
	ordered := models.LockOrder(accountNos...)

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	const query = `SELECT account_no FROM accounts WHERE account_no = ANY($1) ORDER BY account_no FOR UPDATE`

	rows, err := dbTx.QueryContext(ctx, query, pq.Array(ordered))
	if err != nil {
		dbTx.Rollback()
		return nil, err
	}
	locked := make(map[int64]bool, len(ordered))
	for rows.Next() {
		var no int64
		if err := rows.Scan(&no); err != nil {
			rows.Close()
			dbTx.Rollback()
			return nil, err
		}
		locked[no] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		dbTx.Rollback()
		return nil, err
	}

	for _, no := range ordered {
		if !locked[no] {
			dbTx.Rollback()
			return nil, fmt.Errorf("account %d: %w", no, models.ErrAccountNotFound)
		}
	}

	return &unitOfWork{tx: dbTx, scope: ordered}, nil
}

// Transactions runs the query when the range loop starts and streams rows
// as they are scanned.
func (p *PostgresLedgerStore) Transactions(ctx context.Context, accountNo int64, r models.DateRange) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_no = $1)`, accountNo).Scan(&exists); err != nil {
			yield(models.Transaction{}, err)
			return
		}
		if !exists {
			yield(models.Transaction{}, fmt.Errorf("account %d: %w", accountNo, models.ErrAccountNotFound))
			return
		}

		const query = `SELECT id, account_no, amount, kind, created_at, balance_after, seq FROM transactions
		WHERE account_no = $1
		AND ($2::timestamptz IS NULL OR created_at >= $2)
		AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, seq DESC`

		start := sql.NullTime{Time: r.Start(), Valid: !r.Start().IsZero()}
		end := sql.NullTime{Time: r.End(), Valid: !r.End().IsZero()}

		rows, err := p.db.QueryContext(ctx, query, accountNo, start, end)
		if err != nil {
			yield(models.Transaction{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var t models.Transaction
			if err := rows.Scan(&t.ID, &t.AccountNo, &t.Amount, &t.Kind, &t.Timestamp, &t.BalanceAfter, &t.Seq); err != nil {
				yield(models.Transaction{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Transaction{}, err)
		}
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q querier, accountNo int64) (models.Account, error) {
	const query = `SELECT a.account_no, a.owner, a.gender, a.birth_date, a.balance, a.created_at,
	t.id, t.name, t.maximum_withdrawal_amount
	FROM accounts a JOIN account_types t ON t.id = a.account_type_id
	WHERE a.account_no = $1`

	var a models.Account
	var birthDate sql.NullTime
	err := q.QueryRowContext(ctx, query, accountNo).Scan(
		&a.No, &a.Owner, &a.Gender, &birthDate, &a.Balance, &a.CreatedAt,
		&a.Type.ID, &a.Type.Name, &a.Type.MaxWithdrawal,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %d: %w", accountNo, models.ErrAccountNotFound)
	}
	if err != nil {
		return models.Account{}, err
	}
	if birthDate.Valid {
		a.BirthDate = birthDate.Time
	}
	return a, nil
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
