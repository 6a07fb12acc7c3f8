package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money is kept to.
const AmountScale = 2

// MaxAmount is the largest amount or balance the ledger holds: twelve
// digits, two of them after the point.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Kind says which way a transaction moved money.
type Kind string

const (
	Deposit    Kind = "DEPOSIT"
	Withdrawal Kind = "WITHDRAWAL"
)

func (k Kind) Valid() bool {
	return k == Deposit || k == Withdrawal
}

// Transaction is one immutable entry of an account's history.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountNo    int64           `json:"account_no"`
	Amount       decimal.Decimal `json:"amount"` // always positive, Kind carries the sign
	Kind         Kind            `json:"kind"`
	Timestamp    time.Time       `json:"timestamp"`
	BalanceAfter decimal.Decimal `json:"balance_after"` // account balance right after this entry
	Seq          int64           `json:"-"`             // commit order, assigned by the store
}

// NewTransaction validates the inputs and returns a transaction with a fresh ID.
func NewTransaction(accountNo int64, amount decimal.Decimal, kind Kind, balanceAfter decimal.Decimal, at time.Time) (Transaction, error) {
	tx := Transaction{
		ID:           uuid.New(),
		AccountNo:    accountNo,
		Amount:       amount,
		Kind:         kind,
		Timestamp:    at,
		BalanceAfter: balanceAfter,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Validate checks the record invariants.
func (t Transaction) Validate() error {
	if t.AccountNo <= 0 {
		return fmt.Errorf("transaction: account number must be positive, got %d", t.AccountNo)
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("transaction: unknown kind %q", t.Kind)
	}
	if t.BalanceAfter.IsNegative() {
		return fmt.Errorf("transaction: negative balance after %s", t.BalanceAfter)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("transaction: timestamp is required")
	}
	return nil
}

// SignedAmount is the change this transaction made to its account's balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == Withdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ValidateAmount accepts strictly positive amounts up to MaxAmount with at
// most AmountScale decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s is not positive", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s is above the maximum %s", ErrInvalidAmount, amount, MaxAmount)
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, AmountScale)
	}
	return nil
}
