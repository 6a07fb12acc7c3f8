package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is an account category. It carries the largest amount a single
// withdrawal from an account of this type may move.
type AccountType struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	MaxWithdrawal decimal.Decimal `json:"maximum_withdrawal_amount"`
}

// NewAccountType validates and builds an AccountType.
func NewAccountType(id int64, name string, maxWithdrawal decimal.Decimal) (AccountType, error) {
	if id <= 0 {
		return AccountType{}, fmt.Errorf("account type id must be positive, got %d", id)
	}
	if name == "" {
		return AccountType{}, fmt.Errorf("account type %d: name is required", id)
	}
	if !maxWithdrawal.IsPositive() {
		return AccountType{}, fmt.Errorf("account type %q: maximum withdrawal must be positive: %w", name, ErrInvalidAmount)
	}
	return AccountType{ID: id, Name: name, MaxWithdrawal: maxWithdrawal}, nil
}

// AccountTypeLimits is the slice of an AccountType that withdrawal validation needs.
type AccountTypeLimits struct {
	MaxWithdrawal decimal.Decimal `json:"max_withdrawal"`
}

// Limits returns the validation limits of the type.
func (t AccountType) Limits() AccountTypeLimits {
	return AccountTypeLimits{MaxWithdrawal: t.MaxWithdrawal}
}

// DefaultAccountNumberStart is the lowest account number handed out at
// registration unless configured otherwise.
const DefaultAccountNumberStart int64 = 1000000000

// Account is a bank account as the ledger sees it. Balance is only ever
// changed by ledger operations; everything else is set at registration.
type Account struct {
	No        int64           `json:"account_no"` // globally unique, assigned at registration
	Owner     string          `json:"owner"`      // user identity from the auth layer
	Type      AccountType     `json:"account_type"`
	Balance   decimal.Decimal `json:"balance"`
	Gender    string          `json:"gender,omitempty"`
	BirthDate time.Time       `json:"birth_date,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAccount builds a freshly registered account with a zero balance. Money
// only enters through deposits and transfers so that every account's
// history sums to its balance.
func NewAccount(no int64, owner string, accountType AccountType) (Account, error) {
	if no <= 0 {
		return Account{}, fmt.Errorf("account number must be positive, got %d", no)
	}
	if owner == "" {
		return Account{}, fmt.Errorf("account %d: owner is required", no)
	}
	if accountType.ID <= 0 {
		return Account{}, fmt.Errorf("account %d: account type is required", no)
	}
	return Account{
		No:        no,
		Owner:     owner,
		Type:      accountType,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate checks the invariants a stored account must satisfy.
func (a Account) Validate() error {
	if a.No <= 0 {
		return fmt.Errorf("account number must be positive, got %d", a.No)
	}
	if a.Owner == "" {
		return fmt.Errorf("account %d: owner is required", a.No)
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("account %d: negative balance %s", a.No, a.Balance)
	}
	return nil
}
