package models

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"0.01", true},
		{"10", true},
		{"123456.78", true},
		{"10.50", true},
		{"9999999999.99", true},
		{"10000000000", false},
		{"0", false},
		{"-5", false},
		{"1.005", false},
	}
	for _, tt := range tests {
		err := ValidateAmount(decimal.RequireFromString(tt.amount))
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.amount, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%s: want ErrInvalidAmount, got %v", tt.amount, err)
		}
	}
}

func TestNewTransaction(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := NewTransaction(1, decimal.NewFromInt(25), Withdrawal, decimal.NewFromInt(75), at)
	if err != nil {
		t.Fatal(err)
	}
	if !tx.SignedAmount().Equal(decimal.NewFromInt(-25)) {
		t.Fatalf("signed amount=%s", tx.SignedAmount())
	}

	bad := []struct {
		name    string
		no      int64
		amount  string
		kind    Kind
		balance string
		at      time.Time
	}{
		{"no account", 0, "1", Deposit, "1", at},
		{"zero amount", 1, "0", Deposit, "0", at},
		{"unknown kind", 1, "1", Kind("REFUND"), "1", at},
		{"negative balance", 1, "1", Withdrawal, "-1", at},
		{"no timestamp", 1, "1", Deposit, "1", time.Time{}},
	}
	for _, tt := range bad {
		if _, err := NewTransaction(tt.no, decimal.RequireFromString(tt.amount), tt.kind, decimal.RequireFromString(tt.balance), tt.at); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestNewAccountStartsEmpty(t *testing.T) {
	a, err := NewAccount(1000000000, "owner", AccountType{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Balance.IsZero() || a.CreatedAt.IsZero() {
		t.Fatalf("unexpected account %+v", a)
	}
	if _, err := NewAccount(1, "", AccountType{ID: 1}); err == nil {
		t.Fatal("missing owner accepted")
	}
	if _, err := NewAccountType(1, "savings", decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero maximum accepted: %v", err)
	}
}

func TestDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-02-10", "2024-02-11")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 2, 9, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 2, 11, 23, 59, 59, 999, time.UTC), true},
		{time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := r.Contains(c.at); got != c.want {
			t.Errorf("Contains(%s)=%v want %v", c.at, got, c.want)
		}
	}

	same, err := ParseDateRange("2024-02-10", "2024-02-10")
	if err != nil || !same.Contains(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("single-day range: %v", err)
	}
	if !(DateRange{}).Contains(time.Now()) {
		t.Fatal("open range must contain everything")
	}
	if _, err := ParseDateRange("2024-02-11", "2024-02-10"); err == nil {
		t.Fatal("inverted range accepted")
	}
	if _, err := ParseDateRange("10/02/2024", ""); err == nil {
		t.Fatal("bad layout accepted")
	}
}

func TestLockOrder(t *testing.T) {
	in := []int64{9, 3, 9, 1}
	got := LockOrder(in...)
	if !slices.Equal(got, []int64{1, 3, 9}) {
		t.Fatalf("got %v", got)
	}
	if !slices.Equal(in, []int64{9, 3, 9, 1}) {
		t.Fatal("input was modified")
	}
}

func TestStorageErrorMatching(t *testing.T) {
	err := error(&StorageError{Op: "deposit", Err: errors.New("disk full")})
	if !errors.Is(err, ErrStorage) {
		t.Fatal("StorageError does not match ErrStorage")
	}
	if IsDomainError(err) || IsDomainError(ErrDuplicateAccount) {
		t.Fatal("non-ledger failure classified as domain error")
	}
	if !IsDomainError(ErrInsufficientFunds) {
		t.Fatal("ErrInsufficientFunds not a domain error")
	}
}
