package report

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/banking-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-core/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/sheikh-saqib/banking-ledger-core/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture builds two accounts with history spread over three days.
func fixture(t *testing.T) (*memory.MemoryLedgerStore, *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	typ := models.AccountType{ID: 1, Name: "savings", MaxWithdrawal: d("500")}
	if err := store.CreateAccountType(ctx, typ); err != nil {
		t.Fatal(err)
	}
	for _, no := range []int64{1000000001, 1000000002} {
		a, err := models.NewAccount(no, "owner", typ)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	day := 1
	clock := func() time.Time { return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC) }
	l := ledger.NewLedger(store, ledger.WithClock(clock), ledger.WithLogger(slog.New(slog.DiscardHandler)))

	if _, err := l.Deposit(ctx, 1000000001, d("300")); err != nil {
		t.Fatal(err)
	}
	day = 2
	if _, err := l.Withdraw(ctx, 1000000001, d("45.50")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Transfer(ctx, 1000000001, 1000000002, d("100")); err != nil {
		t.Fatal(err)
	}
	day = 3
	if _, err := l.Deposit(ctx, 1000000001, d("20")); err != nil {
		t.Fatal(err)
	}
	return store, l
}

func dateRange(t *testing.T, from, to string) models.DateRange {
	t.Helper()
	r, err := models.ParseDateRange(from, to)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestListTransactionsByRange(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		want     []string
	}{
		{"all", "", "", []string{"20", "100", "45.5", "300"}},
		{"single day", "2024-03-02", "2024-03-02", []string{"100", "45.5"}},
		{"open end", "2024-03-02", "", []string{"20", "100", "45.5"}},
		{"open start", "", "2024-03-01", []string{"300"}},
		{"no activity", "2024-04-01", "2024-04-30", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := Collect(rp.ListTransactions(ctx, 1000000001, dateRange(t, tt.from, tt.to)))
			if err != nil {
				t.Fatal(err)
			}
			if len(txs) != len(tt.want) {
				t.Fatalf("got %d transactions want %d", len(txs), len(tt.want))
			}
			for i, tx := range txs {
				if !tx.Amount.Equal(d(tt.want[i])) {
					t.Fatalf("tx %d amount=%s want=%s", i, tx.Amount, tt.want[i])
				}
			}
		})
	}
}

func TestListTransactionsRejectsInvertedRange(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(store)

	r := models.DateRange{
		From: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := Collect(rp.ListTransactions(context.Background(), 1000000001, r)); err == nil {
		t.Fatal("expected an error for from after to")
	}
}

func TestListTransactionsUnknownAccount(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(store)

	_, err := Collect(rp.ListTransactions(context.Background(), 42, models.DateRange{}))
	if !errors.Is(err, models.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestStatement(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(store)

	st, err := rp.Statement(context.Background(), 1000000001, dateRange(t, "2024-03-01", "2024-03-02"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 3 {
		t.Fatalf("count=%d want=3", st.Count)
	}
	if !st.TotalDeposits.Equal(d("300")) || !st.TotalWithdrawals.Equal(d("145.50")) {
		t.Fatalf("deposits=%s withdrawals=%s", st.TotalDeposits, st.TotalWithdrawals)
	}
	if !st.ClosingBalance.Equal(d("154.50")) {
		t.Fatalf("closing=%s want=154.50", st.ClosingBalance)
	}
	if st.From != "2024-03-01" || st.To != "2024-03-02" {
		t.Fatalf("range=%s..%s", st.From, st.To)
	}

	empty, err := rp.Statement(context.Background(), 1000000002, dateRange(t, "2024-03-03", ""))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 || !empty.ClosingBalance.IsZero() {
		t.Fatalf("unexpected empty statement: %+v", empty)
	}
}

func TestAuditPasses(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(store)

	for _, no := range []int64{1000000001, 1000000002} {
		if err := rp.Audit(context.Background(), no); err != nil {
			t.Fatalf("account %d: %v", no, err)
		}
	}
}

// tamperedStore rewrites one recorded BalanceAfter on the way out.
type tamperedStore struct {
	interfaces.LedgerStore
}

func (s tamperedStore) Transactions(ctx context.Context, accountNo int64, r models.DateRange) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		first := true
		for tx, err := range s.LedgerStore.Transactions(ctx, accountNo, r) {
			if err == nil && first {
				tx.BalanceAfter = tx.BalanceAfter.Add(d("0.01"))
				first = false
			}
			if !yield(tx, err) {
				return
			}
		}
	}
}

func TestAuditDetectsViolation(t *testing.T) {
	store, _ := fixture(t)
	rp := NewReporter(tamperedStore{store})

	if err := rp.Audit(context.Background(), 1000000001); !errors.Is(err, ErrConservationViolated) {
		t.Fatalf("want ErrConservationViolated, got %v", err)
	}
}

func TestAuditReleasesAccount(t *testing.T) {
	store, l := fixture(t)
	rp := NewReporter(store)
	ctx := context.Background()

	if err := rp.Audit(ctx, 1000000001); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, err := l.Deposit(ctx, 1000000001, d("10")); err != nil {
		t.Fatalf("deposit after audit: %v", err)
	}
}
