package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation names carried by TransactionCommitted.
const (
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdrawal"
	OperationTransfer = "transfer"
)

// TransactionCommitted is emitted once per committed ledger operation.
type TransactionCommitted struct {
	EventID        uuid.UUID       `json:"event_id"`
	Operation      string          `json:"operation"`
	FromAccount    int64           `json:"from_account,omitempty"`
	ToAccount      int64           `json:"to_account,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Key is the account the event is partitioned by: the debited account when
// there is one, otherwise the credited one.
func (e TransactionCommitted) Key() int64 {
	if e.FromAccount != 0 {
		return e.FromAccount
	}
	return e.ToAccount
}
