package ledger

import (
	"fmt"

	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// Policy holds the configured amount rules.
type Policy struct {
	MinDeposit    decimal.Decimal
	MinWithdrawal decimal.Decimal

	// TransferAppliesWithdrawalRules subjects the debit leg of a transfer to
	// MinWithdrawal and to the source account type's maximum withdrawal.
	// The credit leg is never held to MinDeposit.
	TransferAppliesWithdrawalRules bool
}

// DefaultPolicy: minimums of 10 for both directions, transfers treated as withdrawals.
func DefaultPolicy() Policy {
	return Policy{
		MinDeposit:                     decimal.NewFromInt(10),
		MinWithdrawal:                  decimal.NewFromInt(10),
		TransferAppliesWithdrawalRules: true,
	}
}

func (p Policy) checkDeposit(amount decimal.Decimal) error {
	if err := models.ValidateAmount(amount); err != nil {
		return err
	}
	return atLeast(amount, p.MinDeposit, "deposit")
}

func (p Policy) checkWithdrawal(amount decimal.Decimal) error {
	if err := models.ValidateAmount(amount); err != nil {
		return err
	}
	return atLeast(amount, p.MinWithdrawal, "withdrawal")
}

func (p Policy) checkTransfer(amount decimal.Decimal) error {
	if p.TransferAppliesWithdrawalRules {
		return p.checkWithdrawal(amount)
	}
	return models.ValidateAmount(amount)
}

func atLeast(amount, minimum decimal.Decimal, what string) error {
	if amount.LessThan(minimum) {
		return fmt.Errorf("%w: %s %s is below the minimum %s", models.ErrInvalidAmount, what, amount, minimum)
	}
	return nil
}
