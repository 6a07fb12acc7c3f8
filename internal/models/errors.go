package models

import (
	"errors"
	"fmt"
)

// Ledger failures returned to callers. Callers match them with errors.Is.
var (
	// ErrInvalidAmount: non-positive, too precise, or below the configured minimum.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds: the debit would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLimitExceeded: the withdrawal exceeds the account type's maximum.
	ErrLimitExceeded = errors.New("withdrawal limit exceeded")

	// ErrAccountNotFound: unknown source or destination account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSameAccount: transfer source and destination are the same account.
	ErrSameAccount = errors.New("source and destination account are the same")

	// ErrDuplicateAccount: registration reused an account number or type id.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrUnknownAccountType: registration named an account type that does not exist.
	ErrUnknownAccountType = errors.New("unknown account type")

	// ErrStorage matches any *StorageError.
	ErrStorage = errors.New("storage error")
)

// StorageError wraps a persistence failure. The operation that hit it was aborted
// in full; the caller decides whether to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage error: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) true for every StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsDomainError reports whether err is one of the ledger's validation failures,
// as opposed to something that went wrong underneath it.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSameAccount)
}
