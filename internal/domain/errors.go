package domain

import "errors"

var (
	// ErrInvalidAmount is returned for non-positive amounts, before any
	// store access happens.
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrSameWallet is returned when sender and recipient are the same owner.
	ErrSameWallet = errors.New("sender and recipient must be different wallets")

	// ErrWalletNotFound is returned when a party has no wallet record.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound is returned when no transaction exists for an ID.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrRequestNotFound is returned when no money request exists for an ID.
	ErrRequestNotFound = errors.New("money request not found")

	// ErrInsufficientFunds is returned when the debit check fails inside the
	// store transaction.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrCurrencyMismatch is returned when wallet and transaction currencies
	// differ; the core never converts.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrUnauthorized is returned when the caller identity does not match
	// the party required for the action.
	ErrUnauthorized = errors.New("caller is not authorized for this action")

	// ErrAlreadyResolved is returned when an action targets a transaction or
	// request that already left the pending state.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrNotExpired is returned when expiry is attempted on a pending
	// request that has no deadline or whose deadline has not passed.
	ErrNotExpired = errors.New("request is not past its expiry")

	// ErrStoreConflict is a transient optimistic-concurrency failure from
	// the ledger store. Callers retry it a bounded number of times.
	ErrStoreConflict = errors.New("store conflict")

	// ErrTransientFailure is surfaced once conflict retries are exhausted.
	// It is safe for the user to retry the whole operation.
	ErrTransientFailure = errors.New("transient failure, retry later")

	// ErrIdempotencyInProgress is returned when a submission with the same
	// idempotency key is still being processed.
	ErrIdempotencyInProgress = errors.New("request in progress")

	// ErrIdempotencyMismatch is returned when an idempotency key is reused
	// with a different payload.
	ErrIdempotencyMismatch = errors.New("idempotency key reuse with mismatched payload")
)
