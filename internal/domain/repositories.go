package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TxManager runs a function inside one atomic store transaction. The
// transaction handle travels in the context; repository implementations
// pick it up from there. If fn returns an error the transaction is rolled
// back and nothing is written. Conflicting concurrent transactions surface
// as ErrStoreConflict.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WalletRepository is the wallet slice of the ledger store boundary.
type WalletRepository interface {
	// Get reads a wallet without locking it. Returns ErrWalletNotFound if
	// no record exists.
	Get(ctx context.Context, ownerID string) (*Wallet, error)

	// Lock reads a wallet with an exclusive row lock for the duration of
	// the surrounding transaction. Must be called within a transaction.
	Lock(ctx context.Context, ownerID string) (*Wallet, error)

	// Create inserts a new wallet record.
	Create(ctx context.Context, w *Wallet) error

	// SetBalance writes a new balance for a wallet previously locked in the
	// same transaction.
	SetBalance(ctx context.Context, ownerID string, balance int64, updatedAt time.Time) error
}

// TransactionRepository persists ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// Lock reads a transaction with an exclusive row lock. Must be called
	// within a transaction.
	Lock(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// SetStatus performs a compare-and-set transition from the expected
	// current status. Returns ErrAlreadyResolved if the row is no longer in
	// that status, ErrTransactionNotFound if it does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, from, to TransactionStatus, updatedAt time.Time) error
}

// MoneyRequestRepository persists money requests.
type MoneyRequestRepository interface {
	Create(ctx context.Context, r *MoneyRequest) error
	Get(ctx context.Context, id uuid.UUID) (*MoneyRequest, error)
	Lock(ctx context.Context, id uuid.UUID) (*MoneyRequest, error)

	// SetStatus performs a compare-and-set transition from the expected
	// current status, recording when the request was resolved.
	SetStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus, respondedAt time.Time) error

	// ListExpirable returns IDs of pending requests whose deadline has
	// passed, up to limit.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// ChatMessageRepository persists chat transfer messages.
type ChatMessageRepository interface {
	Create(ctx context.Context, m *ChatTransferMessage) error
	GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*ChatTransferMessage, error)
	SetStatus(ctx context.Context, messageID uuid.UUID, status TransactionStatus, updatedAt time.Time) error
}

// IdempotencyRepository persists transfer submission keys.
type IdempotencyRepository interface {
	// Get returns the record for a key, or nil if the key is unused.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// Reserve claims a key for the current submission. Returns
	// ErrIdempotencyInProgress if another submission holds it.
	Reserve(ctx context.Context, key, requestHash string) error

	// Complete marks a reserved key as finished, linking the transaction it
	// produced.
	Complete(ctx context.Context, key string, transactionID uuid.UUID) error
}
