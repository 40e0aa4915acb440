// Package engine executes atomic balance moves between wallets. It is the
// only writer of wallet balances: every mutation, including deposits and
// withdrawals, runs through a single store transaction owned here.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/store"
)

// Engine validates and executes money movements against the ledger store.
type Engine struct {
	txm          domain.TxManager
	wallets      domain.WalletRepository
	transactions domain.TransactionRepository
	idempotency  domain.IdempotencyRepository
	emitter      notify.Emitter
}

// New wires an Engine to its store and emitter. The store client is passed
// in explicitly; the engine owns no global state.
func New(
	txm domain.TxManager,
	wallets domain.WalletRepository,
	transactions domain.TransactionRepository,
	idempotency domain.IdempotencyRepository,
	emitter notify.Emitter,
) *Engine {
	return &Engine{
		txm:          txm,
		wallets:      wallets,
		transactions: transactions,
		idempotency:  idempotency,
		emitter:      emitter,
	}
}

// ExecuteParams describes one wallet-to-wallet movement.
type ExecuteParams struct {
	SenderID    string
	RecipientID string
	Amount      int64
	Currency    string
	Kind        domain.TransactionKind // defaults to transfer
	Detail      domain.TransactionDetail

	// IdempotencyKey, when set, guarantees at most one successful execution
	// for the key. Without it, duplicate submissions create duplicate
	// transactions.
	IdempotencyKey string
}

func (p ExecuteParams) kind() domain.TransactionKind {
	if p.Kind == "" {
		return domain.KindTransfer
	}
	return p.Kind
}

// fingerprint identifies the payload an idempotency key was first used
// with, so key reuse with different parameters can be rejected.
func (p ExecuteParams) fingerprint() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s|%s",
		p.SenderID, p.RecipientID, p.Amount, p.Currency, p.kind()))
	return hex.EncodeToString(sum[:])
}

func (p ExecuteParams) validate() error {
	if p.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if p.SenderID == p.RecipientID {
		return domain.ErrSameWallet
	}
	return nil
}

// Execute atomically debits the sender, credits the recipient, and records
// a completed Transaction. All steps apply or none do; the sender balance
// is re-read under lock inside the transaction. Store conflicts are
// retried a bounded number of times before surfacing as a transient
// failure.
func (e *Engine) Execute(ctx context.Context, p ExecuteParams) (*domain.Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var (
		txn    *domain.Transaction
		replay bool
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return e.txm.WithinTx(ctx, func(ctx context.Context) error {
			t, r, err := e.transfer(ctx, p)
			txn, replay = t, r
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if !replay {
		notify.Emit(ctx, e.emitter, notify.Event{
			Type:        notify.EventTransferCompleted,
			RecipientID: txn.SenderID,
			Payload:     transactionPayload(txn),
		})
		notify.Emit(ctx, e.emitter, notify.Event{
			Type:        notify.EventTransferReceived,
			RecipientID: txn.RecipientID,
			Payload:     transactionPayload(txn),
		})
	}
	return txn, nil
}

// ExecuteTx runs the same movement inside a transaction already opened by
// the caller, so a status transition elsewhere (e.g. accepting a money
// request) commits or rolls back together with the balance move. The
// caller is responsible for notifications.
func (e *Engine) ExecuteTx(ctx context.Context, p ExecuteParams) (*domain.Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	txn, _, err := e.transfer(ctx, p)
	return txn, err
}

func (e *Engine) transfer(ctx context.Context, p ExecuteParams) (*domain.Transaction, bool, error) {
	if p.IdempotencyKey != "" {
		txn, done, err := e.replayOrReserve(ctx, p.IdempotencyKey, p.fingerprint())
		if done || err != nil {
			return txn, true, err
		}
	}

	sender, recipient, err := e.lockPair(ctx, p.SenderID, p.RecipientID)
	if err != nil {
		return nil, false, err
	}
	if sender.Currency != p.Currency || recipient.Currency != p.Currency {
		return nil, false, domain.ErrCurrencyMismatch
	}
	if sender.Balance < p.Amount {
		return nil, false, domain.ErrInsufficientFunds
	}

	now := time.Now()
	if err := e.wallets.SetBalance(ctx, sender.OwnerID, sender.Balance-p.Amount, now); err != nil {
		return nil, false, err
	}
	if err := e.wallets.SetBalance(ctx, recipient.OwnerID, recipient.Balance+p.Amount, now); err != nil {
		return nil, false, err
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Kind:        p.kind(),
		SenderID:    p.SenderID,
		RecipientID: p.RecipientID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      domain.StatusCompleted,
		Detail:      p.Detail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.transactions.Create(ctx, txn); err != nil {
		return nil, false, err
	}

	if p.IdempotencyKey != "" {
		if err := e.idempotency.Complete(ctx, p.IdempotencyKey, txn.ID); err != nil {
			return nil, false, err
		}
	}
	return txn, false, nil
}

// replayOrReserve checks an idempotency key. It returns (stored, true, nil)
// when the key already completed with the same payload, (nil, true, err)
// when the key is unusable, and (nil, false, nil) once the key is reserved
// for this submission.
func (e *Engine) replayOrReserve(ctx context.Context, key, hash string) (*domain.Transaction, bool, error) {
	rec, err := e.idempotency.Get(ctx, key)
	if err != nil {
		return nil, true, fmt.Errorf("idempotency query failed: %w", err)
	}
	if rec != nil {
		if rec.RequestHash != hash {
			return nil, true, domain.ErrIdempotencyMismatch
		}
		if rec.Status != domain.IdempotencyCompleted {
			return nil, true, domain.ErrIdempotencyInProgress
		}
		txn, err := e.transactions.Get(ctx, rec.TransactionID)
		return txn, true, err
	}
	if err := e.idempotency.Reserve(ctx, key, hash); err != nil {
		return nil, true, err
	}
	return nil, false, nil
}

// lockPair acquires both wallet row locks in deterministic owner-ID order
// to prevent deadlocks between crossing transfers.
func (e *Engine) lockPair(ctx context.Context, senderID, recipientID string) (sender, recipient *domain.Wallet, err error) {
	first, second := senderID, recipientID
	if first > second {
		first, second = second, first
	}

	w1, err := e.wallets.Lock(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	w2, err := e.wallets.Lock(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if w1.OwnerID == senderID {
		return w1, w2, nil
	}
	return w2, w1, nil
}

func transactionPayload(t *domain.Transaction) map[string]any {
	return map[string]any{
		"transaction_id": t.ID.String(),
		"kind":           string(t.Kind),
		"sender_id":      t.SenderID,
		"recipient_id":   t.RecipientID,
		"amount":         t.Amount,
		"currency":       t.Currency,
		"status":         string(t.Status),
	}
}
