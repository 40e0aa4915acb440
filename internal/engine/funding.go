package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/store"
)

// GetBalance reads the authoritative wallet record. Any caller-side cache
// is a display optimization only.
func (e *Engine) GetBalance(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	return e.wallets.Get(ctx, ownerID)
}

// Deposit credits a wallet from an external rail. The wallet is created on
// first funding; this is the only place a wallet comes into existence.
func (e *Engine) Deposit(ctx context.Context, ownerID string, amount int64, currency, source, idempotencyKey string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	p := ExecuteParams{
		RecipientID:    ownerID,
		Amount:         amount,
		Currency:       currency,
		Kind:           domain.KindDeposit,
		Detail:         domain.DepositDetail{Source: source},
		IdempotencyKey: idempotencyKey,
	}

	var (
		txn    *domain.Transaction
		replay bool
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return e.txm.WithinTx(ctx, func(ctx context.Context) error {
			if p.IdempotencyKey != "" {
				t, done, err := e.replayOrReserve(ctx, p.IdempotencyKey, p.fingerprint())
				if done || err != nil {
					txn, replay = t, true
					return err
				}
			}

			w, err := e.wallets.Lock(ctx, ownerID)
			if errors.Is(err, domain.ErrWalletNotFound) {
				now := time.Now()
				w = &domain.Wallet{OwnerID: ownerID, Currency: currency, CreatedAt: now, UpdatedAt: now}
				if err := e.wallets.Create(ctx, w); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if w.Currency != currency {
				return domain.ErrCurrencyMismatch
			}

			t, err := e.settleExternal(ctx, w, w.Balance+amount, p)
			txn = t
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if !replay {
		notify.Emit(ctx, e.emitter, notify.Event{
			Type:        notify.EventDepositCompleted,
			RecipientID: ownerID,
			Payload:     transactionPayload(txn),
		})
	}
	return txn, nil
}

// Withdraw debits a wallet toward an external rail. The balance check and
// the debit happen in the same store transaction.
func (e *Engine) Withdraw(ctx context.Context, ownerID string, amount int64, currency, destination, idempotencyKey string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	p := ExecuteParams{
		SenderID:       ownerID,
		Amount:         amount,
		Currency:       currency,
		Kind:           domain.KindWithdrawal,
		Detail:         domain.WithdrawalDetail{Destination: destination},
		IdempotencyKey: idempotencyKey,
	}

	var (
		txn    *domain.Transaction
		replay bool
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return e.txm.WithinTx(ctx, func(ctx context.Context) error {
			if p.IdempotencyKey != "" {
				t, done, err := e.replayOrReserve(ctx, p.IdempotencyKey, p.fingerprint())
				if done || err != nil {
					txn, replay = t, true
					return err
				}
			}

			w, err := e.wallets.Lock(ctx, ownerID)
			if err != nil {
				return err
			}
			if w.Currency != currency {
				return domain.ErrCurrencyMismatch
			}
			if w.Balance < amount {
				return domain.ErrInsufficientFunds
			}

			t, err := e.settleExternal(ctx, w, w.Balance-amount, p)
			txn = t
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if !replay {
		notify.Emit(ctx, e.emitter, notify.Event{
			Type:        notify.EventWithdrawalCompleted,
			RecipientID: ownerID,
			Payload:     transactionPayload(txn),
		})
	}
	return txn, nil
}

// settleExternal writes the new balance and the completed one-sided
// transaction for a deposit or withdrawal.
func (e *Engine) settleExternal(ctx context.Context, w *domain.Wallet, newBalance int64, p ExecuteParams) (*domain.Transaction, error) {
	now := time.Now()
	if err := e.wallets.SetBalance(ctx, w.OwnerID, newBalance, now); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Kind:        p.Kind,
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
		return nil, err
	}
	if p.IdempotencyKey != "" {
		if err := e.idempotency.Complete(ctx, p.IdempotencyKey, txn.ID); err != nil {
			return nil, err
		}
	}
	return txn, nil
}
