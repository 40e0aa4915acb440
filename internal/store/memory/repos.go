package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
)

type walletRepo struct{ s *Store }

func (r walletRepo) Get(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	w, ok := r.s.wallets[ownerID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

// Lock behaves like Get; the transaction mutex is the lock.
func (r walletRepo) Lock(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	return r.Get(ctx, ownerID)
}

func (r walletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	defer r.s.lockIfOutsideTx(ctx)()
	cp := *w
	r.s.wallets[w.OwnerID] = &cp
	return nil
}

func (r walletRepo) SetBalance(ctx context.Context, ownerID string, balance int64, updatedAt time.Time) error {
	defer r.s.lockIfOutsideTx(ctx)()
	w, ok := r.s.wallets[ownerID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	w.Balance = balance
	w.UpdatedAt = updatedAt
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	defer r.s.lockIfOutsideTx(ctx)()
	cp := *t
	r.s.transactions[t.ID] = &cp
	return nil
}

func (r transactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r transactionRepo) Lock(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.Get(ctx, id)
}

func (r transactionRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, updatedAt time.Time) error {
	defer r.s.lockIfOutsideTx(ctx)()
	t, ok := r.s.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != from {
		return domain.ErrAlreadyResolved
	}
	t.Status = to
	t.UpdatedAt = updatedAt
	return nil
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(ctx context.Context, req *domain.MoneyRequest) error {
	defer r.s.lockIfOutsideTx(ctx)()
	cp := *req
	r.s.requests[req.ID] = &cp
	return nil
}

func (r requestRepo) Get(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r requestRepo) Lock(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	return r.Get(ctx, id)
}

func (r requestRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, respondedAt time.Time) error {
	defer r.s.lockIfOutsideTx(ctx)()
	req, ok := r.s.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if req.Status != from {
		return domain.ErrAlreadyResolved
	}
	req.Status = to
	t := respondedAt
	req.RespondedAt = &t
	return nil
}

func (r requestRepo) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	var ids []uuid.UUID
	for id, req := range r.s.requests {
		if req.Status == domain.RequestPending && req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, m *domain.ChatTransferMessage) error {
	defer r.s.lockIfOutsideTx(ctx)()
	cp := *m
	r.s.messages[m.MessageID] = &cp
	r.s.msgByTxn[m.TransactionID] = m.MessageID
	return nil
}

func (r messageRepo) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.ChatTransferMessage, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	id, ok := r.s.msgByTxn[transactionID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *r.s.messages[id]
	return &cp, nil
}

func (r messageRepo) SetStatus(ctx context.Context, messageID uuid.UUID, status domain.TransactionStatus, updatedAt time.Time) error {
	defer r.s.lockIfOutsideTx(ctx)()
	m, ok := r.s.messages[messageID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	m.MetadataStatus = status
	m.UpdatedAt = updatedAt
	return nil
}

type idempotencyRepo struct{ s *Store }

func (r idempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	defer r.s.lockIfOutsideTx(ctx)()
	rec, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r idempotencyRepo) Reserve(ctx context.Context, key, requestHash string) error {
	defer r.s.lockIfOutsideTx(ctx)()
	if _, ok := r.s.idempotency[key]; ok {
		return domain.ErrIdempotencyInProgress
	}
	r.s.idempotency[key] = &domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyInProgress,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (r idempotencyRepo) Complete(ctx context.Context, key string, transactionID uuid.UUID) error {
	defer r.s.lockIfOutsideTx(ctx)()
	rec, ok := r.s.idempotency[key]
	if !ok {
		return domain.ErrIdempotencyInProgress
	}
	rec.Status = domain.IdempotencyCompleted
	rec.TransactionID = transactionID
	return nil
}
