// Package request implements the money request state machine: a
// solicitation for payment that the payer accepts, rejects, or lets
// expire. Accepting triggers exactly one transfer engine execution in the
// same store transaction as the status transition.
package request

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/store"
)

// Service drives money requests through pending -> accepted/rejected/expired.
type Service struct {
	txm      domain.TxManager
	requests domain.MoneyRequestRepository
	wallets  domain.WalletRepository
	engine   *engine.Engine
	emitter  notify.Emitter
}

// New wires the state machine to its collaborators.
func New(
	txm domain.TxManager,
	requests domain.MoneyRequestRepository,
	wallets domain.WalletRepository,
	eng *engine.Engine,
	emitter notify.Emitter,
) *Service {
	return &Service{txm: txm, requests: requests, wallets: wallets, engine: eng, emitter: emitter}
}

// CreateParams describes a new solicitation. FromUserID asks ToUserID to pay.
type CreateParams struct {
	FromUserID  string
	ToUserID    string
	Amount      int64
	Currency    string
	Description string
	ExpiresAt   *time.Time
}

// Create records a pending request and notifies the payer. The payer's
// wallet must exist; requests against unknown accounts are rejected up
// front rather than failing at acceptance.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.MoneyRequest, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if p.FromUserID == p.ToUserID {
		return nil, domain.ErrSameWallet
	}
	if _, err := s.wallets.Get(ctx, p.ToUserID); err != nil {
		return nil, err
	}

	req := &domain.MoneyRequest{
		ID:          uuid.New(),
		FromUserID:  p.FromUserID,
		ToUserID:    p.ToUserID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Description: p.Description,
		Status:      domain.RequestPending,
		CreatedAt:   time.Now(),
		ExpiresAt:   p.ExpiresAt,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	notify.Emit(ctx, s.emitter, notify.Event{
		Type:        notify.EventRequestCreated,
		RecipientID: req.ToUserID,
		Payload:     requestPayload(req),
	})
	return req, nil
}

// Get returns a request by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	return s.requests.Get(ctx, id)
}

// Accept resolves a pending request by moving the amount from the payer to
// the requester. The status transition and the balance move commit
// together; if the transfer fails (e.g. insufficient funds) the request
// stays pending and the failure is surfaced to the caller.
func (s *Service) Accept(ctx context.Context, id uuid.UUID, responderID string) (*domain.MoneyRequest, error) {
	var (
		req *domain.MoneyRequest
		txn *domain.Transaction
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.txm.WithinTx(ctx, func(ctx context.Context) error {
			r, err := s.requests.Lock(ctx, id)
			if err != nil {
				return err
			}
			if responderID != r.ToUserID {
				return domain.ErrUnauthorized
			}
			if r.Status.Terminal() {
				return domain.ErrAlreadyResolved
			}

			txn, err = s.engine.ExecuteTx(ctx, engine.ExecuteParams{
				SenderID:    r.ToUserID,
				RecipientID: r.FromUserID,
				Amount:      r.Amount,
				Currency:    r.Currency,
				Kind:        domain.KindMoneyRequest,
				Detail:      domain.MoneyRequestDetail{RequestID: r.ID, Description: r.Description},
			})
			if err != nil {
				return err
			}

			now := time.Now()
			if err := s.requests.SetStatus(ctx, id, domain.RequestPending, domain.RequestAccepted, now); err != nil {
				return err
			}
			r.Status = domain.RequestAccepted
			r.RespondedAt = &now
			req = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	payload := requestPayload(req)
	payload["transaction_id"] = txn.ID.String()
	notify.Emit(ctx, s.emitter, notify.Event{
		Type:        notify.EventRequestAccepted,
		RecipientID: req.FromUserID,
		Payload:     payload,
	})
	return req, nil
}

// Reject resolves a pending request with no balance effect.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, responderID, reason string) (*domain.MoneyRequest, error) {
	var req *domain.MoneyRequest
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.txm.WithinTx(ctx, func(ctx context.Context) error {
			r, err := s.requests.Lock(ctx, id)
			if err != nil {
				return err
			}
			if responderID != r.ToUserID {
				return domain.ErrUnauthorized
			}
			if r.Status.Terminal() {
				return domain.ErrAlreadyResolved
			}

			now := time.Now()
			if err := s.requests.SetStatus(ctx, id, domain.RequestPending, domain.RequestRejected, now); err != nil {
				return err
			}
			r.Status = domain.RequestRejected
			r.RespondedAt = &now
			req = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	payload := requestPayload(req)
	if reason != "" {
		payload["reason"] = reason
	}
	notify.Emit(ctx, s.emitter, notify.Event{
		Type:        notify.EventRequestRejected,
		RecipientID: req.FromUserID,
		Payload:     payload,
	})
	return req, nil
}

// Expire transitions a pending request past its deadline to expired. It is
// idempotent: a request already in any terminal state is a successful
// no-op, so concurrent sweeps and repeated calls are safe. A pending
// request that is not yet due returns ErrNotExpired.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) error {
	var expired *domain.MoneyRequest
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.txm.WithinTx(ctx, func(ctx context.Context) error {
			r, err := s.requests.Lock(ctx, id)
			if err != nil {
				return err
			}
			if r.Status.Terminal() {
				expired = nil
				return nil
			}
			if r.ExpiresAt == nil || r.ExpiresAt.After(time.Now()) {
				return domain.ErrNotExpired
			}

			if err := s.requests.SetStatus(ctx, id, domain.RequestPending, domain.RequestExpired, time.Now()); err != nil {
				return err
			}
			r.Status = domain.RequestExpired
			expired = r
			return nil
		})
	})
	if err != nil {
		return err
	}

	if expired != nil {
		notify.Emit(ctx, s.emitter, notify.Event{
			Type:        notify.EventRequestExpired,
			RecipientID: expired.FromUserID,
			Payload:     requestPayload(expired),
		})
	}
	return nil
}

// SweepExpired expires every due pending request, up to limit, and returns
// how many were transitioned. Individual races with concurrent accepts are
// fine: the compare-and-set inside Expire lets exactly one side win.
func (s *Service) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	ids, err := s.requests.ListExpirable(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := s.Expire(ctx, id); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func requestPayload(r *domain.MoneyRequest) map[string]any {
	return map[string]any{
		"request_id":   r.ID.String(),
		"from_user_id": r.FromUserID,
		"to_user_id":   r.ToUserID,
		"amount":       r.Amount,
		"currency":     r.Currency,
		"status":       string(r.Status),
	}
}
