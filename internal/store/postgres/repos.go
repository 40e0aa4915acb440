package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glidepay/paycore/internal/domain"
)

type walletRepo struct{ s *Store }

const walletColumns = "owner_id, balance, currency, created_at, updated_at"

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.OwnerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r walletRepo) Get(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE owner_id = $1", ownerID)
	return scanWallet(row)
}

func (r walletRepo) Lock(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+walletColumns+" FROM wallets WHERE owner_id = $1 FOR UPDATE", ownerID)
	return scanWallet(row)
}

func (r walletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	_, err := r.s.querier(ctx).Exec(ctx,
		"INSERT INTO wallets (owner_id, balance, currency, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		w.OwnerID, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("wallet insert failed: %w", err)
	}
	return nil
}

func (r walletRepo) SetBalance(ctx context.Context, ownerID string, balance int64, updatedAt time.Time) error {
	tag, err := r.s.querier(ctx).Exec(ctx,
		"UPDATE wallets SET balance = $1, updated_at = $2 WHERE owner_id = $3",
		balance, updatedAt, ownerID)
	if err != nil {
		return fmt.Errorf("wallet update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

type transactionRepo struct{ s *Store }

const transactionColumns = "id, kind, sender_id, recipient_id, amount, currency, status, detail, created_at, updated_at"

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t          domain.Transaction
		sender     *string
		recipient  *string
		detailJSON []byte
	)
	err := row.Scan(&t.ID, &t.Kind, &sender, &recipient, &t.Amount, &t.Currency,
		&t.Status, &detailJSON, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if sender != nil {
		t.SenderID = *sender
	}
	if recipient != nil {
		t.RecipientID = *recipient
	}
	t.Detail, err = domain.DetailFromJSON(t.Kind, detailJSON)
	if err != nil {
		return nil, fmt.Errorf("decode transaction detail: %w", err)
	}
	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	detailJSON, err := domain.DetailJSON(t.Detail)
	if err != nil {
		return fmt.Errorf("encode transaction detail: %w", err)
	}
	_, err = r.s.querier(ctx).Exec(ctx,
		`INSERT INTO transactions (id, kind, sender_id, recipient_id, amount, currency, status, detail, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Kind, nullable(t.SenderID), nullable(t.RecipientID), t.Amount,
		t.Currency, t.Status, detailJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}

func (r transactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	return scanTransaction(row)
}

func (r transactionRepo) Lock(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 FOR UPDATE", id)
	return scanTransaction(row)
}

func (r transactionRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, updatedAt time.Time) error {
	tag, err := r.s.querier(ctx).Exec(ctx,
		"UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		to, updatedAt, id, from)
	if err != nil {
		return fmt.Errorf("transaction status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.s.querier(ctx).QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrTransactionNotFound
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

type requestRepo struct{ s *Store }

const requestColumns = "id, from_user_id, to_user_id, amount, currency, description, status, created_at, responded_at, expires_at"

func scanRequest(row pgx.Row) (*domain.MoneyRequest, error) {
	var req domain.MoneyRequest
	err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Amount, &req.Currency,
		&req.Description, &req.Status, &req.CreatedAt, &req.RespondedAt, &req.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r requestRepo) Create(ctx context.Context, req *domain.MoneyRequest) error {
	_, err := r.s.querier(ctx).Exec(ctx,
		`INSERT INTO money_requests (id, from_user_id, to_user_id, amount, currency, description, status, created_at, responded_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.FromUserID, req.ToUserID, req.Amount, req.Currency,
		req.Description, req.Status, req.CreatedAt, req.RespondedAt, req.ExpiresAt)
	if err != nil {
		return fmt.Errorf("money request insert failed: %w", err)
	}
	return nil
}

func (r requestRepo) Get(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+requestColumns+" FROM money_requests WHERE id = $1", id)
	return scanRequest(row)
}

func (r requestRepo) Lock(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	row := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+requestColumns+" FROM money_requests WHERE id = $1 FOR UPDATE", id)
	return scanRequest(row)
}

func (r requestRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, respondedAt time.Time) error {
	tag, err := r.s.querier(ctx).Exec(ctx,
		"UPDATE money_requests SET status = $1, responded_at = $2 WHERE id = $3 AND status = $4",
		to, respondedAt, id, from)
	if err != nil {
		return fmt.Errorf("money request status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.s.querier(ctx).QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM money_requests WHERE id = $1)", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrRequestNotFound
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

func (r requestRepo) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.s.querier(ctx).Query(ctx,
		`SELECT id FROM money_requests
		 WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1
		 ORDER BY expires_at LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type messageRepo struct{ s *Store }

const messageColumns = "message_id, conversation_id, transaction_id, sender_id, recipient_id, amount, currency, metadata_status, created_at, updated_at"

func (r messageRepo) Create(ctx context.Context, m *domain.ChatTransferMessage) error {
	_, err := r.s.querier(ctx).Exec(ctx,
		`INSERT INTO chat_messages (message_id, conversation_id, transaction_id, sender_id, recipient_id, amount, currency, metadata_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.MessageID, m.ConversationID, m.TransactionID, m.SenderID, m.RecipientID,
		m.Amount, m.Currency, m.MetadataStatus, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("chat message insert failed: %w", err)
	}
	return nil
}

func (r messageRepo) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.ChatTransferMessage, error) {
	var m domain.ChatTransferMessage
	err := r.s.querier(ctx).QueryRow(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE transaction_id = $1",
		transactionID).Scan(&m.MessageID, &m.ConversationID, &m.TransactionID,
		&m.SenderID, &m.RecipientID, &m.Amount, &m.Currency, &m.MetadataStatus,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r messageRepo) SetStatus(ctx context.Context, messageID uuid.UUID, status domain.TransactionStatus, updatedAt time.Time) error {
	tag, err := r.s.querier(ctx).Exec(ctx,
		"UPDATE chat_messages SET metadata_status = $1, updated_at = $2 WHERE message_id = $3",
		status, updatedAt, messageID)
	if err != nil {
		return fmt.Errorf("chat message status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

type idempotencyRepo struct{ s *Store }

func (r idempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var (
		rec  domain.IdempotencyRecord
		txID *uuid.UUID
	)
	err := r.s.querier(ctx).QueryRow(ctx,
		"SELECT key, request_hash, status, transaction_id, created_at FROM idempotency_keys WHERE key = $1",
		key).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &txID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if txID != nil {
		rec.TransactionID = *txID
	}
	return &rec, nil
}

func (r idempotencyRepo) Reserve(ctx context.Context, key, requestHash string) error {
	_, err := r.s.querier(ctx).Exec(ctx,
		"INSERT INTO idempotency_keys (key, request_hash, status) VALUES ($1, $2, $3)",
		key, requestHash, domain.IdempotencyInProgress)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyInProgress
		}
		return fmt.Errorf("key reservation failed: %w", err)
	}
	return nil
}

func (r idempotencyRepo) Complete(ctx context.Context, key string, transactionID uuid.UUID) error {
	tag, err := r.s.querier(ctx).Exec(ctx,
		"UPDATE idempotency_keys SET status = $1, transaction_id = $2 WHERE key = $3",
		domain.IdempotencyCompleted, transactionID, key)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyInProgress
	}
	return nil
}
