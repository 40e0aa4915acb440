// Package chatpay binds a transfer to a conversation message. Chat
// transfers start pending and require the recipient to accept; the message
// status mirror is written in the same store transaction as every terminal
// transition on the transaction, so the two records never disagree.
package chatpay

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/store"
)

// Service implements initiate/accept/reject for chat-embedded transfers.
type Service struct {
	txm          domain.TxManager
	wallets      domain.WalletRepository
	transactions domain.TransactionRepository
	messages     domain.ChatMessageRepository
	emitter      notify.Emitter
}

// New wires the workflow to its store and emitter.
func New(
	txm domain.TxManager,
	wallets domain.WalletRepository,
	transactions domain.TransactionRepository,
	messages domain.ChatMessageRepository,
	emitter notify.Emitter,
) *Service {
	return &Service{txm: txm, wallets: wallets, transactions: transactions, messages: messages, emitter: emitter}
}

// Initiate creates a pending chat transfer and its conversation message in
// one store transaction. No funds are locked at initiation: the sender's
// balance is only checked when the recipient accepts, so a sender can have
// more outstanding chat transfers than their balance covers.
func (s *Service) Initiate(ctx context.Context, conversationID uuid.UUID, senderID, recipientID string, amount int64, currency string) (*domain.Transaction, *domain.ChatTransferMessage, error) {
	if amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if senderID == recipientID {
		return nil, nil, domain.ErrSameWallet
	}

	var (
		txn *domain.Transaction
		msg *domain.ChatTransferMessage
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.txm.WithinTx(ctx, func(ctx context.Context) error {
			sender, err := s.wallets.Get(ctx, senderID)
			if err != nil {
				return err
			}
			recipient, err := s.wallets.Get(ctx, recipientID)
			if err != nil {
				return err
			}
			if sender.Currency != currency || recipient.Currency != currency {
				return domain.ErrCurrencyMismatch
			}

			now := time.Now()
			messageID := uuid.New()
			txn = &domain.Transaction{
				ID:          uuid.New(),
				Kind:        domain.KindChatTransfer,
				SenderID:    senderID,
				RecipientID: recipientID,
				Amount:      amount,
				Currency:    currency,
				Status:      domain.StatusPending,
				Detail:      domain.ChatTransferDetail{ConversationID: conversationID, MessageID: messageID},
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.transactions.Create(ctx, txn); err != nil {
				return err
			}

			msg = &domain.ChatTransferMessage{
				MessageID:      messageID,
				ConversationID: conversationID,
				TransactionID:  txn.ID,
				SenderID:       senderID,
				RecipientID:    recipientID,
				Amount:         amount,
				Currency:       currency,
				MetadataStatus: domain.StatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			return s.messages.Create(ctx, msg)
		})
	})
	if err != nil {
		return nil, nil, err
	}

	notify.Emit(ctx, s.emitter, notify.Event{
		Type:        notify.EventChatTransferInitiated,
		RecipientID: recipientID,
		Payload:     chatPayload(txn, msg),
	})
	return txn, msg, nil
}

// Accept executes the pending transfer. The sender's balance is re-read
// under lock at acceptance time, since funds may have been spent since
// initiation. Balance move, transaction status, and message status commit
// as one unit.
func (s *Service) Accept(ctx context.Context, transactionID uuid.UUID, responderID string) (*domain.Transaction, error) {
	return s.resolve(ctx, transactionID, responderID, domain.StatusCompleted)
}

// Reject resolves the pending transfer with no balance effect.
func (s *Service) Reject(ctx context.Context, transactionID uuid.UUID, responderID string) (*domain.Transaction, error) {
	return s.resolve(ctx, transactionID, responderID, domain.StatusRejected)
}

func (s *Service) resolve(ctx context.Context, transactionID uuid.UUID, responderID string, to domain.TransactionStatus) (*domain.Transaction, error) {
	var (
		txn *domain.Transaction
		msg *domain.ChatTransferMessage
	)
	err := store.RetryConflicts(ctx, func(ctx context.Context) error {
		return s.txm.WithinTx(ctx, func(ctx context.Context) error {
			t, err := s.transactions.Lock(ctx, transactionID)
			if err != nil {
				return err
			}
			if t.Kind != domain.KindChatTransfer {
				return domain.ErrTransactionNotFound
			}
			if responderID != t.RecipientID {
				return domain.ErrUnauthorized
			}
			if t.Status.Terminal() {
				return domain.ErrAlreadyResolved
			}

			if to == domain.StatusCompleted {
				if err := s.moveBalance(ctx, t); err != nil {
					return err
				}
			}

			now := time.Now()
			if err := s.transactions.SetStatus(ctx, t.ID, domain.StatusPending, to, now); err != nil {
				return err
			}

			m, err := s.messages.GetByTransaction(ctx, t.ID)
			if err != nil {
				return err
			}
			if err := s.messages.SetStatus(ctx, m.MessageID, to, now); err != nil {
				return err
			}

			t.Status = to
			t.UpdatedAt = now
			m.MetadataStatus = to
			txn, msg = t, m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	eventType := notify.EventChatTransferCompleted
	if to == domain.StatusRejected {
		eventType = notify.EventChatTransferRejected
	}
	notify.Emit(ctx, s.emitter, notify.Event{
		Type:        eventType,
		RecipientID: txn.SenderID,
		Payload:     chatPayload(txn, msg),
	})
	return txn, nil
}

// moveBalance debits the sender and credits the recipient under row locks
// taken in deterministic order.
func (s *Service) moveBalance(ctx context.Context, t *domain.Transaction) error {
	first, second := t.SenderID, t.RecipientID
	if first > second {
		first, second = second, first
	}
	w1, err := s.wallets.Lock(ctx, first)
	if err != nil {
		return err
	}
	w2, err := s.wallets.Lock(ctx, second)
	if err != nil {
		return err
	}

	sender, recipient := w1, w2
	if sender.OwnerID != t.SenderID {
		sender, recipient = w2, w1
	}

	if sender.Balance < t.Amount {
		return domain.ErrInsufficientFunds
	}

	now := time.Now()
	if err := s.wallets.SetBalance(ctx, sender.OwnerID, sender.Balance-t.Amount, now); err != nil {
		return err
	}
	return s.wallets.SetBalance(ctx, recipient.OwnerID, recipient.Balance+t.Amount, now)
}

func chatPayload(t *domain.Transaction, m *domain.ChatTransferMessage) map[string]any {
	return map[string]any{
		"transaction_id":  t.ID.String(),
		"message_id":      m.MessageID.String(),
		"conversation_id": m.ConversationID.String(),
		"sender_id":       t.SenderID,
		"recipient_id":    t.RecipientID,
		"amount":          t.Amount,
		"currency":        t.Currency,
		"status":          string(t.Status),
	}
}
