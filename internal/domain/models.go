package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds one owner's spendable balance in integer minor units.
// Balance never goes negative; every mutation happens inside a store
// transaction owned by the transfer engine.
type Wallet struct {
	OwnerID   string    `json:"owner_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionKind discriminates the detail payload carried by a Transaction.
type TransactionKind string

const (
	KindDeposit      TransactionKind = "deposit"
	KindWithdrawal   TransactionKind = "withdrawal"
	KindTransfer     TransactionKind = "transfer"
	KindChatTransfer TransactionKind = "chat_transfer"
	KindPaymentLink  TransactionKind = "payment_link"
	KindMoneyRequest TransactionKind = "money_request"
)

// TransactionStatus is the lifecycle state of a Transaction. Transitions are
// monotone: once a transaction leaves pending it never returns.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusRejected  TransactionStatus = "rejected"
	StatusCancelled TransactionStatus = "cancelled"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s != StatusPending
}

// Transaction is one ledger entry representing a single money movement.
// SenderID is empty for deposits, RecipientID is empty for withdrawals
// (the other side is an external rail).
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	Kind        TransactionKind   `json:"kind"`
	SenderID    string            `json:"sender_id,omitempty"`
	RecipientID string            `json:"recipient_id,omitempty"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Detail      TransactionDetail `json:"detail,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// RequestStatus is the lifecycle state of a MoneyRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

// Terminal reports whether the request can no longer change state.
func (s RequestStatus) Terminal() bool {
	return s != RequestPending
}

// MoneyRequest is a solicitation for payment. FromUserID is the requester
// (payee); only ToUserID (the payer) may resolve it, except for the expiry
// sweep.
type MoneyRequest struct {
	ID          uuid.UUID     `json:"id"`
	FromUserID  string        `json:"from_user_id"`
	ToUserID    string        `json:"to_user_id"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Description string        `json:"description,omitempty"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
}

// ChatTransferMessage is a chat transfer's projection into a conversation.
// MetadataStatus is written in the same store transaction as the underlying
// Transaction's terminal transition, so the two never observably disagree.
type ChatTransferMessage struct {
	MessageID      uuid.UUID         `json:"message_id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	TransactionID  uuid.UUID         `json:"transaction_id"`
	SenderID       string            `json:"sender_id"`
	RecipientID    string            `json:"recipient_id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	MetadataStatus TransactionStatus `json:"metadata_status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IdempotencyRecord holds the state of a transfer submission key.
type IdempotencyRecord struct {
	Key           string
	RequestHash   string
	Status        string
	TransactionID uuid.UUID
	CreatedAt     time.Time
}

const (
	IdempotencyInProgress = "in_progress"
	IdempotencyCompleted  = "completed"
)
