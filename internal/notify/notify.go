// Package notify emits structured events to the external notification
// delivery collaborator. Delivery is fire-and-forget: failures are logged
// and never affect the financial operation that produced the event.
package notify

import (
	"context"
	"log"
)

// Event types produced by the core.
const (
	EventTransferCompleted     = "transfer.completed"
	EventTransferReceived      = "transfer.received"
	EventDepositCompleted      = "deposit.completed"
	EventWithdrawalCompleted   = "withdrawal.completed"
	EventRequestCreated        = "request.created"
	EventRequestAccepted       = "request.accepted"
	EventRequestRejected       = "request.rejected"
	EventRequestExpired        = "request.expired"
	EventChatTransferInitiated = "chat_transfer.initiated"
	EventChatTransferCompleted = "chat_transfer.completed"
	EventChatTransferRejected  = "chat_transfer.rejected"
)

// Event is the payload handed to the delivery collaborator.
type Event struct {
	Type        string         `json:"type"`
	RecipientID string         `json:"recipient_id"`
	Payload     map[string]any `json:"payload"`
}

// Emitter publishes events. Implementations must be safe for concurrent use.
type Emitter interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes best-effort: a nil emitter is a no-op and publish errors
// are logged, not returned.
func Emit(ctx context.Context, emitter Emitter, e Event) {
	if emitter == nil {
		return
	}
	if err := emitter.Publish(ctx, e); err != nil {
		log.Printf("notify: publish %s to %s failed: %v", e.Type, e.RecipientID, err)
	}
}

// LogEmitter writes events to the process log. Used when no broker is
// configured.
type LogEmitter struct{}

// NewLogEmitter returns a LogEmitter.
func NewLogEmitter() *LogEmitter { return &LogEmitter{} }

// Publish logs the event.
func (*LogEmitter) Publish(_ context.Context, e Event) error {
	log.Printf("notify: %s -> %s %v", e.Type, e.RecipientID, e.Payload)
	return nil
}
