package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TransactionDetail is the per-kind payload attached to a Transaction.
// Each kind carries only the fields relevant to it; the switch in
// DetailFromJSON is the single place a new kind must be registered.
type TransactionDetail interface {
	DetailKind() TransactionKind
}

// TransferDetail annotates a direct wallet-to-wallet transfer.
type TransferDetail struct {
	Note string `json:"note,omitempty"`
}

func (TransferDetail) DetailKind() TransactionKind { return KindTransfer }

// ChatTransferDetail links a chat transfer to its conversation message.
type ChatTransferDetail struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

func (ChatTransferDetail) DetailKind() TransactionKind { return KindChatTransfer }

// MoneyRequestDetail links a transaction to the accepted money request
// that triggered it.
type MoneyRequestDetail struct {
	RequestID   uuid.UUID `json:"request_id"`
	Description string    `json:"description,omitempty"`
}

func (MoneyRequestDetail) DetailKind() TransactionKind { return KindMoneyRequest }

// DepositDetail names the external rail that funded the wallet.
type DepositDetail struct {
	Source string `json:"source"`
}

func (DepositDetail) DetailKind() TransactionKind { return KindDeposit }

// WithdrawalDetail names the external rail the funds left through.
type WithdrawalDetail struct {
	Destination string `json:"destination"`
}

func (WithdrawalDetail) DetailKind() TransactionKind { return KindWithdrawal }

// PaymentLinkDetail links a transaction to a shareable payment link.
type PaymentLinkDetail struct {
	LinkID uuid.UUID `json:"link_id"`
	Memo   string    `json:"memo,omitempty"`
}

func (PaymentLinkDetail) DetailKind() TransactionKind { return KindPaymentLink }

// DetailJSON serializes a detail payload for storage. A nil detail
// serializes as null.
func DetailJSON(d TransactionDetail) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d)
}

// UnmarshalJSON decodes the detail payload according to the declared kind,
// so a Transaction round-trips through JSON with its concrete detail type.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		*alias
		Detail json.RawMessage `json:"detail,omitempty"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := DetailFromJSON(t.Kind, aux.Detail)
	if err != nil {
		return err
	}
	t.Detail = d
	return nil
}

// DetailFromJSON decodes a stored detail payload according to the
// transaction kind it was stored under.
func DetailFromJSON(kind TransactionKind, data []byte) (TransactionDetail, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch kind {
	case KindTransfer:
		var d TransferDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindChatTransfer:
		var d ChatTransferDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindMoneyRequest:
		var d MoneyRequestDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindDeposit:
		var d DepositDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindWithdrawal:
		var d WithdrawalDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case KindPaymentLink:
		var d PaymentLinkDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", kind)
	}
}
