package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionJSONCarriesConcreteDetail(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	detail := ChatTransferDetail{ConversationID: uuid.New(), MessageID: uuid.New()}
	txn := Transaction{
		ID:          uuid.New(),
		Kind:        KindChatTransfer,
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      500,
		Currency:    "USD",
		Status:      StatusPending,
		Detail:      detail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(txn)
	require.NoError(t, err)

	var got Transaction
	require.NoError(t, json.Unmarshal(data, &got))

	require.IsType(t, ChatTransferDetail{}, got.Detail)
	assert.Equal(t, detail, got.Detail)
	assert.Equal(t, txn.ID, got.ID)
}

func TestDetailFromJSON(t *testing.T) {
	d, err := DetailFromJSON(KindDeposit, []byte(`{"source":"card"}`))
	require.NoError(t, err)
	assert.Equal(t, DepositDetail{Source: "card"}, d)

	d, err = DetailFromJSON(KindTransfer, []byte("null"))
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = DetailFromJSON("mystery", []byte(`{}`))
	assert.Error(t, err)
}

func TestDetailJSONNil(t *testing.T) {
	data, err := DetailJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	for _, s := range []TransactionStatus{StatusCompleted, StatusRejected, StatusCancelled, StatusFailed} {
		assert.True(t, s.Terminal(), string(s))
	}

	assert.False(t, RequestPending.Terminal())
	for _, s := range []RequestStatus{RequestAccepted, RequestRejected, RequestExpired} {
		assert.True(t, s.Terminal(), string(s))
	}
}
