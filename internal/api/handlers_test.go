package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepay/paycore/internal/chatpay"
	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/request"
	"github.com/glidepay/paycore/internal/store/memory"
)

func newTestServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	st := memory.New()
	emitter := notify.NewLogEmitter()
	eng := engine.New(st, st.Wallets(), st.Transactions(), st.Idempotency(), emitter)
	requests := request.New(st, st.Requests(), st.Wallets(), eng, emitter)
	chat := chatpay.New(st, st.Wallets(), st.Transactions(), st.Messages(), emitter)
	return NewRouter(NewHandler(eng, requests, chat, st.Transactions())), st
}

func seedWallet(t *testing.T, st *memory.Store, ownerID string, bal int64) {
	t.Helper()
	now := time.Now()
	err := st.Wallets().Create(context.Background(), &domain.Wallet{
		OwnerID: ownerID, Balance: bal, Currency: "USD", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
}

func do(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(t, h, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestGetWallet(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1050)

	rr := do(t, h, "GET", "/api/v1/wallets/alice", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Balance        int64  `json:"balance"`
		BalanceDisplay string `json:"balance_display"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(1050), resp.Balance)
	assert.Equal(t, "10.50", resp.BalanceDisplay)
}

func TestGetWalletNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rr := do(t, h, "GET", "/api/v1/wallets/nobody", "nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransfer(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)
	seedWallet(t, st, "bob", 0)

	rr := do(t, h, "POST", "/api/v1/transfers", "alice", map[string]string{
		"sender_id":    "alice",
		"recipient_id": "bob",
		"amount":       "2.50",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Location"), "/api/v1/transactions/")

	var txn domain.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &txn))
	assert.Equal(t, int64(250), txn.Amount)

	// The created transaction is readable back.
	rr = do(t, h, "GET", "/api/v1/transactions/"+txn.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	w, err := st.Wallets().Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(750), w.Balance)
}

func TestCreateTransferWrongCaller(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)
	seedWallet(t, st, "bob", 0)

	rr := do(t, h, "POST", "/api/v1/transfers", "bob", map[string]string{
		"sender_id":    "alice",
		"recipient_id": "bob",
		"amount":       "2.50",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCreateTransferInsufficientFunds(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 100)
	seedWallet(t, st, "bob", 0)

	rr := do(t, h, "POST", "/api/v1/transfers", "alice", map[string]string{
		"sender_id":    "alice",
		"recipient_id": "bob",
		"amount":       "2.50",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreateTransferBadAmount(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)

	for _, amount := range []string{"", "-1", "1.005", "abc"} {
		rr := do(t, h, "POST", "/api/v1/transfers", "alice", map[string]string{
			"sender_id":    "alice",
			"recipient_id": "bob",
			"amount":       amount,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "amount %q", amount)
	}
}

func TestDepositThenWithdraw(t *testing.T) {
	h, st := newTestServer(t)

	rr := do(t, h, "POST", "/api/v1/wallets/alice/deposits", "alice", map[string]string{
		"amount": "100.00",
		"source": "card",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, h, "POST", "/api/v1/wallets/alice/withdrawals", "alice", map[string]string{
		"amount":      "40.00",
		"destination": "bank",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	w, err := st.Wallets().Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), w.Balance)
}

func TestWithdrawalRequiresOwner(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)

	rr := do(t, h, "POST", "/api/v1/wallets/alice/withdrawals", "mallory", map[string]string{
		"amount": "1.00",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "payer", 5000)
	seedWallet(t, st, "requester", 0)

	rr := do(t, h, "POST", "/api/v1/requests", "requester", map[string]string{
		"to_user_id": "payer",
		"amount":     "25.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var req domain.MoneyRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &req))

	// Someone other than the payer cannot accept.
	rr = do(t, h, "POST", "/api/v1/requests/"+req.ID.String()+"/accept", "requester", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, "POST", "/api/v1/requests/"+req.ID.String()+"/accept", "payer", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Accepting again conflicts.
	rr = do(t, h, "POST", "/api/v1/requests/"+req.ID.String()+"/accept", "payer", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	w, err := st.Wallets().Get(context.Background(), "requester")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), w.Balance)
}

func TestChatTransferLifecycleOverHTTP(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)
	seedWallet(t, st, "bob", 0)

	rr := do(t, h, "POST", "/api/v1/chat-transfers", "alice", map[string]string{
		"conversation_id": "0d1f5a80-9a55-4c1f-9df7-9a30cbe0a2c1",
		"recipient_id":    "bob",
		"amount":          "5.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusPending, resp.Transaction.Status)

	rr = do(t, h, "POST", "/api/v1/chat-transfers/"+resp.Transaction.ID.String()+"/reject", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	w, err := st.Wallets().Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w.Balance)
}

func TestIdempotencyKeyOverHTTP(t *testing.T) {
	h, st := newTestServer(t)
	seedWallet(t, st, "alice", 1000)
	seedWallet(t, st, "bob", 0)

	send := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
			"sender_id":    "alice",
			"recipient_id": "bob",
			"amount":       "2.50",
		}))
		req := httptest.NewRequest("POST", "/api/v1/transfers", &buf)
		req.Header.Set("X-User-ID", "alice")
		req.Header.Set("Idempotency-Key", "transfer-42")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := send()
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	var t1, t2 domain.Transaction
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &t1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &t2))
	assert.Equal(t, t1.ID, t2.ID)

	w, err := st.Wallets().Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(750), w.Balance)
}
