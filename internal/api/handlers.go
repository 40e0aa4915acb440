package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/glidepay/paycore/internal/chatpay"
	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/request"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paycore_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Handler exposes the money-movement core over HTTP. Authentication is an
// upstream concern: the caller identity arrives in the X-User-ID header and
// the core authorizes it against the party required for each action.
type Handler struct {
	engine       *engine.Engine
	requests     *request.Service
	chat         *chatpay.Service
	transactions domain.TransactionRepository
}

// NewHandler builds the HTTP layer over the core services.
func NewHandler(eng *engine.Engine, requests *request.Service, chat *chatpay.Service, transactions domain.TransactionRepository) *Handler {
	return &Handler{engine: eng, requests: requests, chat: chat, transactions: transactions}
}

func callerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

type walletResponse struct {
	domain.Wallet
	BalanceDisplay string `json:"balance_display"`
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["id"]

	wallet, err := h.engine.GetBalance(r.Context(), ownerID)
	if err != nil {
		h.respondDomainError(w, err, "GET", "/wallets/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, walletResponse{Wallet: *wallet, BalanceDisplay: formatAmount(wallet.Balance)}, "GET", "/wallets/{id}")
}

type fundingRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/wallets/{id}/deposits"))
	defer timer.ObserveDuration()

	ownerID := mux.Vars(r)["id"]
	var req fundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/wallets/{id}/deposits")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/wallets/{id}/deposits")
		return
	}

	txn, err := h.engine.Deposit(r.Context(), ownerID, amount, currencyOrDefault(req.Currency), req.Source, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/wallets/{id}/deposits")
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/wallets/{id}/deposits")
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/wallets/{id}/withdrawals"))
	defer timer.ObserveDuration()

	ownerID := mux.Vars(r)["id"]
	if callerID(r) != ownerID {
		h.respondError(w, http.StatusForbidden, "Only the wallet owner may withdraw", "POST", "/wallets/{id}/withdrawals")
		return
	}

	var req fundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/wallets/{id}/withdrawals")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/wallets/{id}/withdrawals")
		return
	}

	txn, err := h.engine.Withdraw(r.Context(), ownerID, amount, currencyOrDefault(req.Currency), req.Destination, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/wallets/{id}/withdrawals")
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/wallets/{id}/withdrawals")
}

type transferRequest struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Note        string `json:"note,omitempty"`
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/transfers")
		return
	}
	if callerID(r) != req.SenderID {
		h.respondError(w, http.StatusForbidden, "Only the sender may submit a transfer", "POST", "/transfers")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/transfers")
		return
	}

	txn, err := h.engine.Execute(r.Context(), engine.ExecuteParams{
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		Amount:         amount,
		Currency:       currencyOrDefault(req.Currency),
		Detail:         domain.TransferDetail{Note: req.Note},
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondDomainError(w, err, "POST", "/transfers")
		return
	}
	w.Header().Set("Location", "/api/v1/transactions/"+txn.ID.String())
	h.respondJSON(w, http.StatusCreated, txn, "POST", "/transfers")
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID", "GET", "/transactions/{id}")
		return
	}

	txn, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, "GET", "/transactions/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", "/transactions/{id}")
}

type createRequestBody struct {
	ToUserID    string     `json:"to_user_id"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/requests"))
	defer timer.ObserveDuration()

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/requests")
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/requests")
		return
	}

	req, err := h.requests.Create(r.Context(), request.CreateParams{
		FromUserID:  callerID(r),
		ToUserID:    body.ToUserID,
		Amount:      amount,
		Currency:    currencyOrDefault(body.Currency),
		Description: body.Description,
		ExpiresAt:   body.ExpiresAt,
	})
	if err != nil {
		h.respondDomainError(w, err, "POST", "/requests")
		return
	}
	h.respondJSON(w, http.StatusCreated, req, "POST", "/requests")
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request ID", "GET", "/requests/{id}")
		return
	}

	req, err := h.requests.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, "GET", "/requests/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, req, "GET", "/requests/{id}")
}

func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/requests/{id}/accept"))
	defer timer.ObserveDuration()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request ID", "POST", "/requests/{id}/accept")
		return
	}

	req, err := h.requests.Accept(r.Context(), id, callerID(r))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/requests/{id}/accept")
		return
	}
	h.respondJSON(w, http.StatusOK, req, "POST", "/requests/{id}/accept")
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/requests/{id}/reject"))
	defer timer.ObserveDuration()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request ID", "POST", "/requests/{id}/reject")
		return
	}

	var body struct {
		Reason string `json:"reason,omitempty"`
	}
	// Body is optional for rejections.
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := h.requests.Reject(r.Context(), id, callerID(r), body.Reason)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/requests/{id}/reject")
		return
	}
	h.respondJSON(w, http.StatusOK, req, "POST", "/requests/{id}/reject")
}

type chatTransferBody struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	RecipientID    string    `json:"recipient_id"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
}

type chatTransferResponse struct {
	Transaction *domain.Transaction         `json:"transaction"`
	Message     *domain.ChatTransferMessage `json:"message"`
}

func (h *Handler) CreateChatTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/chat-transfers"))
	defer timer.ObserveDuration()

	var body chatTransferBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", "/chat-transfers")
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		h.respondDomainError(w, err, "POST", "/chat-transfers")
		return
	}

	txn, msg, err := h.chat.Initiate(r.Context(), body.ConversationID, callerID(r), body.RecipientID, amount, currencyOrDefault(body.Currency))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/chat-transfers")
		return
	}
	h.respondJSON(w, http.StatusCreated, chatTransferResponse{Transaction: txn, Message: msg}, "POST", "/chat-transfers")
}

func (h *Handler) AcceptChatTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/chat-transfers/{id}/accept"))
	defer timer.ObserveDuration()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID", "POST", "/chat-transfers/{id}/accept")
		return
	}

	txn, err := h.chat.Accept(r.Context(), id, callerID(r))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/chat-transfers/{id}/accept")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "POST", "/chat-transfers/{id}/accept")
}

func (h *Handler) RejectChatTransfer(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/chat-transfers/{id}/reject"))
	defer timer.ObserveDuration()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction ID", "POST", "/chat-transfers/{id}/reject")
		return
	}

	txn, err := h.chat.Reject(r.Context(), id, callerID(r))
	if err != nil {
		h.respondDomainError(w, err, "POST", "/chat-transfers/{id}/reject")
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "POST", "/chat-transfers/{id}/reject")
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

// respondDomainError maps the core error taxonomy to HTTP statuses.
// InsufficientFunds and Unauthorized stay distinct (different user
// remediation) and TransientFailure is marked retryable.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameWallet),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrNotExpired),
		errors.Is(err, domain.ErrIdempotencyMismatch):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, "Insufficient funds", method, endpoint)
	case errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrRequestNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, http.StatusForbidden, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrIdempotencyInProgress):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrTransientFailure):
		w.Header().Set("Retry-After", "1")
		h.respondError(w, http.StatusServiceUnavailable, "Transient failure, retry", method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
