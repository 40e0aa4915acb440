package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the full route table, including health and metrics.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/wallets/{id}", h.GetWallet).Methods("GET")
	apiV1.HandleFunc("/wallets/{id}/deposits", h.CreateDeposit).Methods("POST")
	apiV1.HandleFunc("/wallets/{id}/withdrawals", h.CreateWithdrawal).Methods("POST")
	apiV1.HandleFunc("/transfers", h.CreateTransfer).Methods("POST")
	apiV1.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	apiV1.HandleFunc("/requests", h.CreateRequest).Methods("POST")
	apiV1.HandleFunc("/requests/{id}", h.GetRequest).Methods("GET")
	apiV1.HandleFunc("/requests/{id}/accept", h.AcceptRequest).Methods("POST")
	apiV1.HandleFunc("/requests/{id}/reject", h.RejectRequest).Methods("POST")
	apiV1.HandleFunc("/chat-transfers", h.CreateChatTransfer).Methods("POST")
	apiV1.HandleFunc("/chat-transfers/{id}/accept", h.AcceptChatTransfer).Methods("POST")
	apiV1.HandleFunc("/chat-transfers/{id}/reject", h.RejectChatTransfer).Methods("POST")
	return r
}
