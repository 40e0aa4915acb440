// Package memory is an in-memory ledger store used by tests and local
// development. One coarse mutex serializes transactions, which trivially
// satisfies the isolation the core depends on; rollback is implemented by
// snapshotting state before the transaction body runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/glidepay/paycore/internal/domain"
)

type txKey struct{}

// Store implements domain.TxManager plus accessors for every repository.
type Store struct {
	mu sync.Mutex

	wallets      map[string]*domain.Wallet
	transactions map[uuid.UUID]*domain.Transaction
	requests     map[uuid.UUID]*domain.MoneyRequest
	messages     map[uuid.UUID]*domain.ChatTransferMessage
	msgByTxn     map[uuid.UUID]uuid.UUID
	idempotency  map[string]*domain.IdempotencyRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		wallets:      make(map[string]*domain.Wallet),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		requests:     make(map[uuid.UUID]*domain.MoneyRequest),
		messages:     make(map[uuid.UUID]*domain.ChatTransferMessage),
		msgByTxn:     make(map[uuid.UUID]uuid.UUID),
		idempotency:  make(map[string]*domain.IdempotencyRecord),
	}
}

// WithinTx serializes fn against all other operations on the store and
// rolls every write back if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshotState struct {
	wallets      map[string]*domain.Wallet
	transactions map[uuid.UUID]*domain.Transaction
	requests     map[uuid.UUID]*domain.MoneyRequest
	messages     map[uuid.UUID]*domain.ChatTransferMessage
	msgByTxn     map[uuid.UUID]uuid.UUID
	idempotency  map[string]*domain.IdempotencyRecord
}

func (s *Store) snapshot() snapshotState {
	snap := snapshotState{
		wallets:      make(map[string]*domain.Wallet, len(s.wallets)),
		transactions: make(map[uuid.UUID]*domain.Transaction, len(s.transactions)),
		requests:     make(map[uuid.UUID]*domain.MoneyRequest, len(s.requests)),
		messages:     make(map[uuid.UUID]*domain.ChatTransferMessage, len(s.messages)),
		msgByTxn:     make(map[uuid.UUID]uuid.UUID, len(s.msgByTxn)),
		idempotency:  make(map[string]*domain.IdempotencyRecord, len(s.idempotency)),
	}
	for k, v := range s.wallets {
		cp := *v
		snap.wallets[k] = &cp
	}
	for k, v := range s.transactions {
		cp := *v
		snap.transactions[k] = &cp
	}
	for k, v := range s.requests {
		cp := *v
		snap.requests[k] = &cp
	}
	for k, v := range s.messages {
		cp := *v
		snap.messages[k] = &cp
	}
	for k, v := range s.msgByTxn {
		snap.msgByTxn[k] = v
	}
	for k, v := range s.idempotency {
		cp := *v
		snap.idempotency[k] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshotState) {
	s.wallets = snap.wallets
	s.transactions = snap.transactions
	s.requests = snap.requests
	s.messages = snap.messages
	s.msgByTxn = snap.msgByTxn
	s.idempotency = snap.idempotency
}

// lockIfOutsideTx takes the store mutex for single-operation callers.
// Inside WithinTx the mutex is already held by the transaction.
func (s *Store) lockIfOutsideTx(ctx context.Context) func() {
	if inTx, _ := ctx.Value(txKey{}).(bool); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Wallets returns the wallet repository view of the store.
func (s *Store) Wallets() domain.WalletRepository { return walletRepo{s} }

// Transactions returns the transaction repository view of the store.
func (s *Store) Transactions() domain.TransactionRepository { return transactionRepo{s} }

// Requests returns the money request repository view of the store.
func (s *Store) Requests() domain.MoneyRequestRepository { return requestRepo{s} }

// Messages returns the chat message repository view of the store.
func (s *Store) Messages() domain.ChatMessageRepository { return messageRepo{s} }

// Idempotency returns the idempotency repository view of the store.
func (s *Store) Idempotency() domain.IdempotencyRepository { return idempotencyRepo{s} }
