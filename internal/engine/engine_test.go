package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepay/paycore/internal/domain"
	"github.com/glidepay/paycore/internal/engine"
	"github.com/glidepay/paycore/internal/notify"
	"github.com/glidepay/paycore/internal/store/memory"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureEmitter) Publish(_ context.Context, e notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureEmitter) byType(t string) []notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newEngine(t *testing.T) (*engine.Engine, *memory.Store, *captureEmitter) {
	t.Helper()
	st := memory.New()
	emitter := &captureEmitter{}
	eng := engine.New(st, st.Wallets(), st.Transactions(), st.Idempotency(), emitter)
	return eng, st, emitter
}

func seedWallet(t *testing.T, st *memory.Store, ownerID string, balance int64) {
	t.Helper()
	now := time.Now()
	err := st.Wallets().Create(context.Background(), &domain.Wallet{
		OwnerID:   ownerID,
		Balance:   balance,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func balance(t *testing.T, st *memory.Store, ownerID string) int64 {
	t.Helper()
	w, err := st.Wallets().Get(context.Background(), ownerID)
	require.NoError(t, err)
	return w.Balance
}

func TestExecuteMovesFunds(t *testing.T) {
	eng, st, emitter := newEngine(t)
	seedWallet(t, st, "alice", 500)
	seedWallet(t, st, "bob", 0)

	txn, err := eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      200,
		Currency:    "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, txn.Status)
	assert.Equal(t, domain.KindTransfer, txn.Kind)
	assert.Equal(t, int64(300), balance(t, st, "alice"))
	assert.Equal(t, int64(200), balance(t, st, "bob"))
	// Sum is conserved.
	assert.Equal(t, int64(500), balance(t, st, "alice")+balance(t, st, "bob"))

	assert.Len(t, emitter.byType(notify.EventTransferCompleted), 1)
	assert.Len(t, emitter.byType(notify.EventTransferReceived), 1)

	stored, err := st.Transactions().Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestExecuteInsufficientFunds(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 100)
	seedWallet(t, st, "bob", 0)

	_, err := eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      150,
		Currency:    "USD",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// No partial state.
	assert.Equal(t, int64(100), balance(t, st, "alice"))
	assert.Equal(t, int64(0), balance(t, st, "bob"))
}

func TestExecuteValidation(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 100)

	_, err := eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID: "alice", RecipientID: "bob", Amount: 0, Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID: "alice", RecipientID: "bob", Amount: -5, Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID: "alice", RecipientID: "alice", Amount: 10, Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrSameWallet)
}

func TestExecuteRecipientNotAutoCreated(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 100)

	_, err := eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID:    "alice",
		RecipientID: "nobody",
		Amount:      50,
		Currency:    "USD",
	})
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = st.Wallets().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Equal(t, int64(100), balance(t, st, "alice"))
}

func TestExecuteCurrencyMismatch(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 100)
	seedWallet(t, st, "bob", 0)

	_, err := eng.Execute(context.Background(), engine.ExecuteParams{
		SenderID:    "alice",
		RecipientID: "bob",
		Amount:      50,
		Currency:    "EUR",
	})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestExecuteIdempotencyReplay(t *testing.T) {
	eng, st, emitter := newEngine(t)
	seedWallet(t, st, "alice", 500)
	seedWallet(t, st, "bob", 0)

	p := engine.ExecuteParams{
		SenderID:       "alice",
		RecipientID:    "bob",
		Amount:         200,
		Currency:       "USD",
		IdempotencyKey: "submit-1",
	}

	first, err := eng.Execute(context.Background(), p)
	require.NoError(t, err)

	second, err := eng.Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// Balances moved exactly once.
	assert.Equal(t, int64(300), balance(t, st, "alice"))
	assert.Equal(t, int64(200), balance(t, st, "bob"))
	// No duplicate notifications on replay.
	assert.Len(t, emitter.byType(notify.EventTransferCompleted), 1)
}

func TestExecuteIdempotencyMismatch(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 500)
	seedWallet(t, st, "bob", 0)

	p := engine.ExecuteParams{
		SenderID:       "alice",
		RecipientID:    "bob",
		Amount:         200,
		Currency:       "USD",
		IdempotencyKey: "submit-1",
	}
	_, err := eng.Execute(context.Background(), p)
	require.NoError(t, err)

	p.Amount = 100
	_, err = eng.Execute(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)
	assert.Equal(t, int64(300), balance(t, st, "alice"))
}

// TestConcurrentDebitRace is the central correctness property: two
// concurrent debits whose sum exceeds the balance must not both succeed.
func TestConcurrentDebitRace(t *testing.T) {
	eng, st, _ := newEngine(t)
	seedWallet(t, st, "alice", 100)
	seedWallet(t, st, "bob", 0)
	seedWallet(t, st, "carol", 0)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, recipient := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			_, err := eng.Execute(context.Background(), engine.ExecuteParams{
				SenderID:    "alice",
				RecipientID: recipient,
				Amount:      80,
				Currency:    "USD",
			})
			results <- err
		}(recipient)
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			insufficient++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one debit must win")
	assert.Equal(t, 1, insufficient, "the loser must fail with insufficient funds")
	assert.Equal(t, int64(20), balance(t, st, "alice"))
	assert.GreaterOrEqual(t, balance(t, st, "alice"), int64(0))
}
