package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/store"
	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
)

type fakeCart struct {
	mu      sync.Mutex
	cleared bool
}

func (f *fakeCart) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
}

func (f *fakeCart) wasCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func writePayment(w http.ResponseWriter, status string) {
	json.NewEncoder(w).Encode(Payment{ID: 11, OrderID: 42, Amount: 1200, Status: status})
}

// newCoordinator points a fast-polling coordinator at the given handler.
func newCoordinator(t *testing.T, handler http.Handler) (*Coordinator, *fakeCart) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := store.NewMemory()
	s.Set(store.KeyAccessToken, "token")

	cart := &fakeCart{}
	c := NewCoordinator(transport.NewClient(srv.URL, s), cart)
	c.interval = time.Millisecond
	c.grace = time.Millisecond
	return c, cart
}

func TestInitiatePollsUntilCompleted(t *testing.T) {
	var statusCalls atomic.Int32

	c, cart := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			json.NewEncoder(w).Encode(initiateResponse{
				Payment:         Payment{ID: 11, OrderID: 42, Status: "processing"},
				CustomerMessage: "Enter your M-Pesa PIN",
			})
		case "/api/payments/payment-status/11/":
			if statusCalls.Add(1) < 3 {
				writePayment(w, "processing")
				return
			}
			writePayment(w, "completed")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, "completed", outcome.Payment.Status)
	assert.Equal(t, int32(3), statusCalls.Load())
	assert.Equal(t, StateSuccess, c.State())

	assert.Eventually(t, cart.wasCleared, time.Second, 5*time.Millisecond,
		"cart should clear shortly after success")
}

func TestInitiateStopsAfterPollBudget(t *testing.T) {
	var statusCalls atomic.Int32

	c, cart := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			json.NewEncoder(w).Encode(initiateResponse{
				Payment: Payment{ID: 11, OrderID: 42, Status: "processing"},
			})
		case "/api/payments/payment-status/11/":
			statusCalls.Add(1)
			writePayment(w, "processing")
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Contains(t, outcome.Message, "not confirmed")
	assert.Equal(t, int32(maxPolls), statusCalls.Load())
	assert.False(t, cart.wasCleared())
}

func TestInitiateReportsDeclinedPayment(t *testing.T) {
	c, cart := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			json.NewEncoder(w).Encode(initiateResponse{
				Payment: Payment{ID: 11, OrderID: 42, Status: "processing"},
			})
		case "/api/payments/payment-status/11/":
			json.NewEncoder(w).Encode(Payment{
				ID: 11, OrderID: 42, Status: "failed",
				FailureReason: "Request cancelled by user",
			})
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, "Request cancelled by user", outcome.Message)
	assert.False(t, cart.wasCleared())
}

func TestInitiateRecoversExistingPayment(t *testing.T) {
	c, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "payment already initiated",
				"code":  "payment_already_initiated",
			})
		case "/api/payments/order-payment/42/":
			writePayment(w, "processing")
		case "/api/payments/payment-status/11/":
			writePayment(w, "completed")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, outcome.State)
	assert.Equal(t, int64(11), outcome.Payment.ID)
}

func TestInitiateRejectsInvalidPhone(t *testing.T) {
	c, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid phone number")
	}))

	_, err := c.Initiate(context.Background(), 42, "12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Equal(t, StateIdle, c.State())
}

func TestInitiateToleratesTransientPollErrors(t *testing.T) {
	var statusCalls atomic.Int32

	c, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/payments/initiate-payment/":
			json.NewEncoder(w).Encode(initiateResponse{
				Payment: Payment{ID: 11, OrderID: 42, Status: "processing"},
			})
		case "/api/payments/payment-status/11/":
			switch statusCalls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusBadGateway)
			default:
				writePayment(w, "completed")
			}
		}
	}))

	outcome, err := c.Initiate(context.Background(), 42, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, outcome.State)
}
