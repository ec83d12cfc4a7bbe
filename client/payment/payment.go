// Package payment drives the storefront's M-Pesa checkout: it fires the
// STK push, then polls the payment status until the customer approves,
// declines, or the push times out on their handset.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Bobybuu/zeno-speedy-services-sub001/client/transport"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

// State of the checkout flow, in display order.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

const (
	pollInterval = 3 * time.Second
	maxPolls     = 40 // ~2 minutes, matching the STK push lifetime
	// progressEvery controls how often the progress callback fires.
	progressEvery = 5
	// successGrace lets the success screen render before the cart is
	// cleared underneath it.
	successGrace = 2 * time.Second
)

var (
	ErrInFlight     = errors.New("a payment is already in progress")
	ErrInvalidPhone = errors.New("enter a valid Kenyan phone number")
)

// Payment mirrors the server payload the poller inspects. The gateway
// response carries Daraja's ResultDesc, which doubles as the failure
// reason shown to the customer.
type Payment struct {
	ID            int64   `json:"id"`
	OrderID       int64   `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PhoneNumber   string  `json:"phone_number"`
	ReceiptNumber string  `json:"mpesa_receipt_number,omitempty"`
	FailureReason string  `json:"gateway_response,omitempty"`
}

type initiateResponse struct {
	Payment         Payment `json:"payment"`
	CustomerMessage string  `json:"customer_message"`
}

// Outcome is delivered once per Initiate call, success or not.
type Outcome struct {
	State   State
	Payment Payment
	Message string
}

// CartClearer is satisfied by the local cart; it is emptied after a
// confirmed payment.
type CartClearer interface {
	Clear()
}

// Coordinator owns at most one checkout at a time.
type Coordinator struct {
	client *transport.Client
	cart   CartClearer

	// OnProgress, if set, is called periodically while polling so the UI
	// can reassure the customer the payment is still pending.
	OnProgress func(pollCount int)

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	interval time.Duration
	grace    time.Duration
}

func NewCoordinator(client *transport.Client, cart CartClearer) *Coordinator {
	return &Coordinator{
		client:   client,
		cart:     cart,
		state:    StateIdle,
		interval: pollInterval,
		grace:    successGrace,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop aborts an in-flight poll loop and returns the coordinator to
// idle. Safe to call at any time.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
}

// Initiate starts the STK push for an order and blocks until the payment
// reaches a terminal state or the poll budget runs out. Overlapping
// calls are rejected with ErrInFlight.
func (c *Coordinator) Initiate(ctx context.Context, orderID int64, phoneNumber string) (Outcome, error) {
	normalized, err := phone.Normalize(phoneNumber)
	if err != nil {
		return Outcome{}, ErrInvalidPhone
	}

	c.mu.Lock()
	if c.state == StateProcessing {
		c.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateProcessing
	c.mu.Unlock()

	outcome := c.run(ctx, orderID, normalized)

	c.mu.Lock()
	c.state = outcome.State
	c.cancel = nil
	c.mu.Unlock()

	return outcome, nil
}

func (c *Coordinator) run(ctx context.Context, orderID int64, phoneNumber string) Outcome {
	var resp initiateResponse
	err := c.client.Do(ctx, http.MethodPost, "/api/payments/initiate-payment/",
		map[string]any{"order_id": orderID, "phone_number": phoneNumber, "payment_method": "mpesa"}, &resp)
	if err != nil {
		// A payment may already exist for this order, typically after a
		// page reload mid-checkout. Recover it and resume polling.
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "payment_already_initiated" {
			existing, lookupErr := c.paymentForOrder(ctx, orderID)
			if lookupErr != nil {
				return Outcome{State: StateFailed, Message: "could not recover existing payment: " + lookupErr.Error()}
			}
			return c.resolve(ctx, existing)
		}
		return Outcome{State: StateFailed, Message: err.Error()}
	}

	return c.resolve(ctx, resp.Payment)
}

// resolve polls until the payment settles. Transient poll errors are
// tolerated; only the budget or a terminal status ends the loop.
func (c *Coordinator) resolve(ctx context.Context, p Payment) Outcome {
	switch p.Status {
	case "completed":
		return c.succeed(p)
	case "failed", "cancelled":
		return c.failed(p)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for polls := 0; polls < maxPolls; {
		select {
		case <-ctx.Done():
			return Outcome{State: StateFailed, Payment: p, Message: "payment cancelled"}
		case <-ticker.C:
		}
		polls++

		latest, err := c.paymentByID(ctx, p.ID)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StateFailed, Payment: p, Message: "payment cancelled"}
			}
			// Flaky network mid-poll is common on mobile; keep going.
			continue
		}
		p = latest

		switch p.Status {
		case "completed":
			return c.succeed(p)
		case "failed", "cancelled":
			return c.failed(p)
		}

		if c.OnProgress != nil && polls%progressEvery == 0 {
			c.OnProgress(polls)
		}
	}

	return Outcome{
		State:   StateFailed,
		Payment: p,
		Message: fmt.Sprintf("payment not confirmed after %s, check your M-Pesa messages and retry if needed", time.Duration(maxPolls)*c.interval),
	}
}

func (c *Coordinator) succeed(p Payment) Outcome {
	if c.cart != nil {
		time.AfterFunc(c.grace, c.cart.Clear)
	}
	return Outcome{State: StateSuccess, Payment: p, Message: "payment received"}
}

func (c *Coordinator) failed(p Payment) Outcome {
	msg := p.FailureReason
	if msg == "" {
		msg = "payment was not completed"
	}
	return Outcome{State: StateFailed, Payment: p, Message: msg}
}

func (c *Coordinator) paymentByID(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := c.client.Do(ctx, http.MethodGet, fmt.Sprintf("/api/payments/payment-status/%d/", id), nil, &p)
	return p, err
}

func (c *Coordinator) paymentForOrder(ctx context.Context, orderID int64) (Payment, error) {
	var p Payment
	err := c.client.Do(ctx, http.MethodGet, fmt.Sprintf("/api/payments/order-payment/%d/", orderID), nil, &p)
	return p, err
}

// Retry re-fires the STK push for a failed payment, optionally to a
// different number, and polls the new attempt to completion.
func (c *Coordinator) Retry(ctx context.Context, paymentID int64, phoneNumber string) (Outcome, error) {
	if phoneNumber != "" {
		normalized, err := phone.Normalize(phoneNumber)
		if err != nil {
			return Outcome{}, ErrInvalidPhone
		}
		phoneNumber = normalized
	}

	c.mu.Lock()
	if c.state == StateProcessing {
		c.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateProcessing
	c.mu.Unlock()

	var resp initiateResponse
	payload := map[string]any{}
	if phoneNumber != "" {
		payload["phone_number"] = phoneNumber
	}
	err := c.client.Do(ctx, http.MethodPost, fmt.Sprintf("/api/payments/retry-payment/%d/", paymentID), payload, &resp)

	var outcome Outcome
	if err != nil {
		outcome = Outcome{State: StateFailed, Message: err.Error()}
	} else {
		outcome = c.resolve(ctx, resp.Payment)
	}

	c.mu.Lock()
	c.state = outcome.State
	c.cancel = nil
	c.mu.Unlock()

	return outcome, nil
}
