package model

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the payment can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type Method string

const (
	MethodMpesa Method = "mpesa"
	MethodCard  Method = "card"
	MethodCash  Method = "cash"
)

func (m Method) Valid() bool {
	switch m {
	case MethodMpesa, MethodCard, MethodCash:
		return true
	}
	return false
}

type Payment struct {
	ID                 int64      `json:"id"`
	OrderID            int64      `json:"order_id"`
	UserID             int64      `json:"user_id"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	PaymentMethod      Method     `json:"payment_method"`
	Status             Status     `json:"status"`
	MpesaReceiptNumber string     `json:"mpesa_receipt_number,omitempty"`
	PhoneNumber        string     `json:"phone_number"`
	TransactionID      string     `json:"transaction_id,omitempty"`
	TransactionDate    *time.Time `json:"transaction_date,omitempty"`
	CommissionRate     float64    `json:"commission_rate"`
	CommissionAmount   float64    `json:"commission_amount"`
	VendorEarnings     float64    `json:"vendor_earnings"`
	GatewayResponse    string     `json:"gateway_response,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// WebhookLog keeps every raw callback body for audit and replay.
type WebhookLog struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
