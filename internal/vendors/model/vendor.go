package model

import "time"

type BusinessType string

const (
	TypeGasStation         BusinessType = "gas_station"
	TypeMechanic           BusinessType = "mechanic"
	TypeHospital           BusinessType = "hospital"
	TypeRoadsideAssistance BusinessType = "roadside_assistance"
)

func (t BusinessType) Valid() bool {
	switch t {
	case TypeGasStation, TypeMechanic, TypeHospital, TypeRoadsideAssistance:
		return true
	}
	return false
}

type Vendor struct {
	ID               int64        `json:"id"`
	UserID           int64        `json:"user_id"`
	BusinessName     string       `json:"business_name"`
	BusinessType     BusinessType `json:"business_type"`
	Description      string       `json:"description,omitempty"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	Address          string       `json:"address"`
	City             string       `json:"city"`
	Country          string       `json:"country"`
	ContactNumber    string       `json:"contact_number"`
	OpeningHours     string       `json:"opening_hours,omitempty"`
	IsVerified       bool         `json:"is_verified"`
	IsActive         bool         `json:"is_active"`
	AverageRating    float64      `json:"average_rating"`
	TotalReviews     int          `json:"total_reviews"`
	TotalEarnings    float64      `json:"total_earnings"`
	AvailableBalance float64      `json:"available_balance"`
	PendingPayouts   float64      `json:"pending_payouts"`
	TotalPaidOut     float64      `json:"total_paid_out"`

	// Default payout recipient, used when a withdrawal request does not
	// name one.
	PayoutRecipientNumber string `json:"payout_recipient_number,omitempty"`
	PayoutRecipientName   string `json:"payout_recipient_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PayoutPreferences is the self-service view of the default recipient.
type PayoutPreferences struct {
	RecipientNumber string `json:"recipient_number"`
	RecipientName   string `json:"recipient_name"`
}

type GasProduct struct {
	ID                   int64     `json:"id"`
	VendorID             int64     `json:"vendor_id"`
	Name                 string    `json:"name"`
	GasType              string    `json:"gas_type"`
	CylinderSize         string    `json:"cylinder_size"`
	Brand                string    `json:"brand,omitempty"`
	PriceWithCylinder    float64   `json:"price_with_cylinder"`
	PriceWithoutCylinder float64   `json:"price_without_cylinder"`
	StockQuantity        int       `json:"stock_quantity"`
	MinStockAlert        int       `json:"min_stock_alert"`
	Description          string    `json:"description,omitempty"`
	IsAvailable          bool      `json:"is_available"`
	IsActive             bool      `json:"is_active"`
	Featured             bool      `json:"featured"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// InStock reports whether the product can satisfy the requested quantity.
func (p GasProduct) InStock(quantity int) bool {
	return p.IsAvailable && p.IsActive && p.StockQuantity >= quantity
}

type GasPriceHistory struct {
	ID                      int64     `json:"id"`
	GasProductID            int64     `json:"gas_product_id"`
	OldPriceWithCylinder    float64   `json:"old_price_with_cylinder"`
	NewPriceWithCylinder    float64   `json:"new_price_with_cylinder"`
	OldPriceWithoutCylinder float64   `json:"old_price_without_cylinder"`
	NewPriceWithoutCylinder float64   `json:"new_price_without_cylinder"`
	ChangedAt               time.Time `json:"changed_at"`
}

type VendorReview struct {
	ID        int64     `json:"id"`
	VendorID  int64     `json:"vendor_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutApproved   PayoutStatus = "approved"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

type PayoutRequest struct {
	ID              int64        `json:"id"`
	VendorID        int64        `json:"vendor_id"`
	Amount          float64      `json:"amount"`
	RecipientNumber string       `json:"recipient_number"`
	RecipientName   string       `json:"recipient_name"`
	Status          PayoutStatus `json:"status"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type PayoutTransaction struct {
	ID              int64        `json:"id"`
	PayoutRequestID int64        `json:"payout_request_id"`
	VendorID        int64        `json:"vendor_id"`
	Amount          float64      `json:"amount"`
	Reference       string       `json:"reference"`
	ConversationID  string       `json:"conversation_id,omitempty"`
	ReceiptNumber   string       `json:"receipt_number,omitempty"`
	Status          PayoutStatus `json:"status"`
	FailureReason   string       `json:"failure_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

// VendorEarning records the vendor's share of one completed payment.
type VendorEarning struct {
	ID               int64     `json:"id"`
	VendorID         int64     `json:"vendor_id"`
	PaymentID        int64     `json:"payment_id"`
	OrderID          int64     `json:"order_id"`
	GrossAmount      float64   `json:"gross_amount"`
	CommissionRate   float64   `json:"commission_rate"`
	CommissionAmount float64   `json:"commission_amount"`
	NetAmount        float64   `json:"net_amount"`
	CreatedAt        time.Time `json:"created_at"`
}

type DashboardSummary struct {
	TotalOrders      int     `json:"total_orders"`
	PendingOrders    int     `json:"pending_orders"`
	CompletedOrders  int     `json:"completed_orders"`
	TotalRevenue     float64 `json:"total_revenue"`
	AvailableBalance float64 `json:"available_balance"`
	PendingPayouts   float64 `json:"pending_payouts"`
	TotalPaidOut     float64 `json:"total_paid_out"`
	ProductCount     int     `json:"product_count"`
	LowStockProducts int     `json:"low_stock_products"`
	AverageRating    float64 `json:"average_rating"`
	TotalReviews     int     `json:"total_reviews"`
}
