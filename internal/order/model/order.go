package model

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusFailed     OrderStatus = "failed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the order can no longer change status.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// CanTransitionTo encodes the order lifecycle. Cancellation is allowed
// from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled || next == StatusFailed {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed
	case StatusConfirmed:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type DeliveryType string

const (
	DeliveryDelivery DeliveryType = "delivery"
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryOnSite   DeliveryType = "on_site"
)

func (d DeliveryType) Valid() bool {
	switch d {
	case DeliveryDelivery, DeliveryPickup, DeliveryOnSite:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeService    OrderType = "service"
	OrderTypeGasProduct OrderType = "gas_product"
	OrderTypeMixed      OrderType = "mixed"
)

type ItemType string

const (
	ItemService    ItemType = "service"
	ItemGasProduct ItemType = "gas_product"
)

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VendorID returns the single vendor all cart items belong to, or 0 for
// an empty cart.
func (c Cart) VendorID() int64 {
	if len(c.Items) == 0 {
		return 0
	}
	return c.Items[0].VendorID
}

func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

type CartItem struct {
	ID           int64    `json:"id"`
	CartID       int64    `json:"cart_id"`
	ItemType     ItemType `json:"item_type"`
	ServiceID    int64    `json:"service_id,omitempty"`
	GasProductID int64    `json:"gas_product_id,omitempty"`
	VendorID     int64    `json:"vendor_id"`
	Name         string   `json:"name"`
	UnitPrice    float64  `json:"unit_price"`
	Quantity     int      `json:"quantity"`
	WithCylinder bool     `json:"with_cylinder,omitempty"`
}

type Order struct {
	ID                  int64         `json:"id"`
	CustomerID          int64         `json:"customer_id"`
	VendorID            int64         `json:"vendor_id"`
	OrderType           OrderType     `json:"order_type"`
	TotalAmount         float64       `json:"total_amount"`
	DeliveryType        DeliveryType  `json:"delivery_type"`
	Latitude            float64       `json:"latitude,omitempty"`
	Longitude           float64       `json:"longitude,omitempty"`
	DeliveryAddress     string        `json:"delivery_address,omitempty"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`
	Status              OrderStatus   `json:"status"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	Items               []OrderItem   `json:"items,omitempty"`
	ConfirmedAt         *time.Time    `json:"confirmed_at,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

type OrderItem struct {
	ID           int64    `json:"id"`
	OrderID      int64    `json:"order_id"`
	ItemType     ItemType `json:"item_type"`
	ServiceID    int64    `json:"service_id,omitempty"`
	GasProductID int64    `json:"gas_product_id,omitempty"`
	Name         string   `json:"name"`
	UnitPrice    float64  `json:"unit_price"`
	Quantity     int      `json:"quantity"`
	WithCylinder bool     `json:"with_cylinder,omitempty"`
}

type OrderTracking struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
