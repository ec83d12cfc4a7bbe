package dto

import (
	"errors"
	"fmt"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
)

type AddServiceItemRequest struct {
	ServiceID int64 `json:"service_id"`
	Quantity  int   `json:"quantity"`
}

func (r *AddServiceItemRequest) Validate() error {
	if r.ServiceID == 0 {
		return errors.New("service_id is required")
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

type AddGasProductRequest struct {
	GasProductID int64 `json:"gas_product_id"`
	Quantity     int   `json:"quantity"`
	WithCylinder bool  `json:"with_cylinder"`
}

func (r *AddGasProductRequest) Validate() error {
	if r.GasProductID == 0 {
		return errors.New("gas_product_id is required")
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}

type UpdateQuantityRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type RemoveItemRequest struct {
	ItemID int64 `json:"item_id"`
}

type CreateOrderRequest struct {
	// Either FromCart or the explicit item fields must be set.
	FromCart            bool               `json:"from_cart"`
	ServiceID           int64              `json:"service_id,omitempty"`
	GasProductID        int64              `json:"gas_product_id,omitempty"`
	Quantity            int                `json:"quantity,omitempty"`
	WithCylinder        bool               `json:"with_cylinder,omitempty"`
	DeliveryType        model.DeliveryType `json:"delivery_type"`
	Latitude            float64            `json:"latitude,omitempty"`
	Longitude           float64            `json:"longitude,omitempty"`
	DeliveryAddress     string             `json:"delivery_address,omitempty"`
	SpecialInstructions string             `json:"special_instructions,omitempty"`
}

func (r *CreateOrderRequest) Validate() error {
	if !r.FromCart && r.ServiceID == 0 && r.GasProductID == 0 {
		return errors.New("order needs from_cart or an explicit service_id/gas_product_id")
	}
	if r.ServiceID != 0 && r.GasProductID != 0 {
		return errors.New("service_id and gas_product_id are mutually exclusive")
	}
	if !r.FromCart && r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 0 {
		return errors.New("quantity must be positive")
	}
	if r.DeliveryType == "" {
		r.DeliveryType = model.DeliveryDelivery
	}
	if !r.DeliveryType.Valid() {
		return fmt.Errorf("unknown delivery_type: %s", r.DeliveryType)
	}
	if r.DeliveryType == model.DeliveryDelivery && r.DeliveryAddress == "" {
		return errors.New("delivery_address is required for delivery orders")
	}
	return nil
}

type UpdateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
}

func (r *UpdateStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status: %s", r.Status)
	}
	return nil
}
