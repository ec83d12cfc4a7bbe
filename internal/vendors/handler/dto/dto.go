package dto

import (
	"errors"
	"fmt"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

type CreateVendorRequest struct {
	BusinessName  string             `json:"business_name"`
	BusinessType  model.BusinessType `json:"business_type"`
	Description   string             `json:"description,omitempty"`
	Latitude      float64            `json:"latitude"`
	Longitude     float64            `json:"longitude"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	Country       string             `json:"country,omitempty"`
	ContactNumber string             `json:"contact_number"`
	OpeningHours  string             `json:"opening_hours,omitempty"`
}

func (r *CreateVendorRequest) Validate() error {
	if r.BusinessName == "" {
		return errors.New("business_name is required")
	}
	if !r.BusinessType.Valid() {
		return fmt.Errorf("unknown business_type: %s", r.BusinessType)
	}
	if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
		return errors.New("latitude/longitude out of range")
	}
	if !phone.IsValid(r.ContactNumber) {
		return errors.New("contact_number must be a valid Kenyan number")
	}
	return nil
}

type UpdateVendorRequest struct {
	BusinessName  string  `json:"business_name,omitempty"`
	Description   string  `json:"description,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	Address       string  `json:"address,omitempty"`
	City          string  `json:"city,omitempty"`
	ContactNumber string  `json:"contact_number,omitempty"`
	OpeningHours  string  `json:"opening_hours,omitempty"`
}

type GasProductRequest struct {
	Name                 string  `json:"name"`
	GasType              string  `json:"gas_type"`
	CylinderSize         string  `json:"cylinder_size"`
	Brand                string  `json:"brand,omitempty"`
	PriceWithCylinder    float64 `json:"price_with_cylinder"`
	PriceWithoutCylinder float64 `json:"price_without_cylinder"`
	StockQuantity        int     `json:"stock_quantity"`
	MinStockAlert        int     `json:"min_stock_alert,omitempty"`
	Description          string  `json:"description,omitempty"`
	IsAvailable          *bool   `json:"is_available,omitempty"`
	Featured             bool    `json:"featured,omitempty"`
}

func (r *GasProductRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.GasType == "" {
		return errors.New("gas_type is required")
	}
	if r.CylinderSize == "" {
		return errors.New("cylinder_size is required")
	}
	if r.PriceWithCylinder <= 0 || r.PriceWithoutCylinder <= 0 {
		return errors.New("prices must be positive")
	}
	if r.PriceWithCylinder <= r.PriceWithoutCylinder {
		return errors.New("price_with_cylinder must exceed price_without_cylinder")
	}
	if r.StockQuantity < 0 {
		return errors.New("stock_quantity cannot be negative")
	}
	return nil
}

type StockUpdateRequest struct {
	StockQuantity int `json:"stock_quantity"`
}

type ReviewRequest struct {
	VendorID int64  `json:"vendor_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
}

func (r *ReviewRequest) Validate() error {
	if r.VendorID == 0 {
		return errors.New("vendor_id is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}

type PayoutRequestRequest struct {
	Amount          float64 `json:"amount"`
	RecipientNumber string  `json:"recipient_number"`
	RecipientName   string  `json:"recipient_name"`
	Notes           string  `json:"notes,omitempty"`
}

// Validate allows an empty recipient; the service falls back to the
// vendor's stored payout preferences.
func (r *PayoutRequestRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if r.RecipientNumber != "" && !phone.IsValid(r.RecipientNumber) {
		return errors.New("recipient_number must be a valid Kenyan number")
	}
	return nil
}

type PayoutPreferencesRequest struct {
	RecipientNumber string `json:"recipient_number"`
	RecipientName   string `json:"recipient_name"`
}

func (r *PayoutPreferencesRequest) Validate() error {
	if !phone.IsValid(r.RecipientNumber) {
		return errors.New("recipient_number must be a valid Kenyan number")
	}
	if r.RecipientName == "" {
		return errors.New("recipient_name is required")
	}
	return nil
}
