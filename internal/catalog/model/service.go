package model

import "time"

type CategoryName string

const (
	CategoryGas                CategoryName = "gas"
	CategoryRoadsideMechanical CategoryName = "roadside_mechanical"
	CategoryRoadsideFuel       CategoryName = "roadside_fuel"
	CategoryRoadsideTowing     CategoryName = "roadside_towing"
	CategoryOxygen             CategoryName = "oxygen"
	CategoryMechanic           CategoryName = "mechanic"
)

type ServiceCategory struct {
	ID          int64        `json:"id"`
	Name        CategoryName `json:"name"`
	Description string       `json:"description,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Service struct {
	ID          int64     `json:"id"`
	VendorID    int64     `json:"vendor_id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
