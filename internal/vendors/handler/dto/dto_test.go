package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

func validGasProduct() GasProductRequest {
	return GasProductRequest{
		Name:                 "13kg LPG",
		GasType:              "lpg",
		CylinderSize:         "13kg",
		PriceWithCylinder:    4500,
		PriceWithoutCylinder: 2400,
		StockQuantity:        10,
	}
}

func TestGasProductRequestValidate(t *testing.T) {
	req := validGasProduct()
	require.NoError(t, req.Validate())

	t.Run("CylinderPriceMustExceedRefill", func(t *testing.T) {
		req := validGasProduct()
		req.PriceWithCylinder = 2400
		assert.Error(t, req.Validate())

		req.PriceWithCylinder = 2000
		assert.Error(t, req.Validate())
	})

	t.Run("NegativeStock", func(t *testing.T) {
		req := validGasProduct()
		req.StockQuantity = -1
		assert.Error(t, req.Validate())
	})

	t.Run("MissingGasType", func(t *testing.T) {
		req := validGasProduct()
		req.GasType = ""
		assert.Error(t, req.Validate())
	})
}

func TestCreateVendorRequestValidate(t *testing.T) {
	valid := CreateVendorRequest{
		BusinessName:  "Kamau Gas",
		BusinessType:  model.TypeGasStation,
		Latitude:      -1.2921,
		Longitude:     36.8219,
		Address:       "Moi Avenue",
		City:          "Nairobi",
		ContactNumber: "0712345678",
	}
	require.NoError(t, valid.Validate())

	t.Run("UnknownBusinessType", func(t *testing.T) {
		req := valid
		req.BusinessType = "barbershop"
		assert.Error(t, req.Validate())
	})

	t.Run("OutOfRangeCoords", func(t *testing.T) {
		req := valid
		req.Latitude = 95
		assert.Error(t, req.Validate())
	})

	t.Run("BadPhone", func(t *testing.T) {
		req := valid
		req.ContactNumber = "12345"
		assert.Error(t, req.Validate())
	})
}

func TestReviewRequestValidate(t *testing.T) {
	for rating, wantErr := range map[int]bool{0: true, 1: false, 3: false, 5: false, 6: true} {
		req := ReviewRequest{VendorID: 1, Rating: rating}
		if wantErr {
			assert.Error(t, req.Validate(), "rating %d", rating)
		} else {
			assert.NoError(t, req.Validate(), "rating %d", rating)
		}
	}
}
