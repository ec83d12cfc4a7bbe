package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/pkg/phone"
)

var (
	ErrNotOwner      = errors.New("vendor profile belongs to another user")
	ErrNotVendorUser = errors.New("only vendor or mechanic accounts can create a vendor profile")
)

type VendorRepo interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, v model.Vendor) (model.Vendor, error)
	GetByID(ctx context.Context, id int64) (model.Vendor, error)
	GetByUserID(ctx context.Context, userID int64) (model.Vendor, error)
	List(ctx context.Context, f repository.ListFilter) ([]model.Vendor, error)
	Update(ctx context.Context, v model.Vendor) (model.Vendor, error)
	RefreshRatingAggregate(ctx context.Context, tx pgx.Tx, vendorID int64) error
	Dashboard(ctx context.Context, vendorID int64) (model.DashboardSummary, error)
}

type GasProductRepo interface {
	Create(ctx context.Context, p model.GasProduct) (model.GasProduct, error)
	GetByID(ctx context.Context, id int64) (model.GasProduct, error)
	List(ctx context.Context, f repository.ProductFilter) ([]model.GasProduct, error)
	Update(ctx context.Context, p model.GasProduct) (model.GasProduct, error)
	SetStock(ctx context.Context, id int64, quantity int) (model.GasProduct, error)
	PriceHistory(ctx context.Context, productID int64) ([]model.GasPriceHistory, error)
}

type ReviewRepo interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, rv model.VendorReview) (model.VendorReview, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]model.VendorReview, error)
}

type VendorService struct {
	vendors  VendorRepo
	products GasProductRepo
	reviews  ReviewRepo
}

func NewVendorService(vendors VendorRepo, products GasProductRepo, reviews ReviewRepo) *VendorService {
	return &VendorService{vendors: vendors, products: products, reviews: reviews}
}

func (s *VendorService) CreateVendor(ctx context.Context, userID int64, userType string, req dto.CreateVendorRequest) (model.Vendor, error) {
	action := "create_vendor"

	if userType != "vendor" && userType != "mechanic" {
		return model.Vendor{}, ErrNotVendorUser
	}
	if err := req.Validate(); err != nil {
		return model.Vendor{}, fmt.Errorf("validation error: %w", err)
	}

	contact, err := phone.Normalize(req.ContactNumber)
	if err != nil {
		return model.Vendor{}, fmt.Errorf("validation error: %w", err)
	}

	created, err := s.vendors.Create(ctx, model.Vendor{
		UserID:        userID,
		BusinessName:  req.BusinessName,
		BusinessType:  req.BusinessType,
		Description:   req.Description,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
		ContactNumber: contact,
		OpeningHours:  req.OpeningHours,
	})
	if err != nil {
		logger.Error(action, "failed to create vendor", "", "", err.Error())
		return model.Vendor{}, err
	}

	logger.Info(action, fmt.Sprintf("vendor %d created for user %d", created.ID, userID), "", "")
	return created, nil
}

func (s *VendorService) GetVendor(ctx context.Context, id int64) (model.Vendor, error) {
	return s.vendors.GetByID(ctx, id)
}

func (s *VendorService) GetMyVendor(ctx context.Context, userID int64) (model.Vendor, error) {
	return s.vendors.GetByUserID(ctx, userID)
}

func (s *VendorService) ListVendors(ctx context.Context, f repository.ListFilter) ([]model.Vendor, error) {
	return s.vendors.List(ctx, f)
}

func (s *VendorService) UpdateVendor(ctx context.Context, userID, vendorID int64, req dto.UpdateVendorRequest) (model.Vendor, error) {
	current, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return model.Vendor{}, err
	}
	if current.UserID != userID {
		return model.Vendor{}, ErrNotOwner
	}

	if req.Latitude == 0 && req.Longitude == 0 {
		req.Latitude, req.Longitude = current.Latitude, current.Longitude
	}
	contact := req.ContactNumber
	if contact != "" {
		contact, err = phone.Normalize(contact)
		if err != nil {
			return model.Vendor{}, fmt.Errorf("validation error: %w", err)
		}
	}

	return s.vendors.Update(ctx, model.Vendor{
		ID:            vendorID,
		BusinessName:  req.BusinessName,
		Description:   req.Description,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       req.Address,
		City:          req.City,
		ContactNumber: contact,
		OpeningHours:  req.OpeningHours,
	})
}

func (s *VendorService) Dashboard(ctx context.Context, userID, vendorID int64) (model.DashboardSummary, error) {
	v, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	if v.UserID != userID {
		return model.DashboardSummary{}, ErrNotOwner
	}
	return s.vendors.Dashboard(ctx, vendorID)
}

func (s *VendorService) CreateGasProduct(ctx context.Context, userID int64, req dto.GasProductRequest) (model.GasProduct, error) {
	action := "create_gas_product"

	if err := req.Validate(); err != nil {
		return model.GasProduct{}, fmt.Errorf("validation error: %w", err)
	}

	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.GasProduct{}, err
	}

	minAlert := req.MinStockAlert
	if minAlert == 0 {
		minAlert = 5
	}

	created, err := s.products.Create(ctx, model.GasProduct{
		VendorID:             vendor.ID,
		Name:                 req.Name,
		GasType:              req.GasType,
		CylinderSize:         req.CylinderSize,
		Brand:                req.Brand,
		PriceWithCylinder:    req.PriceWithCylinder,
		PriceWithoutCylinder: req.PriceWithoutCylinder,
		StockQuantity:        req.StockQuantity,
		MinStockAlert:        minAlert,
		Description:          req.Description,
		Featured:             req.Featured,
	})
	if err != nil {
		logger.Error(action, "failed to create gas product", "", "", err.Error())
		return model.GasProduct{}, err
	}

	logger.Info(action, fmt.Sprintf("gas product %d created for vendor %d", created.ID, vendor.ID), "", "")
	return created, nil
}

func (s *VendorService) GetGasProduct(ctx context.Context, id int64) (model.GasProduct, error) {
	return s.products.GetByID(ctx, id)
}

func (s *VendorService) ListGasProducts(ctx context.Context, f repository.ProductFilter) ([]model.GasProduct, error) {
	return s.products.List(ctx, f)
}

func (s *VendorService) UpdateGasProduct(ctx context.Context, userID, productID int64, req dto.GasProductRequest) (model.GasProduct, error) {
	if err := req.Validate(); err != nil {
		return model.GasProduct{}, fmt.Errorf("validation error: %w", err)
	}

	current, err := s.ownedProduct(ctx, userID, productID)
	if err != nil {
		return model.GasProduct{}, err
	}

	available := current.IsAvailable
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	return s.products.Update(ctx, model.GasProduct{
		ID:                   productID,
		Name:                 req.Name,
		GasType:              req.GasType,
		CylinderSize:         req.CylinderSize,
		Brand:                req.Brand,
		PriceWithCylinder:    req.PriceWithCylinder,
		PriceWithoutCylinder: req.PriceWithoutCylinder,
		MinStockAlert:        req.MinStockAlert,
		Description:          req.Description,
		IsAvailable:          available,
		Featured:             req.Featured,
	})
}

func (s *VendorService) UpdateStock(ctx context.Context, userID, productID int64, quantity int) (model.GasProduct, error) {
	if quantity < 0 {
		return model.GasProduct{}, errors.New("stock_quantity cannot be negative")
	}
	if _, err := s.ownedProduct(ctx, userID, productID); err != nil {
		return model.GasProduct{}, err
	}
	return s.products.SetStock(ctx, productID, quantity)
}

func (s *VendorService) PriceHistory(ctx context.Context, productID int64) ([]model.GasPriceHistory, error) {
	return s.products.PriceHistory(ctx, productID)
}

func (s *VendorService) ownedProduct(ctx context.Context, userID, productID int64) (model.GasProduct, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return model.GasProduct{}, err
	}
	vendor, err := s.vendors.GetByID(ctx, p.VendorID)
	if err != nil {
		return model.GasProduct{}, err
	}
	if vendor.UserID != userID {
		return model.GasProduct{}, ErrNotOwner
	}
	return p, nil
}

// SubmitReview stores the review and recomputes the vendor aggregate in
// the same transaction.
func (s *VendorService) SubmitReview(ctx context.Context, userID int64, req dto.ReviewRequest) (model.VendorReview, error) {
	action := "submit_review"

	if err := req.Validate(); err != nil {
		return model.VendorReview{}, fmt.Errorf("validation error: %w", err)
	}
	if _, err := s.vendors.GetByID(ctx, req.VendorID); err != nil {
		return model.VendorReview{}, err
	}

	tx, err := s.reviews.BeginTx(ctx)
	if err != nil {
		return model.VendorReview{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	review, err := s.reviews.Create(ctx, tx, model.VendorReview{
		VendorID: req.VendorID,
		UserID:   userID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return model.VendorReview{}, err
	}

	if err := s.vendors.RefreshRatingAggregate(ctx, tx, req.VendorID); err != nil {
		return model.VendorReview{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.VendorReview{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info(action, fmt.Sprintf("review for vendor %d by user %d", req.VendorID, userID), "", "")
	return review, nil
}

func (s *VendorService) ListReviews(ctx context.Context, vendorID int64) ([]model.VendorReview, error) {
	return s.reviews.ListByVendor(ctx, vendorID)
}
