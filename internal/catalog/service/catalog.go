package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/repository"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var (
	ErrNotOwner       = errors.New("service belongs to another vendor")
	ErrMissingCoords  = errors.New("nearby search requires lat and lng")
	ErrInvalidService = errors.New("invalid service payload")
)

type CatalogRepo interface {
	ListCategories(ctx context.Context) ([]model.ServiceCategory, error)
	ListServices(ctx context.Context, f repository.ServiceFilter) ([]model.Service, error)
	GetService(ctx context.Context, id int64) (model.Service, error)
	CreateService(ctx context.Context, s model.Service) (model.Service, error)
	UpdateService(ctx context.Context, s model.Service) (model.Service, error)
}

type VendorResolver interface {
	GetByUserID(ctx context.Context, userID int64) (vendormodel.Vendor, error)
}

type CatalogService struct {
	catalog CatalogRepo
	vendors VendorResolver
}

func NewCatalogService(catalog CatalogRepo, vendors VendorResolver) *CatalogService {
	return &CatalogService{catalog: catalog, vendors: vendors}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	return s.catalog.ListCategories(ctx)
}

func (s *CatalogService) ListServices(ctx context.Context, f repository.ServiceFilter) ([]model.Service, error) {
	if f.RadiusKM > 0 && f.Lat == 0 && f.Lng == 0 {
		return nil, ErrMissingCoords
	}
	return s.catalog.ListServices(ctx, f)
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (model.Service, error) {
	return s.catalog.GetService(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, userID int64, svc model.Service) (model.Service, error) {
	if svc.Name == "" || svc.CategoryID == 0 || svc.Price <= 0 {
		return model.Service{}, fmt.Errorf("%w: name, category_id and a positive price are required", ErrInvalidService)
	}

	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.Service{}, err
	}
	svc.VendorID = vendor.ID
	svc.Available = true

	return s.catalog.CreateService(ctx, svc)
}

func (s *CatalogService) UpdateService(ctx context.Context, userID, serviceID int64, svc model.Service) (model.Service, error) {
	current, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return model.Service{}, err
	}
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return model.Service{}, err
	}
	if current.VendorID != vendor.ID {
		return model.Service{}, ErrNotOwner
	}
	if svc.Price <= 0 {
		svc.Price = current.Price
	}
	svc.ID = serviceID
	return s.catalog.UpdateService(ctx, svc)
}
