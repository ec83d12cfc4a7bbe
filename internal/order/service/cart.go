package service

import (
	"context"
	"errors"
	"fmt"

	catalogmodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var (
	ErrMixedVendors    = errors.New("cart items must all come from the same vendor")
	ErrItemUnavailable = errors.New("item is not available")
	ErrNotCartOwner    = errors.New("cart item belongs to another user")
)

type CartRepo interface {
	GetOrCreate(ctx context.Context, userID int64) (model.Cart, error)
	AddItem(ctx context.Context, item model.CartItem) (model.CartItem, error)
	GetItem(ctx context.Context, itemID int64) (model.CartItem, error)
	SetQuantity(ctx context.Context, itemID int64, quantity int) (model.CartItem, error)
	RemoveItem(ctx context.Context, itemID int64) error
	Clear(ctx context.Context, cartID int64) error
}

type ServiceResolver interface {
	GetService(ctx context.Context, id int64) (catalogmodel.Service, error)
}

type ProductResolver interface {
	GetByID(ctx context.Context, id int64) (vendormodel.GasProduct, error)
}

type CartService struct {
	carts    CartRepo
	services ServiceResolver
	products ProductResolver
}

func NewCartService(carts CartRepo, services ServiceResolver, products ProductResolver) *CartService {
	return &CartService{carts: carts, services: services, products: products}
}

func (s *CartService) MyCart(ctx context.Context, userID int64) (model.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

// AddServiceItem puts a catalog service into the cart, enforcing the
// single-vendor rule before anything is written.
func (s *CartService) AddServiceItem(ctx context.Context, userID int64, req dto.AddServiceItemRequest) (model.Cart, error) {
	if err := req.Validate(); err != nil {
		return model.Cart{}, fmt.Errorf("validation error: %w", err)
	}

	svc, err := s.services.GetService(ctx, req.ServiceID)
	if err != nil {
		return model.Cart{}, err
	}
	if !svc.Available {
		return model.Cart{}, ErrItemUnavailable
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	if v := cart.VendorID(); v != 0 && v != svc.VendorID {
		return model.Cart{}, ErrMixedVendors
	}

	if _, err := s.carts.AddItem(ctx, model.CartItem{
		CartID:    cart.ID,
		ItemType:  model.ItemService,
		ServiceID: svc.ID,
		VendorID:  svc.VendorID,
		Name:      svc.Name,
		UnitPrice: svc.Price,
		Quantity:  req.Quantity,
	}); err != nil {
		return model.Cart{}, err
	}

	logger.Info("cart_add_item", fmt.Sprintf("service %d added to cart %d", svc.ID, cart.ID), "", "")
	return s.carts.GetOrCreate(ctx, userID)
}

// AddGasProduct puts a gas product into the cart. The unit price depends
// on whether the customer brings their own cylinder.
func (s *CartService) AddGasProduct(ctx context.Context, userID int64, req dto.AddGasProductRequest) (model.Cart, error) {
	if err := req.Validate(); err != nil {
		return model.Cart{}, fmt.Errorf("validation error: %w", err)
	}

	product, err := s.products.GetByID(ctx, req.GasProductID)
	if err != nil {
		return model.Cart{}, err
	}
	if !product.InStock(req.Quantity) {
		return model.Cart{}, fmt.Errorf("%w: %s", ErrItemUnavailable, product.Name)
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	if v := cart.VendorID(); v != 0 && v != product.VendorID {
		return model.Cart{}, ErrMixedVendors
	}

	price := product.PriceWithoutCylinder
	if req.WithCylinder {
		price = product.PriceWithCylinder
	}

	if _, err := s.carts.AddItem(ctx, model.CartItem{
		CartID:       cart.ID,
		ItemType:     model.ItemGasProduct,
		GasProductID: product.ID,
		VendorID:     product.VendorID,
		Name:         product.Name,
		UnitPrice:    price,
		Quantity:     req.Quantity,
		WithCylinder: req.WithCylinder,
	}); err != nil {
		return model.Cart{}, err
	}

	logger.Info("cart_add_gas_product", fmt.Sprintf("gas product %d added to cart %d", product.ID, cart.ID), "", "")
	return s.carts.GetOrCreate(ctx, userID)
}

// UpdateQuantity sets the item's quantity; anything below one removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID int64, req dto.UpdateQuantityRequest) (model.Cart, error) {
	item, err := s.ownedItem(ctx, userID, req.ItemID)
	if err != nil {
		return model.Cart{}, err
	}

	if req.Quantity < 1 {
		if err := s.carts.RemoveItem(ctx, item.ID); err != nil {
			return model.Cart{}, err
		}
		return s.carts.GetOrCreate(ctx, userID)
	}

	if item.ItemType == model.ItemGasProduct {
		product, err := s.products.GetByID(ctx, item.GasProductID)
		if err != nil {
			return model.Cart{}, err
		}
		if !product.InStock(req.Quantity) {
			return model.Cart{}, fmt.Errorf("%w: %s", ErrItemUnavailable, product.Name)
		}
	}

	if _, err := s.carts.SetQuantity(ctx, item.ID, req.Quantity); err != nil {
		return model.Cart{}, err
	}
	return s.carts.GetOrCreate(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID int64, itemID int64) (model.Cart, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return model.Cart{}, err
	}
	if err := s.carts.RemoveItem(ctx, item.ID); err != nil {
		return model.Cart{}, err
	}
	return s.carts.GetOrCreate(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID int64) (model.Cart, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return model.Cart{}, err
	}
	cart.Items = nil
	return cart, nil
}

func (s *CartService) ownedItem(ctx context.Context, userID, itemID int64) (model.CartItem, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.CartItem{}, err
	}
	item, err := s.carts.GetItem(ctx, itemID)
	if err != nil {
		return model.CartItem{}, err
	}
	if item.CartID != cart.ID {
		return model.CartItem{}, ErrNotCartOwner
	}
	return item, nil
}
