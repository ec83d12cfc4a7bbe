package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotOrderParty    = errors.New("order belongs to another customer or vendor")
	ErrBadTransition    = errors.New("order cannot move to the requested status")
	ErrAlreadyFinalized = errors.New("order is already in a terminal state")
)

type OrderRepo interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, o model.Order) (model.Order, error)
	AddItem(ctx context.Context, tx pgx.Tx, item model.OrderItem) (model.OrderItem, error)
	DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, quantity int) error
	RestoreStock(ctx context.Context, tx pgx.Tx, productID int64, quantity int) error
	GetByID(ctx context.Context, id int64) (model.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus) (model.Order, error)
	AddTracking(ctx context.Context, tx pgx.Tx, t model.OrderTracking) error
	ListTracking(ctx context.Context, orderID int64) ([]model.OrderTracking, error)
}

type CartClearer interface {
	ClearTx(ctx context.Context, tx pgx.Tx, cartID int64) error
}

type VendorResolver interface {
	GetByUserID(ctx context.Context, userID int64) (vendormodel.Vendor, error)
}

// EventPublisher pushes order lifecycle events to the vendor feed.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev mq.OrderEvent) error
}

type OrderService struct {
	orders    OrderRepo
	carts     CartRepo
	cartClear CartClearer
	services  ServiceResolver
	products  ProductResolver
	vendors   VendorResolver
	events    EventPublisher
}

func NewOrderService(
	orders OrderRepo,
	carts CartRepo,
	cartClear CartClearer,
	services ServiceResolver,
	products ProductResolver,
	vendors VendorResolver,
	events EventPublisher,
) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		cartClear: cartClear,
		services:  services,
		products:  products,
		vendors:   vendors,
		events:    events,
	}
}

// CreateOrder builds an order from the cart or from one explicit item.
// Gas stock is decremented inside the same transaction, so a concurrent
// order for the last cylinder loses cleanly.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req dto.CreateOrderRequest) (model.Order, error) {
	action := "create_order"

	if err := req.Validate(); err != nil {
		return model.Order{}, fmt.Errorf("validation error: %w", err)
	}

	items, vendorID, err := s.resolveItems(ctx, userID, req)
	if err != nil {
		return model.Order{}, err
	}
	if len(items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	var total float64
	orderType := model.OrderType(items[0].ItemType)
	for _, it := range items {
		total += it.UnitPrice * float64(it.Quantity)
		if model.OrderType(it.ItemType) != orderType {
			orderType = model.OrderTypeMixed
		}
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := s.orders.Create(ctx, tx, model.Order{
		CustomerID:          userID,
		VendorID:            vendorID,
		OrderType:           orderType,
		TotalAmount:         total,
		DeliveryType:        req.DeliveryType,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		logger.Error(action, "failed to create order", "", "", err.Error())
		return model.Order{}, err
	}

	orderID := fmt.Sprint(order.ID)
	for _, it := range items {
		it.OrderID = order.ID
		created, err := s.orders.AddItem(ctx, tx, it)
		if err != nil {
			return model.Order{}, err
		}
		if created.ItemType == model.ItemGasProduct {
			if err := s.orders.DecrementStock(ctx, tx, created.GasProductID, created.Quantity); err != nil {
				logger.Warn(action, fmt.Sprintf("stock decrement failed for product %d", created.GasProductID), "", orderID, err.Error())
				return model.Order{}, err
			}
		}
		order.Items = append(order.Items, created)
	}

	if err := s.orders.AddTracking(ctx, tx, model.OrderTracking{
		OrderID: order.ID,
		Status:  model.StatusPending,
		Note:    "Order placed",
	}); err != nil {
		return model.Order{}, err
	}

	if req.FromCart {
		cart, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return model.Order{}, err
		}
		if err := s.cartClear.ClearTx(ctx, tx, cart.ID); err != nil {
			return model.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Vendor notification is best effort; the order already exists.
	if err := s.events.PublishOrderEvent(ctx, mq.OrderEvent{
		Type:        "order.created",
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now(),
	}); err != nil {
		logger.Warn(action, "failed to publish order.created", "", orderID, err.Error())
	}

	logger.Info(action, fmt.Sprintf("order %d created for vendor %d (%.2f KES)", order.ID, order.VendorID, order.TotalAmount), "", orderID)
	return order, nil
}

func (s *OrderService) resolveItems(ctx context.Context, userID int64, req dto.CreateOrderRequest) ([]model.OrderItem, int64, error) {
	if req.FromCart {
		cart, err := s.carts.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, 0, err
		}
		items := make([]model.OrderItem, 0, len(cart.Items))
		for _, ci := range cart.Items {
			items = append(items, model.OrderItem{
				ItemType:     ci.ItemType,
				ServiceID:    ci.ServiceID,
				GasProductID: ci.GasProductID,
				Name:         ci.Name,
				UnitPrice:    ci.UnitPrice,
				Quantity:     ci.Quantity,
				WithCylinder: ci.WithCylinder,
			})
		}
		return items, cart.VendorID(), nil
	}

	if req.ServiceID != 0 {
		svc, err := s.services.GetService(ctx, req.ServiceID)
		if err != nil {
			return nil, 0, err
		}
		if !svc.Available {
			return nil, 0, ErrItemUnavailable
		}
		return []model.OrderItem{{
			ItemType:  model.ItemService,
			ServiceID: svc.ID,
			Name:      svc.Name,
			UnitPrice: svc.Price,
			Quantity:  req.Quantity,
		}}, svc.VendorID, nil
	}

	product, err := s.products.GetByID(ctx, req.GasProductID)
	if err != nil {
		return nil, 0, err
	}
	if !product.InStock(req.Quantity) {
		return nil, 0, fmt.Errorf("%w: %s", ErrItemUnavailable, product.Name)
	}
	price := product.PriceWithoutCylinder
	if req.WithCylinder {
		price = product.PriceWithCylinder
	}
	return []model.OrderItem{{
		ItemType:     model.ItemGasProduct,
		GasProductID: product.ID,
		Name:         product.Name,
		UnitPrice:    price,
		Quantity:     req.Quantity,
		WithCylinder: req.WithCylinder,
	}}, product.VendorID, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID int64, userType string, orderID int64) (model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := s.authorize(ctx, userID, userType, order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64, userType string) ([]model.Order, error) {
	switch userType {
	case "admin":
		return s.orders.ListAll(ctx)
	case "vendor", "mechanic":
		vendor, err := s.vendors.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return s.orders.ListByVendor(ctx, vendor.ID)
	default:
		return s.orders.ListByCustomer(ctx, userID)
	}
}

func (s *OrderService) VendorOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByVendor(ctx, vendor.ID)
}

// UpdateStatus advances the order lifecycle. Only the order's vendor may
// call it; every change appends a tracking row and notifies the feed.
func (s *OrderService) UpdateStatus(ctx context.Context, userID int64, orderID int64, req dto.UpdateStatusRequest) (model.Order, error) {
	action := "update_order_status"

	if err := req.Validate(); err != nil {
		return model.Order{}, fmt.Errorf("validation error: %w", err)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	vendor, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil || vendor.ID != order.VendorID {
		return model.Order{}, ErrNotOrderParty
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return model.Order{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, order.Status, req.Status)
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.orders.UpdateStatus(ctx, tx, orderID, req.Status)
	if err != nil {
		return model.Order{}, err
	}
	if err := s.orders.AddTracking(ctx, tx, model.OrderTracking{
		OrderID: orderID,
		Status:  req.Status,
		Note:    req.Note,
	}); err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	orderIDStr := fmt.Sprint(orderID)
	if err := s.events.PublishOrderEvent(ctx, mq.OrderEvent{
		Type:        "order.status_changed",
		OrderID:     updated.ID,
		VendorID:    updated.VendorID,
		CustomerID:  updated.CustomerID,
		Status:      string(updated.Status),
		TotalAmount: updated.TotalAmount,
		OccurredAt:  time.Now(),
	}); err != nil {
		logger.Warn(action, "failed to publish order.status_changed", "", orderIDStr, err.Error())
	}

	logger.Info(action, fmt.Sprintf("order %d moved to %s", orderID, req.Status), "", orderIDStr)
	return updated, nil
}

// CancelOrder cancels a non-terminal order and restores any gas stock it
// had reserved.
func (s *OrderService) CancelOrder(ctx context.Context, userID int64, userType string, orderID int64) (model.Order, error) {
	action := "cancel_order"

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := s.authorize(ctx, userID, userType, order); err != nil {
		return model.Order{}, err
	}
	if order.Status.Terminal() {
		return model.Order{}, ErrAlreadyFinalized
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cancelled, err := s.orders.UpdateStatus(ctx, tx, orderID, model.StatusCancelled)
	if err != nil {
		return model.Order{}, err
	}
	for _, it := range order.Items {
		if it.ItemType == model.ItemGasProduct {
			if err := s.orders.RestoreStock(ctx, tx, it.GasProductID, it.Quantity); err != nil {
				return model.Order{}, err
			}
		}
	}
	if err := s.orders.AddTracking(ctx, tx, model.OrderTracking{
		OrderID: orderID,
		Status:  model.StatusCancelled,
		Note:    "Order cancelled",
	}); err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info(action, fmt.Sprintf("order %d cancelled", orderID), "", fmt.Sprint(orderID))
	return cancelled, nil
}

func (s *OrderService) Tracking(ctx context.Context, userID int64, userType string, orderID int64) ([]model.OrderTracking, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, userType, order); err != nil {
		return nil, err
	}
	return s.orders.ListTracking(ctx, orderID)
}

func (s *OrderService) authorize(ctx context.Context, userID int64, userType string, order model.Order) error {
	if userType == "admin" || order.CustomerID == userID {
		return nil
	}
	if userType == "vendor" || userType == "mechanic" {
		vendor, err := s.vendors.GetByUserID(ctx, userID)
		if err == nil && vendor.ID == order.VendorID {
			return nil
		}
	}
	return ErrNotOrderParty
}
