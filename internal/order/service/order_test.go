package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

// fakeTx satisfies pgx.Tx; the order fakes ignore it.
type fakeTx struct{}

func (fakeTx) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }
func (fakeTx) Commit(context.Context) error          { return nil }
func (fakeTx) Rollback(context.Context) error        { return nil }
func (fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { panic("not implemented") }
func (fakeTx) LargeObjects() pgx.LargeObjects                         { panic("not implemented") }
func (fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { panic("not implemented") }
func (fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { panic("not implemented") }
func (fakeTx) Conn() *pgx.Conn                                         { return nil }

// ClearTx lets fakeCartRepo double as the CartClearer in order tests.
func (f *fakeCartRepo) ClearTx(_ context.Context, _ pgx.Tx, cartID int64) error {
	return f.Clear(context.Background(), cartID)
}

type fakeOrderRepo struct {
	nextID   int64
	orders   map[int64]*model.Order
	stock    map[int64]int
	tracking map[int64][]model.OrderTracking
}

func newFakeOrderRepo(stock map[int64]int) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:   make(map[int64]*model.Order),
		stock:    stock,
		tracking: make(map[int64][]model.OrderTracking),
	}
}

func (f *fakeOrderRepo) BeginTx(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (f *fakeOrderRepo) Create(_ context.Context, _ pgx.Tx, o model.Order) (model.Order, error) {
	f.nextID++
	o.ID = f.nextID
	o.Status = model.StatusPending
	o.PaymentStatus = model.PaymentPending
	f.orders[o.ID] = &o
	out := o
	return out, nil
}

func (f *fakeOrderRepo) AddItem(_ context.Context, _ pgx.Tx, item model.OrderItem) (model.OrderItem, error) {
	f.nextID++
	item.ID = f.nextID
	order := f.orders[item.OrderID]
	order.Items = append(order.Items, item)
	return item, nil
}

func (f *fakeOrderRepo) DecrementStock(_ context.Context, _ pgx.Tx, productID int64, quantity int) error {
	if f.stock[productID] < quantity {
		return ErrItemUnavailable
	}
	f.stock[productID] -= quantity
	return nil
}

func (f *fakeOrderRepo) RestoreStock(_ context.Context, _ pgx.Tx, productID int64, quantity int) error {
	f.stock[productID] += quantity
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id int64) (model.Order, error) {
	if o, ok := f.orders[id]; ok {
		out := *o
		out.Items = append([]model.OrderItem(nil), o.Items...)
		return out, nil
	}
	return model.Order{}, ErrNotOrderParty
}

func (f *fakeOrderRepo) ListByCustomer(_ context.Context, customerID int64) ([]model.Order, error) {
	var out []model.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListByVendor(_ context.Context, vendorID int64) ([]model.Order, error) {
	var out []model.Order
	for _, o := range f.orders {
		if o.VendorID == vendorID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	var out []model.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id int64, status model.OrderStatus) (model.Order, error) {
	o := f.orders[id]
	o.Status = status
	return *o, nil
}

func (f *fakeOrderRepo) AddTracking(_ context.Context, _ pgx.Tx, t model.OrderTracking) error {
	f.tracking[t.OrderID] = append(f.tracking[t.OrderID], t)
	return nil
}

func (f *fakeOrderRepo) ListTracking(_ context.Context, orderID int64) ([]model.OrderTracking, error) {
	return f.tracking[orderID], nil
}

type fakeVendorResolver map[int64]vendormodel.Vendor

func (f fakeVendorResolver) GetByUserID(_ context.Context, userID int64) (vendormodel.Vendor, error) {
	return f[userID], nil
}

type fakeOrderEvents struct {
	events []mq.OrderEvent
}

func (f *fakeOrderEvents) PublishOrderEvent(_ context.Context, ev mq.OrderEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func newOrderFixture() (*OrderService, *fakeOrderRepo, *fakeCartRepo, *fakeOrderEvents) {
	carts := newFakeCartRepo()
	orders := newFakeOrderRepo(map[int64]int{5: 3})
	services := fakeServices{
		1: {ID: 1, VendorID: 10, Name: "Tyre change", Price: 800, Available: true},
	}
	products := fakeProducts{
		5: {
			ID: 5, VendorID: 10, Name: "13kg LPG",
			PriceWithCylinder: 4500, PriceWithoutCylinder: 2400,
			StockQuantity: 3, IsAvailable: true, IsActive: true,
		},
	}
	vendors := fakeVendorResolver{
		// user 110 owns vendor 10
		110: {ID: 10, UserID: 110},
	}
	events := &fakeOrderEvents{}
	svc := NewOrderService(orders, carts, carts, services, products, vendors, events)
	return svc, orders, carts, events
}

func TestCreateOrderFromCartClearsCartAndDecrementsStock(t *testing.T) {
	svc, orders, carts, events := newOrderFixture()
	ctx := context.Background()

	cartSvc := NewCartService(carts, fakeServices{
		1: {ID: 1, VendorID: 10, Name: "Tyre change", Price: 800, Available: true},
	}, fakeProducts{
		5: {
			ID: 5, VendorID: 10, Name: "13kg LPG",
			PriceWithCylinder: 4500, PriceWithoutCylinder: 2400,
			StockQuantity: 3, IsAvailable: true, IsActive: true,
		},
	})
	_, err := cartSvc.AddServiceItem(ctx, 7, dto.AddServiceItemRequest{ServiceID: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = cartSvc.AddGasProduct(ctx, 7, dto.AddGasProductRequest{GasProductID: 5, Quantity: 2})
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		FromCart:        true,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), order.VendorID)
	assert.Equal(t, model.OrderTypeMixed, order.OrderType)
	assert.Equal(t, 800.0+2*2400.0, order.TotalAmount)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, 1, orders.stock[5], "two cylinders reserved from a stock of three")

	cart, _ := carts.GetOrCreate(ctx, 7)
	assert.Empty(t, cart.Items, "cart is consumed by checkout")

	require.Len(t, events.events, 1)
	assert.Equal(t, "order.created", events.events[0].Type)
	assert.Equal(t, order.ID, events.events[0].OrderID)
}

func TestCreateOrderFromEmptyCart(t *testing.T) {
	svc, _, _, _ := newOrderFixture()

	_, err := svc.CreateOrder(context.Background(), 7, dto.CreateOrderRequest{
		FromCart:        true,
		DeliveryAddress: "Moi Avenue",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderDirectGasProduct(t *testing.T) {
	svc, orders, _, _ := newOrderFixture()

	order, err := svc.CreateOrder(context.Background(), 7, dto.CreateOrderRequest{
		GasProductID:    5,
		Quantity:        1,
		WithCylinder:    true,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderTypeGasProduct, order.OrderType)
	assert.Equal(t, 4500.0, order.TotalAmount)
	assert.Equal(t, 2, orders.stock[5])
}

func TestCreateOrderRejectsOverStock(t *testing.T) {
	svc, orders, _, _ := newOrderFixture()

	_, err := svc.CreateOrder(context.Background(), 7, dto.CreateOrderRequest{
		GasProductID:    5,
		Quantity:        4,
		DeliveryAddress: "Moi Avenue",
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)
	assert.Equal(t, 3, orders.stock[5], "failed order must not touch stock")
}

func TestUpdateStatusOnlyByOrderVendor(t *testing.T) {
	svc, _, _, events := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		ServiceID:       1,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	// User 99 does not own vendor 10.
	_, err = svc.UpdateStatus(ctx, 99, order.ID, dto.UpdateStatusRequest{Status: model.StatusConfirmed})
	assert.ErrorIs(t, err, ErrNotOrderParty)

	updated, err := svc.UpdateStatus(ctx, 110, order.ID, dto.UpdateStatusRequest{
		Status: model.StatusConfirmed,
		Note:   "On our way",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, updated.Status)

	last := events.events[len(events.events)-1]
	assert.Equal(t, "order.status_changed", last.Type)
	assert.Equal(t, "confirmed", last.Status)
}

func TestUpdateStatusRejectsBadTransition(t *testing.T) {
	svc, _, _, _ := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		ServiceID:       1,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 110, order.ID, dto.UpdateStatusRequest{Status: model.StatusCompleted})
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestCancelOrderRestoresGasStock(t *testing.T) {
	svc, orders, _, _ := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		GasProductID:    5,
		Quantity:        2,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)
	require.Equal(t, 1, orders.stock[5])

	cancelled, err := svc.CancelOrder(ctx, 7, "customer", order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, 3, orders.stock[5], "reserved cylinders go back on the shelf")
}

func TestCancelOrderRejectsTerminalOrder(t *testing.T) {
	svc, _, _, _ := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		ServiceID:       1,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, 7, "customer", order.ID)
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, 7, "customer", order.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestTrackingVisibleToOrderParties(t *testing.T) {
	svc, _, _, _ := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, 7, dto.CreateOrderRequest{
		ServiceID:       1,
		DeliveryAddress: "Moi Avenue",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 110, order.ID, dto.UpdateStatusRequest{Status: model.StatusConfirmed})
	require.NoError(t, err)

	rows, err := svc.Tracking(ctx, 7, "customer", order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.StatusPending, rows[0].Status)
	assert.Equal(t, model.StatusConfirmed, rows[1].Status)

	_, err = svc.Tracking(ctx, 99, "customer", order.ID)
	assert.ErrorIs(t, err, ErrNotOrderParty)
}
