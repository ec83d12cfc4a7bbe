package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const orderColumns = `
	id, customer_id, vendor_id, order_type, total_amount, delivery_type,
	latitude, longitude, delivery_address, special_instructions, status,
	payment_status, confirmed_at, completed_at, created_at, updated_at
`

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.VendorID,
		&o.OrderType,
		&o.TotalAmount,
		&o.DeliveryType,
		&o.Latitude,
		&o.Longitude,
		&o.DeliveryAddress,
		&o.SpecialInstructions,
		&o.Status,
		&o.PaymentStatus,
		&o.ConfirmedAt,
		&o.CompletedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrNotFound
		}
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, tx pgx.Tx, o model.Order) (model.Order, error) {
	query := `
		INSERT INTO orders (customer_id, vendor_id, order_type, total_amount,
		                    delivery_type, latitude, longitude, delivery_address,
		                    special_instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRow(
		ctx, query,
		o.CustomerID, o.VendorID, string(o.OrderType), o.TotalAmount,
		string(o.DeliveryType), o.Latitude, o.Longitude, o.DeliveryAddress,
		o.SpecialInstructions,
	))
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return created, nil
}

func (r *OrderRepository) AddItem(ctx context.Context, tx pgx.Tx, item model.OrderItem) (model.OrderItem, error) {
	var serviceID, productID any
	if item.ServiceID != 0 {
		serviceID = item.ServiceID
	}
	if item.GasProductID != 0 {
		productID = item.GasProductID
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, item_type, service_id, gas_product_id,
		                         name, unit_price, quantity, with_cylinder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, item.OrderID, string(item.ItemType), serviceID, productID,
		item.Name, item.UnitPrice, item.Quantity, item.WithCylinder).
		Scan(&item.ID)
	if err != nil {
		return model.OrderItem{}, fmt.Errorf("failed to insert order item: %w", err)
	}
	return item, nil
}

// DecrementStock reduces a gas product's stock inside the order
// transaction, failing when the remaining stock cannot cover the order.
func (r *OrderRepository) DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, quantity int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE gas_products
		SET stock_quantity = stock_quantity - $2,
		    is_available = (stock_quantity - $2 > 0),
		    updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock returns gas product stock when an order is cancelled.
func (r *OrderRepository) RestoreStock(ctx context.Context, tx pgx.Tx, productID int64, quantity int) error {
	_, err := tx.Exec(ctx, `
		UPDATE gas_products
		SET stock_quantity = stock_quantity + $2,
		    is_available = true,
		    updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Order{}, err
		}
		return model.Order{}, fmt.Errorf("failed to fetch order: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_type, COALESCE(service_id, 0), COALESCE(gas_product_id, 0),
		       name, unit_price, quantity, with_cylinder
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemType, &it.ServiceID, &it.GasProductID,
			&it.Name, &it.UnitPrice, &it.Quantity, &it.WithCylinder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
}

func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID int64) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC`, vendorID)
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves the order to the next status, stamping confirmed_at
// and completed_at as the lifecycle reaches them.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.OrderStatus) (model.Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN NOW() ELSE confirmed_at END,
		    completed_at = CASE WHEN $2 IN ('completed', 'cancelled', 'failed') THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns, id, string(status)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Order{}, err
		}
		return model.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) SetPaymentStatus(ctx context.Context, tx pgx.Tx, id int64, status model.PaymentStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	return nil
}

func (r *OrderRepository) AddTracking(ctx context.Context, tx pgx.Tx, t model.OrderTracking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_tracking (order_id, status, note)
		VALUES ($1, $2, $3)
	`, t.OrderID, string(t.Status), t.Note)
	if err != nil {
		return fmt.Errorf("failed to insert tracking row: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListTracking(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, status, COALESCE(note, ''), created_at
		FROM order_tracking
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking: %w", err)
	}
	defer rows.Close()

	var tracking []model.OrderTracking
	for rows.Next() {
		var t model.OrderTracking
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Status, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		tracking = append(tracking, t)
	}
	return tracking, rows.Err()
}
