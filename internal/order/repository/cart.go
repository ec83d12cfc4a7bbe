package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/model"
)

var ErrCartItemNotFound = errors.New("cart item not found")

type CartRepository struct {
	db *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) *CartRepository {
	return &CartRepository{db: db}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, user_id, created_at, updated_at
	`, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return model.Cart{}, fmt.Errorf("failed to fetch cart: %w", err)
	}

	items, err := r.listItems(ctx, cart.ID)
	if err != nil {
		return model.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

func (r *CartRepository) listItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, item_type, COALESCE(service_id, 0), COALESCE(gas_product_id, 0),
		       vendor_id, name, unit_price, quantity, with_cylinder
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ItemType, &it.ServiceID, &it.GasProductID,
			&it.VendorID, &it.Name, &it.UnitPrice, &it.Quantity, &it.WithCylinder); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddItem inserts the item or bumps the quantity when the same product or
// service is already in the cart.
func (r *CartRepository) AddItem(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	var serviceID, productID any
	if item.ServiceID != 0 {
		serviceID = item.ServiceID
	}
	if item.GasProductID != 0 {
		productID = item.GasProductID
	}

	existing, err := r.findMatching(ctx, item)
	if err == nil {
		return r.SetQuantity(ctx, existing.ID, existing.Quantity+item.Quantity)
	}
	if !errors.Is(err, ErrCartItemNotFound) {
		return model.CartItem{}, err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, item_type, service_id, gas_product_id,
		                        vendor_id, name, unit_price, quantity, with_cylinder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, item.CartID, string(item.ItemType), serviceID, productID,
		item.VendorID, item.Name, item.UnitPrice, item.Quantity, item.WithCylinder).
		Scan(&item.ID)
	if err != nil {
		return model.CartItem{}, fmt.Errorf("failed to insert cart item: %w", err)
	}
	return item, nil
}

func (r *CartRepository) findMatching(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	var found model.CartItem
	err := r.db.QueryRow(ctx, `
		SELECT id, cart_id, item_type, COALESCE(service_id, 0), COALESCE(gas_product_id, 0),
		       vendor_id, name, unit_price, quantity, with_cylinder
		FROM cart_items
		WHERE cart_id = $1 AND item_type = $2
		  AND COALESCE(service_id, 0) = $3 AND COALESCE(gas_product_id, 0) = $4
		  AND with_cylinder = $5
	`, item.CartID, string(item.ItemType), item.ServiceID, item.GasProductID, item.WithCylinder).
		Scan(&found.ID, &found.CartID, &found.ItemType, &found.ServiceID, &found.GasProductID,
			&found.VendorID, &found.Name, &found.UnitPrice, &found.Quantity, &found.WithCylinder)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CartItem{}, ErrCartItemNotFound
	}
	if err != nil {
		return model.CartItem{}, fmt.Errorf("failed to find cart item: %w", err)
	}
	return found, nil
}

func (r *CartRepository) GetItem(ctx context.Context, itemID int64) (model.CartItem, error) {
	var it model.CartItem
	err := r.db.QueryRow(ctx, `
		SELECT id, cart_id, item_type, COALESCE(service_id, 0), COALESCE(gas_product_id, 0),
		       vendor_id, name, unit_price, quantity, with_cylinder
		FROM cart_items
		WHERE id = $1
	`, itemID).Scan(&it.ID, &it.CartID, &it.ItemType, &it.ServiceID, &it.GasProductID,
		&it.VendorID, &it.Name, &it.UnitPrice, &it.Quantity, &it.WithCylinder)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CartItem{}, ErrCartItemNotFound
	}
	if err != nil {
		return model.CartItem{}, fmt.Errorf("failed to fetch cart item: %w", err)
	}
	return it, nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, itemID int64, quantity int) (model.CartItem, error) {
	var it model.CartItem
	err := r.db.QueryRow(ctx, `
		UPDATE cart_items
		SET quantity = $2
		WHERE id = $1
		RETURNING id, cart_id, item_type, COALESCE(service_id, 0), COALESCE(gas_product_id, 0),
		          vendor_id, name, unit_price, quantity, with_cylinder
	`, itemID, quantity).Scan(&it.ID, &it.CartID, &it.ItemType, &it.ServiceID, &it.GasProductID,
		&it.VendorID, &it.Name, &it.UnitPrice, &it.Quantity, &it.WithCylinder)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CartItem{}, ErrCartItemNotFound
	}
	if err != nil {
		return model.CartItem{}, fmt.Errorf("failed to update cart item: %w", err)
	}
	return it, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, itemID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, cartID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ClearTx clears the cart inside the order-creation transaction.
func (r *CartRepository) ClearTx(ctx context.Context, tx pgx.Tx, cartID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
