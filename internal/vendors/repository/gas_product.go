package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

var ErrProductNotFound = errors.New("gas product not found")

const gasProductColumns = `
	id, vendor_id, name, gas_type, cylinder_size, brand, price_with_cylinder,
	price_without_cylinder, stock_quantity, min_stock_alert, description,
	is_available, is_active, featured, created_at, updated_at
`

type GasProductRepository struct {
	db *pgxpool.Pool
}

func NewGasProductRepository(db *pgxpool.Pool) *GasProductRepository {
	return &GasProductRepository{db: db}
}

func (r *GasProductRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

func scanGasProduct(row pgx.Row) (model.GasProduct, error) {
	var p model.GasProduct
	err := row.Scan(
		&p.ID,
		&p.VendorID,
		&p.Name,
		&p.GasType,
		&p.CylinderSize,
		&p.Brand,
		&p.PriceWithCylinder,
		&p.PriceWithoutCylinder,
		&p.StockQuantity,
		&p.MinStockAlert,
		&p.Description,
		&p.IsAvailable,
		&p.IsActive,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.GasProduct{}, ErrProductNotFound
		}
		return model.GasProduct{}, err
	}
	return p, nil
}

func (r *GasProductRepository) Create(ctx context.Context, p model.GasProduct) (model.GasProduct, error) {
	query := `
		INSERT INTO gas_products (vendor_id, name, gas_type, cylinder_size, brand,
		                          price_with_cylinder, price_without_cylinder,
		                          stock_quantity, min_stock_alert, description, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + gasProductColumns

	created, err := scanGasProduct(r.db.QueryRow(
		ctx, query,
		p.VendorID, p.Name, p.GasType, p.CylinderSize, p.Brand,
		p.PriceWithCylinder, p.PriceWithoutCylinder,
		p.StockQuantity, p.MinStockAlert, p.Description, p.Featured,
	))
	if err != nil {
		return model.GasProduct{}, fmt.Errorf("failed to insert gas product: %w", err)
	}
	return created, nil
}

func (r *GasProductRepository) GetByID(ctx context.Context, id int64) (model.GasProduct, error) {
	query := `SELECT ` + gasProductColumns + ` FROM gas_products WHERE id = $1`
	p, err := scanGasProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return model.GasProduct{}, err
		}
		return model.GasProduct{}, fmt.Errorf("failed to fetch gas product: %w", err)
	}
	return p, nil
}

// ProductFilter narrows the gas product listing. Radius filtering uses a
// bounding box around (Lat, Lng); one degree is roughly 111 km.
type ProductFilter struct {
	VendorID  int64
	GasType   string
	Available *bool
	Lat, Lng  float64
	RadiusKM  float64
}

func (r *GasProductRepository) List(ctx context.Context, f ProductFilter) ([]model.GasProduct, error) {
	query := `
		SELECT ` + gasProductColumns + `
		FROM gas_products p
		WHERE p.is_active = true`
	args := []any{}

	if f.VendorID != 0 {
		args = append(args, f.VendorID)
		query += fmt.Sprintf(" AND p.vendor_id = $%d", len(args))
	}
	if f.GasType != "" {
		args = append(args, f.GasType)
		query += fmt.Sprintf(" AND p.gas_type = $%d", len(args))
	}
	if f.Available != nil {
		args = append(args, *f.Available)
		query += fmt.Sprintf(" AND p.is_available = $%d", len(args))
	}
	if f.RadiusKM > 0 {
		delta := f.RadiusKM / 111.0
		args = append(args, f.Lat-delta, f.Lat+delta, f.Lng-delta, f.Lng+delta)
		query += fmt.Sprintf(` AND p.vendor_id IN (
			SELECT id FROM vendors
			WHERE latitude BETWEEN $%d AND $%d AND longitude BETWEEN $%d AND $%d
		)`, len(args)-3, len(args)-2, len(args)-1, len(args))
	}
	query += " ORDER BY p.featured DESC, p.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gas products: %w", err)
	}
	defer rows.Close()

	var products []model.GasProduct
	for rows.Next() {
		p, err := scanGasProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update rewrites the mutable fields and appends a price history row when
// either price changed, all inside one transaction.
func (r *GasProductRepository) Update(ctx context.Context, p model.GasProduct) (model.GasProduct, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.GasProduct{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanGasProduct(tx.QueryRow(ctx,
		`SELECT `+gasProductColumns+` FROM gas_products WHERE id = $1 FOR UPDATE`, p.ID))
	if err != nil {
		return model.GasProduct{}, err
	}

	if current.PriceWithCylinder != p.PriceWithCylinder ||
		current.PriceWithoutCylinder != p.PriceWithoutCylinder {
		_, err := tx.Exec(ctx, `
			INSERT INTO gas_price_history (gas_product_id, old_price_with_cylinder,
			                               new_price_with_cylinder, old_price_without_cylinder,
			                               new_price_without_cylinder)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, current.PriceWithCylinder, p.PriceWithCylinder,
			current.PriceWithoutCylinder, p.PriceWithoutCylinder)
		if err != nil {
			return model.GasProduct{}, fmt.Errorf("failed to record price history: %w", err)
		}
	}

	updated, err := scanGasProduct(tx.QueryRow(ctx, `
		UPDATE gas_products
		SET name = $2, gas_type = $3, cylinder_size = $4, brand = $5,
		    price_with_cylinder = $6, price_without_cylinder = $7,
		    min_stock_alert = $8, description = $9, is_available = $10,
		    featured = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING `+gasProductColumns,
		p.ID, p.Name, p.GasType, p.CylinderSize, p.Brand,
		p.PriceWithCylinder, p.PriceWithoutCylinder,
		p.MinStockAlert, p.Description, p.IsAvailable, p.Featured,
	))
	if err != nil {
		return model.GasProduct{}, fmt.Errorf("failed to update gas product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.GasProduct{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

func (r *GasProductRepository) SetStock(ctx context.Context, id int64, quantity int) (model.GasProduct, error) {
	p, err := scanGasProduct(r.db.QueryRow(ctx, `
		UPDATE gas_products
		SET stock_quantity = $2,
		    is_available = ($2 > 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+gasProductColumns, id, quantity))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return model.GasProduct{}, err
		}
		return model.GasProduct{}, fmt.Errorf("failed to set stock: %w", err)
	}
	return p, nil
}

func (r *GasProductRepository) PriceHistory(ctx context.Context, productID int64) ([]model.GasPriceHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, gas_product_id, old_price_with_cylinder, new_price_with_cylinder,
		       old_price_without_cylinder, new_price_without_cylinder, changed_at
		FROM gas_price_history
		WHERE gas_product_id = $1
		ORDER BY changed_at DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	defer rows.Close()

	var history []model.GasPriceHistory
	for rows.Next() {
		var h model.GasPriceHistory
		if err := rows.Scan(&h.ID, &h.GasProductID, &h.OldPriceWithCylinder,
			&h.NewPriceWithCylinder, &h.OldPriceWithoutCylinder,
			&h.NewPriceWithoutCylinder, &h.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
