package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/model"
)

var ErrNotFound = errors.New("service not found")

const serviceColumns = `
	id, vendor_id, category_id, name, description, price, available,
	created_at, updated_at
`

type CatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(icon, ''), created_at
		FROM service_categories
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.ServiceCategory
	for rows.Next() {
		var c model.ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(
		&s.ID,
		&s.VendorID,
		&s.CategoryID,
		&s.Name,
		&s.Description,
		&s.Price,
		&s.Available,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, ErrNotFound
		}
		return model.Service{}, err
	}
	return s, nil
}

// ServiceFilter narrows the service listing. Radius filtering uses a
// bounding box around (Lat, Lng); one degree is roughly 111 km.
type ServiceFilter struct {
	CategoryID   int64
	Category     string
	VendorID     int64
	BusinessType string
	Search       string
	Lat, Lng     float64
	RadiusKM     float64
}

func (r *CatalogRepository) ListServices(ctx context.Context, f ServiceFilter) ([]model.Service, error) {
	query := `
		SELECT s.id, s.vendor_id, s.category_id, s.name, COALESCE(s.description, ''),
		       s.price, s.available, s.created_at, s.updated_at
		FROM services s
		JOIN vendors v ON v.id = s.vendor_id
		WHERE s.available = true AND v.is_active = true`
	args := []any{}

	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		query += fmt.Sprintf(" AND s.category_id = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND s.category_id = (SELECT id FROM service_categories WHERE name = $%d)", len(args))
	}
	if f.VendorID != 0 {
		args = append(args, f.VendorID)
		query += fmt.Sprintf(" AND s.vendor_id = $%d", len(args))
	}
	if f.BusinessType != "" {
		args = append(args, f.BusinessType)
		query += fmt.Sprintf(" AND v.business_type = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (s.name ILIKE $%d OR s.description ILIKE $%d)", len(args), len(args))
	}
	if f.RadiusKM > 0 {
		delta := f.RadiusKM / 111.0
		args = append(args, f.Lat-delta, f.Lat+delta, f.Lng-delta, f.Lng+delta)
		query += fmt.Sprintf(" AND v.latitude BETWEEN $%d AND $%d AND v.longitude BETWEEN $%d AND $%d",
			len(args)-3, len(args)-2, len(args)-1, len(args))
	}
	query += " ORDER BY s.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *CatalogRepository) GetService(ctx context.Context, id int64) (model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	s, err := scanService(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Service{}, err
		}
		return model.Service{}, fmt.Errorf("failed to fetch service: %w", err)
	}
	return s, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, s model.Service) (model.Service, error) {
	query := `
		INSERT INTO services (vendor_id, category_id, name, description, price, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + serviceColumns

	created, err := scanService(r.db.QueryRow(
		ctx, query, s.VendorID, s.CategoryID, s.Name, s.Description, s.Price, s.Available))
	if err != nil {
		return model.Service{}, fmt.Errorf("failed to insert service: %w", err)
	}
	return created, nil
}

func (r *CatalogRepository) UpdateService(ctx context.Context, s model.Service) (model.Service, error) {
	query := `
		UPDATE services
		SET name = COALESCE(NULLIF($2, ''), name),
		    description = COALESCE(NULLIF($3, ''), description),
		    price = $4,
		    available = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + serviceColumns

	updated, err := scanService(r.db.QueryRow(ctx, query, s.ID, s.Name, s.Description, s.Price, s.Available))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Service{}, err
		}
		return model.Service{}, fmt.Errorf("failed to update service: %w", err)
	}
	return updated, nil
}
