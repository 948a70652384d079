package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by a tenant. Prices are stored in
// thousandths of a rupiah (amount-1000), matching the messaging-commerce
// convention used across the data model.
type Product struct {
	ID              string    `json:"id"`
	LicenseID       string    `json:"license_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceAmount1000 int64     `json:"price_amount_1000"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewProduct carries the fields needed to create a product.
type NewProduct struct {
	Name            string
	Description     string
	PriceAmount1000 int64
}

// CreateProduct inserts a new product for a tenant.
func (s *Store) CreateProduct(ctx context.Context, licenseID string, p NewProduct) (*Product, error) {
	if p.Name == "" {
		return nil, errors.New("product name is required")
	}
	if p.PriceAmount1000 <= 0 {
		return nil, errors.New("product price must be positive")
	}

	product := &Product{
		ID:              uuid.NewString(),
		LicenseID:       licenseID,
		Name:            p.Name,
		Description:     p.Description,
		PriceAmount1000: p.PriceAmount1000,
		CreatedAt:       now(),
		UpdatedAt:       now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, license_id, name, description, price_amount_1000, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.LicenseID, product.Name, product.Description,
		product.PriceAmount1000, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Debug().Str("product_id", product.ID).Str("license_id", licenseID).Msg("Product created")
	return product, nil
}

// GetProduct retrieves a tenant-owned product by id.
func (s *Store) GetProduct(ctx context.Context, licenseID, productID string) (*Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, license_id, name, description, price_amount_1000, created_at, updated_at
		 FROM products WHERE id = ? AND license_id = ?`,
		productID, licenseID,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies non-nil fields to a tenant-owned product.
type UpdateProduct struct {
	Name            *string
	Description     *string
	PriceAmount1000 *int64
}

// UpdateProduct updates a product owned by the tenant.
func (s *Store) UpdateProduct(ctx context.Context, licenseID, productID string, upd UpdateProduct) (*Product, error) {
	p, err := s.GetProduct(ctx, licenseID, productID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PriceAmount1000 != nil {
		p.PriceAmount1000 = *upd.PriceAmount1000
	}
	p.UpdatedAt = now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price_amount_1000 = ?, updated_at = ?
		 WHERE id = ? AND license_id = ?`,
		p.Name, p.Description, p.PriceAmount1000, p.UpdatedAt, productID, licenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes a tenant-owned product.
func (s *Store) DeleteProduct(ctx context.Context, licenseID, productID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM products WHERE id = ? AND license_id = ?`, productID, licenseID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListProducts returns a page of the tenant's catalog ordered by creation
// time. The orchestrator consumes this with a large limit to take a full
// catalog snapshot for one turn.
func (s *Store) ListProducts(ctx context.Context, licenseID string, page, limit int) ([]Product, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE license_id = ?`, licenseID,
	).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_id, name, description, price_amount_1000, created_at, updated_at
		 FROM products WHERE license_id = ?
		 ORDER BY created_at, rowid
		 LIMIT ? OFFSET ?`,
		licenseID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list products: %w", err)
	}

	return products, paginate(total, page, limit), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.LicenseID, &p.Name, &p.Description,
		&p.PriceAmount1000, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
