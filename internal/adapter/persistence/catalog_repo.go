package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// VendorRepository implements ports.VendorRepository
type VendorRepository struct {
	q querier
}

// Create saves a new vendor
func (r *VendorRepository) Create(ctx context.Context, vendor *domain.Vendor) error {
	query := `
		INSERT INTO vendors (id, name, email, phone, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		vendor.ID, vendor.Name, vendor.Email, vendor.Phone,
		vendor.IsActive, vendor.IsDeleted, vendor.CreatedAt.UTC(), vendor.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// FindByID retrieves a vendor, including soft deleted ones so callers can tell them apart
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*domain.Vendor, error) {
	query := `SELECT id, name, email, phone, is_active, is_deleted, created_at, updated_at FROM vendors WHERE id = $1`

	vendor, err := scanVendor(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("vendor", id)
		}
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	return vendor, nil
}

// List retrieves vendors that have not been deleted, by name
func (r *VendorRepository) List(ctx context.Context) ([]*domain.Vendor, error) {
	query := `SELECT id, name, email, phone, is_active, is_deleted, created_at, updated_at FROM vendors WHERE is_deleted = FALSE ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*domain.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendors: %w", err)
	}
	return vendors, nil
}

// SoftDelete marks the vendor deleted
func (r *VendorRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE vendors SET is_deleted = TRUE, is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`

	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	return checkAffected(result, domain.NewNotFound("vendor", id))
}

func scanVendor(row rowScanner) (*domain.Vendor, error) {
	var v domain.Vendor
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.IsActive, &v.IsDeleted, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

// CategoryRepository implements ports.CategoryRepository
type CategoryRepository struct {
	q querier
}

// Create saves a new category
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		category.ID, category.Name, category.Description,
		category.IsActive, category.IsDeleted, category.CreatedAt.UTC(), category.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// FindByID retrieves a category, including soft deleted ones
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT id, name, description, is_active, is_deleted, created_at, updated_at FROM categories WHERE id = $1`

	category, err := scanCategory(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("category", id)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return category, nil
}

// List retrieves categories that have not been deleted, by name
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT id, name, description, is_active, is_deleted, created_at, updated_at FROM categories WHERE is_deleted = FALSE ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// SoftDelete marks the category deleted
func (r *CategoryRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE categories SET is_deleted = TRUE, is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`

	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return checkAffected(result, domain.NewNotFound("category", id))
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
