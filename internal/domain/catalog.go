package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vendor is a supplier or service provider
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups expenses
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewVendor creates an active vendor
func NewVendor(name, email, phone string) (*Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	if len(name) > 200 {
		return nil, NewValidationError("name", "name must not exceed 200 characters")
	}
	now := time.Now().UTC()
	return &Vendor{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewCategory creates an active category
func NewCategory(name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	if len(name) > 100 {
		return nil, NewValidationError("name", "name must not exceed 100 characters")
	}
	now := time.Now().UTC()
	return &Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Usable reports whether new expenses may reference the vendor
func (v *Vendor) Usable() bool {
	return v != nil && v.IsActive && !v.IsDeleted
}

// Usable reports whether new expenses may reference the category
func (c *Category) Usable() bool {
	return c != nil && c.IsActive && !c.IsDeleted
}
