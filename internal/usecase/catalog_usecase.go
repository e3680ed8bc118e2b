package usecase

import (
	"context"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// CreateVendorRequest represents the request to create a vendor
type CreateVendorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogUseCase manages vendors and categories
type CatalogUseCase struct {
	deps Deps
}

// NewCatalogUseCase creates a new catalog use case
func NewCatalogUseCase(deps Deps) *CatalogUseCase {
	return &CatalogUseCase{deps: deps.withDefaults()}
}

// CreateVendor creates a vendor
func (uc *CatalogUseCase) CreateVendor(ctx context.Context, actor domain.Actor, req CreateVendorRequest) (*domain.Vendor, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	vendor, err := domain.NewVendor(req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Vendors.Create(ctx, vendor); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceVendor, vendor.ID, uc.deps.Clock.Now()).
			With("name", vendor.Name)
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}

	return vendor, nil
}

// ListVendors lists vendors that have not been deleted
func (uc *CatalogUseCase) ListVendors(ctx context.Context, actor domain.Actor) ([]*domain.Vendor, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	vendors, err := uc.deps.Store.Repos().Vendors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}

// DeleteVendor soft deletes a vendor. Bills referencing it fail generation until fixed.
func (uc *CatalogUseCase) DeleteVendor(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionDelete); err != nil {
		return err
	}

	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Vendors.SoftDelete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, domain.NewAuditEntry(actor, domain.AuditActionDelete, domain.ResourceVendor, id, uc.deps.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	return nil
}

// CreateCategory creates a category
func (uc *CatalogUseCase) CreateCategory(ctx context.Context, actor domain.Actor, req CreateCategoryRequest) (*domain.Category, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	category, err := domain.NewCategory(req.Name, req.Description)
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Categories.Create(ctx, category); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceCategory, category.ID, uc.deps.Clock.Now()).
			With("name", category.Name)
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

// ListCategories lists categories that have not been deleted
func (uc *CatalogUseCase) ListCategories(ctx context.Context, actor domain.Actor) ([]*domain.Category, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	categories, err := uc.deps.Store.Repos().Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory soft deletes a category
func (uc *CatalogUseCase) DeleteCategory(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionDelete); err != nil {
		return err
	}

	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Categories.SoftDelete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, domain.NewAuditEntry(actor, domain.AuditActionDelete, domain.ResourceCategory, id, uc.deps.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
