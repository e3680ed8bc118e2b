package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Deps are the collaborators shared by every use case
type Deps struct {
	Store  ports.Store
	Clock  ports.Clock
	Logger logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = ports.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	return d
}

// authorize checks the permission table and logs refusals
func authorize(ctx context.Context, log logger.Logger, actor domain.Actor, action domain.Action) error {
	if err := actor.Require(action); err != nil {
		logger.LogAccessDenied(ctx, log, actor.UserID, string(actor.Role), string(action), nil)
		return err
	}
	return nil
}

// audit appends an entry, wrapping failures so the surrounding transaction rolls back
func audit(ctx context.Context, repos ports.Repositories, entry *domain.AuditEntry) error {
	if err := repos.Audit.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// requireCategory loads a category that new records may still reference
func requireCategory(ctx context.Context, repos ports.Repositories, id string) (*domain.Category, error) {
	category, err := repos.Categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewReferentialIntegrityError("category", id)
		}
		return nil, err
	}
	if !category.Usable() {
		return nil, domain.NewReferentialIntegrityError("category", id)
	}
	return category, nil
}

// requireVendor loads a vendor that new records may still reference. A nil id is allowed.
func requireVendor(ctx context.Context, repos ports.Repositories, id *string) (*domain.Vendor, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	vendor, err := repos.Vendors.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewReferentialIntegrityError("vendor", *id)
		}
		return nil, err
	}
	if !vendor.Usable() {
		return nil, domain.NewReferentialIntegrityError("vendor", *id)
	}
	return vendor, nil
}

func parseOptionalDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return domain.DateOf(fallback), nil
	}
	return domain.ParseDate(field, value)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
