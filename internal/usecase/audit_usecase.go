package usecase

import (
	"context"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// AuditUseCase reads the audit trail
type AuditUseCase struct {
	deps Deps
}

// NewAuditUseCase creates a new audit use case
func NewAuditUseCase(deps Deps) *AuditUseCase {
	return &AuditUseCase{deps: deps.withDefaults()}
}

// List returns audit entries, newest first
func (uc *AuditUseCase) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAudit); err != nil {
		return nil, err
	}

	filter.Limit = pageSize(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := uc.deps.Store.Repos().Audit.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	return entries, nil
}
