package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names what happened to a resource
type AuditAction string

const (
	AuditActionCreate    AuditAction = "create"
	AuditActionUpdate    AuditAction = "update"
	AuditActionDelete    AuditAction = "delete"
	AuditActionApprove   AuditAction = "approve"
	AuditActionReject    AuditAction = "reject"
	AuditActionGenerate  AuditAction = "generate"
	AuditActionAdvance   AuditAction = "advance"
	AuditActionIncome    AuditAction = "income"
	AuditActionPayment   AuditAction = "payment"
	AuditActionEntry     AuditAction = "entry"
	AuditActionReimburse AuditAction = "reimburse"
)

// Resource types recorded in the audit trail
const (
	ResourceExpense      = "expense"
	ResourceBill         = "recurring_bill"
	ResourceVendor       = "vendor"
	ResourceCategory     = "category"
	ResourceIncomeSource = "income_source"
	ResourcePayment      = "payment"
	ResourceIncome       = "income"
	ResourceLedger       = "ledger"
	ResourceUser         = "user"
)

// AuditEntry is an immutable record of a mutating action
type AuditEntry struct {
	ID           string            `json:"id"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Action       AuditAction       `json:"action"`
	ActorID      string            `json:"actor_id"`
	ActorRole    Role              `json:"actor_role"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewAuditEntry creates a new audit entry
func NewAuditEntry(actor Actor, action AuditAction, resourceType, resourceID string, at time.Time) *AuditEntry {
	return &AuditEntry{
		ID:           uuid.NewString(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		ActorID:      actor.UserID,
		ActorRole:    actor.Role,
		Metadata:     make(map[string]string),
		CreatedAt:    at.UTC(),
	}
}

// With adds a metadata key and returns the entry for chaining
func (a *AuditEntry) With(key, value string) *AuditEntry {
	if a.Metadata == nil {
		a.Metadata = make(map[string]string)
	}
	a.Metadata[key] = value
	return a
}

// AuditFilter represents filters for the audit trail
type AuditFilter struct {
	ResourceType string       `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	Action       *AuditAction `json:"action,omitempty"`
	From         *time.Time   `json:"from,omitempty"`
	To           *time.Time   `json:"to,omitempty"`
	Limit        int          `json:"limit"`
	Offset       int          `json:"offset"`
}
