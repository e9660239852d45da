package models

import "time"

const (
	EntityUser    = "user"
	EntityProject = "project"
)

const (
	ActionRoleToggled       = "role_toggled"
	ActionUserDeleted       = "user_deleted"
	ActionBudgetSet         = "budget_set"
	ActionBudgetItemUpdated = "budget_item_updated"
	ActionBudgetItemRemoved = "budget_item_removed"
)

// AuditLog records one administrative or approval-affecting change.
type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type AuditFilter struct {
	EntityType string
	EntityID   string
}

func (f AuditFilter) Match(l AuditLog) bool {
	if f.EntityType != "" && f.EntityType != l.EntityType {
		return false
	}
	if f.EntityID != "" && f.EntityID != l.EntityID {
		return false
	}
	return true
}
