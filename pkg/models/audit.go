package models

import "time"

// AuditLog is one entry of the organization's audit history. Used for
// definition lifecycle events and for the apply_label action, which tags an
// entity without mutating it.
type AuditLog struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	ActorUserID    string         `json:"actor_user_id,omitempty"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	Action         string         `json:"action"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
