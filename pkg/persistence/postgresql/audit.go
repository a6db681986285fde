package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cadenza-io/cadenza/pkg/models"
)

// AuditLogRepository writes entries into the organization audit history.
type AuditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository creates a new audit log repository.
func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Record(ctx context.Context, entry *models.AuditLog) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_logs (
			id, organization_id, actor_user_id, entity_type, entity_id,
			action, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		nullableString(entry.ActorUserID),
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry %s: %w", entry.ID, err)
	}

	return nil
}
