package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
)

// ExecutionLogRepository handles append-only execution record storage.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLog) error {
	triggerInputJSON, err := json.Marshal(entry.TriggerInput)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger input: %w", err)
	}

	rulePathJSON, err := json.Marshal(entry.RulePath)
	if err != nil {
		return fmt.Errorf("failed to marshal rule path: %w", err)
	}

	actionResultsJSON, err := json.Marshal(entry.ActionResults)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO workflow_execution_logs (
			id, organization_id, workflow_id, workflow_version_id,
			trigger_event, entity_type, entity_id, status, dry_run,
			trigger_input, rule_path, action_results, error_message, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.WorkflowID,
		entry.WorkflowVersionID,
		entry.TriggerEvent,
		entry.EntityType,
		entry.EntityID,
		entry.Status,
		entry.DryRun,
		triggerInputJSON,
		rulePathJSON,
		actionResultsJSON,
		nullableString(entry.ErrorMessage),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution log %s: %w", entry.ID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) CountSince(ctx context.Context, workflowID, entityType, entityID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM workflow_execution_logs
		WHERE workflow_id = $1 AND entity_type = $2 AND entity_id = $3 AND created_at >= $4
	`

	var count int

	err := r.db.QueryRowContext(ctx, query, workflowID, entityType, entityID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}

	return count, nil
}

func (r *ExecutionLogRepository) ListByWorkflow(ctx context.Context, organizationID, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , workflow_id
		  , workflow_version_id
		  , trigger_event
		  , entity_type
		  , entity_id
		  , status
		  , dry_run
		  , trigger_input
		  , rule_path
		  , action_results
		  , error_message
		  , created_at
		FROM workflow_execution_logs
		WHERE organization_id = $1 AND workflow_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}

func (r *ExecutionLogRepository) scanEntry(row rowScanner) (*models.ExecutionLog, error) {
	var (
		entry             models.ExecutionLog
		triggerInputJSON  []byte
		rulePathJSON      []byte
		actionResultsJSON []byte
		errorMessage      sql.NullString
	)

	err := row.Scan(
		&entry.ID,
		&entry.OrganizationID,
		&entry.WorkflowID,
		&entry.WorkflowVersionID,
		&entry.TriggerEvent,
		&entry.EntityType,
		&entry.EntityID,
		&entry.Status,
		&entry.DryRun,
		&triggerInputJSON,
		&rulePathJSON,
		&actionResultsJSON,
		&errorMessage,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerInputJSON, &entry.TriggerInput); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger input: %w", err)
	}

	if err := json.Unmarshal(rulePathJSON, &entry.RulePath); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule path: %w", err)
	}

	if err := json.Unmarshal(actionResultsJSON, &entry.ActionResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
	}

	if errorMessage.Valid {
		entry.ErrorMessage = errorMessage.String
	}

	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}

	return value
}
