package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
)

// WorkflowRepository handles workflow and version database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , organization_id
  , name
  , description
  , status
  , trigger_event
  , trigger_source
  , trigger_enabled
  , dry_run_enabled
  , kill_switch_enabled
  , max_executions_per_hour
  , published_version_id
  , created_at
  , updated_at
`

const versionColumns = `
	id
  , workflow_id
  , version_number
  , status
  , trigger_config
  , condition_tree
  , actions
  , activation_starts_at
  , activation_ends_at
  , created_at
`

// CreateWithVersion atomically inserts a workflow and its first version.
func (r *WorkflowRepository) CreateWithVersion(ctx context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.insertWorkflow(ctx, tx, workflow)
	if err != nil {
		return err
	}

	err = r.upsertVersion(ctx, tx, version)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow creation: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, organizationID, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND organization_id = $2`

	row := r.db.QueryRowContext(ctx, query, id, organizationID)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) ListByTrigger(ctx context.Context, organizationID, eventType string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE organization_id = $1
		  AND trigger_event = $2
		  AND trigger_enabled = true
		  AND status = 'published'
		  AND kill_switch_enabled = false
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return r.insertWorkflow(ctx, r.db, workflow)
}

func (r *WorkflowRepository) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	return r.upsertVersion(ctx, r.db, version)
}

func (r *WorkflowRepository) GetVersionByID(ctx context.Context, versionID string) (*models.WorkflowVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM workflow_versions WHERE id = $1`

	version, err := r.scanVersion(r.db.QueryRowContext(ctx, query, versionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	return version, nil
}

func (r *WorkflowRepository) LatestVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`

	version, err := r.scanVersion(r.db.QueryRowContext(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	return version, nil
}

// Publish archives the currently published version, publishes the given one
// and repoints the workflow in a single transaction.
func (r *WorkflowRepository) Publish(ctx context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`UPDATE workflow_versions SET status = 'archived' WHERE workflow_id = $1 AND status = 'published' AND id <> $2`,
		workflow.ID, version.ID)
	if err != nil {
		return fmt.Errorf("failed to archive published versions: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE workflow_versions SET status = 'published' WHERE id = $1`, version.ID)
	if err != nil {
		return fmt.Errorf("failed to publish version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		err = persistence.ErrVersionNotFound

		return err
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE workflows SET status = 'published', published_version_id = $2, updated_at = $3 WHERE id = $1`,
		workflow.ID, version.ID, now)
	if err != nil {
		return fmt.Errorf("failed to update workflow pointer: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit publish: %w", err)
	}

	version.Status = models.VersionStatusPublished
	workflow.Status = models.WorkflowStatusPublished
	workflow.PublishedVersionID = version.ID
	workflow.UpdatedAt = now

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *WorkflowRepository) insertWorkflow(ctx context.Context, db execer, workflow *models.Workflow) error {
	query := `
		INSERT INTO workflows (
			id, organization_id, name, description, status,
			trigger_event, trigger_source, trigger_enabled,
			dry_run_enabled, kill_switch_enabled, max_executions_per_hour,
			published_version_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_event = EXCLUDED.trigger_event,
			trigger_source = EXCLUDED.trigger_source,
			trigger_enabled = EXCLUDED.trigger_enabled,
			dry_run_enabled = EXCLUDED.dry_run_enabled,
			kill_switch_enabled = EXCLUDED.kill_switch_enabled,
			max_executions_per_hour = EXCLUDED.max_executions_per_hour,
			published_version_id = EXCLUDED.published_version_id,
			updated_at = EXCLUDED.updated_at
	`

	var publishedVersionID any
	if workflow.PublishedVersionID != "" {
		publishedVersionID = workflow.PublishedVersionID
	}

	_, err := db.ExecContext(ctx, query,
		workflow.ID,
		workflow.OrganizationID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.Trigger.EventType,
		workflow.Trigger.Source,
		workflow.Trigger.IsEnabled,
		workflow.DryRunEnabled,
		workflow.KillSwitchEnabled,
		workflow.MaxExecutionsPerHour,
		publishedVersionID,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) upsertVersion(ctx context.Context, db execer, version *models.WorkflowVersion) error {
	triggerConfigJSON, err := json.Marshal(version.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditionTreeJSON, err := json.Marshal(version.ConditionTree)
	if err != nil {
		return fmt.Errorf("failed to marshal condition tree: %w", err)
	}

	actionsJSON, err := json.Marshal(version.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflow_versions (
			id, workflow_id, version_number, status,
			trigger_config, condition_tree, actions,
			activation_starts_at, activation_ends_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			trigger_config = EXCLUDED.trigger_config,
			condition_tree = EXCLUDED.condition_tree,
			actions = EXCLUDED.actions,
			activation_starts_at = EXCLUDED.activation_starts_at,
			activation_ends_at = EXCLUDED.activation_ends_at
	`

	_, err = db.ExecContext(ctx, query,
		version.ID,
		version.WorkflowID,
		version.VersionNumber,
		version.Status,
		triggerConfigJSON,
		conditionTreeJSON,
		actionsJSON,
		version.ActivationStartsAt,
		version.ActivationEndsAt,
		version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save version %s: %w", version.ID, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow           models.Workflow
		publishedVersionID sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OrganizationID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.Trigger.EventType,
		&workflow.Trigger.Source,
		&workflow.Trigger.IsEnabled,
		&workflow.DryRunEnabled,
		&workflow.KillSwitchEnabled,
		&workflow.MaxExecutionsPerHour,
		&publishedVersionID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedVersionID.Valid {
		workflow.PublishedVersionID = publishedVersionID.String
	}

	return &workflow, nil
}

func (r *WorkflowRepository) scanVersion(row rowScanner) (*models.WorkflowVersion, error) {
	var (
		version           models.WorkflowVersion
		triggerConfigJSON []byte
		conditionTreeJSON []byte
		actionsJSON       []byte
	)

	err := row.Scan(
		&version.ID,
		&version.WorkflowID,
		&version.VersionNumber,
		&version.Status,
		&triggerConfigJSON,
		&conditionTreeJSON,
		&actionsJSON,
		&version.ActivationStartsAt,
		&version.ActivationEndsAt,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerConfigJSON, &version.TriggerConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	if len(conditionTreeJSON) > 0 && string(conditionTreeJSON) != "null" {
		if err := json.Unmarshal(conditionTreeJSON, &version.ConditionTree); err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition tree: %w", err)
		}
	}

	if err := json.Unmarshal(actionsJSON, &version.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &version, nil
}
