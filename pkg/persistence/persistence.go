// Package persistence provides the data storage abstraction for workflow
// definitions, execution logs and the organization audit history.
package persistence

import (
	"context"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionLogRepository() ExecutionLogRepository
	AuditLogRepository() AuditLogRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// WorkflowRepository persists workflow definitions and their versions.
type WorkflowRepository interface {
	// CreateWithVersion atomically stores a new workflow together with its
	// first version. Partial saves must not be observable.
	CreateWithVersion(ctx context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error

	GetByID(ctx context.Context, organizationID, id string) (*models.Workflow, error)

	// ListByTrigger returns published workflows of the organization whose
	// kill switch is off and whose trigger subscribes to eventType and is
	// enabled.
	ListByTrigger(ctx context.Context, organizationID, eventType string) ([]*models.Workflow, error)

	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	SaveVersion(ctx context.Context, version *models.WorkflowVersion) error

	GetVersionByID(ctx context.Context, versionID string) (*models.WorkflowVersion, error)
	LatestVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error)

	// Publish atomically archives any currently published version, marks the
	// given version published and updates the workflow's status and
	// published-version pointer.
	Publish(ctx context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error
}

// ExecutionLogRepository is append-only storage for execution records.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.ExecutionLog) error

	// CountSince counts the workflow's execution records for one target
	// entity with created_at >= since. Backs the loop-prevention guard.
	CountSince(ctx context.Context, workflowID, entityType, entityID string, since time.Time) (int, error)

	// ListByWorkflow returns execution records ordered by created_at
	// descending, at most limit entries.
	ListByWorkflow(ctx context.Context, organizationID, workflowID string, limit int) ([]*models.ExecutionLog, error)
}

// AuditLogRepository records entries into the organization's audit history.
type AuditLogRepository interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}
