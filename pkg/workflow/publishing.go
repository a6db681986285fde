package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenza-io/cadenza/pkg/audit"
	"github.com/cadenza-io/cadenza/pkg/eventbus"
	"github.com/cadenza-io/cadenza/pkg/events"
	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
)

// PublishingService handles the workflow version lifecycle. Publishing a
// version archives the previously published one and moves the workflow's
// published-version pointer in the same transaction, so exactly one version
// per workflow is ever live.
type PublishingService struct {
	persistence persistence.Persistence
	auditor     audit.Recorder
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewPublishingService(persistence persistence.Persistence, auditor audit.Recorder, publisher eventbus.EventPublisher, logger *slog.Logger) *PublishingService {
	return &PublishingService{
		persistence: persistence,
		auditor:     auditor,
		publisher:   publisher,
		logger:      logger,
	}
}

// Publish promotes the workflow's latest version to published.
func (s *PublishingService) Publish(ctx context.Context, organizationID, workflowID, actorUserID string) (*models.Workflow, *models.WorkflowVersion, error) {
	repo := s.persistence.WorkflowRepository()

	definition, err := repo.GetByID(ctx, organizationID, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get workflow for publishing: %w", err)
	}

	if definition == nil {
		return nil, nil, persistence.ErrWorkflowNotFound
	}

	version, err := repo.LatestVersion(ctx, definition.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}

	if version == nil {
		return nil, nil, persistence.ErrWorkflowHasNoVersions
	}

	if err := repo.Publish(ctx, definition, version); err != nil {
		return nil, nil, persistence.NewWorkflowError("Publish", definition.ID, err)
	}

	s.recordAudit(ctx, definition, actorUserID, "workflow.published", map[string]any{
		"version": version.VersionNumber,
	})

	eventbus.PublishBestEffort(ctx, s.logger, s.publisher, definition.ID, events.WorkflowPublished{
		BaseEvent:     events.NewBaseEvent(events.WorkflowPublishedEvent, definition.OrganizationID, definition.ID),
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
	})

	return definition, version, nil
}

// Pause suppresses execution of the workflow regardless of version state.
func (s *PublishingService) Pause(ctx context.Context, organizationID, workflowID, actorUserID string) (*models.Workflow, error) {
	repo := s.persistence.WorkflowRepository()

	definition, err := repo.GetByID(ctx, organizationID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for pausing: %w", err)
	}

	if definition == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	definition.Status = models.WorkflowStatusPaused
	definition.UpdatedAt = time.Now().UTC()

	if err := repo.SaveWorkflow(ctx, definition); err != nil {
		return nil, persistence.NewWorkflowError("Pause", definition.ID, err)
	}

	s.recordAudit(ctx, definition, actorUserID, "workflow.paused", nil)

	eventbus.PublishBestEffort(ctx, s.logger, s.publisher, definition.ID, events.WorkflowPaused{
		BaseEvent: events.NewBaseEvent(events.WorkflowPausedEvent, definition.OrganizationID, definition.ID),
	})

	return definition, nil
}

// PublishedVersion resolves the workflow's currently live version through its
// explicit pointer.
func (s *PublishingService) PublishedVersion(ctx context.Context, definition *models.Workflow) (*models.WorkflowVersion, error) {
	if definition.PublishedVersionID == "" {
		return nil, persistence.ErrPublishedVersionNotFound
	}

	version, err := s.persistence.WorkflowRepository().GetVersionByID(ctx, definition.PublishedVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get published version: %w", err)
	}

	if version == nil {
		return nil, persistence.ErrPublishedVersionNotFound
	}

	return version, nil
}

func (s *PublishingService) recordAudit(ctx context.Context, definition *models.Workflow, actorUserID, action string, metadata map[string]any) {
	entry := &models.AuditLog{
		OrganizationID: definition.OrganizationID,
		ActorUserID:    actorUserID,
		EntityType:     "Workflow",
		EntityID:       definition.ID,
		Action:         action,
		Metadata:       metadata,
	}

	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "Failed to record audit entry",
			"action", action, "workflow_id", definition.ID, "error", err)
	}
}
