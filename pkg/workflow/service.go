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
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Service manages workflow definitions: atomic creation with a first draft
// version, re-validation of stored definitions and execution history access.
type Service struct {
	persistence persistence.Persistence
	auditor     audit.Recorder
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewService(persistence persistence.Persistence, auditor audit.Recorder, publisher eventbus.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		persistence: persistence,
		auditor:     auditor,
		publisher:   publisher,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Service) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowInput is a proposed definition: the workflow shell plus the
// trigger, condition tree and ordered actions of its first version.
type CreateWorkflowInput struct {
	OrganizationID       string
	Name                 string
	Description          string
	DryRunEnabled        bool
	KillSwitchEnabled    bool
	MaxExecutionsPerHour uint
	Trigger              models.WorkflowTrigger
	ConditionTree        *models.ConditionNode
	Actions              []models.WorkflowAction
	ActivationStartsAt   *time.Time
	ActivationEndsAt     *time.Time
}

// Create validates and atomically persists a new workflow with version 1 in
// draft. Rejected definitions are never partially saved.
func (s *Service) Create(ctx context.Context, input CreateWorkflowInput, actorUserID string) (*models.Workflow, *models.WorkflowVersion, error) {
	validation := ValidateDefinition(input.Trigger.EventType, input.ConditionTree, input.Actions)
	if !validation.Valid {
		return nil, nil, &DefinitionValidationError{Errors: validation.Errors}
	}

	if input.ActivationStartsAt != nil && input.ActivationEndsAt != nil &&
		!input.ActivationStartsAt.Before(*input.ActivationEndsAt) {
		return nil, nil, ErrActivationWindow
	}

	now := time.Now().UTC()

	maxPerHour := input.MaxExecutionsPerHour
	if maxPerHour == 0 {
		maxPerHour = models.DefaultMaxExecutionsPerHour
	}

	trigger := input.Trigger
	if trigger.Source == "" {
		trigger.Source = "api"
	}

	trigger.IsEnabled = true

	definition := &models.Workflow{
		ID:                   uuid.New().String(),
		OrganizationID:       input.OrganizationID,
		Name:                 input.Name,
		Description:          input.Description,
		Status:               models.WorkflowStatusDraft,
		Trigger:              trigger,
		DryRunEnabled:        input.DryRunEnabled,
		KillSwitchEnabled:    input.KillSwitchEnabled,
		MaxExecutionsPerHour: maxPerHour,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	version := &models.WorkflowVersion{
		ID:                 uuid.New().String(),
		WorkflowID:         definition.ID,
		VersionNumber:      1,
		Status:             models.VersionStatusDraft,
		TriggerConfig:      trigger,
		ConditionTree:      input.ConditionTree,
		Actions:            input.Actions,
		ActivationStartsAt: input.ActivationStartsAt,
		ActivationEndsAt:   input.ActivationEndsAt,
		CreatedAt:          now,
	}

	if err := s.persistence.WorkflowRepository().CreateWithVersion(ctx, definition, version); err != nil {
		return nil, nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.recordAudit(ctx, definition, actorUserID, "workflow.created", map[string]any{
		"triggerEvent": trigger.EventType,
		"actionCount":  len(input.Actions),
	})

	eventbus.PublishBestEffort(ctx, s.logger, s.publisher, definition.ID, events.WorkflowCreated{
		BaseEvent:    events.NewBaseEvent(events.WorkflowCreatedEvent, definition.OrganizationID, definition.ID),
		TriggerEvent: trigger.EventType,
		ActionCount:  len(input.Actions),
	})

	return definition, version, nil
}

// FetchByID retrieves a workflow scoped to its organization.
func (s *Service) FetchByID(ctx context.Context, organizationID, workflowID string) (*models.Workflow, error) {
	definition, err := s.persistence.WorkflowRepository().GetByID(ctx, organizationID, workflowID)
	if err != nil {
		return nil, err
	}

	if definition == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return definition, nil
}

// ValidationReport is the outcome of re-validating a stored definition.
type ValidationReport struct {
	ValidationResult

	WorkflowID    string `json:"workflow_id"`
	VersionNumber int    `json:"version_number"`
}

// Validate re-checks the latest version of a stored workflow against the
// definition rules.
func (s *Service) Validate(ctx context.Context, organizationID, workflowID string) (*ValidationReport, error) {
	definition, err := s.FetchByID(ctx, organizationID, workflowID)
	if err != nil {
		return nil, err
	}

	version, err := s.persistence.WorkflowRepository().LatestVersion(ctx, definition.ID)
	if err != nil {
		return nil, err
	}

	if version == nil {
		return nil, persistence.ErrWorkflowHasNoVersions
	}

	result := ValidateDefinition(definition.Trigger.EventType, version.ConditionTree, version.Actions)

	return &ValidationReport{
		ValidationResult: result,
		WorkflowID:       definition.ID,
		VersionNumber:    version.VersionNumber,
	}, nil
}

// ListExecutions returns the workflow's execution history, newest first.
// Limit is clamped to [1, 200] with a default of 50.
func (s *Service) ListExecutions(ctx context.Context, organizationID, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.persistence.ExecutionLogRepository().ListByWorkflow(ctx, organizationID, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution history: %w", err)
	}

	return entries, nil
}

func (s *Service) recordAudit(ctx context.Context, definition *models.Workflow, actorUserID, action string, metadata map[string]any) {
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
