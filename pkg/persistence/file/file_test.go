package file

import (
	"testing"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(organizationID, eventType string) *models.Workflow {
	now := time.Now().UTC()

	return &models.Workflow{
		ID:                   uuid.New().String(),
		OrganizationID:       organizationID,
		Name:                 "Test workflow",
		Status:               models.WorkflowStatusPublished,
		Trigger:              models.WorkflowTrigger{EventType: eventType, Source: "api", IsEnabled: true},
		MaxExecutionsPerHour: models.DefaultMaxExecutionsPerHour,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func newVersion(workflowID string, number int) *models.WorkflowVersion {
	return &models.WorkflowVersion{
		ID:            uuid.New().String(),
		WorkflowID:    workflowID,
		VersionNumber: number,
		Status:        models.VersionStatusDraft,
		ConditionTree: &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions: []models.WorkflowAction{
			{ActionType: models.ActionApplyLabel, OrderIndex: 0},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestWorkflowRepository_CreateWithVersionRejectsDuplicates(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.WorkflowRepository()

	workflow := newWorkflow("org-1", "lead_created")
	version := newVersion(workflow.ID, 1)

	require.NoError(t, repo.CreateWithVersion(t.Context(), workflow, version))

	err := repo.CreateWithVersion(t.Context(), workflow, newVersion(workflow.ID, 1))
	assert.ErrorIs(t, err, persistence.ErrWorkflowAlreadyExists)
}

func TestWorkflowRepository_GetByIDIsOrganizationScoped(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.WorkflowRepository()

	workflow := newWorkflow("org-1", "lead_created")
	require.NoError(t, repo.CreateWithVersion(t.Context(), workflow, newVersion(workflow.ID, 1)))

	found, err := repo.GetByID(t.Context(), "org-1", workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, workflow.Name, found.Name)

	missing, err := repo.GetByID(t.Context(), "org-2", workflow.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWorkflowRepository_ListByTriggerFiltersCandidates(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.WorkflowRepository()

	eligible := newWorkflow("org-1", "lead_created")

	killSwitched := newWorkflow("org-1", "lead_created")
	killSwitched.KillSwitchEnabled = true

	draft := newWorkflow("org-1", "lead_created")
	draft.Status = models.WorkflowStatusDraft

	triggerDisabled := newWorkflow("org-1", "lead_created")
	triggerDisabled.Trigger.IsEnabled = false

	otherOrganization := newWorkflow("org-2", "lead_created")
	otherEvent := newWorkflow("org-1", "ticket_created")

	for _, workflow := range []*models.Workflow{eligible, killSwitched, draft, triggerDisabled, otherOrganization, otherEvent} {
		require.NoError(t, repo.CreateWithVersion(t.Context(), workflow, newVersion(workflow.ID, 1)))
	}

	candidates, err := repo.ListByTrigger(t.Context(), "org-1", "lead_created")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, eligible.ID, candidates[0].ID)
}

func TestWorkflowRepository_LatestVersionPicksHighestNumber(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.WorkflowRepository()

	workflow := newWorkflow("org-1", "lead_created")
	require.NoError(t, repo.CreateWithVersion(t.Context(), workflow, newVersion(workflow.ID, 1)))

	second := newVersion(workflow.ID, 2)
	third := newVersion(workflow.ID, 3)
	require.NoError(t, repo.SaveVersion(t.Context(), third))
	require.NoError(t, repo.SaveVersion(t.Context(), second))

	latest, err := repo.LatestVersion(t.Context(), workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, third.ID, latest.ID)
	assert.Equal(t, 3, latest.VersionNumber)
}

func TestWorkflowRepository_PublishArchivesPreviousVersion(t *testing.T) {
	store := NewPersistence(t.TempDir())
	repo := store.WorkflowRepository()

	workflow := newWorkflow("org-1", "lead_created")
	first := newVersion(workflow.ID, 1)
	require.NoError(t, repo.CreateWithVersion(t.Context(), workflow, first))
	require.NoError(t, repo.Publish(t.Context(), workflow, first))

	assert.Equal(t, first.ID, workflow.PublishedVersionID)
	assert.Equal(t, models.VersionStatusPublished, first.Status)

	second := newVersion(workflow.ID, 2)
	require.NoError(t, repo.SaveVersion(t.Context(), second))
	require.NoError(t, repo.Publish(t.Context(), workflow, second))

	assert.Equal(t, second.ID, workflow.PublishedVersionID)

	archived, err := repo.GetVersionByID(t.Context(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, models.VersionStatusArchived, archived.Status)
}

func TestExecutionLogRepository_CountSinceHonorsWindow(t *testing.T) {
	store := NewPersistence(t.TempDir())
	logs := store.ExecutionLogRepository()

	workflowID := uuid.New().String()
	now := time.Now().UTC()

	appendEntry := func(entityID string, createdAt time.Time) {
		require.NoError(t, logs.Append(t.Context(), &models.ExecutionLog{
			ID:             uuid.New().String(),
			OrganizationID: "org-1",
			WorkflowID:     workflowID,
			EntityType:     "Lead",
			EntityID:       entityID,
			Status:         models.ExecutionStatusSuccess,
			CreatedAt:      createdAt,
		}))
	}

	appendEntry("lead-1", now.Add(-30*time.Minute))
	appendEntry("lead-1", now.Add(-10*time.Minute))
	appendEntry("lead-1", now.Add(-2*time.Hour))
	appendEntry("lead-2", now.Add(-5*time.Minute))

	count, err := logs.CountSince(t.Context(), workflowID, "Lead", "lead-1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestExecutionLogRepository_ListByWorkflowOrdersAndLimits(t *testing.T) {
	store := NewPersistence(t.TempDir())
	logs := store.ExecutionLogRepository()

	workflowID := uuid.New().String()
	now := time.Now().UTC()

	for i := range 5 {
		require.NoError(t, logs.Append(t.Context(), &models.ExecutionLog{
			ID:             uuid.New().String(),
			OrganizationID: "org-1",
			WorkflowID:     workflowID,
			EntityType:     "Lead",
			EntityID:       "lead-1",
			Status:         models.ExecutionStatusSuccess,
			CreatedAt:      now.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, logs.Append(t.Context(), &models.ExecutionLog{
		ID:             uuid.New().String(),
		OrganizationID: "org-2",
		WorkflowID:     workflowID,
		EntityType:     "Lead",
		EntityID:       "lead-1",
		Status:         models.ExecutionStatusSuccess,
		CreatedAt:      now.Add(time.Hour),
	}))

	entries, err := logs.ListByWorkflow(t.Context(), "org-1", workflowID, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first, other organizations never leak in.
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
	assert.True(t, entries[1].CreatedAt.After(entries[2].CreatedAt))

	for _, entry := range entries {
		assert.Equal(t, "org-1", entry.OrganizationID)
	}
}

func TestAuditLogRepository_RecordsPerOrganization(t *testing.T) {
	store := NewPersistence(t.TempDir())
	auditLogs := store.auditRepo

	require.NoError(t, auditLogs.Record(t.Context(), &models.AuditLog{
		ID:             uuid.New().String(),
		OrganizationID: "org-1",
		ActorUserID:    "user-1",
		EntityType:     "Lead",
		EntityID:       "lead-1",
		Action:         "workflow.label.applied",
	}))
	require.NoError(t, auditLogs.Record(t.Context(), &models.AuditLog{
		ID:             uuid.New().String(),
		OrganizationID: "org-2",
		ActorUserID:    "user-2",
		EntityType:     "Lead",
		EntityID:       "lead-2",
		Action:         "workflow.label.applied",
	}))

	entries, err := auditLogs.ListByOrganization(t.Context(), "org-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].ActorUserID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := NewPersistence(t.TempDir())

	assert.NoError(t, store.HealthCheck(t.Context()))
}
