package workflow

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cadenza-io/cadenza/pkg/audit"
	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/cadenza-io/cadenza/pkg/persistence/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLifecycleFixture(t *testing.T) (*Service, *PublishingService, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	auditor := audit.NewService(store)
	logger := slog.Default()

	return NewService(store, auditor, nil, logger),
		NewPublishingService(store, auditor, nil, logger),
		store
}

func timeNowPlus(t *testing.T, hours int) time.Time {
	t.Helper()

	return time.Now().UTC().Add(time.Duration(hours) * time.Hour)
}

func leadActions() []models.WorkflowAction {
	return []models.WorkflowAction{
		{ActionType: models.ActionSendNotification, OrderIndex: 0},
	}
}

func TestService_CreatePersistsWorkflowWithFirstVersion(t *testing.T) {
	service, _, store := newLifecycleFixture(t)

	definition, version, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Lead follow-up",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, definition.ID)
	assert.Equal(t, models.WorkflowStatusDraft, definition.Status)
	assert.Equal(t, uint(models.DefaultMaxExecutionsPerHour), definition.MaxExecutionsPerHour)
	assert.True(t, definition.Trigger.IsEnabled)
	assert.Equal(t, "api", definition.Trigger.Source)

	assert.Equal(t, 1, version.VersionNumber)
	assert.Equal(t, models.VersionStatusDraft, version.Status)

	stored, err := store.WorkflowRepository().GetByID(t.Context(), "org-1", definition.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.PublishedVersionID)
}

func TestService_CreateRejectsInvalidDefinitionWithoutPersisting(t *testing.T) {
	service, _, store := newLifecycleFixture(t)

	_, _, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Broken workflow",
		Trigger:        models.WorkflowTrigger{EventType: "meteor_strike"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	workflows, err := store.WorkflowRepository().ListByTrigger(t.Context(), "org-1", "meteor_strike")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestService_CreateRejectsInvertedActivationWindow(t *testing.T) {
	service, _, _ := newLifecycleFixture(t)

	input := CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Windowed workflow",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}

	later := timeNowPlus(t, 2)
	earlier := timeNowPlus(t, 1)
	input.ActivationStartsAt = &later
	input.ActivationEndsAt = &earlier

	_, _, err := service.Create(t.Context(), input, "user-1")
	assert.ErrorIs(t, err, ErrActivationWindow)
}

func TestPublishing_PublishPromotesLatestVersion(t *testing.T) {
	service, publishing, _ := newLifecycleFixture(t)

	created, _, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Lead follow-up",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.NoError(t, err)

	definition, version, err := publishing.Publish(t.Context(), "org-1", created.ID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusPublished, definition.Status)
	assert.Equal(t, models.VersionStatusPublished, version.Status)
	assert.Equal(t, version.ID, definition.PublishedVersionID)
}

func TestPublishing_PublishArchivesPreviousVersion(t *testing.T) {
	service, publishing, store := newLifecycleFixture(t)

	created, firstVersion, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Lead follow-up",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.NoError(t, err)

	_, _, err = publishing.Publish(t.Context(), "org-1", created.ID, "user-1")
	require.NoError(t, err)

	// Add a second version and publish it.
	secondVersion := &models.WorkflowVersion{
		ID:            uuid.New().String(),
		WorkflowID:    created.ID,
		VersionNumber: 2,
		Status:        models.VersionStatusDraft,
		TriggerConfig: created.Trigger,
		ConditionTree: &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:       leadActions(),
	}
	require.NoError(t, store.WorkflowRepository().SaveVersion(t.Context(), secondVersion))

	definition, published, err := publishing.Publish(t.Context(), "org-1", created.ID, "user-1")
	require.NoError(t, err)

	assert.Equal(t, secondVersion.ID, published.ID)
	assert.Equal(t, secondVersion.ID, definition.PublishedVersionID)

	archived, err := store.WorkflowRepository().GetVersionByID(t.Context(), firstVersion.ID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, models.VersionStatusArchived, archived.Status)
}

func TestPublishing_PauseSuppressesWorkflow(t *testing.T) {
	service, publishing, store := newLifecycleFixture(t)

	created, _, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Lead follow-up",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.NoError(t, err)

	_, _, err = publishing.Publish(t.Context(), "org-1", created.ID, "user-1")
	require.NoError(t, err)

	paused, err := publishing.Pause(t.Context(), "org-1", created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)

	// Paused workflows are no longer execution candidates.
	candidates, err := store.WorkflowRepository().ListByTrigger(t.Context(), "org-1", "lead_created")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPublishing_PublishUnknownWorkflow(t *testing.T) {
	_, publishing, _ := newLifecycleFixture(t)

	_, _, err := publishing.Publish(t.Context(), "org-1", uuid.New().String(), "user-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestService_WorkflowIsOrganizationScoped(t *testing.T) {
	service, _, _ := newLifecycleFixture(t)

	created, _, err := service.Create(t.Context(), CreateWorkflowInput{
		OrganizationID: "org-1",
		Name:           "Org one workflow",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created"},
		ConditionTree:  &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions:        leadActions(),
	}, "user-1")
	require.NoError(t, err)

	_, err = service.FetchByID(t.Context(), "org-2", created.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}
