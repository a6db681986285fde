package workflow

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/cadenza-io/cadenza/pkg/persistence/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulatorFixture(t *testing.T) (*Simulator, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewSimulator(store, slog.Default()), store
}

func publishDefinition(t *testing.T, store *file.Persistence, definition *models.Workflow, version *models.WorkflowVersion) {
	t.Helper()

	if definition.ID == "" {
		definition.ID = uuid.New().String()
	}

	if version.ID == "" {
		version.ID = uuid.New().String()
	}

	version.WorkflowID = definition.ID
	version.VersionNumber = 1
	definition.Trigger.IsEnabled = true
	definition.CreatedAt = time.Now().UTC()
	definition.UpdatedAt = definition.CreatedAt
	version.CreatedAt = definition.CreatedAt

	repo := store.WorkflowRepository()
	require.NoError(t, repo.CreateWithVersion(t.Context(), definition, version))
	require.NoError(t, repo.Publish(t.Context(), definition, version))
}

func TestSimulator_PredictsMatchedExecution(t *testing.T) {
	simulator, store := newSimulatorFixture(t)

	definition := &models.Workflow{
		OrganizationID: "org-1",
		Name:           "Lead welcome flow",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created", Source: "api"},
	}
	publishDefinition(t, store, definition, &models.WorkflowVersion{
		ConditionTree: &models.ConditionNode{
			Operator: models.ConditionOperatorAnd,
			Conditions: []models.Condition{
				{Field: "priority", Op: models.ComparisonEq, Value: "high"},
			},
		},
		Actions: []models.WorkflowAction{
			{ActionType: models.ActionSendNotification, OrderIndex: 0},
			{ActionType: models.ActionApplyLabel, OrderIndex: 1},
		},
	})

	result, err := simulator.DryRun(t.Context(), "org-1", definition.ID, map[string]any{
		"priority": "high",
		"entityId": "lead-42",
	})
	require.NoError(t, err)

	assert.Equal(t, definition.ID, result.WorkflowID)
	assert.Equal(t, definition.PublishedVersionID, result.WorkflowVersionID)
	assert.True(t, result.Matched)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.PredictedActionCount)
	assert.Equal(t, []string{"lead-42"}, result.TargetEntities)
	assert.NotEmpty(t, result.RulePath)
}

func TestSimulator_UnmatchedPredictsNothing(t *testing.T) {
	simulator, store := newSimulatorFixture(t)

	definition := &models.Workflow{
		OrganizationID: "org-1",
		Name:           "Lead welcome flow",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created", Source: "api"},
	}
	publishDefinition(t, store, definition, &models.WorkflowVersion{
		ConditionTree: &models.ConditionNode{
			Operator: models.ConditionOperatorAnd,
			Conditions: []models.Condition{
				{Field: "priority", Op: models.ComparisonEq, Value: "high"},
			},
		},
		Actions: []models.WorkflowAction{
			{ActionType: models.ActionSendNotification, OrderIndex: 0},
		},
	})

	result, err := simulator.DryRun(t.Context(), "org-1", definition.ID, map[string]any{
		"priority": "low",
		"entityId": "lead-42",
	})
	require.NoError(t, err)

	assert.False(t, result.Matched)
	assert.Zero(t, result.PredictedActionCount)
	assert.Empty(t, result.TargetEntities)
}

func TestSimulator_MissingEntityIDFallsBackToUnknown(t *testing.T) {
	simulator, store := newSimulatorFixture(t)

	definition := &models.Workflow{
		OrganizationID: "org-1",
		Name:           "Catch-all flow",
		Trigger:        models.WorkflowTrigger{EventType: "lead_created", Source: "api"},
	}
	publishDefinition(t, store, definition, &models.WorkflowVersion{
		ConditionTree: &models.ConditionNode{Operator: models.ConditionOperatorAnd},
		Actions: []models.WorkflowAction{
			{ActionType: models.ActionApplyLabel, OrderIndex: 0},
		},
	})

	result, err := simulator.DryRun(t.Context(), "org-1", definition.ID, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, []string{"unknown"}, result.TargetEntities)
}

func TestSimulator_UnknownWorkflow(t *testing.T) {
	simulator, _ := newSimulatorFixture(t)

	_, err := simulator.DryRun(t.Context(), "org-1", uuid.New().String(), map[string]any{})
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestSimulator_RequiresPublishedVersion(t *testing.T) {
	simulator, store := newSimulatorFixture(t)

	definition := &models.Workflow{
		ID:             uuid.New().String(),
		OrganizationID: "org-1",
		Name:           "Draft only",
		Status:         models.WorkflowStatusDraft,
		Trigger:        models.WorkflowTrigger{EventType: "lead_created", Source: "api", IsEnabled: true},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.WorkflowRepository().SaveWorkflow(t.Context(), definition))

	_, err := simulator.DryRun(t.Context(), "org-1", definition.ID, map[string]any{})
	assert.ErrorIs(t, err, persistence.ErrPublishedVersionNotFound)
}
