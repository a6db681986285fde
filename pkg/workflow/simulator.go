package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
)

// DryRunResult reports what a workflow would have done for a hypothetical
// trigger payload. Nothing is persisted and no actions are dispatched.
type DryRunResult struct {
	WorkflowID           string                  `json:"workflow_id"`
	WorkflowVersionID    string                  `json:"workflow_version_id"`
	Matched              bool                    `json:"matched"`
	DryRun               bool                    `json:"dry_run"`
	PredictedActionCount int                     `json:"predicted_action_count"`
	TargetEntities       []string                `json:"target_entities"`
	RulePath             []models.RuleTraceEntry `json:"rule_path"`
}

// Simulator answers "what would this workflow do" questions against the
// published version, without side effects. Loop prevention is not consulted:
// a simulation is not an execution and leaves no log entry behind.
type Simulator struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewSimulator(persistence persistence.Persistence, logger *slog.Logger) *Simulator {
	return &Simulator{persistence: persistence, logger: logger}
}

// DryRun evaluates the workflow's published condition tree against the given
// trigger input and predicts the action plan.
func (s *Simulator) DryRun(ctx context.Context, organizationID, workflowID string, triggerInput map[string]any) (*DryRunResult, error) {
	repo := s.persistence.WorkflowRepository()

	definition, err := repo.GetByID(ctx, organizationID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for simulation: %w", err)
	}

	if definition == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	if definition.PublishedVersionID == "" {
		return nil, persistence.ErrPublishedVersionNotFound
	}

	version, err := repo.GetVersionByID(ctx, definition.PublishedVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get published version for simulation: %w", err)
	}

	if version == nil {
		return nil, persistence.ErrPublishedVersionNotFound
	}

	matched, rulePath := Evaluate(version.ConditionTree, triggerInput)

	result := &DryRunResult{
		WorkflowID:        definition.ID,
		WorkflowVersionID: version.ID,
		Matched:           matched,
		DryRun:            true,
		TargetEntities:    []string{},
		RulePath:          rulePath,
	}

	if matched {
		result.PredictedActionCount = len(version.Actions)
	}

	if result.PredictedActionCount > 0 {
		result.TargetEntities = []string{targetEntity(triggerInput)}
	}

	s.logger.InfoContext(ctx, "Simulated workflow execution",
		"workflow_id", definition.ID, "matched", matched, "predicted_actions", result.PredictedActionCount)

	return result, nil
}

func targetEntity(triggerInput map[string]any) string {
	if raw, ok := triggerInput["entityId"]; ok {
		if id := fmt.Sprintf("%v", raw); id != "" {
			return id
		}
	}

	return "unknown"
}
