package workflow

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cadenza-io/cadenza/pkg/dispatch"
	"github.com/cadenza-io/cadenza/pkg/eventbus"
	"github.com/cadenza-io/cadenza/pkg/events"
	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/otelhelper"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Loop-prevention guard constants. The trailing window is measured from the
// moment of evaluation, not bucket-aligned.
const (
	loopPreventionWindow = time.Hour
	loopPreventionNode   = "loop_prevention"
	loopPreventionError  = "Max executions per entity/time window reached"
)

// Coordinator drives event execution: it selects candidate workflows,
// applies the loop-prevention guard, evaluates conditions, dispatches or
// simulates actions and appends one immutable execution log per workflow per
// event. One workflow's failure never blocks its siblings.
type Coordinator struct {
	persistence persistence.Persistence
	dispatcher  *dispatch.Dispatcher
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	guards      entityGuards

	now func() time.Time // test seam
}

func NewCoordinator(
	persistence persistence.Persistence,
	dispatcher *dispatch.Dispatcher,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	tracer trace.Tracer,
) *Coordinator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("cadenza")
	}

	return &Coordinator{
		persistence: persistence,
		dispatcher:  dispatcher,
		publisher:   publisher,
		logger:      logger,
		tracer:      tracer,
		guards:      entityGuards{locks: make(map[string]*entityGuard)},
		now:         time.Now,
	}
}

// ExecuteEvent processes one inbound domain event against every subscribed
// published workflow of the organization and returns the per-workflow
// outcomes. Unknown event types match zero workflows and are not an error.
func (c *Coordinator) ExecuteEvent(ctx context.Context, event models.Event, actorUserID string) (*models.EventSummary, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "workflow.execute_event",
		attribute.String(otelhelper.OrganizationIDKey, event.OrganizationID),
		attribute.String(otelhelper.TriggerEventKey, event.EventType),
		attribute.String(otelhelper.EntityTypeKey, event.EntityType),
		attribute.String(otelhelper.EntityIDKey, event.EntityID),
	)
	defer span.End()

	candidates, err := c.persistence.WorkflowRepository().ListByTrigger(ctx, event.OrganizationID, event.EventType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	summary := &models.EventSummary{
		EventType:         event.EventType,
		EntityType:        event.EntityType,
		EntityID:          event.EntityID,
		ExecutedWorkflows: make([]models.WorkflowOutcome, 0, len(candidates)),
	}

	for _, candidate := range candidates {
		outcome := c.processWorkflow(ctx, candidate, event, actorUserID)
		if outcome == nil {
			// No live version or outside the activation window: no log entry.
			continue
		}

		summary.ExecutedWorkflows = append(summary.ExecutedWorkflows, *outcome)
	}

	return summary, nil
}

func (c *Coordinator) processWorkflow(ctx context.Context, definition *models.Workflow, event models.Event, actorUserID string) *models.WorkflowOutcome {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "workflow.process",
		attribute.String(otelhelper.WorkflowIDKey, definition.ID),
	)
	defer span.End()

	version := c.resolveVersion(ctx, definition)
	if version == nil {
		return nil
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowVersionIDKey, version.ID))

	// The guard serializes count-and-append per workflow/entity pair so two
	// concurrent events cannot both read a stale count and bypass the cap.
	unlock := c.guards.acquire(definition.ID + "|" + event.EntityType + "|" + event.EntityID)
	defer unlock()

	now := c.now()

	// Loop prevention runs strictly before condition evaluation: the count
	// is keyed on the target entity, not on match outcome, so a recursive
	// trigger cycle is cut off even when the condition would not match.
	count, err := c.persistence.ExecutionLogRepository().CountSince(
		ctx, definition.ID, event.EntityType, event.EntityID, now.Add(-loopPreventionWindow))
	if err != nil {
		otelhelper.SetError(span, err)

		return c.failedOutcome(ctx, definition, "failed to count executions: "+err.Error())
	}

	if uint(count) >= definition.MaxExecutionsPerHour {
		entry := c.newLogEntry(definition, version, event)
		entry.Status = models.ExecutionStatusBlocked
		entry.RulePath = []models.RuleTraceEntry{{Node: loopPreventionNode, Matched: false}}
		entry.ErrorMessage = loopPreventionError

		if err := c.appendLog(ctx, entry); err != nil {
			return c.failedOutcome(ctx, definition, err.Error())
		}

		span.SetAttributes(attribute.String(otelhelper.ExecutionStatusKey, string(models.ExecutionStatusBlocked)))

		return &models.WorkflowOutcome{
			WorkflowID: definition.ID,
			Status:     string(models.ExecutionStatusBlocked),
			Reason:     loopPreventionNode,
		}
	}

	matched, rulePath := Evaluate(version.ConditionTree, event.Payload)

	if !matched {
		entry := c.newLogEntry(definition, version, event)
		entry.Status = models.ExecutionStatusSkipped
		entry.RulePath = rulePath

		if err := c.appendLog(ctx, entry); err != nil {
			return c.failedOutcome(ctx, definition, err.Error())
		}

		span.SetAttributes(attribute.String(otelhelper.ExecutionStatusKey, string(models.ExecutionStatusSkipped)))

		return &models.WorkflowOutcome{
			WorkflowID: definition.ID,
			Status:     string(models.ExecutionStatusSkipped),
		}
	}

	actionResults, dispatchErr := c.runActions(ctx, definition, version, event, actorUserID)
	if dispatchErr != nil {
		otelhelper.SetError(span, dispatchErr, attribute.String(otelhelper.WorkflowIDKey, definition.ID))

		entry := c.newLogEntry(definition, version, event)
		entry.Status = models.ExecutionStatusFailed
		entry.RulePath = rulePath
		entry.ErrorMessage = dispatchErr.Error()

		if err := c.appendLog(ctx, entry); err != nil {
			return c.failedOutcome(ctx, definition, err.Error())
		}

		return &models.WorkflowOutcome{
			WorkflowID: definition.ID,
			Status:     string(models.ExecutionStatusFailed),
			Error:      dispatchErr.Error(),
		}
	}

	entry := c.newLogEntry(definition, version, event)
	entry.Status = models.ExecutionStatusSuccess
	entry.RulePath = rulePath
	entry.ActionResults = actionResults

	if err := c.appendLog(ctx, entry); err != nil {
		return c.failedOutcome(ctx, definition, err.Error())
	}

	status := string(models.ExecutionStatusSuccess)
	if definition.DryRunEnabled {
		status = "dry_run"
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionStatusKey, status))

	eventbus.PublishBestEffort(ctx, c.logger, c.publisher, definition.ID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, definition.OrganizationID, definition.ID),
		ExecutionID: entry.ID,
		EntityType:  event.EntityType,
		EntityID:    event.EntityID,
		Status:      status,
		DryRun:      definition.DryRunEnabled,
	})

	return &models.WorkflowOutcome{
		WorkflowID:  definition.ID,
		Status:      status,
		ActionCount: len(actionResults),
	}
}

// resolveVersion returns the live published version, or nil when the
// workflow has none or its activation window excludes now.
func (c *Coordinator) resolveVersion(ctx context.Context, definition *models.Workflow) *models.WorkflowVersion {
	if definition.PublishedVersionID == "" {
		return nil
	}

	version, err := c.persistence.WorkflowRepository().GetVersionByID(ctx, definition.PublishedVersionID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve published version",
			"workflow_id", definition.ID, "version_id", definition.PublishedVersionID, "error", err)

		return nil
	}

	if version == nil || version.Status != models.VersionStatusPublished || !version.IsActiveAt(c.now()) {
		return nil
	}

	return version
}

// runActions dispatches the version's actions in ascending orderIndex order,
// or synthesizes dry-run results without touching the dispatcher. The first
// dispatch error aborts the remaining actions.
func (c *Coordinator) runActions(ctx context.Context, definition *models.Workflow, version *models.WorkflowVersion, event models.Event, actorUserID string) ([]models.ActionResult, error) {
	ordered := make([]models.WorkflowAction, len(version.Actions))
	copy(ordered, version.Actions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	results := make([]models.ActionResult, 0, len(ordered))

	if definition.DryRunEnabled {
		for _, action := range ordered {
			results = append(results, models.ActionResult{
				ActionType: action.ActionType,
				Status:     models.ActionResultDryRun,
			})
		}

		return results, nil
	}

	for _, action := range ordered {
		result, err := c.dispatcher.Dispatch(ctx, action, event, actorUserID)
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, nil
}

func (c *Coordinator) newLogEntry(definition *models.Workflow, version *models.WorkflowVersion, event models.Event) *models.ExecutionLog {
	return &models.ExecutionLog{
		ID:                uuid.New().String(),
		OrganizationID:    event.OrganizationID,
		WorkflowID:        definition.ID,
		WorkflowVersionID: version.ID,
		TriggerEvent:      event.EventType,
		EntityType:        event.EntityType,
		EntityID:          event.EntityID,
		DryRun:            definition.DryRunEnabled,
		TriggerInput:      event.Payload,
		ActionResults:     []models.ActionResult{},
		CreatedAt:         c.now().UTC(),
	}
}

// appendLog persists the execution record. A failed write is fatal for this
// workflow's processing: the log is the only record of executed side effects.
func (c *Coordinator) appendLog(ctx context.Context, entry *models.ExecutionLog) error {
	if err := c.persistence.ExecutionLogRepository().Append(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "Failed to append execution log",
			"workflow_id", entry.WorkflowID, "status", entry.Status, "error", err)

		return persistence.NewWorkflowError("AppendExecutionLog", entry.WorkflowID, err)
	}

	return nil
}

func (c *Coordinator) failedOutcome(ctx context.Context, definition *models.Workflow, message string) *models.WorkflowOutcome {
	c.logger.ErrorContext(ctx, "Workflow processing failed", "workflow_id", definition.ID, "error", message)

	return &models.WorkflowOutcome{
		WorkflowID: definition.ID,
		Status:     string(models.ExecutionStatusFailed),
		Error:      message,
	}
}

// entityGuards hands out one mutex per workflow/entity pair. A safety
// backstop, not a billing-grade lock. Guards are refcounted and dropped from
// the map once the last holder releases, since entity IDs are unbounded.
type entityGuards struct {
	mu    sync.Mutex
	locks map[string]*entityGuard
}

type entityGuard struct {
	mu   sync.Mutex
	refs int
}

func (g *entityGuards) acquire(key string) func() {
	g.mu.Lock()

	guard, ok := g.locks[key]
	if !ok {
		guard = &entityGuard{}
		g.locks[key] = guard
	}

	guard.refs++
	g.mu.Unlock()

	guard.mu.Lock()

	return func() {
		guard.mu.Unlock()

		g.mu.Lock()

		guard.refs--
		if guard.refs == 0 {
			delete(g.locks, key)
		}

		g.mu.Unlock()
	}
}
