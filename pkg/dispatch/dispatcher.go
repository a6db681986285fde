// Package dispatch maps workflow actions onto external collaborators: the
// notification queue, the ticket subsystem, the audit log and the
// media-processing queue. The dispatcher itself holds no state.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cadenza-io/cadenza/pkg/audit"
	"github.com/cadenza-io/cadenza/pkg/config"
	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/queues"
	"github.com/cadenza-io/cadenza/pkg/support"
)

// ErrEndpointNotAllowed is returned when invoke_internal_endpoint names a
// path outside the allow-list. The coordinator surfaces it as the workflow's
// failed status.
var ErrEndpointNotAllowed = errors.New("internal endpoint is not allowlisted")

// AuditLabelAction is the audit action recorded when apply_label tags an entity.
const AuditLabelAction = "workflow.label.applied"

type Dispatcher struct {
	notifications queues.NotificationProducer
	mediaJobs     queues.MediaJobProducer
	tickets       support.TicketCreator
	auditor       audit.Recorder
	config        config.DispatchConfig
	logger        *slog.Logger
}

func NewDispatcher(
	notifications queues.NotificationProducer,
	mediaJobs queues.MediaJobProducer,
	tickets support.TicketCreator,
	auditor audit.Recorder,
	cfg config.DispatchConfig,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		mediaJobs:     mediaJobs,
		tickets:       tickets,
		auditor:       auditor,
		config:        cfg,
		logger:        logger,
	}
}

// Dispatch executes one action against its collaborator and returns the
// recorded result. Collaborator failures propagate; the caller converts them
// into a failed execution log. Action types that pass validation but are not
// handled here yield a skipped result rather than an error.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.WorkflowAction, event models.Event, actorUserID string) (models.ActionResult, error) {
	switch action.ActionType {
	case models.ActionSendNotification:
		return d.sendNotification(ctx, action, event, actorUserID)
	case models.ActionCreateTicket:
		return d.createTicket(ctx, action, event)
	case models.ActionApplyLabel:
		return d.applyLabel(ctx, action, event, actorUserID)
	case models.ActionEnqueueJob:
		return d.enqueueJob(ctx, action, event, actorUserID)
	case models.ActionInvokeInternalEndpoint:
		return d.invokeInternalEndpoint(action)
	default:
		d.logger.WarnContext(ctx, "Unsupported action type reached dispatch",
			"action_type", action.ActionType, "workflow_event", event.EventType)

		return models.ActionResult{ActionType: action.ActionType, Status: models.ActionResultSkipped}, nil
	}
}

func (d *Dispatcher) sendNotification(ctx context.Context, action models.WorkflowAction, event models.Event, actorUserID string) (models.ActionResult, error) {
	recipient := action.ConfigString("recipientUserId", actorUserID)
	if recipient == "" {
		recipient = d.config.DefaultRecipient
	}

	notification := queues.Notification{
		RecipientUserID: recipient,
		Channel:         action.ConfigString("channel", d.config.DefaultChannel),
		Template:        action.ConfigString("template", d.config.NotificationTemplate),
		Variables: map[string]any{
			"eventType": event.EventType,
			"entityId":  event.EntityID,
		},
	}

	if err := d.notifications.EnqueueNotification(ctx, notification); err != nil {
		return models.ActionResult{}, err
	}

	return executed(action), nil
}

func (d *Dispatcher) createTicket(ctx context.Context, action models.WorkflowAction, event models.Event) (models.ActionResult, error) {
	request := support.TicketRequest{
		OrganizationID: event.OrganizationID,
		Title:          action.ConfigString("title", fmt.Sprintf("Workflow generated ticket for %s", event.EventType)),
		Description:    action.ConfigString("description", fmt.Sprintf("Automated workflow ticket for %s:%s", event.EntityType, event.EntityID)),
		Severity:       action.ConfigString("severity", "p2"),
		Source:         "api",
	}

	if _, err := d.tickets.CreateTicket(ctx, request); err != nil {
		return models.ActionResult{}, err
	}

	return executed(action), nil
}

func (d *Dispatcher) applyLabel(ctx context.Context, action models.WorkflowAction, event models.Event, actorUserID string) (models.ActionResult, error) {
	// Labeling tags the entity in the audit history, never mutates the
	// target entity itself.
	entry := &models.AuditLog{
		OrganizationID: event.OrganizationID,
		ActorUserID:    actorUserID,
		EntityType:     event.EntityType,
		EntityID:       event.EntityID,
		Action:         AuditLabelAction,
		Metadata: map[string]any{
			"label": action.ConfigString("label", "workflow-labeled"),
		},
	}

	if err := d.auditor.Record(ctx, entry); err != nil {
		return models.ActionResult{}, err
	}

	return executed(action), nil
}

func (d *Dispatcher) enqueueJob(ctx context.Context, action models.WorkflowAction, event models.Event, actorUserID string) (models.ActionResult, error) {
	queue := action.ConfigString("queue", "notifications")

	if queue == d.config.MediaQueue {
		job := queues.MediaJob{
			AssetID:   action.ConfigString("assetId", event.EntityID),
			SourceURL: action.ConfigString("sourceUrl", "https://example.com/source.jpg"),
			Operation: action.ConfigString("operation", "metadata"),
		}

		if err := d.mediaJobs.EnqueueMediaJob(ctx, job); err != nil {
			return models.ActionResult{}, err
		}

		return executed(action), nil
	}

	recipient := action.ConfigString("recipientUserId", actorUserID)
	if recipient == "" {
		recipient = "workflow-system"
	}

	notification := queues.Notification{
		RecipientUserID: recipient,
		Channel:         action.ConfigString("channel", d.config.DefaultChannel),
		Template:        action.ConfigString("template", d.config.JobTemplate),
		Variables: map[string]any{
			"queue":    queue,
			"entityId": event.EntityID,
		},
	}

	if err := d.notifications.EnqueueNotification(ctx, notification); err != nil {
		return models.ActionResult{}, err
	}

	return executed(action), nil
}

func (d *Dispatcher) invokeInternalEndpoint(action models.WorkflowAction) (models.ActionResult, error) {
	endpoint := action.ConfigString("path", "")

	if !slices.Contains(d.config.AllowedEndpoints, endpoint) {
		return models.ActionResult{}, fmt.Errorf("%w: %s", ErrEndpointNotAllowed, endpoint)
	}

	result := executed(action)
	result.Endpoint = endpoint

	return result, nil
}

func executed(action models.WorkflowAction) models.ActionResult {
	return models.ActionResult{
		ActionType: action.ActionType,
		Status:     models.ActionResultExecuted,
	}
}
