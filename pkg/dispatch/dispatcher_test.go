package dispatch

import (
	"context"
	"log/slog"
	"testing"

	"github.com/cadenza-io/cadenza/pkg/config"
	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/queues"
	"github.com/cadenza-io/cadenza/pkg/support"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifications struct {
	sent []queues.Notification
}

func (f *fakeNotifications) EnqueueNotification(_ context.Context, notification queues.Notification) error {
	f.sent = append(f.sent, notification)

	return nil
}

type fakeMediaJobs struct {
	jobs []queues.MediaJob
}

func (f *fakeMediaJobs) EnqueueMediaJob(_ context.Context, job queues.MediaJob) error {
	f.jobs = append(f.jobs, job)

	return nil
}

type fakeTickets struct {
	requests []support.TicketRequest
}

func (f *fakeTickets) CreateTicket(_ context.Context, request support.TicketRequest) (*support.Ticket, error) {
	f.requests = append(f.requests, request)

	return &support.Ticket{ID: "ticket-1", Title: request.Title}, nil
}

type fakeAuditor struct {
	entries []*models.AuditLog
}

func (f *fakeAuditor) Record(_ context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, entry)

	return nil
}

type dispatcherFixture struct {
	dispatcher    *Dispatcher
	notifications *fakeNotifications
	mediaJobs     *fakeMediaJobs
	tickets       *fakeTickets
	auditor       *fakeAuditor
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()

	notifications := &fakeNotifications{}
	mediaJobs := &fakeMediaJobs{}
	tickets := &fakeTickets{}
	auditor := &fakeAuditor{}

	return &dispatcherFixture{
		dispatcher:    NewDispatcher(notifications, mediaJobs, tickets, auditor, config.Default().Dispatch, slog.Default()),
		notifications: notifications,
		mediaJobs:     mediaJobs,
		tickets:       tickets,
		auditor:       auditor,
	}
}

func testEvent() models.Event {
	return models.Event{
		OrganizationID: "org-1",
		EventType:      "lead_created",
		EntityType:     "Lead",
		EntityID:       "lead-42",
		Payload:        map[string]any{"priority": "high"},
	}
}

func TestDispatch_SendNotificationUsesConfigAndDefaults(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	result, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionSendNotification,
		Config:     map[string]any{"recipientUserId": "user-7", "channel": "push", "template": "welcome"},
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActionResultExecuted, result.Status)
	require.Len(t, fixture.notifications.sent, 1)

	notification := fixture.notifications.sent[0]
	assert.Equal(t, "user-7", notification.RecipientUserID)
	assert.Equal(t, "push", notification.Channel)
	assert.Equal(t, "welcome", notification.Template)
	assert.Equal(t, "lead_created", notification.Variables["eventType"])
	assert.Equal(t, "lead-42", notification.Variables["entityId"])
}

func TestDispatch_SendNotificationFallsBackToActorThenDefault(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	_, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionSendNotification,
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	_, err = fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionSendNotification,
	}, testEvent(), "")
	require.NoError(t, err)

	require.Len(t, fixture.notifications.sent, 2)
	assert.Equal(t, "actor-1", fixture.notifications.sent[0].RecipientUserID)
	assert.Equal(t, "workflow-system-recipient", fixture.notifications.sent[1].RecipientUserID)
	assert.Equal(t, "email", fixture.notifications.sent[1].Channel)
	assert.Equal(t, "workflow-event", fixture.notifications.sent[1].Template)
}

func TestDispatch_CreateTicketAppliesDefaults(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	_, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionCreateTicket,
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	require.Len(t, fixture.tickets.requests, 1)

	request := fixture.tickets.requests[0]
	assert.Equal(t, "Workflow generated ticket for lead_created", request.Title)
	assert.Equal(t, "Automated workflow ticket for Lead:lead-42", request.Description)
	assert.Equal(t, "p2", request.Severity)
	assert.Equal(t, "api", request.Source)
}

func TestDispatch_ApplyLabelRecordsAuditEntry(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	result, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionApplyLabel,
		Config:     map[string]any{"label": "vip"},
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActionResultExecuted, result.Status)
	require.Len(t, fixture.auditor.entries, 1)

	entry := fixture.auditor.entries[0]
	assert.Equal(t, "workflow.label.applied", entry.Action)
	assert.Equal(t, "Lead", entry.EntityType)
	assert.Equal(t, "lead-42", entry.EntityID)
	assert.Equal(t, "vip", entry.Metadata["label"])
}

func TestDispatch_EnqueueJobRoutesMediaQueueToMediaJobs(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	_, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionEnqueueJob,
		Config: map[string]any{
			"queue":     "media-jobs",
			"sourceUrl": "https://cdn.example.com/photo.png",
			"operation": "thumbnail",
		},
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	require.Len(t, fixture.mediaJobs.jobs, 1)
	assert.Empty(t, fixture.notifications.sent)

	job := fixture.mediaJobs.jobs[0]
	assert.Equal(t, "lead-42", job.AssetID)
	assert.Equal(t, "https://cdn.example.com/photo.png", job.SourceURL)
	assert.Equal(t, "thumbnail", job.Operation)
}

func TestDispatch_EnqueueJobDefaultsToNotificationQueue(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	_, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionEnqueueJob,
	}, testEvent(), "")
	require.NoError(t, err)

	assert.Empty(t, fixture.mediaJobs.jobs)
	require.Len(t, fixture.notifications.sent, 1)

	notification := fixture.notifications.sent[0]
	assert.Equal(t, "workflow-system", notification.RecipientUserID)
	assert.Equal(t, "workflow-job", notification.Template)
	assert.Equal(t, "notifications", notification.Variables["queue"])
}

func TestDispatch_InvokeInternalEndpointEnforcesAllowlist(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	result, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionInvokeInternalEndpoint,
		Config:     map[string]any{"path": "/health"},
	}, testEvent(), "actor-1")
	require.NoError(t, err)
	assert.Equal(t, models.ActionResultExecuted, result.Status)
	assert.Equal(t, "/health", result.Endpoint)

	_, err = fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: models.ActionInvokeInternalEndpoint,
		Config:     map[string]any{"path": "/admin/delete-everything"},
	}, testEvent(), "actor-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEndpointNotAllowed)
}

func TestDispatch_UnknownActionTypeIsSkipped(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture(t)

	result, err := fixture.dispatcher.Dispatch(t.Context(), models.WorkflowAction{
		ActionType: "teleport_entity",
	}, testEvent(), "actor-1")
	require.NoError(t, err)

	assert.Equal(t, models.ActionResultSkipped, result.Status)
	assert.Empty(t, fixture.notifications.sent)
	assert.Empty(t, fixture.tickets.requests)
}
