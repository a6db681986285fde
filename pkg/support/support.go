// Package support is the ticket-creation collaborator boundary.
package support

import (
	"context"
	"time"

	"github.com/cadenza-io/cadenza/pkg/eventbus"
	"github.com/cadenza-io/cadenza/pkg/events"
	"github.com/google/uuid"
)

// TicketRequest describes a ticket to open on behalf of an organization.
type TicketRequest struct {
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Severity       string `json:"severity"`
	Source         string `json:"source"`
}

// Ticket is the created ticket as acknowledged by the support subsystem.
type Ticket struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Severity       string    `json:"severity"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// TicketCreator is the collaborator interface the dispatcher calls. Failures
// propagate as dispatch errors.
type TicketCreator interface {
	CreateTicket(ctx context.Context, request TicketRequest) (*Ticket, error)
}

// Service hands tickets to the support subsystem over the event bus.
type Service struct {
	publisher eventbus.EventPublisher
}

func NewService(publisher eventbus.EventPublisher) *Service {
	return &Service{publisher: publisher}
}

func (s *Service) CreateTicket(ctx context.Context, request TicketRequest) (*Ticket, error) {
	ticket := &Ticket{
		ID:             uuid.New().String(),
		OrganizationID: request.OrganizationID,
		Title:          request.Title,
		Description:    request.Description,
		Severity:       request.Severity,
		Source:         request.Source,
		CreatedAt:      time.Now().UTC(),
	}

	event := events.TicketCreated{
		BaseEvent: events.NewBaseEvent(events.TicketCreatedEvent, request.OrganizationID, ""),
		TicketID:  ticket.ID,
		Title:     ticket.Title,
		Severity:  ticket.Severity,
		Source:    ticket.Source,
	}

	if err := s.publisher.Publish(ctx, ticket.ID, event); err != nil {
		return nil, err
	}

	return ticket, nil
}
