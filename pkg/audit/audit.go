// Package audit records entries into the organization's audit history.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/google/uuid"
)

// Recorder is the audit collaborator used for apply_label dispatch and for
// definition lifecycle events.
type Recorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// Service is the persistence-backed Recorder implementation.
type Service struct {
	persistence persistence.Persistence
}

func NewService(persistence persistence.Persistence) *Service {
	return &Service{persistence: persistence}
}

func (s *Service) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.persistence.AuditLogRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry %s: %w", entry.Action, err)
	}

	return nil
}
