package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/cadenza-io/cadenza/pkg/models"
)

// AuditLogRepository stores one JSON array per organization under
// audit/<organizationID>.json.
type AuditLogRepository struct {
	root string
	mu   *sync.RWMutex
}

func (ar *AuditLogRepository) Record(_ context.Context, entry *models.AuditLog) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	entries, err := ar.readEntries(entry.OrganizationID)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	return ar.writeEntries(entry.OrganizationID, entries)
}

// ListByOrganization returns the organization's audit history in insertion order.
func (ar *AuditLogRepository) ListByOrganization(_ context.Context, organizationID string) ([]*models.AuditLog, error) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()

	return ar.readEntries(organizationID)
}

func (ar *AuditLogRepository) entriesPath(organizationID string) string {
	return filepath.Clean(path.Join(ar.root, "audit", organizationID+".json"))
}

func (ar *AuditLogRepository) readEntries(organizationID string) ([]*models.AuditLog, error) {
	body, err := os.ReadFile(ar.entriesPath(organizationID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.AuditLog{}, nil
		}

		return nil, fmt.Errorf("failed to read audit log for organization %s: %w", organizationID, err)
	}

	var entries []*models.AuditLog

	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit log for organization %s: %w", organizationID, err)
	}

	return entries, nil
}

func (ar *AuditLogRepository) writeEntries(organizationID string, entries []*models.AuditLog) error {
	if err := os.MkdirAll(path.Join(ar.root, "audit"), 0750); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log for organization %s: %w", organizationID, err)
	}

	return os.WriteFile(ar.entriesPath(organizationID), data, 0600)
}
