package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
)

// ExecutionLogRepository stores one JSON array per workflow under
// executions/<workflowID>.json. Entries are append-only.
type ExecutionLogRepository struct {
	root string
	mu   *sync.RWMutex
}

func (er *ExecutionLogRepository) Append(_ context.Context, entry *models.ExecutionLog) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	entries, err := er.readEntries(entry.WorkflowID)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	return er.writeEntries(entry.WorkflowID, entries)
}

func (er *ExecutionLogRepository) CountSince(_ context.Context, workflowID, entityType, entityID string, since time.Time) (int, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entries, err := er.readEntries(workflowID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, entry := range entries {
		if entry.EntityType == entityType && entry.EntityID == entityID && !entry.CreatedAt.Before(since) {
			count++
		}
	}

	return count, nil
}

func (er *ExecutionLogRepository) ListByWorkflow(_ context.Context, organizationID, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	entries, err := er.readEntries(workflowID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.ExecutionLog, 0, len(entries))

	for _, entry := range entries {
		if entry.OrganizationID == organizationID {
			filtered = append(filtered, entry)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return filtered, nil
}

func (er *ExecutionLogRepository) entriesPath(workflowID string) string {
	return filepath.Clean(path.Join(er.root, "executions", workflowID+".json"))
}

func (er *ExecutionLogRepository) readEntries(workflowID string) ([]*models.ExecutionLog, error) {
	body, err := os.ReadFile(er.entriesPath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ExecutionLog{}, nil
		}

		return nil, fmt.Errorf("failed to read execution log for workflow %s: %w", workflowID, err)
	}

	var entries []*models.ExecutionLog

	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution log for workflow %s: %w", workflowID, err)
	}

	return entries, nil
}

func (er *ExecutionLogRepository) writeEntries(workflowID string, entries []*models.ExecutionLog) error {
	if err := os.MkdirAll(path.Join(er.root, "executions"), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution log for workflow %s: %w", workflowID, err)
	}

	return os.WriteFile(er.entriesPath(workflowID), data, 0600)
}
