package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
)

// WorkflowRepository handles workflow and version file operations. Workflows
// live under workflows/<id>.json, versions under versions/<id>.json.
type WorkflowRepository struct {
	root string
	mu   *sync.RWMutex
}

// CreateWithVersion stores a new workflow together with its first version.
// The version is written first and removed again if the workflow write fails,
// so a half-created pair is never visible through GetByID.
func (wr *WorkflowRepository) CreateWithVersion(ctx context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	existing, err := wr.readWorkflow(workflow.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		return persistence.ErrWorkflowAlreadyExists
	}

	if err := wr.writeVersion(version); err != nil {
		return err
	}

	if err := wr.writeWorkflow(workflow); err != nil {
		_ = os.Remove(wr.versionPath(version.ID))

		return err
	}

	return nil
}

// GetByID retrieves a workflow by its ID, scoped to the organization.
func (wr *WorkflowRepository) GetByID(_ context.Context, organizationID, id string) (*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	workflow, err := wr.readWorkflow(id)
	if err != nil {
		return nil, err
	}

	if workflow == nil || workflow.OrganizationID != organizationID {
		return nil, nil
	}

	return workflow, nil
}

// ListByTrigger returns the organization's published workflows subscribed to
// the event type, excluding kill-switched and trigger-disabled definitions.
func (wr *WorkflowRepository) ListByTrigger(_ context.Context, organizationID, eventType string) ([]*models.Workflow, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	all, err := wr.readAllWorkflows()
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.OrganizationID != organizationID {
			continue
		}

		if workflow.Status != models.WorkflowStatusPublished || workflow.KillSwitchEnabled {
			continue
		}

		if !workflow.Trigger.IsEnabled || workflow.Trigger.EventType != eventType {
			continue
		}

		matches = append(matches, workflow)
	}

	return matches, nil
}

func (wr *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	return wr.writeWorkflow(workflow)
}

func (wr *WorkflowRepository) SaveVersion(_ context.Context, version *models.WorkflowVersion) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	return wr.writeVersion(version)
}

func (wr *WorkflowRepository) GetVersionByID(_ context.Context, versionID string) (*models.WorkflowVersion, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	return wr.readVersion(versionID)
}

// LatestVersion returns the workflow's version with the highest version number.
func (wr *WorkflowRepository) LatestVersion(_ context.Context, workflowID string) (*models.WorkflowVersion, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	versions, err := wr.readAllVersions()
	if err != nil {
		return nil, err
	}

	var latest *models.WorkflowVersion

	for _, version := range versions {
		if version.WorkflowID != workflowID {
			continue
		}

		if latest == nil || version.VersionNumber > latest.VersionNumber {
			latest = version
		}
	}

	return latest, nil
}

// Publish archives the currently published version (if any), publishes the
// given one and repoints the workflow, all under one lock.
func (wr *WorkflowRepository) Publish(_ context.Context, workflow *models.Workflow, version *models.WorkflowVersion) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if workflow.PublishedVersionID != "" && workflow.PublishedVersionID != version.ID {
		previous, err := wr.readVersion(workflow.PublishedVersionID)
		if err != nil {
			return err
		}

		if previous != nil {
			previous.Status = models.VersionStatusArchived

			if err := wr.writeVersion(previous); err != nil {
				return fmt.Errorf("failed to archive version %s: %w", previous.ID, err)
			}
		}
	}

	version.Status = models.VersionStatusPublished

	if err := wr.writeVersion(version); err != nil {
		return err
	}

	workflow.Status = models.WorkflowStatusPublished
	workflow.PublishedVersionID = version.ID
	workflow.UpdatedAt = time.Now().UTC()

	return wr.writeWorkflow(workflow)
}

func (wr *WorkflowRepository) readWorkflow(id string) (*models.Workflow, error) {
	body, err := os.ReadFile(filepath.Clean(path.Join(wr.root, "workflows", id+".json")))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) readAllWorkflows() ([]*models.Workflow, error) {
	dir := os.DirFS(path.Join(wr.root, "workflows"))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := wr.readWorkflow(file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (wr *WorkflowRepository) writeWorkflow(workflow *models.Workflow) error {
	if err := os.MkdirAll(path.Join(wr.root, "workflows"), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	return os.WriteFile(path.Join(wr.root, "workflows", workflow.ID+".json"), data, 0600)
}

func (wr *WorkflowRepository) versionPath(id string) string {
	return filepath.Clean(path.Join(wr.root, "versions", id+".json"))
}

func (wr *WorkflowRepository) readVersion(id string) (*models.WorkflowVersion, error) {
	body, err := os.ReadFile(wr.versionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch version %s: %w", id, err)
	}

	var version models.WorkflowVersion

	if err := json.Unmarshal(body, &version); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version %s: %w", id, err)
	}

	return &version, nil
}

func (wr *WorkflowRepository) readAllVersions() ([]*models.WorkflowVersion, error) {
	dir := os.DirFS(path.Join(wr.root, "versions"))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list version files: %w", err)
	}

	versions := make([]*models.WorkflowVersion, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		version, err := wr.readVersion(file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if version != nil {
			versions = append(versions, version)
		}
	}

	return versions, nil
}

func (wr *WorkflowRepository) writeVersion(version *models.WorkflowVersion) error {
	if err := os.MkdirAll(path.Join(wr.root, "versions"), 0750); err != nil {
		return fmt.Errorf("failed to create versions directory: %w", err)
	}

	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal version %s: %w", version.ID, err)
	}

	return os.WriteFile(wr.versionPath(version.ID), data, 0600)
}
