// Package file provides file-based persistence for workflow definitions,
// versions, execution logs and audit entries. Suited to development and
// tests; a single process owns the root directory.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/cadenza-io/cadenza/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root          string
	mu            *sync.RWMutex
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionLogRepository
	auditRepo     *AuditLogRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given
// directory. A "file://" prefix is stripped if present.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	// One lock for the whole store: cross-file operations such as Publish
	// and CreateWithVersion must not interleave.
	mu := &sync.RWMutex{}

	return &Persistence{
		root:          cleanRoot,
		mu:            mu,
		workflowRepo:  &WorkflowRepository{root: cleanRoot, mu: mu},
		executionRepo: &ExecutionLogRepository{root: cleanRoot, mu: mu},
		auditRepo:     &AuditLogRepository{root: cleanRoot, mu: mu},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return fp.executionRepo
}

func (fp *Persistence) AuditLogRepository() persistence.AuditLogRepository {
	return fp.auditRepo
}
