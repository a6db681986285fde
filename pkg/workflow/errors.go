package workflow

import (
	"errors"
	"strings"
)

// ErrActivationWindow indicates inverted activation bounds on a new definition.
var ErrActivationWindow = errors.New("activationStartsAt must be before activationEndsAt")

// DefinitionValidationError carries the structured message list produced by
// ValidateDefinition when a definition is rejected before persistence.
type DefinitionValidationError struct {
	Errors []string
}

func (e *DefinitionValidationError) Error() string {
	return "workflow validation failed: " + strings.Join(e.Errors, "; ")
}

// IsValidationError checks whether err is a definition validation failure.
func IsValidationError(err error) bool {
	var validationErr *DefinitionValidationError

	return errors.As(err, &validationErr)
}
