// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/cadenza-io/cadenza/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// OrganizationHeader scopes every request to one tenant.
const OrganizationHeader = "X-Organization-Id"

// ActorHeader identifies the acting user for audit attribution.
const ActorHeader = "X-Actor-User-Id"

type APIHandlers struct {
	workflowService   *workflow.Service
	publishingService *workflow.PublishingService
	coordinator       *workflow.Coordinator
	simulator         *workflow.Simulator
	validator         *validator.Validate
}

func NewAPIHandlers(
	workflowService *workflow.Service,
	publishingService *workflow.PublishingService,
	coordinator *workflow.Coordinator,
	simulator *workflow.Simulator,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		publishingService: publishingService,
		coordinator:       coordinator,
		simulator:         simulator,
		validator:         validator,
	}
}

// GetBuilderSchema returns the catalog the workflow builder renders from:
// trigger events, operators and action types.
func (h *APIHandlers) GetBuilderSchema(c fiber.Ctx) error {
	return c.JSON(models.NewBuilderSchema())
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	conditionTree, err := decodeConditionTree(req.ConditionTree)
	if err != nil {
		return badRequest(c, "Invalid condition tree: "+err.Error())
	}

	actions := make([]models.WorkflowAction, 0, len(req.Actions))
	for _, action := range req.Actions {
		actions = append(actions, models.WorkflowAction{
			ActionType: models.ActionType(action.ActionType),
			OrderIndex: action.OrderIndex,
			Config:     action.Config,
		})
	}

	input := workflow.CreateWorkflowInput{
		OrganizationID:       organizationID,
		Name:                 req.Name,
		Description:          req.Description,
		DryRunEnabled:        req.DryRunEnabled,
		KillSwitchEnabled:    req.KillSwitchEnabled,
		MaxExecutionsPerHour: req.MaxExecutionsPerHour,
		Trigger: models.WorkflowTrigger{
			EventType: req.Trigger.EventType,
			Source:    req.Trigger.Source,
		},
		ConditionTree:      conditionTree,
		Actions:            actions,
		ActivationStartsAt: req.ActivationStartsAt,
		ActivationEndsAt:   req.ActivationEndsAt,
	}

	created, version, err := h.workflowService.Create(c.Context(), input, c.Get(ActorHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"workflow": created,
		"version":  version,
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	definition, err := h.workflowService.FetchByID(c.Context(), organizationID, id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	report, err := h.workflowService.Validate(c.Context(), organizationID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	definition, version, err := h.publishingService.Publish(c.Context(), organizationID, id, c.Get(ActorHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow": definition,
		"version":  version,
	})
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	definition, err := h.publishingService.Pause(c.Context(), organizationID, id, c.Get(ActorHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) DryRunWorkflow(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req DryRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.simulator.DryRun(c.Context(), organizationID, id, req.TriggerInput)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// IngestEvent runs an inbound domain event through every subscribed workflow
// and returns the per-workflow outcomes.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := models.Event{
		OrganizationID: organizationID,
		EventType:      req.EventType,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Payload:        req.Payload,
	}

	summary, err := h.coordinator.ExecuteEvent(c.Context(), event, c.Get(ActorHeader))
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(summary)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	organizationID := c.Get(OrganizationHeader)
	if organizationID == "" {
		return badRequest(c, "Organization header is required")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	entries, err := h.workflowService.ListExecutions(c.Context(), organizationID, id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": entries,
		"count":      len(entries),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Cadenza API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Cadenza API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// decodeConditionTree round-trips the raw tree through JSON so invalid
// operator strings survive into definition validation instead of being
// silently coerced.
func decodeConditionTree(raw any) (*models.ConditionNode, error) {
	if raw == nil {
		return nil, nil
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var node models.ConditionNode
	if err := json.Unmarshal(body, &node); err != nil {
		return nil, err
	}

	return &node, nil
}
