// Package web provides HTTP handlers for rule management, execution history and event ingest.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RuleFirer runs a rule on demand.
type RuleFirer interface {
	FireRule(ctx context.Context, ruleID string, payload map[string]any) (engine.RuleOutcome, error)
}

// EventSource accepts assessment payloads for publishing.
type EventSource interface {
	Publish(ctx context.Context, trigger models.TriggerKind, payload map[string]any) (*events.AssessmentEvent, error)
}

type APIHandlers struct {
	ruleService      *services.Rule
	executionService *services.Execution
	firer            RuleFirer
	source           EventSource
	validator        *validator.Validate
}

func NewAPIHandlers(
	ruleService *services.Rule,
	executionService *services.Execution,
	firer RuleFirer,
	source EventSource,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		ruleService:      ruleService,
		executionService: executionService,
		firer:            firer,
		source:           source,
		validator:        validator,
	}
}

// Routes registers every endpoint of the API on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	r := router.Group("/rules")
	r.Get("/", h.GetRules)
	r.Post("/", h.CreateRule)
	r.Get("/:id", h.GetRule)
	r.Patch("/:id", h.UpdateRule)
	r.Delete("/:id", h.DeleteRule)
	r.Post("/:id/enable", h.EnableRule)
	r.Post("/:id/disable", h.DisableRule)
	r.Post("/:id/fire", h.FireRule)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)

	router.Post("/events/:trigger", h.IngestEvent)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	req, err := parseListRulesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.ruleService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func parseListRulesRequest(c fiber.Ctx) (*services.ListRulesRequest, error) {
	req := &services.ListRulesRequest{}

	limit, offset, err := parsePage(c)
	if err != nil {
		return nil, err
	}

	req.Limit, req.Offset = limit, offset

	if triggerStr := c.Query("trigger"); triggerStr != "" {
		trigger := models.TriggerKind(triggerStr)
		req.Trigger = &trigger
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.Active = &active
	}

	return req, nil
}

func parsePage(c fiber.Ctx) (int, int, error) {
	var limit, offset int

	if limitStr := c.Query("limit"); limitStr != "" {
		value, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = value
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		value, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}

		offset = value
	}

	return limit, offset, nil
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, warnings, err := h.ruleService.Create(c.Context(), req.Rule())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RuleResponse{WorkflowRule: created, Warnings: warnings})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.ruleService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	var req UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, warnings, err := h.ruleService.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(RuleResponse{WorkflowRule: updated, Warnings: warnings})
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	if err := h.ruleService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EnableRule(c fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *APIHandlers) DisableRule(c fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *APIHandlers) setActive(c fiber.Ctx, active bool) error {
	rule, err := h.ruleService.SetActive(c.Context(), c.Params("id"), active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

// FireRule runs a rule once against the payload in the body, bypassing deduplication.
func (h *APIHandlers) FireRule(c fiber.Ctx) error {
	var req FireRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.firer.FireRule(c.Context(), c.Params("id"), req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(FireRuleResponse{RuleOutcome: outcome})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	limit, offset, err := parsePage(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	req := services.ListExecutionsRequest{
		RuleID: c.Query("rule_id"),
		Limit:  limit,
		Offset: offset,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExecutionStatus(statusStr)
		req.Status = &status
	}

	result, err := h.executionService.List(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// IngestEvent validates the body as the payload of the trigger in the path and publishes it.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var payload map[string]any
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	event, err := h.source.Publish(c.Context(), models.TriggerKind(c.Params("trigger")), payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(EventAcceptedResponse{EventID: event.ID, Trigger: event.Trigger})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.ruleService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "hireflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "hireflow API is healthy"
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
