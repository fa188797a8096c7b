package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Services groups the operations the handlers expose.
type Services struct {
	Workflows *services.Workflow
	Actions   *services.Action
	Webhooks  *services.Webhook
	Runs      *services.Run
	Cloner    *services.Cloner
	Gate      *auth.Gate
}

var errInvalidJSON = errors.New("invalid JSON format")

type APIHandlers struct {
	services  Services
	validator *validator.Validate
}

func NewAPIHandlers(services Services, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		services:  services,
		validator: validator,
	}
}

// Register mounts every authenticated route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.ListWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Post("/copy", h.CopyWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/actions", h.ListActions)
	w.Post("/:id/runs", h.CreateWorkflowRun)
	w.Get("/:id/runs", h.ListWorkflowRuns)

	a := router.Group("/actions")
	a.Post("/", h.CreateAction)
	a.Get("/:id", h.GetAction)
	a.Patch("/:id", h.UpdateAction)
	a.Delete("/:id", h.DeleteAction)
	a.Get("/:id/webhook", h.GetActionWebhook)
	a.Post("/:id/runs", h.CreateActionRun)
	a.Get("/:id/runs", h.ListActionRuns)

	wh := router.Group("/webhooks")
	wh.Get("/:id", h.GetWebhook)
	wh.Post("/:id/authenticate", h.AuthenticateWebhook)

	wr := router.Group("/workflow-runs")
	wr.Get("/:id", h.GetWorkflowRun)
	wr.Patch("/:id", h.UpdateWorkflowRunStatus)

	ar := router.Group("/action-runs")
	ar.Get("/:id", h.GetActionRun)
	ar.Patch("/:id", h.UpdateActionRunStatus)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.services.Workflows.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Wirecat API is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if ok {
		status = "healthy"
		message = "Wirecat API is healthy"
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

// bind decodes and validates the JSON body into req. The returned error is the
// problem detail for a 400 response.
func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(req)
}

func queryLimit(c fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	library := false

	if raw := c.Query("library"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "Invalid library parameter: "+err.Error())
		}

		library = parsed
	}

	workflows, err := h.services.Workflows.List(c.Context(), r, library)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req services.CreateWorkflowRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.services.Workflows.Create(c.Context(), r, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	details, err := h.services.Workflows.Get(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(details)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req services.UpdateWorkflowRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.services.Workflows.Update(c.Context(), r, c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	err := h.services.Workflows.Delete(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CopyWorkflow clones a workflow into the caller's account.
func (h *APIHandlers) CopyWorkflow(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req CopyWorkflowRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	sourceOwnerID, err := h.services.Gate.CloneSource(r, req.OwnerID)
	if err != nil {
		return handleServiceError(c, err)
	}

	result, err := h.services.Cloner.CloneWorkflow(c.Context(), r, sourceOwnerID, req.WorkflowID, r.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) ListActions(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	actions, err := h.services.Actions.List(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(actions)
}

func (h *APIHandlers) CreateAction(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req services.CreateActionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	action, err := h.services.Actions.Create(c.Context(), r, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(action)
}

func (h *APIHandlers) GetAction(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	action, err := h.services.Actions.Get(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(action)
}

func (h *APIHandlers) UpdateAction(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req services.UpdateActionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	action, err := h.services.Actions.Update(c.Context(), r, c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(action)
}

func (h *APIHandlers) DeleteAction(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	err := h.services.Actions.Delete(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetActionWebhook(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	webhook, err := h.services.Webhooks.GetByAction(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(webhook)
}

func (h *APIHandlers) GetWebhook(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	webhook, err := h.services.Webhooks.Get(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(webhook)
}

func (h *APIHandlers) AuthenticateWebhook(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req AuthenticateWebhookRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.services.Webhooks.Authenticate(c.Context(), r, c.Params("id"), req.Secret)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CreateWorkflowRun(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	run, err := h.services.Runs.CreateWorkflowRun(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) ListWorkflowRuns(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit parameter: "+err.Error())
	}

	runs, err := h.services.Runs.ListWorkflowRuns(c.Context(), r, c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(runs)
}

func (h *APIHandlers) GetWorkflowRun(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	run, err := h.services.Runs.GetWorkflowRun(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) UpdateWorkflowRunStatus(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req UpdateRunStatusRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.services.Runs.UpdateWorkflowRunStatus(c.Context(), r, c.Params("id"), models.RunStatus(req.Status))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) CreateActionRun(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req CreateActionRunRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.services.Runs.CreateActionRun(c.Context(), r, c.Params("id"), req.WorkflowRunID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) ListActionRuns(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit parameter: "+err.Error())
	}

	runs, err := h.services.Runs.ListActionRuns(c.Context(), r, c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(runs)
}

func (h *APIHandlers) GetActionRun(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	run, err := h.services.Runs.GetActionRun(c.Context(), r, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) UpdateActionRunStatus(c fiber.Ctx) error {
	r, ok := RoleOf(c)
	if !ok {
		return unauthorized(c, "missing role")
	}

	var req UpdateRunStatusRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.services.Runs.UpdateActionRunStatus(c.Context(), r, c.Params("id"), models.RunStatus(req.Status))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}
