package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"policy-engine/internal/repository"
	"policy-engine/internal/services"
	"policy-engine/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type EvaluationHandler struct {
	evaluationService *services.TriggerEvaluationService
	evalLogRepo       *repository.EvaluationLogRepository
}

func NewEvaluationHandler(evaluationService *services.TriggerEvaluationService, evalLogRepo *repository.EvaluationLogRepository) *EvaluationHandler {
	return &EvaluationHandler{
		evaluationService: evaluationService,
		evalLogRepo:       evalLogRepo,
	}
}

func (h *EvaluationHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy-engine/protected/api/v1")

	evalGr := protectedGr.Group("/evaluations")
	evalGr.Post("/run/:policyId", h.RunPolicyEvaluation)
	evalGr.Get("/by-policy/:policyId", h.GetEvaluationLogs)
}

// RunPolicyEvaluation triggers an out-of-schedule evaluation for one policy,
// typically after a telemetry backfill.
func (h *EvaluationHandler) RunPolicyEvaluation(c fiber.Ctx) error {
	policyID, err := uuid.Parse(c.Params("policyId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid policy ID format"))
	}

	if err := h.evaluationService.EvaluatePolicy(c.Context(), policyID); err != nil {
		slog.Error("Manual evaluation failed", "policy_id", policyID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse("evaluation completed"))
}

func (h *EvaluationHandler) GetEvaluationLogs(c fiber.Ctx) error {
	policyID, err := uuid.Parse(c.Params("policyId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid policy ID format"))
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	logs, err := h.evalLogRepo.GetByRegisteredPolicyID(c.Context(), policyID, limit)
	if err != nil {
		slog.Error("Failed to get evaluation logs", "policy_id", policyID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve evaluation logs"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"evaluations": logs,
		"count":       len(logs),
		"policy_id":   policyID,
	}))
}
