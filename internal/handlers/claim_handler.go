package handlers

import (
	"log/slog"
	"net/http"

	"policy-engine/internal/models"
	"policy-engine/internal/services"
	"policy-engine/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	claimLifecycleService *services.ClaimLifecycleService
}

func NewClaimHandler(claimLifecycleService *services.ClaimLifecycleService) *ClaimHandler {
	return &ClaimHandler{claimLifecycleService: claimLifecycleService}
}

func (h *ClaimHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy-engine/protected/api/v1")

	claimGr := protectedGr.Group("/claims")
	claimGr.Get("/", h.GetClaims)
	claimGr.Get("/:id", h.GetClaimByID)
	claimGr.Get("/:id/rejection", h.GetClaimRejection)
	claimGr.Put("/:id/approve", h.ApproveClaim)
	claimGr.Put("/:id/reject", h.RejectClaim)
}

func (h *ClaimHandler) GetClaims(c fiber.Ctx) error {
	filters := map[string]interface{}{}

	if policyIDStr := c.Query("registered_policy_id"); policyIDStr != "" {
		policyID, err := uuid.Parse(policyIDStr)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("INVALID_UUID", "Invalid registered policy ID format"))
		}
		filters["registered_policy_id"] = policyID
	}

	if farmIDStr := c.Query("farm_id"); farmIDStr != "" {
		farmID, err := uuid.Parse(farmIDStr)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("INVALID_UUID", "Invalid farm ID format"))
		}
		filters["farm_id"] = farmID
	}

	if providerID := c.Query("insurance_provider_id"); providerID != "" {
		filters["insurance_provider_id"] = providerID
	}

	if status := c.Query("status"); status != "" {
		filters["status"] = models.ClaimStatus(status)
	}

	claims, err := h.claimLifecycleService.GetClaims(c.Context(), filters)
	if err != nil {
		slog.Error("Failed to get claims", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve claims"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"claims": claims,
		"count":  len(claims),
	}))
}

func (h *ClaimHandler) GetClaimByID(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	claim, err := h.claimLifecycleService.GetClaimByID(c.Context(), claimID)
	if err != nil {
		slog.Error("Failed to get claim", "claim_id", claimID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "Claim not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(claim))
}

func (h *ClaimHandler) GetClaimRejection(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	rejection, err := h.claimLifecycleService.GetRejectionByClaimID(c.Context(), claimID)
	if err != nil {
		slog.Error("Failed to get claim rejection", "claim_id", claimID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "Rejection record not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(rejection))
}

func (h *ClaimHandler) ApproveClaim(c fiber.Ctx) error {
	var req models.ReviewClaimRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}
	req.ReviewedBy = userID

	res, err := h.claimLifecycleService.ApproveClaim(c.Context(), claimID, &req)
	if err != nil {
		slog.Error("error approving claim", "claim_id", claimID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(res))
}

func (h *ClaimHandler) RejectClaim(c fiber.Ctx) error {
	var req models.RejectClaimRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	res, err := h.claimLifecycleService.RejectClaim(c.Context(), claimID, &req, userID)
	if err != nil {
		slog.Error("error rejecting claim", "claim_id", claimID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(res))
}
