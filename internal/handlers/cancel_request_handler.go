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

type CancelRequestHandler struct {
	cancelRequestService *services.CancelRequestService
}

func NewCancelRequestHandler(cancelRequestService *services.CancelRequestService) *CancelRequestHandler {
	return &CancelRequestHandler{cancelRequestService: cancelRequestService}
}

func (h *CancelRequestHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy-engine/protected/api/v1")

	cancelRequestGr := protectedGr.Group("/cancel-requests")
	cancelRequestGr.Post("/", h.CreateNewRequest)
	cancelRequestGr.Get("/pending", h.GetPendingRequests)
	cancelRequestGr.Get("/:id", h.GetByID)
	cancelRequestGr.Put("/:id/review", h.ReviewCancelRequest)
	cancelRequestGr.Put("/:id/dispute", h.OpenDispute)
	cancelRequestGr.Put("/:id/resolve-dispute", h.ResolveDispute)
	cancelRequestGr.Get("/by-policy/:policyId", h.GetByPolicyID)
}

func (h *CancelRequestHandler) CreateNewRequest(c fiber.Ctx) error {
	var req models.CreateCancelRequestRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	policyID, err := uuid.Parse(c.Query("policy_id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid policy ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	res, err := h.cancelRequestService.CreateCancelRequest(c.Context(), policyID, &req, userID)
	if err != nil {
		slog.Error("error creating cancel request", "policy_id", policyID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) GetByID(c fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid cancel request ID format"))
	}

	request, err := h.cancelRequestService.GetByID(c.Context(), requestID)
	if err != nil {
		slog.Error("Failed to get cancel request", "request_id", requestID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "Cancel request not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(request))
}

func (h *CancelRequestHandler) GetByPolicyID(c fiber.Ctx) error {
	policyID, err := uuid.Parse(c.Params("policyId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid policy ID format"))
	}

	requests, err := h.cancelRequestService.GetByRegisteredPolicyID(c.Context(), policyID)
	if err != nil {
		slog.Error("Failed to get cancel requests", "policy_id", policyID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve requests"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"requests":  requests,
		"count":     len(requests),
		"policy_id": policyID,
	}))
}

func (h *CancelRequestHandler) GetPendingRequests(c fiber.Ctx) error {
	requests, err := h.cancelRequestService.GetPendingRequests(c.Context())
	if err != nil {
		slog.Error("Failed to get pending cancel requests", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve requests"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"requests": requests,
		"count":    len(requests),
	}))
}

func (h *CancelRequestHandler) ReviewCancelRequest(c fiber.Ctx) error {
	var req models.ReviewCancelRequestReq
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid cancel request ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}
	req.RequestID = requestID
	req.ReviewedBy = userID

	res, err := h.cancelRequestService.ReviewCancelRequest(c.Context(), &req)
	if err != nil {
		slog.Error("error reviewing cancel request", "request_id", requestID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) OpenDispute(c fiber.Ctx) error {
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid cancel request ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	res, err := h.cancelRequestService.OpenDispute(c.Context(), requestID, userID)
	if err != nil {
		slog.Error("error opening dispute", "request_id", requestID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) ResolveDispute(c fiber.Ctx) error {
	var req models.ResolveDisputeReq
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid cancel request ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}
	req.RequestID = requestID
	req.ResolvedBy = userID

	res, err := h.cancelRequestService.ResolveDispute(c.Context(), &req)
	if err != nil {
		slog.Error("error resolving dispute", "request_id", requestID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(res))
}
