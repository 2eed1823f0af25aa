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

type PayoutHandler struct {
	payoutService *services.PayoutService
}

func NewPayoutHandler(payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

func (h *PayoutHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy-engine/protected/api/v1")

	payoutGr := protectedGr.Group("/payouts")
	payoutGr.Get("/:id", h.GetPayoutByID)
	payoutGr.Get("/by-claim/:claimId", h.GetPayoutByClaimID)
	payoutGr.Put("/:id/settlement", h.ConfirmSettlement)
	payoutGr.Put("/:id/confirm-receipt", h.ConfirmReceipt)

	farmerGr := payoutGr.Group("/read-own")
	farmerGr.Get("/me", h.GetMyPayouts)
}

func (h *PayoutHandler) GetPayoutByID(c fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid payout ID format"))
	}

	payout, err := h.payoutService.GetPayoutByID(c.Context(), payoutID)
	if err != nil {
		slog.Error("Failed to get payout", "payout_id", payoutID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "Payout not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(payout))
}

func (h *PayoutHandler) GetPayoutByClaimID(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("claimId"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	payout, err := h.payoutService.GetPayoutByClaimID(c.Context(), claimID)
	if err != nil {
		slog.Error("Failed to get payout by claim", "claim_id", claimID, "error", err)
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "Payout not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(payout))
}

func (h *PayoutHandler) GetMyPayouts(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	payouts, err := h.payoutService.GetPayoutsByFarmerID(c.Context(), userID)
	if err != nil {
		slog.Error("Failed to get farmer payouts", "farmer_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve payouts"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"payouts":   payouts,
		"count":     len(payouts),
		"farmer_id": userID,
	}))
}

func (h *PayoutHandler) ConfirmSettlement(c fiber.Ctx) error {
	var req models.ConfirmSettlementRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid payout ID format"))
	}
	req.PayoutID = payoutID

	if err := h.payoutService.ConfirmSettlement(c.Context(), &req); err != nil {
		slog.Error("error confirming settlement", "payout_id", payoutID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse("settlement recorded"))
}

func (h *PayoutHandler) ConfirmReceipt(c fiber.Ctx) error {
	var req struct {
		Rating   *int    `json:"rating,omitempty"`
		Feedback *string `json:"feedback,omitempty"`
	}
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid payout ID format"))
	}

	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	if err := h.payoutService.ConfirmReceiptByFarmer(c.Context(), payoutID, req.Rating, req.Feedback); err != nil {
		slog.Error("error confirming receipt", "payout_id", payoutID, "error", err)
		status, code := mapDomainError(err)
		return c.Status(status).JSON(utils.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse("receipt confirmed"))
}
