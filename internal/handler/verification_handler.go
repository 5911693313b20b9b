package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
	"github.com/messmate/messmate-backend/pkg/utils"
)

type VerificationHandler struct {
	verificationService *service.VerificationService
	validator           *utils.Validator
}

func NewVerificationHandler(verificationService *service.VerificationService, validator *utils.Validator) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		validator:           validator,
	}
}

func (h *VerificationHandler) Submit(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.SubmitVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	request, err := h.verificationService.Submit(
		userID, req.MessID, req.MealPlanID,
		req.Amount, req.PaymentMethod, req.PaymentScreenshotRef,
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(request, "Verification request submitted"))
}

func (h *VerificationHandler) ListForOwner(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := strconv.ParseUint(c.Query("messId"), 10, 32)
	if err != nil {
		return writeError(c, models.NewInvalidArgument("messId query parameter is required"))
	}

	requests, err := h.verificationService.ListForOwner(uint(messID), ownerID, c.Query("status"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(requests, ""))
}

func (h *VerificationHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	requests, err := h.verificationService.ListForUser(userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(requests, ""))
}

func (h *VerificationHandler) Resolve(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	requestID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request ID"))
	}

	var req models.ResolveVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	request, err := h.verificationService.Resolve(uint(requestID), ownerID, req.Status, req.RejectionReason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(request, "Verification request resolved"))
}

func (h *VerificationHandler) GetStats(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	stats, err := h.verificationService.GetStats(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(stats, ""))
}
