package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
)

type TrialHandler struct {
	trialService *service.TrialService
}

func NewTrialHandler(trialService *service.TrialService) *TrialHandler {
	return &TrialHandler{
		trialService: trialService,
	}
}

type activateTrialRequest struct {
	MessID       uint `json:"mess_id" validate:"required"`
	DurationDays int  `json:"duration_days"`
}

func (h *TrialHandler) CheckAvailability(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	availability, err := h.trialService.CheckAvailability(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(availability, ""))
}

func (h *TrialHandler) Activate(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req activateTrialRequest
	if err := c.BodyParser(&req); err != nil || req.MessID == 0 {
		return writeError(c, models.NewInvalidArgument("mess_id is required"))
	}

	window, err := h.trialService.Activate(req.MessID, ownerID, req.DurationDays)
	if errors.Is(err, models.ErrConflict) {
		// Already used: report the settled window so retries can stop.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Free trial has already been used",
			"data":    window,
		})
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(window, "Free trial activated"))
}
