package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
)

// writeError maps domain errors to HTTP statuses. Insufficient credits gets
// its own status and a structured body so clients can render the shortfall.
func writeError(c *fiber.Ctx, err error) error {
	var insufficient *models.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"success":           false,
			"error":             "insufficient credits",
			"required_credits":  insufficient.RequiredCredits,
			"available_credits": insufficient.AvailableCredits,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, models.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(models.ErrorResponse(err.Error()))
}

func callerID(c *fiber.Ctx) (uint, error) {
	userIDRaw := c.Locals("userID")
	if userIDRaw == nil {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}
	userID, ok := userIDRaw.(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusInternalServerError, "Invalid user ID format")
	}
	return userID, nil
}
