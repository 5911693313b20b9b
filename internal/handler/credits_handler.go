package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
)

type CreditsHandler struct {
	creditsService *service.CreditsService
}

func NewCreditsHandler(creditsService *service.CreditsService) *CreditsHandler {
	return &CreditsHandler{
		creditsService: creditsService,
	}
}

func parseMessID(c *fiber.Ctx) (uint, error) {
	messID, err := strconv.ParseUint(c.Params("messId"), 10, 32)
	if err != nil {
		return 0, models.NewInvalidArgument("invalid mess ID")
	}
	return uint(messID), nil
}

func (h *CreditsHandler) GetAccount(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	account, err := h.creditsService.GetAccount(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	// Warnings ride along with the account; they never block anything.
	data := fiber.Map{"account": account}
	if warning := h.creditsService.LowCreditWarning(account); warning != nil {
		data["low_credit_warning"] = warning
	}

	return c.JSON(models.SuccessResponse(data, ""))
}

func (h *CreditsHandler) CheckNewUser(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	sufficiency, err := h.creditsService.CheckSufficientForOneMore(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(sufficiency, ""))
}

func (h *CreditsHandler) ToggleAutoRenewal(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req models.AutoRenewalRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}

	account, err := h.creditsService.ToggleAutoRenewal(messID, ownerID, req.Enabled)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(account, "Auto renewal updated"))
}

func (h *CreditsHandler) ListTransactions(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	transactions, err := h.creditsService.ListTransactions(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(transactions, ""))
}
