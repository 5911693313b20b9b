package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

func (h *BillingHandler) Preview(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	preview, err := h.billingService.CalculateMonthlyBill(messID, ownerID, time.Now())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(preview, ""))
}

func (h *BillingHandler) Generate(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	bill, err := h.billingService.GeneratePendingBill(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(bill, "Pending bill generated"))
}

func (h *BillingHandler) Pay(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	bill, err := h.billingService.PayPendingBill(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(bill, "Bill paid"))
}

func (h *BillingHandler) ProcessCycle(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.billingService.ProcessMessMonthlyBill(messID, ownerID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(nil, "Billing cycle processed"))
}
