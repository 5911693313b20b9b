package handler

import (
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"
)

type PurchaseHandler struct {
	purchaseService *service.PurchaseService
	logger          *zap.Logger
}

func NewPurchaseHandler(purchaseService *service.PurchaseService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

func (h *PurchaseHandler) GetCreditPackages(c *fiber.Ctx) error {
	packages, err := h.purchaseService.GetCreditPackages()
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(packages, ""))
}

func (h *PurchaseHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	packageID, err := strconv.ParseUint(c.Params("packageId"), 10, 32)
	if err != nil {
		return writeError(c, models.NewInvalidArgument("invalid package ID"))
	}

	messID, err := strconv.ParseUint(c.Query("messId"), 10, 32)
	if err != nil {
		return writeError(c, models.NewInvalidArgument("messId query parameter is required"))
	}

	session, err := h.purchaseService.CreateCheckoutSession(ownerID, uint(messID), uint(packageID))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(session, ""))
}

func (h *PurchaseHandler) GetPurchaseHistory(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	messID, err := parseMessID(c)
	if err != nil {
		return writeError(c, err)
	}

	purchases, err := h.purchaseService.GetPurchaseHistory(messID, ownerID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(purchases, ""))
}

func (h *PurchaseHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("webhook signature verification failed"))
	}

	if err := h.purchaseService.HandleStripeWebhook(&event); err != nil {
		h.logger.Error("stripe webhook processing failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.SendStatus(fiber.StatusOK)
}
