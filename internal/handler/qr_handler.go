package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/service"
	"github.com/messmate/messmate-backend/pkg/utils"
)

type QRHandler struct {
	qrService *service.QRService
	validator *utils.Validator
}

func NewQRHandler(qrService *service.QRService, validator *utils.Validator) *QRHandler {
	return &QRHandler{
		qrService: qrService,
		validator: validator,
	}
}

func (h *QRHandler) Generate(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.GenerateQRRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	token, err := h.qrService.Issue(req.MessID, ownerID, req.ForceRegenerate)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(token, ""))
}

func (h *QRHandler) Revoke(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.GenerateQRRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	if err := h.qrService.Revoke(req.MessID, ownerID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(nil, "QR code revoked"))
}

func (h *QRHandler) VerifyMembership(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.VerifyMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	result, err := h.qrService.VerifyByScannee(req.QRCodeData, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(result, ""))
}

func (h *QRHandler) VerifyByOwner(c *fiber.Ctx) error {
	ownerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.VerifyByOwnerRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, models.NewInvalidArgument("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return writeError(c, models.NewInvalidArgument(err.Error()))
	}

	result, err := h.qrService.VerifyByOwner(req.MessID, ownerID, req.TargetUserID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(models.SuccessResponse(result, ""))
}
