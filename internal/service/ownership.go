package service

import (
	"errors"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"gorm.io/gorm"
)

// checkMessOwnership gates owner-only operations. Every mutation of a mess's
// credits, trial, or billing state must carry the caller's identity.
func checkMessOwnership(messRepo *repository.MessRepository, messID, ownerID uint) error {
	mess, err := messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFound("mess")
	}
	if err != nil {
		return err
	}
	if mess.OwnerID != ownerID {
		return models.NewForbidden("not the mess owner")
	}
	return nil
}
