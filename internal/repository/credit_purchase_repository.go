package repository

import (
	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type CreditPurchaseRepository struct {
	db *gorm.DB
}

func NewCreditPurchaseRepository(db *gorm.DB) *CreditPurchaseRepository {
	return &CreditPurchaseRepository{
		db: db,
	}
}

func (r *CreditPurchaseRepository) Create(purchase *models.CreditPurchase) error {
	return r.db.Create(purchase).Error
}

func (r *CreditPurchaseRepository) GetBySessionID(sessionID string) (*models.CreditPurchase, error) {
	var purchase models.CreditPurchase
	err := r.db.Where("stripe_session_id = ?", sessionID).First(&purchase).Error
	return &purchase, err
}

func (r *CreditPurchaseRepository) Update(purchase *models.CreditPurchase) error {
	return r.db.Save(purchase).Error
}

func (r *CreditPurchaseRepository) GetMessPurchaseHistory(messID uint) ([]models.CreditPurchase, error) {
	var purchases []models.CreditPurchase
	err := r.db.Where("mess_id = ?", messID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}
