package repository

import (
	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type CreditsRepository struct {
	db *gorm.DB
}

func NewCreditsRepository(db *gorm.DB) *CreditsRepository {
	return &CreditsRepository{
		db: db,
	}
}

// WithTx returns a copy bound to the given transaction.
func (r *CreditsRepository) WithTx(tx *gorm.DB) *CreditsRepository {
	return &CreditsRepository{db: tx}
}

func (r *CreditsRepository) GetByMessID(messID uint) (*models.CreditsAccount, error) {
	var account models.CreditsAccount
	err := r.db.Where("mess_id = ?", messID).First(&account).Error
	return &account, err
}

// GetByMessIDForUpdate takes a row lock; call inside a transaction.
func (r *CreditsRepository) GetByMessIDForUpdate(messID uint) (*models.CreditsAccount, error) {
	var account models.CreditsAccount
	err := forUpdate(r.db).
		Where("mess_id = ?", messID).
		First(&account).Error
	return &account, err
}

func (r *CreditsRepository) Create(account *models.CreditsAccount) error {
	return r.db.Create(account).Error
}

func (r *CreditsRepository) Save(account *models.CreditsAccount) error {
	return r.db.Save(account).Error
}

func (r *CreditsRepository) AppendTransaction(entry *models.CreditTransaction) error {
	return r.db.Create(entry).Error
}

func (r *CreditsRepository) ListTransactions(messID uint) ([]models.CreditTransaction, error) {
	var entries []models.CreditTransaction
	err := r.db.Where("mess_id = ?", messID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
