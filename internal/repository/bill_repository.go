package repository

import (
	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{
		db: db,
	}
}

func (r *BillRepository) WithTx(tx *gorm.DB) *BillRepository {
	return &BillRepository{db: tx}
}

func (r *BillRepository) Create(bill *models.MessBill) error {
	return r.db.Create(bill).Error
}

func (r *BillRepository) Update(bill *models.MessBill) error {
	return r.db.Save(bill).Error
}

func (r *BillRepository) GetPendingByCycle(messID uint, cycle string) (*models.MessBill, error) {
	var bill models.MessBill
	err := r.db.Where("mess_id = ? AND cycle = ? AND status = ?",
		messID, cycle, models.BillStatusPending).
		First(&bill).Error
	return &bill, err
}

func (r *BillRepository) GetLatestPending(messID uint) (*models.MessBill, error) {
	var bill models.MessBill
	err := r.db.Where("mess_id = ? AND status = ?", messID, models.BillStatusPending).
		Order("created_at DESC").
		First(&bill).Error
	return &bill, err
}

func (r *BillRepository) HasOverdue(messID uint, beforeCycle string) (bool, error) {
	var count int64
	err := r.db.Model(&models.MessBill{}).
		Where("mess_id = ? AND status = ? AND cycle < ?",
			messID, models.BillStatusPending, beforeCycle).
		Count(&count).Error
	return count > 0, err
}
