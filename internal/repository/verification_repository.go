package repository

import (
	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{
		db: db,
	}
}

func (r *VerificationRepository) WithTx(tx *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: tx}
}

func (r *VerificationRepository) Create(request *models.PaymentVerificationRequest) error {
	return r.db.Create(request).Error
}

func (r *VerificationRepository) GetByID(id uint) (*models.PaymentVerificationRequest, error) {
	var request models.PaymentVerificationRequest
	err := r.db.First(&request, id).Error
	return &request, err
}

// GetByIDForUpdate takes a row lock; call inside a transaction.
func (r *VerificationRepository) GetByIDForUpdate(id uint) (*models.PaymentVerificationRequest, error) {
	var request models.PaymentVerificationRequest
	err := forUpdate(r.db).First(&request, id).Error
	return &request, err
}

func (r *VerificationRepository) Update(request *models.PaymentVerificationRequest) error {
	return r.db.Save(request).Error
}

func (r *VerificationRepository) HasPending(userID, messID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.PaymentVerificationRequest{}).
		Where("user_id = ? AND mess_id = ? AND status = ?",
			userID, messID, models.VerificationStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *VerificationRepository) ListByMess(messID uint, status string) ([]models.PaymentVerificationRequest, error) {
	query := r.db.Where("mess_id = ?", messID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.PaymentVerificationRequest
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (r *VerificationRepository) ListByUser(userID uint) ([]models.PaymentVerificationRequest, error) {
	var requests []models.PaymentVerificationRequest
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *VerificationRepository) Stats(messID uint) (*models.VerificationStats, error) {
	type row struct {
		Status string
		Count  int64
	}

	var rows []row
	err := r.db.Model(&models.PaymentVerificationRequest{}).
		Select("status, count(*) as count").
		Where("mess_id = ?", messID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &models.VerificationStats{}
	for _, re := range rows {
		switch re.Status {
		case models.VerificationStatusPending:
			stats.Pending = re.Count
		case models.VerificationStatusApproved:
			stats.Approved = re.Count
		case models.VerificationStatusRejected:
			stats.Rejected = re.Count
		}
		stats.Total += re.Count
	}

	return stats, nil
}
