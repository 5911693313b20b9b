package repository

import (
	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type MessRepository struct {
	db *gorm.DB
}

func NewMessRepository(db *gorm.DB) *MessRepository {
	return &MessRepository{
		db: db,
	}
}

func (r *MessRepository) GetByID(id uint) (*models.Mess, error) {
	var mess models.Mess
	err := r.db.First(&mess, id).Error
	return &mess, err
}

func (r *MessRepository) Update(mess *models.Mess) error {
	return r.db.Save(mess).Error
}

func (r *MessRepository) GetMealPlan(id uint) (*models.MealPlan, error) {
	var plan models.MealPlan
	err := r.db.First(&plan, id).Error
	return &plan, err
}

func (r *MessRepository) Create(mess *models.Mess) error {
	return r.db.Create(mess).Error
}

func (r *MessRepository) CreateMealPlan(plan *models.MealPlan) error {
	return r.db.Create(plan).Error
}
