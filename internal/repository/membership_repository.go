package repository

import (
	"time"

	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{
		db: db,
	}
}

func (r *MembershipRepository) WithTx(tx *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: tx}
}

func (r *MembershipRepository) Create(membership *models.MembershipRecord) error {
	return r.db.Create(membership).Error
}

func (r *MembershipRepository) GetByID(id uint) (*models.MembershipRecord, error) {
	var membership models.MembershipRecord
	err := r.db.First(&membership, id).Error
	return &membership, err
}

func (r *MembershipRepository) Update(membership *models.MembershipRecord) error {
	return r.db.Save(membership).Error
}

func (r *MembershipRepository) ListActiveByUserAndMess(userID, messID uint) ([]models.MembershipRecord, error) {
	var memberships []models.MembershipRecord
	err := r.db.Where("user_id = ? AND mess_id = ? AND status = ?",
		userID, messID, models.MembershipStatusActive).
		Find(&memberships).Error
	return memberships, err
}

func (r *MembershipRepository) ListActiveByMess(messID uint) ([]models.MembershipRecord, error) {
	var memberships []models.MembershipRecord
	err := r.db.Where("mess_id = ? AND status = ?", messID, models.MembershipStatusActive).
		Find(&memberships).Error
	return memberships, err
}

func (r *MembershipRepository) CountActiveByMess(messID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.MembershipRecord{}).
		Where("mess_id = ? AND status = ?", messID, models.MembershipStatusActive).
		Count(&count).Error
	return count, err
}

// ApprovedLeaveDays counts approved leave days for a membership that fall
// inside [cycleStart, cycleEnd).
func (r *MembershipRepository) ApprovedLeaveDays(membershipID uint, cycleStart, cycleEnd time.Time) (int, error) {
	var leaves []models.LeaveRecord
	err := r.db.Where("membership_id = ? AND status = ? AND start_date < ? AND end_date >= ?",
		membershipID, models.LeaveStatusApproved, cycleEnd, cycleStart).
		Find(&leaves).Error
	if err != nil {
		return 0, err
	}

	days := 0
	for _, leave := range leaves {
		start := leave.StartDate
		if start.Before(cycleStart) {
			start = cycleStart
		}
		end := leave.EndDate
		if end.After(cycleEnd) {
			end = cycleEnd
		}
		// End date is inclusive on leave records. Count by calendar date;
		// wall-clock subtraction drops a day when a DST transition falls
		// inside the range.
		d := dateDiffDays(start, end) + 1
		if end.Equal(cycleEnd) {
			d--
		}
		if d > 0 {
			days += d
		}
	}

	return days, nil
}

// dateDiffDays is the calendar-date difference b-a, immune to DST because
// the dates are re-anchored in UTC.
func dateDiffDays(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func (r *MembershipRepository) CreateLeave(leave *models.LeaveRecord) error {
	return r.db.Create(leave).Error
}
