package models

import "time"

const (
	VerificationStatusPending  = "pending"
	VerificationStatusApproved = "approved"
	VerificationStatusRejected = "rejected"
)

// Payment methods accepted on submission
const (
	PaymentMethodUPI    = "upi"
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

// PaymentVerificationRequest is a member's claim of having paid, awaiting
// owner approval. Immutable once status leaves pending; kept forever as the
// audit trail. The partial unique index on (user_id, mess_id) holds the
// at-most-one-pending invariant across processes; the in-service check only
// produces the friendlier error message.
type PaymentVerificationRequest struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	UserID               uint       `json:"user_id" gorm:"index;not null;uniqueIndex:uniq_pending_request,where:status = 'pending'"`
	MessID               uint       `json:"mess_id" gorm:"index;not null;uniqueIndex:uniq_pending_request,where:status = 'pending'"`
	MembershipID         uint       `json:"membership_id" gorm:"not null"`
	MealPlanID           uint       `json:"meal_plan_id" gorm:"not null"`
	Amount               int64      `json:"amount" gorm:"not null"`
	PaymentMethod        string     `json:"payment_method" gorm:"not null"`
	PaymentScreenshotRef string     `json:"payment_screenshot_ref"`
	Status               string     `json:"status" gorm:"not null;default:'pending'"`
	VerifiedBy           *uint      `json:"verified_by"`
	VerifiedAt           *time.Time `json:"verified_at"`
	RejectionReason      string     `json:"rejection_reason"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type SubmitVerificationRequest struct {
	MessID               uint   `json:"mess_id" validate:"required"`
	MealPlanID           uint   `json:"meal_plan_id" validate:"required"`
	Amount               int64  `json:"amount" validate:"required,gt=0"`
	PaymentMethod        string `json:"payment_method" validate:"required,payment_method"`
	PaymentScreenshotRef string `json:"payment_screenshot_ref"`
}

type ResolveVerificationRequest struct {
	Status          string `json:"status" validate:"required,oneof=approved rejected"`
	RejectionReason string `json:"rejection_reason"`
}

type VerificationStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}
