package models

import "time"

// Membership status values. pending_verification until the owner resolves the
// paired verification request, then exactly one transition to active or
// rejected. inactive is reached later via membership management flows.
const (
	MembershipStatusPendingVerification = "pending_verification"
	MembershipStatusActive              = "active"
	MembershipStatusRejected            = "rejected"
	MembershipStatusInactive            = "inactive"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

type MembershipRecord struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	UserID                uint       `json:"user_id" gorm:"index;not null"`
	MessID                uint       `json:"mess_id" gorm:"index;not null"`
	MealPlanID            uint       `json:"meal_plan_id" gorm:"not null"`
	Status                string     `json:"status" gorm:"not null;default:'pending_verification'"`
	PaymentStatus         string     `json:"payment_status" gorm:"not null;default:'pending'"`
	SubscriptionStartDate *time.Time `json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	LastPaymentDate       *time.Time `json:"last_payment_date"`
	NextPaymentDate       *time.Time `json:"next_payment_date"`
	LastBilledCycle       string     `json:"last_billed_cycle"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Approved leave days reduce the member's bill proportionally to
// planAmount / daysInCycle.
type LeaveRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MembershipID uint      `json:"membership_id" gorm:"index;not null"`
	MessID       uint      `json:"mess_id" gorm:"index;not null"`
	StartDate    time.Time `json:"start_date" gorm:"not null"`
	EndDate      time.Time `json:"end_date" gorm:"not null"`
	Status       string    `json:"status" gorm:"not null;default:'pending'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const LeaveStatusApproved = "approved"
