package models

import "time"

// Account status values
const (
	AccountStatusTrial     = "trial"
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

// Transaction types for the credit audit trail
const (
	TransactionTypeDebit  = "debit"
	TransactionTypeCredit = "credit"
)

type CreditsAccount struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	MessID              uint       `json:"mess_id" gorm:"uniqueIndex;not null"`
	TotalCredits        int64      `json:"total_credits" gorm:"not null;default:0"`
	UsedCredits         int64      `json:"used_credits" gorm:"not null;default:0"`
	AvailableCredits    int64      `json:"available_credits" gorm:"not null;default:0"`
	IsTrialActive       bool       `json:"is_trial_active" gorm:"default:false"`
	TrialStartDate      *time.Time `json:"trial_start_date"`
	TrialEndDate        *time.Time `json:"trial_end_date"`
	TrialCreditsUsed    int64      `json:"trial_credits_used" gorm:"not null;default:0"`
	AutoRenewal         bool       `json:"auto_renewal" gorm:"default:false"`
	LowCreditThreshold  int64      `json:"low_credit_threshold" gorm:"not null;default:5"`
	Status              string     `json:"status" gorm:"not null;default:'active'"`
	MonthlyUserCount    int        `json:"monthly_user_count" gorm:"not null;default:0"`
	LastUserCountUpdate *time.Time `json:"last_user_count_update"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Audit trail entry, appended on every debit/credit. Never updated or deleted.
type CreditTransaction struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MessID       uint      `json:"mess_id" gorm:"index;not null"`
	Type         string    `json:"type" gorm:"not null"`
	Amount       int64     `json:"amount" gorm:"not null"`
	Reason       string    `json:"reason" gorm:"not null"`
	BalanceAfter int64     `json:"balance_after" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreditSufficiency struct {
	Sufficient       bool  `json:"sufficient"`
	RequiredCredits  int64 `json:"required_credits"`
	AvailableCredits int64 `json:"available_credits"`
}

// Low-credit warnings are advisory, operations never block on them.
type LowCreditWarning struct {
	MessID           uint  `json:"mess_id"`
	AvailableCredits int64 `json:"available_credits"`
	Threshold        int64 `json:"threshold"`
}

type AutoRenewalRequest struct {
	Enabled bool `json:"enabled"`
}

type TrialAvailability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type TrialWindow struct {
	TrialStartDate time.Time `json:"trial_start_date"`
	TrialEndDate   time.Time `json:"trial_end_date"`
}
