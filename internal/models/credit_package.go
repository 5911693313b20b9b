package models

import "time"

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusRefunded  = "refunded"
)

type CreditPackage struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Credits     int64     `json:"credits" gorm:"not null"`
	Price       int64     `json:"price" gorm:"not null"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tracks a mess owner's credit pack purchase through Stripe checkout. The
// ledger is credited only when the webhook reports the session completed.
type CreditPurchase struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	MessID          uint      `json:"mess_id" gorm:"index;not null"`
	OwnerID         uint      `json:"owner_id" gorm:"not null"`
	PackageID       uint      `json:"package_id" gorm:"not null"`
	Credits         int64     `json:"credits" gorm:"not null"`
	Price           int64     `json:"price" gorm:"not null"`
	StripeSessionID string    `json:"stripe_session_id" gorm:"unique;not null"`
	Status          string    `json:"status" gorm:"not null;default:'pending'"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
