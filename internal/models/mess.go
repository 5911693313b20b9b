package models

import "time"

// Mess is the registry record the engine reads for names and ownership
// checks. The live QR attestation token is embedded here, not stored as a
// separate top-level record.
type Mess struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"not null"`
	OwnerID        uint       `json:"owner_id" gorm:"index;not null"`
	Address        string     `json:"address"`
	QRCodeData     string     `json:"qr_code_data"`
	QRCodeImageURL string     `json:"qr_code_image_url"`
	QRGeneratedAt  *time.Time `json:"qr_generated_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MealPlan pricing is integer paise. LeaveDeduction gates whether approved
// leave days earn a bill credit; LateFee gates overdue surcharges.
type MealPlan struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	MessID         uint      `json:"mess_id" gorm:"index;not null"`
	Name           string    `json:"name" gorm:"not null"`
	Price          int64     `json:"price" gorm:"not null"`
	LeaveDeduction bool      `json:"leave_deduction" gorm:"default:true"`
	LateFee        int64     `json:"late_fee" gorm:"not null;default:0"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FullName  string    `json:"full_name" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
