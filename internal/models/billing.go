package models

import "time"

const (
	BillStatusPending = "pending"
	BillStatusPaid    = "paid"
)

// MessBill is a persisted snapshot of a billing-cycle calculation. Cycle is
// "YYYY-MM"; at most one pending bill per (mess, cycle).
type MessBill struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	MessID      uint       `json:"mess_id" gorm:"index;not null"`
	Cycle       string     `json:"cycle" gorm:"not null"`
	BaseAmount  int64      `json:"base_amount" gorm:"not null"`
	LeaveCredit int64      `json:"leave_credit" gorm:"not null;default:0"`
	LateFee     int64      `json:"late_fee" gorm:"not null;default:0"`
	NetDue      int64      `json:"net_due" gorm:"not null"`
	Status      string     `json:"status" gorm:"not null;default:'pending'"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BillPreview is the unpersisted breakdown returned by the calculator.
type BillPreview struct {
	MessID      uint   `json:"mess_id"`
	Cycle       string `json:"cycle"`
	DaysInCycle int    `json:"days_in_cycle"`
	BaseAmount  int64  `json:"base_amount"`
	LeaveCredit int64  `json:"leave_credit"`
	LateFee     int64  `json:"late_fee"`
	NetDue      int64  `json:"net_due"`
}
