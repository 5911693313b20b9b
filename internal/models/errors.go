package models

import (
	"errors"
	"fmt"
)

// Domain error kinds. Services return these, handlers map them to HTTP status
// codes. Storage-level errors (gorm.ErrRecordNotFound etc.) never cross the
// service boundary.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)

// InsufficientCreditsError carries the exact shortfall so the client can
// render a top-up prompt instead of a generic failure.
type InsufficientCreditsError struct {
	RequiredCredits  int64 `json:"required_credits"`
	AvailableCredits int64 `json:"available_credits"`
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d",
		e.RequiredCredits, e.AvailableCredits)
}

func NewNotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func NewConflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}

func NewForbidden(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrForbidden)
}

func NewInvalidArgument(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidArgument)
}
