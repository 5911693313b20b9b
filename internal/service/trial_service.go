package service

import (
	"errors"
	"time"

	"github.com/messmate/messmate-backend/internal/config"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/lock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrialService grants the one-time free trial per mess. The grant is
// non-reversible; once trial_start_date is recorded the gate stays closed
// forever, even after the trial window ends.
type TrialService struct {
	db          *gorm.DB
	creditsRepo *repository.CreditsRepository
	messRepo    *repository.MessRepository
	locks       *lock.KeyedMutex
	logger      *zap.Logger
	policy      config.TrialConfig
}

func NewTrialService(
	db *gorm.DB,
	creditsRepo *repository.CreditsRepository,
	messRepo *repository.MessRepository,
	locks *lock.KeyedMutex,
	logger *zap.Logger,
	policy config.TrialConfig,
) *TrialService {
	return &TrialService{
		db:          db,
		creditsRepo: creditsRepo,
		messRepo:    messRepo,
		locks:       locks,
		logger:      logger,
		policy:      policy,
	}
}

func (s *TrialService) CheckAvailability(messID, ownerID uint) (*models.TrialAvailability, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	if !s.policy.Enabled {
		return &models.TrialAvailability{
			Available: false,
			Reason:    "Free trial is not currently available",
		}, nil
	}

	account, err := s.creditsRepo.GetByMessID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.TrialAvailability{Available: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if account.TrialStartDate != nil {
		return &models.TrialAvailability{
			Available: false,
			Reason:    "Free trial has already been used",
		}, nil
	}

	return &models.TrialAvailability{Available: true}, nil
}

// Activate grants the trial window. Owner-only; the grant is one-time and
// non-reversible, so an unauthorized caller must never reach it. When the
// trial was already used the existing window is returned alongside
// ErrConflict so a retrying caller can treat it as settled rather than failed.
func (s *TrialService) Activate(messID, ownerID uint, durationDays int) (*models.TrialWindow, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	if !s.policy.Enabled {
		return nil, models.NewInvalidArgument("free trial is not currently available")
	}
	if durationDays <= 0 {
		durationDays = s.policy.DurationDays
	}

	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	var window *models.TrialWindow
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.creditsRepo.WithTx(tx)

		account, err := repo.GetByMessIDForUpdate(messID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			account = &models.CreditsAccount{
				MessID: messID,
				Status: models.AccountStatusTrial,
			}
			if err := repo.Create(account); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if account.TrialStartDate != nil {
			window = &models.TrialWindow{
				TrialStartDate: *account.TrialStartDate,
				TrialEndDate:   *account.TrialEndDate,
			}
			return models.NewConflict("free trial already used")
		}

		now := time.Now()
		end := now.AddDate(0, 0, durationDays)
		account.IsTrialActive = true
		account.TrialStartDate = &now
		account.TrialEndDate = &end
		account.TrialCreditsUsed = 0
		account.Status = models.AccountStatusTrial

		if err := repo.Save(account); err != nil {
			return err
		}

		window = &models.TrialWindow{TrialStartDate: now, TrialEndDate: end}
		return nil
	})
	if err != nil {
		// The already-used conflict still carries the settled window.
		return window, err
	}

	s.logger.Info("activated free trial",
		zap.Uint("mess_id", messID),
		zap.Int("duration_days", durationDays),
	)
	return window, nil
}
