package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/messmate/messmate-backend/internal/config"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/cache"
	"github.com/messmate/messmate-backend/pkg/email"
	"github.com/messmate/messmate-backend/pkg/lock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// How long a low-credit warning email stays deduplicated per mess.
const lowCreditWarningCooldown = 24 * time.Hour

// CreditsService owns the per-mess credit balance. Accounts are created only
// through explicit paths (trial activation, first purchase); every balance
// change goes through Debit/Credit and lands in the transaction history.
type CreditsService struct {
	db           *gorm.DB
	creditsRepo  *repository.CreditsRepository
	messRepo     *repository.MessRepository
	userRepo     *repository.UserRepository
	emailService *email.EmailService
	cache        *cache.RedisCache
	locks        *lock.KeyedMutex
	logger       *zap.Logger
	policy       config.CreditsConfig
}

func NewCreditsService(
	db *gorm.DB,
	creditsRepo *repository.CreditsRepository,
	messRepo *repository.MessRepository,
	userRepo *repository.UserRepository,
	emailService *email.EmailService,
	redisCache *cache.RedisCache,
	locks *lock.KeyedMutex,
	logger *zap.Logger,
	policy config.CreditsConfig,
) *CreditsService {
	return &CreditsService{
		db:           db,
		creditsRepo:  creditsRepo,
		messRepo:     messRepo,
		userRepo:     userRepo,
		emailService: emailService,
		cache:        redisCache,
		locks:        locks,
		logger:       logger,
		policy:       policy,
	}
}

func messLockKey(messID uint) string {
	return fmt.Sprintf("mess:%d", messID)
}

// GetAccount is the owner-facing read; only the mess owner may see the
// balance and financial history.
func (s *CreditsService) GetAccount(messID, ownerID uint) (*models.CreditsAccount, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}
	return s.getAccount(messID)
}

// getAccount is the ungated lookup used by the billing and purchase flows,
// which authorize through their own paths.
func (s *CreditsService) getAccount(messID uint) (*models.CreditsAccount, error) {
	account, err := s.creditsRepo.GetByMessID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("credits account")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// EnsureAccount creates a zero-balance, non-trial account if none exists.
// Called only by the trial gate and the purchase flow; plain reads never
// materialize an account.
func (s *CreditsService) EnsureAccount(messID uint) (*models.CreditsAccount, error) {
	account, err := s.creditsRepo.GetByMessID(messID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = &models.CreditsAccount{
		MessID:             messID,
		Status:             models.AccountStatusActive,
		LowCreditThreshold: s.policy.LowCreditThreshold,
	}
	if err := s.creditsRepo.Create(account); err != nil {
		return nil, err
	}

	s.logger.Info("created credits account", zap.Uint("mess_id", messID))
	return account, nil
}

// CheckSufficientForOneMore reports whether the mess can afford one more
// active member. Pure read, never mutates. A mess in an unexpired trial is
// always sufficient.
func (s *CreditsService) CheckSufficientForOneMore(messID, ownerID uint) (*models.CreditSufficiency, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	required := s.policy.PerMember

	account, err := s.creditsRepo.GetByMessID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CreditSufficiency{
			Sufficient:       false,
			RequiredCredits:  required,
			AvailableCredits: 0,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if trialCovers(account, time.Now()) {
		return &models.CreditSufficiency{
			Sufficient:       true,
			RequiredCredits:  required,
			AvailableCredits: account.AvailableCredits,
		}, nil
	}

	return &models.CreditSufficiency{
		Sufficient:       account.AvailableCredits >= required,
		RequiredCredits:  required,
		AvailableCredits: account.AvailableCredits,
	}, nil
}

func trialCovers(account *models.CreditsAccount, now time.Time) bool {
	return account.IsTrialActive &&
		account.TrialEndDate != nil &&
		now.Before(*account.TrialEndDate)
}

// Debit removes credits from the mess balance. Serialized per mess; the
// balance read and write happen in one transaction under a row lock so two
// concurrent debits can never both pass the sufficiency check.
func (s *CreditsService) Debit(messID uint, amount int64, reason string) (*models.CreditsAccount, error) {
	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	var account *models.CreditsAccount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.DebitInTx(tx, messID, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyIfLow(account)
	return account, nil
}

// DebitInTx is the transactional body of Debit, exposed so the verification
// workflow can debit atomically with its membership flip. The caller must
// already hold the per-mess lock.
func (s *CreditsService) DebitInTx(tx *gorm.DB, messID uint, amount int64, reason string) (*models.CreditsAccount, error) {
	if amount <= 0 {
		return nil, models.NewInvalidArgument("debit amount must be positive")
	}

	repo := s.creditsRepo.WithTx(tx)

	account, err := repo.GetByMessIDForUpdate(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("credits account")
	}
	if err != nil {
		return nil, err
	}

	// Unexpired trial usage is metered but does not consume paid balance.
	if trialCovers(account, time.Now()) {
		account.TrialCreditsUsed += amount
		if err := repo.Save(account); err != nil {
			return nil, err
		}
		return account, repo.AppendTransaction(&models.CreditTransaction{
			MessID:       messID,
			Type:         models.TransactionTypeDebit,
			Amount:       amount,
			Reason:       reason + " (trial)",
			BalanceAfter: account.AvailableCredits,
		})
	}

	if account.AvailableCredits < amount {
		return nil, &models.InsufficientCreditsError{
			RequiredCredits:  amount,
			AvailableCredits: account.AvailableCredits,
		}
	}

	account.UsedCredits += amount
	account.AvailableCredits -= amount
	if err := repo.Save(account); err != nil {
		return nil, err
	}

	if err := repo.AppendTransaction(&models.CreditTransaction{
		MessID:       messID,
		Type:         models.TransactionTypeDebit,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: account.AvailableCredits,
	}); err != nil {
		return nil, err
	}

	return account, nil
}

// Credit adds credits to the mess balance (purchases, refund reversals).
func (s *CreditsService) Credit(messID uint, amount int64, reason string) (*models.CreditsAccount, error) {
	if amount <= 0 {
		return nil, models.NewInvalidArgument("credit amount must be positive")
	}

	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	var account *models.CreditsAccount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.creditsRepo.WithTx(tx)

		var err error
		account, err = repo.GetByMessIDForUpdate(messID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFound("credits account")
		}
		if err != nil {
			return err
		}

		account.TotalCredits += amount
		account.AvailableCredits += amount
		if account.Status == models.AccountStatusSuspended {
			account.Status = models.AccountStatusActive
		}
		if err := repo.Save(account); err != nil {
			return err
		}

		return repo.AppendTransaction(&models.CreditTransaction{
			MessID:       messID,
			Type:         models.TransactionTypeCredit,
			Amount:       amount,
			Reason:       reason,
			BalanceAfter: account.AvailableCredits,
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// RevokeCredits claws back credits after a refunded purchase. Unlike Debit
// it clamps at zero instead of failing, the refund already happened.
func (s *CreditsService) RevokeCredits(messID uint, amount int64, reason string) (*models.CreditsAccount, error) {
	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	var account *models.CreditsAccount
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.creditsRepo.WithTx(tx)

		var err error
		account, err = repo.GetByMessIDForUpdate(messID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFound("credits account")
		}
		if err != nil {
			return err
		}

		revoked := amount
		if revoked > account.AvailableCredits {
			revoked = account.AvailableCredits
		}
		account.TotalCredits -= revoked
		account.AvailableCredits -= revoked
		if err := repo.Save(account); err != nil {
			return err
		}

		return repo.AppendTransaction(&models.CreditTransaction{
			MessID:       messID,
			Type:         models.TransactionTypeDebit,
			Amount:       revoked,
			Reason:       reason,
			BalanceAfter: account.AvailableCredits,
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// ToggleAutoRenewal flips the auto-renewal flag. Owner-only, idempotent.
func (s *CreditsService) ToggleAutoRenewal(messID, ownerID uint, enabled bool) (*models.CreditsAccount, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	account, err := s.getAccount(messID)
	if err != nil {
		return nil, err
	}

	if account.AutoRenewal == enabled {
		return account, nil
	}

	account.AutoRenewal = enabled
	if err := s.creditsRepo.Save(account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *CreditsService) ListTransactions(messID, ownerID uint) ([]models.CreditTransaction, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}
	return s.creditsRepo.ListTransactions(messID)
}

// LowCreditWarning returns the advisory warning when the balance sits below
// the account threshold, nil otherwise. Never an error, never blocking.
func (s *CreditsService) LowCreditWarning(account *models.CreditsAccount) *models.LowCreditWarning {
	if account.AvailableCredits >= account.LowCreditThreshold {
		return nil
	}
	return &models.LowCreditWarning{
		MessID:           account.MessID,
		AvailableCredits: account.AvailableCredits,
		Threshold:        account.LowCreditThreshold,
	}
}

// notifyIfLow emails the owner when the balance drops under the threshold,
// deduplicated per mess through the cache. Best effort only.
func (s *CreditsService) notifyIfLow(account *models.CreditsAccount) {
	warning := s.LowCreditWarning(account)
	if warning == nil {
		return
	}

	s.logger.Warn("credits running low",
		zap.Uint("mess_id", account.MessID),
		zap.Int64("available", account.AvailableCredits),
		zap.Int64("threshold", account.LowCreditThreshold),
	)

	if s.emailService == nil {
		return
	}

	if s.cache != nil {
		key := fmt.Sprintf("lowcredit:%d", account.MessID)
		fresh, err := s.cache.SetNX(context.Background(), key, "1", lowCreditWarningCooldown)
		if err == nil && !fresh {
			return
		}
	}

	mess, err := s.messRepo.GetByID(account.MessID)
	if err != nil {
		return
	}
	owner, err := s.userRepo.GetByID(mess.OwnerID)
	if err != nil {
		return
	}

	if err := s.emailService.SendLowCreditWarningEmail(
		owner.Email, mess.Name, account.AvailableCredits, account.LowCreditThreshold,
	); err != nil {
		s.logger.Error("failed to send low credit warning", zap.Error(err))
	}
}

// NotifyIfLow re-checks the balance after an external debit path (the
// verification workflow) committed its transaction.
func (s *CreditsService) NotifyIfLow(account *models.CreditsAccount) {
	s.notifyIfLow(account)
}
