package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/email"
	"github.com/messmate/messmate-backend/pkg/lock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VerificationService runs the member-submits / owner-resolves workflow.
// Each request moves pending -> approved or pending -> rejected exactly once;
// the approve transition debits the mess credit balance in the same
// transaction that activates the membership.
type VerificationService struct {
	db               *gorm.DB
	verificationRepo *repository.VerificationRepository
	membershipRepo   *repository.MembershipRepository
	messRepo         *repository.MessRepository
	userRepo         *repository.UserRepository
	creditsService   *CreditsService
	emailService     *email.EmailService
	locks            *lock.KeyedMutex
	logger           *zap.Logger
}

func NewVerificationService(
	db *gorm.DB,
	verificationRepo *repository.VerificationRepository,
	membershipRepo *repository.MembershipRepository,
	messRepo *repository.MessRepository,
	userRepo *repository.UserRepository,
	creditsService *CreditsService,
	emailService *email.EmailService,
	locks *lock.KeyedMutex,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		db:               db,
		verificationRepo: verificationRepo,
		membershipRepo:   membershipRepo,
		messRepo:         messRepo,
		userRepo:         userRepo,
		creditsService:   creditsService,
		emailService:     emailService,
		locks:            locks,
		logger:           logger,
	}
}

func submitLockKey(userID, messID uint) string {
	return fmt.Sprintf("submit:%d:%d", userID, messID)
}

// Submit records a member's payment claim and its paired
// pending_verification membership in one transaction. At most one pending
// request per (user, mess) may exist; submission is serialized on that pair
// so the duplicate check cannot race.
func (s *VerificationService) Submit(
	userID, messID, mealPlanID uint,
	amount int64,
	paymentMethod, screenshotRef string,
) (*models.PaymentVerificationRequest, error) {
	mess, err := s.messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("mess")
	}
	if err != nil {
		return nil, err
	}

	plan, err := s.messRepo.GetMealPlan(mealPlanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("meal plan")
	}
	if err != nil {
		return nil, err
	}
	if plan.MessID != mess.ID {
		return nil, models.NewInvalidArgument("meal plan does not belong to this mess")
	}

	unlock := s.locks.Lock(submitLockKey(userID, messID))
	defer unlock()

	var request *models.PaymentVerificationRequest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		vRepo := s.verificationRepo.WithTx(tx)
		mRepo := s.membershipRepo.WithTx(tx)

		pending, err := vRepo.HasPending(userID, messID)
		if err != nil {
			return err
		}
		if pending {
			return models.NewConflict("user already has a pending verification for this mess")
		}

		membership := &models.MembershipRecord{
			UserID:        userID,
			MessID:        messID,
			MealPlanID:    mealPlanID,
			Status:        models.MembershipStatusPendingVerification,
			PaymentStatus: models.PaymentStatusPending,
		}
		if err := mRepo.Create(membership); err != nil {
			return err
		}

		request = &models.PaymentVerificationRequest{
			UserID:               userID,
			MessID:               messID,
			MembershipID:         membership.ID,
			MealPlanID:           mealPlanID,
			Amount:               amount,
			PaymentMethod:        paymentMethod,
			PaymentScreenshotRef: screenshotRef,
			Status:               models.VerificationStatusPending,
		}
		// Another process can pass HasPending concurrently; the partial
		// unique index is the real guard.
		if err := vRepo.Create(request); errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflict("user already has a pending verification for this mess")
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("verification submitted",
		zap.Uint("user_id", userID),
		zap.Uint("mess_id", messID),
		zap.Uint("request_id", request.ID),
	)
	return request, nil
}

func (s *VerificationService) ListForOwner(messID, ownerID uint, statusFilter string) ([]models.PaymentVerificationRequest, error) {
	if err := s.checkOwnership(messID, ownerID); err != nil {
		return nil, err
	}
	return s.verificationRepo.ListByMess(messID, statusFilter)
}

func (s *VerificationService) ListForUser(userID uint) ([]models.PaymentVerificationRequest, error) {
	return s.verificationRepo.ListByUser(userID)
}

func (s *VerificationService) GetStats(messID, ownerID uint) (*models.VerificationStats, error) {
	if err := s.checkOwnership(messID, ownerID); err != nil {
		return nil, err
	}
	return s.verificationRepo.Stats(messID)
}

// Resolve applies the owner's decision. Approval checks credit sufficiency
// and debits inside the same per-mess critical section that flips the
// membership, so either the whole transition commits or none of it does. A
// request that already reached a terminal state fails with not-found rather
// than silently succeeding; the caller must not retry blindly.
func (s *VerificationService) Resolve(
	requestID, ownerID uint,
	status, rejectionReason string,
) (*models.PaymentVerificationRequest, error) {
	if status != models.VerificationStatusApproved && status != models.VerificationStatusRejected {
		return nil, models.NewInvalidArgument("status must be approved or rejected")
	}
	if status == models.VerificationStatusRejected && rejectionReason == "" {
		return nil, models.NewInvalidArgument("rejection reason is required")
	}

	request, err := s.verificationRepo.GetByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("verification request")
	}
	if err != nil {
		return nil, err
	}

	mess, err := s.messRepo.GetByID(request.MessID)
	if err != nil {
		return nil, err
	}
	if mess.OwnerID != ownerID {
		return nil, models.NewForbidden("only the mess owner can resolve verification requests")
	}

	unlock := s.locks.Lock(messLockKey(request.MessID))
	defer unlock()

	var debitedAccount *models.CreditsAccount
	err = s.db.Transaction(func(tx *gorm.DB) error {
		vRepo := s.verificationRepo.WithTx(tx)
		mRepo := s.membershipRepo.WithTx(tx)

		request, err = vRepo.GetByIDForUpdate(requestID)
		if err != nil {
			return err
		}
		if request.Status != models.VerificationStatusPending {
			return models.NewNotFound("verification request already resolved")
		}

		membership, err := mRepo.GetByID(request.MembershipID)
		if err != nil {
			return err
		}

		now := time.Now()
		request.VerifiedBy = &ownerID
		request.VerifiedAt = &now

		if status == models.VerificationStatusRejected {
			request.Status = models.VerificationStatusRejected
			request.RejectionReason = rejectionReason

			membership.Status = models.MembershipStatusRejected
			membership.PaymentStatus = models.PaymentStatusFailed
			if err := mRepo.Update(membership); err != nil {
				return err
			}
			return vRepo.Update(request)
		}

		// Approval: the sufficiency check and debit run under the row lock
		// taken by DebitInTx, closing the check-then-act window.
		debitedAccount, err = s.creditsService.DebitInTx(
			tx, request.MessID, s.creditsService.policy.PerMember,
			fmt.Sprintf("member verification #%d", request.ID),
		)
		if err != nil {
			return err
		}

		request.Status = models.VerificationStatusApproved

		end := now.AddDate(0, 1, 0)
		membership.Status = models.MembershipStatusActive
		membership.PaymentStatus = models.PaymentStatusPaid
		membership.SubscriptionStartDate = &now
		membership.SubscriptionEndDate = &end
		membership.LastPaymentDate = &now
		membership.NextPaymentDate = &end
		if err := mRepo.Update(membership); err != nil {
			return err
		}
		return vRepo.Update(request)
	})
	if err != nil {
		return nil, err
	}

	if debitedAccount != nil {
		s.creditsService.NotifyIfLow(debitedAccount)
	}
	s.notifyResolved(request, mess.Name)

	s.logger.Info("verification resolved",
		zap.Uint("request_id", request.ID),
		zap.String("status", request.Status),
		zap.Uint("verified_by", ownerID),
	)
	return request, nil
}

func (s *VerificationService) checkOwnership(messID, ownerID uint) error {
	mess, err := s.messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFound("mess")
	}
	if err != nil {
		return err
	}
	if mess.OwnerID != ownerID {
		return models.NewForbidden("not the mess owner")
	}
	return nil
}

// Best-effort member notification after the decision committed.
func (s *VerificationService) notifyResolved(request *models.PaymentVerificationRequest, messName string) {
	if s.emailService == nil {
		return
	}

	user, err := s.userRepo.GetByID(request.UserID)
	if err != nil {
		return
	}

	if request.Status == models.VerificationStatusApproved {
		err = s.emailService.SendVerificationApprovedEmail(user.Email, user.FullName, messName)
	} else {
		err = s.emailService.SendVerificationRejectedEmail(user.Email, user.FullName, messName, request.RejectionReason)
	}
	if err != nil {
		s.logger.Error("failed to send verification email", zap.Error(err))
	}
}
