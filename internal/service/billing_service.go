package service

import (
	"errors"
	"time"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/lock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingService computes monthly dues from plan pricing with leave-day
// proration. All amounts are integer paise; proration floors so a member is
// never over-credited.
type BillingService struct {
	db             *gorm.DB
	billRepo       *repository.BillRepository
	membershipRepo *repository.MembershipRepository
	messRepo       *repository.MessRepository
	creditsService *CreditsService
	locks          *lock.KeyedMutex
	logger         *zap.Logger
}

func NewBillingService(
	db *gorm.DB,
	billRepo *repository.BillRepository,
	membershipRepo *repository.MembershipRepository,
	messRepo *repository.MessRepository,
	creditsService *CreditsService,
	locks *lock.KeyedMutex,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		db:             db,
		billRepo:       billRepo,
		membershipRepo: membershipRepo,
		messRepo:       messRepo,
		creditsService: creditsService,
		locks:          locks,
		logger:         logger,
	}
}

func cycleOf(at time.Time) (cycle string, start, end time.Time, days int) {
	start = time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location())
	end = start.AddDate(0, 1, 0)
	// Day count by calendar date. Wall-clock subtraction loses an hour to
	// spring-forward in DST-observing locations.
	days = time.Date(at.Year(), at.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return at.Format("2006-01"), start, end, days
}

// CalculateMonthlyBill returns the breakdown for the cycle containing `at`
// without persisting anything. Owner-only.
func (s *BillingService) CalculateMonthlyBill(messID, ownerID uint, at time.Time) (*models.BillPreview, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}
	return s.calculateMonthlyBill(messID, at)
}

func (s *BillingService) calculateMonthlyBill(messID uint, at time.Time) (*models.BillPreview, error) {
	cycle, cycleStart, cycleEnd, daysInCycle := cycleOf(at)

	memberships, err := s.membershipRepo.ListActiveByMess(messID)
	if err != nil {
		return nil, err
	}

	preview := &models.BillPreview{
		MessID:      messID,
		Cycle:       cycle,
		DaysInCycle: daysInCycle,
	}

	for _, membership := range memberships {
		plan, err := s.messRepo.GetMealPlan(membership.MealPlanID)
		if err != nil {
			return nil, err
		}

		preview.BaseAmount += plan.Price

		if plan.LeaveDeduction {
			leaveDays, err := s.membershipRepo.ApprovedLeaveDays(membership.ID, cycleStart, cycleEnd)
			if err != nil {
				return nil, err
			}
			// Floor rounding: the payer is never over-credited.
			preview.LeaveCredit += plan.Price * int64(leaveDays) / int64(daysInCycle)
		}

		if plan.LateFee > 0 {
			overdue, err := s.billRepo.HasOverdue(messID, cycle)
			if err != nil {
				return nil, err
			}
			if overdue {
				preview.LateFee += plan.LateFee
			}
		}
	}

	preview.NetDue = preview.BaseAmount - preview.LeaveCredit + preview.LateFee
	return preview, nil
}

// GeneratePendingBill snapshots the current calculation into a persisted
// bill. Owner-only; one pending bill per (mess, cycle).
func (s *BillingService) GeneratePendingBill(messID, ownerID uint) (*models.MessBill, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	preview, err := s.calculateMonthlyBill(messID, time.Now())
	if err != nil {
		return nil, err
	}

	var bill *models.MessBill
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.billRepo.WithTx(tx)

		if _, err := repo.GetPendingByCycle(messID, preview.Cycle); err == nil {
			return models.NewConflict("an unpaid pending bill already exists for this cycle")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		bill = &models.MessBill{
			MessID:      messID,
			Cycle:       preview.Cycle,
			BaseAmount:  preview.BaseAmount,
			LeaveCredit: preview.LeaveCredit,
			LateFee:     preview.LateFee,
			NetDue:      preview.NetDue,
			Status:      models.BillStatusPending,
		}
		return repo.Create(bill)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("generated pending bill",
		zap.Uint("mess_id", messID),
		zap.String("cycle", bill.Cycle),
		zap.Int64("net_due", bill.NetDue),
	)
	return bill, nil
}

// PayPendingBill settles the most recent pending bill and stamps the payment
// dates on the mess's active memberships. Owner-only.
func (s *BillingService) PayPendingBill(messID, ownerID uint) (*models.MessBill, error) {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	var bill *models.MessBill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.billRepo.WithTx(tx)
		mRepo := s.membershipRepo.WithTx(tx)

		var err error
		bill, err = repo.GetLatestPending(messID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFound("no pending bill")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		next := now.AddDate(0, 1, 0)
		bill.Status = models.BillStatusPaid
		bill.PaidAt = &now
		if err := repo.Update(bill); err != nil {
			return err
		}

		memberships, err := mRepo.ListActiveByMess(messID)
		if err != nil {
			return err
		}
		for i := range memberships {
			memberships[i].LastPaymentDate = &now
			memberships[i].NextPaymentDate = &next
			memberships[i].PaymentStatus = models.PaymentStatusPaid
			if err := mRepo.Update(&memberships[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bill, nil
}

// ProcessMessMonthlyBill closes the current cycle for every active
// membership. Idempotent: memberships already marked for this cycle are
// skipped, so re-invocation is safe. Auto-renewal debits the ledger per
// member; without it (or when credits run out) the membership is flagged
// payment pending instead.
func (s *BillingService) ProcessMessMonthlyBill(messID, ownerID uint) error {
	if err := checkMessOwnership(s.messRepo, messID, ownerID); err != nil {
		return err
	}

	cycle, _, _, _ := cycleOf(time.Now())

	unlock := s.locks.Lock(messLockKey(messID))
	defer unlock()

	// The auto-renewal flag is read under the lock so a concurrent toggle
	// cannot be applied stale across the cycle run.
	account, err := s.creditsService.getAccount(messID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	autoRenew := err == nil && account.AutoRenewal

	memberships, err := s.membershipRepo.ListActiveByMess(messID)
	if err != nil {
		return err
	}

	for i := range memberships {
		membership := &memberships[i]
		if membership.LastBilledCycle == cycle {
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			mRepo := s.membershipRepo.WithTx(tx)

			now := time.Now()
			if autoRenew {
				_, debitErr := s.creditsService.DebitInTx(
					tx, messID, s.creditsService.policy.PerMember, "auto renewal",
				)
				var insufficient *models.InsufficientCreditsError
				switch {
				case debitErr == nil:
					next := now.AddDate(0, 1, 0)
					membership.PaymentStatus = models.PaymentStatusPaid
					membership.LastPaymentDate = &now
					membership.NextPaymentDate = &next
				case errors.As(debitErr, &insufficient):
					membership.PaymentStatus = models.PaymentStatusPending
				default:
					return debitErr
				}
			} else {
				membership.PaymentStatus = models.PaymentStatusPending
			}

			membership.LastBilledCycle = cycle
			return mRepo.Update(membership)
		})
		if err != nil {
			return err
		}
	}

	s.logger.Info("processed monthly billing cycle",
		zap.Uint("mess_id", messID),
		zap.String("cycle", cycle),
		zap.Bool("auto_renewal", autoRenew),
	)
	return nil
}
