package service

import (
	"testing"
	"time"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createActiveMembership(t *testing.T, userID, messID, planID uint) *models.MembershipRecord {
	t.Helper()
	membership := &models.MembershipRecord{
		UserID:        userID,
		MessID:        messID,
		MealPlanID:    planID,
		Status:        models.MembershipStatusActive,
		PaymentStatus: models.PaymentStatusPaid,
	}
	require.NoError(t, e.membershipRepo.Create(membership))
	return membership
}

func TestCalculateMonthlyBillWithLeaveProration(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	// Three approved leave days inside a 30-day September.
	require.NoError(t, env.membershipRepo.CreateLeave(&models.LeaveRecord{
		MembershipID: membership.ID,
		MessID:       mess.ID,
		StartDate:    time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
		Status:       models.LeaveStatusApproved,
	}))

	at := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)
	preview, err := env.billing.CalculateMonthlyBill(mess.ID, owner.ID, at)
	require.NoError(t, err)
	require.Equal(t, "2025-09", preview.Cycle)
	require.Equal(t, 30, preview.DaysInCycle)
	require.Equal(t, int64(3000), preview.BaseAmount)
	require.Equal(t, int64(300), preview.LeaveCredit) // 3000 * 3 / 30
	require.Equal(t, int64(0), preview.LateFee)
	require.Equal(t, int64(2700), preview.NetDue)
}

func TestCalculateMonthlyBillFloorsLeaveCredit(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 1000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	// One leave day in a 31-day July: 1000/31 = 32.25..., floored to 32.
	require.NoError(t, env.membershipRepo.CreateLeave(&models.LeaveRecord{
		MembershipID: membership.ID,
		MessID:       mess.ID,
		StartDate:    time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
		Status:       models.LeaveStatusApproved,
	}))

	at := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	preview, err := env.billing.CalculateMonthlyBill(mess.ID, owner.ID, at)
	require.NoError(t, err)
	require.Equal(t, int64(32), preview.LeaveCredit)
	require.Equal(t, int64(968), preview.NetDue)
}

func TestCalculateMonthlyBillIgnoresUnapprovedLeave(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	require.NoError(t, env.membershipRepo.CreateLeave(&models.LeaveRecord{
		MembershipID: membership.ID,
		MessID:       mess.ID,
		StartDate:    time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
		Status:       "pending",
	}))

	at := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	preview, err := env.billing.CalculateMonthlyBill(mess.ID, owner.ID, at)
	require.NoError(t, err)
	require.Equal(t, int64(0), preview.LeaveCredit)
	require.Equal(t, int64(3000), preview.NetDue)
}

func TestCalculateMonthlyBillAddsLateFeeWhenOverdue(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := &models.MealPlan{
		MessID:   mess.ID,
		Name:     "Full Board",
		Price:    3000,
		LateFee:  500,
		IsActive: true,
	}
	require.NoError(t, env.messRepo.CreateMealPlan(plan))
	env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	// A pending bill from an earlier cycle makes the mess overdue.
	require.NoError(t, env.db.Create(&models.MessBill{
		MessID: mess.ID,
		Cycle:  "2025-08",
		NetDue: 3000,
		Status: models.BillStatusPending,
	}).Error)

	at := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	preview, err := env.billing.CalculateMonthlyBill(mess.ID, owner.ID, at)
	require.NoError(t, err)
	require.Equal(t, int64(500), preview.LateFee)
	require.Equal(t, int64(3500), preview.NetDue)
}

func TestGeneratePendingBillConflictsOnSecondCall(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	bill, err := env.billing.GeneratePendingBill(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPending, bill.Status)
	require.Equal(t, int64(3000), bill.NetDue)

	_, err = env.billing.GeneratePendingBill(mess.ID, owner.ID)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestPayPendingBill(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	_, err := env.billing.GeneratePendingBill(mess.ID, owner.ID)
	require.NoError(t, err)

	paid, err := env.billing.PayPendingBill(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.BillStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	reloaded, err := env.membershipRepo.GetByID(membership.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.LastPaymentDate)
	require.NotNil(t, reloaded.NextPaymentDate)

	// Nothing left to pay.
	_, err = env.billing.PayPendingBill(mess.ID, owner.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestProcessMessMonthlyBillAutoRenewal(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	env.fundAccount(t, mess.ID, 3)
	_, err := env.credits.ToggleAutoRenewal(mess.ID, owner.ID, true)
	require.NoError(t, err)

	require.NoError(t, env.billing.ProcessMessMonthlyBill(mess.ID, owner.ID))

	reloaded, err := env.membershipRepo.GetByID(membership.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)
	require.NotEmpty(t, reloaded.LastBilledCycle)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), account.UsedCredits)

	// Re-running within the same cycle is a no-op.
	require.NoError(t, env.billing.ProcessMessMonthlyBill(mess.ID, owner.ID))
	account, err = env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), account.UsedCredits)
}

func TestProcessMessMonthlyBillWithoutAutoRenewal(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	env.fundAccount(t, mess.ID, 3)

	require.NoError(t, env.billing.ProcessMessMonthlyBill(mess.ID, owner.ID))

	reloaded, err := env.membershipRepo.GetByID(membership.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)

	// Credits were untouched.
	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.UsedCredits)
}

func TestBillingOwnershipRequired(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	stranger := env.createUser(t, "Stranger", "stranger@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	_, err := env.billing.CalculateMonthlyBill(mess.ID, stranger.ID, time.Now())
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.billing.GeneratePendingBill(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.billing.PayPendingBill(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	err = env.billing.ProcessMessMonthlyBill(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	// The stranger's attempts left no bill behind.
	_, err = env.billing.PayPendingBill(mess.ID, owner.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCycleDayCountIgnoresDST(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3100)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// March 2025 loses an hour to spring-forward; it is still a 31-day month.
	_, _, _, days := cycleOf(time.Date(2025, 3, 15, 12, 0, 0, 0, ny))
	require.Equal(t, 31, days)

	require.NoError(t, env.membershipRepo.CreateLeave(&models.LeaveRecord{
		MembershipID: membership.ID,
		MessID:       mess.ID,
		StartDate:    time.Date(2025, 3, 8, 0, 0, 0, 0, ny),
		EndDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, ny),
		Status:       models.LeaveStatusApproved,
	}))

	// The spring-forward transition falls inside the leave range; it still
	// spans three calendar days.
	at := time.Date(2025, 3, 15, 12, 0, 0, 0, ny)
	preview, err := env.billing.CalculateMonthlyBill(mess.ID, owner.ID, at)
	require.NoError(t, err)
	require.Equal(t, 31, preview.DaysInCycle)
	require.Equal(t, int64(300), preview.LeaveCredit) // 3100 * 3 / 31
}

func TestProcessCycleReadsAutoRenewalUnderLock(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)
	env.fundAccount(t, mess.ID, 3)

	// Hold the per-mess lock so the cycle run blocks before reading the
	// account, then toggle auto-renewal while it waits. The run must apply
	// the flag as of lock acquisition, not an earlier stale read.
	unlock := env.locks.Lock(messLockKey(mess.ID))
	done := make(chan error, 1)
	go func() {
		done <- env.billing.ProcessMessMonthlyBill(mess.ID, owner.ID)
	}()

	_, err := env.credits.ToggleAutoRenewal(mess.ID, owner.ID, true)
	require.NoError(t, err)
	unlock()
	require.NoError(t, <-done)

	reloaded, err := env.membershipRepo.GetByID(membership.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, reloaded.PaymentStatus)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), account.UsedCredits)
}

func TestProcessMessMonthlyBillInsufficientCredits(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	member := env.createUser(t, "Ravi", "ravi@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	plan := env.createPlan(t, mess.ID, 3000)
	membership := env.createActiveMembership(t, member.ID, mess.ID, plan.ID)

	env.fundAccount(t, mess.ID, 0)
	_, err := env.credits.ToggleAutoRenewal(mess.ID, owner.ID, true)
	require.NoError(t, err)

	require.NoError(t, env.billing.ProcessMessMonthlyBill(mess.ID, owner.ID))

	reloaded, err := env.membershipRepo.GetByID(membership.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, reloaded.PaymentStatus)
	require.NotEmpty(t, reloaded.LastBilledCycle)
}
