package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGetAccountNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.credits.GetAccount(42, 1)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCheckSufficientEmptyAccount(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 0)

	sufficiency, err := env.credits.CheckSufficientForOneMore(mess.ID, owner.ID)
	require.NoError(t, err)
	require.False(t, sufficiency.Sufficient)
	require.Equal(t, int64(1), sufficiency.RequiredCredits)
	require.Equal(t, int64(0), sufficiency.AvailableCredits)
}

func TestDebitInsufficientLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 2)

	_, err := env.credits.Debit(mess.ID, 5, "too much")

	var insufficient *models.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(5), insufficient.RequiredCredits)
	require.Equal(t, int64(2), insufficient.AvailableCredits)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), account.AvailableCredits)
	require.Equal(t, int64(0), account.UsedCredits)
}

func TestDebitCreditInvariant(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 10)

	_, err := env.credits.Debit(mess.ID, 3, "members")
	require.NoError(t, err)
	_, err = env.credits.Credit(mess.ID, 2, "top-up")
	require.NoError(t, err)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, account.TotalCredits-account.UsedCredits, account.AvailableCredits)
	require.GreaterOrEqual(t, account.AvailableCredits, int64(0))
	require.Equal(t, int64(12), account.TotalCredits)
	require.Equal(t, int64(3), account.UsedCredits)

	transactions, err := env.credits.ListTransactions(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, transactions, 3) // fund + debit + credit
}

func TestConcurrentDebitsSingleSuccess(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 1)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.credits.Debit(mess.ID, 1, "race")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, insufficient := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var e *models.InsufficientCreditsError
		require.ErrorAs(t, err, &e)
		insufficient++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, n-1, insufficient)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.AvailableCredits)
	require.Equal(t, int64(1), account.UsedCredits)
}

func TestToggleAutoRenewalIdempotent(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 0)

	account, err := env.credits.ToggleAutoRenewal(mess.ID, owner.ID, true)
	require.NoError(t, err)
	require.True(t, account.AutoRenewal)

	account, err = env.credits.ToggleAutoRenewal(mess.ID, owner.ID, true)
	require.NoError(t, err)
	require.True(t, account.AutoRenewal)

	account, err = env.credits.ToggleAutoRenewal(mess.ID, owner.ID, false)
	require.NoError(t, err)
	require.False(t, account.AutoRenewal)
}

func TestRevokeCreditsClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 3)

	account, err := env.credits.RevokeCredits(mess.ID, 10, "refund")
	require.NoError(t, err)
	require.Equal(t, int64(0), account.AvailableCredits)
	require.Equal(t, int64(0), account.TotalCredits)
	require.Equal(t, account.TotalCredits-account.UsedCredits, account.AvailableCredits)
}

func TestLowCreditWarning(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 3)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)

	warning := env.credits.LowCreditWarning(account)
	require.NotNil(t, warning)
	require.Equal(t, int64(3), warning.AvailableCredits)
	require.Equal(t, int64(5), warning.Threshold)

	// Warnings are advisory; debits still go through.
	_, err = env.credits.Debit(mess.ID, 1, "still works")
	require.NoError(t, err)
}

func TestCreditsOwnershipRequired(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "Owner", "owner@test.in")
	stranger := env.createUser(t, "Stranger", "stranger@test.in")
	mess := env.createMess(t, "Sunrise Mess", owner.ID)
	env.fundAccount(t, mess.ID, 3)

	_, err := env.credits.GetAccount(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.credits.ListTransactions(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.credits.CheckSufficientForOneMore(mess.ID, stranger.ID)
	require.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.credits.ToggleAutoRenewal(mess.ID, stranger.ID, true)
	require.ErrorIs(t, err, models.ErrForbidden)

	account, err := env.credits.GetAccount(mess.ID, owner.ID)
	require.NoError(t, err)
	require.False(t, account.AutoRenewal)
}

func TestCreditRequiresAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.credits.Credit(42, 5, "nowhere")
	require.True(t, errors.Is(err, models.ErrNotFound))
}
