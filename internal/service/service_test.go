package service

import (
	"fmt"
	"io"
	"testing"

	"github.com/messmate/messmate-backend/internal/config"
	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/lock"
	"github.com/messmate/messmate-backend/pkg/qrcode"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// In-memory stand-in for the R2 object store.
type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(key string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memStorage) Delete(key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type testEnv struct {
	db             *gorm.DB
	credits        *CreditsService
	trial          *TrialService
	verification   *VerificationService
	billing        *BillingService
	qr             *QRService
	creditsRepo    *repository.CreditsRepository
	membershipRepo *repository.MembershipRepository
	messRepo       *repository.MessRepository
	userRepo       *repository.UserRepository
	storage        *memStorage
	locks          *lock.KeyedMutex
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Per-test in-memory database to avoid cross-test interference.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Mess{},
		&models.MealPlan{},
		&models.CreditsAccount{},
		&models.CreditTransaction{},
		&models.MembershipRecord{},
		&models.LeaveRecord{},
		&models.PaymentVerificationRequest{},
		&models.MessBill{},
	))

	creditsRepo := repository.NewCreditsRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	billRepo := repository.NewBillRepository(db)
	messRepo := repository.NewMessRepository(db)
	userRepo := repository.NewUserRepository(db)

	locks := lock.New()
	zlog := zap.NewNop()
	store := newMemStorage()

	credits := NewCreditsService(db, creditsRepo, messRepo, userRepo,
		nil, nil, locks, zlog,
		config.CreditsConfig{PerMember: 1, LowCreditThreshold: 5})
	trial := NewTrialService(db, creditsRepo, messRepo, locks, zlog,
		config.TrialConfig{Enabled: true, DurationDays: 30, Credits: 10})
	verification := NewVerificationService(db, verificationRepo, membershipRepo,
		messRepo, userRepo, credits, nil, locks, zlog)
	billing := NewBillingService(db, billRepo, membershipRepo, messRepo, credits, locks, zlog)
	qr := NewQRService(messRepo, membershipRepo, userRepo,
		qrcode.NewSigner("test-signing-secret", 128), store, nil, zlog)

	return &testEnv{
		db:             db,
		credits:        credits,
		trial:          trial,
		verification:   verification,
		billing:        billing,
		qr:             qr,
		creditsRepo:    creditsRepo,
		membershipRepo: membershipRepo,
		messRepo:       messRepo,
		userRepo:       userRepo,
		storage:        store,
		locks:          locks,
	}
}

func (e *testEnv) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	user := &models.User{FullName: name, Email: email}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) createMess(t *testing.T, name string, ownerID uint) *models.Mess {
	t.Helper()
	mess := &models.Mess{Name: name, OwnerID: ownerID}
	require.NoError(t, e.messRepo.Create(mess))
	return mess
}

func (e *testEnv) createPlan(t *testing.T, messID uint, price int64) *models.MealPlan {
	t.Helper()
	plan := &models.MealPlan{
		MessID:         messID,
		Name:           "Full Board",
		Price:          price,
		LeaveDeduction: true,
		IsActive:       true,
	}
	require.NoError(t, e.messRepo.CreateMealPlan(plan))
	return plan
}

// fundAccount creates the account if needed and sets its balance.
func (e *testEnv) fundAccount(t *testing.T, messID uint, credits int64) {
	t.Helper()
	_, err := e.credits.EnsureAccount(messID)
	require.NoError(t, err)
	if credits > 0 {
		_, err = e.credits.Credit(messID, credits, "test top-up")
		require.NoError(t, err)
	}
}
