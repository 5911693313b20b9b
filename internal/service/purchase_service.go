package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/messmate/messmate-backend/internal/models"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/pkg/payment"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/price"
	"github.com/stripe/stripe-go/v74/product"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseService sells credit packs through Stripe checkout. The ledger is
// credited only from the webhook, after Stripe confirms the session.
type PurchaseService struct {
	stripeService  *payment.StripeService
	packageRepo    *repository.CreditPackageRepository
	purchaseRepo   *repository.CreditPurchaseRepository
	messRepo       *repository.MessRepository
	userRepo       *repository.UserRepository
	creditsService *CreditsService
	logger         *zap.Logger
}

func NewPurchaseService(
	stripeService *payment.StripeService,
	packageRepo *repository.CreditPackageRepository,
	purchaseRepo *repository.CreditPurchaseRepository,
	messRepo *repository.MessRepository,
	userRepo *repository.UserRepository,
	creditsService *CreditsService,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		stripeService:  stripeService,
		packageRepo:    packageRepo,
		purchaseRepo:   purchaseRepo,
		messRepo:       messRepo,
		userRepo:       userRepo,
		creditsService: creditsService,
		logger:         logger,
	}
}

func (s *PurchaseService) GetCreditPackages() ([]models.CreditPackage, error) {
	return s.packageRepo.GetAll()
}

func (s *PurchaseService) GetPurchaseHistory(messID, ownerID uint) ([]models.CreditPurchase, error) {
	mess, err := s.messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("mess")
	}
	if err != nil {
		return nil, err
	}
	if mess.OwnerID != ownerID {
		return nil, models.NewForbidden("not the mess owner")
	}

	return s.purchaseRepo.GetMessPurchaseHistory(messID)
}

func (s *PurchaseService) CreateCheckoutSession(ownerID, messID, packageID uint) (*models.CheckoutSession, error) {
	mess, err := s.messRepo.GetByID(messID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("mess")
	}
	if err != nil {
		return nil, err
	}
	if mess.OwnerID != ownerID {
		return nil, models.NewForbidden("not the mess owner")
	}

	creditPackage, err := s.packageRepo.GetByID(packageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFound("credit package")
	}
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ownerID)
	if err != nil {
		return nil, err
	}

	productParams := &stripe.ProductParams{
		Name:        stripe.String(creditPackage.Name),
		Description: stripe.String(fmt.Sprintf("%d credits for %s", creditPackage.Credits, mess.Name)),
	}
	prod, err := product.New(productParams)
	if err != nil {
		return nil, err
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(creditPackage.Price),
		Currency:   stripe.String(string(stripe.CurrencyINR)),
	}
	p, err := price.New(priceParams)
	if err != nil {
		return nil, err
	}

	session, err := s.stripeService.CreateCheckoutSession(
		owner.Email,
		p.ID,
		map[string]string{
			"mess_id":    fmt.Sprintf("%d", messID),
			"owner_id":   fmt.Sprintf("%d", ownerID),
			"package_id": fmt.Sprintf("%d", packageID),
		},
	)
	if err != nil {
		return nil, err
	}

	purchase := &models.CreditPurchase{
		MessID:          messID,
		OwnerID:         ownerID,
		PackageID:       packageID,
		Credits:         creditPackage.Credits,
		Price:           creditPackage.Price,
		StripeSessionID: session.ID,
		Status:          models.PurchaseStatusPending,
	}
	if err := s.purchaseRepo.Create(purchase); err != nil {
		return nil, err
	}

	return &models.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

func (s *PurchaseService) HandleStripeWebhook(event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}

		purchase, err := s.purchaseRepo.GetBySessionID(session.ID)
		if err != nil {
			return err
		}
		if purchase.Status == models.PurchaseStatusCompleted {
			// Stripe retries webhooks; never credit twice.
			return nil
		}

		messID, err := strconv.ParseUint(session.Metadata["mess_id"], 10, 32)
		if err != nil {
			return err
		}
		if uint(messID) != purchase.MessID {
			return fmt.Errorf("webhook metadata mess_id %d does not match purchase %d", messID, purchase.MessID)
		}

		purchase.Status = models.PurchaseStatusCompleted
		if err := s.purchaseRepo.Update(purchase); err != nil {
			return err
		}

		if _, err := s.creditsService.EnsureAccount(purchase.MessID); err != nil {
			return err
		}
		_, err = s.creditsService.Credit(purchase.MessID, purchase.Credits,
			fmt.Sprintf("credit pack purchase #%d", purchase.ID))
		if err != nil {
			return err
		}

		s.logger.Info("credited purchased pack",
			zap.Uint("mess_id", purchase.MessID),
			zap.Int64("credits", purchase.Credits),
		)
		return nil

	case "checkout.session.expired", "checkout.session.async_payment_failed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}

		purchase, err := s.purchaseRepo.GetBySessionID(session.ID)
		if err != nil {
			return err
		}

		purchase.Status = models.PurchaseStatusFailed
		return s.purchaseRepo.Update(purchase)

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return err
		}

		if charge.PaymentIntent == nil || charge.PaymentIntent.Metadata == nil {
			return nil
		}
		sessionID, ok := charge.PaymentIntent.Metadata["checkout_session_id"]
		if !ok {
			return nil
		}

		purchase, err := s.purchaseRepo.GetBySessionID(sessionID)
		if err != nil {
			return err
		}
		if purchase.Status == models.PurchaseStatusRefunded {
			return nil
		}

		purchase.Status = models.PurchaseStatusRefunded
		if err := s.purchaseRepo.Update(purchase); err != nil {
			return err
		}

		// Claw back what remains; the balance never goes negative.
		_, err = s.creditsService.RevokeCredits(purchase.MessID, purchase.Credits,
			fmt.Sprintf("purchase #%d refunded", purchase.ID))
		return err
	}

	return nil
}
