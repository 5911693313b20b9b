package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/messmate/messmate-backend/internal/config"
	"github.com/messmate/messmate-backend/internal/handler"
	"github.com/messmate/messmate-backend/internal/middleware"
	"github.com/messmate/messmate-backend/internal/repository"
	"github.com/messmate/messmate-backend/internal/service"
	"github.com/messmate/messmate-backend/pkg/cache"
	"github.com/messmate/messmate-backend/pkg/database"
	"github.com/messmate/messmate-backend/pkg/email"
	"github.com/messmate/messmate-backend/pkg/lock"
	"github.com/messmate/messmate-backend/pkg/logger"
	"github.com/messmate/messmate-backend/pkg/payment"
	"github.com/messmate/messmate-backend/pkg/qrcode"
	"github.com/messmate/messmate-backend/pkg/storage"
	"github.com/messmate/messmate-backend/pkg/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.LoadConfig()

	zlog := logger.New(os.Getenv("APP_ENV"))
	defer zlog.Sync()

	// Initialize database
	db := database.NewDatabase(cfg.DatabaseURL)

	// Redis is an optimization layer; the app runs without it.
	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		var err error
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			zlog.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisCache = nil
		}
	}

	// Repositories
	creditsRepo := repository.NewCreditsRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	billRepo := repository.NewBillRepository(db)
	messRepo := repository.NewMessRepository(db)
	userRepo := repository.NewUserRepository(db)
	packageRepo := repository.NewCreditPackageRepository(db)
	purchaseRepo := repository.NewCreditPurchaseRepository(db)

	// R2 storage for QR poster images
	r2Storage, err := storage.NewCloudflareStorage(cfg)
	if err != nil {
		log.Fatal("Failed to initialize R2 storage:", err)
	}

	// Email service
	emailService := email.NewEmailService()

	// Per-mess write serialization
	locks := lock.New()

	if cfg.QR.SigningSecret == "" {
		log.Fatal("QR_SIGNING_SECRET is not set")
	}
	signer := qrcode.NewSigner(cfg.QR.SigningSecret, cfg.QR.ImageSize)

	// Services
	creditsService := service.NewCreditsService(
		db, creditsRepo, messRepo, userRepo,
		emailService, redisCache, locks, zlog, cfg.Credits,
	)
	trialService := service.NewTrialService(db, creditsRepo, messRepo, locks, zlog, cfg.Trial)
	verificationService := service.NewVerificationService(
		db, verificationRepo, membershipRepo, messRepo, userRepo,
		creditsService, emailService, locks, zlog,
	)
	billingService := service.NewBillingService(
		db, billRepo, membershipRepo, messRepo, creditsService, locks, zlog,
	)
	qrService := service.NewQRService(
		messRepo, membershipRepo, userRepo, signer, r2Storage, redisCache, zlog,
	)

	// Stripe service
	stripeService := payment.NewStripeService(cfg.StripeSecretKey)
	purchaseService := service.NewPurchaseService(
		stripeService, packageRepo, purchaseRepo, messRepo, userRepo,
		creditsService, zlog,
	)

	validator := utils.NewValidator()

	// Handlers
	creditsHandler := handler.NewCreditsHandler(creditsService)
	trialHandler := handler.NewTrialHandler(trialService)
	verificationHandler := handler.NewVerificationHandler(verificationService, validator)
	billingHandler := handler.NewBillingHandler(billingService)
	qrHandler := handler.NewQRHandler(qrService, validator)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService, zlog)

	// Router
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("CORS_ALLOW_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Stripe webhook (public)
	api.Post("/payments/webhook", purchaseHandler.HandleStripeWebhook)

	// Public package listing (must be registered before the auth middleware)
	api.Get("/packages", purchaseHandler.GetCreditPackages)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		verifications := api.Group("/verifications")
		verifications.Post("/", verificationHandler.Submit)
		verifications.Get("/", verificationHandler.ListForOwner)
		verifications.Get("/my", verificationHandler.ListForUser)
		verifications.Get("/stats/:messId", verificationHandler.GetStats)
		verifications.Put("/:id", verificationHandler.Resolve)

		credits := api.Group("/credits")
		credits.Get("/:messId", creditsHandler.GetAccount)
		credits.Get("/:messId/transactions", creditsHandler.ListTransactions)
		credits.Post("/check-new-user/:messId", creditsHandler.CheckNewUser)
		credits.Post("/auto-renewal/:messId", creditsHandler.ToggleAutoRenewal)

		trial := api.Group("/trial")
		trial.Get("/availability/:messId", trialHandler.CheckAvailability)
		trial.Post("/activate", trialHandler.Activate)

		qr := api.Group("/qr")
		qr.Post("/generate", qrHandler.Generate)
		qr.Post("/revoke", qrHandler.Revoke)
		qr.Post("/verify-membership", qrHandler.VerifyMembership)
		qr.Post("/verify-by-owner", qrHandler.VerifyByOwner)

		billing := api.Group("/billing")
		billing.Get("/preview/:messId", billingHandler.Preview)
		billing.Post("/generate/:messId", billingHandler.Generate)
		billing.Post("/pay/:messId", billingHandler.Pay)
		billing.Post("/process/:messId", billingHandler.ProcessCycle)

		payments := api.Group("/payments")
		payments.Get("/history/:messId", purchaseHandler.GetPurchaseHistory)
		payments.Post("/checkout/:packageId", purchaseHandler.CreateCheckoutSession)
	}

	log.Fatal(app.Listen(":" + cfg.Port))
}
