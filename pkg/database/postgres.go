package database

import (
	"log"

	"github.com/messmate/messmate-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase(databaseURL string) *gorm.DB {
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Mess{},
		&models.MealPlan{},
		&models.CreditsAccount{},
		&models.CreditTransaction{},
		&models.MembershipRecord{},
		&models.LeaveRecord{},
		&models.PaymentVerificationRequest{},
		&models.MessBill{},
		&models.CreditPackage{},
		&models.CreditPurchase{},
	)
	if err != nil {
		return err
	}

	return seedCreditPackages(db)
}

// Default credit packs, inserted once by name.
func seedCreditPackages(db *gorm.DB) error {
	packages := []models.CreditPackage{
		{
			Name:        "10 Credits",
			Description: "Verify up to 10 members",
			Credits:     10,
			Price:       49900,
			IsActive:    true,
		},
		{
			Name:        "25 Credits",
			Description: "Verify up to 25 members",
			Credits:     25,
			Price:       109900,
			IsActive:    true,
		},
		{
			Name:        "50 Credits",
			Description: "Verify up to 50 members",
			Credits:     50,
			Price:       199900,
			IsActive:    true,
		},
		{
			Name:        "100 Credits",
			Description: "Verify up to 100 members, priority support",
			Credits:     100,
			Price:       349900,
			IsActive:    true,
		},
	}

	for _, pkg := range packages {
		var count int64
		db.Model(&models.CreditPackage{}).Where("name = ?", pkg.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&pkg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
