package main

import (
	"flag"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
)

// Inserts or updates one Stripe account row. Account credentials live in
// the database, not in env vars, so rotation does not need a deploy.
func main() {
	label := flag.String("label", "", "Account label (unique)")
	secretKey := flag.String("secret-key", "", "Stripe secret key")
	publishableKey := flag.String("publishable-key", "", "Stripe publishable key")
	webhookSecret := flag.String("webhook-secret", "", "Webhook signing secret")
	position := flag.Int("position", 0, "Verification/rotation order")
	active := flag.Bool("active", true, "Eligible for new outbound charges")
	merchantSite := flag.String("merchant-site", "", "Merchant site shown on statements")

	flag.Parse()

	if *label == "" {
		log.Fatal("-label is required")
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	acc := accounts.Account{
		ID:             uuid.NewString(),
		Label:          *label,
		SecretKey:      *secretKey,
		PublishableKey: *publishableKey,
		WebhookSecret:  *webhookSecret,
		Active:         *active,
		Position:       *position,
		MerchantSite:   *merchantSite,
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "label"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"secret_key", "publishable_key", "webhook_secret",
			"active", "position", "merchant_site",
		}),
	}).Create(&acc).Error
	if err != nil {
		log.Fatalf("Failed to upsert account: %v", err)
	}

	log.Printf("✓ account %q saved", *label)
}
