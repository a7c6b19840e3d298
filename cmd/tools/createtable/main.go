package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/payments"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/stats"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&accounts.Account{},
		&sessions.CheckoutSession{},
		&payments.ProviderEvent{},
		&stats.DailyStat{},
		&stats.DailyAccountStat{},
	); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	log.Println("✓ stripe_accounts table ready")
	log.Println("✓ cart_sessions table ready")
	log.Println("✓ provider_events table ready")
	log.Println("✓ daily_stats / daily_stat_accounts tables ready")
}
