package main

import (
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/mariopotabile/checkout-appBRUNO/internal/config"
	apphttp "github.com/mariopotabile/checkout-appBRUNO/internal/http"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
	"github.com/mariopotabile/checkout-appBRUNO/internal/tasks"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	shop := shopify.NewClient(cfg.Shopify, logger)
	tokenTask := tasks.NewTokenTask(shop, logger)
	if err := tokenTask.Start(); err != nil {
		log.Fatalf("failed to start token task: %v", err)
	}
	defer tokenTask.Stop()

	r := apphttp.NewRouter(logger, db, cfg, shop)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
