package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mariopotabile/checkout-appBRUNO/internal/config"
	"github.com/mariopotabile/checkout-appBRUNO/internal/http/handlers"
	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/marketing"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/payments"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/stats"
)

// NewRouter wires repositories, services and handlers onto one gin engine.
// The shopify client is shared with the token keep-warm task, so it is
// built by the caller.
func NewRouter(logger *slog.Logger, db *gorm.DB, cfg config.Config, shop *shopify.Client) *gin.Engine {
	registry := accounts.NewRegistry(db)
	sessionRepo := sessions.NewRepo(db)
	sessionSvc := sessions.NewService(sessionRepo, cfg.CheckoutDomain)
	statsSvc := stats.NewService(db)
	capi := marketing.NewClient(cfg.Marketing, logger)

	webhookSvc := payments.NewWebhookService(db, sessionRepo, statsSvc, shop, payments.NewStripeGateway, capi)
	webhookSvc.SetLogger(logger)
	upsellSvc := payments.NewUpsellService(sessionRepo, registry, payments.NewStripeGateway, shop)
	upsellSvc.SetLogger(logger)
	intentSvc := payments.NewIntentService(sessionRepo, registry, payments.NewStripeGateway)
	intentSvc.SetLogger(logger)

	webhookH := handlers.NewWebhookHandler(logger, registry, webhookSvc)
	upsellH := handlers.NewUpsellHandler(logger, upsellSvc)
	sessionH := handlers.NewSessionHandler(logger, sessionSvc, sessionRepo)
	intentH := handlers.NewPaymentIntentHandler(logger, intentSvc)
	statsH := handlers.NewStatsHandler(logger, statsSvc)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.ErrorHandler(logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/webhooks/stripe", webhookH.Handle)

	api := r.Group("/api")
	{
		api.POST("/cart-session", sessionH.Create)
		api.GET("/cart-session/:id", sessionH.Get)
		api.PUT("/cart-session/:id/customer", sessionH.AttachCustomer)

		api.POST("/payment-intent", intentH.Create)
		api.POST("/upsell", upsellH.Charge)

		api.GET("/stats/daily/:date", statsH.Daily)
	}

	return r
}
