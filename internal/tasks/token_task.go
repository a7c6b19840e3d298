package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
)

// TokenTask keeps the Shopify admin token warm so a webhook burst never
// pays the OAuth round trip on its critical path. The client refreshes
// lazily anyway; this is purely a latency optimization.
type TokenTask struct {
	shop   *shopify.Client
	cron   *cron.Cron
	logger *slog.Logger
}

func NewTokenTask(shop *shopify.Client, logger *slog.Logger) *TokenTask {
	return &TokenTask{
		shop:   shop,
		cron:   cron.New(),
		logger: logger,
	}
}

func (t *TokenTask) Start() error {
	if !t.shop.Configured() {
		t.logger.Warn("shopify not configured, token keep-warm disabled")
		return nil
	}

	// Warm once at boot, then ahead of the cache margin.
	go t.refresh()

	if _, err := t.cron.AddFunc("@every 2h", t.refresh); err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("shopify token keep-warm started")
	return nil
}

func (t *TokenTask) Stop() {
	t.cron.Stop()
}

func (t *TokenTask) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := t.shop.AccessToken(ctx); err != nil {
		t.logger.Warn("shopify token refresh failed", "err", err)
	}
}
