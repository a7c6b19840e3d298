package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/payments"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/apperr"
)

// Stripe caps event payloads well below this; anything larger is junk.
const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	Logger     *slog.Logger
	Registry   *accounts.Registry
	WebhookSvc *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, registry *accounts.Registry, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Registry: registry, WebhookSvc: svc}
}

// POST /webhooks/stripe
// Raw body; the signature header is tried against every configured
// account. The only non-2xx outcomes are a failed signature (400) and a
// storage error (500, so the processor redelivers).
func (h *WebhookHandler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "invalid body"})
		return
	}

	candidates, err := h.Registry.VerificationCandidates(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	ev, acc, err := payments.ResolveEvent(body, c.GetHeader("Stripe-Signature"), candidates)
	if err != nil {
		if errors.Is(err, payments.ErrSignatureMismatch) || errors.Is(err, payments.ErrNoCandidates) {
			h.Logger.Warn("webhook signature verification failed", "err", err, "client_ip", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"received": false, "error": "signature verification failed"})
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	res, err := h.WebhookSvc.HandleEvent(c.Request.Context(), acc, ev, body, payments.RequestMeta{})
	if err != nil {
		h.Logger.Error("webhook processing failed", "event_id", ev.ID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"received": false})
		return
	}

	payload := gin.H{
		"received": true,
		"outcome":  string(res.Outcome),
	}
	if res.SessionID != "" {
		payload["sessionId"] = res.SessionID
	}
	if res.OrderID != 0 {
		payload["shopifyOrderId"] = res.OrderID
		payload["shopifyOrderNumber"] = res.OrderNumber
	}
	c.JSON(http.StatusOK, payload)
}
