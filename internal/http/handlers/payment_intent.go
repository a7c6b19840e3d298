package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/http/validation"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/payments"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/apperr"
)

type PaymentIntentHandler struct {
	Logger  *slog.Logger
	Intents *payments.IntentService
}

func NewPaymentIntentHandler(logger *slog.Logger, svc *payments.IntentService) *PaymentIntentHandler {
	return &PaymentIntentHandler{Logger: logger, Intents: svc}
}

type paymentIntentRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// POST /api/payment-intent
// The amount always comes from the stored session totals, never from the
// request body.
func (h *PaymentIntentHandler) Create(c *gin.Context) {
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("sessionId mancante.", fields))
		return
	}

	intent, err := h.Intents.CreateForSession(c.Request.Context(), req.SessionID)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Carrello non trovato."))
		return
	case errors.Is(err, payments.ErrAmountTooSmall):
		middleware.Fail(c, apperr.InvalidErr("Importo non valido o troppo basso.", nil))
		return
	case errors.Is(err, accounts.ErrNoUsableAccount):
		h.Logger.Error("no usable stripe account configured")
		middleware.Fail(c, apperr.Wrap(err))
		return
	case err != nil:
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
}
