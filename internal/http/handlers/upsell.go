package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/http/validation"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/payments"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/apperr"
)

type UpsellHandler struct {
	Logger *slog.Logger
	Upsell *payments.UpsellService
}

func NewUpsellHandler(logger *slog.Logger, svc *payments.UpsellService) *UpsellHandler {
	return &UpsellHandler{Logger: logger, Upsell: svc}
}

type upsellRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	VariantID   string `json:"variantId" binding:"required"`
	Quantity    int    `json:"quantity"`
	AmountCents int64  `json:"amountCents" binding:"required"`
}

// POST /api/upsell
// Declines and step-up are caller-facing results, not server errors: the
// shopper page drives the 3-D Secure challenge or shows the decline.
func (h *UpsellHandler) Charge(c *gin.Context) {
	var req upsellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Dati della richiesta non validi.", fields))
		return
	}

	res, err := h.Upsell.Charge(c.Request.Context(), payments.ChargeInput{
		SessionID:   req.SessionID,
		VariantRef:  req.VariantID,
		Quantity:    req.Quantity,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		h.failCharge(c, req.SessionID, err)
		return
	}

	switch res.Status {
	case payments.ChargeRequiresAction:
		c.JSON(http.StatusPaymentRequired, gin.H{
			"requiresAction":  true,
			"paymentIntentId": res.PaymentIntentID,
			"clientSecret":    res.ClientSecret,
		})
	case payments.ChargeDeclined:
		c.JSON(http.StatusBadRequest, gin.H{
			"declined": true,
			"reason":   res.DeclineReason,
		})
	case payments.ChargePaidNoOrder:
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"paymentIntentId": res.PaymentIntentID,
			"warning":         "pagamento riuscito, creazione ordine fallita",
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"paymentIntentId": res.PaymentIntentID,
			"orderId":         res.OrderID,
			"orderNumber":     res.OrderNumber,
		})
	}
}

func (h *UpsellHandler) failCharge(c *gin.Context, sessionID string, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		middleware.Fail(c, apperr.NotFoundErr("Sessione non trovata."))
	case errors.Is(err, payments.ErrAmountTooSmall):
		middleware.Fail(c, apperr.InvalidErr("Importo non valido o troppo basso.", nil))
	case errors.Is(err, payments.ErrInvalidVariant):
		middleware.Fail(c, apperr.InvalidErr("Variante non valida.", nil))
	case errors.Is(err, payments.ErrNoPaymentMethod), errors.Is(err, payments.ErrNoCustomerLinked):
		middleware.Fail(c, apperr.InvalidErr("Nessun metodo di pagamento disponibile per questa sessione.", nil))
	default:
		h.Logger.Error("upsell charge failed", "session_id", sessionID, "err", err)
		middleware.Fail(c, apperr.Wrap(err))
	}
}
