package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mariopotabile/checkout-appBRUNO/internal/http/middleware"
	"github.com/mariopotabile/checkout-appBRUNO/internal/http/validation"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/apperr"
)

type SessionHandler struct {
	Logger   *slog.Logger
	Sessions *sessions.Service
	Repo     *sessions.Repo
}

func NewSessionHandler(logger *slog.Logger, svc *sessions.Service, repo *sessions.Repo) *SessionHandler {
	return &SessionHandler{Logger: logger, Sessions: svc, Repo: repo}
}

type cartSessionRequest struct {
	CartToken string            `json:"cartToken"`
	CartID    string            `json:"cartId"`
	Items     []sessions.Item   `json:"items" binding:"required"`
	Subtotal  *int64            `json:"subtotalCents"`
	Total     *int64            `json:"totalCents"`
	Shipping  int64             `json:"shippingCents"`
	Currency  string            `json:"currency"`
	Attrs     map[string]string `json:"attributes"`
}

// POST /api/cart-session
// The storefront hands its cart over and gets the hosted checkout URL.
func (h *SessionHandler) Create(c *gin.Context) {
	var req cartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Dati del carrello non validi.", fields))
		return
	}

	res, err := h.Sessions.CreateFromCart(c.Request.Context(), sessions.IntakeInput{
		CartToken: req.CartToken,
		CartID:    req.CartID,
		Items:     req.Items,
		Subtotal:  req.Subtotal,
		Total:     req.Total,
		Shipping:  req.Shipping,
		Currency:  req.Currency,
		Attrs:     req.Attrs,
	})
	if errors.Is(err, sessions.ErrEmptyCart) {
		middleware.Fail(c, apperr.InvalidErr("Il carrello è vuoto.", nil))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId":   res.SessionID,
		"checkoutUrl": res.CheckoutURL,
	})
}

// GET /api/cart-session/:id
// Read model for the checkout page; internal linkage fields stay private.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sessions.ErrNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Sessione non trovata."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items, err := sess.Items()
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	payload := gin.H{
		"sessionId":     sess.ID,
		"currency":      sess.Currency,
		"items":         items,
		"subtotalCents": sess.SubtotalCents,
		"shippingCents": sess.ShippingCents,
		"totalCents":    sess.TotalCents,
	}
	if sess.PaymentStatus != nil {
		payload["paymentStatus"] = *sess.PaymentStatus
	}
	if sess.OrderStatus != nil {
		payload["orderStatus"] = *sess.OrderStatus
	}
	if sess.ShopifyOrderNumber != nil {
		payload["orderNumber"] = *sess.ShopifyOrderNumber
	}
	c.JSON(http.StatusOK, payload)
}

type attachCustomerRequest struct {
	Customer sessions.Customer `json:"customer" binding:"required"`
}

// PUT /api/cart-session/:id/customer
func (h *SessionHandler) AttachCustomer(c *gin.Context) {
	var req attachCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Dati cliente non validi.", fields))
		return
	}

	err := h.Sessions.AttachCustomer(c.Request.Context(), c.Param("id"), req.Customer)
	if errors.Is(err, sessions.ErrNotFound) {
		middleware.Fail(c, apperr.NotFoundErr("Sessione non trovata."))
		return
	}
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
