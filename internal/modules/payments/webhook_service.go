package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/marketing"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/stats"
)

const providerStripe = "stripe"

// RequestMeta carries the delivery-level attributes the marketing event
// needs (the processor posts the webhook, but the attribution data is
// about the shopper's original browser session).
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// WebhookService is the order reconciler: it promotes a paid session into
// a Shopify order exactly once per session, persists the payment-method
// linkage the upsell flow feeds on, and updates the daily statistics.
type WebhookService struct {
	db       *gorm.DB
	sessions *sessions.Repo
	stats    *stats.Service
	shop     *shopify.Client
	gateways GatewayFactory
	capi     *marketing.Client
	logger   *slog.Logger

	// runDetached dispatches best-effort side calls (cart clear, CAPI)
	// without blocking the webhook response. Tests swap it for a
	// synchronous runner.
	runDetached func(func())
}

func NewWebhookService(
	db *gorm.DB,
	sessionRepo *sessions.Repo,
	statsSvc *stats.Service,
	shop *shopify.Client,
	gateways GatewayFactory,
	capi *marketing.Client,
) *WebhookService {
	return &WebhookService{
		db:          db,
		sessions:    sessionRepo,
		stats:       statsSvc,
		shop:        shop,
		gateways:    gateways,
		capi:        capi,
		logger:      slog.Default(),
		runDetached: func(fn func()) { go fn() },
	}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) { s.logger = logger }

// HandleEvent processes one verified webhook delivery. Every return with
// a nil error is acknowledged 200 to the processor; an error return is the
// "truly unexpected" 500 case (storage failures and the like).
func (s *WebhookService) HandleEvent(ctx context.Context, acc accounts.Account, ev stripe.Event, rawBody []byte, meta RequestMeta) (ReconcileResult, error) {
	pe, alreadyDone, err := s.recordEvent(ctx, acc, ev, rawBody)
	if err != nil {
		return ReconcileResult{}, err
	}
	if alreadyDone {
		s.logger.InfoContext(ctx, "webhook event deduplicated", "event_id", ev.ID, "type", ev.Type)
		return ReconcileResult{Outcome: OutcomeAlreadyProcessed, Detail: "event_deduplicated"}, nil
	}

	if ev.Type != stripe.EventTypePaymentIntentSucceeded {
		s.logger.InfoContext(ctx, "webhook event ignored", "event_id", ev.ID, "type", ev.Type)
		s.markProcessed(ctx, pe, "")
		return ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return ReconcileResult{}, fmt.Errorf("decode payment intent payload: %w", err)
	}

	sessionID := pi.Metadata["sessionId"]
	if sessionID == "" {
		sessionID = pi.Metadata["session_id"]
	}
	if sessionID == "" {
		// An event this pipeline cannot act on; acknowledged so the
		// processor does not retry it forever.
		s.logger.WarnContext(ctx, "payment intent without session id", "event_id", ev.ID, "payment_intent", pi.ID)
		s.markProcessed(ctx, pe, "no_session_id")
		return ReconcileResult{Outcome: OutcomeNoSession, Detail: "no_session_id"}, nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		s.logger.WarnContext(ctx, "session not found for webhook", "event_id", ev.ID, "session_id", sessionID)
		s.markProcessed(ctx, pe, "session_not_found")
		return ReconcileResult{Outcome: OutcomeNoSession, SessionID: sessionID, Detail: "session_not_found"}, nil
	}
	if err != nil {
		return ReconcileResult{}, err
	}

	// Payment-method/customer linkage for the later upsell charge.
	// Everything in here is optional: a session without linkage still gets
	// its order.
	now := time.Now()
	update := map[string]any{
		"payment_status":       sessions.PaymentStatusPaid,
		"payment_intent_id":    pi.ID,
		"stripe_account_used":  acc.Label,
		"webhook_processed_at": &now,
	}

	customerID, pmID := "", ""
	if pi.Customer != nil {
		customerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		pmID = pi.PaymentMethod.ID
	}
	if customerID != "" {
		update["stripe_customer_id"] = customerID
	}
	if pmID != "" {
		update["stripe_payment_method_id"] = pmID
	}

	if customerID != "" && pmID != "" {
		gw := s.gateways(acc.SecretKey)

		if err := gw.AttachPaymentMethod(ctx, pmID, customerID); err != nil {
			s.logger.WarnContext(ctx, "attach payment method failed", "session_id", sessionID, "err", err)
		} else if err := gw.SetDefaultPaymentMethod(ctx, customerID, pmID); err != nil {
			s.logger.WarnContext(ctx, "set default payment method failed", "session_id", sessionID, "err", err)
		}

		if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
			ntid, err := gw.NetworkTransactionID(ctx, pi.LatestCharge.ID)
			switch {
			case err != nil:
				s.logger.WarnContext(ctx, "network transaction id not available", "session_id", sessionID, "err", err)
			case ntid != "":
				update["network_transaction_id"] = ntid
			}
		}
	}

	if err := s.sessions.Update(ctx, sessionID, update); err != nil {
		return ReconcileResult{}, err
	}

	// Idempotency gate: an order already recorded for this session means a
	// previous delivery completed reconciliation.
	if sess.ShopifyOrderID != nil {
		s.logger.InfoContext(ctx, "order already exists for session",
			"session_id", sessionID, "shopify_order_id", *sess.ShopifyOrderID)
		s.markProcessed(ctx, pe, "")
		return ReconcileResult{Outcome: OutcomeAlreadyProcessed, SessionID: sessionID}, nil
	}

	items, err := sess.Items()
	if err != nil {
		detail := "invalid session items: " + err.Error()
		if derr := s.degradeOrder(ctx, sessionID, detail); derr != nil {
			return ReconcileResult{}, derr
		}
		s.markProcessed(ctx, pe, detail)
		return ReconcileResult{Outcome: OutcomeOrderFailedPaid, SessionID: sessionID, Detail: detail}, nil
	}

	order, err := shopify.BuildCheckoutOrder(shopify.CheckoutOrderInput{
		SessionID:       sessionID,
		Items:           items,
		Customer:        sess.Customer(),
		AmountCents:     pi.Amount,
		Currency:        string(pi.Currency),
		AccountLabel:    acc.Label,
		PaymentIntentID: pi.ID,
	})
	if err != nil {
		detail := err.Error()
		if derr := s.degradeOrder(ctx, sessionID, detail); derr != nil {
			return ReconcileResult{}, derr
		}
		s.logger.ErrorContext(ctx, "order payload not buildable, payment captured without order",
			"session_id", sessionID, "err", err)
		s.markProcessed(ctx, pe, detail)
		return ReconcileResult{Outcome: OutcomeOrderFailedPaid, SessionID: sessionID, Detail: detail}, nil
	}

	created, err := s.shop.CreateOrder(ctx, order)
	if err != nil {
		// The payment is already captured; a failed order submission is an
		// operational alert persisted on the session, never a webhook
		// error (a non-2xx would trigger processor retries for something
		// already recorded).
		detail := err.Error()
		if derr := s.degradeOrder(ctx, sessionID, detail); derr != nil {
			return ReconcileResult{}, derr
		}
		s.logger.ErrorContext(ctx, "shopify order creation failed, payment captured without order",
			"session_id", sessionID, "payment_intent", pi.ID, "err", err)
		s.markProcessed(ctx, pe, detail)
		return ReconcileResult{Outcome: OutcomeOrderFailedPaid, SessionID: sessionID, Detail: detail}, nil
	}

	won, err := s.sessions.ClaimOrder(ctx, sessionID, created.OrderID, created.OrderNumber)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !won {
		// A concurrent delivery reconciled this session first; this
		// submission produced a duplicate upstream order that needs manual
		// cleanup, but statistics and notifications must not double up.
		s.logger.WarnContext(ctx, "lost order claim, duplicate upstream order",
			"session_id", sessionID, "shopify_order_id", created.OrderID)
		s.markProcessed(ctx, pe, "lost_order_claim")
		return ReconcileResult{Outcome: OutcomeAlreadyProcessed, SessionID: sessionID, Detail: "duplicate_delivery"}, nil
	}

	if err := s.stats.Record(ctx, stats.DateOf(now), acc.Label, pi.Amount); err != nil {
		// The order exists and the webhook will be acknowledged; a missed
		// counter is recoverable from the order history.
		s.logger.ErrorContext(ctx, "daily statistics update failed",
			"session_id", sessionID, "account", acc.Label, "err", err)
	}

	s.dispatchSideEffects(ctx, sess, pi, meta)

	s.logger.InfoContext(ctx, "order created",
		"session_id", sessionID, "shopify_order_id", created.OrderID,
		"shopify_order_number", created.OrderNumber, "account", acc.Label)
	s.markProcessed(ctx, pe, "")

	return ReconcileResult{
		Outcome:     OutcomeOrderCreated,
		SessionID:   sessionID,
		OrderID:     created.OrderID,
		OrderNumber: created.OrderNumber,
	}, nil
}

// dispatchSideEffects fires the best-effort calls that must not gate the
// webhook response: storefront cart clearing and the marketing purchase
// event. Failures are logged and swallowed.
func (s *WebhookService) dispatchSideEffects(ctx context.Context, sess sessions.CheckoutSession, pi stripe.PaymentIntent, meta RequestMeta) {
	// Detach from the request lifetime; the webhook response does not wait.
	bgCtx := context.WithoutCancel(ctx)

	rawCart := sess.RawCart()

	if cartID := rawCart.ID; cartID != "" {
		s.runDetached(func() {
			if err := s.shop.ClearCart(bgCtx, cartID); err != nil {
				s.logger.Warn("cart clear failed", "session_id", sess.ID, "err", err)
			}
		})
	}

	if s.capi != nil && s.capi.Enabled() {
		purchase := buildPurchase(sess, pi, meta, rawCart)
		s.runDetached(func() {
			if err := s.capi.SendPurchase(bgCtx, purchase); err != nil {
				s.logger.Warn("meta capi purchase failed", "session_id", sess.ID, "err", err)
			}
		})
	}
}

func buildPurchase(sess sessions.CheckoutSession, pi stripe.PaymentIntent, meta RequestMeta, rawCart sessions.RawCart) marketing.Purchase {
	cust := sess.Customer()
	first, last := shopify.SplitFullName(cust.FullName, "", "")

	items, _ := sess.Items()
	purchaseItems := make([]marketing.PurchaseItem, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		purchaseItems = append(purchaseItems, marketing.PurchaseItem{ID: it.ID, Quantity: qty})
	}

	attrs := rawCart.Attributes
	fbc := ""
	if v := attrs["_wt_last_fbclid"]; v != "" {
		fbc = fmt.Sprintf("fb.1.%d.%s", time.Now().UnixMilli(), v)
	}
	landing := attrs["_wt_last_landing"]
	if landing == "" {
		landing = "/"
	}

	return marketing.Purchase{
		Email:       cust.Email,
		Phone:       cust.Phone,
		FirstName:   first,
		LastName:    last,
		City:        cust.City,
		PostalCode:  cust.PostalCode,
		Country:     cust.CountryCode,
		ValueCents:  pi.Amount,
		Currency:    string(pi.Currency),
		Items:       purchaseItems,
		EventID:     pi.ID,
		LandingPath: landing,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		FBP:         attrs["_fbp"],
		FBC:         fbc,
	}
}

func (s *WebhookService) degradeOrder(ctx context.Context, sessionID, detail string) error {
	return s.sessions.Update(ctx, sessionID, map[string]any{
		"order_status": sessions.OrderStatusPaidNoOrder,
		"order_error":  truncate(detail, 250),
	})
}

// recordEvent persists the audit row for a verified delivery. For an exact
// redelivery (unique provider+event_id hit) it short-circuits only when a
// previous attempt finished; an interrupted attempt is processed again.
func (s *WebhookService) recordEvent(ctx context.Context, acc accounts.Account, ev stripe.Event, rawBody []byte) (*ProviderEvent, bool, error) {
	pe := &ProviderEvent{
		ID:           uuid.NewString(),
		Provider:     providerStripe,
		EventID:      ev.ID,
		EventType:    string(ev.Type),
		AccountLabel: acc.Label,
		PayloadJSON:  datatypes.JSON(rawBody),
		ReceivedAt:   time.Now(),
	}

	err := s.db.WithContext(ctx).Create(pe).Error
	if err == nil {
		return pe, false, nil
	}
	if !isDup(err) {
		return nil, false, err
	}

	var existing ProviderEvent
	if err := s.db.WithContext(ctx).
		First(&existing, "provider = ? AND event_id = ?", providerStripe, ev.ID).Error; err != nil {
		return nil, false, err
	}
	return &existing, existing.ProcessedAt != nil, nil
}

func (s *WebhookService) markProcessed(ctx context.Context, pe *ProviderEvent, processErr string) {
	now := time.Now()
	updates := map[string]any{"processed_at": &now, "process_error": nil}
	if processErr != "" {
		updates["process_error"] = truncate(processErr, 250)
	}
	if err := s.db.WithContext(ctx).Model(&ProviderEvent{}).
		Where("id = ?", pe.ID).
		Updates(updates).Error; err != nil {
		s.logger.ErrorContext(ctx, "failed to mark provider event processed", "event_id", pe.EventID, "err", err)
	}
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
