package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
)

const minChargeCents = 50

// ChargeInput is one upsell attempt against an already-paid session.
type ChargeInput struct {
	SessionID   string
	VariantRef  string
	Quantity    int
	AmountCents int64
}

// Charge outcomes. RequiresAction and Declined are caller-facing results,
// not errors; only internal failures surface as errors.
const (
	ChargePaid           = "paid"
	ChargePaidNoOrder    = "paid_no_shopify_order"
	ChargeDeclined       = "card_declined"
	ChargeRequiresAction = "requires_action"
)

type ChargeResult struct {
	Status          string
	PaymentIntentID string

	// ClientSecret is set on RequiresAction so the shopper-facing page can
	// run the 3-D Secure challenge.
	ClientSecret string

	DeclineReason string

	OrderID     int64
	OrderNumber int64
}

// UpsellService attempts a second, merchant-initiated charge against the
// customer + payment method pair the reconciler stored, then mirrors the
// checkout order submission for the upsell item.
type UpsellService struct {
	sessions *sessions.Repo
	registry *accounts.Registry
	gateways GatewayFactory
	shop     *shopify.Client
	logger   *slog.Logger
}

func NewUpsellService(
	sessionRepo *sessions.Repo,
	registry *accounts.Registry,
	gateways GatewayFactory,
	shop *shopify.Client,
) *UpsellService {
	return &UpsellService{
		sessions: sessionRepo,
		registry: registry,
		gateways: gateways,
		shop:     shop,
		logger:   slog.Default(),
	}
}

func (s *UpsellService) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *UpsellService) Charge(ctx context.Context, in ChargeInput) (ChargeResult, error) {
	if in.AmountCents < minChargeCents {
		return ChargeResult{}, ErrAmountTooSmall
	}
	variantID := shopify.NormalizeVariantRef(in.VariantRef)
	if variantID == 0 {
		return ChargeResult{}, ErrInvalidVariant
	}
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	sess, err := s.sessions.Get(ctx, in.SessionID)
	if err != nil {
		return ChargeResult{}, err
	}

	pmID := deref(sess.StripePaymentMethodID)
	if pmID == "" {
		return ChargeResult{}, ErrNoPaymentMethod
	}

	acc, err := s.chargeAccount(ctx, sess)
	if err != nil {
		return ChargeResult{}, err
	}
	gw := s.gateways(acc.SecretKey)

	customerID := deref(sess.StripeCustomerID)
	if customerID == "" {
		// The reconciler did not see a customer on the original event;
		// the payment method itself may still carry one.
		customerID, err = gw.PaymentMethodCustomer(ctx, pmID)
		if err != nil {
			return ChargeResult{}, err
		}
		if customerID == "" {
			return ChargeResult{}, ErrNoCustomerLinked
		}
		if err := s.sessions.Update(ctx, sess.ID, map[string]any{"stripe_customer_id": customerID}); err != nil {
			return ChargeResult{}, err
		}
	}

	charge, err := gw.CreateOffSessionCharge(ctx, OffSessionChargeInput{
		AmountCents:          in.AmountCents,
		Currency:             sess.Currency,
		CustomerID:           customerID,
		PaymentMethodID:      pmID,
		NetworkTransactionID: deref(sess.NetworkTransactionID),
		Description:          fmt.Sprintf("Upsell - Session %s - Variant %d", sess.ID, variantID),
		Metadata: map[string]string{
			"session_id":        sess.ID,
			"upsell":            "true",
			"upsell_variant_id": fmt.Sprintf("%d", variantID),
			"upsell_quantity":   fmt.Sprintf("%d", quantity),
		},
	})
	if err != nil {
		return s.chargeFailure(ctx, sess.ID, err)
	}

	// Only a succeeded intent is captured money. An off-session confirm can
	// return without error and still sit at requires_action or processing.
	if st := stripe.PaymentIntentStatus(charge.Status); st != stripe.PaymentIntentStatusSucceeded {
		if st == stripe.PaymentIntentStatusRequiresAction {
			s.logger.InfoContext(ctx, "upsell requires authentication",
				"session_id", sess.ID, "payment_intent", charge.PaymentIntentID)
			return ChargeResult{
				Status:          ChargeRequiresAction,
				PaymentIntentID: charge.PaymentIntentID,
				ClientSecret:    charge.ClientSecret,
			}, nil
		}
		reason := "payment_intent_status_" + charge.Status
		s.logger.WarnContext(ctx, "upsell charge not captured",
			"session_id", sess.ID, "payment_intent", charge.PaymentIntentID, "status", charge.Status)
		fields := map[string]any{
			"upsell_payment_intent_id": charge.PaymentIntentID,
			"upsell_status":            sessions.UpsellStatusCardDeclined,
			"upsell_error":             truncate(reason, 250),
		}
		if uerr := s.sessions.Update(ctx, sess.ID, fields); uerr != nil {
			return ChargeResult{}, uerr
		}
		return ChargeResult{
			Status:          ChargeDeclined,
			PaymentIntentID: charge.PaymentIntentID,
			DeclineReason:   reason,
		}, nil
	}

	if err := s.registry.TouchUsed(ctx, acc.Label); err != nil {
		s.logger.WarnContext(ctx, "failed to touch account usage", "account", acc.Label, "err", err)
	}

	order := shopify.BuildUpsellOrder(shopify.UpsellOrderInput{
		SessionID:       sess.ID,
		Customer:        sess.Customer(),
		VariantID:       variantID,
		Quantity:        quantity,
		AmountCents:     in.AmountCents,
		Currency:        sess.Currency,
		AccountLabel:    acc.Label,
		PaymentIntentID: charge.PaymentIntentID,
	})

	now := time.Now()
	upsellFields := map[string]any{
		"upsell_payment_intent_id": charge.PaymentIntentID,
		"upsell_amount_cents":      in.AmountCents,
		"upsell_created_at":        &now,
	}

	created, err := s.shop.CreateOrder(ctx, order)
	if err != nil {
		// Charge captured, order missing: same degraded terminal state as
		// the checkout path, flagged for manual follow-up.
		s.logger.ErrorContext(ctx, "upsell order creation failed, payment captured without order",
			"session_id", sess.ID, "payment_intent", charge.PaymentIntentID, "err", err)
		upsellFields["upsell_status"] = sessions.UpsellStatusPaidNoOrder
		upsellFields["upsell_error"] = truncate(err.Error(), 250)
		if uerr := s.sessions.Update(ctx, sess.ID, upsellFields); uerr != nil {
			return ChargeResult{}, uerr
		}
		return ChargeResult{
			Status:          ChargePaidNoOrder,
			PaymentIntentID: charge.PaymentIntentID,
		}, nil
	}

	upsellFields["upsell_status"] = sessions.UpsellStatusPaid
	upsellFields["upsell_order_id"] = created.OrderID
	upsellFields["upsell_order_number"] = created.OrderNumber
	if err := s.sessions.Update(ctx, sess.ID, upsellFields); err != nil {
		return ChargeResult{}, err
	}

	s.logger.InfoContext(ctx, "upsell order created",
		"session_id", sess.ID, "shopify_order_id", created.OrderID,
		"amount_cents", in.AmountCents, "account", acc.Label)

	return ChargeResult{
		Status:          ChargePaid,
		PaymentIntentID: charge.PaymentIntentID,
		OrderID:         created.OrderID,
		OrderNumber:     created.OrderNumber,
	}, nil
}

// chargeAccount picks the account whose credentials hold the stored
// customer and payment method. Processor objects are scoped to the account
// that created them, so the account that reconciled the original payment
// is the only one that can charge again; rotation picks only fill in when
// that record is missing.
func (s *UpsellService) chargeAccount(ctx context.Context, sess sessions.CheckoutSession) (accounts.Account, error) {
	if label := deref(sess.StripeAccountUsed); label != "" {
		all, err := s.registry.All(ctx)
		if err != nil {
			return accounts.Account{}, err
		}
		for _, acc := range all {
			if acc.Label == label && acc.SecretKey != "" {
				return acc, nil
			}
		}
		s.logger.WarnContext(ctx, "account from session no longer configured, falling back",
			"session_id", sess.ID, "account", label)
	}
	return s.registry.ActiveAccount(ctx)
}

// chargeFailure maps processor outcomes: step-up and declines become
// results, anything else propagates.
func (s *UpsellService) chargeFailure(ctx context.Context, sessionID string, err error) (ChargeResult, error) {
	var stepUp *StepUpRequiredError
	if errors.As(err, &stepUp) {
		s.logger.InfoContext(ctx, "upsell requires authentication",
			"session_id", sessionID, "payment_intent", stepUp.PaymentIntentID)
		return ChargeResult{
			Status:          ChargeRequiresAction,
			PaymentIntentID: stepUp.PaymentIntentID,
			ClientSecret:    stepUp.ClientSecret,
		}, nil
	}

	var declined *CardDeclinedError
	if errors.As(err, &declined) {
		reason := declined.Reason()
		s.logger.InfoContext(ctx, "upsell card declined", "session_id", sessionID, "reason", reason)
		fields := map[string]any{
			"upsell_status": sessions.UpsellStatusCardDeclined,
			"upsell_error":  truncate(reason, 250),
		}
		if uerr := s.sessions.Update(ctx, sessionID, fields); uerr != nil {
			return ChargeResult{}, uerr
		}
		return ChargeResult{Status: ChargeDeclined, DeclineReason: reason}, nil
	}

	return ChargeResult{}, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
