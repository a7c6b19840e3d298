package payments

import (
	"context"
	"log/slog"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
)

// IntentService opens the checkout payment intent for a stored session.
// Amounts come from the session totals, never from the client.
type IntentService struct {
	sessions *sessions.Repo
	registry *accounts.Registry
	gateways GatewayFactory
	logger   *slog.Logger
}

func NewIntentService(sessionRepo *sessions.Repo, registry *accounts.Registry, gateways GatewayFactory) *IntentService {
	return &IntentService{
		sessions: sessionRepo,
		registry: registry,
		gateways: gateways,
		logger:   slog.Default(),
	}
}

func (s *IntentService) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *IntentService) CreateForSession(ctx context.Context, sessionID string) (CheckoutIntent, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return CheckoutIntent{}, err
	}

	total := sess.TotalCents
	if total == 0 {
		total = sess.SubtotalCents + sess.ShippingCents
	}
	if total < minChargeCents {
		return CheckoutIntent{}, ErrAmountTooSmall
	}

	acc, err := s.registry.ActiveAccount(ctx)
	if err != nil {
		return CheckoutIntent{}, err
	}

	intent, err := s.gateways(acc.SecretKey).CreateCheckoutIntent(ctx, CheckoutIntentInput{
		AmountCents: total,
		Currency:    sess.Currency,
		SessionID:   sess.ID,
	})
	if err != nil {
		return CheckoutIntent{}, err
	}

	if err := s.registry.TouchUsed(ctx, acc.Label); err != nil {
		s.logger.WarnContext(ctx, "failed to touch account usage", "account", acc.Label, "err", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		"session_id", sess.ID, "amount_cents", total, "account", acc.Label)

	return intent, nil
}
