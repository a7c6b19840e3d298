package payments

import (
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
)

// ResolveEvent searches the candidate accounts, in configuration order,
// for the one whose signing secret validates the webhook. First match
// wins; the processor guarantees at most one account can sign a given
// delivery, but nothing here assumes it; the loop just stops early.
//
// Verification per candidate is Stripe's scheme: timestamp tolerance plus
// HMAC comparison, done by the stripe-go webhook package.
func ResolveEvent(body []byte, sigHeader string, candidates []accounts.Account) (stripe.Event, accounts.Account, error) {
	if len(candidates) == 0 {
		return stripe.Event{}, accounts.Account{}, ErrNoCandidates
	}
	if sigHeader == "" {
		return stripe.Event{}, accounts.Account{}, ErrSignatureMismatch
	}

	for _, acc := range candidates {
		ev, err := webhook.ConstructEventWithOptions(body, sigHeader, acc.WebhookSecret, webhook.ConstructEventOptions{
			// Accounts run on whatever API version their key pins; a
			// version mismatch must not fail an otherwise valid signature.
			IgnoreAPIVersionMismatch: true,
		})
		if err == nil {
			return ev, acc, nil
		}
	}

	return stripe.Event{}, accounts.Account{}, ErrSignatureMismatch
}
