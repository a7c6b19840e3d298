package payments

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
)

func signedHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func testEventPayload(id string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`, id))
}

func TestResolveEventMatchesSigningAccount(t *testing.T) {
	candidates := []accounts.Account{
		{Label: "alpha", SecretKey: "sk_a", WebhookSecret: "whsec_alpha"},
		{Label: "beta", SecretKey: "sk_b", WebhookSecret: "whsec_beta"},
		{Label: "gamma", SecretKey: "sk_c", WebhookSecret: "whsec_gamma"},
	}

	// Each account's signature must resolve to that account and no other.
	for _, signer := range candidates {
		payload := testEventPayload("evt_" + signer.Label)
		header := signedHeader(t, payload, signer.WebhookSecret)

		ev, acc, err := ResolveEvent(payload, header, candidates)
		require.NoError(t, err)
		assert.Equal(t, signer.Label, acc.Label)
		assert.Equal(t, "evt_"+signer.Label, ev.ID)
	}
}

func TestResolveEventNoMatch(t *testing.T) {
	candidates := []accounts.Account{
		{Label: "alpha", WebhookSecret: "whsec_alpha"},
		{Label: "beta", WebhookSecret: "whsec_beta"},
	}

	payload := testEventPayload("evt_1")
	header := signedHeader(t, payload, "whsec_unknown")

	_, _, err := ResolveEvent(payload, header, candidates)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestResolveEventTamperedPayload(t *testing.T) {
	candidates := []accounts.Account{{Label: "alpha", WebhookSecret: "whsec_alpha"}}

	payload := testEventPayload("evt_1")
	header := signedHeader(t, payload, "whsec_alpha")
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = 'X'

	_, _, err := ResolveEvent(tampered, header, candidates)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestResolveEventNoCandidates(t *testing.T) {
	payload := testEventPayload("evt_1")
	_, _, err := ResolveEvent(payload, signedHeader(t, payload, "whsec_x"), nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestResolveEventMissingHeader(t *testing.T) {
	candidates := []accounts.Account{{Label: "alpha", WebhookSecret: "whsec_alpha"}}
	_, _, err := ResolveEvent(testEventPayload("evt_1"), "", candidates)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}
