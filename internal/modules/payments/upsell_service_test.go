package payments

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/accounts"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
)

type upsellHarness struct {
	db   *gorm.DB
	svc  *UpsellService
	gw   *fakeGateway
	stub *shopifyStub
}

func newUpsellHarness(t *testing.T) *upsellHarness {
	t.Helper()

	db := newTestDB(t)
	stub := newShopifyStub(t)
	gw := &fakeGateway{charge: OffSessionCharge{PaymentIntentID: "pi_upsell", Status: "succeeded"}}

	require.NoError(t, db.Create(&accounts.Account{
		ID: "acc-alpha", Label: "alpha", SecretKey: "sk_a", PublishableKey: "pk_a",
		WebhookSecret: "whsec_a", Active: true, Position: 1,
	}).Error)

	svc := NewUpsellService(
		sessions.NewRepo(db),
		accounts.NewRegistry(db),
		func(secretKey string) Gateway { return gw },
		stub.client(),
	)
	return &upsellHarness{db: db, svc: svc, gw: gw, stub: stub}
}

func linkedSession(t *testing.T, db *gorm.DB) sessions.CheckoutSession {
	t.Helper()
	cus, pm, ntid, label := "cus_1", "pm_1", "ntid_abc", "alpha"
	return seedSession(t, db, func(s *sessions.CheckoutSession) {
		s.StripeCustomerID = &cus
		s.StripePaymentMethodID = &pm
		s.NetworkTransactionID = &ntid
		s.StripeAccountUsed = &label
	})
}

func upsellInput(sessionID string) ChargeInput {
	return ChargeInput{
		SessionID:   sessionID,
		VariantRef:  "gid://shopify/ProductVariant/777",
		Quantity:    1,
		AmountCents: 1490,
	}
}

func TestUpsellChargeSucceeds(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	assert.Equal(t, ChargePaid, res.Status)
	assert.Equal(t, "pi_upsell", res.PaymentIntentID)
	assert.Equal(t, int64(111), res.OrderID)

	require.NotNil(t, h.gw.chargeIn)
	assert.Equal(t, int64(1490), h.gw.chargeIn.AmountCents)
	assert.Equal(t, "cus_1", h.gw.chargeIn.CustomerID)
	assert.Equal(t, "pm_1", h.gw.chargeIn.PaymentMethodID)
	assert.Equal(t, "ntid_abc", h.gw.chargeIn.NetworkTransactionID)
	assert.Equal(t, sess.ID, h.gw.chargeIn.Metadata["session_id"])
	assert.Equal(t, "777", h.gw.chargeIn.Metadata["upsell_variant_id"])

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	require.NotNil(t, got.UpsellStatus)
	assert.Equal(t, sessions.UpsellStatusPaid, *got.UpsellStatus)
	require.NotNil(t, got.UpsellOrderID)
	assert.Equal(t, int64(111), *got.UpsellOrderID)
	require.NotNil(t, got.UpsellAmountCents)
	assert.Equal(t, int64(1490), *got.UpsellAmountCents)
}

func TestUpsellRejectsWithoutPaymentMethod(t *testing.T) {
	h := newUpsellHarness(t)
	sess := seedSession(t, h.db, nil)

	_, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	assert.ErrorIs(t, err, ErrNoPaymentMethod)

	// Precondition failures never reach the processor.
	assert.Nil(t, h.gw.chargeIn)
	assert.Equal(t, 0, h.stub.orders())
}

func TestUpsellDerivesCustomerFromPaymentMethod(t *testing.T) {
	h := newUpsellHarness(t)
	pm := "pm_1"
	sess := seedSession(t, h.db, func(s *sessions.CheckoutSession) {
		s.StripePaymentMethodID = &pm
	})
	h.gw.pmCustomer = "cus_derived"

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)
	assert.Equal(t, ChargePaid, res.Status)

	require.NotNil(t, h.gw.chargeIn)
	assert.Equal(t, "cus_derived", h.gw.chargeIn.CustomerID)

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	require.NotNil(t, got.StripeCustomerID)
	assert.Equal(t, "cus_derived", *got.StripeCustomerID)
}

func TestUpsellNoCustomerAnywhere(t *testing.T) {
	h := newUpsellHarness(t)
	pm := "pm_1"
	sess := seedSession(t, h.db, func(s *sessions.CheckoutSession) {
		s.StripePaymentMethodID = &pm
	})

	_, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	assert.ErrorIs(t, err, ErrNoCustomerLinked)
	assert.Nil(t, h.gw.chargeIn)
}

func TestUpsellStepUpRequired(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)
	h.gw.chargeErr = &StepUpRequiredError{PaymentIntentID: "pi_3ds", ClientSecret: "pi_3ds_secret"}

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	assert.Equal(t, ChargeRequiresAction, res.Status)
	assert.Equal(t, "pi_3ds", res.PaymentIntentID)
	assert.Equal(t, "pi_3ds_secret", res.ClientSecret)
	assert.Equal(t, 0, h.stub.orders())

	// Step-up is not a terminal state; nothing is persisted yet.
	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	assert.Nil(t, got.UpsellStatus)
}

func TestUpsellPendingIntentRequiresAction(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)
	h.gw.charge = OffSessionCharge{
		PaymentIntentID: "pi_pending",
		ClientSecret:    "pi_pending_secret",
		Status:          "requires_action",
	}

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	assert.Equal(t, ChargeRequiresAction, res.Status)
	assert.Equal(t, "pi_pending", res.PaymentIntentID)
	assert.Equal(t, "pi_pending_secret", res.ClientSecret)
	assert.Equal(t, 0, h.stub.orders())

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	assert.Nil(t, got.UpsellStatus)
}

func TestUpsellNonSucceededIntentIsNotPaid(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)
	h.gw.charge = OffSessionCharge{PaymentIntentID: "pi_proc", Status: "processing"}

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	// The intent exists but no money moved; no Shopify order may be cut.
	assert.Equal(t, ChargeDeclined, res.Status)
	assert.Equal(t, "payment_intent_status_processing", res.DeclineReason)
	assert.Equal(t, 0, h.stub.orders())

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	require.NotNil(t, got.UpsellStatus)
	assert.Equal(t, sessions.UpsellStatusCardDeclined, *got.UpsellStatus)
	require.NotNil(t, got.UpsellPaymentIntentID)
	assert.Equal(t, "pi_proc", *got.UpsellPaymentIntentID)
	assert.Nil(t, got.UpsellOrderID)
}

func TestUpsellCardDeclined(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)
	h.gw.chargeErr = &CardDeclinedError{Code: "card_declined", DeclineCode: "insufficient_funds"}

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	assert.Equal(t, ChargeDeclined, res.Status)
	assert.Equal(t, "insufficient_funds", res.DeclineReason)
	assert.Equal(t, 0, h.stub.orders())

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	require.NotNil(t, got.UpsellStatus)
	assert.Equal(t, sessions.UpsellStatusCardDeclined, *got.UpsellStatus)
	require.NotNil(t, got.UpsellError)
	assert.Equal(t, "insufficient_funds", *got.UpsellError)
}

func TestUpsellOrderFailurePersistsDegradedState(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)
	h.stub.failOrders(http.StatusUnprocessableEntity)

	res, err := h.svc.Charge(context.Background(), upsellInput(sess.ID))
	require.NoError(t, err)

	assert.Equal(t, ChargePaidNoOrder, res.Status)
	assert.Equal(t, "pi_upsell", res.PaymentIntentID)

	var got sessions.CheckoutSession
	require.NoError(t, h.db.First(&got, "id = ?", sess.ID).Error)
	require.NotNil(t, got.UpsellStatus)
	assert.Equal(t, sessions.UpsellStatusPaidNoOrder, *got.UpsellStatus)
	require.NotNil(t, got.UpsellPaymentIntentID)
	assert.Equal(t, "pi_upsell", *got.UpsellPaymentIntentID)
	require.NotNil(t, got.UpsellError)
	assert.Contains(t, *got.UpsellError, "422")
}

func TestUpsellInputValidation(t *testing.T) {
	h := newUpsellHarness(t)
	sess := linkedSession(t, h.db)

	t.Run("amount below minimum", func(t *testing.T) {
		in := upsellInput(sess.ID)
		in.AmountCents = 49
		_, err := h.svc.Charge(context.Background(), in)
		assert.ErrorIs(t, err, ErrAmountTooSmall)
	})

	t.Run("unresolvable variant", func(t *testing.T) {
		in := upsellInput(sess.ID)
		in.VariantRef = "not-a-variant"
		_, err := h.svc.Charge(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidVariant)
	})

	t.Run("unknown session", func(t *testing.T) {
		in := upsellInput("missing")
		_, err := h.svc.Charge(context.Background(), in)
		assert.ErrorIs(t, err, sessions.ErrNotFound)
	})

	assert.Nil(t, h.gw.chargeIn)
}
