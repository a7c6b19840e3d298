package payments

import "context"

// OffSessionChargeInput describes a merchant-initiated charge against a
// previously stored customer + payment method pair. Amounts are integer
// minor units.
type OffSessionChargeInput struct {
	AmountCents     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string

	// NetworkTransactionID of the original customer-present charge; when
	// set it is forwarded as an MIT exemption hint, when empty the charge
	// simply goes out without the hint.
	NetworkTransactionID string

	Description string
	Metadata    map[string]string
}

// CheckoutIntentInput opens the customer-present intent the checkout page
// confirms. The session id travels in metadata so the webhook can find the
// session again.
type CheckoutIntentInput struct {
	AmountCents int64
	Currency    string
	SessionID   string
}

type CheckoutIntent struct {
	PaymentIntentID string
	ClientSecret    string
}

type OffSessionCharge struct {
	PaymentIntentID string
	ClientSecret    string
	Status          string
}

// Gateway is the per-account surface of the payment processor used by the
// reconciler and the upsell flow. Implementations are scoped to a single
// account's credentials.
type Gateway interface {
	// AttachPaymentMethod attaches the payment method to the customer.
	// An "already attached" answer from the processor is success.
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error

	// SetDefaultPaymentMethod makes the payment method the customer's
	// invoice default so later off-session charges can find it.
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// NetworkTransactionID retrieves the card network reference of a
	// charge; "" when the processor has none for it.
	NetworkTransactionID(ctx context.Context, chargeID string) (string, error)

	// PaymentMethodCustomer returns the customer a payment method belongs
	// to; "" when the method is not attached to anyone.
	PaymentMethodCustomer(ctx context.Context, paymentMethodID string) (string, error)

	// CreateCheckoutIntent creates the customer-present payment intent for
	// the checkout page, with automatic payment methods enabled.
	CreateCheckoutIntent(ctx context.Context, in CheckoutIntentInput) (CheckoutIntent, error)

	// CreateOffSessionCharge creates and immediately confirms the charge.
	// Step-up and decline outcomes come back as *StepUpRequiredError and
	// *CardDeclinedError; anything else is an internal processor error.
	CreateOffSessionCharge(ctx context.Context, in OffSessionChargeInput) (OffSessionCharge, error)
}

// GatewayFactory builds a gateway bound to one account's secret key.
// Multiple accounts are live concurrently (webhooks for rotated-out
// accounts keep arriving), so there is deliberately no process-global
// client instance.
type GatewayFactory func(secretKey string) Gateway
