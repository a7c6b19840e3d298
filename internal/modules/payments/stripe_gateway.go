package payments

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway is the production GatewayFactory.
func NewStripeGateway(secretKey string) Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeGateway{api: api}
}

func (g *stripeGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	_, err := g.api.PaymentMethods.Attach(paymentMethodID, params)
	if err != nil && isAlreadyAttached(err) {
		return nil
	}
	return err
}

func (g *stripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	_, err := g.api.Customers.Update(customerID, params)
	return err
}

func (g *stripeGateway) NetworkTransactionID(ctx context.Context, chargeID string) (string, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx

	ch, err := g.api.Charges.Get(chargeID, params)
	if err != nil {
		return "", err
	}
	if ch.PaymentMethodDetails == nil || ch.PaymentMethodDetails.Card == nil {
		return "", nil
	}
	return ch.PaymentMethodDetails.Card.NetworkTransactionID, nil
}

func (g *stripeGateway) PaymentMethodCustomer(ctx context.Context, paymentMethodID string) (string, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := g.api.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		return "", err
	}
	if pm.Customer == nil {
		return "", nil
	}
	return pm.Customer.ID, nil
}

func (g *stripeGateway) CreateCheckoutIntent(ctx context.Context, in CheckoutIntentInput) (CheckoutIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("sessionId", in.SessionID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return CheckoutIntent{}, err
	}
	return CheckoutIntent{PaymentIntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *stripeGateway) CreateOffSessionCharge(ctx context.Context, in OffSessionChargeInput) (OffSessionCharge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(in.AmountCents),
		Currency:      stripe.String(strings.ToLower(in.Currency)),
		Customer:      stripe.String(in.CustomerID),
		PaymentMethod: stripe.String(in.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.NetworkTransactionID != "" {
		// MIT continuity hint from the original customer-present charge.
		params.AddExtra("payment_method_options[card][mit_exemption][network_transaction_id]", in.NetworkTransactionID)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return OffSessionCharge{}, mapStripeError(err)
	}

	return OffSessionCharge{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Status:          string(pi.Status),
	}, nil
}

func isAlreadyAttached(err error) bool {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return false
	}
	return strings.Contains(sErr.Msg, "already been attached")
}

// mapStripeError sorts processor failures into the three caller-facing
// families: step-up required, card declined, everything else.
func mapStripeError(err error) error {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return err
	}

	if sErr.Code == stripe.ErrorCodeAuthenticationRequired {
		step := &StepUpRequiredError{}
		if sErr.PaymentIntent != nil {
			step.PaymentIntentID = sErr.PaymentIntent.ID
			step.ClientSecret = sErr.PaymentIntent.ClientSecret
		}
		return step
	}

	if sErr.Type == stripe.ErrorTypeCard {
		return &CardDeclinedError{
			Code:        string(sErr.Code),
			DeclineCode: string(sErr.DeclineCode),
			Message:     sErr.Msg,
		}
	}

	return err
}
