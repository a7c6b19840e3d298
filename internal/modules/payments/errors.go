package payments

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureMismatch: no configured account validated the webhook
	// signature. The only webhook outcome surfaced as a 400.
	ErrSignatureMismatch = errors.New("webhook signature matches no configured account")

	ErrNoCandidates = errors.New("no account is configured for webhook verification")

	ErrNoPaymentMethod  = errors.New("session has no stored payment method")
	ErrNoCustomerLinked = errors.New("no customer linked to the stored payment method")
	ErrInvalidVariant   = errors.New("upsell variant reference is not resolvable")
	ErrAmountTooSmall   = errors.New("upsell amount below the 50 cent minimum")
)

// StepUpRequiredError: the processor wants a fresh 3-D Secure challenge
// before the off-session charge can complete. Not a failure; the caller
// gets the new intent to drive the client-side challenge.
type StepUpRequiredError struct {
	PaymentIntentID string
	ClientSecret    string
}

func (e *StepUpRequiredError) Error() string {
	return fmt.Sprintf("authentication required for payment intent %s", e.PaymentIntentID)
}

// CardDeclinedError covers the whole decline family (insufficient funds,
// expired card, CVC, velocity, generic decline).
type CardDeclinedError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *CardDeclinedError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("card declined: %s (%s)", e.Code, e.DeclineCode)
	}
	return fmt.Sprintf("card declined: %s", e.Code)
}

// Reason is the decline detail persisted on the session.
func (e *CardDeclinedError) Reason() string {
	if e.DeclineCode != "" {
		return e.DeclineCode
	}
	if e.Code != "" {
		return e.Code
	}
	return "card_declined"
}
