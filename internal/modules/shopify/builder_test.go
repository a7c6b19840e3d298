package shopify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
)

func TestBuildCheckoutOrderDropsUnresolvableVariants(t *testing.T) {
	order, err := BuildCheckoutOrder(CheckoutOrderInput{
		SessionID: "sess-1",
		Items: []sessions.Item{
			{ID: "gid://shopify/ProductVariant/123", Quantity: 2, PriceCents: 1500},
			{ID: "not-a-variant", Quantity: 1, PriceCents: 999},
			{VariantID: "456", Quantity: 1, PriceCents: 730},
		},
		Customer:        sessions.Customer{FullName: "Maria Rossi", Email: "maria@example.com", CountryCode: "IT"},
		AmountCents:     3730,
		Currency:        "eur",
		AccountLabel:    "alpha",
		PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)

	require.Len(t, order.LineItems, 2)
	assert.Equal(t, int64(123), order.LineItems[0].VariantID)
	assert.Equal(t, 2, order.LineItems[0].Quantity)
	assert.Equal(t, "30.00", order.LineItems[0].Price)
	assert.Equal(t, int64(456), order.LineItems[1].VariantID)

	require.Len(t, order.Transactions, 1)
	assert.Equal(t, "37.30", order.Transactions[0].Amount)
	assert.Equal(t, "EUR", order.Transactions[0].Currency)
	assert.Equal(t, "Stripe (alpha)", order.Transactions[0].Gateway)
	assert.Equal(t, "pi_1", order.Transactions[0].Authorization)

	assert.Equal(t, "Maria", order.Customer.FirstName)
	assert.Equal(t, "Rossi", order.Customer.LastName)
	assert.Equal(t, "paid", order.FinancialStatus)
}

func TestBuildCheckoutOrderNoValidLines(t *testing.T) {
	_, err := BuildCheckoutOrder(CheckoutOrderInput{
		SessionID: "sess-1",
		Items:     []sessions.Item{{ID: "junk", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNoValidLineItems)
}

func TestBuildCheckoutOrderPhoneHandling(t *testing.T) {
	valid, err := BuildCheckoutOrder(CheckoutOrderInput{
		SessionID: "s",
		Items:     []sessions.Item{{ID: "1", Quantity: 1, PriceCents: 100}},
		Customer:  sessions.Customer{Phone: "333 1234567", CountryCode: "IT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "+393331234567", valid.Customer.Phone)
	assert.Equal(t, "+393331234567", valid.ShippingAddress.Phone)

	// An unnormalizable phone is dropped, never a rejected order.
	invalid, err := BuildCheckoutOrder(CheckoutOrderInput{
		SessionID: "s",
		Items:     []sessions.Item{{ID: "1", Quantity: 1, PriceCents: 100}},
		Customer:  sessions.Customer{Phone: "123", CountryCode: "IT"},
	})
	require.NoError(t, err)
	assert.Empty(t, invalid.Customer.Phone)
}

func TestBuildCheckoutOrderDefaults(t *testing.T) {
	order, err := BuildCheckoutOrder(CheckoutOrderInput{
		SessionID: "s",
		Items:     []sessions.Item{{ID: "1", Quantity: 1, PriceCents: 100}},
	})
	require.NoError(t, err)

	assert.Equal(t, "noreply@oltreboutique.com", order.Email)
	assert.Equal(t, "Cliente", order.Customer.FirstName)
	assert.Equal(t, "Checkout", order.Customer.LastName)
	assert.Equal(t, "N/A", order.ShippingAddress.Address1)
	assert.Equal(t, "IT", order.ShippingAddress.CountryCode)
	assert.Equal(t, "EUR", order.Transactions[0].Currency)
}

func TestBuildUpsellOrder(t *testing.T) {
	order := BuildUpsellOrder(UpsellOrderInput{
		SessionID:       "sess-1",
		VariantID:       777,
		Quantity:        0,
		Customer:        sessions.Customer{FullName: "Maria", Email: "maria@example.com"},
		AmountCents:     1490,
		Currency:        "eur",
		AccountLabel:    "alpha",
		PaymentIntentID: "pi_up",
	})

	require.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(777), order.LineItems[0].VariantID)
	assert.Equal(t, 1, order.LineItems[0].Quantity)

	assert.Equal(t, "14.90", order.Transactions[0].Amount)
	assert.Equal(t, "Stripe Upsell (alpha)", order.Transactions[0].Gateway)
	assert.Equal(t, "Maria", order.Customer.FirstName)
	assert.Equal(t, "Upsell", order.Customer.LastName)
}

func TestNormalizeVariantRef(t *testing.T) {
	assert.Equal(t, int64(123), NormalizeVariantRef("123"))
	assert.Equal(t, int64(456), NormalizeVariantRef("gid://shopify/ProductVariant/456"))
	assert.Equal(t, int64(789), NormalizeVariantRef("variant-789"))
	assert.Equal(t, int64(0), NormalizeVariantRef(""))
	assert.Equal(t, int64(0), NormalizeVariantRef("abc"))
}

func TestSplitFullName(t *testing.T) {
	first, last := SplitFullName("Maria Rossi", "Cliente", "Checkout")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "Rossi", last)

	first, last = SplitFullName("Maria De Luca", "Cliente", "Checkout")
	assert.Equal(t, "Maria", first)
	assert.Equal(t, "De Luca", last)

	first, last = SplitFullName("Cher", "Cliente", "Checkout")
	assert.Equal(t, "Cher", first)
	assert.Equal(t, "Checkout", last)

	first, last = SplitFullName("  ", "Cliente", "Checkout")
	assert.Equal(t, "Cliente", first)
	assert.Equal(t, "Checkout", last)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "22.30", FormatCents(2230))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "1000.00", FormatCents(100000))
	assert.Equal(t, "-3.21", FormatCents(-321))
}
