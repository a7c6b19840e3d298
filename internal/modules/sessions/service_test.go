package sessions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFromCartSumsLines(t *testing.T) {
	r := newTestRepo(t)
	svc := NewService(r, "https://checkout.example.com/")
	ctx := context.Background()

	res, err := svc.CreateFromCart(ctx, IntakeInput{
		CartID:    "gid://shopify/Cart/abc",
		CartToken: "tok_1",
		Items: []Item{
			{ID: "111", Quantity: 2, PriceCents: 1500},
			{ID: "222", Quantity: 1, PriceCents: 730, LinePriceCents: 730},
		},
		Shipping: 500,
		Currency: "eur",
		Attrs:    map[string]string{"_fbp": "fb.1.123.456"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "https://checkout.example.com/checkout?sessionId="+res.SessionID, res.CheckoutURL)

	sess, err := r.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(3730), sess.SubtotalCents)
	assert.Equal(t, int64(500), sess.ShippingCents)
	assert.Equal(t, int64(4230), sess.TotalCents)
	assert.Equal(t, "EUR", sess.Currency)

	rc := sess.RawCart()
	assert.Equal(t, "gid://shopify/Cart/abc", rc.ID)
	assert.Equal(t, "fb.1.123.456", rc.Attributes["_fbp"])
}

func TestCreateFromCartTrustsStorefrontTotals(t *testing.T) {
	r := newTestRepo(t)
	svc := NewService(r, "https://checkout.example.com")

	subtotal, total := int64(9990), int64(10490)
	res, err := svc.CreateFromCart(context.Background(), IntakeInput{
		Items:    []Item{{ID: "111", Quantity: 1, PriceCents: 1}},
		Subtotal: &subtotal,
		Total:    &total,
		Shipping: 500,
	})
	require.NoError(t, err)

	sess, err := r.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(9990), sess.SubtotalCents)
	assert.Equal(t, int64(10490), sess.TotalCents)
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	svc := NewService(newTestRepo(t), "https://checkout.example.com")
	_, err := svc.CreateFromCart(context.Background(), IntakeInput{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestAttachCustomer(t *testing.T) {
	r := newTestRepo(t)
	svc := NewService(r, "https://checkout.example.com")
	sess := seedSession(t, r)

	err := svc.AttachCustomer(context.Background(), sess.ID, Customer{
		FullName: "Maria Rossi",
		Email:    "maria@example.com",
	})
	require.NoError(t, err)

	got, err := r.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Rossi", got.Customer().FullName)
	assert.Equal(t, "maria@example.com", got.Customer().Email)
}
