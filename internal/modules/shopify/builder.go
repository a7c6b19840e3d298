package shopify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/sessions"
	"github.com/mariopotabile/checkout-appBRUNO/internal/shared/phone"
)

var ErrNoValidLineItems = errors.New("no valid line items for order")

const fallbackEmail = "noreply@oltreboutique.com"

// CheckoutOrderInput carries everything the reconciler knows when it turns
// a paid session into a Shopify order.
type CheckoutOrderInput struct {
	SessionID       string
	Items           []sessions.Item
	Customer        sessions.Customer
	AmountCents     int64
	Currency        string
	AccountLabel    string
	PaymentIntentID string
}

// BuildCheckoutOrder renders the order payload for the primary checkout.
// Lines whose variant reference cannot be resolved are dropped, never
// aborting the whole order; an order with zero surviving lines is an error.
func BuildCheckoutOrder(in CheckoutOrderInput) (Order, error) {
	lineItems := make([]LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		variantID := NormalizeVariantRef(firstNonEmpty(it.VariantID, it.ID))
		if variantID <= 0 {
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineCents := it.LinePriceCents
		if lineCents == 0 {
			lineCents = it.PriceCents * int64(qty)
		}
		lineItems = append(lineItems, LineItem{
			VariantID: variantID,
			Quantity:  qty,
			Price:     FormatCents(lineCents),
		})
	}
	if len(lineItems) == 0 {
		return Order{}, ErrNoValidLineItems
	}

	first, last := SplitFullName(in.Customer.FullName, "Cliente", "Checkout")
	phoneNumber := phone.Normalize(in.Customer.Phone, defaultCountry(in.Customer.CountryCode))

	customer, address := buildParties(in.Customer, first, last, phoneNumber)

	return Order{
		Email:             customer.Email,
		FulfillmentStatus: "unfulfilled",
		FinancialStatus:   "paid",
		SendReceipt:       true,
		LineItems:         lineItems,
		Customer:          customer,
		ShippingAddress:   address,
		BillingAddress:    address,
		ShippingLines: []ShippingLine{
			{Title: "Spedizione Gratuita", Price: "0.00", Code: "FREE"},
		},
		Transactions: []Transaction{{
			Kind:          "sale",
			Status:        "success",
			Amount:        FormatCents(in.AmountCents),
			Currency:      upperOr(in.Currency, "EUR"),
			Gateway:       fmt.Sprintf("Stripe (%s)", in.AccountLabel),
			Authorization: in.PaymentIntentID,
		}},
		Note: fmt.Sprintf("Checkout custom - Session: %s - Stripe Account: %s - PI: %s",
			in.SessionID, in.AccountLabel, in.PaymentIntentID),
		Tags: fmt.Sprintf("checkout-custom,stripe-paid,%s,automated", in.AccountLabel),
	}, nil
}

// UpsellOrderInput builds the second, independent order for an off-session
// upsell charge. A single variant, price carried by the transaction.
type UpsellOrderInput struct {
	SessionID       string
	VariantID       int64
	Quantity        int
	Customer        sessions.Customer
	AmountCents     int64
	Currency        string
	AccountLabel    string
	PaymentIntentID string
}

func BuildUpsellOrder(in UpsellOrderInput) Order {
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}

	first, last := SplitFullName(in.Customer.FullName, "Cliente", "Upsell")
	// The upsell reuses the phone as stored at checkout; validation already
	// happened on the primary order.
	customer, address := buildParties(in.Customer, first, last, in.Customer.Phone)

	return Order{
		Email:             customer.Email,
		FulfillmentStatus: "unfulfilled",
		FinancialStatus:   "paid",
		SendReceipt:       true,
		LineItems:         []LineItem{{VariantID: in.VariantID, Quantity: qty}},
		Customer:          customer,
		ShippingAddress:   address,
		BillingAddress:    address,
		ShippingLines: []ShippingLine{
			{Title: "Spedizione Gratuita", Price: "0.00", Code: "FREE"},
		},
		Transactions: []Transaction{{
			Kind:          "sale",
			Status:        "success",
			Amount:        FormatCents(in.AmountCents),
			Currency:      upperOr(in.Currency, "EUR"),
			Gateway:       fmt.Sprintf("Stripe Upsell (%s)", in.AccountLabel),
			Authorization: in.PaymentIntentID,
		}},
		Note: fmt.Sprintf("Upsell order - Session: %s - Payment Intent: %s",
			in.SessionID, in.PaymentIntentID),
		Tags: fmt.Sprintf("checkout-custom-upsell,stripe-upsell,%s,automated", in.AccountLabel),
	}
}

func buildParties(c sessions.Customer, first, last, phoneNumber string) (*OrderCustomer, *Address) {
	email := c.Email
	if email == "" {
		email = fallbackEmail
	}

	customer := &OrderCustomer{
		Email:     email,
		FirstName: first,
		LastName:  last,
	}
	address := &Address{
		FirstName:   first,
		LastName:    last,
		Address1:    valueOr(c.Address1, "N/A"),
		Address2:    c.Address2,
		City:        valueOr(c.City, "N/A"),
		Province:    c.Province,
		Zip:         valueOr(c.PostalCode, "00000"),
		CountryCode: upperOr(c.CountryCode, "IT"),
	}
	if phoneNumber != "" {
		customer.Phone = phoneNumber
		address.Phone = phoneNumber
	}
	return customer, address
}

// NormalizeVariantRef turns a storefront variant reference (numeric id,
// "gid://shopify/ProductVariant/123..." or anything in between) into the
// numeric Admin API variant id. Returns 0 when unresolvable.
func NormalizeVariantRef(ref string) int64 {
	if ref == "" {
		return 0
	}
	if strings.Contains(ref, "gid://") {
		if i := strings.LastIndex(ref, "/"); i >= 0 {
			ref = ref[i+1:]
		}
	}
	var digits strings.Builder
	for _, r := range ref {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// SplitFullName breaks a free-text name at the first whitespace boundary.
func SplitFullName(full, defFirst, defLast string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(full))
	switch len(parts) {
	case 0:
		return defFirst, defLast
	case 1:
		return parts[0], defLast
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// FormatCents renders integer minor units as a decimal string without ever
// passing through a float.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// defaultCountry falls back to the store's home market when the checkout
// did not collect a country.
func defaultCountry(cc string) string {
	if cc == "" {
		return "IT"
	}
	return cc
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func upperOr(v, def string) string {
	if v == "" {
		v = def
	}
	return strings.ToUpper(v)
}
