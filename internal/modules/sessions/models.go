package sessions

import (
	"time"

	"gorm.io/datatypes"
)

// Payment lifecycle of a session.
const (
	PaymentStatusPaid = "paid"
)

// Reconciliation outcome markers. "created" means the Shopify order exists;
// "paid_no_shopify_order" is the degraded terminal state where the payment
// was captured but order creation failed and needs manual follow-up.
const (
	OrderStatusCreated     = "created"
	OrderStatusPaidNoOrder = "paid_no_shopify_order"
)

// Upsell outcome markers (unset | paid | paid_no_shopify_order | card_declined).
const (
	UpsellStatusPaid         = "paid"
	UpsellStatusPaidNoOrder  = "paid_no_shopify_order"
	UpsellStatusCardDeclined = "card_declined"
)

// Item is one cart line as handed over by the storefront. Prices are
// integer minor units end to end; no float ever touches an amount.
type Item struct {
	ID             string `json:"id"`
	VariantID      string `json:"variant_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Quantity       int    `json:"quantity"`
	PriceCents     int64  `json:"priceCents"`
	LinePriceCents int64  `json:"linePriceCents,omitempty"`
}

// Customer is the shopper data collected by the checkout page.
type Customer struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postalCode"`
}

// RawCart keeps the storefront cart handle plus the tracking attributes
// the marketing pipeline reads (_fbp, _wt_last_* and friends).
type RawCart struct {
	ID         string            `json:"id,omitempty"`
	Token      string            `json:"token,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CheckoutSession is the per-checkout document. It is created by cart
// intake, accreted by the webhook reconciler and optionally once more by
// the upsell flow; it is never deleted.
type CheckoutSession struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Currency string `gorm:"type:char(3);not null;default:'EUR'"`

	ItemsJSON    datatypes.JSON `gorm:"type:json;not null"`
	CustomerJSON datatypes.JSON `gorm:"type:json"`
	RawCartJSON  datatypes.JSON `gorm:"type:json"`

	SubtotalCents int64 `gorm:"not null;default:0"`
	ShippingCents int64 `gorm:"not null;default:0"`
	TotalCents    int64 `gorm:"not null;default:0"`

	PaymentStatus      *string `gorm:"type:varchar(32)"`
	PaymentIntentID    *string `gorm:"type:varchar(128)"`
	StripeAccountUsed  *string `gorm:"type:varchar(64)"`
	WebhookProcessedAt *time.Time

	// Linkage consumed by the upsell flow. NetworkTransactionID is
	// optional; without it the upsell charge just loses the MIT hint.
	StripeCustomerID      *string `gorm:"type:varchar(128)"`
	StripePaymentMethodID *string `gorm:"type:varchar(128)"`
	NetworkTransactionID  *string `gorm:"type:varchar(128)"`

	// Presence of ShopifyOrderID is the reconciliation idempotency marker.
	ShopifyOrderID     *int64 `gorm:"index:ix_cart_sessions_shopify_order"`
	ShopifyOrderNumber *int64
	OrderStatus        *string `gorm:"type:varchar(32)"`
	OrderCreatedAt     *time.Time
	OrderError         *string `gorm:"type:varchar(255)"`

	UpsellPaymentIntentID *string `gorm:"type:varchar(128)"`
	UpsellAmountCents     *int64
	UpsellOrderID         *int64
	UpsellOrderNumber     *int64
	UpsellStatus          *string `gorm:"type:varchar(32)"`
	UpsellError           *string `gorm:"type:varchar(255)"`
	UpsellCreatedAt       *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CheckoutSession) TableName() string { return "cart_sessions" }
