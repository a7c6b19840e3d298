package accounts

import "time"

// Account is one configured Stripe account. Rows are written by the
// onboarding/config surface; this service only reads them.
//
// At most one account validates a given webhook signature in practice.
// That is configuration discipline (distinct signing secrets per account),
// not something the schema can enforce.
type Account struct {
	ID             string `gorm:"type:char(36);primaryKey"`
	Label          string `gorm:"type:varchar(64);not null;uniqueIndex:ux_stripe_accounts_label"`
	SecretKey      string `gorm:"type:varchar(255);not null"`
	PublishableKey string `gorm:"type:varchar(255);not null"`
	WebhookSecret  string `gorm:"type:varchar(255);not null"`
	Active         bool   `gorm:"not null;default:false"`
	Position       int    `gorm:"not null;default:0;index:ix_stripe_accounts_position"`
	MerchantSite   string `gorm:"type:varchar(255);not null;default:''"`
	LastUsedAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "stripe_accounts" }

// HasKeys reports whether the account can be used for outbound API calls.
func (a Account) HasKeys() bool {
	return a.SecretKey != "" && a.PublishableKey != ""
}

// CanVerify reports whether the account is a webhook-verification candidate.
// Active does not matter here: a rotated-out account still receives webhooks
// for charges it created.
func (a Account) CanVerify() bool {
	return a.SecretKey != "" && a.WebhookSecret != ""
}
