package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("cart session not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id string) (CheckoutSession, error) {
	var s CheckoutSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CheckoutSession{}, ErrNotFound
	}
	return s, err
}

func (r *Repo) Create(ctx context.Context, s *CheckoutSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Update merges the given fields into the session row. Always column-level
// updates, never a full-row save, so concurrent writers touching disjoint
// fields do not clobber each other.
func (r *Repo) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&CheckoutSession{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimOrder sets the Shopify order id only if no order has been recorded
// yet. The returned bool says whether this caller won the claim; a loser
// sees a concurrent delivery already completed reconciliation and must not
// repeat order side effects (statistics, notifications).
func (r *Repo) ClaimOrder(ctx context.Context, id string, orderID, orderNumber int64) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&CheckoutSession{}).
		Where("id = ? AND shopify_order_id IS NULL", id).
		Updates(map[string]any{
			"shopify_order_id":     orderID,
			"shopify_order_number": orderNumber,
			"order_status":         OrderStatusCreated,
			"order_created_at":     &now,
			"order_error":          nil,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Items decodes the cart lines of a loaded session.
func (s CheckoutSession) Items() ([]Item, error) {
	if len(s.ItemsJSON) == 0 {
		return nil, nil
	}
	var items []Item
	err := json.Unmarshal(s.ItemsJSON, &items)
	return items, err
}

// Customer decodes the shopper data; a session without customer data
// yields the zero value.
func (s CheckoutSession) Customer() Customer {
	var c Customer
	if len(s.CustomerJSON) > 0 {
		_ = json.Unmarshal(s.CustomerJSON, &c)
	}
	return c
}

// RawCart decodes the storefront cart handle; zero value when absent.
func (s CheckoutSession) RawCart() RawCart {
	var rc RawCart
	if len(s.RawCartJSON) > 0 {
		_ = json.Unmarshal(s.RawCartJSON, &rc)
	}
	return rc
}
