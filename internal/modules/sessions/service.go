package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyCart = errors.New("cart payload has no items")

// Service owns cart intake: the storefront hands a cart over and gets back
// a session id plus the external checkout URL to redirect to.
type Service struct {
	repo           *Repo
	checkoutDomain string
}

func NewService(repo *Repo, checkoutDomain string) *Service {
	return &Service{repo: repo, checkoutDomain: checkoutDomain}
}

type IntakeInput struct {
	CartToken string
	CartID    string
	Items     []Item
	Subtotal  *int64
	Total     *int64
	Shipping  int64
	Currency  string
	Attrs     map[string]string
}

type IntakeResult struct {
	SessionID   string
	CheckoutURL string
}

func (s *Service) CreateFromCart(ctx context.Context, in IntakeInput) (IntakeResult, error) {
	if len(in.Items) == 0 {
		return IntakeResult{}, ErrEmptyCart
	}

	// Trust the storefront totals when present, otherwise sum the lines.
	subtotal := int64(0)
	for _, it := range in.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		if it.LinePriceCents > 0 {
			subtotal += it.LinePriceCents
		} else {
			subtotal += it.PriceCents * int64(qty)
		}
	}
	if in.Subtotal != nil {
		subtotal = *in.Subtotal
	}
	total := subtotal + in.Shipping
	if in.Total != nil {
		total = *in.Total
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "EUR"
	}

	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return IntakeResult{}, err
	}
	rawCartJSON, err := json.Marshal(RawCart{ID: in.CartID, Token: in.CartToken, Attributes: in.Attrs})
	if err != nil {
		return IntakeResult{}, err
	}

	now := time.Now()
	sess := CheckoutSession{
		ID:            uuid.NewString(),
		Currency:      currency,
		ItemsJSON:     itemsJSON,
		RawCartJSON:   rawCartJSON,
		SubtotalCents: subtotal,
		ShippingCents: in.Shipping,
		TotalCents:    total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, &sess); err != nil {
		return IntakeResult{}, err
	}

	base := strings.TrimRight(s.checkoutDomain, "/")
	return IntakeResult{
		SessionID:   sess.ID,
		CheckoutURL: fmt.Sprintf("%s/checkout?sessionId=%s", base, url.QueryEscape(sess.ID)),
	}, nil
}

// AttachCustomer stores the shopper data collected by the checkout page.
func (s *Service) AttachCustomer(ctx context.Context, sessionID string, c Customer) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, sessionID, map[string]any{"customer_json": raw})
}
