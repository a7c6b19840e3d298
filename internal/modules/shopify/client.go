package shopify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNotConfigured = errors.New("shopify: shop domain or oauth credentials missing")

// tokenMargin is subtracted from the token lifetime so a token is renewed
// well before Shopify expires it (tokens live 24h).
const tokenMargin = 4 * time.Hour

type Config struct {
	ShopDomain      string
	ClientID        string
	ClientSecret    string
	APIVersion      string
	StorefrontToken string

	// BaseURL overrides https://<ShopDomain> (tests point it at httptest).
	BaseURL string
}

func (c Config) Configured() bool {
	return c.ShopDomain != "" && c.ClientID != "" && c.ClientSecret != ""
}

// APIError is a non-2xx answer from the Shopify Admin API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify api error: status=%d body=%s", e.Status, truncate(e.Body, 200))
}

// Client talks to the Shopify Admin REST API and the Storefront GraphQL
// API for one shop. The Admin token is obtained via OAuth
// client_credentials and cached until shortly before expiry.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger *slog.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-10"
	}
	return &Client{
		cfg:    cfg,
		http:   resty.New().SetTimeout(20 * time.Second),
		logger: logger,
	}
}

// Configured reports whether the client has the credentials it needs.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return "https://" + c.cfg.ShopDomain
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken returns a valid Admin API token, renewing it when the cached
// one is within the safety margin of expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExp) > tokenMargin {
		return c.token, nil
	}

	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
		}).
		SetResult(&tok).
		Post(c.baseURL() + "/admin/oauth/access_token")
	if err != nil {
		return "", fmt.Errorf("shopify oauth request: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	if tok.AccessToken == "" {
		return "", errors.New("shopify oauth: response without access_token")
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 86400
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(expiresIn) * time.Second)

	c.logger.InfoContext(ctx, "shopify admin token renewed", "valid_until", c.tokenExp)
	return c.token, nil
}

// ResetTokenCache drops the cached Admin token.
func (c *Client) ResetTokenCache() {
	c.mu.Lock()
	c.token, c.tokenExp = "", time.Time{}
	c.mu.Unlock()
}

type OrderResult struct {
	OrderID     int64
	OrderNumber int64
}

type createOrderResponse struct {
	Order struct {
		ID          int64 `json:"id"`
		OrderNumber int64 `json:"order_number"`
	} `json:"order"`
}

// CreateOrder submits an order to the Admin REST API.
func (c *Client) CreateOrder(ctx context.Context, order Order) (OrderResult, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return OrderResult{}, err
	}

	var out createOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", token).
		SetBody(map[string]any{"order": order}).
		SetResult(&out).
		Post(fmt.Sprintf("%s/admin/api/%s/orders.json", c.baseURL(), c.cfg.APIVersion))
	if err != nil {
		return OrderResult{}, fmt.Errorf("shopify create order: %w", err)
	}
	if resp.IsError() {
		return OrderResult{}, &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	if out.Order.ID == 0 {
		return OrderResult{}, errors.New("shopify create order: response without order id")
	}

	return OrderResult{OrderID: out.Order.ID, OrderNumber: out.Order.OrderNumber}, nil
}

const cartLinesQuery = `query getCart($cartId: ID!) { cart(id: $cartId) { lines(first: 100) { edges { node { id } } } } }`

const cartLinesRemoveMutation = `mutation cartLinesRemove($cartId: ID!, $lineIds: [ID!]!) { cartLinesRemove(cartId: $cartId, lineIds: $lineIds) { cart { id totalQuantity } userErrors { field message } } }`

type cartLinesResponse struct {
	Errors []any `json:"errors"`
	Data   struct {
		Cart struct {
			Lines struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"lines"`
		} `json:"cart"`
	} `json:"data"`
}

type cartRemoveResponse struct {
	Data struct {
		CartLinesRemove struct {
			UserErrors []struct {
				Field   any    `json:"field"`
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"cartLinesRemove"`
	} `json:"data"`
}

// ClearCart empties the shopper's storefront cart after a paid order.
// Best effort by contract: every failure is returned to the caller only to
// be logged, never to affect the webhook outcome.
func (c *Client) ClearCart(ctx context.Context, cartID string) error {
	if cartID == "" {
		return nil
	}
	if c.cfg.ShopDomain == "" && c.cfg.BaseURL == "" {
		return ErrNotConfigured
	}
	if c.cfg.StorefrontToken == "" {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/api/%s/graphql.json", c.baseURL(), c.cfg.APIVersion)

	var lines cartLinesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Storefront-Access-Token", c.cfg.StorefrontToken).
		SetBody(map[string]any{
			"query":     cartLinesQuery,
			"variables": map[string]any{"cartId": cartID},
		}).
		SetResult(&lines).
		Post(url)
	if err != nil {
		return err
	}
	if resp.IsError() || len(lines.Errors) > 0 {
		return fmt.Errorf("shopify cart query failed: status=%d", resp.StatusCode())
	}

	lineIDs := make([]string, 0, len(lines.Data.Cart.Lines.Edges))
	for _, e := range lines.Data.Cart.Lines.Edges {
		lineIDs = append(lineIDs, e.Node.ID)
	}
	if len(lineIDs) == 0 {
		return nil
	}

	var removed cartRemoveResponse
	resp, err = c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Storefront-Access-Token", c.cfg.StorefrontToken).
		SetBody(map[string]any{
			"query":     cartLinesRemoveMutation,
			"variables": map[string]any{"cartId": cartID, "lineIds": lineIDs},
		}).
		SetResult(&removed).
		Post(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("shopify cart clear failed: status=%d", resp.StatusCode())
	}
	if ue := removed.Data.CartLinesRemove.UserErrors; len(ue) > 0 {
		return fmt.Errorf("shopify cart clear user errors: %s", ue[0].Message)
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
