package marketing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Meta Conversions API purchase events. Strictly best-effort: a lost or
// failed event is a logging matter, never a checkout matter.

const defaultGraphEndpoint = "https://graph.facebook.com/v18.0"

type Config struct {
	PixelID     string
	AccessToken string
	SiteURL     string

	// Endpoint override for tests.
	Endpoint string
}

type PurchaseItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type Purchase struct {
	Email      string
	Phone      string
	FirstName  string
	LastName   string
	City       string
	PostalCode string
	Country    string

	ValueCents int64
	Currency   string
	Items      []PurchaseItem

	// EventID deduplicates against the browser pixel; the payment intent
	// id is used so server and client report the same event.
	EventID     string
	LandingPath string
	ClientIP    string
	UserAgent   string
	FBP         string
	FBC         string
}

type Client struct {
	cfg    Config
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   resty.New().SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// Enabled reports whether the pixel is configured at all; when it is not,
// callers skip dispatch entirely.
func (c *Client) Enabled() bool {
	return c.cfg.PixelID != "" && c.cfg.AccessToken != ""
}

func (c *Client) endpoint() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	return defaultGraphEndpoint
}

func (c *Client) SendPurchase(ctx context.Context, p Purchase) error {
	if !c.Enabled() {
		return nil
	}

	userData := map[string]any{
		"client_ip_address": p.ClientIP,
		"client_user_agent": p.UserAgent,
	}
	addHashed(userData, "em", strings.ToLower(p.Email))
	addHashed(userData, "ph", strings.TrimPrefix(p.Phone, "+"))
	addHashed(userData, "fn", strings.ToLower(p.FirstName))
	addHashed(userData, "ln", strings.ToLower(p.LastName))
	addHashed(userData, "ct", strings.ToLower(p.City))
	addHashed(userData, "zp", p.PostalCode)
	addHashed(userData, "country", strings.ToLower(p.Country))
	if p.FBP != "" {
		userData["fbp"] = p.FBP
	}
	if p.FBC != "" {
		userData["fbc"] = p.FBC
	}

	sourceURL := strings.TrimRight(c.cfg.SiteURL, "/") + p.LandingPath

	event := map[string]any{
		"event_name":       "Purchase",
		"event_time":       time.Now().Unix(),
		"event_id":         p.EventID,
		"event_source_url": sourceURL,
		"action_source":    "website",
		"user_data":        userData,
		"custom_data": map[string]any{
			"currency": strings.ToUpper(p.Currency),
			// Meta wants major units; rendered from cents without floats.
			"value":    fmt.Sprintf("%d.%02d", p.ValueCents/100, p.ValueCents%100),
			"contents": p.Items,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"data":         []any{event},
			"access_token": c.cfg.AccessToken,
		}).
		Post(fmt.Sprintf("%s/%s/events", c.endpoint(), c.cfg.PixelID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("meta capi error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}

func addHashed(m map[string]any, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	sum := sha256.Sum256([]byte(value))
	m[key] = hex.EncodeToString(sum[:])
}
