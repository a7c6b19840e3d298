package config

import (
	"os"

	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/marketing"
	"github.com/mariopotabile/checkout-appBRUNO/internal/modules/shopify"
)

// Config is everything the process reads from the environment. Stripe
// accounts are not here: they live in the database so they can be rotated
// without a deploy.
type Config struct {
	Addr  string
	DBDSN string

	// CheckoutDomain is the base URL of the hosted checkout page returned
	// to the storefront after cart intake.
	CheckoutDomain string

	Shopify   shopify.Config
	Marketing marketing.Config
}

func Load() Config {
	return Config{
		Addr:           getenv("ADDR", ":8080"),
		DBDSN:          os.Getenv("DB_DSN"),
		CheckoutDomain: getenv("CHECKOUT_DOMAIN", "https://www.oltreboutique.com"),
		Shopify: shopify.Config{
			ShopDomain:      os.Getenv("SHOPIFY_SHOP_DOMAIN"),
			ClientID:        os.Getenv("SHOPIFY_CLIENT_ID"),
			ClientSecret:    os.Getenv("SHOPIFY_CLIENT_SECRET"),
			APIVersion:      getenv("SHOPIFY_API_VERSION", "2024-10"),
			StorefrontToken: os.Getenv("SHOPIFY_STOREFRONT_TOKEN"),
		},
		Marketing: marketing.Config{
			PixelID:     os.Getenv("META_PIXEL_ID"),
			AccessToken: os.Getenv("META_ACCESS_TOKEN"),
			SiteURL:     getenv("SITE_URL", "https://www.oltreboutique.com"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
