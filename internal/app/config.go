package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
// Integrations with empty credentials are disabled, not fatal.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL URL for the reconciliation log; empty disables it (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`

	Checkout    CheckoutConfig
	Stripe      StripeConfig
	ShipStation ShipStationConfig
	Mailchimp   MailchimpConfig
	Email       EmailConfig
	Shipping    ShippingConfig
	Outbound    OutboundConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CheckoutConfig controls session creation.
type CheckoutConfig struct {
	SuccessURL       string  `default:"https://example.com/thank-you" usage:"Redirect after successful payment" flag:"success-url"`
	CancelURL        string  `default:"https://example.com/cart" usage:"Redirect after abandoned checkout" flag:"cancel-url"`
	CouponID         string  `default:"recommendation-addon" usage:"Singleton add-on discount coupon id" flag:"coupon-id"`
	CouponPercentOff float64 `default:"20" usage:"Add-on discount percentage" flag:"coupon-percent-off"`
}

// StripeConfig holds payment-gateway credentials.
type StripeConfig struct {
	SecretKey     string `usage:"Payment gateway secret key (STORE_STRIPE_SECRET_KEY)" flag:"stripe-secret-key"`
	WebhookSecret string `usage:"Event signing secret; empty disables verification" flag:"stripe-webhook-secret"`
}

// ShipStationConfig holds carrier-rate/warehouse provider credentials.
type ShipStationConfig struct {
	APIKey    string `usage:"Provider API key" flag:"shipstation-api-key"`
	APISecret string `usage:"Provider API secret" flag:"shipstation-api-secret"`
}

// MailchimpConfig holds marketing-list credentials.
type MailchimpConfig struct {
	APIKey       string `usage:"Marketing list API key" flag:"mailchimp-api-key"`
	ServerPrefix string `usage:"Marketing list datacenter prefix (e.g. us14)" flag:"mailchimp-server-prefix"`
	ListID       string `usage:"Marketing list audience id" flag:"mailchimp-list-id"`
}

// EmailConfig holds the transactional email relay settings.
type EmailConfig struct {
	FromAddress string `usage:"Envelope sender for relayed form submissions" flag:"email-from"`
	FromName    string `default:"Storefront" usage:"Sender display name" flag:"email-from-name"`
	ToAddress   string `usage:"Inbox receiving contact and booking messages" flag:"email-to"`
}

// ShippingConfig controls rate aggregation.
type ShippingConfig struct {
	FreeShippingThreshold float64 `default:"100" usage:"Subtotal (USD) at which shipping is free" flag:"free-shipping-threshold"`
	FedExCarrierCode      string  `default:"fedex" usage:"Account-specific FedEx carrier code" flag:"fedex-carrier-code"`
	OriginZip             string  `default:"37203" usage:"Warehouse origin postal code" flag:"origin-zip"`
	LengthIn              float64 `default:"12" usage:"Package length, inches" flag:"package-length"`
	WidthIn               float64 `default:"9" usage:"Package width, inches" flag:"package-width"`
	HeightIn              float64 `default:"3" usage:"Package height, inches" flag:"package-height"`
}

// OutboundConfig bounds every outbound integration call.
type OutboundConfig struct {
	Timeout time.Duration `default:"10s" usage:"Per-call timeout for outbound HTTP clients" flag:"outbound-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
