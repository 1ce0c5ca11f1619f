// Package handler implements the HTTP API surface: shipping-rate quotes,
// checkout-session creation, the payment-confirmation webhook, and the
// lead/notification glue endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bridgebuilders/storefront/internal/client/mailchannels"
	"github.com/bridgebuilders/storefront/internal/client/stripe"
	"github.com/bridgebuilders/storefront/internal/domain/catalog"
	"github.com/bridgebuilders/storefront/internal/domain/shipping"
	"github.com/bridgebuilders/storefront/internal/webhook"
)

// PaymentGateway creates checkout sessions and the singleton coupon.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p stripe.SessionParams) (string, error)
	EnsureCoupon(ctx context.Context, id string, percentOff float64, duration string) error
}

// EmailSender relays form submissions to the configured inbox.
type EmailSender interface {
	Send(ctx context.Context, m mailchannels.Message) error
}

// LeadClient captures lead-form subscribers on the marketing list.
type LeadClient interface {
	AddLead(ctx context.Context, email, firstName string) error
}

// Config holds non-dependency handler configuration.
type Config struct {
	// SuccessURL and CancelURL are where the gateway sends the buyer after
	// checkout.
	SuccessURL string
	CancelURL  string

	// CouponID and CouponPercentOff define the singleton add-on discount.
	CouponID         string
	CouponPercentOff float64

	// WebhookSecret enables event-signature verification when non-empty.
	WebhookSecret      string
	SignatureTolerance time.Duration
}

// Handler serves the API routes. Optional integrations (gateway, email,
// leads) may be nil; their endpoints then degrade per the configuration-
// missing policy.
type Handler struct {
	cfg        Config
	catalog    *catalog.Catalog
	rates      *shipping.Aggregator
	gateway    PaymentGateway
	dispatcher *webhook.Dispatcher
	email      EmailSender
	leads      LeadClient

	now func() time.Time
}

// New constructs a Handler with its domain dependencies.
func New(
	cfg Config,
	cat *catalog.Catalog,
	rates *shipping.Aggregator,
	gateway PaymentGateway,
	dispatcher *webhook.Dispatcher,
	email EmailSender,
	leads LeadClient,
) *Handler {
	if cfg.SignatureTolerance <= 0 {
		cfg.SignatureTolerance = webhook.DefaultSignatureTolerance
	}
	return &Handler{
		cfg:        cfg,
		catalog:    cat,
		rates:      rates,
		gateway:    gateway,
		dispatcher: dispatcher,
		email:      email,
		leads:      leads,
		now:        time.Now,
	}
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/get-shipping-rates", h.getShippingRates)
	mux.HandleFunc("POST /api/create-checkout-session", h.createCheckoutSession)
	mux.HandleFunc("POST /api/webhook", h.handleWebhook)
	mux.HandleFunc("POST /api/send-contact-email", h.sendContactEmail)
	mux.HandleFunc("POST /api/add-mailchimp-lead", h.addMailchimpLead)
	mux.HandleFunc("POST /api/send-booking-request", h.sendBookingRequest)
}
