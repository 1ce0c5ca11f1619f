// Package stripe is the payment-gateway client: checkout-session creation
// and the idempotent singleton coupon. The API is form-encoded.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

const defaultBaseURL = "https://api.stripe.com"

// Config holds the gateway credentials.
type Config struct {
	SecretKey string
	// BaseURL overrides the production endpoint; used by tests.
	BaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Configured reports whether the gateway credentials are present.
func (c Config) Configured() bool {
	return c.SecretKey != ""
}

// APIError is a non-2xx response from the gateway, with the error code and
// message extracted from the body when present.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: status %d code %q: %s", e.Status, e.Code, e.Message)
}

// LineItem is one priced line on the session.
type LineItem struct {
	PriceID  string
	Quantity int
}

// ShippingOption is the selected rate attached to the session as a
// fixed-amount option.
type ShippingOption struct {
	DisplayName string
	AmountCents int64
}

// SessionParams are the inputs for checkout-session creation.
type SessionParams struct {
	LineItems        []LineItem
	Metadata         map[string]string
	SuccessURL       string
	CancelURL        string
	CustomerEmail    string
	AllowedCountries []string
	CollectPhone     bool
	Shipping         *ShippingOption
	// CouponID, when set, is attached as a discount.
	CouponID string
}

// Client talks to the payment gateway.
type Client struct {
	http    *http.Client
	baseURL string
	secret  string
}

// New creates a Client from config.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		secret:  cfg.SecretKey,
	}
}

// CreateCheckoutSession builds a payment session and returns its id.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (string, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)

	for i, li := range p.LineItems {
		form.Set(fmt.Sprintf("line_items[%d][price]", i), li.PriceID)
		form.Set(fmt.Sprintf("line_items[%d][quantity]", i), strconv.Itoa(li.Quantity))
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	for _, country := range p.AllowedCountries {
		form.Add("shipping_address_collection[allowed_countries][]", country)
	}
	if p.CollectPhone {
		form.Set("phone_number_collection[enabled]", "true")
	}
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	if p.Shipping != nil {
		form.Set("shipping_options[0][shipping_rate_data][type]", "fixed_amount")
		form.Set("shipping_options[0][shipping_rate_data][fixed_amount][amount]",
			strconv.FormatInt(p.Shipping.AmountCents, 10))
		form.Set("shipping_options[0][shipping_rate_data][fixed_amount][currency]", "usd")
		form.Set("shipping_options[0][shipping_rate_data][display_name]", p.Shipping.DisplayName)
	}
	if p.CouponID != "" {
		form.Set("discounts[0][coupon]", p.CouponID)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &result); err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return result.ID, nil
}

// EnsureCoupon creates the singleton percent-off coupon. An
// already-exists rejection is success: the coupon is configuration, created
// once and reused.
func (c *Client) EnsureCoupon(ctx context.Context, id string, percentOff float64, duration string) error {
	form := url.Values{}
	form.Set("id", id)
	form.Set("percent_off", strconv.FormatFloat(percentOff, 'f', -1, 64))
	form.Set("duration", duration)

	err := c.postForm(ctx, "/v1/coupons", form, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "resource_already_exists" {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "ensure coupon %s", id)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil {
			apiErr.Code = body.Error.Code
			apiErr.Message = body.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}
