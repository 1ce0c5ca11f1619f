// Package shipstation is the client for the carrier-rate and
// warehouse-order provider. It implements both shipping.RateClient and
// fulfillment.Warehouse.
package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bridgebuilders/storefront/internal/domain/fulfillment"
	"github.com/bridgebuilders/storefront/internal/domain/shipping"
)

const defaultBaseURL = "https://ssapi.shipstation.com"

// Config holds the provider credentials and transport settings.
type Config struct {
	APIKey    string
	APISecret string
	// BaseURL overrides the production endpoint; used by tests.
	BaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shipstation: status %d: %s", e.Status, e.Body)
}

// Client talks to the provider over HTTP with basic auth.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	secret  string
}

var (
	_ shipping.RateClient   = (*Client)(nil)
	_ fulfillment.Warehouse = (*Client)(nil)
)

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
		apiKey:  cfg.APIKey,
		secret:  cfg.APISecret,
	}
}

// rateRequestBody is the provider's getrates wire shape.
type rateRequestBody struct {
	CarrierCode    string     `json:"carrierCode"`
	ServiceCode    *string    `json:"serviceCode"`
	PackageCode    string     `json:"packageCode"`
	FromPostalCode string     `json:"fromPostalCode"`
	ToState        string     `json:"toState"`
	ToCountry      string     `json:"toCountry"`
	ToPostalCode   string     `json:"toPostalCode"`
	ToCity         string     `json:"toCity"`
	Weight         weightBody `json:"weight"`
	Dimensions     dimsBody   `json:"dimensions"`
	Confirmation   string     `json:"confirmation"`
	Residential    bool       `json:"residential"`
}

type weightBody struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

type dimsBody struct {
	Units  string  `json:"units"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type rateBody struct {
	ServiceName  string          `json:"serviceName"`
	ServiceCode  string          `json:"serviceCode"`
	ShipmentCost decimal.Decimal `json:"shipmentCost"`
	OtherCost    decimal.Decimal `json:"otherCost"`
}

// GetRates quotes rates for one carrier against the fixed package envelope.
func (c *Client) GetRates(ctx context.Context, req shipping.RateRequest) ([]shipping.Rate, error) {
	body := rateRequestBody{
		CarrierCode:    req.CarrierCode,
		PackageCode:    "package",
		FromPostalCode: req.FromPostalCode,
		ToState:        req.To.State,
		ToCountry:      req.To.Country,
		ToPostalCode:   req.To.PostalCode,
		ToCity:         req.To.City,
		Weight:         weightBody{Value: req.WeightOz, Units: "ounces"},
		Dimensions: dimsBody{
			Units:  "inches",
			Length: req.LengthIn,
			Width:  req.WidthIn,
			Height: req.HeightIn,
		},
		Confirmation: req.ConfirmationType,
		Residential:  req.Residential,
	}

	var rates []rateBody
	if err := c.post(ctx, "/shipments/getrates", body, &rates); err != nil {
		return nil, errors.Wrapf(err, "get rates for carrier %s", req.CarrierCode)
	}

	out := make([]shipping.Rate, len(rates))
	for i, r := range rates {
		out[i] = shipping.Rate{
			ServiceName:  r.ServiceName,
			ServiceCode:  r.ServiceCode,
			ShipmentCost: r.ShipmentCost,
			OtherCost:    r.OtherCost,
		}
	}
	return out, nil
}

// CreateOrder submits a warehouse order. The provider treats a repeated
// orderNumber as the same order, which is what makes event redelivery safe.
func (c *Client) CreateOrder(ctx context.Context, o *fulfillment.Order) error {
	var result struct {
		OrderID int64 `json:"orderId"`
	}
	if err := c.post(ctx, "/orders/createorder", o, &result); err != nil {
		return errors.Wrapf(err, "create order %s", o.OrderNumber)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(c.apiKey, c.secret)
	req.Header.Set("Content-Type", "application/json")

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
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}
