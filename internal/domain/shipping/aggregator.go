package shipping

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
)

// Aggregation failure conditions.
var (
	// ErrNotConfigured means the carrier-rate provider credentials are
	// absent. Non-retryable; fails the whole call.
	ErrNotConfigured = errors.New("shipping rate provider is not configured")
	// ErrNoPhysicalProduct means the cart weighs nothing, so there is
	// nothing to ship.
	ErrNoPhysicalProduct = errors.New("cart contains no physical product")
)

// Config holds the aggregator's injected, immutable configuration.
type Config struct {
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold decimal.Decimal
	// FedExCarrierCode is the account-specific carrier identifier tried
	// first for FedEx quotes; a provider rejection falls back to the
	// generic "fedex" code once.
	FedExCarrierCode string
	// OriginPostalCode is the fixed warehouse origin.
	OriginPostalCode string
	// Package envelope, fixed for all quotes.
	LengthIn, WidthIn, HeightIn float64
}

// DefaultConfig returns the production aggregation settings.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FedExCarrierCode:      CarrierFedExGeneric,
		OriginPostalCode:      "37203",
		LengthIn:              12,
		WidthIn:               9,
		HeightIn:              3,
	}
}

// Aggregator queries carriers and produces the filtered, sorted rate set.
type Aggregator struct {
	cfg   Config
	rates RateClient
}

// NewAggregator builds an Aggregator. A nil client marks the provider as
// unconfigured; quotes then fail with ErrNotConfigured (the free-shipping
// short-circuit still applies).
func NewAggregator(cfg Config, rates RateClient) *Aggregator {
	return &Aggregator{cfg: cfg, rates: rates}
}

// Quote returns the shipping options for the cart and destination, sorted
// ascending by shipment cost. The returned slice may be empty.
func (a *Aggregator) Quote(ctx context.Context, c cart.Cart, dest Destination, subtotal decimal.Decimal) ([]Rate, error) {
	// Free-shipping override: one zero-cost economy rate, no carrier calls.
	if subtotal.GreaterThanOrEqual(a.cfg.FreeShippingThreshold) {
		return []Rate{{
			ServiceName:    "Free Shipping (5-8 business days)",
			ServiceCode:    FreeShippingServiceCode,
			ShipmentCost:   decimal.Zero,
			OtherCost:      decimal.Zero,
			IsFreeShipping: true,
		}}, nil
	}

	if a.rates == nil {
		return nil, ErrNotConfigured
	}

	weight := c.TotalWeightOz()
	if weight <= 0 {
		return nil, ErrNoPhysicalProduct
	}

	merged, err := a.queryCarriers(ctx, dest, weight)
	if err != nil {
		return nil, err
	}

	filtered := make([]Rate, 0, len(merged))
	for _, r := range merged {
		if ServiceAllowed(r.ServiceCode) {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ShipmentCost.LessThan(filtered[j].ShipmentCost)
	})

	return filtered, nil
}

// queryCarriers collects rates from USPS and FedEx. A USPS failure fails the
// whole quote; a FedEx failure is logged and absorbed, proceeding with
// whatever rates were obtained. The merged accumulator is threaded
// explicitly rather than captured.
func (a *Aggregator) queryCarriers(ctx context.Context, dest Destination, weightOz float64) ([]Rate, error) {
	usps, err := a.rates.GetRates(ctx, a.rateRequest(CarrierUSPS, dest, weightOz))
	if err != nil {
		return nil, errors.Wrap(err, "usps rates")
	}

	merged := append([]Rate(nil), usps...)

	fedex, err := a.quoteFedEx(ctx, dest, weightOz)
	if err != nil {
		zctx.From(ctx).Error("fedex rate query failed", zap.Error(err))
		return merged, nil
	}

	return append(merged, fedex...), nil
}

// quoteFedEx tries the configured carrier code first and retries once with
// the generic code when the provider rejects the account identifier.
func (a *Aggregator) quoteFedEx(ctx context.Context, dest Destination, weightOz float64) ([]Rate, error) {
	rates, err := a.rates.GetRates(ctx, a.rateRequest(a.cfg.FedExCarrierCode, dest, weightOz))
	if err == nil || a.cfg.FedExCarrierCode == CarrierFedExGeneric {
		return rates, err
	}

	zctx.From(ctx).Warn("fedex carrier code rejected, retrying with generic code",
		zap.String("carrier_code", a.cfg.FedExCarrierCode),
		zap.Error(err),
	)
	return a.rates.GetRates(ctx, a.rateRequest(CarrierFedExGeneric, dest, weightOz))
}

func (a *Aggregator) rateRequest(carrierCode string, dest Destination, weightOz float64) RateRequest {
	return RateRequest{
		CarrierCode:      carrierCode,
		FromPostalCode:   a.cfg.OriginPostalCode,
		To:               dest,
		WeightOz:         weightOz,
		LengthIn:         a.cfg.LengthIn,
		WidthIn:          a.cfg.WidthIn,
		HeightIn:         a.cfg.HeightIn,
		Residential:      true,
		ConfirmationType: "none",
	}
}
