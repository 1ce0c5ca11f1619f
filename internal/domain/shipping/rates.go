// Package shipping aggregates real-time carrier rates for a cart and
// destination: it queries both carriers, merges and filters the results
// against a fixed service allow-list, applies the free-shipping override,
// and returns a price-sorted set of options.
package shipping

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Rate is a single priced shipping option. Never mutated after creation.
type Rate struct {
	ServiceName    string          `json:"serviceName"`
	ServiceCode    string          `json:"serviceCode"`
	ShipmentCost   decimal.Decimal `json:"shipmentCost"`
	OtherCost      decimal.Decimal `json:"otherCost"`
	IsFreeShipping bool            `json:"isFreeShipping"`
}

// Destination is where the cart ships to.
type Destination struct {
	City       string
	State      string
	PostalCode string
	Country    string
}

// RateRequest is a single carrier rate query.
type RateRequest struct {
	CarrierCode      string
	FromPostalCode   string
	To               Destination
	WeightOz         float64
	LengthIn         float64
	WidthIn          float64
	HeightIn         float64
	Residential      bool
	ConfirmationType string
}

// RateClient quotes rates from the carrier-rate provider.
type RateClient interface {
	GetRates(ctx context.Context, req RateRequest) ([]Rate, error)
}

// Carrier codes sent to the rate provider.
const (
	CarrierUSPS         = "stamps_com"
	CarrierFedExGeneric = "fedex"
)

// FreeShippingServiceCode is the designated economy service used for the
// free-shipping override.
const FreeShippingServiceCode = "usps_media_mail"

// allowedServiceCodes is the fixed allow-list of quotable services: two mail
// tiers, one express-saver tier, two overnight tiers. Matching is exact;
// substring matching would incorrectly admit express variants of the
// priority services (e.g. fedex_express_saver_freight).
var allowedServiceCodes = map[string]struct{}{
	"usps_media_mail":          {},
	"usps_priority_mail":       {},
	"fedex_express_saver":      {},
	"fedex_standard_overnight": {},
	"fedex_priority_overnight": {},
}

// ServiceAllowed reports whether the service code is quotable.
func ServiceAllowed(code string) bool {
	_, ok := allowedServiceCodes[code]
	return ok
}

// serviceNames maps stored shipping-method code prefixes to the
// human-readable names the warehouse system expects.
var serviceNames = []struct {
	prefix string
	name   string
}{
	{"usps_media_mail", "USPS Media Mail"},
	{"usps_priority_mail", "USPS Priority Mail"},
	{"fedex_express_saver", "FedEx Express Saver"},
	{"fedex_standard_overnight", "FedEx Standard Overnight"},
	{"fedex_priority_overnight", "FedEx Priority Overnight"},
}

// ServiceDisplayName maps a stored shipping-method code to a carrier service
// name. Unmapped codes yield "", meaning no preference: the warehouse
// system's default applies.
func ServiceDisplayName(code string) string {
	for _, sn := range serviceNames {
		if strings.HasPrefix(code, sn.prefix) {
			return sn.name
		}
	}
	return ""
}
