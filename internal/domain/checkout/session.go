// Package checkout models the payment-gateway checkout session as referenced
// by this service, and resolves the canonical shipping address from it. The
// session's metadata map is the only state that survives between session
// creation and the asynchronous confirmation event, so the cart and the
// shipping selection round-trip through it as flat string keys.
package checkout

import "strings"

// Metadata keys stored on the checkout session at creation time.
const (
	MetaCart          = "cart"
	MetaShipName      = "shipping_name"
	MetaShipStreet1   = "shipping_street1"
	MetaShipStreet2   = "shipping_street2"
	MetaShipCity      = "shipping_city"
	MetaShipState     = "shipping_state"
	MetaShipZip       = "shipping_zip"
	MetaShipCountry   = "shipping_country"
	MetaShipPhone     = "shipping_phone"
	MetaShipMethod    = "shipping_method"
	MetaShipCost      = "shipping_cost"
	MetaIsGift        = "is_gift"
	MetaGiftRecipient = "gift_recipient_name"
)

// Session is the subset of the payment gateway's checkout session consumed
// by this service. Referenced, never owned.
type Session struct {
	ID              string            `json:"id"`
	AmountTotal     int64             `json:"amount_total"`
	PaymentIntent   string            `json:"payment_intent"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	ShippingDetails ShippingDetails   `json:"shipping_details"`
	Metadata        map[string]string `json:"metadata"`
}

// CustomerDetails is the purchaser identity collected by the gateway.
type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ShippingDetails is the gateway-collected shipping block.
type ShippingDetails struct {
	Name    string         `json:"name"`
	Address GatewayAddress `json:"address"`
}

// GatewayAddress is an address in the gateway's wire shape.
type GatewayAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Address is the canonical shipping address every downstream component
// consumes, regardless of which provenance it came from.
type Address struct {
	Name              string
	Street1           string
	Street2           string
	City              string
	State             string
	PostalCode        string
	Country           string
	Phone             string
	IsGift            bool
	GiftRecipientName string
}

// RecipientName is the name to ship to: the gift recipient for gift orders,
// the purchaser otherwise.
func (a Address) RecipientName() string {
	if a.IsGift && a.GiftRecipientName != "" {
		return a.GiftRecipientName
	}
	return a.Name
}

// Meta returns the metadata value for key, or "".
func (s *Session) Meta(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

// IsGift reports whether the session metadata marks the order as a gift.
func (s *Session) IsGift() bool {
	v := strings.ToLower(s.Meta(MetaIsGift))
	return v == "true" || v == "1" || v == "yes"
}

// ResolveAddress produces the canonical shipping address from the session.
//
// Two provenances exist: the cart-collected form round-tripped through
// metadata (preferred, detected by a present street-line key) and the
// gateway-collected form (fallback). Both substitute the gift recipient's
// name when the order is a gift. Pure and total over any session shape.
func ResolveAddress(s *Session) Address {
	var addr Address
	if s.Meta(MetaShipStreet1) != "" {
		addr = Address{
			Name:       s.Meta(MetaShipName),
			Street1:    s.Meta(MetaShipStreet1),
			Street2:    s.Meta(MetaShipStreet2),
			City:       s.Meta(MetaShipCity),
			State:      s.Meta(MetaShipState),
			PostalCode: s.Meta(MetaShipZip),
			Country:    s.Meta(MetaShipCountry),
			Phone:      s.Meta(MetaShipPhone),
		}
		if addr.Name == "" {
			addr.Name = s.CustomerDetails.Name
		}
		if addr.Phone == "" {
			addr.Phone = s.CustomerDetails.Phone
		}
	} else {
		ga := s.ShippingDetails.Address
		addr = Address{
			Name:       s.ShippingDetails.Name,
			Street1:    ga.Line1,
			Street2:    ga.Line2,
			City:       ga.City,
			State:      ga.State,
			PostalCode: ga.PostalCode,
			Country:    ga.Country,
			Phone:      s.CustomerDetails.Phone,
		}
		if addr.Name == "" {
			addr.Name = s.CustomerDetails.Name
		}
	}

	addr.IsGift = s.IsGift()
	addr.GiftRecipientName = s.Meta(MetaGiftRecipient)
	return addr
}
