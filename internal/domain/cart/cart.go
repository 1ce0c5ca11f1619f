// Package cart models the client shopping cart as it travels through the
// checkout flow: posted by the storefront, serialized into the payment
// session's metadata, and decoded again when the confirmation event arrives.
package cart

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bridgebuilders/storefront/internal/domain/catalog"
)

// Item is a single cart line item. Class is derived once at decode time and
// is the only product discrimination downstream code consults.
type Item struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	WeightOz float64         `json:"weight"`

	Class catalog.Classification `json:"-"`
}

// Cart is an ordered list of line items.
type Cart []Item

// ErrEmptyCart is returned when a request carries no items.
var ErrEmptyCart = errors.New("cart is empty")

// Decode parses a cart from its JSON form and classifies every item.
func Decode(data []byte) (Cart, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	c := Cart(items)
	c.classify()
	return c, nil
}

// Normalize classifies all items in place. Carts built directly from request
// structs must call this before use.
func (c Cart) Normalize() Cart {
	c.classify()
	return c
}

func (c Cart) classify() {
	for i := range c {
		c[i].Class = catalog.Classify(c[i].ID, c[i].Type)
	}
}

// Encode serializes the cart for the session metadata round-trip.
func (c Cart) Encode() ([]byte, error) {
	data, err := json.Marshal([]Item(c))
	if err != nil {
		return nil, errors.Wrap(err, "encode cart")
	}
	return data, nil
}

// Subtotal sums price x quantity over all items.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// TotalWeightOz sums weight x quantity over all items, in ounces. Digital
// items carry zero weight so they contribute nothing.
func (c Cart) TotalWeightOz() float64 {
	var total float64
	for _, it := range c {
		total += it.WeightOz * float64(it.Quantity)
	}
	return total
}

// Physical returns only the items that require shipment.
func (c Cart) Physical() Cart {
	var out Cart
	for _, it := range c {
		if it.Class.Variant.Physical() {
			out = append(out, it)
		}
	}
	return out
}

// HasRecommendation reports whether the cart contains the checkout add-on.
func (c Cart) HasRecommendation() bool {
	for _, it := range c {
		if it.Class.Variant == catalog.VariantRecommendation {
			return true
		}
	}
	return false
}

// HasFamily reports whether any item belongs to the given title family.
func (c Cart) HasFamily(f catalog.Family) bool {
	for _, it := range c {
		if it.Class.Family == f {
			return true
		}
	}
	return false
}

// HasPhysicalFamily reports whether any physical item belongs to the given
// title family. Ebook variants of the family do not count.
func (c Cart) HasPhysicalFamily(f catalog.Family) bool {
	for _, it := range c {
		if it.Class.Family == f && it.Class.Variant.Physical() {
			return true
		}
	}
	return false
}
