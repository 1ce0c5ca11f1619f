// Package catalog holds the product catalog and the classifier that maps a
// cart line item onto its semantic variant and title family. Every downstream
// decision (what ships, what gets tagged, what gets discounted) consumes the
// classification instead of re-deriving it from identifier substrings.
package catalog

import (
	"strings"

	"github.com/go-faster/errors"
)

// Variant is the semantic kind of a cart line item.
type Variant string

const (
	// VariantBundle is the physical two-book bundle.
	VariantBundle Variant = "bundle"
	// VariantPaperback is a single physical title.
	VariantPaperback Variant = "paperback"
	// VariantEbook is a digital-only title.
	VariantEbook Variant = "ebook"
	// VariantRecommendation is the discounted add-on offered at checkout.
	VariantRecommendation Variant = "recommendation"
	// VariantFreeBonus is a zero-cost digital bonus item.
	VariantFreeBonus Variant = "freeBonus"
	// VariantUnknown is the safe default for unrecognized items. It is
	// treated as digital so an unknown id never blocks fulfillment or
	// marketing sync.
	VariantUnknown Variant = "unknown"
)

// Physical reports whether items of this variant require shipment.
func (v Variant) Physical() bool {
	return v == VariantBundle || v == VariantPaperback
}

// Family is the catalog title family a line item belongs to.
type Family string

const (
	FamilyBundle         Family = "bundle"
	FamilyUnshakable     Family = "unshakable"
	FamilyFire           Family = "fire"
	FamilyRecommendation Family = "recommendation"
	FamilyBonus          Family = "bonus"
	FamilyNone           Family = ""
)

// Classification is the result of classifying a single cart item.
type Classification struct {
	Variant Variant
	Family  Family
}

// ErrUnknownPriceID is returned when a cart item id has no price mapping.
// Checkout-session creation is the only strict consumer of the catalog;
// everything downstream tolerates unknown ids.
var ErrUnknownPriceID = errors.New("unknown product id")

// Catalog maps storefront item ids to payment-gateway price ids and
// classifies items. It is immutable after construction.
type Catalog struct {
	priceIDs map[string]string
}

// New builds a Catalog from an id -> price-id map.
func New(priceIDs map[string]string) *Catalog {
	ids := make(map[string]string, len(priceIDs))
	for k, v := range priceIDs {
		ids[k] = v
	}
	return &Catalog{priceIDs: ids}
}

// DefaultPriceIDs is the production catalog: the two-book bundle, two single
// titles in paperback/ebook and English/Spanish, the checkout add-on, and
// the free bonus guides.
func DefaultPriceIDs() map[string]string {
	return map[string]string{
		"bundle_en":         "price_BUNDLE_EN",
		"bundle_es":         "price_BUNDLE_ES",
		"unshakable_pb_en":  "price_UNSHAKABLE_PB_EN",
		"unshakable_pb_es":  "price_UNSHAKABLE_PB_ES",
		"unshakable_eb_en":  "price_UNSHAKABLE_EB_EN",
		"unshakable_eb_es":  "price_UNSHAKABLE_EB_ES",
		"fire_pb_en":        "price_FIRE_PB_EN",
		"fire_pb_es":        "price_FIRE_PB_ES",
		"fire_eb_en":        "price_FIRE_EB_EN",
		"fire_eb_es":        "price_FIRE_EB_ES",
		"recommend_fire_eb": "price_RECOMMEND_FIRE_EB",
		"bonus_action_guide": "price_BONUS_ACTION_GUIDE",
		"bonus_prayer_guide": "price_BONUS_PRAYER_GUIDE",
	}
}

// PriceID resolves a storefront item id to its payment-gateway price id.
func (c *Catalog) PriceID(itemID string) (string, error) {
	id, ok := c.priceIDs[itemID]
	if !ok {
		return "", errors.Wrapf(ErrUnknownPriceID, "item %q", itemID)
	}
	return id, nil
}

// Classify maps an item id and type field to a Classification. It is total:
// unrecognized input yields VariantUnknown/FamilyNone rather than an error.
func Classify(itemID, itemType string) Classification {
	return Classification{
		Variant: classifyVariant(itemID, itemType),
		Family:  classifyFamily(itemID),
	}
}

func classifyVariant(itemID, itemType string) Variant {
	switch itemType {
	case "bundle":
		return VariantBundle
	case "paperback":
		return VariantPaperback
	case "ebook":
		return VariantEbook
	case "recommendation":
		return VariantRecommendation
	case "freeBonus":
		return VariantFreeBonus
	}
	// Fall back to the id when the type field is absent or unrecognized.
	switch {
	case strings.HasPrefix(itemID, "bundle"):
		return VariantBundle
	case strings.HasPrefix(itemID, "recommend"):
		return VariantRecommendation
	case strings.HasPrefix(itemID, "bonus"):
		return VariantFreeBonus
	case strings.Contains(itemID, "_pb_"):
		return VariantPaperback
	case strings.Contains(itemID, "_eb_"):
		return VariantEbook
	}
	return VariantUnknown
}

func classifyFamily(itemID string) Family {
	switch {
	case strings.HasPrefix(itemID, "recommend"):
		return FamilyRecommendation
	case strings.HasPrefix(itemID, "bonus"):
		return FamilyBonus
	case strings.Contains(itemID, "bundle"):
		return FamilyBundle
	case strings.Contains(itemID, "unshakable"):
		return FamilyUnshakable
	case strings.Contains(itemID, "fire"):
		return FamilyFire
	}
	return FamilyNone
}
