package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_TypeField(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		itemType string
		variant  Variant
		family   Family
	}{
		{"bundle english", "bundle_en", "bundle", VariantBundle, FamilyBundle},
		{"paperback english", "unshakable_pb_en", "paperback", VariantPaperback, FamilyUnshakable},
		{"ebook spanish", "fire_eb_es", "ebook", VariantEbook, FamilyFire},
		{"recommendation", "recommend_fire_eb", "recommendation", VariantRecommendation, FamilyRecommendation},
		{"free bonus", "bonus_action_guide", "freeBonus", VariantFreeBonus, FamilyBonus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.id, tt.itemType)
			assert.Equal(t, tt.variant, c.Variant)
			assert.Equal(t, tt.family, c.Family)
		})
	}
}

func TestClassify_FallsBackToID(t *testing.T) {
	c := Classify("fire_pb_es", "")
	assert.Equal(t, VariantPaperback, c.Variant)
	assert.Equal(t, FamilyFire, c.Family)
}

func TestClassify_UnknownIsTotal(t *testing.T) {
	c := Classify("mystery_item", "widget")
	assert.Equal(t, VariantUnknown, c.Variant)
	assert.Equal(t, FamilyNone, c.Family)
	assert.False(t, c.Variant.Physical())
}

func TestVariantPhysical(t *testing.T) {
	assert.True(t, VariantBundle.Physical())
	assert.True(t, VariantPaperback.Physical())
	assert.False(t, VariantEbook.Physical())
	assert.False(t, VariantRecommendation.Physical())
	assert.False(t, VariantFreeBonus.Physical())
	assert.False(t, VariantUnknown.Physical())
}

func TestCatalogPriceID(t *testing.T) {
	cat := New(DefaultPriceIDs())

	id, err := cat.PriceID("bundle_en")
	require.NoError(t, err)
	assert.Equal(t, "price_BUNDLE_EN", id)

	_, err = cat.PriceID("not_in_catalog")
	require.ErrorIs(t, err, ErrUnknownPriceID)
}
