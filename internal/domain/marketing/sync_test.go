package marketing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/checkout"
)

type mockListClient struct {
	upsertKey  string
	upsertedAs Member
	tagsKey    string
	tags       []string
	upsertErr  error
	tagsErr    error
	upserts    int
	tagCalls   int
}

func (m *mockListClient) UpsertMember(_ context.Context, key string, member Member) error {
	m.upserts++
	m.upsertKey = key
	m.upsertedAs = member
	return m.upsertErr
}

func (m *mockListClient) AddTags(_ context.Context, key string, tags []string) error {
	m.tagCalls++
	m.tagsKey = key
	m.tags = tags
	return m.tagsErr
}

func bundleCart() cart.Cart {
	return cart.Cart{
		{ID: "bundle_en", Type: "bundle", Quantity: 1, Price: decimal.NewFromInt(35), WeightOz: 24},
	}.Normalize()
}

func syncInput(gift bool) SyncInput {
	return SyncInput{
		Email: "Buyer@Example.com",
		Name:  "Alice Anne Buyer",
		Cart:  bundleCart(),
		Address: checkout.Address{
			Street1:    "1 Cart St",
			City:       "Memphis",
			State:      "TN",
			PostalCode: "38101",
			Phone:      "+1-555-0200",
		},
		IsGift: gift,
	}
}

func TestSubscriberKey_CaseInvariant(t *testing.T) {
	assert.Equal(t, SubscriberKey("A@B.com"), SubscriberKey("a@b.com"))
	assert.Len(t, SubscriberKey("a@b.com"), 32)
}

func TestMergeFields_SplitsName(t *testing.T) {
	fields := MergeFields(syncInput(false))
	assert.Equal(t, "Alice", fields["FNAME"])
	assert.Equal(t, "Anne Buyer", fields["LNAME"])
}

func TestMergeFields_SingleWordName(t *testing.T) {
	in := syncInput(false)
	in.Name = "Cher"
	fields := MergeFields(in)
	assert.Equal(t, "Cher", fields["FNAME"])
	assert.Equal(t, "", fields["LNAME"])
}

func TestMergeFields_NonGiftIncludesAddress(t *testing.T) {
	fields := MergeFields(syncInput(false))
	assert.Contains(t, fields, "ADDRESS")
	assert.Equal(t, "+1-555-0200", fields["PHONE"])
	assert.Equal(t, "38101", fields["ZIP"])
	assert.Equal(t, "TN", fields["STATE"])
}

func TestMergeFields_GiftExcludesAddress(t *testing.T) {
	fields := MergeFields(syncInput(true))
	assert.NotContains(t, fields, "ADDRESS")
	assert.NotContains(t, fields, "PHONE")
	assert.NotContains(t, fields, "ZIP")
	assert.NotContains(t, fields, "STATE")
	// Name fields always present.
	assert.Equal(t, "Alice", fields["FNAME"])
}

func TestTags_BundleGetsBothGuidesAndJourneys(t *testing.T) {
	tags := Tags(bundleCart(), false)
	assert.ElementsMatch(t, []string{
		TagPurchasedCustomer,
		TagUnshakableGuide,
		TagPrayerGuide,
		TagUnshakableJourney,
		TagFireJourney,
	}, tags)
}

func TestTags_GiftSuppressesJourneys(t *testing.T) {
	tags := Tags(bundleCart(), true)
	assert.ElementsMatch(t, []string{
		TagPurchasedCustomer,
		TagUnshakableGuide,
		TagPrayerGuide,
	}, tags)
	assert.NotContains(t, tags, TagUnshakableJourney)
	assert.NotContains(t, tags, TagFireJourney)
}

func TestTags_SingleFamily(t *testing.T) {
	c := cart.Cart{{ID: "fire_pb_en", Type: "paperback", Quantity: 1, Price: decimal.NewFromInt(15)}}.Normalize()
	tags := Tags(c, false)
	assert.ElementsMatch(t, []string{TagPurchasedCustomer, TagPrayerGuide, TagFireJourney}, tags)
}

func TestTags_EbookOnlyGetsGuideButNoJourney(t *testing.T) {
	c := cart.Cart{{ID: "unshakable_eb_en", Type: "ebook", Quantity: 1, Price: decimal.NewFromInt(10)}}.Normalize()
	tags := Tags(c, false)
	assert.ElementsMatch(t, []string{TagPurchasedCustomer, TagUnshakableGuide}, tags)
	assert.NotContains(t, tags, TagUnshakableJourney)
}

func TestTags_PaperbackPlusOtherEbookJourneysSeparately(t *testing.T) {
	c := cart.Cart{
		{ID: "unshakable_pb_en", Type: "paperback", Quantity: 1, Price: decimal.NewFromInt(20)},
		{ID: "fire_eb_en", Type: "ebook", Quantity: 1, Price: decimal.NewFromInt(10)},
	}.Normalize()
	tags := Tags(c, false)
	// Guides for both families, journey only for the paperback's family.
	assert.Contains(t, tags, TagUnshakableGuide)
	assert.Contains(t, tags, TagPrayerGuide)
	assert.Contains(t, tags, TagUnshakableJourney)
	assert.NotContains(t, tags, TagFireJourney)
}

func TestSync_UpsertThenTags(t *testing.T) {
	client := &mockListClient{}
	eng := NewEngine(client)

	err := eng.Sync(context.Background(), syncInput(false))
	require.NoError(t, err)

	assert.Equal(t, 1, client.upserts)
	assert.Equal(t, 1, client.tagCalls)
	assert.Equal(t, SubscriberKey("buyer@example.com"), client.upsertKey)
	assert.Equal(t, client.upsertKey, client.tagsKey)
	assert.Equal(t, "Buyer@Example.com", client.upsertedAs.EmailAddress)
}

func TestSync_TagsSkippedAfterUpsertFailure(t *testing.T) {
	client := &mockListClient{upsertErr: errors.New("list down")}
	eng := NewEngine(client)

	err := eng.Sync(context.Background(), syncInput(false))
	require.Error(t, err)
	assert.Equal(t, 0, client.tagCalls)
}

func TestSync_TagFailureNonFatal(t *testing.T) {
	client := &mockListClient{tagsErr: errors.New("tagging down")}
	eng := NewEngine(client)

	err := eng.Sync(context.Background(), syncInput(false))
	require.NoError(t, err)
	assert.Equal(t, 1, client.tagCalls)
}

func TestSync_NotConfiguredIsNoop(t *testing.T) {
	eng := NewEngine(nil)
	require.NoError(t, eng.Sync(context.Background(), syncInput(false)))
}

func TestSync_EmptyEmailSkipped(t *testing.T) {
	client := &mockListClient{}
	eng := NewEngine(client)

	in := syncInput(false)
	in.Email = ""
	require.NoError(t, eng.Sync(context.Background(), in))
	assert.Zero(t, client.upserts)
}
