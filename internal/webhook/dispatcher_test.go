package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgebuilders/storefront/internal/domain/checkout"
	"github.com/bridgebuilders/storefront/internal/domain/fulfillment"
	"github.com/bridgebuilders/storefront/internal/domain/marketing"
)

type mockWarehouse struct {
	orders []*fulfillment.Order
	err    error
}

func (m *mockWarehouse) CreateOrder(_ context.Context, o *fulfillment.Order) error {
	m.orders = append(m.orders, o)
	return m.err
}

type mockListClient struct {
	members   []marketing.Member
	tagCalls  int
	lastTags  []string
	upsertErr error
}

func (m *mockListClient) UpsertMember(_ context.Context, _ string, member marketing.Member) error {
	m.members = append(m.members, member)
	return m.upsertErr
}

func (m *mockListClient) AddTags(_ context.Context, _ string, tags []string) error {
	m.tagCalls++
	m.lastTags = tags
	return nil
}

type mockRecorder struct {
	records []Record
	err     error
}

func (m *mockRecorder) RecordEvent(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return m.err
}

func completedEvent(t *testing.T, meta map[string]string) *Event {
	t.Helper()
	sess := map[string]any{
		"id":             "cs_test_abc",
		"amount_total":   3998,
		"payment_intent": "pi_test_xyz",
		"customer_details": map[string]string{
			"email": "buyer@example.com",
			"name":  "Alice Buyer",
			"phone": "+1-555-0100",
		},
		"metadata": meta,
	}
	obj, err := json.Marshal(sess)
	require.NoError(t, err)

	ev := &Event{ID: "evt_1", Type: EventCheckoutCompleted}
	ev.Data.Object = obj
	return ev
}

func physicalMeta() map[string]string {
	return map[string]string{
		checkout.MetaCart:        `[{"id":"unshakable_pb_en","type":"paperback","name":"Unshakable","quantity":1,"price":20,"weight":12}]`,
		checkout.MetaShipStreet1: "1 Cart St",
		checkout.MetaShipCity:    "Memphis",
		checkout.MetaShipState:   "TN",
		checkout.MetaShipZip:     "38101",
		checkout.MetaShipCountry: "US",
	}
}

func newDispatcher(wh *mockWarehouse, list *mockListClient, rec Recorder) *Dispatcher {
	return NewDispatcher(fulfillment.NewService(wh), marketing.NewEngine(list), rec)
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)

	_, err = ParseEvent([]byte(`{not json`))
	require.ErrorIs(t, err, ErrMalformedEvent)

	_, err = ParseEvent([]byte(`{"id":"evt_1"}`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDispatch_FansOutBothLegs(t *testing.T) {
	wh := &mockWarehouse{}
	list := &mockListClient{}
	rec := &mockRecorder{}
	d := newDispatcher(wh, list, rec)

	d.Dispatch(context.Background(), completedEvent(t, physicalMeta()))

	require.Len(t, wh.orders, 1)
	assert.Equal(t, "cs_test_abc", wh.orders[0].OrderNumber)
	require.Len(t, list.members, 1)
	assert.Equal(t, 1, list.tagCalls)

	require.Len(t, rec.records, 1)
	assert.Empty(t, rec.records[0].FulfillmentError)
	assert.Empty(t, rec.records[0].MarketingError)
	assert.True(t, rec.records[0].AmountTotal.Equal(rec.records[0].AmountTotal.Truncate(2)))
}

func TestDispatch_GiftOrder(t *testing.T) {
	wh := &mockWarehouse{}
	list := &mockListClient{}
	d := newDispatcher(wh, list, nil)

	meta := physicalMeta()
	meta[checkout.MetaIsGift] = "true"
	meta[checkout.MetaGiftRecipient] = "Jane Doe"

	d.Dispatch(context.Background(), completedEvent(t, meta))

	require.Len(t, wh.orders, 1)
	assert.Equal(t, "Jane Doe", wh.orders[0].ShipTo.Name)

	require.Len(t, list.members, 1)
	fields := list.members[0].MergeFields
	assert.NotContains(t, fields, "ADDRESS")
	assert.NotContains(t, fields, "PHONE")
	assert.NotContains(t, fields, "ZIP")
	assert.NotContains(t, fields, "STATE")
	assert.NotContains(t, list.lastTags, marketing.TagUnshakableJourney)
}

func TestDispatch_MarketingFailureDoesNotBlockFulfillment(t *testing.T) {
	wh := &mockWarehouse{}
	list := &mockListClient{upsertErr: errors.New("network error")}
	rec := &mockRecorder{}
	d := newDispatcher(wh, list, rec)

	d.Dispatch(context.Background(), completedEvent(t, physicalMeta()))

	// Fulfillment still attempted and succeeded.
	require.Len(t, wh.orders, 1)
	require.Len(t, rec.records, 1)
	assert.Empty(t, rec.records[0].FulfillmentError)
	assert.Contains(t, rec.records[0].MarketingError, "network error")
}

func TestDispatch_FulfillmentFailureDoesNotBlockMarketing(t *testing.T) {
	wh := &mockWarehouse{err: errors.New("warehouse 503")}
	list := &mockListClient{}
	rec := &mockRecorder{}
	d := newDispatcher(wh, list, rec)

	d.Dispatch(context.Background(), completedEvent(t, physicalMeta()))

	require.Len(t, list.members, 1)
	require.Len(t, rec.records, 1)
	assert.Contains(t, rec.records[0].FulfillmentError, "warehouse 503")
	assert.Empty(t, rec.records[0].MarketingError)
}

func TestDispatch_IgnoresOtherEventTypes(t *testing.T) {
	wh := &mockWarehouse{}
	list := &mockListClient{}
	d := newDispatcher(wh, list, nil)

	d.Dispatch(context.Background(), &Event{ID: "evt_2", Type: "invoice.paid"})

	assert.Empty(t, wh.orders)
	assert.Empty(t, list.members)
}

func TestDispatch_UnreadableCartStillSyncsMarketing(t *testing.T) {
	wh := &mockWarehouse{}
	list := &mockListClient{}
	d := newDispatcher(wh, list, nil)

	meta := physicalMeta()
	meta[checkout.MetaCart] = "{broken"

	d.Dispatch(context.Background(), completedEvent(t, meta))

	// No cart means nothing physical to ship, but the purchaser still syncs.
	assert.Empty(t, wh.orders)
	require.Len(t, list.members, 1)
}
