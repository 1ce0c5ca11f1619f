package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{SecretKey: "sk_test_123", BaseURL: srv.URL})
}

func TestCreateCheckoutSession(t *testing.T) {
	var got url.Values
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		_, _ = w.Write([]byte(`{"id":"cs_test_abc"}`))
	})

	id, err := client.CreateCheckoutSession(context.Background(), SessionParams{
		LineItems: []LineItem{
			{PriceID: "price_bundle", Quantity: 1},
			{PriceID: "price_eb", Quantity: 2},
		},
		Metadata:         map[string]string{"is_gift": "true", "shipping_cost": "4.63"},
		SuccessURL:       "https://shop.example/thanks",
		CancelURL:        "https://shop.example/cart",
		AllowedCountries: []string{"US", "CA"},
		CollectPhone:     true,
		Shipping:         &ShippingOption{DisplayName: "USPS Media Mail", AmountCents: 463},
		CouponID:         "recommendation-addon",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", id)

	assert.Equal(t, "payment", got.Get("mode"))
	assert.Equal(t, "price_bundle", got.Get("line_items[0][price]"))
	assert.Equal(t, "2", got.Get("line_items[1][quantity]"))
	assert.Equal(t, "true", got.Get("metadata[is_gift]"))
	assert.Equal(t, []string{"US", "CA"}, got["shipping_address_collection[allowed_countries][]"])
	assert.Equal(t, "true", got.Get("phone_number_collection[enabled]"))
	assert.Equal(t, "463", got.Get("shipping_options[0][shipping_rate_data][fixed_amount][amount]"))
	assert.Equal(t, "USPS Media Mail", got.Get("shipping_options[0][shipping_rate_data][display_name]"))
	assert.Equal(t, "recommendation-addon", got.Get("discounts[0][coupon]"))
}

func TestCreateCheckoutSession_GatewayError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"resource_missing","message":"No such price"}}`))
	})

	_, err := client.CreateCheckoutSession(context.Background(), SessionParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")
}

func TestEnsureCoupon_AlreadyExistsIsSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/coupons", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"resource_already_exists","message":"Coupon already exists."}}`))
	})

	err := client.EnsureCoupon(context.Background(), "recommendation-addon", 20, "once")
	require.NoError(t, err)
}

func TestEnsureCoupon_Creates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "recommendation-addon", r.PostForm.Get("id"))
		assert.Equal(t, "20", r.PostForm.Get("percent_off"))
		assert.Equal(t, "once", r.PostForm.Get("duration"))
		_, _ = w.Write([]byte(`{"id":"recommendation-addon"}`))
	})

	require.NoError(t, client.EnsureCoupon(context.Background(), "recommendation-addon", 20, "once"))
}
