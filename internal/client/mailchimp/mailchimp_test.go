package mailchimp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bridgebuilders/storefront/internal/domain/marketing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "mc_key", ListID: "list1", BaseURL: srv.URL})
}

func TestUpsertMember(t *testing.T) {
	key := marketing.SubscriberKey("buyer@example.com")

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/lists/list1/members/"+key, r.URL.Path)
		assert.Equal(t, "Bearer mc_key", r.Header.Get("Authorization"))

		var body memberBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buyer@example.com", body.EmailAddress)
		assert.Equal(t, "subscribed", body.StatusIfNew)
		assert.Equal(t, "Alice", body.MergeFields["FNAME"])
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.UpsertMember(context.Background(), key, marketing.Member{
		EmailAddress: "buyer@example.com",
		MergeFields:  map[string]string{"FNAME": "Alice"},
	})
	require.NoError(t, err)
}

func TestAddTags(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body tagsBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Tags, 2)
		assert.Equal(t, "Purchased-Customer", body.Tags[0].Name)
		assert.Equal(t, "active", body.Tags[0].Status)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.AddTags(context.Background(), "abc123", []string{"Purchased-Customer", "10-Day-Prayer-Guide"})
	require.NoError(t, err)
}

func TestUpsertMember_ErrorSurfaced(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Invalid Resource"}`))
	})

	err := client.UpsertMember(context.Background(), "abc", marketing.Member{EmailAddress: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Resource")
}

func TestAddLead(t *testing.T) {
	var paths []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.AddLead(context.Background(), "lead@example.com", "Lee")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Contains(t, paths[1], "/tags")
}
