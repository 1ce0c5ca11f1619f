// Package mailchimp is the marketing-list client. Members are addressed by
// the MD5 subscriber hash, which makes every write an idempotent upsert.
package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/bridgebuilders/storefront/internal/domain/marketing"
)

// TagWebsiteLead marks subscribers captured through the lead form rather
// than a purchase.
const TagWebsiteLead = "Website-Lead"

// Config holds the list credentials.
type Config struct {
	APIKey       string
	ServerPrefix string
	ListID       string
	// BaseURL overrides the production endpoint; used by tests.
	BaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Configured reports whether the marketing-list integration is usable.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.ServerPrefix != "" && c.ListID != ""
}

// APIError is a non-2xx response from the list system.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailchimp: status %d: %s", e.Status, e.Body)
}

// Client talks to the marketing-list API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	listID  string
}

var _ marketing.ListClient = (*Client)(nil)

// New creates a Client from config.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", cfg.ServerPrefix)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		listID:  cfg.ListID,
	}
}

type memberBody struct {
	EmailAddress string            `json:"email_address"`
	StatusIfNew  string            `json:"status_if_new"`
	MergeFields  map[string]string `json:"merge_fields,omitempty"`
}

// UpsertMember creates or updates the subscriber addressed by its hash.
func (c *Client) UpsertMember(ctx context.Context, subscriberKey string, m marketing.Member) error {
	path := fmt.Sprintf("/lists/%s/members/%s", c.listID, subscriberKey)
	body := memberBody{
		EmailAddress: m.EmailAddress,
		StatusIfNew:  "subscribed",
		MergeFields:  m.MergeFields,
	}
	if err := c.do(ctx, http.MethodPut, path, body); err != nil {
		return errors.Wrap(err, "upsert member")
	}
	return nil
}

type tagsBody struct {
	Tags []tagBody `json:"tags"`
}

type tagBody struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// AddTags activates the given tags on the subscriber.
func (c *Client) AddTags(ctx context.Context, subscriberKey string, tags []string) error {
	path := fmt.Sprintf("/lists/%s/members/%s/tags", c.listID, subscriberKey)
	body := tagsBody{Tags: make([]tagBody, len(tags))}
	for i, tag := range tags {
		body.Tags[i] = tagBody{Name: tag, Status: "active"}
	}
	if err := c.do(ctx, http.MethodPost, path, body); err != nil {
		return errors.Wrap(err, "add tags")
	}
	return nil
}

// AddLead upserts a lead-form subscriber and tags it as a website lead.
func (c *Client) AddLead(ctx context.Context, email, firstName string) error {
	key := marketing.SubscriberKey(email)
	m := marketing.Member{
		EmailAddress: email,
		MergeFields:  map[string]string{"FNAME": firstName},
	}
	if err := c.UpsertMember(ctx, key, m); err != nil {
		return err
	}
	return c.AddTags(ctx, key, []string{TagWebsiteLead})
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}
