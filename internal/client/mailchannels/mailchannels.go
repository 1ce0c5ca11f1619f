// Package mailchannels sends transactional email through the MailChannels
// send API. It backs the contact-form and booking-request relays.
package mailchannels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

const defaultBaseURL = "https://api.mailchannels.net"

// Config holds sender identity and transport settings.
type Config struct {
	// FromAddress is the envelope sender. Sending is disabled when empty.
	FromAddress string
	FromName    string
	// ToAddress is the inbox that receives relayed form submissions.
	ToAddress string
	// BaseURL overrides the production endpoint; used by tests.
	BaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Configured reports whether the relay can send.
func (c Config) Configured() bool {
	return c.FromAddress != "" && c.ToAddress != ""
}

// APIError is a non-2xx response from the send API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailchannels: status %d: %s", e.Status, e.Body)
}

// Message is one outbound email.
type Message struct {
	Subject string
	// ReplyTo carries the form submitter's address so a reply from the
	// inbox goes straight back to them.
	ReplyTo string
	Body    string
}

// Client sends email through the relay.
type Client struct {
	http     *http.Client
	baseURL  string
	from     address
	fromName string
	to       string
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendBody struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// New creates a Client from config.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		from:    address{Email: cfg.FromAddress, Name: cfg.FromName},
		to:      cfg.ToAddress,
	}
}

// Send relays one message to the configured inbox.
func (c *Client) Send(ctx context.Context, m Message) error {
	body := sendBody{
		Personalizations: []personalization{{To: []address{{Email: c.to}}}},
		From:             c.from,
		Subject:          m.Subject,
		Content:          []content{{Type: "text/plain", Value: m.Body}},
	}
	if m.ReplyTo != "" {
		body.ReplyTo = &address{Email: m.ReplyTo}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tx/v1/send", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
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
