// Package webhook receives payment-confirmation events and fans them out to
// the warehouse and marketing systems. The acknowledgment to the gateway is
// never gated on fan-out success: only a malformed event body is rejected.
package webhook

import (
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/bridgebuilders/storefront/internal/domain/checkout"
)

// EventCheckoutCompleted is the only event type that triggers fan-out.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is the gateway's signed event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ErrMalformedEvent marks an unparseable or shapeless event body. It is the
// only condition that produces a non-success acknowledgment, and therefore
// the only one the gateway will redeliver.
var ErrMalformedEvent = errors.New("malformed event")

// ParseEvent decodes and shape-checks an event body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	if ev.Type == "" {
		return nil, errors.Wrap(ErrMalformedEvent, "missing event type")
	}
	return &ev, nil
}

// Session decodes the event payload as a checkout session.
func (e *Event) Session() (*checkout.Session, error) {
	var s checkout.Session
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	return &s, nil
}
