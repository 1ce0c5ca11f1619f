package webhook

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/checkout"
	"github.com/bridgebuilders/storefront/internal/domain/fulfillment"
	"github.com/bridgebuilders/storefront/internal/domain/marketing"
)

// Record is the reconciliation row written after each processed event. It is
// what a human consults when a fan-out leg failed after the payment was
// already acknowledged.
type Record struct {
	EventID          string
	EventType        string
	SessionID        string
	Email            string
	AmountTotal      decimal.Decimal
	FulfillmentError string
	MarketingError   string
	ReceivedAt       time.Time
}

// Recorder persists reconciliation records. Optional; a nil Recorder
// disables bookkeeping.
type Recorder interface {
	RecordEvent(ctx context.Context, rec Record) error
}

// Dispatcher processes confirmation events: resolve the address, then fan
// out to fulfillment and marketing sync. The two legs run concurrently,
// each capturing its own failure; neither can cancel or fail the other, and
// neither gates the acknowledgment.
type Dispatcher struct {
	fulfillment *fulfillment.Service
	marketing   *marketing.Engine
	events      Recorder
	now         func() time.Time
}

// NewDispatcher wires the dispatcher's downstream services.
func NewDispatcher(f *fulfillment.Service, m *marketing.Engine, events Recorder) *Dispatcher {
	return &Dispatcher{fulfillment: f, marketing: m, events: events, now: time.Now}
}

// Dispatch handles one parsed event. It never returns an error: by the time
// an event parses, the payment has succeeded and the gateway must be
// acknowledged regardless of downstream outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) {
	lg := zctx.From(ctx)

	if ev.Type != EventCheckoutCompleted {
		lg.Debug("ignoring event", zap.String("type", ev.Type))
		return
	}

	sess, err := ev.Session()
	if err != nil {
		// The envelope parsed but the payload is not a session. There is
		// nothing to fan out; acknowledging avoids a retry storm over a
		// body that will never parse differently.
		lg.Error("confirmation event payload is not a session",
			zap.String("event_id", ev.ID), zap.Error(err))
		return
	}

	c, err := cart.Decode([]byte(sess.Meta(checkout.MetaCart)))
	if err != nil {
		lg.Error("session metadata cart is unreadable, proceeding with empty cart",
			zap.String("session_id", sess.ID), zap.Error(err))
		c = nil
	}

	addr := checkout.ResolveAddress(sess)

	lg.Info("processing confirmed payment",
		zap.String("event_id", ev.ID),
		zap.String("session_id", sess.ID),
		zap.Int("items", len(c)),
		zap.Bool("gift", addr.IsGift),
	)

	var fulfillErr, marketErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fulfillErr = d.fulfillment.Process(gctx, sess, c, addr)
		return nil
	})
	g.Go(func() error {
		marketErr = d.marketing.Sync(gctx, marketing.SyncInput{
			Email:   sess.CustomerDetails.Email,
			Name:    sess.CustomerDetails.Name,
			Cart:    c,
			Address: addr,
			IsGift:  addr.IsGift,
		})
		return nil
	})
	// Both goroutines always return nil; Wait only joins them.
	_ = g.Wait()

	d.record(ctx, ev, sess, fulfillErr, marketErr)
}

func (d *Dispatcher) record(ctx context.Context, ev *Event, sess *checkout.Session, fulfillErr, marketErr error) {
	lg := zctx.From(ctx)

	if fulfillErr != nil || marketErr != nil {
		lg.Warn("fan-out completed with failures, payment still acknowledged",
			zap.String("session_id", sess.ID),
			zap.NamedError("fulfillment", fulfillErr),
			zap.NamedError("marketing", marketErr),
		)
	}

	if d.events == nil {
		return
	}

	rec := Record{
		EventID:     ev.ID,
		EventType:   ev.Type,
		SessionID:   sess.ID,
		Email:       sess.CustomerDetails.Email,
		AmountTotal: decimal.NewFromInt(sess.AmountTotal).Div(decimal.NewFromInt(100)),
		ReceivedAt:  d.now().UTC(),
	}
	if fulfillErr != nil {
		rec.FulfillmentError = fulfillErr.Error()
	}
	if marketErr != nil {
		rec.MarketingError = marketErr.Error()
	}

	if err := d.events.RecordEvent(ctx, rec); err != nil {
		lg.Error("failed to write reconciliation record",
			zap.String("event_id", ev.ID), zap.Error(err))
	}
}
