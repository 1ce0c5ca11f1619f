package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bridgebuilders/storefront/internal/webhook"
)

// EventStore persists reconciliation records for processed confirmation
// events. It implements webhook.Recorder.
type EventStore struct {
	pool *pgxpool.Pool
}

var _ webhook.Recorder = (*EventStore)(nil)

// NewEventStore creates an EventStore backed by the pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// RecordEvent upserts the reconciliation row for one event. Redelivered
// events overwrite their previous row, so the table reflects the latest
// processing outcome per event id.
func (s *EventStore) RecordEvent(ctx context.Context, rec webhook.Record) error {
	const q = `
		INSERT INTO webhook_events (
			event_id, event_type, session_id, email, amount_total,
			fulfillment_error, marketing_error, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO UPDATE SET
			fulfillment_error = EXCLUDED.fulfillment_error,
			marketing_error   = EXCLUDED.marketing_error,
			received_at       = EXCLUDED.received_at`

	_, err := s.pool.Exec(ctx, q,
		rec.EventID, rec.EventType, rec.SessionID, rec.Email, rec.AmountTotal,
		rec.FulfillmentError, rec.MarketingError, rec.ReceivedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "record event %s", rec.EventID)
	}
	return nil
}

// FailedEvents returns the records whose fan-out left at least one leg
// failed, newest first. This is the reconciliation query an operator runs.
func (s *EventStore) FailedEvents(ctx context.Context, limit int) ([]webhook.Record, error) {
	const q = `
		SELECT event_id, event_type, session_id, email, amount_total,
		       fulfillment_error, marketing_error, received_at
		FROM webhook_events
		WHERE fulfillment_error <> '' OR marketing_error <> ''
		ORDER BY received_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query failed events")
	}
	defer rows.Close()

	var out []webhook.Record
	for rows.Next() {
		var rec webhook.Record
		if err := rows.Scan(
			&rec.EventID, &rec.EventType, &rec.SessionID, &rec.Email, &rec.AmountTotal,
			&rec.FulfillmentError, &rec.MarketingError, &rec.ReceivedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate event rows")
	}
	return out, nil
}
