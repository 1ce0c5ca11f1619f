package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/checkout"
	"github.com/bridgebuilders/storefront/internal/domain/shipping"
)

// defaultItemWeightOz is the per-item weight estimate used when the cart did
// not carry one.
const defaultItemWeightOz = 12

// shipByLeadTime is added to the order date to compute the ship-by date.
// Calendar days, not business days: the source system framed this as a
// business-day estimate but always added 48 hours.
const shipByLeadTime = 48 * time.Hour

// Service builds warehouse orders from confirmed sessions and submits them.
type Service struct {
	warehouse Warehouse
	now       func() time.Time
}

// NewService creates a fulfillment Service. A nil warehouse marks the
// integration as unconfigured; processing then skips with a log line.
func NewService(warehouse Warehouse) *Service {
	return &Service{warehouse: warehouse, now: time.Now}
}

// Build maps a session, its cart, and the resolved address into a warehouse
// order. It returns nil when the cart holds no physical items: nothing to
// ship is not an error.
func (s *Service) Build(sess *checkout.Session, c cart.Cart, addr checkout.Address) *Order {
	physical := c.Physical()
	if len(physical) == 0 {
		return nil
	}

	items := make([]OrderItem, len(physical))
	for i, it := range physical {
		weight := it.WeightOz
		if weight <= 0 {
			weight = defaultItemWeightOz
		}
		items[i] = OrderItem{
			SKU:       it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Weight:    Weight{Value: weight, Units: "ounces"},
		}
	}

	now := s.now().UTC()
	shipBy := now.Add(shipByLeadTime)

	amountPaid := decimal.NewFromInt(sess.AmountTotal).Div(decimal.NewFromInt(100))

	shippingAmount := decimal.Zero
	if v := sess.Meta(checkout.MetaShipCost); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil {
			shippingAmount = parsed
		}
	}

	paymentRef := sess.PaymentIntent
	if paymentRef == "" {
		paymentRef = sess.ID
	}

	return &Order{
		OrderNumber:      sess.ID,
		OrderDate:        now,
		ShipByDate:       shipBy,
		OrderStatus:      "awaiting_shipment",
		CustomerEmail:    sess.CustomerDetails.Email,
		CustomerUsername: sess.CustomerDetails.Name,
		BillTo: Contact{
			Name:  sess.CustomerDetails.Name,
			Email: sess.CustomerDetails.Email,
		},
		ShipTo: Contact{
			Name:       addr.RecipientName(),
			Street1:    addr.Street1,
			Street2:    addr.Street2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Phone:      addr.Phone,
		},
		Items:                    items,
		AmountPaid:               amountPaid,
		ShippingAmount:           shippingAmount,
		TaxAmount:                decimal.Zero,
		RequestedShippingService: shipping.ServiceDisplayName(sess.Meta(checkout.MetaShipMethod)),
		InternalNotes: fmt.Sprintf("Payment %s; ship by %s",
			paymentRef, shipBy.Format("2006-01-02")),
	}
}

// Process builds and submits the warehouse order for a confirmed session.
// Pure-digital carts are skipped silently. A warehouse failure is logged
// with the full order context and returned for bookkeeping; callers must
// not treat it as fatal to the payment acknowledgment.
func (s *Service) Process(ctx context.Context, sess *checkout.Session, c cart.Cart, addr checkout.Address) error {
	lg := zctx.From(ctx)

	if s.warehouse == nil {
		lg.Info("warehouse integration not configured, skipping fulfillment",
			zap.String("session_id", sess.ID))
		return nil
	}

	o := s.Build(sess, c, addr)
	if o == nil {
		lg.Info("no physical products, skipping fulfillment",
			zap.String("session_id", sess.ID))
		return nil
	}

	if err := s.warehouse.CreateOrder(ctx, o); err != nil {
		lg.Error("warehouse order creation failed",
			zap.String("order_number", o.OrderNumber),
			zap.String("ship_to", o.ShipTo.Name),
			zap.Int("items", len(o.Items)),
			zap.String("amount_paid", o.AmountPaid.String()),
			zap.Error(err),
		)
		return errors.Wrap(err, "create warehouse order")
	}

	lg.Info("warehouse order created",
		zap.String("order_number", o.OrderNumber),
		zap.Int("items", len(o.Items)),
	)
	return nil
}
