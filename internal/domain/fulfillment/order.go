// Package fulfillment turns a confirmed payment session into a warehouse
// order and dispatches it to the warehouse system.
package fulfillment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the warehouse order record. The order number equals the payment
// session id and acts as the natural idempotency key with the warehouse
// system: a redelivered confirmation event rebuilds the same order.
type Order struct {
	OrderNumber              string          `json:"orderNumber"`
	OrderDate                time.Time       `json:"orderDate"`
	ShipByDate               time.Time       `json:"shipByDate"`
	OrderStatus              string          `json:"orderStatus"`
	CustomerEmail            string          `json:"customerEmail"`
	CustomerUsername         string          `json:"customerUsername"`
	BillTo                   Contact         `json:"billTo"`
	ShipTo                   Contact         `json:"shipTo"`
	Items                    []OrderItem     `json:"items"`
	AmountPaid               decimal.Decimal `json:"amountPaid"`
	ShippingAmount           decimal.Decimal `json:"shippingAmount"`
	TaxAmount                decimal.Decimal `json:"taxAmount"`
	RequestedShippingService string          `json:"requestedShippingService,omitempty"`
	CustomerNotes            string          `json:"customerNotes,omitempty"`
	InternalNotes            string          `json:"internalNotes,omitempty"`
}

// Contact is a bill-to or ship-to snapshot.
type Contact struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is a shippable line item with its per-item weight.
type OrderItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Weight    Weight          `json:"weight"`
}

// Weight is a carrier weight value.
type Weight struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Warehouse creates orders in the external warehouse system.
type Warehouse interface {
	CreateOrder(ctx context.Context, o *Order) error
}
