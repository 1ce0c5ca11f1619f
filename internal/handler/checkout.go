package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/client/stripe"
	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/checkout"
)

type checkoutRequest struct {
	Cart              []cart.Item     `json:"cart"`
	Email             string          `json:"email"`
	ShippingRate      *rateSelection  `json:"shippingRate"`
	ShippingAddress   *addressPayload `json:"shippingAddress"`
	IsGift            bool            `json:"isGift"`
	GiftRecipientName string          `json:"giftRecipientName"`
}

type rateSelection struct {
	ServiceName  string          `json:"serviceName"`
	ServiceCode  string          `json:"serviceCode"`
	ShipmentCost decimal.Decimal `json:"shipmentCost"`
}

type addressPayload struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// createCheckoutSession builds a payment session: catalog price lookup,
// cart and shipping selection smuggled through session metadata, the chosen
// rate attached as a fixed-amount shipping option, and the add-on discount
// ensured when the cart carries a recommendation item.
func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	if h.gateway == nil {
		writeError(w, http.StatusInternalServerError, "payment gateway is not configured")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "cart is required")
		return
	}

	c := cart.Cart(req.Cart).Normalize()

	lineItems := make([]stripe.LineItem, 0, len(c))
	for _, it := range c {
		priceID, err := h.catalog.PriceID(it.ID)
		if err != nil {
			lg.Error("price lookup failed", zap.String("item_id", it.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "unknown product in cart")
			return
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineItems = append(lineItems, stripe.LineItem{PriceID: priceID, Quantity: qty})
	}

	meta, err := sessionMetadata(c, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode cart")
		return
	}

	params := stripe.SessionParams{
		LineItems:     lineItems,
		Metadata:      meta,
		SuccessURL:    h.cfg.SuccessURL,
		CancelURL:     h.cfg.CancelURL,
		CustomerEmail: req.Email,
		CollectPhone:  true,
	}

	hasPhysical := len(c.Physical()) > 0

	// The gateway collects the address only when the cart form did not.
	if hasPhysical && req.ShippingAddress == nil {
		params.AllowedCountries = []string{"US", "CA"}
	}
	if hasPhysical && req.ShippingRate != nil {
		cents := req.ShippingRate.ShipmentCost.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		params.Shipping = &stripe.ShippingOption{
			DisplayName: req.ShippingRate.ServiceName,
			AmountCents: cents,
		}
	}

	if c.HasRecommendation() && h.cfg.CouponID != "" {
		if err := h.gateway.EnsureCoupon(ctx, h.cfg.CouponID, h.cfg.CouponPercentOff, "once"); err != nil {
			lg.Error("coupon ensure failed", zap.String("coupon", h.cfg.CouponID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to prepare discount")
			return
		}
		params.CouponID = h.cfg.CouponID
	}

	sessionID, err := h.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		lg.Error("checkout session creation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("sessionId", func(e *jx.Encoder) { e.Str(sessionID) })
	})
	writeRaw(w, http.StatusOK, &e)
}

// sessionMetadata flattens the cart and shipping selection into the string
// map that survives to the confirmation event.
func sessionMetadata(c cart.Cart, req checkoutRequest) (map[string]string, error) {
	encoded, err := c.Encode()
	if err != nil {
		return nil, err
	}

	meta := map[string]string{checkout.MetaCart: string(encoded)}
	if req.ShippingRate != nil {
		meta[checkout.MetaShipMethod] = req.ShippingRate.ServiceCode
		meta[checkout.MetaShipCost] = req.ShippingRate.ShipmentCost.String()
	}
	if a := req.ShippingAddress; a != nil {
		meta[checkout.MetaShipName] = a.Name
		meta[checkout.MetaShipStreet1] = a.Street1
		meta[checkout.MetaShipStreet2] = a.Street2
		meta[checkout.MetaShipCity] = a.City
		meta[checkout.MetaShipState] = a.State
		meta[checkout.MetaShipZip] = a.Zip
		meta[checkout.MetaShipCountry] = a.Country
		meta[checkout.MetaShipPhone] = a.Phone
	}
	if req.IsGift {
		meta[checkout.MetaIsGift] = "true"
		meta[checkout.MetaGiftRecipient] = req.GiftRecipientName
	}
	return meta, nil
}
