package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/domain/cart"
	"github.com/bridgebuilders/storefront/internal/domain/shipping"
)

type ratesRequest struct {
	Cart    []cart.Item `json:"cart"`
	Address struct {
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
		Country string `json:"country"`
	} `json:"address"`
}

// getShippingRates quotes shipping options for a cart and destination. A
// failed quote yields 500 with an empty rates array so the storefront can
// still render the shipping step.
func (h *Handler) getShippingRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRatesError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Cart) == 0 {
		writeRatesError(w, http.StatusBadRequest, "cart is required")
		return
	}

	c := cart.Cart(req.Cart).Normalize()
	dest := shipping.Destination{
		City:       req.Address.City,
		State:      req.Address.State,
		PostalCode: req.Address.Zip,
		Country:    req.Address.Country,
	}
	if dest.Country == "" {
		dest.Country = "US"
	}

	rates, err := h.rates.Quote(ctx, c, dest, c.Subtotal())
	if err != nil {
		zctx.From(ctx).Error("rate quote failed", zap.Error(err))
		writeRatesError(w, http.StatusInternalServerError, "failed to fetch shipping rates")
		return
	}

	payload, err := json.Marshal(rates)
	if err != nil {
		writeRatesError(w, http.StatusInternalServerError, "failed to encode rates")
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("rates", func(e *jx.Encoder) { e.Raw(payload) })
	})
	writeRaw(w, http.StatusOK, &e)
}

// writeRatesError responds with {"error": msg, "rates": []}: the error
// contract always carries an empty rate list.
func writeRatesError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("rates", func(e *jx.Encoder) { e.Arr(func(*jx.Encoder) {}) })
	})
	writeRaw(w, status, &e)
}
