package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/webhook"
)

const maxEventBody = 1 << 20

// handleWebhook receives payment-confirmation events. The gateway is always
// acknowledged with 200 once the body parses; only an unreadable or
// malformed event (or a failed signature check) gets 400, which is the only
// path that triggers redelivery.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable event body")
		return
	}

	if h.cfg.WebhookSecret != "" {
		err := webhook.VerifySignature(body, r.Header.Get("Stripe-Signature"),
			h.cfg.WebhookSecret, h.cfg.SignatureTolerance, h.now())
		if err != nil {
			zctx.From(ctx).Warn("event signature rejected", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
	}

	ev, err := webhook.ParseEvent(body)
	if err != nil {
		zctx.From(ctx).Warn("malformed event", zap.Error(err))
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	h.dispatcher.Dispatch(ctx, ev)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("received", func(e *jx.Encoder) { e.Bool(true) })
	})
	writeRaw(w, http.StatusOK, &e)
}
