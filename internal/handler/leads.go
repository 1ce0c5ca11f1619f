package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/client/mailchannels"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// sendContactEmail relays a contact-form submission to the configured inbox.
func (h *Handler) sendContactEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		writeFailure(w, http.StatusBadRequest, "name, email and message are required")
		return
	}

	if h.email == nil {
		zctx.From(ctx).Info("email relay not configured, skipping contact email")
		writeSuccess(w)
		return
	}

	msg := mailchannels.Message{
		Subject: fmt.Sprintf("New contact form message from %s", req.Name),
		ReplyTo: req.Email,
		Body:    fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message),
	}
	if err := h.email.Send(ctx, msg); err != nil {
		zctx.From(ctx).Error("contact email relay failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	writeSuccess(w)
}

type leadRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// addMailchimpLead upserts a lead-form subscriber on the marketing list.
func (h *Handler) addMailchimpLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req leadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeFailure(w, http.StatusBadRequest, "email is required")
		return
	}

	if h.leads == nil {
		zctx.From(ctx).Info("marketing list not configured, skipping lead")
		writeSuccess(w)
		return
	}

	if err := h.leads.AddLead(ctx, req.Email, req.FirstName); err != nil {
		zctx.From(ctx).Error("lead upsert failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "failed to add subscriber")
		return
	}
	writeSuccess(w)
}

type bookingRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// sendBookingRequest relays a speaking/booking request to the configured
// inbox.
func (h *Handler) sendBookingRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Date == "" {
		writeFailure(w, http.StatusBadRequest, "name, email and date are required")
		return
	}

	if h.email == nil {
		zctx.From(ctx).Info("email relay not configured, skipping booking request")
		writeSuccess(w)
		return
	}

	msg := mailchannels.Message{
		Subject: fmt.Sprintf("New booking request from %s", req.Name),
		ReplyTo: req.Email,
		Body: fmt.Sprintf("From: %s <%s>\nRequested date: %s\n\n%s",
			req.Name, req.Email, req.Date, req.Message),
	}
	if err := h.email.Send(ctx, msg); err != nil {
		zctx.From(ctx).Error("booking request relay failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "failed to send booking request")
		return
	}
	writeSuccess(w)
}
