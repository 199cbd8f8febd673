package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/lineaapp/linea/internal/render"
	"github.com/lineaapp/linea/internal/service/payment"
)

const maxWebhookSize = 64 << 10

type urlResponse struct {
	URL string `json:"url"`
}

// BillingHandler sells the premium plan. A nil provider answers 503.
type BillingHandler struct {
	paymentService payment.Provider
}

func NewBillingHandler(paymentService payment.Provider) *BillingHandler {
	return &BillingHandler{paymentService: paymentService}
}

func (h *BillingHandler) available(w http.ResponseWriter) bool {
	if h.paymentService == nil {
		render.Error(w, http.StatusServiceUnavailable, "payments are not available")
		return false
	}
	return true
}

func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	user, _ := session(r)

	var in struct {
		Interval string `json:"interval"`
	}
	err := render.Decode(w, r, &in)
	if err != nil {
		render.FromError(w, r, err)
		return
	}
	if in.Interval == "" {
		in.Interval = "monthly"
	}

	checkoutURL, err := h.paymentService.CreateCheckoutURL(user.ID, in.Interval, user.Email)
	if err != nil {
		render.FromError(w, r, err, render.Mapping{Err: payment.ErrNoPrice, Status: http.StatusBadRequest})
		return
	}

	slog.Info("checkout created", "user_id", user.ID, "provider", h.paymentService.Name(), "interval", in.Interval)
	render.OK(w, urlResponse{URL: checkoutURL})
}

func (h *BillingHandler) CustomerPortal(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	user, _ := session(r)

	portalURL, err := h.paymentService.CustomerPortalURL(user.ID)
	if err != nil {
		render.FromError(w, r, err, render.Mapping{Err: payment.ErrNoCustomer, Status: http.StatusNotFound})
		return
	}
	render.OK(w, urlResponse{URL: portalURL})
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookSize))
	if err != nil {
		slog.Warn("failed to read webhook payload", "error", err)
		render.Error(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	err = h.paymentService.HandleWebhook(payload, r.Header)
	if err != nil {
		if payment.IsInvalidPayload(err) {
			slog.Warn("rejected webhook", "error", err, "provider", h.paymentService.Name())
			render.Error(w, http.StatusBadRequest, "invalid payload")
			return
		}
		// 5xx makes the provider retry.
		render.FromError(w, r, err)
		return
	}

	render.OK(w, map[string]bool{"received": true})
}
