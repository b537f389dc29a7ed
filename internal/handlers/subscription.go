package handlers

import (
	"io"
	"net/http"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/service"
)

// maxWebhookBody caps Stripe webhook payloads.
const maxWebhookBody = 64 << 10

// SubscriptionHandler serves the /subscription routes.
type SubscriptionHandler struct {
	svc *service.SubscriptionService
}

func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	status, err := h.svc.GetStatus(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *SubscriptionHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Pricing())
}

func normalizeCycle(cycle string) string {
	if cycle == models.CycleAnnual {
		return models.CycleAnnual
	}
	return models.CycleMonthly
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var in service.SubscribeInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.BillingCycle = normalizeCycle(in.BillingCycle)

	if !in.Trial && in.PaymentMethodID == "" {
		respondError(w, http.StatusBadRequest, "A payment method is required to subscribe")
		return
	}

	status, err := h.svc.Subscribe(r.Context(), userID, in)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	status, err := h.svc.Unsubscribe(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *SubscriptionHandler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var req struct {
		PaymentMethodID string `json:"payment_method_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.PaymentMethodID == "" {
		respondError(w, http.StatusBadRequest, "payment_method_id is required")
		return
	}

	pm, err := h.svc.UpdatePaymentMethod(r.Context(), userID, req.PaymentMethodID)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, pm)
}

func (h *SubscriptionHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	entries, err := h.svc.PaymentHistory(r.Context(), userID, 24)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"payments": entries})
}

func (h *SubscriptionHandler) ChangeBillingCycle(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var req struct {
		BillingCycle string `json:"billing_cycle"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BillingCycle != models.CycleMonthly && req.BillingCycle != models.CycleAnnual {
		respondError(w, http.StatusBadRequest, "billing_cycle must be monthly or annual")
		return
	}

	status, err := h.svc.ChangeBillingCycle(r.Context(), userID, req.BillingCycle)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *SubscriptionHandler) ApplyPromoCode(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	status, err := h.svc.ApplyPromoCode(r.Context(), userID, req.Code)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *SubscriptionHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var req struct {
		BillingCycle    string `json:"billing_cycle"`
		PromotionalCode string `json:"promotional_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checkout, err := h.svc.CreateCheckout(r.Context(), userID, normalizeCycle(req.BillingCycle), req.PromotionalCode)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, checkout)
}

func (h *SubscriptionHandler) TrialNotification(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	notification, err := h.svc.GetTrialNotification(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "No subscription found")
		return
	}

	respondJSON(w, http.StatusOK, notification)
}

// Webhook receives Stripe events. The raw body is needed for signature
// verification, so this route must not share the JSON middleware.
func (h *SubscriptionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	eventType, err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Webhook verification failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": eventType})
}
