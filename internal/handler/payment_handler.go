package handler

import (
	"errors"
	"io"
	"net/http"

	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"
	"kart-checkout/internal/service"

	"github.com/rs/zerolog"
)

// PaymentStatusResponse is returned by the webhook and the status endpoint.
type PaymentStatusResponse struct {
	Status      model.Outcome `json:"status"`
	OrderID     string        `json:"order_id,omitempty"`
	OrderNumber string        `json:"order_number,omitempty"`
}

// PaymentHandler handles the gateway callbacks: browser return, webhook
// and status polling. All three funnel into the same reconciler.
type PaymentHandler struct {
	reconciler service.Reconciler
	redirects  Redirects
	logger     zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(reconciler service.Reconciler, redirects Redirects, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		redirects:  redirects,
		logger:     logger.With().Str("handler", "payment").Logger(),
	}
}

// Return handles GET|POST /payment/return?order_id=.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("order_id")
	if ref == "" && r.Method == http.MethodPost {
		ref = r.PostFormValue("order_id")
	}
	if ref == "" {
		http.Redirect(w, r, h.redirects.Expired, http.StatusSeeOther)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), ref, model.SourceReturn)
	if err != nil {
		h.writeUnavailable(w, err)
		return
	}

	http.Redirect(w, r, h.returnTarget(result), http.StatusSeeOther)
}

func (h *PaymentHandler) returnTarget(result *model.ReconcileResult) string {
	switch result.Outcome {
	case model.OutcomeMaterialized, model.OutcomeShortfall:
		return withQuery(h.redirects.Confirmation, "order_number", result.Order.OrderNumber)
	case model.OutcomeAlreadyProcessed:
		if result.Order != nil {
			return withQuery(h.redirects.Confirmation, "order_number", result.Order.OrderNumber)
		}
		return h.redirects.Expired
	case model.OutcomeProcessing:
		return withQuery(h.redirects.Processing, "order_id", result.Ref)
	case model.OutcomeExpired:
		return h.redirects.Expired
	default:
		return h.redirects.Failure
	}
}

// Webhook handles POST /payment/webhook. Only the order reference is taken
// from the body; the decision comes from verifying with the gateway.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "unreadable webhook body", h.logger)
		return
	}

	ref, err := payment.ParseWebhook(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, err.Error(), h.logger)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), ref, model.SourceWebhook)
	if err != nil {
		h.writeUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse(result))
}

// Status handles GET /payment/status?ref=.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		ref = r.URL.Query().Get("order_id")
	}

	result, err := h.reconciler.Reconcile(r.Context(), ref, model.SourcePoll)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse(result))
}

// writeUnavailable answers callbacks with 503 so the gateway and browser
// retry later; the pending order is still in place.
func (h *PaymentHandler) writeUnavailable(w http.ResponseWriter, err error) {
	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		writeError(w, http.StatusServiceUnavailable, model.ErrCodePaymentGateway, "payment verification unavailable", h.logger)
		return
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeServiceError(w, err, h.logger)
		return
	}
	h.logger.Error().Err(err).Msg("reconciliation failed")
	writeError(w, http.StatusServiceUnavailable, model.ErrCodeInternalError, "payment could not be processed, retry later", h.logger)
}

func statusResponse(result *model.ReconcileResult) PaymentStatusResponse {
	resp := PaymentStatusResponse{Status: result.Outcome}
	if result.Order != nil {
		resp.OrderID = result.Order.ID.String()
		resp.OrderNumber = result.Order.OrderNumber
	}
	return resp
}
