package handler

import (
	"net/http"
	"net/url"
	"strings"

	"kart-checkout/internal/model"
	"kart-checkout/internal/service"

	"github.com/rs/zerolog"
)

// Redirects holds the pages the browser is sent to after checkout and
// payment return.
type Redirects struct {
	Confirmation string
	Processing   string
	Failure      string
	Expired      string
}

// withQuery appends key=value to a redirect target.
func withQuery(target, key, value string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// CheckoutHandler handles checkout submissions.
type CheckoutHandler struct {
	service   service.CheckoutService
	redirects Redirects
	logger    zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, redirects Redirects, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		redirects: redirects,
		logger:    logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /checkout. JSON clients receive the result as JSON;
// HTML form submissions are answered with a 303 to the gateway page (online)
// or to the confirmation page (cod).
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	form := isForm(r)

	var req model.CheckoutRequest
	if form {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid form body", h.logger)
			return
		}
		req = checkoutFromForm(r.PostForm)
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), r.Header.Get(CartHeader), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if !form {
		writeJSON(w, http.StatusCreated, result)
		return
	}

	target := h.redirects.Confirmation
	switch {
	case result.Session != nil:
		target = result.Session.RedirectURL
	case result.Order != nil:
		target = withQuery(target, "order_number", result.Order.OrderNumber)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

func checkoutFromForm(v url.Values) model.CheckoutRequest {
	return model.CheckoutRequest{
		Customer: model.Customer{
			FirstName: v.Get("first_name"),
			LastName:  v.Get("last_name"),
			Email:     v.Get("email"),
			Phone:     v.Get("phone"),
			Address:   v.Get("address"),
			Address2:  v.Get("address2"),
			City:      v.Get("city"),
			State:     v.Get("state"),
			Zipcode:   v.Get("zipcode"),
			Country:   v.Get("country"),
		},
		PaymentMethod: model.PaymentMethod(v.Get("payment_method")),
	}
}
