package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// CartHeader identifies the buyer's cart.
	CartHeader = "X-Cart-ID"
	// SellerHeader restricts order mutations to one seller's items.
	SellerHeader = "X-Seller-ID"

	maxBodyBytes = 1 << 20
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	evt := logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto a status code and response.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var (
		verr   *model.ValidationError
		invErr *model.InventoryError
		gwErr  *payment.GatewayError
		domErr *model.DomainError
	)

	switch {
	case errors.As(err, &verr):
		logger.Debug().Err(err).Msg("validation failed")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidationFailed,
			Message: err.Error(),
			Details: verr.Fields,
		})
	case errors.As(err, &invErr):
		logger.Info().Err(err).Msg("inventory unavailable")
		writeJSON(w, http.StatusConflict, model.ErrorResponse{
			Error:   model.ErrCodeInventoryUnavailable,
			Message: "Some items in your cart are no longer available",
			Details: invErr.Issues,
		})
	case errors.As(err, &gwErr):
		logger.Error().Err(err).Bool("retryable", gwErr.Retryable()).Msg("payment gateway error")
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error:   model.ErrCodePaymentGateway,
			Message: "Payment provider is unavailable, please try again",
			Details: map[string]any{"retryable": gwErr.Retryable()},
		})
	case errors.As(err, &domErr):
		writeError(w, domainStatus(domErr.Code), domErr.Code, domErr.Message, logger)
	default:
		logger.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		})
	}
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound, model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyPaid, model.ErrCodeReviewNotRequired:
		return http.StatusConflict
	case model.ErrCodeNotOrderSeller:
		return http.StatusForbidden
	case model.ErrCodeOrderNumberExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return err
	}
	return nil
}

// pathUUID parses a UUID path value.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format", name)
	}
	return id, nil
}

// sellerFromHeader returns the seller the caller acts for, if any.
func sellerFromHeader(r *http.Request) (*uuid.UUID, error) {
	raw := r.Header.Get(SellerHeader)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s header", SellerHeader)
	}
	return &id, nil
}
