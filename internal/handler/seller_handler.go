package handler

import (
	"net/http"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FeedServer upgrades a request into a live seller feed.
type FeedServer interface {
	Serve(w http.ResponseWriter, r *http.Request, sellerID uuid.UUID) error
}

// SellerHandler serves the seller new-order websocket feed.
type SellerHandler struct {
	feed   FeedServer
	logger zerolog.Logger
}

// NewSellerHandler creates a new seller handler.
func NewSellerHandler(feed FeedServer, logger zerolog.Logger) *SellerHandler {
	return &SellerHandler{
		feed:   feed,
		logger: logger.With().Str("handler", "seller").Logger(),
	}
}

// Feed handles GET /api/sellers/{id}/feed.
func (h *SellerHandler) Feed(w http.ResponseWriter, r *http.Request) {
	sellerID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, err.Error(), h.logger)
		return
	}

	// The upgrader has already written a response when Serve fails.
	if err := h.feed.Serve(w, r, sellerID); err != nil {
		h.logger.Warn().Err(err).Str("seller_id", sellerID.String()).Msg("feed connection failed")
	}
}
