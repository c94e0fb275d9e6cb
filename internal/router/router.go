package router

import (
	"net/http"

	"kart-checkout/internal/handler"
	"kart-checkout/internal/metrics"
	"kart-checkout/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Payment  *handler.PaymentHandler
	Order    *handler.OrderHandler
	Seller   *handler.SellerHandler
}

// Config holds the secrets the router's guards check against.
type Config struct {
	APIKey        string
	WebhookSecret string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, m *metrics.Metrics, cfg Config, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.APIKeyAuth(cfg.APIKey, logger)
	protected := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.Handle("GET /metrics", m.Handler())

	// Buyer routes
	mux.HandleFunc("GET /api/products", h.Product.List)
	mux.HandleFunc("GET /api/products/{id}", h.Product.GetByID)
	mux.HandleFunc("GET /api/cart", h.Cart.View)
	mux.HandleFunc("POST /api/cart/items", h.Cart.Add)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.Cart.Remove)
	mux.HandleFunc("POST /checkout", h.Checkout.Checkout)

	// Gateway callbacks
	mux.HandleFunc("GET /payment/return", h.Payment.Return)
	mux.HandleFunc("POST /payment/return", h.Payment.Return)
	mux.Handle("POST /payment/webhook",
		middleware.WebhookSignature(cfg.WebhookSecret, logger)(http.HandlerFunc(h.Payment.Webhook)))
	mux.HandleFunc("GET /payment/status", h.Payment.Status)

	// Seller routes
	mux.Handle("GET /api/orders/{id}", protected(h.Order.GetByID))
	mux.Handle("PUT /api/orders/{id}/items/{itemID}/status", protected(h.Order.UpdateItemStatus))
	mux.Handle("POST /api/orders/{id}/cancel", protected(h.Order.Cancel))
	mux.Handle("POST /api/orders/{id}/mark-paid", protected(h.Order.MarkPaid))
	mux.Handle("GET /api/sellers/{id}/feed", protected(h.Seller.Feed))

	// Apply middleware in order: Recovery -> Logging -> CORS -> Metrics.
	// Metrics sits directly on the mux so it can read the matched pattern.
	var handler http.Handler = mux
	handler = m.Middleware(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
