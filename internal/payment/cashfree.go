package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"kart-checkout/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Observer receives the outcome and latency of every gateway call.
type Observer interface {
	ObserveGatewayCall(op, outcome string, elapsed time.Duration)
}

// Cashfree is a Gateway backed by the Cashfree PG REST API.
type Cashfree struct {
	client      *resty.Client
	cfg         config.GatewayConfig
	observer    Observer
	logger      zerolog.Logger
	checkoutURL string
}

// Option configures a Cashfree client.
type Option func(*Cashfree)

// WithObserver reports call metrics to o.
func WithObserver(o Observer) Option {
	return func(c *Cashfree) { c.observer = o }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cashfree) { c.client = resty.NewWithClient(hc) }
}

// NewCashfree creates a Cashfree gateway client.
func NewCashfree(cfg config.GatewayConfig, logger zerolog.Logger, opts ...Option) *Cashfree {
	c := &Cashfree{
		client:      resty.New(),
		cfg:         cfg,
		logger:      logger.With().Str("component", "cashfree").Logger(),
		checkoutURL: cfg.CheckoutURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeaders(map[string]string{
			"x-client-id":     cfg.AppID,
			"x-client-secret": cfg.SecretKey,
			"x-api-version":   cfg.APIVersion,
			"Content-Type":    "application/json",
			"Accept":          "application/json",
		})

	c.logger.Info().Str("env", cfg.Environment).Msg("cashfree gateway initialised")

	return c
}

type cfCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cfOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cfCreateOrder struct {
	OrderID         string      `json:"order_id"`
	OrderAmount     float64     `json:"order_amount"`
	OrderCurrency   string      `json:"order_currency"`
	CustomerDetails cfCustomer  `json:"customer_details"`
	OrderMeta       cfOrderMeta `json:"order_meta"`
	OrderExpiryTime string      `json:"order_expiry_time,omitempty"`
}

type cfOrder struct {
	CfOrderID        any             `json:"cf_order_id"`
	OrderID          string          `json:"order_id"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	OrderStatus      string          `json:"order_status"`
	PaymentSessionID string          `json:"payment_session_id"`
}

type cfRefundRequest struct {
	RefundAmount float64 `json:"refund_amount"`
	RefundID     string  `json:"refund_id"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

type cfRefund struct {
	RefundID     string `json:"refund_id"`
	RefundStatus string `json:"refund_status"`
}

type cfError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateSession registers the order and returns its payment session.
func (c *Cashfree) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	const op = "create_session"

	body := cfCreateOrder{
		OrderID:       req.OrderRef,
		OrderAmount:   req.Amount.InexactFloat64(),
		OrderCurrency: req.Currency,
		CustomerDetails: cfCustomer{
			CustomerID:    req.CustomerID,
			CustomerName:  req.Customer.FullName(),
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: cfOrderMeta{
			ReturnURL: c.cfg.ReturnURL,
			NotifyURL: c.cfg.NotifyURL,
		},
	}
	if !req.ExpiresAt.IsZero() {
		body.OrderExpiryTime = req.ExpiresAt.UTC().Format(time.RFC3339)
	}

	var out cfOrder
	var apiErr cfError
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/pg/orders")
	if gwErr := c.classify(op, resp, err, &apiErr, start); gwErr != nil {
		c.logger.Error().Err(gwErr).Str("payment_ref", req.OrderRef).Msg("gateway order creation failed")
		return nil, gwErr
	}

	if out.PaymentSessionID == "" {
		return nil, &GatewayError{Op: op, Kind: KindMalformed, Message: "missing payment_session_id"}
	}

	c.logger.Info().
		Str("payment_ref", req.OrderRef).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("gateway order created")

	return &Session{
		SessionID:      out.PaymentSessionID,
		GatewayOrderID: fmt.Sprint(out.CfOrderID),
		RedirectURL:    c.checkoutURL + out.PaymentSessionID,
	}, nil
}

// Verify fetches the order's authoritative status.
func (c *Cashfree) Verify(ctx context.Context, orderRef string) (*Verification, error) {
	const op = "verify"

	var out cfOrder
	var apiErr cfError
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("orderID", orderRef).
		SetResult(&out).
		SetError(&apiErr).
		Get("/pg/orders/{orderID}")
	if gwErr := c.classify(op, resp, err, &apiErr, start); gwErr != nil {
		c.logger.Warn().Err(gwErr).Str("payment_ref", orderRef).Msg("gateway verification failed")
		return nil, gwErr
	}

	status, ok := ParseStatus(out.OrderStatus)
	if !ok {
		return nil, &GatewayError{Op: op, Kind: KindMalformed, Message: "unknown order_status " + out.OrderStatus}
	}

	c.logger.Debug().
		Str("payment_ref", orderRef).
		Str("gateway_status", out.OrderStatus).
		Msg("gateway order verified")

	return &Verification{
		OrderRef:  orderRef,
		Status:    status,
		RawStatus: out.OrderStatus,
		Amount:    out.OrderAmount,
	}, nil
}

// Refund refunds an order, in full or in part.
func (c *Cashfree) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	const op = "refund"

	var out cfRefund
	var apiErr cfError
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("orderID", req.OrderRef).
		SetBody(cfRefundRequest{
			RefundAmount: req.Amount.InexactFloat64(),
			RefundID:     req.RefundID,
			RefundNote:   req.Note,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/pg/orders/{orderID}/refunds")
	if gwErr := c.classify(op, resp, err, &apiErr, start); gwErr != nil {
		c.logger.Error().Err(gwErr).Str("payment_ref", req.OrderRef).Msg("gateway refund failed")
		return nil, gwErr
	}

	c.logger.Info().
		Str("payment_ref", req.OrderRef).
		Str("refund_id", out.RefundID).
		Str("refund_status", out.RefundStatus).
		Msg("refund accepted")

	return &Refund{RefundID: out.RefundID, Status: out.RefundStatus}, nil
}

// classify turns a transport error or non-2xx response into a GatewayError
// and reports the call to the observer.
func (c *Cashfree) classify(op string, resp *resty.Response, err error, apiErr *cfError, start time.Time) *GatewayError {
	gwErr := classify(op, resp, err, apiErr)

	if c.observer != nil {
		outcome := "ok"
		if gwErr != nil {
			outcome = string(gwErr.Kind)
		}
		c.observer.ObserveGatewayCall(op, outcome, time.Since(start))
	}

	return gwErr
}

func classify(op string, resp *resty.Response, err error, apiErr *cfError) *GatewayError {
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return &GatewayError{Op: op, Kind: KindTimeout, Err: err}
		}
		if resp != nil && resp.IsSuccess() {
			return &GatewayError{Op: op, Kind: KindMalformed, StatusCode: resp.StatusCode(), Err: err}
		}
		return &GatewayError{Op: op, Kind: KindUnavailable, Err: err}
	}

	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &GatewayError{Op: op, Kind: KindNotFound, StatusCode: code, Message: apiErr.Message}
	case code == http.StatusTooManyRequests || code >= 500:
		return &GatewayError{Op: op, Kind: KindUnavailable, StatusCode: code, Message: apiErr.Message}
	default:
		return &GatewayError{Op: op, Kind: KindRejected, StatusCode: code, Message: apiErr.Message}
	}
}
