package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kart-checkout/internal/cart"
	"kart-checkout/internal/ledger"
	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"
	"kart-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutOptions configures checkoutService.
type CheckoutOptions struct {
	PendingTTL time.Duration
	MinAmount  decimal.Decimal
	Currency   string
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	carts   repository.CartRepository
	pending repository.PendingOrderRepository
	guard   InventoryValidator
	gateway payment.Gateway
	ledger  OrderLedger
	events  EventDispatcher
	opts    CheckoutOptions
	now     func() time.Time
	logger  zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	pending repository.PendingOrderRepository,
	guard InventoryValidator,
	gateway payment.Gateway,
	ledger OrderLedger,
	events EventDispatcher,
	opts CheckoutOptions,
	logger zerolog.Logger,
) CheckoutService {
	return newCheckoutService(carts, pending, guard, gateway, ledger, events, opts, logger)
}

func newCheckoutService(
	carts repository.CartRepository,
	pending repository.PendingOrderRepository,
	guard InventoryValidator,
	gateway payment.Gateway,
	ledger OrderLedger,
	events EventDispatcher,
	opts CheckoutOptions,
	logger zerolog.Logger,
) *checkoutService {
	return &checkoutService{
		carts:   carts,
		pending: pending,
		guard:   guard,
		gateway: gateway,
		ledger:  ledger,
		events:  events,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout validates the shipping details, snapshots the cart, runs the
// advisory inventory check and then either opens a payment session or
// places a cash-on-delivery order.
func (s *checkoutService) Checkout(ctx context.Context, cartID string, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if cartID == "" {
		return nil, model.ErrMissingCart
	}
	if req == nil {
		return nil, (&model.ValidationError{}).Add("customer", "required")
	}

	req.Customer = normalizeCustomer(req.Customer)
	if err := req.Customer.Validate(); err != nil {
		s.logger.Debug().Err(err).Str("cart_id", cartID).Msg("checkout rejected")
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, model.ErrUnsupportedPaymentMethod
	}

	lines, err := s.carts.GetLines(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	snap, err := cart.New(lines)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Validate(ctx, snap.Lines()); err != nil {
		return nil, err
	}

	switch req.PaymentMethod {
	case model.PaymentCOD:
		order, err := s.PlaceCODOrder(ctx, cartID, snap, req.Customer)
		if err != nil {
			return nil, err
		}
		return &model.CheckoutResult{Order: order}, nil
	default:
		session, err := s.BeginPayment(ctx, cartID, snap, req.Customer)
		if err != nil {
			return nil, err
		}
		return &model.CheckoutResult{Session: session}, nil
	}
}

// BeginPayment opens a gateway session for snap and stores the pending
// order. Nothing is persisted when the gateway call fails.
func (s *checkoutService) BeginPayment(ctx context.Context, cartID string, snap *cart.Snapshot, customer model.Customer) (*model.PaymentSession, error) {
	token := NewPaymentToken()
	amount := snap.PayableAmount(s.opts.MinAmount)
	now := s.now()
	expiresAt := now.Add(s.opts.PendingTTL)

	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		OrderRef:   token,
		Amount:     amount,
		Currency:   s.opts.Currency,
		CustomerID: customerID(customer),
		Customer:   customer,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("payment_ref", token).
			Bool("retryable", payment.IsRetryable(err)).
			Msg("failed to create payment session")
		return nil, err
	}

	pending := &model.PendingOrder{
		Token:            token,
		GatewayOrderRef:  session.GatewayOrderID,
		PaymentSessionID: session.SessionID,
		CartID:           cartID,
		Customer:         customer,
		Lines:            snap.Lines(),
		Total:            snap.Total(),
		Amount:           amount,
		CreatedAt:        now,
		ExpiresAt:        expiresAt,
	}
	if err := s.pending.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending order: %w", err)
	}

	s.logger.Info().
		Str("payment_ref", token).
		Str("cart_id", cartID).
		Str("amount", amount.StringFixed(2)).
		Msg("payment session created")

	return &model.PaymentSession{
		Token:            token,
		PaymentSessionID: session.SessionID,
		RedirectURL:      session.RedirectURL,
		Amount:           amount,
		ExpiresAt:        pending.ExpiresAt,
	}, nil
}

// PlaceCODOrder creates an unpaid order for snap and dispatches its events.
func (s *checkoutService) PlaceCODOrder(ctx context.Context, cartID string, snap *cart.Snapshot, customer model.Customer) (*model.Order, error) {
	receipt, err := s.ledger.PlaceDirect(ctx, ledger.CreateInput{
		CartID:   cartID,
		Customer: customer,
		Lines:    snap.Lines(),
		Total:    snap.Total(),
	})
	if err != nil {
		var invErr *model.InventoryError
		if !errors.As(err, &invErr) {
			s.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to place cod order")
		}
		return nil, err
	}

	s.events.Dispatch(receipt.Events...)
	return receipt.Order, nil
}

// NewPaymentToken returns a fresh payment reference.
func NewPaymentToken() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func customerID(c model.Customer) string {
	if c.Phone != "" {
		return "cust_" + c.Phone
	}
	return "cust_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func normalizeCustomer(c model.Customer) model.Customer {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Address2 = strings.TrimSpace(c.Address2)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.Zipcode = strings.TrimSpace(c.Zipcode)
	c.Country = strings.TrimSpace(c.Country)
	return c
}
