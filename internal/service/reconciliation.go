package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"
	"kart-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// reconcileTimeout bounds one shared reconciliation, independent of the
	// request that started it.
	reconcileTimeout = 30 * time.Second

	// sweepRetryDelay is how long an expired pending order that the sweep
	// could not settle stays out of the next sweeps.
	sweepRetryDelay = 5 * time.Minute
)

// reconciliationEngine implements Reconciler. Every decision is based on
// the gateway's Verify answer; statuses reported by the browser or the
// webhook body are never trusted.
type reconciliationEngine struct {
	pending  repository.PendingOrderRepository
	orders   repository.OrderRepository
	gateway  payment.Gateway
	ledger   OrderLedger
	events   EventDispatcher
	observer ReconcileObserver
	inflight singleflight.Group
	now      func() time.Time
	logger   zerolog.Logger
}

// NewReconciler creates a Reconciler. observer may be nil.
func NewReconciler(
	pending repository.PendingOrderRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	ledger OrderLedger,
	events EventDispatcher,
	observer ReconcileObserver,
	logger zerolog.Logger,
) Reconciler {
	return newReconciler(pending, orders, gateway, ledger, events, observer, logger)
}

func newReconciler(
	pending repository.PendingOrderRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	ledger OrderLedger,
	events EventDispatcher,
	observer ReconcileObserver,
	logger zerolog.Logger,
) *reconciliationEngine {
	if observer == nil {
		observer = nopObserver{}
	}
	return &reconciliationEngine{
		pending:  pending,
		orders:   orders,
		gateway:  gateway,
		ledger:   ledger,
		events:   events,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "reconciliation").Logger(),
	}
}

// Reconcile settles the pending order identified by ref. Concurrent calls
// for the same ref within this process share one execution; calls racing
// across processes are serialised by the ledger.
func (e *reconciliationEngine) Reconcile(ctx context.Context, ref string, source model.SignalSource) (*model.ReconcileResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, (&model.ValidationError{}).Add("order_id", "required")
	}

	v, err, shared := e.inflight.Do(ref, func() (any, error) {
		// Callers joining this flight must not inherit the first caller's
		// cancellation.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
		defer cancel()
		return e.reconcile(flightCtx, ref)
	})
	if err != nil {
		e.logger.Warn().Err(err).
			Str("payment_ref", ref).
			Str("source", string(source)).
			Msg("reconciliation failed")
		return nil, err
	}

	result := v.(*model.ReconcileResult)
	e.observer.ObserveReconcile(source, result.Outcome)

	e.logger.Info().
		Str("payment_ref", ref).
		Str("source", string(source)).
		Str("outcome", string(result.Outcome)).
		Str("gateway_status", result.GatewayStatus).
		Bool("shared", shared).
		Msg("payment reconciled")

	return result, nil
}

func (e *reconciliationEngine) reconcile(ctx context.Context, ref string) (*model.ReconcileResult, error) {
	pending, err := e.pending.GetByToken(ctx, ref)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return e.alreadyProcessed(ctx, ref)
	}

	verification, err := e.gateway.Verify(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &model.ReconcileResult{Ref: ref, GatewayStatus: verification.RawStatus}

	switch verification.Status {
	case payment.StatusPaid:
		if !verification.Amount.IsZero() && !verification.Amount.Equal(pending.Amount) {
			e.logger.Warn().
				Str("payment_ref", ref).
				Str("expected", pending.Amount.StringFixed(2)).
				Str("paid", verification.Amount.StringFixed(2)).
				Msg("gateway amount differs from pending order")
		}

		receipt, err := e.ledger.Materialize(ctx, ref)
		if err != nil {
			return nil, err
		}
		if receipt.AlreadyProcessed {
			result.Outcome = model.OutcomeAlreadyProcessed
			result.Order = receipt.Order
			return result, nil
		}

		e.events.Dispatch(receipt.Events...)
		result.Order = receipt.Order
		result.Outcome = model.OutcomeMaterialized
		if len(receipt.Shortfall) > 0 {
			result.Outcome = model.OutcomeShortfall
		}
		return result, nil

	case payment.StatusPending:
		result.Outcome = model.OutcomeProcessing
		return result, nil

	case payment.StatusFailed, payment.StatusCancelled, payment.StatusExpired:
		if _, err := e.pending.Delete(ctx, ref); err != nil {
			return nil, err
		}
		result.Outcome = terminalOutcome(verification.Status)
		return result, nil

	default:
		return nil, &payment.GatewayError{
			Op:      "verify",
			Kind:    payment.KindMalformed,
			Message: fmt.Sprintf("unexpected status %q", verification.RawStatus),
		}
	}
}

func (e *reconciliationEngine) alreadyProcessed(ctx context.Context, ref string) (*model.ReconcileResult, error) {
	order, err := e.orders.GetByPaymentRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &model.ReconcileResult{
		Ref:     ref,
		Outcome: model.OutcomeAlreadyProcessed,
		Order:   order,
	}, nil
}

// Sweep re-verifies up to limit pending orders past their expiry. Paid
// ones are materialized and failed or expired ones are discarded. Orders
// still in progress at the gateway, or that could not be verified, are
// postponed so the following sweeps reach newer expired orders.
func (e *reconciliationEngine) Sweep(ctx context.Context, limit int) (*model.SweepReport, error) {
	if limit <= 0 {
		limit = 100
	}

	expired, err := e.pending.ListExpired(ctx, e.now(), limit)
	if err != nil {
		return nil, err
	}

	report := &model.SweepReport{Scanned: len(expired)}
	for _, p := range expired {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		result, err := e.Reconcile(ctx, p.Token, model.SourceSweep)
		if err != nil {
			report.Failed++
			e.postpone(ctx, p.Token)
			continue
		}

		switch result.Outcome {
		case model.OutcomeMaterialized, model.OutcomeShortfall:
			report.Recovered++
		case model.OutcomeFailed, model.OutcomeCancelled, model.OutcomeExpired:
			report.Discarded++
		case model.OutcomeProcessing:
			report.Skipped++
			e.postpone(ctx, p.Token)
		default:
			report.Skipped++
		}
	}

	if report.Scanned > 0 {
		e.logger.Info().
			Int("scanned", report.Scanned).
			Int("recovered", report.Recovered).
			Int("discarded", report.Discarded).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("expired pending orders swept")
	}

	return report, nil
}

func (e *reconciliationEngine) postpone(ctx context.Context, token string) {
	if err := e.pending.Postpone(ctx, token, e.now().Add(sweepRetryDelay)); err != nil {
		e.logger.Warn().Err(err).Str("payment_ref", token).Msg("failed to postpone pending order")
	}
}

// RefundShortfall refunds the full order total of a paid order flagged for
// review and then resolves the review, cancelling the order.
func (e *reconciliationEngine) RefundShortfall(ctx context.Context, orderID uuid.UUID) (*payment.Refund, error) {
	order, _, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !order.RequiresReview || order.PaymentRef == nil {
		return nil, model.ErrReviewNotRequired
	}

	refund, err := e.gateway.Refund(ctx, payment.RefundRequest{
		OrderRef: *order.PaymentRef,
		RefundID: ShortfallRefundID(order.ID),
		Amount:   order.TotalAmount,
		Note:     "inventory shortfall for order " + order.OrderNumber,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("refund failed")
		return nil, err
	}

	receipt, err := e.ledger.ResolveReview(ctx, orderID, "refund "+refund.RefundID)
	if err != nil {
		return nil, fmt.Errorf("refund %s issued but review not resolved: %w", refund.RefundID, err)
	}
	e.events.Dispatch(receipt.Events...)

	e.logger.Info().
		Str("order_id", orderID.String()).
		Str("refund_id", refund.RefundID).
		Msg("shortfall order refunded")

	return refund, nil
}

// ShortfallRefundID is the gateway refund id for a shortfall order. It is
// derived from the order so a retried refund replays the same request.
func ShortfallRefundID(orderID uuid.UUID) string {
	return "refund_" + strings.ReplaceAll(orderID.String(), "-", "")
}

func terminalOutcome(s payment.Status) model.Outcome {
	switch s {
	case payment.StatusFailed:
		return model.OutcomeFailed
	case payment.StatusCancelled:
		return model.OutcomeCancelled
	default:
		return model.OutcomeExpired
	}
}
