package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kart-checkout/internal/model"
	"kart-checkout/internal/notify"

	"github.com/rs/zerolog"
)

// ShortfallReport is written for each paid order that needs a refund.
type ShortfallReport struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Order       *model.Order      `json:"order"`
	Items       []model.OrderItem `json:"items"`
	Issues      []model.LineIssue `json:"issues"`
}

// ReviewExport lists every order awaiting review at a point in time.
type ReviewExport struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Orders      []model.Order `json:"orders"`
}

// Reporter writes operator reports to a Store.
type Reporter struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// NewReporter creates a Reporter.
func NewReporter(store Store, logger zerolog.Logger) *Reporter {
	return &Reporter{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "operator-reporter").Logger(),
	}
}

// Notify stores a report for inventory.shortfall events.
func (r *Reporter) Notify(ctx context.Context, event model.Event) error {
	if event.Type != model.EventInventoryShortfall || event.Order == nil {
		return notify.ErrSkipped
	}

	report := ShortfallReport{
		GeneratedAt: r.now(),
		Order:       event.Order,
		Items:       event.Items,
		Issues:      event.Issues,
	}
	key := fmt.Sprintf("shortfall/%s/%s.json.gz", event.Order.CreatedAt.UTC().Format("2006/01/02"), event.Order.OrderNumber)

	if err := r.put(ctx, key, report); err != nil {
		return err
	}

	r.logger.Warn().
		Str("order_id", event.Order.ID.String()).
		Str("order_number", event.Order.OrderNumber).
		Int("issues", len(event.Issues)).
		Str("key", key).
		Msg("shortfall reported to operator")
	return nil
}

// ExportReviews writes orders awaiting review and returns the key used.
func (r *Reporter) ExportReviews(ctx context.Context, orders []model.Order) (string, error) {
	now := r.now()
	key := fmt.Sprintf("reviews/%s.json.gz", now.Format("20060102T150405Z"))
	if err := r.put(ctx, key, ReviewExport{GeneratedAt: now, Orders: orders}); err != nil {
		return "", err
	}
	return key, nil
}

func (r *Reporter) put(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return r.store.Put(ctx, key, data)
}
