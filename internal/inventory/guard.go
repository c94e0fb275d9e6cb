// Package inventory decides whether a set of cart lines can be fulfilled
// from current product state.
package inventory

import (
	"context"
	"fmt"

	"kart-checkout/internal/cart"
	"kart-checkout/internal/model"

	"github.com/rs/zerolog"
)

// ProductReader reads current product state.
type ProductReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// Guard runs the advisory pre-payment inventory check. The authoritative
// check runs Check against rows locked inside the order transaction.
type Guard struct {
	products ProductReader
	logger   zerolog.Logger
}

// NewGuard creates a Guard backed by products.
func NewGuard(products ProductReader, logger zerolog.Logger) *Guard {
	return &Guard{
		products: products,
		logger:   logger.With().Str("component", "inventory_guard").Logger(),
	}
}

// Validate re-reads every product in lines and returns a
// *model.InventoryError listing all unfulfillable lines.
func (g *Guard) Validate(ctx context.Context, lines []model.CartLine) error {
	products, err := g.products.GetByIDs(ctx, cart.ProductIDs(lines))
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}

	if issues := Check(lines, products); len(issues) > 0 {
		g.logger.Info().
			Int("issues", len(issues)).
			Str("first_issue", issues[0].String()).
			Msg("cart failed inventory check")
		return &model.InventoryError{Issues: issues}
	}

	return nil
}

// Check compares lines with products and reports one issue per failing line.
// Quantities of repeated product IDs are summed.
func Check(lines []model.CartLine, products []model.Product) []model.LineIssue {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	requested := make(map[string]int, len(lines))
	var order []model.CartLine
	for _, l := range lines {
		if _, seen := requested[l.ProductID]; !seen {
			order = append(order, l)
		}
		requested[l.ProductID] += l.Quantity
	}

	var issues []model.LineIssue
	for _, l := range order {
		qty := requested[l.ProductID]
		p, ok := byID[l.ProductID]
		switch {
		case !ok:
			issues = append(issues, model.LineIssue{ProductID: l.ProductID, Name: l.Name, Reason: model.ReasonProductRemoved})
		case !p.Available:
			issues = append(issues, model.LineIssue{ProductID: l.ProductID, Name: p.Name, Reason: model.ReasonNotAvailable})
		case !p.Approved:
			issues = append(issues, model.LineIssue{ProductID: l.ProductID, Name: p.Name, Reason: model.ReasonNotApproved})
		case p.Stock < qty:
			issues = append(issues, model.LineIssue{
				ProductID: l.ProductID,
				Name:      p.Name,
				Reason:    model.ReasonInsufficientStock,
				Requested: qty,
				Available: p.Stock,
			})
		}
	}

	return issues
}
