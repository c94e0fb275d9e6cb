// Package cart freezes a mutable cart into an immutable checkout snapshot.
package cart

import (
	"sort"

	"kart-checkout/internal/model"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable copy of the cart taken at checkout time. Prices
// are the ones captured when each line was added.
type Snapshot struct {
	lines []model.CartLine
	total decimal.Decimal
}

// New freezes lines into a Snapshot. It fails with model.ErrEmptyCart when
// there is nothing to buy and model.ErrInvalidQuantity for a line with a
// non-positive quantity.
func New(lines []model.CartLine) (*Snapshot, error) {
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	frozen := make([]model.CartLine, len(lines))
	copy(frozen, lines)
	sort.Slice(frozen, func(i, j int) bool { return frozen[i].ProductID < frozen[j].ProductID })

	total := decimal.Zero
	for _, l := range frozen {
		if l.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		total = total.Add(l.Subtotal())
	}

	return &Snapshot{
		lines: frozen,
		total: total.Round(2),
	}, nil
}

// Lines returns a copy of the snapshot lines, sorted by product ID.
func (s *Snapshot) Lines() []model.CartLine {
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Total is the sum of line subtotals rounded to two decimal places.
func (s *Snapshot) Total() decimal.Decimal {
	return s.total
}

// ProductIDs lists the distinct products of lines in ascending order, the
// order in which product rows are locked.
func ProductIDs(lines []model.CartLine) []string {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	sort.Strings(ids)
	return ids
}

// PayableAmount is the amount requested from the payment gateway: the total,
// raised to min when the gateway cannot transact smaller amounts.
func (s *Snapshot) PayableAmount(min decimal.Decimal) decimal.Decimal {
	return PayableAmount(s.total, min)
}

// PayableAmount raises total to min.
func PayableAmount(total, min decimal.Decimal) decimal.Decimal {
	if total.LessThan(min) {
		return min.Round(2)
	}
	return total
}
