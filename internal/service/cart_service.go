package service

import (
	"context"
	"fmt"

	"kart-checkout/internal/model"
	"kart-checkout/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cartService implements CartService.
type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		carts:    carts,
		products: products,
		logger:   logger.With().Str("service", "cart").Logger(),
	}
}

// View returns the cart lines and subtotal.
func (s *cartService) View(ctx context.Context, cartID string) (*model.CartView, error) {
	if cartID == "" {
		return nil, model.ErrMissingCart
	}

	lines, err := s.carts.GetLines(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	return &model.CartView{CartID: cartID, Lines: lines, Subtotal: subtotal.Round(2)}, nil
}

// Add puts a product in the cart. The product must be purchasable and have
// enough stock for the resulting quantity; its current price is captured.
func (s *cartService) Add(ctx context.Context, cartID string, req *model.AddCartItemRequest) (*model.CartLine, error) {
	if cartID == "" {
		return nil, model.ErrMissingCart
	}
	if req == nil || req.ProductID == "" {
		return nil, (&model.ValidationError{}).Add("productId", "required")
	}
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	issue := model.LineIssue{ProductID: product.ID, Name: product.Name, Requested: req.Quantity, Available: product.Stock}
	switch {
	case !product.Available:
		issue.Reason = model.ReasonNotAvailable
	case !product.Approved:
		issue.Reason = model.ReasonNotApproved
	}
	if issue.Reason == "" {
		inCart, err := s.quantityInCart(ctx, cartID, product.ID)
		if err != nil {
			return nil, err
		}
		if inCart+req.Quantity > product.Stock {
			issue.Reason = model.ReasonInsufficientStock
			issue.Requested = inCart + req.Quantity
		}
	}
	if issue.Reason != "" {
		s.logger.Debug().
			Str("cart_id", cartID).
			Str("product_id", product.ID).
			Str("reason", string(issue.Reason)).
			Msg("cart add rejected")
		return nil, &model.InventoryError{Issues: []model.LineIssue{issue}}
	}

	line, err := s.carts.AddLine(ctx, cartID, model.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  req.Quantity,
		UnitPrice: product.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	s.logger.Debug().
		Str("cart_id", cartID).
		Str("product_id", product.ID).
		Int("quantity", line.Quantity).
		Msg("cart line added")

	return line, nil
}

// Remove deletes a product from the cart.
func (s *cartService) Remove(ctx context.Context, cartID, productID string) error {
	if cartID == "" {
		return model.ErrMissingCart
	}

	removed, err := s.carts.RemoveLine(ctx, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	if !removed {
		return model.ErrProductNotFound
	}
	return nil
}

func (s *cartService) quantityInCart(ctx context.Context, cartID, productID string) (int, error) {
	lines, err := s.carts.GetLines(ctx, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to get cart: %w", err)
	}
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity, nil
		}
	}
	return 0, nil
}
