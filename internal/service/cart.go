package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/storefront/internal/cart"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// MaxQuantityPerItem caps the quantity of a single variant.
const MaxQuantityPerItem = 100

// AddToCartInput is a variant the UI wants in the cart, with the display
// fields it already holds from the product screen.
type AddToCartInput struct {
	ID        domain.FlexibleID `json:"id" validate:"required"`
	ProductID domain.FlexibleID `json:"product_id" validate:"required"`
	Name      string            `json:"name" validate:"required"`
	NameAr    string            `json:"name_ar"`
	Price     decimal.Decimal   `json:"price"`
	Image     string            `json:"image"`
	Quantity  int               `json:"quantity" validate:"gte=0,lte=100"`
	Brand     string            `json:"brand"`
	Color     string            `json:"color"`
	Liter     string            `json:"liter"`
	Weight    string            `json:"weight"`
}

// SetQuantityInput holds the new quantity for a variant.
type SetQuantityInput struct {
	Quantity int `json:"quantity" validate:"lte=100"`
}

// CartService applies UI cart mutations. Every mutation waits for the
// storefront API to confirm before the local container changes.
type CartService struct {
	remote    CartRemote
	container *cart.Container
	cdnURL    string
	logger    *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(remote CartRemote, container *cart.Container, cdnURL string, logger *slog.Logger) *CartService {
	return &CartService{
		remote:    remote,
		container: container,
		cdnURL:    cdnURL,
		logger:    logger,
	}
}

// View returns the rendered cart.
func (s *CartService) View() domain.CartView {
	return s.container.View()
}

// ContainsProduct reports whether any variant of the product is in the cart.
func (s *CartService) ContainsProduct(productID domain.FlexibleID) bool {
	return s.container.ContainsProduct(productID)
}

// AddToCart adds a variant, overwriting any existing entry for it.
func (s *CartService) AddToCart(ctx context.Context, input AddToCartInput) (domain.CartView, error) {
	if err := validator.Validate(input); err != nil {
		return domain.CartView{}, err
	}
	if input.Price.IsNegative() {
		return domain.CartView{}, apperrors.InvalidInput("price must not be negative")
	}
	if input.Quantity < 1 {
		input.Quantity = 1
	}

	err := s.remote.AddItem(ctx, input.ProductID, input.ID, input.Quantity)
	cartOperationsTotal.WithLabelValues("add", outcomeLabel(err)).Inc()
	if err != nil {
		return domain.CartView{}, fmt.Errorf("add to cart: %w", err)
	}

	s.container.AddItem(domain.CartLineItem{
		ID:        input.ID,
		ProductID: input.ProductID,
		Name:      input.Name,
		NameAr:    input.NameAr,
		Price:     input.Price,
		Image:     domain.ResolveImageURL(s.cdnURL, input.Image),
		Quantity:  input.Quantity,
		Brand:     input.Brand,
		Color:     input.Color,
		Liter:     input.Liter,
		Weight:    input.Weight,
	})
	s.observe(ctx, "item added", input.ID)
	return s.container.View(), nil
}

// SetQuantity changes the quantity of a variant already in the cart.
// Unknown ids are ignored; a quantity <= 0 removes the variant.
func (s *CartService) SetQuantity(ctx context.Context, id domain.FlexibleID, quantity int) (domain.CartView, error) {
	if quantity > MaxQuantityPerItem {
		return domain.CartView{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	item, ok := s.container.Get(id)
	if !ok {
		return s.container.View(), nil
	}
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, id)
	}
	if quantity == item.Quantity {
		return s.container.View(), nil
	}

	err := s.remote.AddItem(ctx, item.ProductID, id, quantity)
	cartOperationsTotal.WithLabelValues("update", outcomeLabel(err)).Inc()
	if err != nil {
		return domain.CartView{}, fmt.Errorf("update quantity: %w", err)
	}

	s.container.UpdateQuantity(id, quantity)
	s.observe(ctx, "quantity updated", id)
	return s.container.View(), nil
}

// Increment raises the quantity of a variant by one.
func (s *CartService) Increment(ctx context.Context, id domain.FlexibleID) (domain.CartView, error) {
	item, ok := s.container.Get(id)
	if !ok {
		return s.container.View(), nil
	}
	return s.SetQuantity(ctx, id, item.Quantity+1)
}

// Decrement lowers the quantity of a variant by one, removing it at zero.
func (s *CartService) Decrement(ctx context.Context, id domain.FlexibleID) (domain.CartView, error) {
	item, ok := s.container.Get(id)
	if !ok {
		return s.container.View(), nil
	}
	return s.SetQuantity(ctx, id, item.Quantity-1)
}

// RemoveFromCart removes a variant. Removing an absent variant succeeds.
func (s *CartService) RemoveFromCart(ctx context.Context, id domain.FlexibleID) (domain.CartView, error) {
	err := s.remote.RemoveItem(ctx, id)
	cartOperationsTotal.WithLabelValues("remove", outcomeLabel(err)).Inc()
	if err != nil {
		return domain.CartView{}, fmt.Errorf("remove from cart: %w", err)
	}

	s.container.RemoveItem(id)
	s.observe(ctx, "item removed", id)
	return s.container.View(), nil
}

func (s *CartService) observe(ctx context.Context, msg string, id domain.FlexibleID) {
	count := s.container.Count()
	cartItems.Set(float64(count))
	s.logger.InfoContext(ctx, msg,
		slog.String("variant_id", id.String()),
		slog.Int("item_count", count),
	)
}
