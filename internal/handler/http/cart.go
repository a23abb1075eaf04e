package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httputil"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	cart   *service.CartService
	sync   *service.SyncService
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartService, sync *service.SyncService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:   cart,
		sync:   sync,
		logger: logger,
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.cart.View())
}

// ProductInCart handles GET /api/v1/cart/products/{id}
func (h *CartHandler) ProductInCart(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"product_id": id,
		"in_cart":    h.cart.ContainsProduct(domain.FlexibleID(id)),
	})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddToCartInput
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.cart.AddToCart(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, view)
}

// UpdateItem handles PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req service.SetQuantityInput
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.cart.SetQuantity(r.Context(), domain.FlexibleID(id), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// IncrementItem handles POST /api/v1/cart/items/{id}/increment
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.cart.Increment)
}

// DecrementItem handles POST /api/v1/cart/items/{id}/decrement
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.cart.Decrement)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.cart.RemoveFromCart)
}

func (h *CartHandler) step(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.FlexibleID) (domain.CartView, error)) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := op(r.Context(), domain.FlexibleID(id))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Refresh handles POST /api/v1/cart/refresh
func (h *CartHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.resync(w, r, service.TriggerRefresh)
}

// Mount handles POST /api/v1/cart/mount
func (h *CartHandler) Mount(w http.ResponseWriter, r *http.Request) {
	h.resync(w, r, service.TriggerMount)
}

func (h *CartHandler) resync(w http.ResponseWriter, r *http.Request, trigger service.Trigger) {
	res, err := h.sync.Sync(r.Context(), trigger)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}
