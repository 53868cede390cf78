package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/service"
	"github.com/nachitzaid/food4u/pkg/logger"
)

// CartService is the cart API the handlers depend on.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*service.CartView, error)
	AddItem(ctx context.Context, userID string, sel service.Selection) (*service.CartView, error)
	RemoveLine(ctx context.Context, userID string, key domain.LineKey) (*service.CartView, error)
	RemoveAllVariants(ctx context.Context, userID, menuItemID string) (*service.CartView, error)
	UpdateQuantity(ctx context.Context, userID string, key domain.LineKey, quantity int) (*service.CartView, error)
	UpdateAllVariantsQuantity(ctx context.Context, userID, menuItemID string, quantity int) (*service.CartView, error)
	ReplaceItem(ctx context.Context, userID string, oldKey domain.LineKey, sel service.Selection) (*service.CartView, error)
	ClearCart(ctx context.Context, userID string) (*service.CartView, error)
	Release(ctx context.Context, userID string)
}

type HandlerOptions struct {
	Timeout       time.Duration
	MaxBodyBytes  int64
	MaxImageBytes int64
	Logger        *logger.Logger
}

func (o HandlerOptions) withDefaults() HandlerOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20 // 1MB
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 5 << 20
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

type CartHandler struct {
	carts CartService
	opts  HandlerOptions
}

func NewCartHandler(carts CartService, opts HandlerOptions) *CartHandler {
	return &CartHandler{carts: carts, opts: opts.withDefaults()}
}

type SelectionDTO struct {
	MenuItemID         string   `json:"menuItemId" validate:"required"`
	Quantity           int      `json:"quantity" validate:"required,min=1,max=99"`
	Variant            string   `json:"variant"`
	RemovedIngredients []string `json:"removedIngredients" validate:"max=20,dive,required"`
	Extras             []string `json:"extras" validate:"max=20,dive,required"`
}

func (d SelectionDTO) toSelection() service.Selection {
	return service.Selection{
		MenuItemID:         d.MenuItemID,
		Quantity:           d.Quantity,
		Variant:            d.Variant,
		RemovedIngredients: d.RemovedIngredients,
		Extras:             d.Extras,
	}
}

// UpdateQuantityRequestDTO sets an absolute quantity; 0 removes.
type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

type CartLineDTO struct {
	Key domain.LineKey `json:"key"`
	domain.LineItem
	LineTotal string `json:"lineTotal"`
}

type CartResponse struct {
	UserID    string        `json:"userId"`
	Items     []CartLineDTO `json:"items"`
	ItemCount int           `json:"itemCount"`
	Subtotal  string        `json:"subtotal"`
	ExpiresAt *time.Time    `json:"expiresAt"`
}

func newCartResponse(v *service.CartView) CartResponse {
	items := make([]CartLineDTO, 0, len(v.Items))
	for _, l := range v.Items {
		items = append(items, CartLineDTO{
			Key:       l.Key,
			LineItem:  l.LineItem,
			LineTotal: l.LineTotal.StringFixed(2),
		})
	}
	return CartResponse{
		UserID:    v.UserID,
		Items:     items,
		ItemCount: v.ItemCount,
		Subtotal:  v.Subtotal.StringFixed(2),
		ExpiresAt: v.ExpiresAt,
	}
}

// StartSession restores the caller's stored cart on login.
func (h *CartHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.GetCart(w, r)
}

// EndSession drops the in-memory cart on logout. The stored copy stays.
func (h *CartHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	h.carts.Release(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.GetCart(ctx, userID)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.ClearCart(ctx, userID)
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req SelectionDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	h.serve(w, r, http.StatusCreated, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.AddItem(ctx, userID, req.toSelection())
	})
}

// UpdateAllVariantsQuantity sets the quantity of every line of one dish.
func (h *CartHandler) UpdateAllVariantsQuantity(w http.ResponseWriter, r *http.Request) {
	menuItemID := chi.URLParam(r, "menuItemId")
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.UpdateAllVariantsQuantity(ctx, userID, menuItemID, *req.Quantity)
	})
}

func (h *CartHandler) RemoveAllVariants(w http.ResponseWriter, r *http.Request) {
	menuItemID := chi.URLParam(r, "menuItemId")
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.RemoveAllVariants(ctx, userID, menuItemID)
	})
}

func (h *CartHandler) UpdateLineQuantity(w http.ResponseWriter, r *http.Request) {
	key := lineKeyParam(r)
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.UpdateQuantity(ctx, userID, key, *req.Quantity)
	})
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	key := lineKeyParam(r)
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.RemoveLine(ctx, userID, key)
	})
}

func (h *CartHandler) ReplaceLine(w http.ResponseWriter, r *http.Request) {
	key := lineKeyParam(r)
	var req SelectionDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID string) (*service.CartView, error) {
		return h.carts.ReplaceItem(ctx, userID, key, req.toSelection())
	})
}

func (h *CartHandler) serve(w http.ResponseWriter, r *http.Request, status int, call func(context.Context, string) (*service.CartView, error)) {
	userID := getUserID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	view, err := call(ctx, userID)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, status, newCartResponse(view))
}

// lineKeyParam returns the composite key from the path. Clients escape the
// separators, so the value is unescaped once more when chi hands back the
// raw segment.
func lineKeyParam(r *http.Request) domain.LineKey {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return domain.LineKey(key)
	}
	return domain.LineKey(raw)
}
