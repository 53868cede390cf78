package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nachitzaid/food4u/internal/domain"
)

type OrderService interface {
	Checkout(ctx context.Context, userID, address, notes string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, userID, id string) (*domain.Order, error)
	ListAllOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders OrderService
	opts   HandlerOptions
}

func NewOrdersHandler(orders OrderService, opts HandlerOptions) *OrdersHandler {
	return &OrdersHandler{orders: orders, opts: opts.withDefaults()}
}

type CheckoutRequestDTO struct {
	DeliveryAddress string `json:"deliveryAddress" validate:"required,min=5,max=300"`
	Notes           string `json:"notes" validate:"max=500"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=PENDING PREPARING READY DELIVERED CANCELLED"`
}

func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	order, err := h.orders.Checkout(ctx, userID, req.DeliveryAddress, req.Notes)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListAllOrders is the admin view, optionally filtered by ?status=.
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	orders, err := h.orders.ListAllOrders(ctx, status)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, &req, h.opts.MaxBodyBytes); err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondServiceError(w, r, h.opts.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
