package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/repository"
	"github.com/nachitzaid/food4u/pkg/logger"
)

// CartSource is the part of the cart service checkout needs.
type CartSource interface {
	GetCart(ctx context.Context, userID string) (*CartView, error)
	ClearCart(ctx context.Context, userID string) (*CartView, error)
}

type OrderService struct {
	repo  repository.OrderRepository
	carts CartSource
	log   *logger.Logger
	now   func() time.Time
}

func NewOrderService(repo repository.OrderRepository, carts CartSource, log *logger.Logger) *OrderService {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderService{
		repo:  repo,
		carts: carts,
		log:   log,
		now:   time.Now,
	}
}

// Checkout turns the caller's live cart into a PENDING order and empties
// the cart once the order is stored.
func (s *OrderService) Checkout(ctx context.Context, userID, address, notes string) (*domain.Order, error) {
	view, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.Empty() {
		return nil, ErrEmptyCart
	}

	now := s.now()
	items := make([]domain.LineItem, 0, len(view.Items))
	for _, line := range view.Items {
		items = append(items, line.LineItem)
	}
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		ItemCount:       view.ItemCount,
		Subtotal:        view.Subtotal.InexactFloat64(),
		Status:          domain.OrderStatusPending,
		DeliveryAddress: strings.TrimSpace(address),
		Notes:           strings.TrimSpace(notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	event, err := newOrderEvent(order, domain.EventOrderPlaced, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateOrder(ctx, order, event); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if _, err := s.carts.ClearCart(ctx, userID); err != nil {
		// the order stands; the cart still expires on its own
		s.log.Warn(s.log.WithField(ctx, "order_id", order.ID), "failed to clear cart after checkout", err)
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{"order_id": order.ID, "user_id": userID}), "order placed")
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// GetOrder returns one of the caller's orders. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	return s.repo.ListOrders(ctx, status)
}

// UpdateStatus moves an order along the status workflow.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}

	from := order.Status
	now := s.now()
	order.Status = to
	order.UpdatedAt = now

	event, err := newOrderEvent(order, domain.EventOrderStatusChanged, now)
	if err != nil {
		return nil, err
	}
	err = s.repo.UpdateOrderStatus(ctx, id, from, to, event)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, id)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func newOrderEvent(order *domain.Order, eventType string, at time.Time) (*domain.OrderEvent, error) {
	payload, err := json.Marshal(domain.OrderEventPayload{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Subtotal:  order.Subtotal,
		ItemCount: order.ItemCount,
		At:        at,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return &domain.OrderEvent{
		ID:          uuid.NewString(),
		AggregateID: order.ID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   at,
	}, nil
}
