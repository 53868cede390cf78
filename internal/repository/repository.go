package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
)

var (
	ErrSessionNotFound  = errors.New("cart session not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrDealNotFound     = errors.New("deal not found")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrStatusConflict means the order changed status since it was read.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// SessionRepository stores one cart document per identity.
// Consumers define this interface, not the storage implementations.
type SessionRepository interface {
	GetSession(ctx context.Context, userID string) (*domain.CartSession, error)
	// PutSession replaces the whole document.
	PutSession(ctx context.Context, userID string, items []domain.LineItem, expiresAt time.Time) error
	// DeleteSession succeeds when the document does not exist.
	DeleteSession(ctx context.Context, userID string) error
}

type MenuFilter struct {
	Category      string
	AvailableOnly bool
}

type MenuRepository interface {
	ListMenuItems(ctx context.Context, filter MenuFilter) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error

	ListDeals(ctx context.Context) ([]domain.Deal, error)
	GetDeal(ctx context.Context, id string) (*domain.Deal, error)
	CreateDeal(ctx context.Context, deal *domain.Deal) error
	UpdateDeal(ctx context.Context, deal *domain.Deal) error
	DeleteDeal(ctx context.Context, id string) error
}

type OrderRepository interface {
	// CreateOrder stores the order and its outbox event.
	CreateOrder(ctx context.Context, order *domain.Order, event *domain.OrderEvent) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// ListOrders returns all orders, newest first. An empty status matches all.
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	// UpdateOrderStatus moves an order from one status to another and records
	// the event. It fails with ErrStatusConflict if the order is no longer in from.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, event *domain.OrderEvent) error

	GetUnpublishedEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error)
	MarkEventPublished(ctx context.Context, id string) error
}
