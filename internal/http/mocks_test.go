package http

import (
	"context"
	"sync"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/service"
	"github.com/shopspring/decimal"
)

type CartServiceMock struct {
	mu       sync.Mutex
	view     *service.CartView
	err      error
	calls    []string
	sel      service.Selection
	key      domain.LineKey
	dish     string
	quantity int
	released []string
}

func sampleCart(userID string) *service.CartView {
	expires := time.Date(2026, 3, 1, 12, 3, 0, 0, time.UTC)
	line := domain.LineItem{MenuItemID: "soda", Name: "Soda", UnitPrice: 2, Quantity: 2}
	return &service.CartView{
		UserID:    userID,
		Items:     []service.CartLine{{Key: line.Key(), LineItem: line, LineTotal: decimal.NewFromInt(4)}},
		ItemCount: 2,
		Subtotal:  decimal.NewFromInt(4),
		ExpiresAt: &expires,
	}
}

func (m *CartServiceMock) record(call string) (*service.CartView, error) {
	m.calls = append(m.calls, call)
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *CartServiceMock) GetCart(_ context.Context, _ string) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("GetCart")
}

func (m *CartServiceMock) AddItem(_ context.Context, _ string, sel service.Selection) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel = sel
	return m.record("AddItem")
}

func (m *CartServiceMock) RemoveLine(_ context.Context, _ string, key domain.LineKey) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return m.record("RemoveLine")
}

func (m *CartServiceMock) RemoveAllVariants(_ context.Context, _ string, menuItemID string) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dish = menuItemID
	return m.record("RemoveAllVariants")
}

func (m *CartServiceMock) UpdateQuantity(_ context.Context, _ string, key domain.LineKey, quantity int) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key, m.quantity = key, quantity
	return m.record("UpdateQuantity")
}

func (m *CartServiceMock) UpdateAllVariantsQuantity(_ context.Context, _ string, menuItemID string, quantity int) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dish, m.quantity = menuItemID, quantity
	return m.record("UpdateAllVariantsQuantity")
}

func (m *CartServiceMock) ReplaceItem(_ context.Context, _ string, oldKey domain.LineKey, sel service.Selection) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key, m.sel = oldKey, sel
	return m.record("ReplaceItem")
}

func (m *CartServiceMock) ClearCart(_ context.Context, _ string) (*service.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("ClearCart")
}

func (m *CartServiceMock) Release(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, userID)
}

type MenuServiceMock struct {
	items       []domain.MenuItem
	deals       []domain.Deal
	err         error
	category    string
	activeOnly  bool
	created     domain.MenuItem
	createdDeal domain.Deal
	deleted     string
	imageType   string
	imageBody   []byte
}

func (m *MenuServiceMock) ListMenu(_ context.Context, category string) ([]domain.MenuItem, error) {
	m.category = category
	return m.items, m.err
}

func (m *MenuServiceMock) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, it := range m.items {
		if it.ID == id {
			it := it
			return &it, nil
		}
	}
	return nil, service.ErrMenuItemNotFound
}

func (m *MenuServiceMock) CreateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item.ID = "new-id"
	m.created = item
	return &item, nil
}

func (m *MenuServiceMock) UpdateMenuItem(_ context.Context, id string, item domain.MenuItem) (*domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	item.ID = id
	return &item, nil
}

func (m *MenuServiceMock) DeleteMenuItem(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *MenuServiceMock) UploadMenuImage(_ context.Context, id, contentType string, body []byte) (*domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.imageType, m.imageBody = contentType, body
	return &domain.MenuItem{ID: id, ImageRef: "https://storage.googleapis.com/bucket/menu/" + id}, nil
}

func (m *MenuServiceMock) ListDeals(_ context.Context, activeOnly bool) ([]domain.Deal, error) {
	m.activeOnly = activeOnly
	return m.deals, m.err
}

func (m *MenuServiceMock) CreateDeal(_ context.Context, deal domain.Deal) (*domain.Deal, error) {
	if m.err != nil {
		return nil, m.err
	}
	deal.ID = "deal-id"
	m.createdDeal = deal
	return &deal, nil
}

func (m *MenuServiceMock) UpdateDeal(_ context.Context, id string, deal domain.Deal) (*domain.Deal, error) {
	if m.err != nil {
		return nil, m.err
	}
	deal.ID = id
	return &deal, nil
}

func (m *MenuServiceMock) DeleteDeal(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

type OrderServiceMock struct {
	order    *domain.Order
	orders   []domain.Order
	err      error
	address  string
	notes    string
	status   domain.OrderStatus
	statusID string
}

func (m *OrderServiceMock) Checkout(_ context.Context, userID, address, notes string) (*domain.Order, error) {
	m.address, m.notes = address, notes
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *OrderServiceMock) ListOrders(_ context.Context, _ string) ([]domain.Order, error) {
	return m.orders, m.err
}

func (m *OrderServiceMock) GetOrder(_ context.Context, userID, id string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.order == nil || m.order.ID != id || m.order.UserID != userID {
		return nil, service.ErrOrderNotFound
	}
	return m.order, nil
}

func (m *OrderServiceMock) ListAllOrders(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.status = status
	return m.orders, m.err
}

func (m *OrderServiceMock) UpdateStatus(_ context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	m.statusID, m.status = id, to
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{ID: id, Status: to}, nil
}
