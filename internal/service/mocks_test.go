package service

import (
	"context"
	"sync"
	"time"

	"github.com/nachitzaid/food4u/internal/cache"
	"github.com/nachitzaid/food4u/internal/cart"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/repository"
)

type mockSyncer struct {
	m       sync.RWMutex
	stored  map[string]*domain.CartSession
	loadErr error
	loads   int
	saved   int
	emptied []cart.EmptyReason

	// when set, Load signals loadStarted and waits for loadGate
	loadStarted chan struct{}
	loadGate    chan struct{}
}

func newMockSyncer() *mockSyncer {
	return &mockSyncer{stored: make(map[string]*domain.CartSession)}
}

func (m *mockSyncer) Load(_ context.Context, userID string) (*domain.CartSession, error) {
	m.m.Lock()
	m.loads++
	started, gate := m.loadStarted, m.loadGate
	stored, err := m.stored[userID], m.loadErr
	m.m.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (m *mockSyncer) Saved(userID string, items []domain.LineItem, expiresAt time.Time) {
	m.m.Lock()
	defer m.m.Unlock()
	m.saved++
	m.stored[userID] = &domain.CartSession{UserID: userID, Items: items, ExpiresAt: expiresAt}
}

func (m *mockSyncer) Emptied(userID string, reason cart.EmptyReason) {
	m.m.Lock()
	defer m.m.Unlock()
	m.emptied = append(m.emptied, reason)
	delete(m.stored, userID)
}

func (m *mockSyncer) loadCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.loads
}

func (m *mockSyncer) emptiedReasons() []cart.EmptyReason {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]cart.EmptyReason(nil), m.emptied...)
}

func (m *mockSyncer) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.stored[userID]
	return ok
}

type mockMenuRepository struct {
	m     sync.RWMutex
	items map[string]*domain.MenuItem
	deals map[string]*domain.Deal
	lists int
	err   error
}

func newMockMenuRepository(items ...*domain.MenuItem) *mockMenuRepository {
	r := &mockMenuRepository{
		items: make(map[string]*domain.MenuItem),
		deals: make(map[string]*domain.Deal),
	}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (m *mockMenuRepository) ListMenuItems(_ context.Context, filter repository.MenuFilter) ([]domain.MenuItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.MenuItem{}
	for _, it := range m.items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.AvailableOnly && !it.Available {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m *mockMenuRepository) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, repository.ErrMenuItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *mockMenuRepository) CreateMenuItem(_ context.Context, item *domain.MenuItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	return m.err
}

func (m *mockMenuRepository) UpdateMenuItem(_ context.Context, item *domain.MenuItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrMenuItemNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockMenuRepository) DeleteMenuItem(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrMenuItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockMenuRepository) ListDeals(context.Context) ([]domain.Deal, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Deal{}
	for _, d := range m.deals {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockMenuRepository) GetDeal(_ context.Context, id string) (*domain.Deal, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	d, ok := m.deals[id]
	if !ok {
		return nil, repository.ErrDealNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockMenuRepository) CreateDeal(_ context.Context, deal *domain.Deal) error {
	m.m.Lock()
	defer m.m.Unlock()
	cp := *deal
	m.deals[deal.ID] = &cp
	return nil
}

func (m *mockMenuRepository) UpdateDeal(_ context.Context, deal *domain.Deal) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.deals[deal.ID]; !ok {
		return repository.ErrDealNotFound
	}
	cp := *deal
	m.deals[deal.ID] = &cp
	return nil
}

func (m *mockMenuRepository) DeleteDeal(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.deals[id]; !ok {
		return repository.ErrDealNotFound
	}
	delete(m.deals, id)
	return nil
}

func (m *mockMenuRepository) listCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.lists
}

type mockMenuCache struct {
	m           sync.RWMutex
	lists       map[string][]domain.MenuItem
	items       map[string]*domain.MenuItem
	invalidated [][]string
	err         error
}

func newMockMenuCache() *mockMenuCache {
	return &mockMenuCache{
		lists: make(map[string][]domain.MenuItem),
		items: make(map[string]*domain.MenuItem),
	}
}

func (m *mockMenuCache) GetMenu(_ context.Context, category string) ([]domain.MenuItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	items, ok := m.lists[category]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return items, nil
}

func (m *mockMenuCache) SetMenu(_ context.Context, category string, items []domain.MenuItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.lists[category] = items
	return nil
}

func (m *mockMenuCache) GetItem(_ context.Context, id string) (*domain.MenuItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return it, nil
}

func (m *mockMenuCache) SetItem(_ context.Context, item *domain.MenuItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *mockMenuCache) Invalidate(_ context.Context, ids ...string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.invalidated = append(m.invalidated, ids)
	for _, id := range ids {
		delete(m.items, id)
	}
	m.lists = make(map[string][]domain.MenuItem)
	return nil
}

func (m *mockMenuCache) hasList(category string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.lists[category]
	return ok
}

func (m *mockMenuCache) invalidations() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.invalidated)
}

type mockImageStore struct {
	objectName string
	body       []byte
	ref        string
	err        error
}

func (m *mockImageStore) Put(_ context.Context, objectName, _ string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.objectName = objectName
	m.body = body
	return m.ref, nil
}

type mockOrderRepository struct {
	m         sync.RWMutex
	orders    map[string]*domain.Order
	events    []domain.OrderEvent
	createErr error
	updateErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order, event *domain.OrderEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	m.orders[order.ID] = &cp
	if event != nil {
		m.events = append(m.events, *event)
	}
	return nil
}

func (m *mockOrderRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListOrders(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus, event *domain.OrderEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	if event != nil {
		m.events = append(m.events, *event)
	}
	return nil
}

func (m *mockOrderRepository) GetUnpublishedEvents(context.Context, int) ([]domain.OrderEvent, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]domain.OrderEvent(nil), m.events...), nil
}

func (m *mockOrderRepository) MarkEventPublished(context.Context, string) error {
	return nil
}
