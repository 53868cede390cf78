package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nachitzaid/food4u/internal/cart"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/metrics"
	"github.com/nachitzaid/food4u/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// SessionSyncer persists sessions and restores them on first access.
type SessionSyncer interface {
	cart.Observer
	Load(ctx context.Context, userID string) (*domain.CartSession, error)
}

// MenuLookup resolves the dish a selection refers to.
type MenuLookup interface {
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
}

// Selection is what a customer picks from the menu.
type Selection struct {
	MenuItemID         string
	Quantity           int
	Variant            string
	RemovedIngredients []string
	Extras             []string
}

type CartLine struct {
	Key domain.LineKey
	domain.LineItem
	LineTotal decimal.Decimal
}

type CartView struct {
	UserID    string
	Items     []CartLine
	ItemCount int
	Subtotal  decimal.Decimal
	// ExpiresAt is nil while the cart is empty.
	ExpiresAt *time.Time
}

func (v *CartView) Empty() bool {
	return len(v.Items) == 0
}

type CartServiceOptions struct {
	TTL     time.Duration
	Tick    time.Duration
	Now     func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.Cart
}

// CartService owns the live cart session of every signed-in identity on
// this instance.
type CartService struct {
	syncer  SessionSyncer
	menu    MenuLookup
	log     *logger.Logger
	metrics *metrics.Cart
	opts    cart.Options

	mu       sync.Mutex
	sessions map[string]*cart.Session
	loading  map[string]*pendingLoad
	sfg      singleflight.Group // collapses concurrent first loads of one identity
}

// pendingLoad tracks a first load in flight. released is set under mu when
// the identity logs out before the load finishes.
type pendingLoad struct {
	released bool
}

// registryObserver forwards session changes to the syncer and evicts a
// session once its cart expired.
type registryObserver struct {
	cart.Observer
	evict func(userID string)
}

func (o registryObserver) Emptied(userID string, reason cart.EmptyReason) {
	o.Observer.Emptied(userID, reason)
	if reason == cart.EmptiedByExpiry {
		// runs under the session lock
		go o.evict(userID)
	}
}

func NewCartService(syncer SessionSyncer, menu MenuLookup, opts CartServiceOptions) *CartService {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.TTL <= 0 {
		opts.TTL = cart.DefaultTTL
	}
	s := &CartService{
		syncer:  syncer,
		menu:    menu,
		log:     opts.Logger,
		metrics: opts.Metrics,
		opts: cart.Options{
			TTL:  opts.TTL,
			Tick: opts.Tick,
			Now:  opts.Now,
		},
		sessions: make(map[string]*cart.Session),
		loading:  make(map[string]*pendingLoad),
	}
	s.opts.Observer = registryObserver{Observer: syncer, evict: s.evictExpired}
	return s
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	snap, err := s.withSession(ctx, userID, (*cart.Session).Snapshot)
	if err != nil {
		return nil, err
	}
	return newCartView(snap), nil
}

func (s *CartService) AddItem(ctx context.Context, userID string, sel Selection) (*CartView, error) {
	line, err := s.buildLine(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, "add", func(cs *cart.Session) cart.Snapshot {
		return cs.Add(line)
	})
}

func (s *CartService) RemoveLine(ctx context.Context, userID string, key domain.LineKey) (*CartView, error) {
	return s.apply(ctx, userID, "remove_line", func(cs *cart.Session) cart.Snapshot {
		return cs.RemoveLine(key)
	})
}

func (s *CartService) RemoveAllVariants(ctx context.Context, userID, menuItemID string) (*CartView, error) {
	return s.apply(ctx, userID, "remove_all_variants", func(cs *cart.Session) cart.Snapshot {
		return cs.RemoveAllVariants(menuItemID)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, key domain.LineKey, quantity int) (*CartView, error) {
	return s.apply(ctx, userID, "update_quantity", func(cs *cart.Session) cart.Snapshot {
		return cs.SetQuantity(key, quantity)
	})
}

func (s *CartService) UpdateAllVariantsQuantity(ctx context.Context, userID, menuItemID string, quantity int) (*CartView, error) {
	return s.apply(ctx, userID, "update_all_variants_quantity", func(cs *cart.Session) cart.Snapshot {
		return cs.SetAllVariantsQuantity(menuItemID, quantity)
	})
}

// ReplaceItem swaps the line at oldKey for a new selection, merging into an
// existing line when the new customization collides with one.
func (s *CartService) ReplaceItem(ctx context.Context, userID string, oldKey domain.LineKey, sel Selection) (*CartView, error) {
	line, err := s.buildLine(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, "replace", func(cs *cart.Session) cart.Snapshot {
		return cs.Replace(oldKey, line)
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*CartView, error) {
	return s.apply(ctx, userID, "clear", func(cs *cart.Session) cart.Snapshot {
		return cs.Clear()
	})
}

// ClearStale empties the live cart of userID on this instance when it was
// started before placedAt. It reports whether a cart was cleared. Sessions
// not held here are left alone.
func (s *CartService) ClearStale(ctx context.Context, userID string, placedAt time.Time) bool {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	snap := session.Snapshot()
	if snap.ExpiresAt.IsZero() {
		return false
	}
	startedAt := snap.ExpiresAt.Add(-s.opts.TTL)
	if startedAt.After(placedAt) {
		return false
	}

	session.Clear()
	s.metrics.Mutation("clear_stale")
	s.log.Debug(s.log.WithUserID(ctx, userID), "stale cart cleared after order")
	return true
}

// Release drops the local session on logout. The stored copy stays so the
// cart is restored on the next sign-in if it has not expired.
func (s *CartService) Release(ctx context.Context, userID string) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	if pending, loading := s.loading[userID]; loading {
		pending.released = true
	}
	live := len(s.sessions)
	s.mu.Unlock()

	if ok {
		session.Discard()
		s.log.Debug(s.log.WithUserID(ctx, userID), "cart session released")
	}
	s.metrics.SetLiveSessions(live)
}

// Close discards every live session. Pending sync jobs are flushed by the
// syncer's own Close.
func (s *CartService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.Discard()
		delete(s.sessions, id)
	}
	for _, pending := range s.loading {
		pending.released = true
	}
	s.metrics.SetLiveSessions(0)
}

func (s *CartService) apply(ctx context.Context, userID, op string, fn func(*cart.Session) cart.Snapshot) (*CartView, error) {
	snap, err := s.withSession(ctx, userID, fn)
	if err != nil {
		return nil, err
	}
	s.metrics.Mutation(op)
	return newCartView(snap), nil
}

// withSession runs fn against the live session of userID, moving on to a
// fresh session when the one it got was retired meanwhile.
func (s *CartService) withSession(ctx context.Context, userID string, fn func(*cart.Session) cart.Snapshot) (cart.Snapshot, error) {
	for {
		session, err := s.session(ctx, userID)
		if err != nil {
			return cart.Snapshot{}, err
		}
		if snap := fn(session); !snap.Retired {
			return snap, nil
		}
	}
}

// evictExpired drops the session of userID from the registry once its cart
// expired, unless it was refilled in the meantime.
func (s *CartService) evictExpired(userID string) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if !ok || !session.Retire() {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, userID)
	live := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetLiveSessions(live)
	s.log.Debug(s.log.WithUserID(context.Background(), userID), "expired cart session evicted")
}

func (s *CartService) session(ctx context.Context, userID string) (*cart.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return session, nil
	}

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		s.mu.Lock()
		existing, ok := s.sessions[userID]
		pending := &pendingLoad{}
		if !ok {
			s.loading[userID] = pending
		}
		s.mu.Unlock()
		if ok {
			return existing, nil
		}

		stored, err := s.syncer.Load(ctx, userID)
		if err != nil {
			// the local cart is authoritative, start empty
			s.log.Warn(s.log.WithUserID(ctx, userID), "cart session load failed", err)
			stored = nil
		}

		created := cart.NewSession(userID, stored, s.opts)
		s.mu.Lock()
		delete(s.loading, userID)
		if pending.released {
			s.mu.Unlock()
			// logged out while loading; the caller gets an inert session
			created.Discard()
			return created, nil
		}
		s.sessions[userID] = created
		live := len(s.sessions)
		s.mu.Unlock()
		s.metrics.SetLiveSessions(live)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cart.Session), nil
}

// buildLine snapshots name, price, image and extra prices from the menu so
// later menu edits do not reprice a cart.
func (s *CartService) buildLine(ctx context.Context, sel Selection) (domain.LineItem, error) {
	if sel.Quantity <= 0 {
		return domain.LineItem{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidSelection)
	}

	item, err := s.menu.GetMenuItem(ctx, sel.MenuItemID)
	if err != nil {
		return domain.LineItem{}, err
	}
	if !item.Available {
		return domain.LineItem{}, fmt.Errorf("%w: %s is not available", ErrInvalidSelection, item.Name)
	}

	line := domain.LineItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		UnitPrice:  item.Price,
		ImageRef:   item.ImageRef,
		Quantity:   sel.Quantity,
	}

	if sel.Variant != "" {
		price, ok := item.SizePrice(sel.Variant)
		if !ok {
			return domain.LineItem{}, fmt.Errorf("%w: unknown size %q", ErrInvalidSelection, sel.Variant)
		}
		line.Variant = sel.Variant
		line.UnitPrice = price
	}

	seen := make(map[string]bool)
	for _, name := range sel.RemovedIngredients {
		if seen["-"+name] {
			continue
		}
		if !item.HasIngredient(name) {
			return domain.LineItem{}, fmt.Errorf("%w: unknown ingredient %q", ErrInvalidSelection, name)
		}
		seen["-"+name] = true
		line.RemovedIngredients = append(line.RemovedIngredients, name)
	}
	for _, name := range sel.Extras {
		if seen["+"+name] {
			continue
		}
		extra, ok := item.Extra(name)
		if !ok {
			return domain.LineItem{}, fmt.Errorf("%w: unknown extra %q", ErrInvalidSelection, name)
		}
		seen["+"+name] = true
		line.Extras = append(line.Extras, extra)
	}

	return line, nil
}

func newCartView(snap cart.Snapshot) *CartView {
	view := &CartView{
		UserID:    snap.UserID,
		Items:     make([]CartLine, 0, len(snap.Items)),
		ItemCount: snap.ItemCount,
		Subtotal:  snap.Subtotal,
	}
	for _, it := range snap.Items {
		view.Items = append(view.Items, CartLine{
			Key:       it.Key(),
			LineItem:  it,
			LineTotal: cart.LineTotal(it).Round(2),
		})
	}
	if !snap.ExpiresAt.IsZero() {
		expiresAt := snap.ExpiresAt
		view.ExpiresAt = &expiresAt
	}
	return view
}
