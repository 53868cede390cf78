package cart

import (
	"sync"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/shopspring/decimal"
)

// EmptyReason tells an Observer why a session became empty.
type EmptyReason string

const (
	EmptiedByMutation EmptyReason = "mutation"
	EmptiedByClear    EmptyReason = "clear"
	EmptiedByExpiry   EmptyReason = "expiry"
)

// Observer receives session changes in mutation order. Implementations must
// not block and must not call back into the Session.
type Observer interface {
	Saved(userID string, items []domain.LineItem, expiresAt time.Time)
	Emptied(userID string, reason EmptyReason)
}

type Options struct {
	TTL      time.Duration
	Tick     time.Duration
	Now      func() time.Time
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	UserID    string
	Items     []domain.LineItem
	ItemCount int
	Subtotal  decimal.Decimal
	// ExpiresAt is zero while the cart is empty.
	ExpiresAt time.Time
	// Retired is set when the session was retired before the call. The
	// mutation was not applied and the caller should use a fresh session.
	Retired bool
}

// Session is the live cart of one identity: the engine, its expiry timer and
// the observer that persists it. All methods are safe for concurrent use and
// mutations never interleave.
type Session struct {
	mu        sync.Mutex
	userID    string
	cart      *Cart
	expiresAt time.Time
	timer     *expiryTimer
	opts      Options
	discarded bool
	retired   bool
}

// NewSession creates a session, restoring stored state when present. A
// stored session that already expired yields an empty cart; deleting the
// remote copy is the loader's job.
func NewSession(userID string, stored *domain.CartSession, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		userID: userID,
		cart:   New(nil),
		timer:  newExpiryTimer(opts.Tick, opts.Now),
		opts:   opts,
	}
	if stored != nil && !stored.Expired(opts.Now()) {
		s.cart = New(stored.Items)
		if !s.cart.Empty() {
			s.expiresAt = stored.ExpiresAt
			s.timer.start(s.expiresAt, s.expire)
		}
	}
	return s
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireIfDueLocked()
	snap := s.snapshotLocked()
	snap.Retired = s.retired
	return snap
}

func (s *Session) Add(item domain.LineItem) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.Add(item) })
}

func (s *Session) RemoveLine(key domain.LineKey) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.RemoveLine(key) })
}

func (s *Session) RemoveAllVariants(menuItemID string) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.RemoveAllVariants(menuItemID) })
}

func (s *Session) SetQuantity(key domain.LineKey, quantity int) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.SetQuantity(key, quantity) })
}

func (s *Session) SetAllVariantsQuantity(menuItemID string, quantity int) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.SetAllVariantsQuantity(menuItemID, quantity) })
}

func (s *Session) Replace(oldKey domain.LineKey, item domain.LineItem) Snapshot {
	return s.mutate(EmptiedByMutation, func(c *Cart) bool { return c.Replace(oldKey, item) })
}

func (s *Session) Clear() Snapshot {
	return s.mutate(EmptiedByClear, func(c *Cart) bool { return c.Clear() })
}

// Discard drops local state on logout. The stored copy is left alone and
// no observer call is made.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.stop()
	s.discarded = true
	s.cart = New(nil)
	s.expiresAt = time.Time{}
}

// Retire marks an empty session as dropped by its owner. It reports false
// when the cart holds items or the session was already discarded or retired.
func (s *Session) Retire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded || s.retired || !s.cart.Empty() {
		return false
	}
	s.timer.stop()
	s.retired = true
	return true
}

func (s *Session) mutate(reason EmptyReason, op func(*Cart) bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		snap := s.snapshotLocked()
		snap.Retired = true
		return snap
	}
	if s.discarded {
		return s.snapshotLocked()
	}
	s.expireIfDueLocked()
	if op(s.cart) {
		s.changedLocked(reason)
	}
	return s.snapshotLocked()
}

func (s *Session) changedLocked(reason EmptyReason) {
	if s.cart.Empty() {
		s.timer.stop()
		s.expiresAt = time.Time{}
		s.opts.Observer.Emptied(s.userID, reason)
		return
	}
	if s.expiresAt.IsZero() {
		s.expiresAt = s.opts.Now().Add(s.opts.TTL)
		s.timer.start(s.expiresAt, s.expire)
	}
	s.opts.Observer.Saved(s.userID, s.cart.Items(), s.expiresAt)
}

// expire runs on the timer goroutine.
func (s *Session) expire(deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded || !s.expiresAt.Equal(deadline) {
		return
	}
	s.expireLocked()
}

// expireIfDueLocked catches a deadline that passed between ticks.
func (s *Session) expireIfDueLocked() {
	if s.discarded || s.expiresAt.IsZero() {
		return
	}
	if !s.opts.Now().Before(s.expiresAt) {
		s.expireLocked()
	}
}

func (s *Session) expireLocked() {
	s.timer.stop()
	s.cart.Clear()
	s.expiresAt = time.Time{}
	s.opts.Observer.Emptied(s.userID, EmptiedByExpiry)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		UserID:    s.userID,
		Items:     s.cart.Items(),
		ItemCount: s.cart.ItemCount(),
		Subtotal:  s.cart.Subtotal(),
		ExpiresAt: s.expiresAt,
	}
}

type nopObserver struct{}

func (nopObserver) Saved(string, []domain.LineItem, time.Time) {}
func (nopObserver) Emptied(string, EmptyReason)                {}
