package cart

import (
	"sync"
	"testing"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type event struct {
	kind      string
	items     []domain.LineItem
	expiresAt time.Time
	reason    EmptyReason
}

type recordingObserver struct {
	mu     sync.RWMutex
	events []event
}

func (r *recordingObserver) Saved(_ string, items []domain.LineItem, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "saved", items: items, expiresAt: expiresAt})
}

func (r *recordingObserver) Emptied(_ string, reason EmptyReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "emptied", reason: reason})
}

func (r *recordingObserver) all() []event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingObserver) last() event {
	all := r.all()
	if len(all) == 0 {
		return event{}
	}
	return all[len(all)-1]
}

func newTestSession(t *testing.T, stored *domain.CartSession) (*Session, *fakeClock, *recordingObserver) {
	clock := newFakeClock()
	obs := &recordingObserver{}
	s := NewSession("user1", stored, Options{
		Tick:     5 * time.Millisecond,
		Now:      clock.Now,
		Observer: obs,
	})
	t.Cleanup(s.Discard)
	return s, clock, obs
}

func TestSession_EndToEnd(t *testing.T) {
	s, clock, obs := newTestSession(t, nil)
	start := clock.Now()
	a := line("A", 10, 1)

	snap := s.Add(a)
	assert.Equal(t, start.Add(DefaultTTL), snap.ExpiresAt)
	assert.True(t, s.timer.active())

	clock.Advance(30 * time.Second)
	a.Quantity = 2
	snap = s.Add(a)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, "30.00", snap.Subtotal.StringFixed(2))
	assert.Equal(t, start.Add(DefaultTTL), snap.ExpiresAt, "later mutations keep the deadline")

	snap = s.SetQuantity(a.Key(), 0)
	assert.Empty(t, snap.Items)
	assert.True(t, snap.ExpiresAt.IsZero())
	assert.False(t, s.timer.active())

	events := obs.all()
	require.Len(t, events, 3)
	assert.Equal(t, "saved", events[0].kind)
	assert.Equal(t, "saved", events[1].kind)
	assert.Equal(t, 3, events[1].items[0].Quantity)
	assert.Equal(t, event{kind: "emptied", reason: EmptiedByMutation}, events[2])
}

func TestSession_NoopMutationDoesNotNotify(t *testing.T) {
	s, _, obs := newTestSession(t, nil)

	s.RemoveLine(line("A", 10, 1).Key())
	s.Clear()
	s.Add(line("A", 10, 0))

	assert.Empty(t, obs.all())
	assert.False(t, s.timer.active())
}

func TestSession_ExpiresOnTick(t *testing.T) {
	s, clock, obs := newTestSession(t, nil)
	s.Add(line("A", 10, 1))

	clock.Advance(DefaultTTL)

	require.Eventually(t, func() bool {
		last := obs.last()
		return last.kind == "emptied" && last.reason == EmptiedByExpiry
	}, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.True(t, snap.ExpiresAt.IsZero())
}

func TestSession_MutationAfterMissedDeadlineStartsFresh(t *testing.T) {
	clock := newFakeClock()
	obs := &recordingObserver{}
	s := NewSession("user1", nil, Options{Tick: time.Hour, Now: clock.Now, Observer: obs})
	defer s.Discard()

	s.Add(line("A", 10, 2))
	clock.Advance(DefaultTTL + time.Second)

	snap := s.Add(line("B", 5, 1))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "B", snap.Items[0].MenuItemID)
	assert.Equal(t, clock.Now().Add(DefaultTTL), snap.ExpiresAt)

	events := obs.all()
	require.Len(t, events, 3)
	assert.Equal(t, EmptiedByExpiry, events[1].reason)
	assert.Equal(t, "saved", events[2].kind)
}

func TestSession_ClearReportsReason(t *testing.T) {
	s, _, obs := newTestSession(t, nil)
	s.Add(line("A", 10, 1))

	s.Clear()

	assert.Equal(t, EmptiedByClear, obs.last().reason)
	assert.False(t, s.timer.active())
}

func TestSession_ReplaceOnEmptyCartStartsTimer(t *testing.T) {
	s, clock, _ := newTestSession(t, nil)

	snap := s.Replace(domain.LineKey("gone|||"), line("A", 10, 1))

	assert.Equal(t, clock.Now().Add(DefaultTTL), snap.ExpiresAt)
	assert.True(t, s.timer.active())
}

func TestSession_RestoreKeepsStoredDeadline(t *testing.T) {
	clock := newFakeClock()
	deadline := clock.Now().Add(time.Minute)
	stored := &domain.CartSession{
		UserID:    "user1",
		Items:     []domain.LineItem{line("A", 10, 1), line("A", 10, 1)},
		ExpiresAt: deadline,
	}

	s := NewSession("user1", stored, Options{Tick: time.Hour, Now: clock.Now})
	defer s.Discard()

	snap := s.Snapshot()
	assert.Equal(t, deadline, snap.ExpiresAt)
	assert.Equal(t, 2, snap.ItemCount)
	assert.True(t, s.timer.active())

	snap = s.Add(line("B", 1, 1))
	assert.Equal(t, deadline, snap.ExpiresAt)
}

func TestSession_RestoreExpiredIsEmpty(t *testing.T) {
	clock := newFakeClock()
	stored := &domain.CartSession{
		UserID:    "user1",
		Items:     []domain.LineItem{line("A", 10, 1)},
		ExpiresAt: clock.Now().Add(-time.Second),
	}

	s := NewSession("user1", stored, Options{Now: clock.Now})
	defer s.Discard()

	assert.Empty(t, s.Snapshot().Items)
	assert.False(t, s.timer.active())
}

func TestSession_DiscardIsSilent(t *testing.T) {
	s, _, obs := newTestSession(t, nil)
	s.Add(line("A", 10, 1))

	s.Discard()
	s.Add(line("B", 1, 1))

	assert.Len(t, obs.all(), 1)
	assert.False(t, s.timer.active())
	assert.Empty(t, s.Snapshot().Items)
}

func TestSession_RetireOnlyWhenEmpty(t *testing.T) {
	s, _, obs := newTestSession(t, nil)
	s.Add(line("A", 10, 1))

	assert.False(t, s.Retire())

	s.Clear()
	assert.True(t, s.Retire())
	assert.False(t, s.Retire())

	snap := s.Add(line("B", 1, 1))
	assert.True(t, snap.Retired)
	assert.Empty(t, snap.Items)
	assert.True(t, s.Snapshot().Retired)
	assert.Len(t, obs.all(), 2)

	discarded, _, _ := newTestSession(t, nil)
	discarded.Discard()
	assert.False(t, discarded.Retire())
}

func TestSession_ConcurrentAddsNeverLoseQuantity(t *testing.T) {
	s, _, _ := newTestSession(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(line("A", 1, 1))
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 50, snap.ItemCount)
}
