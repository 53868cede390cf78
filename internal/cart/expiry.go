package cart

import (
	"context"
	"time"
)

const (
	// DefaultTTL is how long a cart lives after its first item is added.
	// Later mutations do not extend it.
	DefaultTTL = 3 * time.Minute

	// DefaultTick is how often an active cart checks its deadline.
	DefaultTick = time.Second
)

// expiryTimer owns the tick goroutine of one active session. It is started
// when the session becomes active and stopped when it becomes empty.
type expiryTimer struct {
	tick   time.Duration
	now    func() time.Time
	cancel context.CancelFunc
}

func newExpiryTimer(tick time.Duration, now func() time.Time) *expiryTimer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &expiryTimer{tick: tick, now: now}
}

// start begins ticking towards deadline and calls fire once it has passed.
// Any previous tick goroutine is cancelled first.
func (t *expiryTimer) start(deadline time.Time, fire func(deadline time.Time)) {
	t.stop()
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.run(ctx, deadline, fire)
}

// stop cancels the tick goroutine without waiting for it. fire may still be
// running; callers compare deadlines to ignore a stale fire.
func (t *expiryTimer) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *expiryTimer) active() bool {
	return t.cancel != nil
}

func (t *expiryTimer) run(ctx context.Context, deadline time.Time, fire func(time.Time)) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !t.now().Before(deadline) {
				if ctx.Err() == nil {
					fire(deadline)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
