package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/metrics"
	"github.com/nachitzaid/food4u/internal/repository"
	"github.com/nachitzaid/food4u/pkg/circuitbreaker"
	"github.com/nachitzaid/food4u/pkg/logger"
)

const (
	defaultQueueSize   = 256
	defaultSyncTimeout = 5 * time.Second
)

type syncOp int

const (
	opPut syncOp = iota
	opDelete
)

func (o syncOp) String() string {
	if o == opDelete {
		return "delete"
	}
	return "put"
}

type syncJob struct {
	op        syncOp
	userID    string
	items     []domain.LineItem
	expiresAt time.Time
}

type SyncerOptions struct {
	QueueSize int
	// Timeout bounds each remote call.
	Timeout time.Duration
	Breaker *circuitbreaker.Breaker
	Logger  *logger.Logger
	Metrics *metrics.Cart
	Now     func() time.Time
}

// Syncer mirrors session changes into a SessionRepository. Writes are
// fire-and-forget: a single worker applies them in the order they were
// queued, failures are logged and counted, and nothing is retried.
type Syncer struct {
	store   repository.SessionRepository
	breaker *circuitbreaker.Breaker
	log     *logger.Logger
	metrics *metrics.Cart
	timeout time.Duration
	now     func() time.Time

	jobs   chan syncJob
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewSyncer(store repository.SessionRepository, opts SyncerOptions) *Syncer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSyncTimeout
	}
	if opts.Breaker == nil {
		opts.Breaker = circuitbreaker.New(circuitbreaker.Settings{Name: "cart-store"})
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Syncer{
		store:   store,
		breaker: opts.Breaker,
		log:     opts.Logger,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		now:     opts.Now,
		jobs:    make(chan syncJob, opts.QueueSize),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *Syncer) Saved(userID string, items []domain.LineItem, expiresAt time.Time) {
	s.enqueue(syncJob{op: opPut, userID: userID, items: items, expiresAt: expiresAt})
}

func (s *Syncer) Emptied(userID string, reason EmptyReason) {
	if reason == EmptiedByExpiry {
		s.metrics.Expired()
	}
	s.enqueue(syncJob{op: opDelete, userID: userID})
}

// Load reads the stored session for userID. It returns nil when there is
// nothing to restore. An expired document is deleted before returning.
func (s *Syncer) Load(ctx context.Context, userID string) (*domain.CartSession, error) {
	var stored *domain.CartSession
	err := s.breaker.Do(func() error {
		var err error
		stored, err = s.store.GetSession(ctx, userID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load cart session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	if stored.Expired(s.now()) {
		err := s.breaker.Do(func() error {
			return s.store.DeleteSession(ctx, userID)
		})
		if err != nil {
			s.metrics.SyncFailure(opDelete.String())
			s.log.Warn(s.log.WithUserID(ctx, userID), "failed to delete expired cart session", err)
		}
		return nil, nil
	}
	return stored, nil
}

// Close stops accepting jobs and waits for the queue to drain.
func (s *Syncer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Syncer) enqueue(job syncJob) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.jobs <- job:
	default:
		s.metrics.SyncDropped()
		ctx := s.log.WithField(s.log.WithUserID(context.Background(), job.userID), "op", job.op.String())
		s.log.Warn(ctx, "cart sync queue full, dropping job", nil)
	}
}

func (s *Syncer) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.apply(job)
	}
}

func (s *Syncer) apply(job syncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.breaker.Do(func() error {
		if job.op == opDelete {
			return s.store.DeleteSession(ctx, job.userID)
		}
		return s.store.PutSession(ctx, job.userID, job.items, job.expiresAt)
	})
	if err != nil {
		s.metrics.SyncFailure(job.op.String())
		logCtx := s.log.WithField(s.log.WithUserID(ctx, job.userID), "op", job.op.String())
		s.log.Error(logCtx, "cart sync failed", err)
	}
}
