// Package scheduler resolves vote proposals once their deadline passes.
//
// Deadlines are kept in an in-process min-heap drained by Run. The heap is
// not durable, so Recover re-arms every open proposal at startup and a
// periodic sweep resolves any overdue proposal the heap does not know about,
// such as one created by another process. Resolution is idempotent, so a
// proposal that is fired twice is resolved once.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/metrics"
	"github.com/folkout/folkout/internal/models"
)

// Resolver resolves a proposal. Resolving an already resolved proposal must
// be a no-op.
type Resolver interface {
	Resolve(ctx context.Context, proposalID string) (*models.Resolution, error)
}

// Store lists open proposals.
type Store interface {
	ListOpenProposals(ctx context.Context) ([]models.ScheduledProposal, error)
	ListDueProposals(ctx context.Context, now time.Time) ([]models.ScheduledProposal, error)
}

// RetryOptions configures retries of failed resolutions. Only storage
// errors are retried.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultRetryOptions returns the retry options used in production.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  30 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      5,
	}
}

// Scheduler fires one resolution per proposal at or after its deadline.
type Scheduler struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	sweepInterval time.Duration
	retry         RetryOptions
	now           func() time.Time

	mu     sync.Mutex
	queue  deadlineQueue
	queued map[string]int64
	wake   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics records resolutions and the pending gauge on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithSweepInterval sets how often the store is polled for overdue
// proposals. Zero disables the sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.sweepInterval = d }
}

// WithRetryOptions overrides DefaultRetryOptions.
func WithRetryOptions(o RetryOptions) Option {
	return func(s *Scheduler) { s.retry = o }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler.
func New(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         store,
		logger:        slog.Default(),
		sweepInterval: time.Minute,
		retry:         DefaultRetryOptions(),
		now:           time.Now,
		queued:        make(map[string]int64),
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Schedule arms a resolution of proposalID at. Re-arming a queued proposal
// with the same deadline is a no-op. It never blocks.
func (s *Scheduler) Schedule(proposalID string, at time.Time) {
	s.mu.Lock()
	if prev, ok := s.queued[proposalID]; ok && prev == at.Unix() {
		s.mu.Unlock()
		return
	}
	s.queued[proposalID] = at.Unix()
	heap.Push(&s.queue, entry{id: proposalID, at: at.Unix()})
	pending := len(s.queued)
	s.mu.Unlock()

	s.metrics.SetPending(pending)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of proposals waiting in the heap.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued)
}

// Recover arms every open proposal in the store. Proposals already past
// their deadline fire on the next iteration of Run.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	open, err := s.store.ListOpenProposals(ctx)
	if err != nil {
		return 0, err
	}

	for _, p := range open {
		s.Schedule(p.ID, time.Unix(p.Deadline, 0))
	}

	s.logger.Info("Recovered open proposals", "count", len(open))
	return len(open), nil
}

// Sweep resolves every overdue open proposal in the store and returns how
// many it attempted.
func (s *Scheduler) Sweep(ctx context.Context, r Resolver) (int, error) {
	due, err := s.store.ListDueProposals(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for _, p := range due {
		s.forget(p.ID)
		s.resolve(ctx, r, p.ID)
	}
	if len(due) > 0 {
		s.logger.Info("Swept overdue proposals", "count", len(due))
	}
	return len(due), nil
}

// Run resolves proposals as their deadlines pass until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, r Resolver) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	var sweep <-chan time.Time
	if s.sweepInterval > 0 {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	s.logger.Info("Scheduler started", "sweep_interval", s.sweepInterval)
	for {
		for _, id := range s.popDue() {
			s.resolve(ctx, r, id)
		}

		timer.Reset(s.untilNext())

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped", "pending", s.Pending())
			return nil
		case <-s.wake:
		case <-timer.C:
		case <-sweep:
			if _, err := s.Sweep(ctx, r); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// popDue removes and returns every entry whose deadline has passed. Stale
// heap entries left behind by a re-arm are dropped.
func (s *Scheduler) popDue() []string {
	now := s.now().Unix()

	s.mu.Lock()
	var due []string
	for s.queue.Len() > 0 && s.queue[0].at <= now {
		e := heap.Pop(&s.queue).(entry)
		if at, ok := s.queued[e.id]; !ok || at != e.at {
			continue
		}
		delete(s.queued, e.id)
		due = append(due, e.id)
	}
	pending := len(s.queued)
	s.mu.Unlock()

	if len(due) > 0 {
		s.metrics.SetPending(pending)
	}
	return due
}

func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	delete(s.queued, id)
	pending := len(s.queued)
	s.mu.Unlock()
	s.metrics.SetPending(pending)
}

// untilNext returns the wait before the earliest deadline, capped at an
// hour.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return time.Hour
	}
	wait := time.Unix(s.queue[0].at, 0).Sub(s.now())
	if wait < 0 {
		return 0
	}
	if wait > time.Hour {
		return time.Hour
	}
	return wait
}

// resolve calls r with retries. Failures are logged; the sweep picks the
// proposal up again later.
func (s *Scheduler) resolve(ctx context.Context, r Resolver, id string) {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(s.retry.MaxElapsedTime),
		backoff.WithInitialInterval(s.retry.InitialInterval),
		backoff.WithMaxInterval(s.retry.MaxInterval),
	), s.retry.MaxRetries)

	operation := func() error {
		_, err := r.Resolve(ctx, id)
		if err != nil && !apperr.Is(err, apperr.KindStorage) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Resolve failed, retrying", "proposal_id", id, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		s.metrics.ResolveFailed()
		s.logger.Error("Failed to resolve proposal", "proposal_id", id, "error", err)
	}
}
