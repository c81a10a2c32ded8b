// Package outbox delivers local mutations to the remote database in the
// background. Tasks are queued without blocking the caller, drained in order
// by a single worker and retried with exponential backoff. A task that still
// fails after the last attempt is reported through the failure hook so the
// caller can mark the affected record for reconciliation.
package outbox

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"healthlog/internal/domain"
)

// ErrStopped is reported for tasks still queued when the worker stops.
var ErrStopped = errors.New("outbox stopped before delivery")

// Task is one remote write.
type Task struct {
	// Name describes the operation for logs, e.g. "add weight_logs".
	Name string
	// Ref is the entry the task delivers, nil for settings and connection
	// updates.
	Ref *domain.EntryRef
	// UserID is the account the write belongs to. Enqueue fills it from the
	// current identity when unset; delivery never re-reads the identity.
	UserID uuid.UUID
	Run    func(ctx context.Context, userID uuid.UUID) error
}

// Config tunes queueing and retry behaviour.
type Config struct {
	QueueSize       int
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		QueueSize:       256,
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		AttemptTimeout:  15 * time.Second,
	}
}

// FailureFunc is called once per task that could not be delivered.
type FailureFunc func(t Task, err error)

// Outbox queues remote writes for a background worker.
type Outbox struct {
	identity domain.Identity
	cfg      Config
	logger   *log.Logger
	metrics  *metrics
	queue    chan Task

	mu        sync.RWMutex
	onFailure FailureFunc
}

// New creates an Outbox. Metrics are registered on reg when it is non-nil.
// If logger is nil, a default logger writing to stderr is used.
func New(identity domain.Identity, cfg Config, logger *log.Logger, reg prometheus.Registerer) *Outbox {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[outbox] ", log.LstdFlags)
	}
	return &Outbox{
		identity: identity,
		cfg:      cfg,
		logger:   logger,
		metrics:  newMetrics(reg),
		queue:    make(chan Task, cfg.QueueSize),
	}
}

// OnFailure installs the hook called for undeliverable tasks.
func (o *Outbox) OnFailure(fn FailureFunc) {
	o.mu.Lock()
	o.onFailure = fn
	o.mu.Unlock()
}

// Enqueue adds t to the queue without blocking. It returns false, and
// reports the task as failed, when the queue is full.
func (o *Outbox) Enqueue(t Task) bool {
	if t.UserID == uuid.Nil {
		if id, ok := o.identity.CurrentUserID(context.Background()); ok {
			t.UserID = id
		}
	}
	select {
	case o.queue <- t:
		o.metrics.depth.Inc()
		return true
	default:
		o.metrics.tasks.WithLabelValues(resultDropped).Inc()
		o.logger.Printf("queue full, dropping %s", t.Name)
		o.fail(t, errors.New("outbox queue full"))
		return false
	}
}

// Pending returns the number of queued tasks.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Run drains the queue until ctx is cancelled. Tasks still queued at that
// point are reported as failed with ErrStopped.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.drain()
			return
		case t := <-o.queue:
			o.metrics.depth.Dec()
			o.deliver(ctx, t)
		}
	}
}

// Flush delivers every queued task on the calling goroutine and returns once
// the queue is empty or ctx is done. It is for processes that do not run a
// background worker.
func (o *Outbox) Flush(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case t := <-o.queue:
			o.metrics.depth.Dec()
			o.deliver(ctx, t)
		default:
			return
		}
	}
}

func (o *Outbox) drain() {
	for {
		select {
		case t := <-o.queue:
			o.metrics.depth.Dec()
			o.fail(t, ErrStopped)
		default:
			return
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, t Task) {
	userID := t.UserID
	if userID == uuid.Nil {
		o.metrics.tasks.WithLabelValues(resultSkipped).Inc()
		o.logger.Printf("skipping %s: no signed-in user", t.Name)
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.InitialInterval
	b.MaxInterval = o.cfg.MaxInterval
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		defer cancel()
		err := t.Run(actx, userID)
		if err != nil && attempt < o.cfg.MaxAttempts {
			o.logger.Printf("%s failed (attempt %d/%d): %v", t.Name, attempt, o.cfg.MaxAttempts, err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		o.metrics.tasks.WithLabelValues(resultFailed).Inc()
		o.logger.Printf("giving up on %s after %d attempts: %v", t.Name, attempt, err)
		o.fail(t, err)
		return
	}
	o.metrics.tasks.WithLabelValues(resultDelivered).Inc()
}

func (o *Outbox) fail(t Task, err error) {
	o.mu.RLock()
	fn := o.onFailure
	o.mu.RUnlock()
	if fn != nil {
		fn(t, err)
	}
}
