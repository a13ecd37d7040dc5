package ban

import (
	"context"
	"log/slog"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/config"
	"github.com/plugfox/foxy-ban-server/internal/metrics"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

// Store is the durable ban list.
type Store interface {
	// FindInEffect returns the records matching the filter that are in effect at filter.Now.
	FindInEffect(ctx context.Context, filter model.BanFilter) ([]model.BanRecord, error)
	// Insert persists a record. Returns errors.ErrorDuplicate on an escalation key conflict.
	Insert(ctx context.Context, record *model.BanRecord) error
}

// Directory identifies the server bans originate from.
type Directory interface {
	CurrentServerID() uint64
}

// Notifier receives ban events. Delivery is fire-and-forget.
// Events carry account ids, names the engine does not know are left empty for the notifier to resolve.
type Notifier interface {
	Notify(ctx context.Context, event model.BanEvent)
}

// Engine checks connections against the ban list, escalates evasion and issues bans.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	store     Store
	directory Directory
	notifier  Notifier
	config    config.BanConfig
	metrics   metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(store Store, directory Directory, notifier Notifier, config config.BanConfig, opts ...Option) *Engine {
	engine := &Engine{
		store:     store,
		directory: directory,
		notifier:  notifier,
		config:    config,
		metrics:   metrics.NewMetricsFake(),
		logger:    slog.Default(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Emit an event without waiting on any lookup.
func (e *Engine) notify(ctx context.Context, event model.BanEvent) {
	event.ServerID = e.directory.CurrentServerID()

	e.notifier.Notify(ctx, event)
}
