package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/metrics"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/sourcegraph/conc"
)

// Notifier delivers ban events to one destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, event model.BanEvent) error
}

// NameResolver looks up the display name of an account.
type NameResolver interface {
	ResolveDisplayName(ctx context.Context, accountID model.AccountID) string
}

// Dispatcher fans every event out to all notifiers without blocking the caller.
// Failures are logged and dropped, nothing is retried.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	resolver  NameResolver
	timeout   time.Duration
	logger    *slog.Logger
	metrics   metrics.Metrics
	wg        conc.WaitGroup
}

// NewDispatcher creates a Dispatcher. Each delivery is bounded by timeout.
func NewDispatcher(timeout time.Duration, logger *slog.Logger, metrics metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Add appends notifiers to the fan-out list.
func (d *Dispatcher) Add(notifiers ...Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.notifiers = append(d.notifiers, notifiers...)
}

// SetResolver fills missing subject and actor names before delivery.
func (d *Dispatcher) SetResolver(resolver NameResolver) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resolver = resolver
}

// Notify starts delivery to every notifier and returns immediately.
// Name lookups happen in the background as well.
// Deliveries outlive the caller's context but not their own timeout.
func (d *Dispatcher) Notify(ctx context.Context, event model.BanEvent) {
	ctx = context.WithoutCancel(ctx)

	d.mu.RLock()
	notifiers := slices.Clone(d.notifiers)
	resolver := d.resolver
	d.mu.RUnlock()

	if len(notifiers) == 0 {
		return
	}

	d.wg.Go(func() {
		event := d.resolve(ctx, resolver, event)

		for _, notifier := range notifiers {
			d.wg.Go(func() {
				d.deliver(ctx, notifier, event)
			})
		}
	})
}

func (d *Dispatcher) resolve(ctx context.Context, resolver NameResolver, event model.BanEvent) model.BanEvent {
	if resolver == nil {
		return event
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "name resolver panicked", slog.Any("panic", r))
		}
	}()

	if event.Subject == "" {
		event.Subject = resolver.ResolveDisplayName(ctx, event.SubjectID)
	}

	if event.Actor == "" && event.ActorID != 0 {
		event.Actor = resolver.ResolveDisplayName(ctx, event.ActorID)
	}

	return event
}

func (d *Dispatcher) deliver(ctx context.Context, notifier Notifier, event model.BanEvent) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "notifier panicked",
				slog.String("notifier", notifier.Name()),
				slog.Any("panic", r),
			)
		}
	}()

	if err := notifier.Send(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "failed to deliver ban event",
			slog.String("notifier", notifier.Name()),
			slog.String("kind", event.Kind.String()),
			slog.Uint64("account_id", event.SubjectID.ToUint64()),
			slog.Any("error", err),
		)
		d.metrics.LogEvent("notification_failed", map[string]string{
			"notifier": notifier.Name(),
			"kind":     event.Kind.String(),
		}, map[string]interface{}{"count": 1})

		return
	}

	d.logger.DebugContext(ctx, "ban event delivered",
		slog.String("notifier", notifier.Name()),
		slog.String("kind", event.Kind.String()),
	)
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
