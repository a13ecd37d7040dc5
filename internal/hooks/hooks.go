package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

var ErrorAlreadyRegistered = errors.New("handler already registered")

// ConnectionHandler decides whether a connecting player may join.
type ConnectionHandler interface {
	CheckBanned(ctx context.Context, conn model.Connection) (model.Verdict, error)
}

// ConnectionHandlerFunc adapts a function to ConnectionHandler.
type ConnectionHandlerFunc func(ctx context.Context, conn model.Connection) (model.Verdict, error)

func (f ConnectionHandlerFunc) CheckBanned(ctx context.Context, conn model.Connection) (model.Verdict, error) {
	return f(ctx, conn)
}

// BanRequestHandler persists ban requests made by the host.
type BanRequestHandler interface {
	IssueBan(ctx context.Context, req model.BanRequest) (*model.BanRecord, error)
}

type named[T any] struct {
	name    string
	handler T
}

// Registry holds the handlers attached to the host's extension points.
// Handlers run in registration order.
type Registry struct {
	mu          sync.RWMutex
	connections []named[ConnectionHandler]
	banRequests []named[BanRequestHandler]
	logger      *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// RegisterConnectionHandler attaches a handler to connection checks.
func (r *Registry) RegisterConnectionHandler(name string, handler ConnectionHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if registered(r.connections, name) {
		return fmt.Errorf("%w: %s", ErrorAlreadyRegistered, name)
	}

	r.connections = append(r.connections, named[ConnectionHandler]{name: name, handler: handler})
	r.logger.Info("connection handler registered", slog.String("name", name))

	return nil
}

// RegisterBanRequestHandler attaches a handler to ban requests.
func (r *Registry) RegisterBanRequestHandler(name string, handler BanRequestHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if registered(r.banRequests, name) {
		return fmt.Errorf("%w: %s", ErrorAlreadyRegistered, name)
	}

	r.banRequests = append(r.banRequests, named[BanRequestHandler]{name: name, handler: handler})
	r.logger.Info("ban request handler registered", slog.String("name", name))

	return nil
}

// Deregister detaches every handler registered under name.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections = slices.DeleteFunc(r.connections, func(h named[ConnectionHandler]) bool { return h.name == name })
	r.banRequests = slices.DeleteFunc(r.banRequests, func(h named[BanRequestHandler]) bool { return h.name == name })
	r.logger.Info("handler deregistered", slog.String("name", name))
}

// Names lists the registered handlers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.connections)+len(r.banRequests))
	for _, h := range r.connections {
		names = append(names, h.name)
	}

	for _, h := range r.banRequests {
		names = append(names, h.name)
	}

	return names
}

// Names are unique per extension point, one plugin may attach to both.
func registered[T any](handlers []named[T], name string) bool {
	return slices.ContainsFunc(handlers, func(h named[T]) bool { return h.name == name })
}

// CheckConnection runs every connection handler. The first banning verdict is kept,
// errors from all handlers are joined.
func (r *Registry) CheckConnection(ctx context.Context, conn model.Connection) (model.Verdict, error) {
	r.mu.RLock()
	handlers := slices.Clone(r.connections)
	r.mu.RUnlock()

	var (
		verdict = model.Verdict{Match: model.MatchNone}
		errs    error
	)

	for _, h := range handlers {
		result, err := h.handler.CheckBanned(ctx, conn)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", h.name, err))
		}

		if result.IsBanned && !verdict.IsBanned {
			verdict = result
		}
	}

	return verdict, errs
}

// RequestBan hands the request to the first ban request handler.
func (r *Registry) RequestBan(ctx context.Context, req model.BanRequest) (*model.BanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.banRequests) == 0 {
		return nil, apperrors.ErrorNoHandler
	}

	return r.banRequests[0].handler.IssueBan(ctx, req)
}
