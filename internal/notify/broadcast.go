package notify

import (
	"context"
	"log/slog"

	"github.com/plugfox/foxy-ban-server/internal/model"
)

// Broadcast announces ban events on the server log.
type Broadcast struct {
	logger *slog.Logger
}

// NewBroadcast creates a Broadcast notifier.
func NewBroadcast(logger *slog.Logger) *Broadcast {
	return &Broadcast{logger: logger}
}

func (b *Broadcast) Name() string {
	return "broadcast"
}

func (b *Broadcast) Send(ctx context.Context, event model.BanEvent) error {
	b.logger.InfoContext(ctx, Describe(event),
		slog.String("kind", event.Kind.String()),
		slog.Uint64("account_id", event.SubjectID.ToUint64()),
		slog.String("actor", event.Actor),
		slog.String("duration", FormatDuration(event.DurationSeconds)),
		slog.Uint64("server_id", event.ServerID),
	)

	return nil
}
