package ban

import (
	"context"
	"log/slog"

	"github.com/plugfox/foxy-ban-server/internal/model"
)

// IssueBan persists a ban requested by an admin or an external tool and announces it.
// Every request creates a new record, identical requests are not merged.
// With identifier capture disabled the record carries no ip or hwid.
func (e *Engine) IssueBan(ctx context.Context, req model.BanRequest) (*model.BanRecord, error) {
	now := e.now()

	record := &model.BanRecord{
		ServerID:  e.directory.CurrentServerID(),
		AccountID: req.Target,
		TimeOfBan: now,
		Duration:  req.Duration,
		Reason:    req.Reason,
		AdminID:   req.Actor,
	}

	if e.config.CaptureIdentifiers {
		record.IP = req.IP
		if len(req.Hwids) > 0 {
			record.Hwid = req.Hwids[0]
		}
	}

	if err := e.store.Insert(ctx, record); err != nil {
		e.logger.ErrorContext(ctx, "failed to store ban",
			slog.Uint64("account_id", req.Target.ToUint64()),
			slog.Uint64("actor_id", req.Actor.ToUint64()),
			slog.Any("error", err),
		)

		return nil, err
	}

	e.logger.InfoContext(ctx, "ban issued",
		slog.Uint64("id", record.ID),
		slog.Uint64("account_id", req.Target.ToUint64()),
		slog.Uint64("actor_id", req.Actor.ToUint64()),
		slog.Uint64("duration", uint64(req.Duration)),
	)

	e.metrics.LogBanEvent("ban_issued", req.Target.ToUint64(), map[string]interface{}{
		"duration":  int64(req.Duration),
		"permanent": record.IsPermanent(),
		"external":  req.Actor == 0,
	})

	event := model.BanEvent{
		Kind:            model.EventBanIssued,
		Subject:         req.TargetName,
		SubjectID:       req.Target,
		ActorID:         req.Actor,
		Actor:           e.actorName(req),
		External:        req.Actor == 0,
		Reason:          req.Reason,
		DurationSeconds: req.Duration,
		At:              now,
	}

	e.notify(ctx, event)

	return record, nil
}

// Admin names are resolved by the notifier.
func (e *Engine) actorName(req model.BanRequest) string {
	if req.ActorName == "" && req.Actor == 0 {
		return e.config.ExternalActor
	}

	return req.ActorName
}
