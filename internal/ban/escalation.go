package ban

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

// CheckBanned answers a connection attempt and closes the evasion gap when one is found.
//
// An account match returns the controlling record's reason and remaining time and,
// if no matched record carries the current ip and hwid, stores a copy for them.
// An ip or hwid match returns a permanent verdict and stores a permanent record
// for the whole identifier triple.
//
// The verdict reflects whatever could be read. If any query failed nothing is written
// and the error is returned along with the verdict.
func (e *Engine) CheckBanned(ctx context.Context, conn model.Connection) (model.Verdict, error) {
	now := e.now()

	result, readErr := e.correlate(ctx, conn, now)

	var (
		verdict model.Verdict
		err     error
	)

	switch result.match {
	case model.MatchByAccount:
		verdict, err = e.escalateAccount(ctx, conn, result.records, now, readErr)
	case model.MatchByIP, model.MatchByHwid:
		verdict, err = e.escalateAddress(ctx, conn, result, now, readErr)
	case model.MatchNone:
		verdict, err = model.Verdict{Match: model.MatchNone}, readErr
	}

	e.metrics.LogBanEvent("connection_check", conn.AccountID.ToUint64(), map[string]interface{}{
		"banned": verdict.IsBanned,
		"match":  verdict.Match.String(),
		"failed": err != nil,
	})

	return verdict, err
}

func (e *Engine) escalateAccount(
	ctx context.Context,
	conn model.Connection,
	records []model.BanRecord,
	now time.Time,
	readErr error,
) (model.Verdict, error) {
	controlling := Controlling(records, now)
	remaining := Remaining(controlling, now)

	verdict := model.Verdict{
		IsBanned:          true,
		Reason:            controlling.Reason,
		RemainingDuration: remaining,
		Match:             model.MatchByAccount,
	}

	if readErr != nil {
		return verdict, readErr
	}

	for i := range records {
		if records[i].Covers(conn.IP, conn.Hwid) {
			return verdict, nil
		}
	}

	record := &model.BanRecord{
		AccountID: conn.AccountID,
		IP:        conn.IP,
		Hwid:      conn.Hwid,
		TimeOfBan: now,
		Duration:  remaining,
		Reason:    e.config.NewIdentifierReason,
	}

	source := oldest(records)

	inserted, err := e.insertEscalation(ctx, record, source.ID)
	if err != nil || !inserted {
		return verdict, err
	}

	e.logger.InfoContext(ctx, "banned account connected with new identifiers",
		slog.Uint64("account_id", conn.AccountID.ToUint64()),
		slog.String("ip", conn.IP.String()),
		slog.String("hwid", conn.Hwid),
		slog.Uint64("source_id", source.ID),
		slog.Uint64("controlling_id", controlling.ID),
		slog.Uint64("remaining", uint64(remaining)),
	)

	e.notify(ctx, e.evasionEvent(conn, controlling.Reason, remaining, now))

	return verdict, nil
}

func (e *Engine) escalateAddress(
	ctx context.Context,
	conn model.Connection,
	result correlation,
	now time.Time,
	readErr error,
) (model.Verdict, error) {
	verdict := model.Verdict{
		IsBanned:          true,
		Reason:            e.config.EvasionReason,
		RemainingDuration: model.PermanentDuration,
		Match:             result.match,
	}

	if readErr != nil {
		return verdict, readErr
	}

	source := oldest(result.records)

	record := &model.BanRecord{
		AccountID: conn.AccountID,
		IP:        conn.IP,
		Hwid:      conn.Hwid,
		TimeOfBan: now,
		Duration:  model.PermanentDuration,
		Reason:    e.config.EvasionReason,
	}

	inserted, err := e.insertEscalation(ctx, record, source.ID)
	if err != nil || !inserted {
		return verdict, err
	}

	e.logger.InfoContext(ctx, "ban evasion detected",
		slog.Uint64("account_id", conn.AccountID.ToUint64()),
		slog.String("ip", conn.IP.String()),
		slog.String("hwid", conn.Hwid),
		slog.String("match", result.match.String()),
		slog.Uint64("source_id", source.ID),
	)

	e.notify(ctx, e.evasionEvent(conn, e.config.EvasionReason, model.PermanentDuration, now))

	return verdict, nil
}

// The escalation key is tied to the oldest matched record. It stays the same while that
// record is in effect, whichever record controls the verdict at the moment.
func oldest(records []model.BanRecord) *model.BanRecord {
	source := &records[0]
	for i := 1; i < len(records); i++ {
		if records[i].ID < source.ID {
			source = &records[i]
		}
	}

	return source
}

// Insert a system issued record keyed by its triple and source record.
// A conflict means another check already escalated the same triple.
func (e *Engine) insertEscalation(ctx context.Context, record *model.BanRecord, sourceID uint64) (bool, error) {
	key, err := model.EscalationKey(record.AccountID, record.IP, record.Hwid, sourceID)
	if err != nil {
		return false, err
	}

	record.EscalationKey = &key
	record.ServerID = e.directory.CurrentServerID()

	err = e.store.Insert(ctx, record)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrorDuplicate):
		e.logger.DebugContext(ctx, "escalation already recorded",
			slog.Uint64("account_id", record.AccountID.ToUint64()),
			slog.Uint64("source_id", sourceID),
		)

		return false, nil
	default:
		e.logger.ErrorContext(ctx, "failed to record escalation",
			slog.Uint64("account_id", record.AccountID.ToUint64()),
			slog.Any("error", err),
		)

		return false, err
	}
}

func (e *Engine) evasionEvent(conn model.Connection, reason string, duration uint32, now time.Time) model.BanEvent {
	return model.BanEvent{
		Kind:            model.EventEvasionDetected,
		Subject:         conn.CharacterName,
		SubjectID:       conn.AccountID,
		Actor:           e.config.SystemActor,
		Reason:          reason,
		DurationSeconds: duration,
		At:              now,
	}
}
