package ban

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/model"
)

// correlation is what the ban list says about a connection.
type correlation struct {
	match   model.MatchType
	records []model.BanRecord // In-effect records behind the match.
}

// CheckBan classifies a connection against the ban list without side effects.
// The error is set when a query failed; the match is still the best one found.
func (e *Engine) CheckBan(ctx context.Context, conn model.Connection) (model.MatchType, error) {
	result, err := e.correlate(ctx, conn, e.now())

	return result.match, err
}

// Account matches win over address matches, ip wins over hwid.
// Account 0 is never queried, it would match every ip or hwid only ban.
func (e *Engine) correlate(ctx context.Context, conn model.Connection, now time.Time) (correlation, error) {
	var errs error

	queries := [...]struct {
		match  model.MatchType
		skip   bool
		filter model.BanFilter
	}{
		{
			match:  model.MatchByAccount,
			skip:   conn.AccountID == 0,
			filter: model.BanFilter{Mode: model.SearchByAccount, AccountID: conn.AccountID, Now: now},
		},
		{
			match:  model.MatchByIP,
			skip:   !conn.IP.Recorded(),
			filter: model.BanFilter{Mode: model.SearchByIP, IP: conn.IP, Now: now},
		},
		{
			match:  model.MatchByHwid,
			skip:   conn.Hwid == "",
			filter: model.BanFilter{Mode: model.SearchByHwid, Hwid: conn.Hwid, Now: now},
		},
	}

	for _, query := range queries {
		if query.skip {
			continue
		}

		records, err := e.store.FindInEffect(ctx, query.filter)
		if err != nil {
			e.logger.WarnContext(ctx, "ban query failed",
				slog.String("match", query.match.String()),
				slog.Any("error", err),
			)
			errs = errors.Join(errs, err)

			continue
		}

		records = inEffect(records, now)
		if len(records) > 0 {
			return correlation{match: query.match, records: records}, errs
		}
	}

	return correlation{match: model.MatchNone}, errs
}

// Drop anything the store returned that is not in effect at now.
func inEffect(records []model.BanRecord, now time.Time) []model.BanRecord {
	filtered := records[:0]

	for i := range records {
		if InEffect(&records[i], now) {
			filtered = append(filtered, records[i])
		}
	}

	return filtered
}

// Controlling picks the record that decides the verdict: the one with the most time
// left, preferring admin issued records, then the latest, then the highest id.
func Controlling(records []model.BanRecord, now time.Time) *model.BanRecord {
	if len(records) == 0 {
		return nil
	}

	best := &records[0]
	for i := 1; i < len(records); i++ {
		if outranks(&records[i], best, now) {
			best = &records[i]
		}
	}

	return best
}

func outranks(a, b *model.BanRecord, now time.Time) bool {
	if left, right := Remaining(a, now), Remaining(b, now); left != right {
		return left > right
	}

	if a.IsSystemIssued() != b.IsSystemIssued() {
		return !a.IsSystemIssued()
	}

	if !a.TimeOfBan.Equal(b.TimeOfBan) {
		return a.TimeOfBan.After(b.TimeOfBan)
	}

	return a.ID > b.ID
}
