package converters

import (
	"github.com/plugfox/foxy-ban-server/api"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

// Convert an API connection to the engine connection.
// Malformed addresses and out of range account ids become "not recorded".
func ConnectionFromAPI(c *api.ConnectionRequest) model.Connection {
	return model.Connection{
		AccountID:     model.AccountIDFrom(c.AccountID),
		IP:            model.ParseIPv4(c.IP),
		Hwid:          c.Hwid,
		CharacterName: c.CharacterName,
	}
}

// Convert an API ban request to the engine request.
func BanRequestFromAPI(r *api.BanRequest) model.BanRequest {
	return model.BanRequest{
		Actor:      model.AccountIDFrom(r.Instigator),
		ActorName:  r.InstigatorName,
		Target:     model.AccountIDFrom(r.Target),
		TargetName: r.TargetName,
		IP:         model.ParseIPv4(r.IP),
		Hwids:      r.Hwids,
		Duration:   r.Duration,
		Reason:     r.Reason,
	}
}

// Convert an engine verdict for the game host.
func VerdictToAPI(v model.Verdict) *api.Verdict {
	return &api.Verdict{
		IsBanned:          v.IsBanned,
		Reason:            v.Reason,
		RemainingDuration: v.RemainingDuration,
		Permanent:         v.IsBanned && v.RemainingDuration == model.PermanentDuration,
		Match:             v.Match.String(),
	}
}

// Convert a stored ban for the API.
func BanRecordToAPI(r *model.BanRecord) *api.BanRecord {
	if r == nil {
		return nil
	}

	record := &api.BanRecord{
		ID:        r.ID,
		ServerID:  r.ServerID,
		AccountID: r.AccountID.ToUint64(),
		IP:        r.IP.String(),
		Hwid:      r.Hwid,
		TimeOfBan: r.TimeOfBan.UTC(),
		Duration:  r.Duration,
		Permanent: r.IsPermanent(),
		Reason:    r.Reason,
		AdminID:   r.AdminID.ToUint64(),
		Escalated: r.EscalationKey != nil,
	}

	if expiry := r.Expiry(); expiry.Valid {
		record.ExpiresAt = &expiry.Time
	}

	return record
}

// Convert stored bans for the API.
func BanRecordsToAPI(records []model.BanRecord) []*api.BanRecord {
	result := make([]*api.BanRecord, 0, len(records))
	for i := range records {
		result = append(result, BanRecordToAPI(&records[i]))
	}

	return result
}
