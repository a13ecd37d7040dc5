package ban

import (
	"time"

	"github.com/plugfox/foxy-ban-server/internal/model"
)

// Remaining returns the seconds left on a record at now.
// Permanent records keep the sentinel, expired ones return 0.
// Partial seconds are dropped, a record with less than a second left is expired.
func Remaining(record *model.BanRecord, now time.Time) uint32 {
	if record.IsPermanent() {
		return model.PermanentDuration
	}

	end := record.TimeOfBan.Add(time.Duration(record.Duration) * time.Second)

	left := end.Sub(now) // Saturates instead of overflowing.
	if left <= 0 {
		return 0
	}

	if left >= time.Duration(model.PermanentDuration)*time.Second {
		return model.PermanentDuration
	}

	return uint32(left / time.Second)
}

// InEffect reports whether the record still bans at now.
func InEffect(record *model.BanRecord, now time.Time) bool {
	return Remaining(record, now) > 0
}
