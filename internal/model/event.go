package model

import "time"

// EventKind is the type of a ban event handed to notifiers.
type EventKind int

const (
	EventBanIssued EventKind = iota
	EventEvasionDetected
	EventKick
	EventUnban
)

func (k EventKind) String() string {
	switch k {
	case EventBanIssued:
		return "ban"
	case EventEvasionDetected:
		return "banevading"
	case EventKick:
		return "kick"
	case EventUnban:
		return "unban"
	default:
		return "unknown"
	}
}

// BanEvent describes a decision for human facing output. Notifiers own the formatting.
type BanEvent struct {
	Kind            EventKind
	Subject         string    // Display name of the affected player.
	SubjectID       AccountID // Account of the affected player.
	Actor           string    // Display name of the issuer.
	ActorID         AccountID // 0 for system or external issuers.
	External        bool      // Issued without an authenticated actor.
	Reason          string
	DurationSeconds uint32 // PermanentDuration means permanent.
	ServerID        uint64
	At              time.Time
}

// IsPermanent reports whether the event duration is the permanent sentinel.
func (e BanEvent) IsPermanent() bool {
	return e.DurationSeconds == PermanentDuration
}
