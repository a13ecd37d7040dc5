package model

// MatchType classifies how a connection matched the ban list.
type MatchType int

const (
	MatchNone MatchType = iota
	MatchByAccount
	MatchByIP
	MatchByHwid
)

func (m MatchType) String() string {
	switch m {
	case MatchByAccount:
		return "account"
	case MatchByIP:
		return "ip"
	case MatchByHwid:
		return "hwid"
	case MatchNone:
		fallthrough
	default:
		return "none"
	}
}

// MarshalText encodes the match type by name.
func (m MatchType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Connection is the identifier triple of an entity trying to join.
type Connection struct {
	AccountID     AccountID
	IP            IPv4
	Hwid          string
	CharacterName string // Optional, used for notifications only.
}

// Verdict is the answer to a connection check.
type Verdict struct {
	IsBanned          bool
	Reason            string
	RemainingDuration uint32 // Seconds, PermanentDuration for permanent.
	Match             MatchType
}

// BanRequest asks for a ban on an account. Actor 0 means the request came from
// outside the game without an authenticated issuer.
type BanRequest struct {
	Actor      AccountID
	ActorName  string // Optional, overrides the directory lookup of the actor.
	Target     AccountID
	TargetName string // Optional, overrides the directory lookup of the target.
	IP         IPv4
	Hwids      []string // Only the first entry is recorded.
	Duration   uint32   // Seconds, PermanentDuration for permanent.
	Reason     string
}
