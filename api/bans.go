package api

import "time"

// ConnectionRequest is sent by the game host when a player tries to join.
type ConnectionRequest struct {
	AccountID     uint64 `json:"account_id"`
	IP            string `json:"ip"`
	Hwid          string `json:"hwid"`
	CharacterName string `json:"character_name,omitempty"`
}

// Verdict tells the game host whether to reject the player.
type Verdict struct {
	IsBanned          bool   `json:"is_banned"`
	Reason            string `json:"reason,omitempty"`
	RemainingDuration uint32 `json:"remaining_duration"`
	Permanent         bool   `json:"permanent"`
	Match             string `json:"match"`
}

// Match is the classification of a connection without side effects.
type Match struct {
	Match string `json:"match"`
}

// BanRequest is sent by the game host or an admin tool to ban a player.
type BanRequest struct {
	Instigator     uint64   `json:"instigator"`
	InstigatorName string   `json:"instigator_name,omitempty"`
	Target         uint64   `json:"target"`
	TargetName     string   `json:"target_name,omitempty"`
	IP             string   `json:"ip,omitempty"`
	Hwids          []string `json:"hwids,omitempty"`
	Reason         string   `json:"reason"`
	Duration       uint32   `json:"duration"`
}

// BanRecord is a stored ban.
type BanRecord struct {
	ID        uint64     `json:"id"`
	ServerID  uint64     `json:"server_id"`
	AccountID uint64     `json:"account_id"`
	IP        string     `json:"ip,omitempty"`
	Hwid      string     `json:"hwid,omitempty"`
	TimeOfBan time.Time  `json:"time_of_ban"`
	Duration  uint32     `json:"duration"`
	Permanent bool       `json:"permanent"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason"`
	AdminID   uint64     `json:"admin_id"`
	Escalated bool       `json:"escalated"`
}
