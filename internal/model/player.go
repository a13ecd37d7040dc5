package model

import (
	"database/sql"
	"math"
	"strconv"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/utility"
	"gorm.io/gorm"
)

type (
	AccountID uint64
)

// MaxAccountID is the largest account id every supported database stores as a signed bigint.
const MaxAccountID AccountID = math.MaxInt64

// AccountIDFrom converts a host supplied id. Ids above MaxAccountID become unknown (0).
func AccountIDFrom(id uint64) AccountID {
	if id > uint64(MaxAccountID) {
		return 0
	}

	return AccountID(id)
}

// Player is the last known identity of an account, used to resolve display names.
type Player struct {
	ID AccountID `gorm:"primaryKey;autoIncrement:false" hash:"x" json:"id"` // Stable account identifier issued by the host.

	// Player fields
	CharacterName string `hash:"x" json:"character_name"`                 // In-game display name.
	LastIP        IPv4   `hash:"x" json:"last_ip"`                        // Address of the last connection.
	LastHwid      string `gorm:"size:255" hash:"x" json:"last_hwid"`      // Hardware fingerprint of the last connection.
	ServerID      uint64 `gorm:"index" hash:"x" json:"server_id"`         // Server of the last connection.

	// Additional fields
	LastSeen sql.NullTime `hash:"x" json:"last_seen"` // Time of the last connection attempt.

	// Meta fields
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"` // Time when the player was last updated.
	DeletedAt gorm.DeletedAt `gorm:"index"          json:"deleted_at"` // Soft delete.
	Extra     string         `json:"extra"`                            // Extra data.
}

// Update seen time for the player.
func (obj *Player) Seen() *Player {
	obj.LastSeen = sql.NullTime{
		Time:  time.Now().UTC(),
		Valid: true,
	}

	return obj
}

// TableName - set the table name.
func (Player) TableName() string {
	return "players"
}

// GetID - get the account ID.
func (obj *Player) GetID() int64 {
	return int64(obj.ID)
}

// ToUint64 - get the account ID.
func (id AccountID) ToUint64() uint64 {
	return uint64(id)
}

// ToString - get the account ID.
func (id AccountID) ToString() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Hash - calculate the hash of the object.
func (obj *Player) Hash() (string, error) {
	return utility.Hash(obj)
}
