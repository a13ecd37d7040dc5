package model

import (
	"database/sql"
	"math"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/utility"
	"gorm.io/gorm"
)

// PermanentDuration is the duration sentinel of a ban that never expires.
// It doubles as the clamp ceiling for remaining durations.
const PermanentDuration uint32 = math.MaxUint32

// BanRecord is a single ban, either issued by an admin or synthesized on evasion.
// Records are never updated after creation.
type BanRecord struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"    hash:"x" json:"id"`
	ServerID  uint64       `gorm:"index"                       hash:"x" json:"server_id"`   // Originating server.
	AccountID AccountID    `gorm:"index;not null"              hash:"x" json:"account_id"`  // Banned account, 0 when unknown.
	IP        IPv4         `gorm:"index;not null"              hash:"x" json:"ip"`          // 0 when not recorded.
	Hwid      string       `gorm:"index;size:255;not null"     hash:"x" json:"hwid"`        // Empty when not recorded.
	TimeOfBan time.Time    `gorm:"not null"                    hash:"x" json:"time_of_ban"` // Creation time.
	Duration  uint32       `gorm:"not null"                    hash:"x" json:"duration"`    // Seconds, PermanentDuration for permanent.
	ExpiresAt sql.NullTime `gorm:"index"                       json:"expires_at"`           // Derived on insert, null if permanent.
	Reason    string       `gorm:"not null"                    hash:"x" json:"reason"`
	AdminID   AccountID    `gorm:"index;not null"              hash:"x" json:"admin_id"` // 0 for system issued records.

	// EscalationKey is set on system issued records only and is unique across the table.
	EscalationKey *string `gorm:"uniqueIndex;size:64" json:"-"`

	// Meta fields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName - set the table name.
func (BanRecord) TableName() string {
	return "bans"
}

// BeforeCreate derives the expiry column from the ban window.
func (obj *BanRecord) BeforeCreate(_ *gorm.DB) error {
	obj.ExpiresAt = obj.Expiry()
	return nil
}

// Expiry returns the end of the ban window, invalid for permanent bans.
func (obj *BanRecord) Expiry() sql.NullTime {
	if obj.IsPermanent() {
		return sql.NullTime{}
	}

	return sql.NullTime{
		Time:  obj.TimeOfBan.Add(time.Duration(obj.Duration) * time.Second).UTC(),
		Valid: true,
	}
}

// IsPermanent reports whether the record carries the permanent sentinel.
func (obj *BanRecord) IsPermanent() bool {
	return obj.Duration == PermanentDuration
}

// IsSystemIssued reports whether the engine created the record.
func (obj *BanRecord) IsSystemIssued() bool {
	return obj.AdminID == 0
}

// Covers reports whether the record carries exactly this ip and hwid pair.
func (obj *BanRecord) Covers(ip IPv4, hwid string) bool {
	return obj.IP == ip && obj.Hwid == hwid
}

// GetID - get the record ID.
func (obj *BanRecord) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *BanRecord) Hash() (string, error) {
	return utility.Hash(obj)
}

type escalationKey struct {
	AccountID AccountID `hash:"x"`
	IP        IPv4      `hash:"x"`
	Hwid      string    `hash:"x"`
	SourceID  uint64    `hash:"x"`
}

// EscalationKey identifies a synthesized record by the identifier triple it covers
// and the record it was derived from.
func EscalationKey(accountID AccountID, ip IPv4, hwid string, sourceID uint64) (string, error) {
	return utility.Hash(&escalationKey{
		AccountID: accountID,
		IP:        ip,
		Hwid:      hwid,
		SourceID:  sourceID,
	})
}

// SearchMode selects the identifier a ban query matches on.
type SearchMode int

const (
	SearchByAccount SearchMode = iota
	SearchByIP
	SearchByHwid
)

// BanFilter selects in-effect records matching one identifier at a given instant.
type BanFilter struct {
	Mode      SearchMode
	AccountID AccountID
	IP        IPv4
	Hwid      string
	Now       time.Time
}
