package model

import "time"

// Server is a game server instance sharing the ban list.
type Server struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Instance string `gorm:"uniqueIndex;size:128;not null" json:"instance"`

	// Meta fields
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// TableName - set the table name.
func (Server) TableName() string {
	return "servers"
}
