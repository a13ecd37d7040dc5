package model

// Entity is a stored row with a stable id and a content hash.
type Entity interface {
	GetID() int64
	Hash() (string, error)
}

var (
	_ Entity = (*BanRecord)(nil)
	_ Entity = (*Player)(nil)
)
