package model

import (
	"time"
)

const (
	FileTypeMedia     = "media"
	FileTypeThumbnail = "thumbnail"
)

const OwnerTypeEvent = "event"

type File struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`    // Who owns/created this file
	OwnerType    string    `db:"owner_type"` // "event"
	OwnerID      string    `db:"owner_id"`   // Polymorphic FK
	Type         string    `db:"type"`
	Filename     string    `db:"filename"`
	OriginalName string    `db:"original_name"`
	MimeType     string    `db:"mime_type"`
	Size         int64     `db:"size"`
	StoragePath  string    `db:"storage_path"`
	URL          string    `db:"url"`
	CreatedAt    time.Time `db:"created_at"`
}
