package models

import "time"

// StoredObject records one object-store write for the periodic orphan sweep.
// Overwrites update the existing row for the same path.
type StoredObject struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Path        string    `gorm:"size:1024;uniqueIndex;not null" json:"path"`
	URL         string    `gorm:"size:1024;not null" json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`
}
