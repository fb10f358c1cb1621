package models

import "time"

// Post is one entry on the shared wall. ID and CreatedAt are assigned by the
// persistent store on creation; posts are never updated or deleted. Author is
// always nil in this system (no authentication layer).
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Author    *string   `gorm:"size:64" json:"author"`
	Content   string    `gorm:"size:1120;not null" json:"content"`
	ImageURL  string    `gorm:"size:1024" json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Draft is the client-composed part of a post before the store assigns
// identity and timestamp.
type Draft struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// MaxContentRunes is the content length ceiling, counted in Unicode code
// points, enforced at every submission boundary.
const MaxContentRunes = 280
