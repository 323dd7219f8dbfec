package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NewsSource aggregates discussions originating from the same hostname. It is
// created lazily the first time a discussion from that hostname is submitted;
// the URL unique index guarantees at most one record per hostname.
type NewsSource struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	URL    string    `json:"url" db:"url" gorm:"uniqueIndex;not null"` // hostname-level URL
	Name   string    `json:"name" db:"name"`
	IsUser bool      `json:"isUser" db:"is_user" gorm:"default:false"`

	// Short IDs of discussions submitted from this hostname. References,
	// not ownership: deleting a discussion does not touch this list.
	Articles pq.StringArray `json:"articles" db:"articles" gorm:"type:text[]"`
}

// TableName sets the table name for the NewsSource model
func (NewsSource) TableName() string {
	return "news_sources"
}
