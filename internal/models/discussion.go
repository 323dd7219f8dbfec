package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Comment is a single reply embedded in its parent Discussion. It never
// exists as a standalone row; the parent's comments column owns it, so a
// parent update rewrites the whole list atomically.
type Comment struct {
	ShortID            string     `json:"shortId"`
	Text               string     `json:"text"`
	OwnerUsername      string     `json:"ownerUsername"`
	PostedAt           time.Time  `json:"postedAt"`
	LastEditedAt       *time.Time `json:"lastEditedAt,omitempty"`
	Image              string     `json:"image,omitempty"`
	URL                string     `json:"url,omitempty"`
	Type               string     `json:"type,omitempty"`
	AgreedUsernames    []string   `json:"agreedUsernames"`
	DisagreedUsernames []string   `json:"disagreedUsernames"`
}

// CommentList stores the ordered comment thread as a single JSON document
// column. Insertion order is the authoritative display order.
type CommentList []Comment

// Value implements driver.Valuer.
func (l CommentList) Value() (driver.Value, error) {
	if l == nil {
		l = CommentList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CommentList) Scan(value interface{}) error {
	if value == nil {
		*l = CommentList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into CommentList", value)
	}
}

// IndexOf returns the position of the comment with the given short ID, or -1.
func (l CommentList) IndexOf(shortID string) int {
	for i := range l {
		if l[i].ShortID == shortID {
			return i
		}
	}
	return -1
}

// Location is an optional place attached to a discussion.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude" gorm:"index:idx_discussions_coordinates,priority:1"`
	Longitude float64 `json:"longitude" gorm:"index:idx_discussions_coordinates,priority:2"`
}

// Discussion represents a user-submitted link with extracted page metadata
// and its comment thread. The URL is normalized and unique: re-submitting an
// existing URL returns the existing record instead of creating a duplicate.
type Discussion struct {
	ID            uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ShortID       string     `json:"shortId" db:"short_id" gorm:"uniqueIndex;not null"`
	URL           string     `json:"url" db:"url" gorm:"uniqueIndex;not null"`
	OwnerUsername string     `json:"ownerUsername" db:"owner_username"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Image         string     `json:"image" db:"image"`
	IsOpen        bool       `json:"isOpen" db:"is_open" gorm:"index:idx_discussions_feed,priority:2;default:true"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at" gorm:"index:idx_discussions_feed,priority:1"`
	LastEditedAt  *time.Time `json:"lastEditedAt" db:"last_edited_at"`
	Location      Location   `json:"location" gorm:"embedded;embeddedPrefix:location_"`

	Comments           CommentList    `json:"comments" db:"comments" gorm:"type:text"`
	AgreedUsernames    pq.StringArray `json:"agreedUsernames" db:"agreed_usernames" gorm:"type:text[]"`
	DisagreedUsernames pq.StringArray `json:"disagreedUsernames" db:"disagreed_usernames" gorm:"type:text[]"`
}

// TableName sets the table name for the Discussion model
func (Discussion) TableName() string {
	return "discussions"
}
