package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a minimal identity record. Authentication itself is delegated to
// the host; the service only ever sees a resolved username.
type User struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Username  string    `json:"username" db:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the User model
func (User) TableName() string {
	return "users"
}
