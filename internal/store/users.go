package store

import (
	"context"
	"errors"

	"horizont/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaceholderUsername is the identity every request falls back to until the
// host wires real session handling in front of the service.
const PlaceholderUsername = "testuser"

// UserStore handles persistence for user identity records. Usernames on
// discussions and comments are plain strings; this store is the read-time
// join target for resolving them.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByUsername returns the user with the given username, or nil when none
// exists.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsurePlaceholder creates the placeholder user if it is missing, so owner
// lookups always resolve.
func (s *UserStore) EnsurePlaceholder(ctx context.Context) error {
	user := &models.User{
		ID:       uuid.New(),
		Username: PlaceholderUsername,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(user).Error
}
