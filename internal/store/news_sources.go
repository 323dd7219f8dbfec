package store

import (
	"context"
	"errors"

	"horizont/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsSourceStore handles persistence for per-hostname news sources.
type NewsSourceStore struct {
	db *gorm.DB
}

// NewNewsSourceStore creates a new news source store
func NewNewsSourceStore(db *gorm.DB) *NewsSourceStore {
	return &NewsSourceStore{db: db}
}

// FindByURL returns the news source stored under the hostname-level URL, or
// nil when none exists.
func (s *NewsSourceStore) FindByURL(ctx context.Context, url string) (*models.NewsSource, error) {
	var source models.NewsSource
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// Upsert creates the news source unless one already exists for its URL, then
// makes sure articleShortID is in the article list. The unique index on url
// resolves concurrent creators for the same hostname: the losing insert
// degrades into an article append on the winner's record.
func (s *NewsSourceStore) Upsert(ctx context.Context, source *models.NewsSource, articleShortID string) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	source.Articles = pq.StringArray(addToSet(source.Articles, articleShortID))

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).Create(source)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// Lost the race or the source predates this article: append to the
		// existing record instead.
		var existing models.NewsSource
		if err := forUpdate(tx).Where("url = ?", source.URL).First(&existing).Error; err != nil {
			return err
		}

		articles := addToSet(existing.Articles, articleShortID)
		if len(articles) == len(existing.Articles) {
			return nil
		}
		return tx.Model(&existing).Update("articles", pq.StringArray(articles)).Error
	})
}
