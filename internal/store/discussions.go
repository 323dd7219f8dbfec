package store

import (
	"context"
	"errors"
	"time"

	"horizont/internal/models"
	"horizont/internal/shortid"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DiscussionStore handles persistence for discussions and their embedded
// comment threads.
type DiscussionStore struct {
	db *gorm.DB
}

// NewDiscussionStore creates a new discussion store
func NewDiscussionStore(db *gorm.DB) *DiscussionStore {
	return &DiscussionStore{db: db}
}

// discussionColumns maps API field names to database columns for projection.
var discussionColumns = map[string]string{
	"id":                 "id",
	"shortId":            "short_id",
	"url":                "url",
	"ownerUsername":      "owner_username",
	"title":              "title",
	"description":        "description",
	"image":              "image",
	"isOpen":             "is_open",
	"createdAt":          "created_at",
	"lastEditedAt":       "last_edited_at",
	"comments":           "comments",
	"agreedUsernames":    "agreed_usernames",
	"disagreedUsernames": "disagreed_usernames",
}

// projectColumns translates requested field names into SELECT columns.
// Unknown fields are dropped; an empty result means "select everything".
func projectColumns(fields []string) []string {
	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		if column, ok := discussionColumns[field]; ok {
			columns = append(columns, column)
		}
	}
	return columns
}

// Create persists a new discussion, assigning its primary key and short ID
// when unset. A short-ID collision on the unique index is retried once with
// a fresh ID; any other constraint violation surfaces to the caller.
func (s *DiscussionStore) Create(ctx context.Context, discussion *models.Discussion) error {
	if discussion.ID == uuid.Nil {
		discussion.ID = uuid.New()
	}
	if discussion.ShortID == "" {
		discussion.ShortID = shortid.New()
	}
	if discussion.Comments == nil {
		discussion.Comments = models.CommentList{}
	}

	err := s.db.WithContext(ctx).Create(discussion).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		discussion.ShortID = shortid.New()
		err = s.db.WithContext(ctx).Create(discussion).Error
	}
	return err
}

// FindByURL returns the discussion stored under the normalized URL, or nil
// when none exists.
func (s *DiscussionStore) FindByURL(ctx context.Context, url string) (*models.Discussion, error) {
	var discussion models.Discussion
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&discussion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &discussion, nil
}

// FindByShortID returns the discussion with the given short ID, or nil when
// none exists. When fields are given only those columns are fetched.
func (s *DiscussionStore) FindByShortID(ctx context.Context, shortID string, fields ...string) (*models.Discussion, error) {
	query := s.db.WithContext(ctx).Where("short_id = ?", shortID)
	if columns := projectColumns(fields); len(columns) > 0 {
		query = query.Select(columns)
	}

	var discussion models.Discussion
	err := query.First(&discussion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &discussion, nil
}

// List returns up to limit discussions, newest first. The projection is
// pushed into the SELECT so unrequested columns never leave the database.
func (s *DiscussionStore) List(ctx context.Context, limit int, fields []string) ([]models.Discussion, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if columns := projectColumns(fields); len(columns) > 0 {
		query = query.Select(columns)
	}

	var discussions []models.Discussion
	if err := query.Find(&discussions).Error; err != nil {
		return nil, err
	}
	return discussions, nil
}

// UpdateFields applies a partial column update to the discussion with the
// given short ID and reports whether a record matched.
func (s *DiscussionStore) UpdateFields(ctx context.Context, shortID string, updates map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Discussion{}).
		Where("short_id = ?", shortID).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// Delete removes the discussion with the given short ID, implicitly deleting
// its embedded comments, and reports whether a record was removed.
func (s *DiscussionStore) Delete(ctx context.Context, shortID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("short_id = ?", shortID).Delete(&models.Discussion{})
	return result.RowsAffected > 0, result.Error
}

// AppendComment adds a comment to the end of the discussion's thread and
// reports whether the parent discussion was found.
func (s *DiscussionStore) AppendComment(ctx context.Context, discussionShortID string, comment models.Comment) (bool, error) {
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discussion models.Discussion
		err := forUpdate(tx).Where("short_id = ?", discussionShortID).First(&discussion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		discussion.Comments = append(discussion.Comments, comment)
		return tx.Model(&discussion).Update("comments", discussion.Comments).Error
	})
	return found, err
}

// findByCommentID loads, under the transaction's lock, the discussion whose
// thread contains the comment with the given short ID. The LIKE filter
// narrows candidates cheaply; the in-memory check is authoritative.
func findByCommentID(tx *gorm.DB, commentShortID string) (*models.Discussion, int, error) {
	var candidates []models.Discussion
	err := forUpdate(tx).
		Where("comments LIKE ?", "%"+commentShortID+"%").
		Find(&candidates).Error
	if err != nil {
		return nil, -1, err
	}

	for i := range candidates {
		if idx := candidates[i].Comments.IndexOf(commentShortID); idx >= 0 {
			return &candidates[i], idx, nil
		}
	}
	return nil, -1, nil
}

// RemoveComment splices the comment with the given short ID out of its
// parent's thread and reports whether a removal occurred.
func (s *DiscussionStore) RemoveComment(ctx context.Context, commentShortID string) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		discussion, idx, err := findByCommentID(tx, commentShortID)
		if err != nil || discussion == nil {
			return err
		}

		removed = true
		discussion.Comments = append(discussion.Comments[:idx], discussion.Comments[idx+1:]...)
		return tx.Model(discussion).Update("comments", discussion.Comments).Error
	})
	return removed, err
}

// UpdateCommentText replaces the comment's text and stamps its last-edited
// time, reporting whether the comment was found.
func (s *DiscussionStore) UpdateCommentText(ctx context.Context, commentShortID, text string, editedAt time.Time) (bool, error) {
	updated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		discussion, idx, err := findByCommentID(tx, commentShortID)
		if err != nil || discussion == nil {
			return err
		}

		updated = true
		discussion.Comments[idx].Text = text
		discussion.Comments[idx].LastEditedAt = &editedAt
		return tx.Model(discussion).Update("comments", discussion.Comments).Error
	})
	return updated, err
}

// VoteDiscussion records an agree or disagree vote by username on the
// discussion. The username is added to one set and removed from the other in
// the same atomic operation, so a user is never in both.
func (s *DiscussionStore) VoteDiscussion(ctx context.Context, shortID, username string, agree bool) (bool, error) {
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discussion models.Discussion
		err := forUpdate(tx).Where("short_id = ?", shortID).First(&discussion).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		agreed, disagreed := applyVote(discussion.AgreedUsernames, discussion.DisagreedUsernames, username, agree)
		return tx.Model(&discussion).Updates(map[string]interface{}{
			"agreed_usernames":    pq.StringArray(agreed),
			"disagreed_usernames": pq.StringArray(disagreed),
		}).Error
	})
	return found, err
}

// VoteComment records an agree or disagree vote by username on the comment
// with the given short ID, with the same mutual-exclusion guarantee as
// VoteDiscussion.
func (s *DiscussionStore) VoteComment(ctx context.Context, commentShortID, username string, agree bool) (bool, error) {
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		discussion, idx, err := findByCommentID(tx, commentShortID)
		if err != nil || discussion == nil {
			return err
		}

		found = true
		comment := &discussion.Comments[idx]
		comment.AgreedUsernames, comment.DisagreedUsernames = applyVote(comment.AgreedUsernames, comment.DisagreedUsernames, username, agree)
		return tx.Model(discussion).Update("comments", discussion.Comments).Error
	})
	return found, err
}

func applyVote(agreed, disagreed []string, username string, agree bool) ([]string, []string) {
	if agree {
		return addToSet(agreed, username), removeFromSet(disagreed, username)
	}
	return removeFromSet(agreed, username), addToSet(disagreed, username)
}
