// Package discussions orchestrates the store and the page-metadata fetcher
// into the discussion and comment operations the query surface exposes. It
// is the error boundary: nothing below it leaks raw errors past it.
package discussions

import (
	"context"
	"time"

	"horizont/internal/metadata"
	"horizont/internal/models"
	"horizont/internal/shortid"
	"horizont/internal/store"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Fetcher is the page-metadata dependency of the service.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*metadata.PageMetadata, error)
}

// Service implements the discussion and comment operations.
type Service struct {
	discussions *store.DiscussionStore
	sources     *store.NewsSourceStore
	fetcher     Fetcher
	log         *logrus.Logger
}

// NewService creates a discussion service on top of the given database
// connection and fetcher.
func NewService(db *gorm.DB, fetcher Fetcher, log *logrus.Logger) *Service {
	return &Service{
		discussions: store.NewDiscussionStore(db),
		sources:     store.NewNewsSourceStore(db),
		fetcher:     fetcher,
		log:         log,
	}
}

// CreateDiscussionByURL normalizes and validates the submitted URL, fetches
// the page's metadata, and persists a new discussion owned by owner.
// Re-submitting a URL that already has a discussion returns the existing
// record instead of creating a duplicate: the first writer wins and later
// submissions reuse its cached metadata.
func (s *Service) CreateDiscussionByURL(ctx context.Context, rawURL, owner string) (*models.Discussion, error) {
	normalized, err := metadata.NormalizeURL(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	existing, err := s.discussions.FindByURL(ctx, normalized)
	if err != nil {
		s.log.WithError(err).Debug("discussion lookup by url failed")
		return nil, ErrCreateDiscussion
	}
	if existing != nil {
		s.log.Debug("using page data from existing discussion")
		return existing, nil
	}

	page, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		s.log.WithError(err).WithField("url", normalized).Debug("page metadata fetch failed")
		return nil, ErrCreateDiscussion
	}

	discussion := &models.Discussion{
		URL:                normalized,
		OwnerUsername:      owner,
		Title:              page.Title,
		Description:        page.Description,
		Image:              page.Image,
		IsOpen:             true,
		CreatedAt:          time.Now().UTC(),
		Comments:           models.CommentList{},
		AgreedUsernames:    pq.StringArray{},
		DisagreedUsernames: pq.StringArray{},
	}

	if err := s.discussions.Create(ctx, discussion); err != nil {
		// A concurrent submission of the same URL may have won the unique
		// index race; its record is the canonical one.
		if raced, findErr := s.discussions.FindByURL(ctx, normalized); findErr == nil && raced != nil {
			return raced, nil
		}
		s.log.WithError(err).Debug("discussion create failed")
		return nil, ErrCreateDiscussion
	}

	// Source bookkeeping is a best-effort side channel: its failures are
	// logged and swallowed so they never fail the creation itself.
	s.ensureNewsSource(ctx, normalized, discussion.ShortID)

	return discussion, nil
}

// ensureNewsSource upserts the per-hostname news source for a freshly
// created discussion, fetching the hostname's root page once for its title.
func (s *Service) ensureNewsSource(ctx context.Context, normalizedURL, discussionShortID string) {
	host, err := metadata.Hostname(normalizedURL)
	if err != nil {
		s.log.WithError(err).Warn("news source bookkeeping skipped: no hostname")
		return
	}
	sourceURL := "http://" + host

	source, err := s.sources.FindByURL(ctx, sourceURL)
	if err != nil {
		s.log.WithError(err).Warn("news source lookup failed")
		return
	}

	if source == nil {
		source = &models.NewsSource{URL: sourceURL}
		if page, fetchErr := s.fetcher.Fetch(ctx, sourceURL); fetchErr == nil {
			source.Name = page.Title
		} else {
			s.log.WithError(fetchErr).WithField("url", sourceURL).Warn("news source title fetch failed")
		}
	}

	if err := s.sources.Upsert(ctx, source, discussionShortID); err != nil {
		s.log.WithError(err).Warn("news source upsert failed")
	}
}

// DeleteDiscussion removes the discussion with the given short ID together
// with its comments. A missing discussion is not an error; it reports false.
func (s *Service) DeleteDiscussion(ctx context.Context, shortID string) (bool, error) {
	deleted, err := s.discussions.Delete(ctx, shortID)
	if err != nil {
		s.log.WithError(err).Debug("discussion delete failed")
		return false, ErrDeleteDiscussion
	}
	return deleted, nil
}

// EditDiscussion updates the supplied (non-empty) fields of the discussion
// and stamps its last-edited time when either is given. It reports whether a
// discussion matched the short ID.
func (s *Service) EditDiscussion(ctx context.Context, shortID, newTitle, newDescription string) (bool, error) {
	updates := map[string]interface{}{}
	if newTitle != "" {
		updates["title"] = newTitle
	}
	if newDescription != "" {
		updates["description"] = newDescription
	}

	if len(updates) == 0 {
		// Nothing to change; still report whether the discussion exists.
		discussion, err := s.discussions.FindByShortID(ctx, shortID, "shortId")
		if err != nil {
			s.log.WithError(err).Debug("discussion lookup failed")
			return false, ErrEditDiscussion
		}
		return discussion != nil, nil
	}

	updates["last_edited_at"] = time.Now().UTC()

	matched, err := s.discussions.UpdateFields(ctx, shortID, updates)
	if err != nil {
		s.log.WithError(err).Debug("discussion edit failed")
		return false, ErrEditDiscussion
	}
	return matched, nil
}

// PostComment appends a new comment by owner to the discussion's thread and
// reports whether the parent discussion was found.
func (s *Service) PostComment(ctx context.Context, discussionID, text, owner string) (bool, error) {
	comment := models.Comment{
		ShortID:            shortid.New(),
		Text:               text,
		OwnerUsername:      owner,
		PostedAt:           time.Now().UTC(),
		AgreedUsernames:    []string{},
		DisagreedUsernames: []string{},
	}

	found, err := s.discussions.AppendComment(ctx, discussionID, comment)
	if err != nil {
		s.log.WithError(err).Debug("comment post failed")
		return false, ErrPostComment
	}
	return found, nil
}

// DeleteComment removes the single comment with the given short ID from its
// parent's thread and reports whether a removal occurred.
func (s *Service) DeleteComment(ctx context.Context, commentShortID string) (bool, error) {
	removed, err := s.discussions.RemoveComment(ctx, commentShortID)
	if err != nil {
		s.log.WithError(err).Debug("comment delete failed")
		return false, ErrDeleteComment
	}
	return removed, nil
}

// EditComment replaces the comment's text and stamps its last-edited time,
// reporting whether the comment was found.
func (s *Service) EditComment(ctx context.Context, commentShortID, newText string) (bool, error) {
	updated, err := s.discussions.UpdateCommentText(ctx, commentShortID, newText, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Debug("comment edit failed")
		return false, ErrEditComment
	}
	return updated, nil
}

// AgreeOrDisagree records username's vote on a discussion or, when
// isDiscussion is false, on a comment. The user lands in exactly one of the
// agree/disagree sets regardless of prior votes. A missing target is a
// visible error, unlike the other not-found cases.
func (s *Service) AgreeOrDisagree(ctx context.Context, shortID string, isAgree, isDiscussion bool, username string) error {
	var found bool
	var err error
	if isDiscussion {
		found, err = s.discussions.VoteDiscussion(ctx, shortID, username, isAgree)
	} else {
		found, err = s.discussions.VoteComment(ctx, shortID, username, isAgree)
	}

	if err != nil {
		s.log.WithError(err).Debug("vote failed")
		return ErrVote
	}
	if !found {
		return ErrVoteTargetNotFound
	}
	return nil
}

// GetDiscussions returns up to count discussions for the topic, newest
// first. Only the "local" topic is implemented; other topics yield an empty
// result. The fields projection is pushed down into the store query.
func (s *Service) GetDiscussions(ctx context.Context, topic string, count int, fields []string) ([]models.Discussion, error) {
	if topic != "local" {
		return []models.Discussion{}, nil
	}

	discussions, err := s.discussions.List(ctx, count, fields)
	if err != nil {
		s.log.WithError(err).Debug("discussion list failed")
		return nil, ErrGetDiscussions
	}
	return discussions, nil
}

// GetComments returns the discussion's comments in stored order, limited to
// the first count when count is positive.
func (s *Service) GetComments(ctx context.Context, discussionID string, count int) ([]models.Comment, error) {
	discussion, err := s.discussions.FindByShortID(ctx, discussionID, "comments")
	if err != nil {
		s.log.WithError(err).Debug("comment fetch failed")
		return nil, ErrGetComments
	}
	if discussion == nil {
		return nil, ErrNoDiscussion
	}

	comments := []models.Comment(discussion.Comments)
	if count > 0 && count < len(comments) {
		comments = comments[:count]
	}
	return comments, nil
}
