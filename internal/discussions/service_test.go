package discussions

import (
	"context"
	"io"
	"testing"

	"horizont/internal/metadata"
	"horizont/internal/models"
	"horizont/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubFetcher serves canned metadata keyed by normalized URL and counts
// outbound calls.
type stubFetcher struct {
	pages map[string]*metadata.PageMetadata
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string) (*metadata.PageMetadata, error) {
	f.calls++
	if page, ok := f.pages[pageURL]; ok {
		return page, nil
	}
	return nil, metadata.ErrFetch
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupService(t *testing.T) (*Service, *stubFetcher, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	fetcher := &stubFetcher{pages: map[string]*metadata.PageMetadata{
		"http://example.com/article": {
			Title:       "An Article",
			Description: "Something happened.",
			Image:       "http://example.com/lead.jpg",
			URL:         "http://example.com/article",
		},
		"http://example.com": {
			Title: "Example News",
			URL:   "http://example.com/",
		},
	}}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewService(db, fetcher, log), fetcher, db
}

func countDiscussions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Discussion{}).Count(&count).Error)
	return count
}

func TestCreateDiscussionByURL(t *testing.T) {
	service, _, db := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/article", discussion.URL)
	assert.Equal(t, "An Article", discussion.Title)
	assert.Equal(t, "Something happened.", discussion.Description)
	assert.Equal(t, "http://example.com/lead.jpg", discussion.Image)
	assert.Equal(t, "testuser", discussion.OwnerUsername)
	assert.True(t, discussion.IsOpen)
	assert.NotEmpty(t, discussion.ShortID)
	assert.Empty(t, discussion.Comments)

	// Source bookkeeping created one record for the hostname.
	source, err := store.NewNewsSourceStore(db).FindByURL(ctx, "http://example.com")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, "Example News", source.Name)
	assert.Contains(t, []string(source.Articles), discussion.ShortID)
}

func TestCreateDiscussionDedup(t *testing.T) {
	service, fetcher, db := setupService(t)
	ctx := context.Background()

	first, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)
	callsAfterFirst := fetcher.calls

	// Same URL in a different spelling: the existing record comes back and
	// no new fetch happens.
	second, err := service.CreateDiscussionByURL(ctx, "http://example.com/article", "testuser")
	require.NoError(t, err)

	assert.Equal(t, first.ShortID, second.ShortID)
	assert.Equal(t, callsAfterFirst, fetcher.calls)
	assert.EqualValues(t, 1, countDiscussions(t, db))
}

func TestCreateDiscussionInvalidURL(t *testing.T) {
	service, _, db := setupService(t)

	_, err := service.CreateDiscussionByURL(context.Background(), "   ", "testuser")
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.EqualValues(t, 0, countDiscussions(t, db))
}

func TestCreateDiscussionFetchFailure(t *testing.T) {
	service, _, db := setupService(t)

	_, err := service.CreateDiscussionByURL(context.Background(), "unreachable.example/page", "testuser")
	assert.ErrorIs(t, err, ErrCreateDiscussion)
	assert.EqualValues(t, 0, countDiscussions(t, db), "no record persists when the fetch fails")
}

func TestCreateDiscussionSourceFailureIsSwallowed(t *testing.T) {
	service, fetcher, db := setupService(t)
	ctx := context.Background()

	// The article page resolves but its hostname root does not.
	fetcher.pages["http://other.example/story"] = &metadata.PageMetadata{
		Title: "Story", URL: "http://other.example/story",
	}

	discussion, err := service.CreateDiscussionByURL(ctx, "other.example/story", "testuser")
	require.NoError(t, err, "source bookkeeping failures must not fail creation")
	assert.EqualValues(t, 1, countDiscussions(t, db))

	source, err := store.NewNewsSourceStore(db).FindByURL(ctx, "http://other.example")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Empty(t, source.Name)
	assert.Contains(t, []string(source.Articles), discussion.ShortID)
}

func TestEditDiscussion(t *testing.T) {
	service, _, _ := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)

	matched, err := service.EditDiscussion(ctx, discussion.ShortID, "New title", "")
	require.NoError(t, err)
	assert.True(t, matched)

	comments0, err := service.GetDiscussions(ctx, "local", 1, nil)
	require.NoError(t, err)
	require.Len(t, comments0, 1)
	assert.Equal(t, "New title", comments0[0].Title)
	assert.Equal(t, "Something happened.", comments0[0].Description, "unsupplied field stays untouched")
	assert.NotNil(t, comments0[0].LastEditedAt)

	matched, err = service.EditDiscussion(ctx, "missing-id", "x", "y")
	require.NoError(t, err)
	assert.False(t, matched)

	// No fields supplied: reports existence without stamping an edit.
	matched, err = service.EditDiscussion(ctx, discussion.ShortID, "", "")
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestDeleteDiscussion(t *testing.T) {
	service, _, db := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)

	deleted, err := service.DeleteDiscussion(ctx, discussion.ShortID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.EqualValues(t, 0, countDiscussions(t, db))

	// Not-found is not an error.
	deleted, err = service.DeleteDiscussion(ctx, discussion.ShortID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCommentLifecycle(t *testing.T) {
	service, _, _ := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)

	found, err := service.PostComment(ctx, discussion.ShortID, "first!", "alice")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = service.PostComment(ctx, "missing-id", "into the void", "alice")
	require.NoError(t, err)
	assert.False(t, found, "posting to an unknown discussion reports false")

	comments, err := service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "first!", comments[0].Text)
	assert.Equal(t, "alice", comments[0].OwnerUsername)
	assert.NotEmpty(t, comments[0].ShortID)

	updated, err := service.EditComment(ctx, comments[0].ShortID, "first, edited")
	require.NoError(t, err)
	assert.True(t, updated)

	comments, err = service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	assert.Equal(t, "first, edited", comments[0].Text)
	assert.NotNil(t, comments[0].LastEditedAt)

	removed, err := service.DeleteComment(ctx, comments[0].ShortID)
	require.NoError(t, err)
	assert.True(t, removed)

	comments, err = service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestAgreeOrDisagree(t *testing.T) {
	service, _, _ := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)
	require.NoError(t, service.AgreeOrDisagree(ctx, discussion.ShortID, true, true, "alice"))
	require.NoError(t, service.AgreeOrDisagree(ctx, discussion.ShortID, false, true, "alice"))

	list, err := service.GetDiscussions(ctx, "local", 1, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotContains(t, []string(list[0].AgreedUsernames), "alice")
	assert.Contains(t, []string(list[0].DisagreedUsernames), "alice")

	// Comment votes go through the isDiscussion=false path.
	_, err = service.PostComment(ctx, discussion.ShortID, "hm", "bob")
	require.NoError(t, err)
	comments, err := service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	require.NoError(t, service.AgreeOrDisagree(ctx, comments[0].ShortID, true, false, "alice"))

	comments, err = service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	assert.Contains(t, comments[0].AgreedUsernames, "alice")

	// A missing vote target is a visible error.
	err = service.AgreeOrDisagree(ctx, "missing-id", true, true, "alice")
	assert.ErrorIs(t, err, ErrVoteTargetNotFound)
	err = service.AgreeOrDisagree(ctx, "missing-id", true, false, "alice")
	assert.ErrorIs(t, err, ErrVoteTargetNotFound)
}

func TestGetDiscussionsTopicAndOrdering(t *testing.T) {
	service, fetcher, _ := setupService(t)
	ctx := context.Background()

	urls := []string{"http://a.example/1", "http://b.example/2", "http://c.example/3"}
	for _, u := range urls {
		fetcher.pages[u] = &metadata.PageMetadata{Title: u, URL: u}
		_, err := service.CreateDiscussionByURL(ctx, u, "testuser")
		require.NoError(t, err)
	}

	list, err := service.GetDiscussions(ctx, "local", 2, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "http://c.example/3", list[0].URL)
	assert.Equal(t, "http://b.example/2", list[1].URL)
	assert.True(t, !list[0].CreatedAt.Before(list[1].CreatedAt))

	// Unknown topics yield an empty result, not an error.
	list, err = service.GetDiscussions(ctx, "global", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetCommentsCountAndMissing(t *testing.T) {
	service, _, _ := setupService(t)
	ctx := context.Background()

	discussion, err := service.CreateDiscussionByURL(ctx, "example.com/article", "testuser")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := service.PostComment(ctx, discussion.ShortID, text, "testuser")
		require.NoError(t, err)
	}

	comments, err := service.GetComments(ctx, discussion.ShortID, 2)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Text)
	assert.Equal(t, "two", comments[1].Text)

	comments, err = service.GetComments(ctx, discussion.ShortID, 0)
	require.NoError(t, err)
	assert.Len(t, comments, 3)

	_, err = service.GetComments(ctx, "missing-id", 0)
	assert.ErrorIs(t, err, ErrNoDiscussion)
}
