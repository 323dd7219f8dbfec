package discussions

import "errors"

// Service-level failures. The message text is the user-visible contract and
// is passed through the query surface unchanged; underlying causes are
// logged at debug level only and never exposed to callers.
var (
	ErrInvalidURL         = errors.New("The given URL is not valid.")
	ErrCreateDiscussion   = errors.New("Couldn't create new discussion.")
	ErrDeleteDiscussion   = errors.New("Couldn't delete discussion.")
	ErrEditDiscussion     = errors.New("Couldn't edit discussion.")
	ErrPostComment        = errors.New("Couldn't post comment.")
	ErrDeleteComment      = errors.New("Couldn't delete comment.")
	ErrEditComment        = errors.New("Couldn't edit comment.")
	ErrVote               = errors.New("Couldn't register vote.")
	ErrVoteTargetNotFound = errors.New("No discussion or comment exists with this ID.")
	ErrNoDiscussion       = errors.New("No discussion exists with this ID.")
	ErrGetDiscussions     = errors.New("Couldn't get discussions.")
	ErrGetComments        = errors.New("Couldn't get comments for discussion.")
)
