package forum

import "context"

// Comment is a single comment as listed by the forum.
type Comment struct {
	// ID is the short identifier (e.g. "k3x9qz"). IDs are compared as
	// strings when deciding what has already been processed.
	ID string `json:"id"`
	// Name is the forum's full name for the comment (e.g. "t1_k3x9qz").
	Name      string `json:"name"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Permalink string `json:"permalink,omitempty"`
}

// Client is the forum capability the bot needs.
type Client interface {
	// RecentComments lists up to limit comments from subreddit, newest first.
	RecentComments(ctx context.Context, subreddit string, limit int) ([]Comment, error)

	// Reply posts text as a reply to c.
	Reply(ctx context.Context, c Comment, text string) error

	// Me returns the name of the authenticated account.
	Me(ctx context.Context) (string, error)
}
