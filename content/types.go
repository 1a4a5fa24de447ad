// Package content loads blog posts from a document source and maps the raw
// documents into the typed models the views render.
package content

import (
	"context"
	"errors"
	"time"

	"github.com/eringen/mediumblog/portabletext"
	"github.com/eringen/mediumblog/sanity"
)

var (
	// ErrNotFound reports that no post exists for a slug.
	ErrNotFound = errors.New("content: not found")
	// ErrMalformedDocument reports a document missing a required field or
	// carrying a value that cannot be parsed.
	ErrMalformedDocument = errors.New("content: malformed document")
)

// DefaultRevalidate is how long a generated post page stays fresh.
const DefaultRevalidate = 60 * time.Second

// Author is the writer of a post.
type Author struct {
	Name  string
	Image *sanity.ImageRef
}

// Comment is a reader comment. Only approved comments are ever attached to
// a Post.
type Comment struct {
	ID        string
	PostID    string
	Name      string
	Email     string
	Text      string
	Approved  bool
	CreatedAt time.Time
}

// Post is a fully loaded blog post.
type Post struct {
	ID          string
	CreatedAt   time.Time
	Title       string
	Description string
	Slug        string
	Body        portabletext.Blocks
	MainImage   *sanity.ImageRef
	Author      Author
	Comments    []Comment
}

// PostSummary is the slice of a post shown in listings, feeds and sitemaps.
type PostSummary struct {
	ID          string
	Slug        string
	Title       string
	Description string
	CreatedAt   time.Time
	MainImage   *sanity.ImageRef
}

// FallbackMode tells the server what to do for routes that were not
// generated ahead of time.
type FallbackMode int

const (
	// FallbackNone serves 404 for routes outside the generated set.
	FallbackNone FallbackMode = iota
	// FallbackBlocking generates the page on first request while the
	// requester waits, then caches it.
	FallbackBlocking
)

func (m FallbackMode) String() string {
	switch m {
	case FallbackBlocking:
		return "blocking"
	default:
		return "none"
	}
}

// RouteParams are the dynamic segments of a post route.
type RouteParams struct {
	Slug string
}

// Route is one post route to generate.
type Route struct {
	Params RouteParams
}

// Paths is the set of routes to generate ahead of time.
type Paths struct {
	Routes   []Route
	Fallback FallbackMode
}

// PostResult is a loaded post plus how long its page stays fresh.
type PostResult struct {
	Post       Post
	Revalidate time.Duration
}

// Source is a read-only document store holding posts, authors and comments.
type Source interface {
	// PostRoutes returns the id and slug of every post.
	PostRoutes(ctx context.Context) ([]RouteDocument, error)
	// PostBySlug returns the post with its author and approved comments,
	// or nil when there is none.
	PostBySlug(ctx context.Context, slug string) (*PostDocument, error)
	// PostSummaries returns every post, newest first.
	PostSummaries(ctx context.Context) ([]SummaryDocument, error)
}

// CommentSink persists new comments awaiting moderation.
type CommentSink interface {
	CreateComment(ctx context.Context, c Comment) error
}

// AssetURLBuilder resolves image references to URLs. A positive width asks
// for a resized rendition.
type AssetURLBuilder interface {
	ImageURL(ref sanity.ImageRef, width int) string
}
