package views

import (
	"time"

	"github.com/eringen/mediumblog/content"
)

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// CommentFormView is everything the comment region of a post page shows.
type CommentFormView struct {
	Submitted bool
	Action    string
	PostID    string

	Name    string
	Email   string
	Comment string

	// Errors maps a field name (name, email, comment) to its message.
	Errors map[string]string
	// Notice is shown above the form when a submission could not be sent.
	Notice string
}

// PostPageData is the full view model of a post page.
type PostPageData struct {
	Site   SiteConfig
	Post   content.Post
	Form   CommentFormView
	Assets content.AssetURLBuilder
	// Now is the generation time, used for relative dates.
	Now time.Time
}

// HomeData is the view model of the post listing.
type HomeData struct {
	Site   SiteConfig
	Posts  []content.PostSummary
	Assets content.AssetURLBuilder
	Now    time.Time
}
