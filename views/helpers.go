package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/sanity"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostPath is the site-relative URL of a post.
func PostPath(slug string) string {
	return "/post/" + url.PathEscape(slug) + "/"
}

// CommentPath is where the comment form of a post posts to.
func CommentPath(slug string) string {
	return PostPath(slug) + "comment/"
}

// PublishedAt formats a publish date for the byline.
func PublishedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

// RelativeTime renders t relative to now, e.g. "3 days ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() || now.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func imageURL(assets content.AssetURLBuilder, ref *sanity.ImageRef, width int) string {
	if assets == nil || ref == nil {
		return ""
	}
	return assets.ImageURL(*ref, width)
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post content.Post, image string, words int) string {
	postURL := BuildURL(cfg.URL, "post", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Description,
		"datePublished": post.CreatedAt.Format(time.RFC3339),
		"url":           postURL,
		"commentCount":  len(post.Comments),
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	author := post.Author.Name
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if image != "" {
		data["image"] = image
	}
	if words > 0 {
		data["wordCount"] = words
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
