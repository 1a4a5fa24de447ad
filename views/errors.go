package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func errorPage(site SiteConfig, title, message string) templ.Component {
	return Layout(site, PageMeta{Title: title}, "", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="error"><h1 class="blog__title">`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><p><a class="blue-text under-hover" href="/">Back to all posts</a></p></section>`)
		return h.err
	}))
}

// NotFound is rendered with status 404.
func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, "Page not found", "The page you are looking for does not exist.")
}

// ServerError is rendered with status 500.
func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, "Something went wrong", "Please try again in a moment.")
}
