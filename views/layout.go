package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the document shell: head metadata, stylesheet,
// header and the notice script.
func Layout(site SiteConfig, meta PageMeta, jsonLD string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		title := meta.Title
		if title == "" {
			title = site.Name
		} else if site.Name != "" && title != site.Name {
			title += " | " + site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = site.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8"/>`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		if desc != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", desc)
			h.raw("/>")
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw("/>")
			h.raw(`<meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw("/>")
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", title)
		h.raw("/>")
		h.raw(`<meta property="og:type"`)
		h.attr("content", ogType)
		h.raw("/>")
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw("/>")
		}
		h.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		h.attr("title", site.Name)
		h.raw("/>")
		h.raw(`<link rel="stylesheet" href="/public/blog.css"/>`)
		h.raw(`<script src="/public/blog.js" defer></script>`)
		if jsonLD != "" {
			h.raw(`<script type="application/ld+json">`)
			h.raw(jsonLD)
			h.raw(`</script>`)
		}
		h.raw("</head><body><main>")
		h.component(ctx, Header(site))
		h.component(ctx, body)
		h.raw("</main></body></html>")
		return h.err
	})
}
