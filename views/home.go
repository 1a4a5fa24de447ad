package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const cardWidth = 640

// Home lists every post, newest first.
func Home(d HomeData) templ.Component {
	meta := PageMeta{
		Title:       d.Site.Name,
		Description: d.Site.Description,
		URL:         BuildURL(d.Site.URL),
	}
	return Layout(d.Site, meta, WebsiteJsonLD(d.Site), templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="posts">`)
		if len(d.Posts) == 0 {
			h.raw(`<p class="posts__empty">No posts yet.</p>`)
		}
		for _, p := range d.Posts {
			h.raw(`<a class="post__card"`)
			h.attr("href", PostPath(p.Slug))
			h.raw(">")
			if src := imageURL(d.Assets, p.MainImage, cardWidth); src != "" {
				h.raw(`<img class="post__card_image" loading="lazy" alt=""`)
				h.attr("src", src)
				h.raw("/>")
			}
			h.raw(`<div class="post__card_text"><h2>`)
			h.text(p.Title)
			h.raw(`</h2>`)
			if p.Description != "" {
				h.raw(`<p>`)
				h.text(p.Description)
				h.raw(`</p>`)
			}
			h.raw(`<time`)
			h.attr("datetime", p.CreatedAt.UTC().Format("2006-01-02"))
			h.raw(">")
			if rel := RelativeTime(p.CreatedAt, d.Now); rel != "" {
				h.text(rel)
			} else {
				h.text(PublishedAt(p.CreatedAt))
			}
			h.raw(`</time></div></a>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}
