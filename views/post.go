package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/portabletext"
	"github.com/eringen/mediumblog/sanity"
)

const (
	heroWidth   = 1600
	avatarWidth = 96
	bodyWidth   = 720
)

// postSerializers style the rich-text body of a post.
var postSerializers = portabletext.Serializers{
	Styles: map[string]portabletext.StyleFunc{
		"h1": portabletext.HeadingClass("h1", "twenty-two-size-font font-bold mtopbot-20"),
		"h2": portabletext.HeadingClass("h2", "twenty-size-font font-bold mtopbot-20"),
	},
	Marks: map[string]portabletext.MarkFunc{
		"link": portabletext.Link("blue-text under-hover"),
	},
	ListItem: portabletext.HeadingClass("li", "mleft-16 list-disc"),
}

// Body renders the rich-text content of a post with the blog's styling.
// Inline images are resolved through assets.
func Body(blocks portabletext.Blocks, assets content.AssetURLBuilder) templ.Component {
	var resolve func(string) string
	if assets != nil {
		resolve = func(ref string) string {
			r, err := sanity.ParseImageRef(ref)
			if err != nil {
				return ""
			}
			return assets.ImageURL(r, bodyWidth)
		}
	}
	return portabletext.New(postSerializers, resolve).Component(blocks)
}

// PostPage renders a post: header, hero image, title, byline, body, the
// comment region and the approved comments.
func PostPage(d PostPageData) templ.Component {
	hero := imageURL(d.Assets, d.Post.MainImage, heroWidth)
	meta := PageMeta{
		Title:       d.Post.Title,
		Description: d.Post.Description,
		URL:         BuildURL(d.Site.URL, "post", d.Post.Slug),
		OGType:      "article",
		Image:       hero,
	}
	jsonLD := BlogPostingJsonLD(d.Site, d.Post, hero, portabletext.WordCount(d.Post.Body))
	return Layout(d.Site, meta, jsonLD, postContent(d, hero))
}

func postContent(d PostPageData, hero string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		p := d.Post

		if hero != "" {
			h.raw(`<img class="blog_main__image" alt="Main image for blog"`)
			h.attr("src", hero)
			h.raw("/>")
		}

		h.raw(`<article class="article__width"><h1 class="blog__title">`)
		h.text(p.Title)
		h.raw(`</h1>`)
		if p.Description != "" {
			h.raw(`<h2 class="blog__description">`)
			h.text(p.Description)
			h.raw(`</h2>`)
		}

		h.raw(`<div class="blog__top_styles">`)
		if avatar := imageURL(d.Assets, p.Author.Image, avatarWidth); avatar != "" {
			h.raw(`<img class="author__image" alt=""`)
			h.attr("src", avatar)
			h.raw("/>")
		}
		h.raw(`<p class="post__info">Blog post by <span class="green-text">`)
		h.text(p.Author.Name)
		h.raw(`</span> - published at <time`)
		h.attr("datetime", p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
		if rel := RelativeTime(p.CreatedAt, d.Now); rel != "" {
			h.attr("title", rel)
		}
		h.raw(">")
		h.text(PublishedAt(p.CreatedAt))
		h.raw(`</time></p></div>`)

		h.raw(`<div class="blog__body">`)
		h.component(ctx, Body(p.Body, d.Assets))
		h.raw(`</div></article><hr class="blog_end_line"/>`)

		h.component(ctx, CommentRegion(d.Form))
		h.component(ctx, CommentList(p.Comments))
		return h.err
	})
}

// fieldOrder is the order form errors are listed in.
var fieldOrder = []string{"name", "email", "comment"}

// CommentRegion shows the acknowledgment once a comment was submitted and
// the form otherwise.
func CommentRegion(f CommentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if f.Submitted {
			h.raw(`<div class="on_submit_styling" id="comment-form"><h3>Thank you for submitting your comment!</h3>`)
			h.raw(`<p>Once it has been approved, it will appear below!</p></div>`)
			return h.err
		}

		h.raw(`<form class="blog__form" id="comment-form" method="post"`)
		h.attr("action", f.Action)
		h.raw(`><h3>Enjoyed this Article?</h3><h4>Leave a Comment below!</h4><hr/>`)
		if f.Notice != "" {
			h.raw(`<p class="red-text" role="alert">`)
			h.text(f.Notice)
			h.raw(`</p>`)
		}
		h.raw(`<input type="hidden" name="_id"`)
		h.attr("value", f.PostID)
		h.raw("/>")

		h.raw(`<label class="bottom-margin-20 display-block"><span class="color-grey">Name</span>`)
		h.raw(`<input class="box-shadow rounded-border form-input display-block w-full" name="name" type="text" placeholder="John Appleseed"`)
		h.attr("value", f.Name)
		h.raw(`/></label>`)

		h.raw(`<label class="bottom-margin-20 display-block"><span class="color-grey">Email</span>`)
		h.raw(`<input class="box-shadow rounded-border form-input display-block w-full" name="email" type="email" placeholder="John.Appleseed@email.com"`)
		h.attr("value", f.Email)
		h.raw(`/></label>`)

		h.raw(`<label class="bottom-margin-20 display-block"><span class="color-grey">Comment</span>`)
		h.raw(`<textarea class="box-shadow rounded-border form-input display-block w-full" name="comment" rows="8" placeholder="Comment about whatever!">`)
		h.text(f.Comment)
		h.raw(`</textarea></label>`)

		h.raw(`<div class="flex-col">`)
		for _, field := range fieldOrder {
			if msg, ok := f.Errors[field]; ok {
				h.raw(`<span class="red-text">- `)
				h.text(msg)
				h.raw(`</span>`)
			}
		}
		h.raw(`</div><input type="submit" class="button" value="Submit"/></form>`)
		return h.err
	})
}

// CommentList renders approved comments as "NAME: TEXT".
func CommentList(comments []content.Comment) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="flex-col padding-40 mtopbot-40 max-width-672 m-0-auto yellow-shadow" id="comments">`)
		h.raw(`<h3 class="thirty-six-font">Comments</h3><hr class="comment__padding"/>`)
		for _, c := range comments {
			h.raw(`<div class="comment"`)
			h.attr("id", "comment-"+c.ID)
			h.raw(`><p><span class="yellow-text">`)
			h.text(c.Name)
			h.raw(`: </span>`)
			h.text(c.Text)
			h.raw(`</p></div>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
