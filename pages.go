package mediumblog

import (
	"context"
	"fmt"
	"time"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/views"
)

// Page is a generated post page: the post it was built from and its HTML.
type Page struct {
	Post content.Post
	HTML []byte
}

// buildPage loads the post for slug and renders it with an empty comment
// form. It is the page cache's build function.
func (a *App) buildPage(ctx context.Context, slug string) (Page, error) {
	res, err := a.Loader.LoadPost(ctx, slug)
	if err != nil {
		return Page{}, err
	}
	now := a.now()
	html, err := renderBytes(ctx, views.PostPage(a.postPageData(res.Post, NewCommentForm(res.Post.ID), now)))
	if err != nil {
		return Page{}, fmt.Errorf("render post %q: %w", slug, err)
	}
	return Page{Post: res.Post, HTML: html}, nil
}

func (a *App) postPageData(post content.Post, form *CommentForm, now time.Time) views.PostPageData {
	return views.PostPageData{
		Site:   a.Config.site(),
		Post:   post,
		Form:   form.View(views.CommentPath(post.Slug)),
		Assets: a.assets,
		Now:    now,
	}
}
