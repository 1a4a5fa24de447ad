package mediumblog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/views"
)

// RateLimitedNotice is shown on the form when an address submits too often.
const RateLimitedNotice = "Too many comments. Try again later."

// pageCacheControl is the shared-cache policy of generated pages.
func (a *App) pageCacheControl() string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(a.Pages.TTL().Seconds()))
}

func (a *App) handleHome(c echo.Context) error {
	snap, status, err := a.Listing.Get(c.Request().Context(), listingKey)
	if err != nil {
		return err
	}
	c.Response().Header().Set("X-Cache", status.String())
	c.Response().Header().Set("Cache-Control", a.pageCacheControl())
	return Render(c, views.Home(views.HomeData{
		Site:   a.Config.site(),
		Posts:  snap.Value,
		Assets: a.assets,
		Now:    snap.Generated,
	}))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	snap, status, err := a.Pages.Get(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	c.Response().Header().Set("X-Cache", status.String())

	if form := popFormFlash(c, slug); form != nil {
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, views.PostPage(a.postPageData(snap.Value.Post, form, snap.Generated)))
	}
	c.Response().Header().Set("Cache-Control", a.pageCacheControl())
	return c.HTMLBlob(http.StatusOK, snap.Value.HTML)
}

func (a *App) handleCommentForm(c echo.Context) error {
	slug := c.Param("slug")
	snap, _, err := a.Pages.Get(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return a.renderNotFound(c)
		}
		return err
	}
	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	in := CommentInput{
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Comment: c.FormValue("comment"),
	}

	form := NewCommentForm(snap.Value.Post.ID)
	if a.formLimiter.Allow(c.RealIP()) {
		// The outcome is carried by the form state.
		_ = a.Forms.Submit(WithClientIP(c.Request().Context(), c.RealIP()), form, in)
	} else {
		form.Values = in.trimmed()
		form.Values.PostID = form.PostID
		form.Notice = RateLimitedNotice
	}

	if err := saveFormFlash(c, slug, form); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, views.PostPath(slug)+"#comment-form")
}

func (a *App) handleCreateComment(c echo.Context) error {
	if !a.apiLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests. Try again later."})
	}
	var in CommentInput
	if err := json.NewDecoder(c.Request().Body).Decode(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}
	comment, err := a.Comments.Create(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidComment) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if errors.Is(err, content.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "post not found"})
		}
		a.Log.Errorf("[api] create comment for post %s: %v", in.PostID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Couldn't submit comment"})
	}
	a.Log.Infof("[api] comment %s stored for post %s", comment.ID, comment.PostID)
	return c.JSON(http.StatusOK, map[string]string{"message": "Comment submitted"})
}

func (a *App) handleSitemap(c echo.Context) error {
	snap, _, err := a.Listing.Get(c.Request().Context(), listingKey)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, snap.Value)
}

func (a *App) handleFeed(c echo.Context) error {
	snap, _, err := a.Listing.Get(c.Request().Context(), listingKey)
	if err != nil {
		return err
	}
	return a.renderRSS(c, snap.Value)
}

// handleRobots serves robots.txt from the static dir, or a permissive one
// pointing at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	return c.String(http.StatusOK, "User-agent: *\nAllow: /\n\nSitemap: "+strings.TrimRight(a.Config.URL, "/")+"/sitemap.xml\n")
}

// renderNotFound renders the not-found page. It is never cached so a post
// published later shows up on the next request.
func (a *App) renderNotFound(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return RenderStatus(c, http.StatusNotFound, views.NotFound(a.Config.site()))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Errorf("[server] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		c.Response().Header().Set("Cache-Control", "no-store")
		_ = RenderStatus(c, code, views.ServerError(a.Config.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
