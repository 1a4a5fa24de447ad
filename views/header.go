package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HeaderNotice is shown for header items that lead nowhere yet.
const HeaderNotice = "This is currently just a personal blog show casing the blog aspect. In the future I will make something like that though!"

var (
	leftMenu  = []string{"About", "Contact", "Follow"}
	rightMenu = []string{"Log in", "Get Started"}
)

// Header renders the marketing header: the logo linking home and menu
// items that only show a notice.
func Header(site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		alt := "The logo for " + site.Name
		h.raw(`<header class="nav"><div class="nav__left"><a href="/"><img src="/public/logo.svg" height="80" width="80"`)
		h.attr("alt", alt)
		h.raw(`/></a><div class="nav__menu">`)
		menuItems(h, leftMenu)
		h.raw(`</div></div><div class="lines__wrapper"><div class="line"></div><div class="line"></div><div class="line"></div></div>`)
		h.raw(`<div class="nav__right">`)
		menuItems(h, rightMenu)
		h.raw(`</div></header>`)
		return h.err
	})
}

func menuItems(h *htmlWriter, items []string) {
	for _, item := range items {
		h.raw(`<button type="button" class="nav__item"`)
		h.attr("data-notice", HeaderNotice)
		h.raw(">")
		h.text(item)
		h.raw("</button>")
	}
}
