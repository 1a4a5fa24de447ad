// Package mediumblog is a personal blog server built with Go, Echo, and templ.
//
// Post pages are generated from a document store, kept in a stale-while-
// revalidate page cache and carry a comment form whose submissions are
// stored for moderation.
package mediumblog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/isr"
	"github.com/eringen/mediumblog/sanity"
)

const listingKey = "posts"

// App is the central blog application. It wires together the content
// source, page cache, handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Log    *log.Logger

	Loader   *content.Loader
	Pages    *isr.Cache[Page]
	Listing  *isr.Cache[[]content.PostSummary]
	Forms    *FormController
	Comments *CommentService
	Store    *Store // set for the sqlite backend
	Routes   []content.Route

	source       content.Source
	sink         content.CommentSink
	assets       content.AssetURLBuilder
	dispatcher   Dispatcher
	formLimiter  *SubmitLimiter
	apiLimiter   *SubmitLimiter
	now          func() time.Time
	customRoutes []func(*App)
	initialized  bool
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithSource reads posts from src instead of the configured backend.
func WithSource(src content.Source) Option {
	return func(a *App) { a.source = src }
}

// WithCommentSink stores comments in sink instead of the configured backend.
func WithCommentSink(sink content.CommentSink) Option {
	return func(a *App) { a.sink = sink }
}

// WithAssets resolves image URLs through b.
func WithAssets(b content.AssetURLBuilder) Option {
	return func(a *App) { a.assets = b }
}

// WithDispatcher sends form submissions through d.
func WithDispatcher(d Dispatcher) Option {
	return func(a *App) { a.dispatcher = d }
}

// WithClock replaces time.Now for page generation and comments.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l *log.Logger) Option {
	return func(a *App) { a.Log = l }
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Log:    log.StandardLogger(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init connects the content backend, sets up routes and generates every
// known post page. Any failure leaves the app unusable.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := a.setupBackend(); err != nil {
		return err
	}

	a.Loader = content.NewLoader(a.source, content.WithRevalidate(a.Config.Revalidate()))
	cacheOpts := []isr.Option{
		isr.WithClock(a.now),
		isr.WithLogger(a.Log),
		isr.WithEvict(func(err error) bool { return errors.Is(err, content.ErrNotFound) }),
	}
	a.Pages = isr.New[Page](a.Loader.Revalidate(), a.buildPage, cacheOpts...)
	a.Listing = isr.New[[]content.PostSummary](a.Loader.Revalidate(), func(ctx context.Context, _ string) ([]content.PostSummary, error) {
		return a.Loader.ListPosts(ctx)
	}, cacheOpts...)

	a.Comments = NewCommentService(a.sink, a.now)
	if a.dispatcher == nil {
		if a.Config.CommentEndpoint != "" {
			a.dispatcher = NewHTTPDispatcher(a.Config.CommentEndpoint, nil)
		} else {
			a.dispatcher = serviceDispatcher{svc: a.Comments}
		}
	}
	a.Forms = NewFormController(a.dispatcher, a.Log)
	a.formLimiter = NewSubmitLimiter(5, time.Minute)
	a.apiLimiter = NewSubmitLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	routes, err := a.GeneratePages(ctx)
	if err != nil {
		a.Close()
		return err
	}
	a.Log.Infof("[server] generated %d post pages", len(routes))
	a.Routes = routes
	a.initialized = true
	return nil
}

func (a *App) setupBackend() error {
	switch a.Config.Backend {
	case BackendSQLite:
		if a.source == nil || a.sink == nil {
			store, err := NewStore(a.Config.DatabasePath)
			if err != nil {
				return fmt.Errorf("mediumblog: init store: %w", err)
			}
			a.Store = store
			if a.source == nil {
				a.source = store
			}
			if a.sink == nil {
				a.sink = store
			}
		}
		if a.assets == nil {
			a.assets = localAssets{prefix: "/public/" + uploadsSubdir}
		}
	default:
		scfg := a.Config.SanityClientConfig()
		if a.source == nil || a.sink == nil {
			client, err := sanity.New(scfg)
			if err != nil {
				return fmt.Errorf("mediumblog: init sanity client: %w", err)
			}
			src := content.NewSanitySource(client)
			if a.source == nil {
				a.source = src
			}
			if a.sink == nil {
				a.sink = src
			}
		}
		if a.assets == nil {
			a.assets = sanity.NewImageBuilder(scfg)
		}
	}
	return nil
}

// GeneratePages resolves the static paths and renders every route into the
// page cache. Nothing is cached unless every route renders.
func (a *App) GeneratePages(ctx context.Context) ([]content.Route, error) {
	paths, err := a.Loader.StaticPaths(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(paths.Routes))
	for _, r := range paths.Routes {
		keys = append(keys, r.Params.Slug)
	}
	if err := a.Pages.Prime(ctx, keys); err != nil {
		return nil, err
	}
	return paths.Routes, nil
}

// Start initializes the app if needed and starts the server.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.Log.Infof("[server] listening on %s", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waits for background page regeneration and
// releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Pages != nil {
		a.Pages.Wait()
	}
	if a.Listing != nil {
		a.Listing.Wait()
	}
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	for _, l := range []*SubmitLimiter{a.formLimiter, a.apiLimiter} {
		if l != nil {
			l.Stop()
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS)))
	for _, name := range []string{"blog.css", "blog.js", "logo.svg"} {
		e.GET("/public/"+name, echo.WrapHandler(embeddedHandler))
	}

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/post/:slug/", a.handlePost)
	e.POST("/post/:slug/comment/", a.handleCommentForm)
	e.POST("/api/createComment", a.handleCreateComment)
}
