package content

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Loader resolves the routes to generate and loads the data for each page.
type Loader struct {
	src        Source
	revalidate time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRevalidate overrides DefaultRevalidate.
func WithRevalidate(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.revalidate = d
		}
	}
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source, opts ...LoaderOption) *Loader {
	l := &Loader{src: src, revalidate: DefaultRevalidate}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Revalidate is the freshness window attached to every PostResult.
func (l *Loader) Revalidate() time.Duration {
	return l.revalidate
}

// StaticPaths returns one route per post. Pages outside this set are
// generated on first request.
func (l *Loader) StaticPaths(ctx context.Context) (Paths, error) {
	docs, err := l.src.PostRoutes(ctx)
	if err != nil {
		return Paths{}, fmt.Errorf("content: resolve static paths: %w", err)
	}
	paths := Paths{Routes: make([]Route, 0, len(docs)), Fallback: FallbackBlocking}
	for _, doc := range docs {
		r, err := mapRoute(doc)
		if err != nil {
			return Paths{}, err
		}
		paths.Routes = append(paths.Routes, r)
	}
	return paths, nil
}

// LoadPost loads the post for slug with its author and approved comments.
func (l *Loader) LoadPost(ctx context.Context, slug string) (PostResult, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return PostResult{}, fmt.Errorf("%w: empty slug", ErrNotFound)
	}
	doc, err := l.src.PostBySlug(ctx, slug)
	if err != nil {
		return PostResult{}, fmt.Errorf("content: load post %q: %w", slug, err)
	}
	if doc == nil {
		return PostResult{}, fmt.Errorf("%w: post %q", ErrNotFound, slug)
	}
	post, err := mapPost(*doc)
	if err != nil {
		return PostResult{}, err
	}
	return PostResult{Post: post, Revalidate: l.revalidate}, nil
}

// ListPosts returns post summaries, newest first.
func (l *Loader) ListPosts(ctx context.Context) ([]PostSummary, error) {
	docs, err := l.src.PostSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("content: list posts: %w", err)
	}
	out := make([]PostSummary, 0, len(docs))
	for _, doc := range docs {
		s, err := mapSummary(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
