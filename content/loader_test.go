package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eringen/mediumblog/portabletext"
	"github.com/eringen/mediumblog/sanity"
)

type fakeSource struct {
	routes    []RouteDocument
	posts     map[string]*PostDocument
	summaries []SummaryDocument
	err       error
	calls     int
}

func (f *fakeSource) PostRoutes(ctx context.Context) ([]RouteDocument, error) {
	f.calls++
	return f.routes, f.err
}

func (f *fakeSource) PostBySlug(ctx context.Context, slug string) (*PostDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[slug], nil
}

func (f *fakeSource) PostSummaries(ctx context.Context) ([]SummaryDocument, error) {
	f.calls++
	return f.summaries, f.err
}

func testPostDocument() *PostDocument {
	return &PostDocument{
		ID:          "post-1",
		CreatedAt:   "2021-04-01T10:00:00Z",
		Title:       "My first test post",
		Description: "Testing the blog",
		Slug:        SlugDocument{Current: "my-first-test-post"},
		MainImage:   &ImageDocument{Type: "image", Asset: &Reference{Ref: "image-main-1200x800-jpg"}},
		Author: &AuthorDocument{
			Name:  "Rhett",
			Image: &ImageDocument{Asset: &Reference{Ref: "image-face-200x200-png"}},
		},
		Body: portabletext.Blocks{{Type: "block", Style: "normal", Children: []portabletext.Span{{Type: "span", Text: "Hello"}}}},
		Comments: []CommentDocument{
			{ID: "c1", Name: "Ana", Email: "ana@example.com", Comment: "Nice post", Approved: true, Post: &Reference{Ref: "post-1"}},
			{ID: "c2", Name: "Bot", Email: "bot@example.com", Comment: "spam", Approved: false, Post: &Reference{Ref: "post-1"}},
			{ID: "c3", Name: "Eve", Email: "eve@example.com", Comment: "wrong post", Approved: true, Post: &Reference{Ref: "post-2"}},
		},
	}
}

func TestStaticPaths(t *testing.T) {
	src := &fakeSource{routes: []RouteDocument{
		{ID: "a", Slug: SlugDocument{Current: "first"}},
		{ID: "b", Slug: SlugDocument{Current: "second"}},
	}}
	paths, err := NewLoader(src).StaticPaths(context.Background())
	if err != nil {
		t.Fatalf("StaticPaths: %v", err)
	}
	want := Paths{
		Routes: []Route{
			{Params: RouteParams{Slug: "first"}},
			{Params: RouteParams{Slug: "second"}},
		},
		Fallback: FallbackBlocking,
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("StaticPaths mismatch (-want +got):\n%s", diff)
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
}

func TestStaticPathsEmptySlugIsMalformed(t *testing.T) {
	src := &fakeSource{routes: []RouteDocument{{ID: "a"}}}
	_, err := NewLoader(src).StaticPaths(context.Background())
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
}

func TestStaticPathsPropagatesSourceError(t *testing.T) {
	boom := errors.New("network down")
	_, err := NewLoader(&fakeSource{err: boom}).StaticPaths(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestLoadPostKeepsOnlyApprovedComments(t *testing.T) {
	src := &fakeSource{posts: map[string]*PostDocument{"my-first-test-post": testPostDocument()}}
	res, err := NewLoader(src).LoadPost(context.Background(), "my-first-test-post")
	if err != nil {
		t.Fatalf("LoadPost: %v", err)
	}
	if res.Revalidate != 60*time.Second {
		t.Errorf("Revalidate = %v, want 60s", res.Revalidate)
	}

	want := Post{
		ID:          "post-1",
		CreatedAt:   time.Date(2021, 4, 1, 10, 0, 0, 0, time.UTC),
		Title:       "My first test post",
		Description: "Testing the blog",
		Slug:        "my-first-test-post",
		Body:        testPostDocument().Body,
		MainImage:   &sanity.ImageRef{ID: "main", Width: 1200, Height: 800, Format: "jpg"},
		Author: Author{
			Name:  "Rhett",
			Image: &sanity.ImageRef{ID: "face", Width: 200, Height: 200, Format: "png"},
		},
		Comments: []Comment{
			{ID: "c1", PostID: "post-1", Name: "Ana", Email: "ana@example.com", Text: "Nice post", Approved: true},
		},
	}
	if diff := cmp.Diff(want, res.Post); diff != "" {
		t.Errorf("LoadPost mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPostNotFound(t *testing.T) {
	src := &fakeSource{posts: map[string]*PostDocument{}}
	for _, slug := range []string{"unknown", "", "  "} {
		_, err := NewLoader(src).LoadPost(context.Background(), slug)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("LoadPost(%q) err = %v, want ErrNotFound", slug, err)
		}
	}
}

func TestLoadPostMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PostDocument)
	}{
		{"missing title", func(d *PostDocument) { d.Title = "" }},
		{"missing slug", func(d *PostDocument) { d.Slug.Current = "" }},
		{"missing id", func(d *PostDocument) { d.ID = "" }},
		{"bad date", func(d *PostDocument) { d.CreatedAt = "yesterday" }},
		{"bad image", func(d *PostDocument) { d.MainImage.Asset.Ref = "not-an-image" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testPostDocument()
			tt.mutate(doc)
			src := &fakeSource{posts: map[string]*PostDocument{"my-first-test-post": doc}}
			_, err := NewLoader(src).LoadPost(context.Background(), "my-first-test-post")
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestLoadPostWithoutOptionalFields(t *testing.T) {
	doc := &PostDocument{
		ID:        "p",
		CreatedAt: "2022-01-02T03:04:05.123Z",
		Title:     "Bare",
		Slug:      SlugDocument{Current: "bare"},
	}
	src := &fakeSource{posts: map[string]*PostDocument{"bare": doc}}
	res, err := NewLoader(src, WithRevalidate(5*time.Minute)).LoadPost(context.Background(), "bare")
	if err != nil {
		t.Fatalf("LoadPost: %v", err)
	}
	if res.Post.MainImage != nil || res.Post.Author.Image != nil || len(res.Post.Comments) != 0 {
		t.Errorf("unexpected optional data: %+v", res.Post)
	}
	if res.Revalidate != 5*time.Minute {
		t.Errorf("Revalidate = %v, want 5m", res.Revalidate)
	}
}

func TestListPosts(t *testing.T) {
	src := &fakeSource{summaries: []SummaryDocument{
		{ID: "b", CreatedAt: "2021-05-01T00:00:00Z", Title: "Newer", Slug: SlugDocument{Current: "newer"}},
		{ID: "a", CreatedAt: "2021-04-01T00:00:00Z", Title: "Older", Slug: SlugDocument{Current: "older"}},
	}}
	got, err := NewLoader(src).ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(got) != 2 || got[0].Slug != "newer" || got[1].Slug != "older" {
		t.Errorf("ListPosts = %+v", got)
	}
}
