package content

import (
	"context"
	"fmt"

	"github.com/eringen/mediumblog/sanity"
)

const (
	// published excludes draft copies of documents.
	published = `!(_id in path("drafts.**"))`

	routesQuery = `*[_type == 'post' && ` + published + `] {
  _id,
  slug { current }
}`

	postQuery = `*[_type == 'post' && slug.current == $slug && ` + published + `][0] {
  _id,
  _createdAt,
  title,
  author -> {
    name,
    image
  },
  'comments': *[
    _type == 'comment' &&
    post._ref == ^._id &&
    approved == true &&
    ` + published + `
  ],
  description,
  mainImage,
  slug,
  body
}`

	postExistsQuery = `count(*[_type == 'post' && _id == $id && ` + published + `]) > 0`

	summariesQuery = `*[_type == 'post' && ` + published + `] | order(_createdAt desc) {
  _id,
  _createdAt,
  title,
  description,
  slug,
  mainImage
}`
)

// SanitySource reads posts through the hosted query API and writes new
// comments through its mutate API.
type SanitySource struct {
	client *sanity.Client
}

// NewSanitySource wraps client.
func NewSanitySource(client *sanity.Client) *SanitySource {
	return &SanitySource{client: client}
}

func (s *SanitySource) PostRoutes(ctx context.Context) ([]RouteDocument, error) {
	var docs []RouteDocument
	if err := s.fetch(ctx, s.client.Query(routesQuery), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SanitySource) PostBySlug(ctx context.Context, slug string) (*PostDocument, error) {
	var doc *PostDocument
	if err := s.fetch(ctx, s.client.Query(postQuery).Param("slug", slug), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SanitySource) PostSummaries(ctx context.Context) ([]SummaryDocument, error) {
	var docs []SummaryDocument
	if err := s.fetch(ctx, s.client.Query(summariesQuery), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SanitySource) fetch(ctx context.Context, q *sanity.QueryBuilder, out any) error {
	res, err := q.Do(ctx)
	if err != nil {
		return err
	}
	return res.Unmarshal(out)
}

// CreateComment stores c as an unapproved comment document referencing its
// post. The document id is c.ID when set. A post that is not published
// yields ErrNotFound.
func (s *SanitySource) CreateComment(ctx context.Context, c Comment) error {
	if s.client.Config().Token == "" {
		return sanity.ErrMissingToken
	}
	var exists bool
	if err := s.fetch(ctx, s.client.Query(postExistsQuery).Param("id", c.PostID), &exists); err != nil {
		return fmt.Errorf("content: look up post %q: %w", c.PostID, err)
	}
	if !exists {
		return fmt.Errorf("content: post %q: %w", c.PostID, ErrNotFound)
	}

	doc := map[string]any{
		"_type":    "comment",
		"name":     c.Name,
		"email":    c.Email,
		"comment":  c.Text,
		"approved": false,
		"post": map[string]any{
			"_type": "reference",
			"_ref":  c.PostID,
		},
	}
	if c.ID != "" {
		doc["_id"] = c.ID
	}
	if _, err := s.client.Mutate().Create(doc).Do(ctx); err != nil {
		return fmt.Errorf("content: create comment on %q: %w", c.PostID, err)
	}
	return nil
}
