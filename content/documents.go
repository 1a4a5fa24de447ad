package content

import "github.com/eringen/mediumblog/portabletext"

// The document types mirror the store's JSON. They are decoded loosely and
// only turned into models by the mapping functions.

type SlugDocument struct {
	Current string `json:"current" validate:"required"`
}

type Reference struct {
	Type string `json:"_type,omitempty"`
	Ref  string `json:"_ref"`
}

type ImageDocument struct {
	Type  string     `json:"_type,omitempty"`
	Asset *Reference `json:"asset,omitempty"`
}

type AuthorDocument struct {
	Name  string         `json:"name"`
	Image *ImageDocument `json:"image,omitempty"`
}

type CommentDocument struct {
	ID        string     `json:"_id"`
	CreatedAt string     `json:"_createdAt,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Comment   string     `json:"comment"`
	Approved  bool       `json:"approved"`
	Post      *Reference `json:"post,omitempty"`
}

type PostDocument struct {
	ID          string              `json:"_id" validate:"required"`
	CreatedAt   string              `json:"_createdAt" validate:"required"`
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description,omitempty"`
	Slug        SlugDocument        `json:"slug"`
	MainImage   *ImageDocument      `json:"mainImage,omitempty"`
	Author      *AuthorDocument     `json:"author,omitempty"`
	Body        portabletext.Blocks `json:"body,omitempty"`
	Comments    []CommentDocument   `json:"comments,omitempty"`
}

type RouteDocument struct {
	ID   string       `json:"_id" validate:"required"`
	Slug SlugDocument `json:"slug"`
}

type SummaryDocument struct {
	ID          string         `json:"_id" validate:"required"`
	CreatedAt   string         `json:"_createdAt" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description,omitempty"`
	Slug        SlugDocument   `json:"slug"`
	MainImage   *ImageDocument `json:"mainImage,omitempty"`
}
