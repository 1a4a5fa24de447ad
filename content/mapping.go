package content

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eringen/mediumblog/sanity"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkDocument reports the missing fields of doc as ErrMalformedDocument.
func checkDocument(kind, id string, doc any) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s %q: %v", ErrMalformedDocument, kind, id, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields = append(fields, ns)
	}
	return fmt.Errorf("%w: %s %q: missing %s", ErrMalformedDocument, kind, id, strings.Join(fields, ", "))
}

func parseTime(kind, id, field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %s: %v", ErrMalformedDocument, kind, id, field, err)
	}
	return t, nil
}

func imageRef(kind, id, field string, img *ImageDocument) (*sanity.ImageRef, error) {
	if img == nil || img.Asset == nil || img.Asset.Ref == "" {
		return nil, nil
	}
	ref, err := sanity.ParseImageRef(img.Asset.Ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %s: %v", ErrMalformedDocument, kind, id, field, err)
	}
	return &ref, nil
}

// mapPost turns a raw post document into a Post. Only comments that are
// approved and reference this post are kept, whatever the source returned.
func mapPost(doc PostDocument) (Post, error) {
	if err := checkDocument("post", doc.ID, doc); err != nil {
		return Post{}, err
	}
	created, err := parseTime("post", doc.ID, "_createdAt", doc.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	mainImage, err := imageRef("post", doc.ID, "mainImage", doc.MainImage)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		ID:          doc.ID,
		CreatedAt:   created,
		Title:       doc.Title,
		Description: doc.Description,
		Slug:        doc.Slug.Current,
		Body:        doc.Body,
		MainImage:   mainImage,
	}
	if doc.Author != nil {
		post.Author.Name = doc.Author.Name
		post.Author.Image, err = imageRef("post", doc.ID, "author.image", doc.Author.Image)
		if err != nil {
			return Post{}, err
		}
	}

	for _, cd := range doc.Comments {
		if !cd.Approved || cd.Post == nil || cd.Post.Ref != doc.ID {
			continue
		}
		c, err := mapComment(cd)
		if err != nil {
			return Post{}, err
		}
		post.Comments = append(post.Comments, c)
	}
	return post, nil
}

func mapComment(doc CommentDocument) (Comment, error) {
	created, err := parseTime("comment", doc.ID, "_createdAt", doc.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	c := Comment{
		ID:        doc.ID,
		Name:      doc.Name,
		Email:     doc.Email,
		Text:      doc.Comment,
		Approved:  doc.Approved,
		CreatedAt: created,
	}
	if doc.Post != nil {
		c.PostID = doc.Post.Ref
	}
	return c, nil
}

func mapRoute(doc RouteDocument) (Route, error) {
	if err := checkDocument("post", doc.ID, doc); err != nil {
		return Route{}, err
	}
	return Route{Params: RouteParams{Slug: doc.Slug.Current}}, nil
}

func mapSummary(doc SummaryDocument) (PostSummary, error) {
	if err := checkDocument("post", doc.ID, doc); err != nil {
		return PostSummary{}, err
	}
	created, err := parseTime("post", doc.ID, "_createdAt", doc.CreatedAt)
	if err != nil {
		return PostSummary{}, err
	}
	img, err := imageRef("post", doc.ID, "mainImage", doc.MainImage)
	if err != nil {
		return PostSummary{}, err
	}
	return PostSummary{
		ID:          doc.ID,
		Slug:        doc.Slug.Current,
		Title:       doc.Title,
		Description: doc.Description,
		CreatedAt:   created,
		MainImage:   img,
	}, nil
}
