package mediumblog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eringen/mediumblog/content"
)

// ErrInvalidComment matches every *ValidationError.
var ErrInvalidComment = errors.New("mediumblog: invalid comment")

// CommentInput is the payload of a comment submission. PostID is the _id
// of the post being commented on.
type CommentInput struct {
	PostID  string `json:"_id" form:"_id" validate:"required"`
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Comment string `json:"comment" form:"comment" validate:"required"`
}

func (in CommentInput) trimmed() CommentInput {
	return CommentInput{
		PostID:  strings.TrimSpace(in.PostID),
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Comment: strings.TrimSpace(in.Comment),
	}
}

// ValidationError lists one message per invalid field, keyed by the
// field's form name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "invalid comment: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidComment
}

var fieldLabels = map[string]string{
	"_id":     "Post",
	"name":    "Name",
	"email":   "Email",
	"comment": "Comment",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateComment returns nil or a *ValidationError. Each field reports only
// its first failing rule, so an empty email is only "required".
func validateComment(in CommentInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = fmt.Sprintf("The %s Field is required", label)
		case "email":
			fields[fe.Field()] = fmt.Sprintf("The %s Field must be a valid email address", label)
		default:
			fields[fe.Field()] = fmt.Sprintf("The %s Field is invalid", label)
		}
	}
	return &ValidationError{Fields: fields}
}

// CommentService creates comments awaiting moderation.
type CommentService struct {
	sink  content.CommentSink
	now   func() time.Time
	newID func() string
}

// NewCommentService stores comments through sink.
func NewCommentService(sink content.CommentSink, now func() time.Time) *CommentService {
	if now == nil {
		now = time.Now
	}
	return &CommentService{sink: sink, now: now, newID: uuid.NewString}
}

// Create validates in and persists it as an unapproved comment.
func (s *CommentService) Create(ctx context.Context, in CommentInput) (content.Comment, error) {
	in = in.trimmed()
	if err := validateComment(in); err != nil {
		return content.Comment{}, err
	}
	c := content.Comment{
		ID:        s.newID(),
		PostID:    in.PostID,
		Name:      in.Name,
		Email:     in.Email,
		Text:      in.Comment,
		Approved:  false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sink.CreateComment(ctx, c); err != nil {
		return content.Comment{}, fmt.Errorf("mediumblog: store comment: %w", err)
	}
	return c, nil
}
