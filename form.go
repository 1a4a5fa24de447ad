package mediumblog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/eringen/mediumblog/views"
)

// SubmitFailedNotice is shown when a valid comment could not be sent.
const SubmitFailedNotice = "We could not submit your comment. Please try again."

const dispatchTimeout = 10 * time.Second

// FormState is the state of a comment form.
type FormState int

const (
	FormUnsubmitted FormState = iota
	FormSubmitted
)

func (s FormState) String() string {
	if s == FormSubmitted {
		return "submitted"
	}
	return "unsubmitted"
}

// CommentForm is one comment form of a post page.
type CommentForm struct {
	PostID string
	State  FormState
	Values CommentInput
	Errors map[string]string
	Notice string
}

// NewCommentForm returns an unsubmitted form for the post with id postID.
func NewCommentForm(postID string) *CommentForm {
	return &CommentForm{PostID: postID, Values: CommentInput{PostID: postID}}
}

// View converts the form into its view model. action is where it posts.
func (f *CommentForm) View(action string) views.CommentFormView {
	return views.CommentFormView{
		Submitted: f.State == FormSubmitted,
		Action:    action,
		PostID:    f.PostID,
		Name:      f.Values.Name,
		Email:     f.Values.Email,
		Comment:   f.Values.Comment,
		Errors:    f.Errors,
		Notice:    f.Notice,
	}
}

// Dispatcher sends a validated comment to the comment creation endpoint.
type Dispatcher interface {
	Dispatch(ctx context.Context, in CommentInput) error
}

// FormController drives CommentForm state: validate, dispatch once, then
// mark the form submitted.
type FormController struct {
	dispatcher Dispatcher
	log        log.FieldLogger
}

// NewFormController dispatches through d.
func NewFormController(d Dispatcher, logger log.FieldLogger) *FormController {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FormController{dispatcher: d, log: logger}
}

// Submit validates in and, when every field is present, dispatches it
// exactly once. A submitted form ignores further submits. On dispatch
// failure the form stays unsubmitted with a notice and keeps the values.
func (fc *FormController) Submit(ctx context.Context, f *CommentForm, in CommentInput) error {
	if f.State == FormSubmitted {
		return nil
	}
	in = in.trimmed()
	in.PostID = f.PostID
	f.Values = in
	f.Errors = nil
	f.Notice = ""

	if err := validateComment(in); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			f.Errors = verr.Fields
		}
		return err
	}

	if err := fc.dispatcher.Dispatch(ctx, in); err != nil {
		fc.log.Errorf("[form] dispatch comment for post %s: %v", f.PostID, err)
		f.Notice = SubmitFailedNotice
		return err
	}
	f.State = FormSubmitted
	return nil
}

type clientIPKey struct{}

// WithClientIP records the address of the visitor a comment comes from.
// HTTPDispatcher forwards it so the endpoint limits the visitor, not this
// server.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// HTTPDispatcher posts comments as JSON to a comment creation endpoint.
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDispatcher posts to endpoint. A nil client gets a 10s timeout.
func NewHTTPDispatcher(endpoint string, client *http.Client) *HTTPDispatcher {
	if client == nil {
		client = &http.Client{Timeout: dispatchTimeout}
	}
	return &HTTPDispatcher{endpoint: endpoint, client: client}
}

// Dispatch sends in once. Network errors and non-2xx answers fail.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, in CommentInput) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ip := clientIP(ctx); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post comment: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// serviceDispatcher hands comments straight to the in-process service.
type serviceDispatcher struct {
	svc *CommentService
}

func (d serviceDispatcher) Dispatch(ctx context.Context, in CommentInput) error {
	_, err := d.svc.Create(ctx, in)
	return err
}
