package content

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/mediumblog/sanity"
)

func newSanitySource(t *testing.T, token string) *SanitySource {
	t.Helper()
	c, err := sanity.New(sanity.Config{ProjectID: "abc123", Token: token})
	require.NoError(t, err)
	return NewSanitySource(c)
}

func TestSanitySourceLoadsScenarioPost(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("$slug", `"my-first-test-post"`).
		Reply(http.StatusOK).
		BodyString(`{"result":{
			"_id":"post-1",
			"_createdAt":"2021-04-01T10:00:00Z",
			"title":"My first test post",
			"slug":{"_type":"slug","current":"my-first-test-post"},
			"author":{"name":"Rhett","image":{"asset":{"_ref":"image-face-200x200-png"}}},
			"comments":[
				{"_id":"c1","name":"Ana","email":"ana@example.com","comment":"Nice post","approved":true,"post":{"_ref":"post-1"}},
				{"_id":"c2","name":"Bot","email":"bot@example.com","comment":"spam","approved":false,"post":{"_ref":"post-1"}}
			],
			"body":[{"_type":"block","style":"normal","children":[{"_type":"span","text":"Hello"}]}]
		}}`)

	res, err := NewLoader(newSanitySource(t, "")).LoadPost(context.Background(), "my-first-test-post")
	require.NoError(t, err)
	require.Len(t, res.Post.Comments, 1)
	assert.Equal(t, "Ana", res.Post.Comments[0].Name)
	assert.Equal(t, "Nice post", res.Post.Comments[0].Text)
	assert.Equal(t, "Rhett", res.Post.Author.Name)
	assert.True(t, gock.IsDone())
}

func TestSanitySourceNullResultIsNotFound(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("$slug", `"unknown"`).
		Reply(http.StatusOK).
		BodyString(`{"result":null}`)

	_, err := NewLoader(newSanitySource(t, "")).LoadPost(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
}

func TestSanitySourceRoutes(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("query", regexp.QuoteMeta(published)).
		AddMatcher(func(req *http.Request, _ *gock.Request) (bool, error) {
			return req.Header.Get("Authorization") == "", nil
		}).
		Reply(http.StatusOK).
		BodyString(`{"result":[{"_id":"a","slug":{"current":"first"}},{"_id":"b","slug":{"current":"second"}}]}`)

	paths, err := NewLoader(newSanitySource(t, "write-token")).StaticPaths(context.Background())
	require.NoError(t, err)
	assert.True(t, gock.IsDone(), "route query must skip drafts and carry no token")
	require.Len(t, paths.Routes, 2)
	assert.Equal(t, "second", paths.Routes[1].Params.Slug)
	assert.Equal(t, FallbackBlocking, paths.Fallback)
}

func TestSanitySourceQueryFailure(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		Reply(http.StatusInternalServerError).
		BodyString(`{"message":"upstream unavailable"}`)

	_, err := NewLoader(newSanitySource(t, "")).StaticPaths(context.Background())
	var apiErr *sanity.Error
	require.True(t, errors.As(err, &apiErr), "err = %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestSanitySourceCreateComment(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("$id", `"post-1"`).
		Reply(http.StatusOK).
		BodyString(`{"result":true}`)
	gock.New("https://abc123.api.sanity.io").
		Post("/v2021-03-25/data/mutate/production").
		MatchHeader("Authorization", "Bearer write-token").
		BodyString(`"_ref":"post-1"`).
		Reply(http.StatusOK).
		JSON(map[string]any{"transactionId": "tx"})

	err := newSanitySource(t, "write-token").CreateComment(context.Background(), Comment{
		ID: "c-new", PostID: "post-1", Name: "Ana", Email: "ana@example.com", Text: "hi",
	})
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestSanitySourceCreateCommentNeedsToken(t *testing.T) {
	err := newSanitySource(t, "").CreateComment(context.Background(), Comment{PostID: "post-1"})
	assert.ErrorIs(t, err, sanity.ErrMissingToken)
}

func TestSanitySourceCreateCommentUnknownPost(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("$id", `"ghost"`).
		Reply(http.StatusOK).
		BodyString(`{"result":false}`)

	err := newSanitySource(t, "write-token").CreateComment(context.Background(), Comment{
		ID: "c-new", PostID: "ghost", Name: "Ana", Email: "ana@example.com", Text: "hi",
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, gock.IsDone())
}
