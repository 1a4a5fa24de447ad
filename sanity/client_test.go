package sanity

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "abc123"

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.ProjectID == "" {
		cfg.ProjectID = testProject
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNewRequiresProjectID(t *testing.T) {
	_, err := New(Config{Dataset: "production"})
	assert.ErrorIs(t, err, ErrMissingProjectID)

	_, err = New(Config{ProjectID: "   "})
	assert.ErrorIs(t, err, ErrMissingProjectID)
}

func TestNewAppliesDefaults(t *testing.T) {
	c := newTestClient(t, Config{APIVersion: "v2021-03-25"})
	cfg := c.Config()
	assert.Equal(t, DefaultDataset, cfg.Dataset)
	assert.Equal(t, "2021-03-25", cfg.APIVersion)
}

func TestQueryURL(t *testing.T) {
	tests := []struct {
		name     string
		cdn      bool
		wantHost string
	}{
		{name: "api", cdn: false, wantHost: "abc123.api.sanity.io"},
		{name: "cdn", cdn: true, wantHost: "abc123.apicdn.sanity.io"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, Config{UseCDN: tt.cdn})
			raw, err := c.queryURL("*[_type == 'post']", map[string]any{"slug": "hello"})
			require.NoError(t, err)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, u.Host)
			assert.Equal(t, "/v2021-03-25/data/query/production", u.Path)
			assert.Equal(t, "*[_type == 'post']", u.Query().Get("query"))
			assert.Equal(t, `"hello"`, u.Query().Get("$slug"))
		})
	}
}

func TestQueryDecodesResult(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		MatchParam("$slug", `"my-first-test-post"`).
		Reply(http.StatusOK).
		JSON(map[string]any{
			"ms":     3,
			"result": map[string]any{"_id": "post-1", "title": "Hello"},
		})

	c := newTestClient(t, Config{})
	res, err := c.Query("*[slug.current == $slug][0]").Param("slug", "my-first-test-post").Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ms)

	var got struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}
	require.NoError(t, res.Unmarshal(&got))
	assert.Equal(t, "post-1", got.ID)
	assert.Equal(t, "Hello", got.Title)
	assert.True(t, gock.IsDone())
}

func TestQueryNeverSendsToken(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		AddMatcher(func(req *http.Request, _ *gock.Request) (bool, error) {
			return req.Header.Get("Authorization") == "", nil
		}).
		Reply(http.StatusOK).
		BodyString(`{"ms":1,"result":[]}`)

	c := newTestClient(t, Config{Token: "write-token", UseCDN: false})
	_, err := c.Query("*[_type == 'post']").Do(context.Background())
	require.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestQueryNullResultLeavesOutUntouched(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		Reply(http.StatusOK).
		BodyString(`{"ms":1,"result":null}`)

	c := newTestClient(t, Config{})
	res, err := c.Query("*[0]").Do(context.Background())
	require.NoError(t, err)
	var got *struct{ ID string }
	require.NoError(t, res.Unmarshal(&got))
	assert.Nil(t, got)
}

func TestQueryAPIError(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Get("/v2021-03-25/data/query/production").
		Reply(http.StatusBadRequest).
		BodyString(`{"error":{"description":"expected '}' following object body","type":"queryParseError"}}`)

	c := newTestClient(t, Config{})
	_, err := c.Query("*[").Do(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Description, "following object body")
}

func TestMutateRequiresToken(t *testing.T) {
	c := newTestClient(t, Config{})
	_, err := c.Mutate().Create(map[string]any{"_type": "comment"}).Do(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestMutateSendsBearerToken(t *testing.T) {
	defer gock.Off()

	gock.New("https://abc123.api.sanity.io").
		Post("/v2021-03-25/data/mutate/production").
		MatchParam("returnIds", "true").
		MatchHeader("Authorization", "Bearer secret").
		MatchType("json").
		BodyString(`"create"`).
		Reply(http.StatusOK).
		JSON(map[string]any{
			"transactionId": "tx-1",
			"results":       []map[string]any{{"id": "comment-1", "operation": "create"}},
		})

	c := newTestClient(t, Config{Token: "secret", UseCDN: true})
	res, err := c.Mutate().Create(map[string]any{"_type": "comment", "name": "Ana"}).Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.TransactionID)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "comment-1", res.Results[0].ID)
	assert.True(t, gock.IsDone())
}

func TestConfigStringMasksToken(t *testing.T) {
	s := Config{ProjectID: "p", Token: "supersecret"}.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "***********")
}
