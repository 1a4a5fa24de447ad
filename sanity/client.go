// Package sanity is a small client for a Sanity-compatible content API:
// GROQ queries, document mutations and image asset URLs.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// VersionV20210325 is the dated API version the blog schema was built against.
	VersionV20210325 = "2021-03-25"
	// DefaultAPIVersion is used when no version is configured.
	DefaultAPIVersion = VersionV20210325
	// DefaultDataset is used when no dataset is configured.
	DefaultDataset = "production"

	defaultTimeout = 15 * time.Second
)

var (
	ErrMissingProjectID = errors.New("sanity: project id is required")
	ErrMissingToken     = errors.New("sanity: api token is required for mutations")
)

// Config describes how to reach one dataset of one project.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool   // serve reads from the API CDN (production only)
	Token      string // write token, sent with mutations only

	HTTPClient *http.Client
}

func (c *Config) setDefaults() {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	c.APIVersion = strings.TrimPrefix(c.APIVersion, "v")
}

// Validate reports configuration that makes every request impossible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return ErrMissingProjectID
	}
	return nil
}

func (c Config) String() string {
	token := ""
	if c.Token != "" {
		token = strings.Repeat("*", len(c.Token))
	}
	return fmt.Sprintf("sanity.Config{ProjectID:%q Dataset:%q APIVersion:%q UseCDN:%t Token:%q}",
		c.ProjectID, c.Dataset, c.APIVersion, c.UseCDN, token)
}

// Error is returned when the API answers with a non-2xx status.
type Error struct {
	StatusCode  int
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("sanity: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("sanity: request failed with status %d: %s", e.StatusCode, e.Description)
}

// Client talks to the query and mutate endpoints of a single dataset.
type Client struct {
	cfg  Config
	http *http.Client
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: hc}, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) baseURL(cdn bool) string {
	host := "api.sanity.io"
	if cdn {
		host = "apicdn.sanity.io"
	}
	return fmt.Sprintf("https://%s.%s/v%s", c.cfg.ProjectID, host, c.cfg.APIVersion)
}

// queryURL builds the GET url for query. Params are sent as $name=<json value>.
func (c *Client) queryURL(query string, params map[string]any) (string, error) {
	values := url.Values{}
	values.Set("query", query)
	for name, v := range params {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("sanity: encode param %s: %w", name, err)
		}
		values.Set("$"+strings.TrimPrefix(name, "$"), string(b))
	}
	return c.baseURL(c.cfg.UseCDN) + "/data/query/" + url.PathEscape(c.cfg.Dataset) + "?" + values.Encode(), nil
}

// QueryBuilder collects a GROQ query and its parameters.
type QueryBuilder struct {
	c      *Client
	query  string
	params map[string]any
}

// Query starts a GROQ query. Queries are always anonymous, so only
// published documents are visible to them.
func (c *Client) Query(query string) *QueryBuilder {
	return &QueryBuilder{c: c, query: query, params: map[string]any{}}
}

// Param binds $name to v. v is sent JSON encoded.
func (b *QueryBuilder) Param(name string, v any) *QueryBuilder {
	b.params[name] = v
	return b
}

// QueryResult is the raw answer of the query endpoint.
type QueryResult struct {
	Ms     int             `json:"ms"`
	Query  string          `json:"query"`
	Result json.RawMessage `json:"result"`
}

// Unmarshal decodes the result into dest. A null result leaves dest untouched.
func (r *QueryResult) Unmarshal(dest any) error {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Result, dest); err != nil {
		return fmt.Errorf("sanity: decode query result: %w", err)
	}
	return nil
}

// Do runs the query.
func (b *QueryBuilder) Do(ctx context.Context) (*QueryResult, error) {
	u, err := b.c.queryURL(b.query, b.params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sanity: build query request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var res QueryResult
	if err := b.c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MutationBuilder collects mutations applied in one transaction.
type MutationBuilder struct {
	c         *Client
	mutations []map[string]any
	returnIDs bool
}

// Mutate starts a transaction. Mutations never go through the CDN and
// need a token.
func (c *Client) Mutate() *MutationBuilder {
	return &MutationBuilder{c: c, returnIDs: true}
}

// Create adds a mutation creating doc. The store assigns an _id when doc has none.
func (b *MutationBuilder) Create(doc any) *MutationBuilder {
	b.mutations = append(b.mutations, map[string]any{"create": doc})
	return b
}

// ReturnIDs controls whether the ids of touched documents are returned.
func (b *MutationBuilder) ReturnIDs(v bool) *MutationBuilder {
	b.returnIDs = v
	return b
}

// MutateResult lists the documents touched by a mutate request.
type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Do commits the transaction.
func (b *MutationBuilder) Do(ctx context.Context) (*MutateResult, error) {
	if b.c.cfg.Token == "" {
		return nil, ErrMissingToken
	}
	body, err := json.Marshal(map[string]any{"mutations": b.mutations})
	if err != nil {
		return nil, fmt.Errorf("sanity: encode mutations: %w", err)
	}
	u := b.c.baseURL(false) + "/data/mutate/" + url.PathEscape(b.c.cfg.Dataset) +
		"?returnIds=" + strconv.FormatBool(b.returnIDs)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sanity: build mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.c.cfg.Token)

	var res MutateResult
	if err := b.c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sanity: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Description: errorDescription(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sanity: decode response: %w", err)
	}
	return nil
}

// errorDescription pulls the human readable part out of an API error body.
func errorDescription(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(b) == 0 {
		return ""
	}
	var body struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil {
		if body.Error.Description != "" {
			return body.Error.Description
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(b))
}
