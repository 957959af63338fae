// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resultsapi is the client for the remote exam results service: a
// single resource endpoint that answers GET lookups by roll number and
// semester, POST inserts, and PUT updates.
package resultsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/results-sync/internal/httputil"
	"github.com/pdiddy/results-sync/pkg/types"
)

// Client talks to the results API at a configured base URL.
type Client struct {
	http    *http.Client
	baseURL string
	headers httputil.Headers
}

// New returns a Client for cfg. When httpClient is nil a client with
// cfg.Timeout is created.
func New(cfg types.APIConfig, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("results API base URL is not configured")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid results API base URL %q: %w", cfg.BaseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		headers: httputil.Headers{UserAgent: cfg.UserAgent, Token: cfg.Token},
	}, nil
}

// Exists looks up records matching the identity pair. A 200 response
// answers the question: true when the returned array is non-empty. Any
// other status returns false together with a *httputil.StatusError so the
// caller can log it; a transport failure returns false and a plain error.
func (c *Client) Exists(ctx context.Context, rollNumber, semester string) (bool, error) {
	q := url.Values{
		"roll_number": {rollNumber},
		"semester":    {semester},
	}
	reqURL, err := c.withQuery(q)
	if err != nil {
		return false, err
	}

	req, err := httputil.NewJSONRequest(ctx, http.MethodGet, reqURL, nil, c.headers)
	if err != nil {
		return false, err
	}

	body, err := httputil.Expect(c.http, req, "check record", http.StatusOK)
	if err != nil {
		return false, err
	}

	var matches []json.RawMessage
	if err := json.Unmarshal(body, &matches); err != nil {
		return false, &httputil.StatusError{
			Op:         "check record: decoding response",
			StatusCode: http.StatusOK,
			Body:       string(body),
		}
	}
	return len(matches) > 0, nil
}

// Insert creates a record. Only HTTP 201 counts as success.
func (c *Client) Insert(ctx context.Context, rec types.CanonicalRecord) error {
	return c.write(ctx, http.MethodPost, "insert record", http.StatusCreated, rec)
}

// Update replaces an existing record. Only HTTP 200 counts as success.
func (c *Client) Update(ctx context.Context, rec types.CanonicalRecord) error {
	return c.write(ctx, http.MethodPut, "update record", http.StatusOK, rec)
}

func (c *Client) write(ctx context.Context, method, op string, want int, rec types.CanonicalRecord) error {
	req, err := httputil.NewJSONRequest(ctx, method, c.baseURL, rec, c.headers)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = httputil.Expect(c.http, req, op, want)
	return err
}

// withQuery appends q to the base URL, keeping any query already present.
func (c *Client) withQuery(q url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	existing := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			existing.Add(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
