// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the JSON request plumbing shared by API clients.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps how much of a response body is kept for diagnostics.
const maxBodyBytes = 64 << 10

// StatusError reports a response whose status code was not the one the
// operation expected. Body holds the (truncated) response text.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d, response: %s", e.Op, e.StatusCode, body)
}

// Headers are applied to every outgoing request.
type Headers struct {
	UserAgent string
	// Token, when set, is sent as a bearer Authorization header.
	Token string
}

func (h Headers) apply(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
}

// NewJSONRequest builds a request with body marshaled as JSON. A nil body
// sends no payload.
func NewJSONRequest(ctx context.Context, method, url string, body any, h Headers) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	h.apply(req)
	return req, nil
}

// Do executes req once and returns the status code and response body. The
// body is always drained and closed. A transport failure returns an error
// and no status; any HTTP status, success or not, is returned as-is.
func Do(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	io.Copy(io.Discard, resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Expect runs req and returns a *StatusError unless the response status is
// exactly want.
func Expect(client *http.Client, req *http.Request, op string, want int) ([]byte, error) {
	code, body, err := Do(client, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if code != want {
		return body, &StatusError{Op: op, StatusCode: code, Body: string(body)}
	}
	return body, nil
}
