// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resultsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/results-sync/internal/httputil"
	"github.com/pdiddy/results-sync/internal/resultsapi/resultsapitest"
	"github.com/pdiddy/results-sync/pkg/types"
)

func testCfg(baseURL string) types.APIConfig {
	return types.APIConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "test/0.1",
		},
		BaseURL: baseURL,
	}
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(testCfg(baseURL), nil)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(types.APIConfig{}, nil)
	assert.ErrorContains(t, err, "base URL")
}

func TestExists(t *testing.T) {
	srv := resultsapitest.New()
	defer srv.Close()
	srv.Seed("123", "6th")

	c := newClient(t, srv.URL)

	ok, err := c.Exists(context.Background(), "123", "6th")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "123", "5th")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExists_SendsIdentityQuery(t *testing.T) {
	var gotQuery map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	c := newClient(t, ts.URL+"/results?api=v1")
	_, err := c.Exists(context.Background(), "552211", "4th")
	require.NoError(t, err)

	assert.Equal(t, []string{"552211"}, gotQuery["roll_number"])
	assert.Equal(t, []string{"4th"}, gotQuery["semester"])
	assert.Equal(t, []string{"v1"}, gotQuery["api"])
}

func TestExists_NonOKIsAbsentWithDiagnostic(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusUnauthorized} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := resultsapitest.New()
			defer srv.Close()
			srv.LookupStatus = status
			srv.Seed("123", "6th")

			ok, err := newClient(t, srv.URL).Exists(context.Background(), "123", "6th")
			assert.False(t, ok)

			var se *httputil.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, status, se.StatusCode)
			assert.Contains(t, se.Body, "lookup unavailable")
		})
	}
}

func TestExists_UndecodableBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"not":"an array"}`)
	}))
	defer ts.Close()

	ok, err := newClient(t, ts.URL).Exists(context.Background(), "1", "1st")
	assert.False(t, ok)
	var se *httputil.StatusError
	assert.ErrorAs(t, err, &se)
}

func TestExists_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := ts.URL
	ts.Close()

	ok, err := newClient(t, base).Exists(context.Background(), "1", "1st")
	assert.False(t, ok)
	require.Error(t, err)
	var se *httputil.StatusError
	assert.False(t, errors.As(err, &se), "transport failures are not status errors")
}

func TestInsertAndUpdate(t *testing.T) {
	srv := resultsapitest.New()
	defer srv.Close()
	c := newClient(t, srv.URL)

	rec := types.CanonicalRecord{RollNumber: "123", ResultSemester: "6th", Status: "failed", GPA: types.GPANull}
	require.NoError(t, c.Insert(context.Background(), rec))
	assert.Equal(t, 1, srv.Calls(http.MethodPost))

	stored := srv.Record("123", "6th")
	require.NotNil(t, stored)
	assert.Equal(t, "null", stored["GPA"])
	assert.Contains(t, stored, "district")
	assert.Nil(t, stored["district"])

	rec.Status = "passed"
	rec.GPA = json.Number("3.25")
	require.NoError(t, c.Update(context.Background(), rec))
	assert.Equal(t, 1, srv.Calls(http.MethodPut))
	assert.Equal(t, json.Number("3.25"), srv.Record("123", "6th")["GPA"])
}

func TestWriteRequiresExactStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		write  func(*Client, types.CanonicalRecord) error
		op     string
	}{
		{"insert answered 200", http.StatusOK, func(c *Client, r types.CanonicalRecord) error { return c.Insert(context.Background(), r) }, "insert record"},
		{"insert answered 400", http.StatusBadRequest, func(c *Client, r types.CanonicalRecord) error { return c.Insert(context.Background(), r) }, "insert record"},
		{"update answered 201", http.StatusCreated, func(c *Client, r types.CanonicalRecord) error { return c.Update(context.Background(), r) }, "update record"},
		{"update answered 500", http.StatusInternalServerError, func(c *Client, r types.CanonicalRecord) error { return c.Update(context.Background(), r) }, "update record"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			err := tt.write(newClient(t, ts.URL), types.CanonicalRecord{RollNumber: "1", ResultSemester: "1st"})
			var se *httputil.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.op, se.Op)
		})
	}
}

func TestBearerToken(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.Token = "secret-token"
	c, err := New(cfg, ts.Client())
	require.NoError(t, err)

	require.NoError(t, c.Insert(context.Background(), types.CanonicalRecord{}))
	assert.Equal(t, "Bearer secret-token", auth)
}
