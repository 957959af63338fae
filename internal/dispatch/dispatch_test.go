// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/results-sync/internal/httputil"
	"github.com/pdiddy/results-sync/internal/resultsapi"
	"github.com/pdiddy/results-sync/internal/resultsapi/resultsapitest"
	"github.com/pdiddy/results-sync/pkg/types"
)

// --- mock remote ---

type mockRemote struct {
	mu        sync.Mutex
	exists    bool
	existsErr error
	insertErr error
	updateErr error
	lookups   int
	inserts   int
	updates   int
}

func (m *mockRemote) Exists(_ context.Context, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	return m.exists, m.existsErr
}

func (m *mockRemote) Insert(_ context.Context, _ types.CanonicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	return m.insertErr
}

func (m *mockRemote) Update(_ context.Context, _ types.CanonicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	return m.updateErr
}

var testID = types.Identity{RollNumber: "123", Semester: "6th"}

func testRecord() types.CanonicalRecord {
	return types.CanonicalRecord{RollNumber: "123", ResultSemester: "6th", Status: "failed", GPA: types.GPANull}
}

func TestDispatchRouting(t *testing.T) {
	tests := []struct {
		name        string
		remote      *mockRemote
		insertOnly  bool
		wantAction  types.Action
		wantInserts int
		wantUpdates int
		wantLookups int
		wantWarning bool
	}{
		{"absent inserts", &mockRemote{}, false, types.ActionInserted, 1, 0, 1, false},
		{"exists updates", &mockRemote{exists: true}, false, types.ActionUpdated, 0, 1, 1, false},
		{"lookup 404 fails open to insert", &mockRemote{existsErr: &httputil.StatusError{StatusCode: 404}}, false, types.ActionInserted, 1, 0, 1, true},
		{"lookup 500 fails open to insert", &mockRemote{existsErr: &httputil.StatusError{StatusCode: 500}}, false, types.ActionInserted, 1, 0, 1, true},
		{"insert error", &mockRemote{insertErr: &httputil.StatusError{Op: "insert record", StatusCode: 400}}, false, types.ActionFailed, 1, 0, 1, false},
		{"update error not rerouted", &mockRemote{exists: true, updateErr: &httputil.StatusError{Op: "update record", StatusCode: 500}}, false, types.ActionFailed, 0, 1, 1, false},
		{"transport error on lookup writes nothing", &mockRemote{existsErr: errors.New("connection refused")}, false, types.ActionFailed, 0, 0, 1, false},
		{"insert only skips lookup", &mockRemote{exists: true}, true, types.ActionInserted, 1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.remote, InsertOnly(tt.insertOnly))
			out := d.Dispatch(context.Background(), testID, testRecord())

			assert.Equal(t, tt.wantAction, out.Action)
			assert.Equal(t, testID, out.Identity)
			assert.Equal(t, tt.wantInserts, tt.remote.inserts)
			assert.Equal(t, tt.wantUpdates, tt.remote.updates)
			assert.Equal(t, tt.wantLookups, tt.remote.lookups)
			assert.Equal(t, tt.wantWarning, out.Warning != "")
			if tt.wantAction == types.ActionFailed {
				assert.Error(t, out.Err)
				assert.Contains(t, out.Message, "Error")
			} else {
				assert.NoError(t, out.Err)
			}
		})
	}
}

func TestDispatchLogsFailOpenLookup(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	remote := &mockRemote{existsErr: &httputil.StatusError{Op: "check record", StatusCode: 503, Body: "down"}}

	out := New(remote, WithLogger(zap.New(core))).Dispatch(context.Background(), testID, testRecord())
	require.Equal(t, types.ActionInserted, out.Action)

	entries := logs.FilterMessage("existence check failed, inserting").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(503), fields["status"])
	assert.Equal(t, "down", fields["response"])
	assert.Equal(t, "123", fields["roll_number"])
}

// Against the fake service, a second submission of the same identity is an
// update, never a second insert.
func TestDispatchSecondSubmissionUpdates(t *testing.T) {
	srv := resultsapitest.New()
	defer srv.Close()

	client, err := resultsapi.New(types.APIConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
		BaseURL:    srv.URL,
	}, nil)
	require.NoError(t, err)
	d := New(client)

	first := d.Dispatch(context.Background(), testID, testRecord())
	second := d.Dispatch(context.Background(), testID, testRecord())

	assert.Equal(t, types.ActionInserted, first.Action)
	assert.Equal(t, types.ActionUpdated, second.Action)
	assert.Equal(t, 1, srv.Calls(http.MethodPost))
	assert.Equal(t, 1, srv.Calls(http.MethodPut))
}

func TestDispatchFailOpenAgainstService(t *testing.T) {
	srv := resultsapitest.New()
	defer srv.Close()
	srv.LookupStatus = http.StatusBadGateway
	srv.Seed("123", "6th")

	client, err := resultsapi.New(types.APIConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out := New(client).Dispatch(context.Background(), testID, testRecord())

	assert.Equal(t, types.ActionInserted, out.Action)
	assert.Contains(t, out.Warning, "HTTP 502")
	assert.Equal(t, 1, srv.Calls(http.MethodPost))
	assert.Equal(t, 0, srv.Calls(http.MethodPut))
}
