// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resultsapitest provides an in-memory results API served over
// httptest, for tests of components that call the results service.
package resultsapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a fake results API keyed by (roll_number, semester). It counts
// calls per method and records the peak number of concurrently active
// requests.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	records map[string]map[string]any
	calls   map[string]int

	active atomic.Int32
	peak   atomic.Int32

	// LookupStatus, InsertStatus and UpdateStatus override the response
	// status for that method when non-zero.
	LookupStatus int
	InsertStatus int
	UpdateStatus int

	// Delay is slept inside every request, to widen the concurrency window.
	Delay time.Duration
}

// New starts a fake results API. Callers must Close it.
func New() *Server {
	s := &Server{
		records: make(map[string]map[string]any),
		calls:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func key(roll, semester any) string {
	return fmt.Sprintf("%v|%v", roll, semester)
}

// Seed stores a record as if it had been inserted earlier.
func (s *Server) Seed(roll, semester string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(roll, semester)] = map[string]any{"roll_number": roll, "result_semester": semester}
}

// Record returns the stored record for an identity, or nil.
func (s *Server) Record(roll, semester string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key(roll, semester)]
}

// Calls returns the number of requests received for method.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of requests received for any method.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Peak returns the highest number of requests that were in flight at once.
func (s *Server) Peak() int {
	return int(s.peak.Load())
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[r.Method]++
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	switch r.Method {
	case http.MethodGet:
		s.lookup(w, r)
	case http.MethodPost:
		s.write(w, r, s.InsertStatus, http.StatusCreated)
	case http.MethodPut:
		s.write(w, r, s.UpdateStatus, http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	if s.LookupStatus != 0 && s.LookupStatus != http.StatusOK {
		http.Error(w, `{"detail":"lookup unavailable"}`, s.LookupStatus)
		return
	}
	q := r.URL.Query()
	s.mu.Lock()
	rec, ok := s.records[key(q.Get("roll_number"), q.Get("semester"))]
	s.mu.Unlock()

	matches := []map[string]any{}
	if ok {
		matches = append(matches, rec)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, override, success int) {
	if override != 0 && override != success {
		http.Error(w, `{"detail":"rejected"}`, override)
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.records[key(rec["roll_number"], rec["result_semester"])] = rec
	s.mu.Unlock()
	w.WriteHeader(success)
}
