package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// Backend is an in-memory stand-in for the feedback REST backend. It serves
// the three endpoints the front end calls and records what it receives.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	facilities  map[string]map[string]any
	stats       map[string]any
	statsFail   bool
	submissions []map[string]any
	requestIDs  []string

	FacilityLookups atomic.Int64
}

func NewBackend() *Backend {
	b := &Backend{
		facilities: make(map[string]map[string]any),
		stats: map[string]any{
			"counts":      map[string]any{"total": 0, "open": 0, "in_progress": 0, "resolved": 0},
			"leaderboard": []any{},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/facilities/by-code/{code}", b.facility)
	mux.HandleFunc("POST /api/feedback", b.feedback)
	mux.HandleFunc("GET /api/stats", b.statsSummary)
	b.Server = httptest.NewServer(mux)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) Close() {
	b.Server.Close()
}

func (b *Backend) AddFacility(code, name, address string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := map[string]any{"code": code}
	if name != "" {
		f["name"] = name
	}
	if address != "" {
		f["address"] = address
	}
	b.facilities[code] = f
}

func (b *Backend) SetStats(stats map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = stats
}

func (b *Backend) FailStats(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statsFail = fail
}

// Submissions returns the decoded feedback bodies in arrival order.
func (b *Backend) Submissions() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.submissions...)
}

// RequestIDs returns the X-Request-ID header of every request received.
func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestIDs...)
}

func (b *Backend) record(r *http.Request) {
	b.mu.Lock()
	b.requestIDs = append(b.requestIDs, r.Header.Get("X-Request-ID"))
	b.mu.Unlock()
}

func (b *Backend) facility(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.FacilityLookups.Add(1)

	b.mu.Lock()
	f, ok := b.facilities[r.PathValue("code")]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (b *Backend) feedback(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	b.mu.Lock()
	b.submissions = append(b.submissions, body)
	id := len(b.submissions)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "status": "open"})
}

func (b *Backend) statsSummary(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	b.mu.Lock()
	fail, stats := b.statsFail, b.stats
	b.mu.Unlock()
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
