// Package testutil provides testing utilities for the tastypie client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// DefaultLimit is the page size the mock uses when no limit is requested.
const DefaultLimit = 20

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockTastypie is a fake django-tastypie API serving in-memory resources
// under a namespace, e.g. /api/v1/post/, /api/v1/post/1/ and
// /api/v1/post/set/1;2/.
type MockTastypie struct {
	server    *httptest.Server
	namespace string

	mu        sync.RWMutex
	resources map[string][]map[string]any
	responses map[string]MockResponse
	requests  []*http.Request
}

// NewMockTastypie creates a mock API rooted at "/" + namespace + "/".
func NewMockTastypie(namespace string) *MockTastypie {
	mock := &MockTastypie{
		namespace: strings.Trim(namespace, "/"),
		resources: make(map[string][]map[string]any),
		responses: make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serveHTTP))
	return mock
}

// URL returns the mock server URL.
func (m *MockTastypie) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTastypie) Close() {
	m.server.Close()
}

// AddObjects registers objects of a type. Each object needs an "id" key.
func (m *MockTastypie) AddObjects(typeKey string, objects ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[typeKey] = append(m.resources[typeKey], objects...)
}

// Seed registers count objects of a type with ids 1..count.
func (m *MockTastypie) Seed(typeKey string, count int) {
	for i := 1; i <= count; i++ {
		m.AddObjects(typeKey, map[string]any{
			"id":           strconv.Itoa(i),
			"resource_uri": fmt.Sprintf("/%s/%s/%d/", m.namespace, typeKey, i),
		})
	}
}

// SetResponse overrides the response for an exact path.
func (m *MockTastypie) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = resp
}

// Requests returns a copy of every request received so far.
func (m *MockTastypie) Requests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*http.Request(nil), m.requests...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTastypie) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Reset clears request tracking.
func (m *MockTastypie) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

func (m *MockTastypie) serveHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.Clone(r.Context()))
	canned, hasCanned := m.responses[r.URL.Path]
	m.mu.Unlock()

	if hasCanned {
		for key, value := range canned.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(canned.StatusCode)
		io.WriteString(w, canned.Body)
		return
	}

	prefix := "/" + m.namespace + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) || !strings.HasSuffix(r.URL.Path, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	segments := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"), "/")
	typeKey := segments[0]

	m.mu.RLock()
	objects, known := m.resources[typeKey]
	m.mu.RUnlock()
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource " + typeKey})
		return
	}

	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		m.serveList(w, r, typeKey, objects)
	case len(segments) == 1 && r.Method == http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	case len(segments) == 3 && segments[1] == "set" && r.Method == http.MethodGet:
		m.serveSet(w, strings.Split(segments[2], ";"), objects)
	case len(segments) == 2:
		m.serveDetail(w, r, segments[1], objects)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (m *MockTastypie) serveList(w http.ResponseWriter, r *http.Request, typeKey string, objects []map[string]any) {
	limit := DefaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	end := offset + limit
	if end > len(objects) {
		end = len(objects)
	}
	page := []map[string]any{}
	if offset < len(objects) {
		page = objects[offset:end]
	}

	meta := map[string]any{
		"limit":       limit,
		"offset":      offset,
		"total_count": len(objects),
		"next":        nil,
		"previous":    nil,
	}
	if end < len(objects) {
		meta["next"] = fmt.Sprintf("/%s/%s/?limit=%d&offset=%d", m.namespace, typeKey, limit, end)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		meta["previous"] = fmt.Sprintf("/%s/%s/?limit=%d&offset=%d", m.namespace, typeKey, limit, prev)
	}

	writeJSON(w, http.StatusOK, map[string]any{"meta": meta, "objects": page})
}

func (m *MockTastypie) serveSet(w http.ResponseWriter, ids []string, objects []map[string]any) {
	found := []map[string]any{}
	notFound := []string{}
	for _, id := range ids {
		if obj := findObject(objects, id); obj != nil {
			found = append(found, obj)
		} else {
			notFound = append(notFound, id)
		}
	}

	resp := map[string]any{"objects": found}
	if len(notFound) > 0 {
		resp["not_found"] = notFound
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *MockTastypie) serveDetail(w http.ResponseWriter, r *http.Request, id string, objects []map[string]any) {
	obj := findObject(objects, id)
	if obj == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, obj)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func findObject(objects []map[string]any, id string) map[string]any {
	for _, obj := range objects {
		if fmt.Sprint(obj["id"]) == id {
			return obj
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
