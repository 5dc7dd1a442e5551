// Package apitest provides a fake backend for service and web tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/notify"
	"scholar-console/internal/store"
)

// Call is one request seen by the Backend.
type Call struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

// Backend routes "METHOD /path" to handlers and records every call.
type Backend struct {
	t      *testing.T
	Server *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

// NewBackend starts a server that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{t: t, routes: map[string]http.HandlerFunc{}}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// Handle registers h for method and path.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// JSON registers a handler answering {"success":true,"data":data}.
func (b *Backend) JSON(method, path string, data any) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteData(w, http.StatusOK, data)
	})
}

// Fail registers a handler answering status with an error body.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, status, message)
	})
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Count returns how many times method and path were requested.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	})
	h, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		WriteError(w, http.StatusNotFound, "no route "+r.Method+" "+r.URL.Path)
		return
	}
	h(w, r)
}

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// Page wraps content in a backend page envelope.
func Page[T any](content []T, number, size, total int) api.Page[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return api.Page[T]{
		Content:          content,
		Number:           number,
		Size:             size,
		TotalElements:    total,
		TotalPages:       pages,
		First:            number == 0,
		Last:             number >= pages-1,
		NumberOfElements: len(content),
		Empty:            len(content) == 0,
	}
}

// Wire builds a store and API client pointed at b, wired the way the
// console wires them. The store starts signed in with tenant t1 when
// signedIn is true.
func Wire(b *Backend, signedIn bool) (*store.Store, *api.Client) {
	s := store.New()
	if signedIn {
		s.Dispatch(store.LoginSucceeded{Session: api.Session{Token: "tok", UserID: "u1", Email: "u1@example.com"}})
		s.Dispatch(store.TenantsFetched{Tenants: []api.Tenant{{ID: "t1", Name: "Lab", Status: api.TenantActive}}})
	}
	cache := httpclient.NewMemoryCache(nil)
	hc := httpclient.New(httpclient.Options{
		BaseURL:     b.Server.URL,
		TokenSource: s,
		Notifier:    s,
		OnUnauthorized: func() {
			s.Dispatch(store.Logout{})
			cache.Invalidate(context.Background(), "")
		},
		Cache: cache,
	})
	return s, api.New(hc)
}

// Messages returns the queued toast messages at level.
func Messages(s *store.Store, level notify.Level) []string {
	var out []string
	for _, n := range s.State().UI.Notifications {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
