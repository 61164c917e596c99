// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Request is one request the fake homeserver received.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Body          []byte
}

// Decode unmarshals the request body into v.
func (r Request) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decoding %s %s body %q: %v", r.Method, r.Path, r.Body, err)
	}
}

// Homeserver is a fake Synapse.
type Homeserver struct {
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	prefixes []prefixRoute
	requests []Request
}

type prefixRoute struct {
	method  string
	prefix  string
	handler http.HandlerFunc
}

// NewHomeserver starts a fake homeserver that is closed when the test
// ends.
func NewHomeserver(t testing.TB) *Homeserver {
	t.Helper()
	homeserver := &Homeserver{routes: make(map[string]http.HandlerFunc)}
	homeserver.server = httptest.NewServer(http.HandlerFunc(homeserver.serve))
	t.Cleanup(homeserver.server.Close)
	return homeserver
}

// URL returns the base URL to configure a client with.
func (h *Homeserver) URL() string { return h.server.URL }

// Handle routes method and escapedPath to handler, replacing any earlier
// route for the pair.
func (h *Homeserver) Handle(method, escapedPath string, handler http.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes[method+" "+escapedPath] = handler
}

// HandlePrefix routes every request whose escaped path starts with
// prefix to handler. Exact routes win over prefix routes, and earlier
// prefix routes win over later ones.
func (h *Homeserver) HandlePrefix(method, prefix string, handler http.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prefixes = append(h.prefixes, prefixRoute{method: method, prefix: prefix, handler: handler})
}

// Respond routes method and escapedPath to a fixed JSON response.
func (h *Homeserver) Respond(method, escapedPath string, status int, body any) {
	h.Handle(method, escapedPath, func(writer http.ResponseWriter, _ *http.Request) {
		WriteJSON(writer, status, body)
	})
}

// Requests returns every request received so far, in arrival order.
func (h *Homeserver) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Request(nil), h.requests...)
}

// Find returns the most recent request for method and escapedPath.
func (h *Homeserver) Find(method, escapedPath string) (Request, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.requests) - 1; i >= 0; i-- {
		if h.requests[i].Method == method && h.requests[i].Path == escapedPath {
			return h.requests[i], true
		}
	}
	return Request{}, false
}

// Count returns how many requests matched method and escapedPath.
func (h *Homeserver) Count(method, escapedPath string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, request := range h.requests {
		if request.Method == method && request.Path == escapedPath {
			count++
		}
	}
	return count
}

func (h *Homeserver) serve(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)
	recorded := Request{
		Method:        request.Method,
		Path:          request.URL.EscapedPath(),
		Query:         request.URL.Query(),
		Authorization: request.Header.Get("Authorization"),
		Body:          body,
	}

	h.mu.Lock()
	h.requests = append(h.requests, recorded)
	handler := h.routes[recorded.Method+" "+recorded.Path]
	if handler == nil {
		for _, route := range h.prefixes {
			if route.method == recorded.Method && strings.HasPrefix(recorded.Path, route.prefix) {
				handler = route.handler
				break
			}
		}
	}
	h.mu.Unlock()

	if handler == nil {
		WriteJSON(writer, http.StatusNotFound, map[string]string{
			"errcode": "M_UNRECOGNIZED",
			"error":   "Unrecognized request",
		})
		return
	}
	handler(writer, request)
}

// WriteJSON writes body as a JSON response with status.
func WriteJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(body)
}
