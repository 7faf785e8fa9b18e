// Package testutil provides shared HTTP test servers for download tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// ContentServer serves the given bytes for every request.
func ContentServer(content []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}))
}

// FlakyHandler fails a fixed number of requests with the configured status
// before serving its content, and counts every request it sees.
type FlakyHandler struct {
	Failures int
	Status   int
	Content  []byte

	mu       sync.Mutex
	requests int
}

// Requests returns how many requests the handler has served so far.
func (h *FlakyHandler) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

func (h *FlakyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	h.requests++
	fail := h.requests <= h.Failures
	h.mu.Unlock()

	if fail {
		w.WriteHeader(h.Status)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.Content)
}
