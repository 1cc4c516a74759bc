package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// OpenAPIPath is where CapabilityServer serves its document.
const OpenAPIPath = "/openapi/v1.json"

// CapabilityServer serves an OpenAPI document whose paths can be changed
// while the test runs. Other routes can be added with Handle.
type CapabilityServer struct {
	*httptest.Server

	mux    *http.ServeMux
	mu     sync.Mutex
	paths  []string
	status int
	hits   atomic.Int32
}

// NewCapabilityServer starts a server advertising paths. It is closed when
// the test ends.
func NewCapabilityServer(t testing.TB, paths ...string) *CapabilityServer {
	t.Helper()
	s := &CapabilityServer{mux: http.NewServeMux(), paths: paths}
	s.mux.HandleFunc("GET "+OpenAPIPath, s.serveDocument)
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	return s
}

// Handle registers an additional route on the server.
func (s *CapabilityServer) Handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// SetPaths replaces the advertised paths and clears any failure.
func (s *CapabilityServer) SetPaths(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = paths
	s.status = 0
}

// Fail makes the document endpoint answer with status until SetPaths.
func (s *CapabilityServer) Fail(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Hits returns how many times the document was requested.
func (s *CapabilityServer) Hits() int {
	return int(s.hits.Load())
}

func (s *CapabilityServer) serveDocument(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	paths, status := s.paths, s.status
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(OpenAPIDocument(paths...))
}

// OpenAPIDocument renders a minimal OpenAPI 3 document declaring paths in
// the given order.
func OpenAPIDocument(paths ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"openapi":"3.0.1","info":{"title":"test","version":"v1"},"paths":{`)
	for i, p := range paths {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(p)
		buf.Write(key)
		buf.WriteString(`:{"get":{"responses":{"200":{"description":"OK"}}}}`)
	}
	buf.WriteString(`}}`)
	return buf.Bytes()
}
