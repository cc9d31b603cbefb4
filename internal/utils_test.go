package internal_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/frankli0324/go-netkit/internal"
	"github.com/frankli0324/go-netkit/internal/obs"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// seen is what a test server observed of one request.
type seen struct {
	Method     string
	RequestURI string
	Header     http.Header
	Body       string
}

type recorder struct {
	mu   sync.Mutex
	reqs []seen
}

func (r *recorder) record(req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.reqs = append(r.reqs, seen{req.Method, req.RequestURI, req.Header.Clone(), string(b)})
	r.mu.Unlock()
}

func (r *recorder) all() []seen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]seen(nil), r.reqs...)
}

func (r *recorder) last(t *testing.T) seen {
	t.Helper()
	all := r.all()
	if len(all) == 0 {
		t.Fatal("no request reached the server")
	}
	return all[len(all)-1]
}

// serve starts a server recording every request before handing it to h.
func serve(t *testing.T, h http.HandlerFunc) (*httptest.Server, *recorder) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if h != nil {
			h(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newClient(t *testing.T, cfg *internal.Config) *internal.Client {
	c, err := internal.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *memLogger) Logf(level obs.Level, format string, args ...interface{}) {
	m.mu.Lock()
	m.lines = append(m.lines, level.String()+" "+fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *memLogger) contains(s string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}
