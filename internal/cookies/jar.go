// package cookies implements the cookie jar of the HTTP client. Cookies set by
// servers follow the RFC 6265 domain rules of [net/http/cookiejar] with the
// public suffix list, cookies set explicitly by the owner without a domain are
// sent to every host.
package cookies

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

type Jar struct {
	mu     sync.Mutex
	server *cookiejar.Jar
	shared map[string]*http.Cookie // explicitly set, keyed by name
}

func New() *Jar {
	return &Jar{server: newServerJar(), shared: map[string]*http.Cookie{}}
}

func newServerJar() *cookiejar.Jar {
	j, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return j // cookiejar.New never fails
}

// Clear drops every cookie in the jar.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.server = newServerJar()
	j.shared = map[string]*http.Cookie{}
}

// Update stores name=value pairs that apply to every request.
func (j *Jar) Update(cookies map[string]string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for name, value := range cookies {
		j.shared[name] = &http.Cookie{Name: name, Value: value}
	}
}

// Add stores c with its domain, path and expiry metadata. A cookie without
// domain applies to every host.
func (j *Jar) Add(c *http.Cookie) {
	cp := *c
	cp.Domain = strings.TrimPrefix(strings.ToLower(cp.Domain), ".")
	j.mu.Lock()
	defer j.mu.Unlock()
	j.shared[cp.Name] = &cp
}

// SetCookies implements [http.CookieJar], storing cookies received from u.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	server := j.server
	j.mu.Unlock()
	server.SetCookies(u, cookies)
}

// Cookies implements [http.CookieJar]. Explicit cookies come first, cookies
// received from servers override them on name collision. The result is
// sorted by name.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	server := j.server
	now := time.Now()
	byName := map[string]*http.Cookie{}
	for name, c := range j.shared {
		if matches(c, u, now) {
			byName[name] = &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	j.mu.Unlock()

	for _, c := range server.Cookies(u) {
		byName[c.Name] = c
	}
	return sorted(byName)
}

func matches(c *http.Cookie, u *url.URL, now time.Time) bool {
	if !c.Expires.IsZero() && !c.Expires.After(now) {
		return false
	}
	if c.MaxAge < 0 {
		return false
	}
	if c.Secure && u.Scheme != "https" {
		return false
	}
	if c.Domain != "" {
		host := strings.ToLower(u.Hostname())
		if host != c.Domain && !strings.HasSuffix(host, "."+c.Domain) {
			return false
		}
	}
	if c.Path != "" && c.Path != "/" {
		p := u.EscapedPath()
		if p == "" {
			p = "/"
		}
		if p != c.Path && !strings.HasPrefix(p, strings.TrimSuffix(c.Path, "/")+"/") {
			return false
		}
	}
	return true
}

func sorted(byName map[string]*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Header merges the pairs of an existing Cookie header value with cookies,
// the latter winning on name collision, and renders them in the
// "a=1; b=2" wire format with values taken verbatim.
func Header(existing []string, cookies []*http.Cookie) string {
	byName := map[string]*http.Cookie{}
	for _, line := range existing {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			byName[name] = &http.Cookie{Name: name, Value: value}
		}
	}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	var b strings.Builder
	for i, c := range sorted(byName) {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}
