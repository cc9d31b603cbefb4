package internal

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultProxyEncoding is the charset proxy credentials are encoded with
// when none is given.
const DefaultProxyEncoding = "latin1"

type proxySettings struct {
	url  *url.URL
	auth string // complete Proxy-Authorization value, empty without credentials
}

type proxyCtxKey struct{}

func withProxy(ctx context.Context, p *proxySettings) context.Context {
	return context.WithValue(ctx, proxyCtxKey{}, p)
}

func proxyFrom(ctx context.Context) *proxySettings {
	p, _ := ctx.Value(proxyCtxKey{}).(*proxySettings)
	return p
}

// proxyForRequest is the Proxy hook of the transport. The proxy travels with
// the request so that changing it never races with requests in flight.
func proxyForRequest(req *http.Request) (*url.URL, error) {
	if p := proxyFrom(req.Context()); p != nil {
		return p.url, nil
	}
	return nil, nil
}

// proxyConnectHeader authenticates the CONNECT of tunneled requests.
func proxyConnectHeader(ctx context.Context, _ *url.URL, _ string) (http.Header, error) {
	p := proxyFrom(ctx)
	if p == nil || p.auth == "" {
		return nil, nil
	}
	return http.Header{"Proxy-Authorization": {p.auth}}, nil
}

func newProxySettings(host string, port int, login, password, enc string) (*proxySettings, error) {
	if host == "" {
		return nil, fmt.Errorf("proxy: empty host")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("proxy: invalid port %d", port)
	}
	p := &proxySettings{url: &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
	}}
	if login == "" {
		return p, nil
	}
	if enc == "" {
		enc = DefaultProxyEncoding
	}
	e, err := credentialEncoding(enc)
	if err != nil {
		return nil, err
	}
	raw, err := e.NewEncoder().String(login + ":" + password)
	if err != nil {
		return nil, fmt.Errorf("proxy: credentials not representable in %s: %w", enc, err)
	}
	p.auth = "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	return p, nil
}

// credentialEncoding resolves enc like the WHATWG index does, except that the
// latin1 aliases mean ISO-8859-1 proper rather than windows-1252.
func credentialEncoding(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(enc) {
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1", "l1":
		return charmap.ISO8859_1, nil
	}
	e, err := htmlindex.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("proxy: unknown encoding %q: %w", enc, err)
	}
	return e, nil
}
