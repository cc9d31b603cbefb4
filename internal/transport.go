package internal

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/frankli0324/go-netkit/internal/dialer"
)

// newTransport builds the connection pool of a client. Connections are
// dialed by the client's dialer, so static hosts, custom DNS servers and
// dialer level proxies apply to every request.
func newTransport(cfg *Config) (*http.Transport, error) {
	d := cfg.Dialer
	if d == nil {
		d = &dialer.CoreDialer{}
	}
	tlsConfig := cfg.TLSConfig.Clone()
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}
	t := &http.Transport{
		Proxy:                 proxyForRequest,
		GetProxyConnectHeader: proxyConnectHeader,
		DialContext:           d.DialContext,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   80,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if cfg.DisableHTTP2 {
		// a non-nil empty map keeps net/http from enabling h2 on its own
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		return t, nil
	}
	if _, err := http2.ConfigureTransports(t); err != nil {
		return nil, err
	}
	return t, nil
}
