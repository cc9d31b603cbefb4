package internal

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/frankli0324/go-netkit/internal/dialer"
	"github.com/frankli0324/go-netkit/internal/obs"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 20
)

// Config is read once by [NewClient]. The zero value is usable.
type Config struct {
	// Timeout bounds a single exchange including the body read. Zero means
	// [DefaultTimeout].
	Timeout time.Duration
	// MaxRedirects caps the hops of one call. Zero means
	// [DefaultMaxRedirects], negative values disable the cap.
	MaxRedirects int

	Dialer             *dialer.CoreDialer
	TLSConfig          *tls.Config
	InsecureSkipVerify bool
	DisableHTTP2       bool

	// Transport replaces the transport built from the fields above.
	Transport http.RoundTripper
	Logger    obs.Logger
}

func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	n := *c
	n.Dialer = c.Dialer.Clone()
	n.TLSConfig = c.TLSConfig.Clone()
	return &n
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c *Config) maxRedirects() int {
	if c.MaxRedirects == 0 {
		return DefaultMaxRedirects
	}
	return c.MaxRedirects
}
