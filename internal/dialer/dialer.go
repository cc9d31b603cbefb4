package dialer

import (
	"context"
	"net"
	"syscall"
	"time"
)

// Dialer opens the raw duplex streams used by both the framed connections
// and the HTTP transport.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// CoreDialer is the default [Dialer]. It holds connection related configs
// only and never any connection state, so it can be cloned and swapped freely.
type CoreDialer struct {
	ResolveConfig *ResolveConfig
	ProxyConfig   *ProxyConfig // consulted by DialContext only, see DialDirect

	Timeout   time.Duration // connect timeout, zero means none besides ctx
	KeepAlive time.Duration // zero means the net package default, negative disables

	// UserTimeout sets TCP_USER_TIMEOUT on platforms supporting it: the
	// maximum time transmitted data may stay unacknowledged before the
	// kernel drops the connection.
	UserTimeout time.Duration
}

func (d *CoreDialer) Clone() *CoreDialer {
	if d == nil {
		return nil
	}
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		ProxyConfig:   d.ProxyConfig.Clone(),
		Timeout:       d.Timeout,
		KeepAlive:     d.KeepAlive,
		UserTimeout:   d.UserTimeout,
	}
}

// DialContext connects to address, through the configured proxy if any.
func (d *CoreDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.ProxyConfig != nil && d.ProxyConfig.URL != "" {
		return d.dialProxy(ctx, network, address)
	}
	return d.DialDirect(ctx, network, address)
}

// DialDirect connects to address ignoring [CoreDialer.ProxyConfig]. Proxy
// servers themselves are reached through it.
func (d *CoreDialer) DialDirect(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	nd := d.netDialer()
	cfg := d.ResolveConfig

	if cfg != nil {
		if static, ok := cfg.StaticHosts[host]; ok {
			host = static
		}
		if cfg.Network == "ip4" && network == "tcp" {
			network = "tcp4"
		} else if cfg.Network == "ip6" && network == "tcp" {
			network = "tcp6"
		}
		if dns := cfg.CustomDNSServer; dns != "" {
			ctx = dnsServerCtx{ctx, dns}
			nd.Resolver = &customServerResolver
		}
	}
	return nd.DialContext(ctx, network, net.JoinHostPort(host, port))
}

func (d *CoreDialer) netDialer() *net.Dialer {
	nd := &net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: d.KeepAlive,
	}
	if d.UserTimeout > 0 {
		ut := d.UserTimeout
		nd.Control = func(network, address string, c syscall.RawConn) error {
			return setUserTimeout(c, ut)
		}
	}
	return nd
}
