package dialer

import (
	"context"
	"net"
)

type ResolveConfig struct {
	CustomDNSServer string            // host:port of the DNS server to query
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	hosts := make(map[string]string, len(c.StaticHosts))
	for k, v := range c.StaticHosts {
		hosts[k] = v
	}
	return &ResolveConfig{
		CustomDNSServer: c.CustomDNSServer,
		Network:         c.Network,
		StaticHosts:     hosts,
	}
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var zeroDialer net.Dialer

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

// Lookup resolves host honoring the static hosts, network and DNS server of
// the dialer's [ResolveConfig].
func (d *CoreDialer) Lookup(ctx context.Context, host string) ([]net.IP, error) {
	cfg := d.ResolveConfig
	if cfg == nil {
		return LookupIPServer(ctx, "ip", host, "")
	}
	if static, ok := cfg.StaticHosts[host]; ok {
		if ip := net.ParseIP(static); ip != nil {
			return []net.IP{ip}, nil
		}
		host = static
	}
	network := cfg.Network
	if network == "" {
		network = "ip"
	}
	return LookupIPServer(ctx, network, host, cfg.CustomDNSServer)
}

// LookupIPServer performs DNS lookup for a host on a custom dns server,
// it calls [net.Resolver.LookupIP] with a Go Resolver behind the scenes.
// An empty dns uses the system configuration.
func LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
