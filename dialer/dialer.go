// Package dialer exposes the dialer used by netkit connections and clients,
// for callers that need raw TCP connections configured the same way.
package dialer

import (
	"github.com/frankli0324/go-netkit/internal/dialer"
)

// Dialer creates the underlying streams connections and requests are written
// to. A Dialer MUST NOT hold connection state: it only carries connection
// related configuration like [ProxyConfig] or [ResolveConfig], so that it can
// be swapped without pain.
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of [Dialer].
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig

// the standard library only follows the system configuration (e.g.
// /etc/resolv.conf) for DNS servers, leaving the [net.Resolver.Dial] hook
// with a Go resolver as the only way of choosing one. ResolveConfig wraps
// that hook.
type ResolveConfig = dialer.ResolveConfig
