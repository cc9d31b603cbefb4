package netkit

import (
	"github.com/frankli0324/go-netkit/internal/dialer"
)

type Dialer = dialer.Dialer

// CoreDialer is the default [Dialer], used by connections and clients whose
// config names none.
type CoreDialer = dialer.CoreDialer

// ProxyConfig routes raw connections through an HTTP(S) CONNECT or SOCKS5
// proxy.
type ProxyConfig = dialer.ProxyConfig

// ResolveConfig customizes name resolution: static host entries, and a DNS
// server queried instead of the system configured ones.
type ResolveConfig = dialer.ResolveConfig
