package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

var schemes = map[string]string{
	"http": "80", "https": "443", "socks5": "1080", "socks5h": "1080",
}

type ProxyConfig struct {
	URL            string      // http://, https://, socks5:// or socks5h://, with optional user info
	TLSConfig      *tls.Config // used to talk to https proxies
	ResolveLocally bool        // resolve the target before handing it to the proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		URL:            c.URL,
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
	}
}

func (d *CoreDialer) dialProxy(ctx context.Context, network, address string) (net.Conn, error) {
	proxyU, err := url.Parse(d.ProxyConfig.URL)
	if err != nil {
		return nil, err
	}
	if d.ProxyConfig.ResolveLocally {
		if address, err = d.resolveTarget(ctx, address); err != nil {
			return nil, err
		}
	}
	switch proxyU.Scheme {
	case "http", "https":
		return d.DialContextOverProxy(ctx, address, proxyU)
	case "socks5", "socks5h":
		pd, err := proxy.FromURL(proxyU, directDialer{d})
		if err != nil {
			return nil, err
		}
		if cd, ok := pd.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, address)
		}
		return pd.Dial(network, address)
	default:
		return nil, errors.New("unsupported proxy scheme: " + proxyU.Scheme)
	}
}

func (d *CoreDialer) resolveTarget(ctx context.Context, address string) (string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return address, nil
	}
	ips, err := d.Lookup(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return net.JoinHostPort(ips[rand.Intn(len(ips))].String(), port), nil
}

// directDialer lets x/net/proxy reach socks servers through [CoreDialer.DialDirect].
type directDialer struct{ d *CoreDialer }

func (dd directDialer) Dial(network, address string) (net.Conn, error) {
	return dd.d.DialDirect(context.Background(), network, address)
}

func (dd directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return dd.d.DialDirect(ctx, network, address)
}

// DialContextOverProxy tunnels a connection to address through an http(s)
// proxy with the CONNECT method.
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, address string, proxyU *url.URL) (net.Conn, error) {
	hp := proxyU.Host
	if proxyU.Port() == "" {
		hp = net.JoinHostPort(proxyU.Hostname(), schemes[proxyU.Scheme])
	}
	conn, err := d.DialDirect(ctx, "tcp", hp)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if proxyU.Scheme == "https" {
		var cfg *tls.Config
		if d.ProxyConfig != nil && d.ProxyConfig.TLSConfig != nil {
			cfg = d.ProxyConfig.TLSConfig.Clone()
		} else {
			cfg = &tls.Config{}
		}
		if cfg.ServerName == "" {
			cfg.ServerName = proxyU.Hostname()
		}
		c := tls.Client(conn, cfg)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	connReq := &http.Request{
		Method: "CONNECT",
		URL:    &url.URL{Opaque: address},
		Host:   address,
		Header: http.Header{},
	}
	if u := proxyU.User; u != nil {
		pass, _ := u.Password()
		auth := u.Username() + ":" + pass
		connReq.Header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	if err := connReq.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), connReq)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s))
	}
	conn.SetDeadline(time.Time{})
	return conn, nil
}
