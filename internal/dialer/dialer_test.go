package dialer

import (
	"bufio"
	"context"
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"runtime"
	"testing"
	"time"
)

func listenEcho(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()
	return ln
}

func roundTrip(t *testing.T, c net.Conn, msg string) {
	t.Helper()
	defer c.Close()
	if _, err := c.Write([]byte(msg)); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(msg))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != msg {
		t.Errorf("echoed %q, want %q", got, msg)
	}
}

func TestDialStaticHosts(t *testing.T) {
	ln := listenEcho(t)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	d := &CoreDialer{ResolveConfig: &ResolveConfig{
		StaticHosts: map[string]string{"echo.invalid": "127.0.0.1"},
		Network:     "ip4",
	}}
	c, err := d.DialContext(context.Background(), "tcp", net.JoinHostPort("echo.invalid", port))
	if err != nil {
		t.Fatal(err)
	}
	roundTrip(t, c, "ping")
}

func TestLookupStaticHost(t *testing.T) {
	d := &CoreDialer{ResolveConfig: &ResolveConfig{StaticHosts: map[string]string{"a.invalid": "10.0.0.7"}}}
	ips, err := d.Lookup(context.Background(), "a.invalid")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != 1 || ips[0].String() != "10.0.0.7" {
		t.Errorf("got %v", ips)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := &CoreDialer{
		ResolveConfig: &ResolveConfig{StaticHosts: map[string]string{"a": "1.1.1.1"}},
		ProxyConfig:   &ProxyConfig{URL: "http://proxy:3128"},
		Timeout:       time.Second,
	}
	c := d.Clone()
	c.ResolveConfig.StaticHosts["a"] = "2.2.2.2"
	c.ProxyConfig.URL = ""
	if d.ResolveConfig.StaticHosts["a"] != "1.1.1.1" || d.ProxyConfig.URL == "" {
		t.Error("clone shares state with the original")
	}
	if c.Timeout != time.Second {
		t.Error("timeout not cloned")
	}
	if (*CoreDialer)(nil).Clone() != nil {
		t.Error("nil clone")
	}
}

func TestDialOverConnectProxy(t *testing.T) {
	target := listenEcho(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	gotAuth := make(chan string, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		req, err := http.ReadRequest(bufio.NewReader(c))
		if err != nil || req.Method != "CONNECT" {
			return
		}
		gotAuth <- req.Header.Get("Proxy-Authorization")
		up, err := net.Dial("tcp", req.Host)
		if err != nil {
			io.WriteString(c, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n")
			return
		}
		defer up.Close()
		io.WriteString(c, "HTTP/1.1 200 Connection established\r\n\r\n")
		go io.Copy(up, c)
		io.Copy(c, up)
	}()

	d := &CoreDialer{ProxyConfig: &ProxyConfig{URL: "http://user:secret@" + ln.Addr().String()}}
	c, err := d.DialContext(context.Background(), "tcp", target.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:secret"))
	if auth := <-gotAuth; auth != want {
		t.Errorf("Proxy-Authorization %q, want %q", auth, want)
	}
	roundTrip(t, c, "through the tunnel")
}

func TestConnectProxyRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		http.ReadRequest(bufio.NewReader(c))
		io.WriteString(c, "HTTP/1.1 407 Proxy Authentication Required\r\nContent-Length: 6\r\n\r\ndenied")
	}()
	d := &CoreDialer{ProxyConfig: &ProxyConfig{URL: "http://" + ln.Addr().String()}}
	if _, err := d.DialContext(context.Background(), "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected an error from a refusing proxy")
	}
}

// serveSocks5 accepts one no-auth SOCKS5 CONNECT to an IPv4 target.
func serveSocks5(t *testing.T, ln net.Listener) {
	c, err := ln.Accept()
	if err != nil {
		return
	}
	defer c.Close()
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(c, hdr); err != nil {
		return
	}
	io.ReadFull(c, make([]byte, hdr[1]))
	c.Write([]byte{5, 0})

	req := make([]byte, 10) // ver cmd rsv atyp(1) ip(4) port(2)
	if _, err := io.ReadFull(c, req); err != nil || req[3] != 1 {
		t.Errorf("unexpected socks request %v, %v", req, err)
		return
	}
	addr := &net.TCPAddr{IP: net.IP(req[4:8]), Port: int(req[8])<<8 | int(req[9])}
	up, err := net.DialTCP("tcp", nil, addr)
	if err != nil {
		c.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
		return
	}
	defer up.Close()
	c.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
	go io.Copy(up, c)
	io.Copy(c, up)
}

func TestDialOverSocks5(t *testing.T) {
	target := listenEcho(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go serveSocks5(t, ln)

	d := &CoreDialer{ProxyConfig: &ProxyConfig{URL: "socks5://" + ln.Addr().String()}}
	c, err := d.DialContext(context.Background(), "tcp", target.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	roundTrip(t, c, "socks")
}

func TestUnsupportedProxyScheme(t *testing.T) {
	d := &CoreDialer{ProxyConfig: &ProxyConfig{URL: "ftp://127.0.0.1:21"}}
	if _, err := d.DialContext(context.Background(), "tcp", "127.0.0.1:80"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}

func TestUserTimeout(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("TCP_USER_TIMEOUT is linux only")
	}
	ln := listenEcho(t)
	d := &CoreDialer{UserTimeout: 5 * time.Second}
	c, err := d.DialContext(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	rc, err := c.(*net.TCPConn).SyscallConn()
	if err != nil {
		t.Fatal(err)
	}
	got, err := getUserTimeout(rc)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5*time.Second {
		t.Errorf("TCP_USER_TIMEOUT %v", got)
	}
}
