// Netkit fetches a URL with the netkit client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	netkit "github.com/frankli0324/go-netkit"
)

const usage = `
Netkit
======

  netkit [OPTIONS] URL

OPTIONS
-------

  -X <method>             # request method, default GET (POST when -d or -json is given)
  -H <name: value>        # default header, may be repeated
  -d <data>               # request body
  -json <document>        # JSON request body
  -proxy <host:port>      # HTTP proxy
  -proxy-auth <user:pass> # proxy credentials
  -proxy-encoding <name>  # charset of the proxy credentials, default latin1
  -timeout <duration>     # per request timeout, default 30s
  -max-redirects <n>      # redirect cap, negative for none
  -no-redirects           # do not follow redirects
  -raw-path               # send the path exactly as written
  -k                      # skip TLS certificate verification
  -no-h2                  # disable HTTP/2
  -encoding <name>        # decode the body with this charset
  -format <text|json|plist|raw>
  -v                      # log exchanges and redirects
`

type headerFlags []string

func (h *headerFlags) String() string     { return strings.Join(*h, ", ") }
func (h *headerFlags) Set(v string) error { *h = append(*h, v); return nil }

var (
	method        = flag.String("X", "", "")
	data          = flag.String("d", "", "")
	jsonBody      = flag.String("json", "", "")
	proxyAddr     = flag.String("proxy", "", "")
	proxyAuth     = flag.String("proxy-auth", "", "")
	proxyEncoding = flag.String("proxy-encoding", "", "")
	timeout       = flag.Duration("timeout", netkit.DefaultTimeout, "")
	maxRedirects  = flag.Int("max-redirects", netkit.DefaultMaxRedirects, "")
	noRedirects   = flag.Bool("no-redirects", false, "")
	rawPath       = flag.Bool("raw-path", false, "")
	insecure      = flag.Bool("k", false, "")
	noH2          = flag.Bool("no-h2", false, "")
	bodyEncoding  = flag.String("encoding", "", "")
	format        = flag.String("format", "text", "")
	verbose       = flag.Bool("v", false, "")

	headers headerFlags
)

func main() {
	flag.Var(&headers, "H", "")
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, target string) error {
	cfg := &netkit.Config{
		Timeout:            *timeout,
		MaxRedirects:       *maxRedirects,
		InsecureSkipVerify: *insecure,
		DisableHTTP2:       *noH2,
	}
	if *verbose {
		cfg.Logger = netkit.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: netkit.LevelDebug}
	}
	cl, err := netkit.NewClient(cfg)
	if err != nil {
		return err
	}
	defer cl.Close()

	h, err := parseHeaders(headers)
	if err != nil {
		return err
	}
	cl.SetHeaders(h)
	if *proxyAddr != "" {
		host, port, err := splitHostPort(*proxyAddr)
		if err != nil {
			return err
		}
		user, pass, _ := strings.Cut(*proxyAuth, ":")
		if err := cl.SetProxy(host, port, user, pass, *proxyEncoding); err != nil {
			return err
		}
	}

	o := &netkit.Options{RawPath: *rawPath}
	if *data != "" {
		o.Data = *data
	}
	if *jsonBody != "" {
		o.JSON = json.RawMessage(*jsonBody)
	}
	if *noRedirects {
		o.AllowRedirects = new(bool)
	}
	m := strings.ToUpper(*method)
	if m == "" {
		m = "GET"
		if o.Data != nil || o.JSON != nil {
			m = "POST"
		}
	}

	var resp *netkit.Response
	if m == "POST" {
		resp, err = cl.Post(ctx, target, o)
	} else {
		resp, err = cl.Request(ctx, m, target, o)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", resp.Proto, resp.Status)
	return printBody(resp)
}

func printBody(resp *netkit.Response) error {
	switch *format {
	case "raw":
		_, err := os.Stdout.Write(resp.Bytes())
		return err
	case "json":
		o, err := resp.JSON(*bodyEncoding)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	case "plist":
		v, err := resp.Plist()
		if err != nil {
			return err
		}
		fmt.Printf("%#v\n", v)
	case "text":
		text, err := resp.Text(*bodyEncoding)
		if err != nil {
			return err
		}
		fmt.Print(text)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	return nil
}

func parseHeaders(lines []string) (netkit.Header, error) {
	h := netkit.Header{}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("bad header %q", line)
		}
		name = netkit.CanonicalHeaderKey(strings.TrimSpace(name))
		h[name] = append(h[name], strings.TrimSpace(value))
	}
	return h, nil
}

func splitHostPort(addr string) (string, int, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", 0, err
	}
	host, p, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", 0, fmt.Errorf("proxy %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("proxy %q: bad port", addr)
	}
	return host, port, nil
}

