package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-netkit/internal/cookies"
	"github.com/frankli0324/go-netkit/internal/model"
	"github.com/frankli0324/go-netkit/internal/obs"
)

type PreparedRequest = model.PreparedRequest

// Handler performs a single exchange: one request, one response, no
// redirects followed.
type Handler = func(ctx context.Context, req *PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

// Client keeps default headers, cookies and proxy settings across calls.
// It is safe for concurrent use.
type Client struct {
	timeout      time.Duration
	maxRedirects int
	transport    http.RoundTripper
	logger       obs.Logger

	mu          sync.RWMutex
	headers     http.Header
	proxy       *proxySettings
	middlewares []Middleware

	jar    *cookies.Jar
	closed atomic.Bool
}

func NewClient(cfg *Config) (*Client, error) {
	cfg = cfg.Clone()
	c := &Client{
		timeout:      cfg.timeout(),
		maxRedirects: cfg.maxRedirects(),
		transport:    cfg.Transport,
		logger:       obs.OrNop(cfg.Logger),
		headers:      http.Header{},
		jar:          cookies.New(),
	}
	if c.transport == nil {
		t, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}
	return c, nil
}

// Headers returns a copy of the default headers.
func (c *Client) Headers() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Clone()
}

// SetHeaders replaces the default headers.
func (c *Client) SetHeaders(h http.Header) {
	merged := model.MergeHeaders(nil, h)
	c.mu.Lock()
	c.headers = merged
	c.mu.Unlock()
}

// AddHeaders updates the default headers, replacing the values of names
// already present.
func (c *Client) AddHeaders(h http.Header) {
	c.mu.Lock()
	c.headers = model.MergeHeaders(c.headers, h)
	c.mu.Unlock()
}

// SetCookies adds name=value cookies sent to every host. An empty map
// clears the jar, including cookies set by servers.
func (c *Client) SetCookies(cookies map[string]string) {
	if len(cookies) == 0 {
		c.jar.Clear()
		return
	}
	c.jar.Update(cookies)
}

// SetCookie adds a single cookie honoring its domain, path and expiry.
func (c *Client) SetCookie(ck *http.Cookie) { c.jar.Add(ck) }

func (c *Client) Cookies() *cookies.Jar { return c.jar }

// SetProxy routes subsequent requests through the HTTP proxy at host:port.
// Credentials, if login is not empty, are encoded with enc, latin1 when
// enc is empty.
func (c *Client) SetProxy(host string, port int, login, password, enc string) error {
	p, err := newProxySettings(host, port, login, password, enc)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.proxy = p
	c.mu.Unlock()
	return nil
}

func (c *Client) ClearProxy() {
	c.mu.Lock()
	c.proxy = nil
	c.mu.Unlock()
}

// Use appends mws to the chain wrapping every exchange. The first registered
// middleware runs outermost.
func (c *Client) Use(mws ...Middleware) {
	c.mu.Lock()
	c.middlewares = append(c.middlewares, mws...)
	c.mu.Unlock()
}

// Close releases idle connections in the background. Requests made after
// Close fail with [ErrClientClosed].
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	if ci, ok := c.transport.(interface{ CloseIdleConnections() }); ok {
		go ci.CloseIdleConnections()
	}
}

func (c *Client) Get(ctx context.Context, url string, o *model.Options) (*model.Response, error) {
	return c.Request(ctx, http.MethodGet, url, o)
}

// Post sends a POST and follows redirects itself unless o.AllowRedirects is
// explicitly true: a 302 continues as a GET without the call's data and
// headers, 301, 303 and 307 repeat the request at the new location.
func (c *Client) Post(ctx context.Context, url string, o *model.Options) (*model.Response, error) {
	if o != nil && o.AllowRedirects != nil && *o.AllowRedirects {
		return c.Request(ctx, http.MethodPost, url, o)
	}
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	req, err := model.NewRequest(http.MethodPost, url, o)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, postRedirect)
}

// Request sends a request with any method, following redirects unless
// o.AllowRedirects is false.
func (c *Client) Request(ctx context.Context, method, url string, o *model.Options) (*model.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	req, err := model.NewRequest(method, url, o)
	if err != nil {
		return nil, err
	}
	policy := standardRedirect
	if o != nil && o.AllowRedirects != nil && !*o.AllowRedirects {
		policy = nil
	}
	return c.do(ctx, req, policy)
}

func (c *Client) chain() Handler {
	c.mu.RLock()
	mws := append([]Middleware(nil), c.middlewares...)
	c.mu.RUnlock()
	next := c.exchange
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}

// exchange is the innermost handler.
func (c *Client) exchange(ctx context.Context, pr *PreparedRequest) (*model.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	c.mu.RLock()
	header := model.MergeHeaders(c.headers, pr.Header)
	proxy := c.proxy
	c.mu.RUnlock()

	if pr.ContentType != "" && len(model.HeaderValues(header, "Content-Type")) == 0 {
		header["Content-Type"] = []string{pr.ContentType}
	}
	if v := cookies.Header(header["Cookie"], c.jar.Cookies(pr.U)); v != "" {
		header["Cookie"] = []string{v}
	}
	if proxy != nil {
		ctx = withProxy(ctx, proxy)
		// tunneled requests authenticate on CONNECT instead
		if pr.U.Scheme == "http" && proxy.auth != "" {
			header["Proxy-Authorization"] = []string{proxy.auth}
		}
	}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := pr.HTTPRequest(header)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.RoundTrip(req.WithContext(tctx))
	if err != nil {
		return nil, c.timeoutError(ctx, tctx, pr, err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.timeoutError(ctx, tctx, pr, err)
	}
	c.jar.SetCookies(pr.U, resp.Cookies())
	c.logger.Logf(obs.Debug, "http: %s %s: %s, %d bytes", pr.Method, pr.URL, resp.Status, len(content))
	return model.NewResponse(pr.Method, pr.URL, resp, content), nil
}

// timeoutError reports err as a timeout when the client's own deadline
// expired, not a deadline or cancellation of the caller's context.
func (c *Client) timeoutError(parent, tctx context.Context, pr *PreparedRequest, err error) error {
	if parent.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Method: pr.Method, URL: pr.URL, Duration: c.timeout, Err: err}
	}
	return err
}
