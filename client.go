// Package netkit is a small client side networking toolkit: an HTTP client
// with sticky headers, cookies, proxies and a redirect policy of its own, and
// a framed duplex TCP connection delivering inbound bytes to a handler
// through a shared cursor buffer.
package netkit

import (
	"net/http"

	"github.com/frankli0324/go-netkit/internal"
	"github.com/frankli0324/go-netkit/internal/cookies"
	"github.com/frankli0324/go-netkit/internal/model"
	"github.com/frankli0324/go-netkit/internal/obs"
)

type Header = http.Header

type Client = internal.Client
type Config = internal.Config
type Options = model.Options
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response
type Object = model.Object
type CookieJar = cookies.Jar

// Handler performs a single exchange, Middleware wraps it. See [Client.Use].
type Handler = internal.Handler
type Middleware = internal.Middleware

type Logger = obs.Logger
type LogLevel = obs.Level
type StdLogger = obs.StdLogger

const (
	LevelDebug = obs.Debug
	LevelInfo  = obs.Info
	LevelWarn  = obs.Warn
	LevelError = obs.Error

	DefaultTimeout      = internal.DefaultTimeout
	DefaultMaxRedirects = internal.DefaultMaxRedirects
)

type TimeoutError = internal.TimeoutError
type TooManyRedirectsError = internal.TooManyRedirectsError
type DecodeError = model.DecodeError
type ParseError = model.ParseError

var (
	ErrTimeout          = internal.ErrTimeout
	ErrTooManyRedirects = internal.ErrTooManyRedirects
	ErrClientClosed     = internal.ErrClientClosed
	ErrDecode           = model.ErrDecode
	ErrParse            = model.ErrParse
)

// NewClient returns a client configured by cfg, which may be nil.
func NewClient(cfg *Config) (*Client, error) { return internal.NewClient(cfg) }

// CanonicalHeaderKey title-cases every hyphen separated segment of key.
func CanonicalHeaderKey(key string) string { return model.CanonicalHeaderKey(key) }
