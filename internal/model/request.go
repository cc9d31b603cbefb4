// package model contains the request and response types of the HTTP client.
// They are re-exported by the top level package.
package model

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Options is the per call configuration of a request.
type Options struct {
	// Header is merged over the client's default headers, per call values
	// win on case-insensitive name collision.
	Header http.Header
	// Data is the request body: string, []byte, url.Values (form encoded),
	// *bytes.Buffer, *bytes.Reader, *strings.Reader or any io.Reader. Plain
	// io.Readers can only be sent once and fail when a redirect replays them.
	Data interface{}
	// JSON is marshaled as the request body when Data is nil.
	JSON interface{}
	// Params are appended to the query of the URL.
	Params url.Values
	// AllowRedirects controls following of redirect responses. Unset means
	// true, except for Client.Post which runs its own redirect loop.
	AllowRedirects *bool
	// RawPath sends the path exactly as written in the URL, skipping
	// percent-encoding.
	RawPath bool
}

func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	c := *o
	c.Header = o.Header.Clone()
	if o.Params != nil {
		c.Params = url.Values{}
		for k, v := range o.Params {
			c.Params[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// Request describes one exchange. It is treated as immutable, redirects
// derive a new Request for every hop.
type Request struct {
	Method      string
	URL         string
	Header      http.Header // per call headers, not yet merged with defaults
	Body        interface{}
	ContentType string // implied by the kind of body, used unless a header sets it
	Params      url.Values
	RawPath     bool
}

// NewRequest builds the first Request of a call from its options.
func NewRequest(method, rawURL string, o *Options) (*Request, error) {
	if o == nil {
		o = &Options{}
	}
	r := &Request{
		Method:  strings.ToUpper(method),
		URL:     rawURL,
		Header:  o.Header.Clone(),
		Params:  o.Params,
		RawPath: o.RawPath,
	}
	switch {
	case o.Data != nil:
		switch d := o.Data.(type) {
		case url.Values:
			r.Body = d.Encode()
			r.ContentType = "application/x-www-form-urlencoded"
		case map[string]string:
			v := url.Values{}
			for k, s := range d {
				v.Set(k, s)
			}
			r.Body = v.Encode()
			r.ContentType = "application/x-www-form-urlencoded"
		case string, []byte, *bytes.Buffer, *bytes.Reader, *strings.Reader:
			r.Body = d
		case io.Reader:
			r.Body = &onceBody{r: d}
		default:
			r.Body = d // rejected by Prepare
		}
	case o.JSON != nil:
		b, err := json.Marshal(o.JSON)
		if err != nil {
			return nil, err
		}
		r.Body = b
		r.ContentType = "application/json"
	}
	return r, nil
}

// Hop describes how the request of the next redirect hop is derived from the
// current one.
type Hop struct {
	Method     string
	KeepBody   bool // dropping the body also drops its implied content type
	KeepHeader bool
	KeepParams bool // re-append Params to the new location
}

// Redirect derives the request for the next hop at location.
func (r *Request) Redirect(location string, h Hop) *Request {
	next := *r
	next.Method = h.Method
	next.URL = location
	if !h.KeepParams {
		next.Params = nil
	}
	if !h.KeepBody {
		next.Body = nil
		next.ContentType = ""
	}
	if !h.KeepHeader {
		next.Header = nil
	}
	return &next
}
