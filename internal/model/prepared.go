package model

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

type PreparedRequest struct {
	*Request

	U       *url.URL
	GetBody func() (io.ReadCloser, error)

	ContentLength int64
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported protocol scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, url.InvalidHostError("empty host")
	}
	u.Fragment, u.RawFragment = "", ""
	if len(r.Params) != 0 {
		if u.RawQuery != "" {
			u.RawQuery += "&" + r.Params.Encode()
		} else {
			u.RawQuery = r.Params.Encode()
		}
	}
	if r.RawPath {
		// RequestURI emits an opaque "//host/path" as the absolute form, which
		// keeps the path untouched on the request line.
		u.Opaque = "//" + u.Host + rawPathOf(r.URL)
	}

	pr := &PreparedRequest{Request: r, U: u, ContentLength: -1}
	if err := pr.updateBody(); err != nil {
		return nil, err
	}
	return pr, nil
}

// rawPathOf returns the path of rawURL as written, without query or fragment.
func rawPathOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.IndexAny(rest, "/?#")
	if i < 0 || rest[i] != '/' {
		return "/"
	}
	rest = rest[i:]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// onceBody is a body that cannot be rewound. Copies of a Request share it, so
// replaying it on a redirect fails instead of silently sending nothing.
type onceBody struct {
	r    io.Reader
	used atomic.Bool
}

// should only be called once at [Prepare]
func (r *PreparedRequest) updateBody() (err error) {
	if r.Request.Body == nil {
		r.ContentLength = 0
		r.GetBody = func() (io.ReadCloser, error) {
			return http.NoBody, nil
		}
		return nil
	}
	switch b := r.Request.Body.(type) {
	case string:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	case *bytes.Buffer: // below is taken from http.NewRequest
		r.ContentLength = int64(b.Len())
		buf := b.Bytes()
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *strings.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *onceBody:
		if sizer, ok := b.r.(interface{ Size() int64 }); ok {
			r.ContentLength = sizer.Size()
		}
		cb, ok := b.r.(io.ReadCloser)
		if !ok {
			cb = io.NopCloser(b.r)
		}
		r.GetBody = func() (io.ReadCloser, error) {
			if b.used.CompareAndSwap(false, true) {
				return cb, nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
	default:
		return fmt.Errorf("unsupported body type: %T", r.Request.Body)
	}
	return nil
}

// HTTPRequest builds the request handed to the transport. header is the
// final, already merged header set and is used as is.
func (r *PreparedRequest) HTTPRequest(header http.Header) (*http.Request, error) {
	body, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	req := &http.Request{
		Method:        r.Method,
		URL:           r.U,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Host:          r.U.Host,
		Body:          body,
		ContentLength: r.ContentLength,
	}
	if body == http.NoBody {
		req.Body = nil
		req.ContentLength = 0
	} else {
		req.GetBody = r.GetBody
	}
	for k, v := range header {
		if len(v) != 0 && strings.EqualFold(k, "Host") {
			req.Host = v[0]
			delete(header, k)
		}
	}
	return req, nil
}
