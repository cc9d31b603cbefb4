package internal

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frankli0324/go-netkit/internal/model"
	"github.com/frankli0324/go-netkit/internal/obs"
)

// redirectPolicy decides whether the response status of req is followed and
// how the next hop is derived from req.
type redirectPolicy func(status int, req *model.Request) (hop model.Hop, follow bool)

// postRedirect drops the call's data and headers on a 302 and continues
// with a GET. Other redirects repeat the request unchanged. Query parameters
// are sent again to every location.
func postRedirect(status int, req *model.Request) (model.Hop, bool) {
	switch status {
	case http.StatusFound:
		return model.Hop{Method: http.MethodGet, KeepParams: true}, true
	case http.StatusMovedPermanently, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return model.Hop{Method: req.Method, KeepBody: true, KeepHeader: true, KeepParams: true}, true
	}
	return model.Hop{}, false
}

// standardRedirect follows the rules browsers and net/http apply. The
// location is taken as is.
func standardRedirect(status int, req *model.Request) (model.Hop, bool) {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			return model.Hop{Method: req.Method, KeepBody: true, KeepHeader: true}, true
		}
		return model.Hop{Method: http.MethodGet, KeepHeader: true}, true
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return model.Hop{Method: req.Method, KeepBody: true, KeepHeader: true}, true
	}
	return model.Hop{}, false
}

// do runs the exchanges of one call. Every hop works on its own Request;
// nothing of a previous hop is mutated.
func (c *Client) do(ctx context.Context, req *model.Request, policy redirectPolicy) (*model.Response, error) {
	handler := c.chain()
	for hops := 0; ; hops++ {
		pr, err := req.Prepare()
		if err != nil {
			return nil, err
		}
		resp, err := handler(ctx, pr)
		if err != nil {
			return nil, err
		}
		if policy == nil {
			return resp, nil
		}
		hop, follow := policy(resp.StatusCode, req)
		location := resp.Header.Get("Location")
		if !follow || location == "" {
			return resp, nil
		}
		base, err := url.Parse(req.URL)
		if err != nil {
			return nil, err
		}
		next, err := base.Parse(location)
		if err != nil {
			return nil, err
		}
		if c.maxRedirects >= 0 && hops >= c.maxRedirects {
			return nil, &TooManyRedirectsError{Method: req.Method, URL: next.String(), Redirects: hops}
		}
		c.logger.Logf(obs.Debug, "http: %d redirect %s %s -> %s %s", resp.StatusCode, req.Method, req.URL, hop.Method, next)
		req = req.Redirect(next.String(), hop)
	}
}
