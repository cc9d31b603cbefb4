package model

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"howett.net/plist"
)

// Response is a completed exchange. The body was read in full and is never
// modified, every decoding method works on it afresh.
type Response struct {
	Method     string
	URL        string // of the final hop
	Proto      string
	Status     string // e.g. "200 OK"
	StatusCode int
	Header     http.Header

	content []byte
}

func NewResponse(method, url string, resp *http.Response, content []byte) *Response {
	return &Response{
		Method:     method,
		URL:        url,
		Proto:      resp.Proto,
		Status:     resp.Status,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		content:    content,
	}
}

func (r *Response) String() string {
	return "<Response [" + strconv.Itoa(r.StatusCode) + "] " + r.Method + " " + r.URL + ">"
}

// Bytes returns the raw body. The caller must not modify it.
func (r *Response) Bytes() []byte { return r.content }

// Encoding returns the name of the encoding the server declared for the
// body. HTML bodies without a declared charset are sniffed, anything else
// defaults to utf-8.
func (r *Response) Encoding() string {
	ct := r.Header.Get("Content-Type")
	mt, params, err := mime.ParseMediaType(ct)
	if err == nil {
		if cs := params["charset"]; cs != "" {
			return strings.ToLower(cs)
		}
	}
	if mt == "text/html" {
		_, name, _ := charset.DetermineEncoding(r.content, ct)
		return name
	}
	return "utf-8"
}

// Text decodes the body with the given encoding, or with [Response.Encoding]
// when none is given.
func (r *Response) Text(enc ...string) (string, error) {
	name := r.Encoding()
	if len(enc) > 0 && enc[0] != "" {
		name = enc[0]
	}
	return decode(r.content, name)
}

func decode(content []byte, name string) (string, error) {
	e, err := htmlindex.Get(name)
	if err != nil {
		return "", &DecodeError{Encoding: name, Offset: -1, Err: err}
	}
	canonical, _ := htmlindex.Name(e)
	if canonical == "utf-8" {
		if !utf8.Valid(content) {
			return "", &DecodeError{Encoding: name, Offset: invalidUTF8At(content)}
		}
		return string(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))), nil
	}
	return decodeWith(e, name, content)
}

func decodeWith(e encoding.Encoding, name string, content []byte) (string, error) {
	out, err := e.NewDecoder().Bytes(content)
	if err != nil {
		return "", &DecodeError{Encoding: name, Offset: -1, Err: err}
	}
	// decoders substitute U+FFFD for malformed input instead of failing
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", &DecodeError{Encoding: name, Offset: -1}
	}
	return string(out), nil
}

func invalidUTF8At(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// JSON decodes the text of the body as a JSON object.
func (r *Response) JSON(enc ...string) (Object, error) {
	var m map[string]interface{}
	if err := r.DecodeJSON(&m, enc...); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &ParseError{Format: "json", Err: errNotObject}
	}
	return Object(m), nil
}

// DecodeJSON decodes the text of the body into v.
func (r *Response) DecodeJSON(v interface{}, enc ...string) error {
	text, err := r.Text(enc...)
	if err != nil {
		return err
	}
	d := json.NewDecoder(strings.NewReader(text))
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return &ParseError{Format: "json", Err: err}
	}
	if d.More() {
		return &ParseError{Format: "json", Err: errTrailingData}
	}
	return nil
}

// Plist parses the raw body as a property list in any of the XML, binary or
// OpenStep formats.
func (r *Response) Plist() (interface{}, error) {
	var v interface{}
	if _, err := plist.Unmarshal(r.content, &v); err != nil {
		return nil, &ParseError{Format: "plist", Err: err}
	}
	return v, nil
}
