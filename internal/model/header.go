package model

import (
	"net/http"
	"strings"
)

// CanonicalHeaderKey upper-cases the first letter of every hyphen separated
// segment of key and lower-cases the rest, "x-AUTH-token" becomes
// "X-Auth-Token". Unlike [http.CanonicalHeaderKey] it never leaves a key
// untouched because of characters it considers invalid.
func CanonicalHeaderKey(key string) string {
	b := []byte(key)
	upper := true
	for i, c := range b {
		switch {
		case c == '-':
			upper = true
			continue
		case upper && 'a' <= c && c <= 'z':
			b[i] = c - ('a' - 'A')
		case !upper && 'A' <= c && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
		upper = false
	}
	return string(b)
}

// MergeHeaders returns a new header set holding defaults overlaid with
// perCall, keyed by [CanonicalHeaderKey]. A per call key replaces every value
// the defaults had for the same name.
func MergeHeaders(defaults, perCall http.Header) http.Header {
	out := make(http.Header, len(defaults)+len(perCall))
	for k, v := range defaults {
		ck := CanonicalHeaderKey(k)
		out[ck] = append(out[ck], v...)
	}
	replaced := map[string]bool{}
	for k, v := range perCall {
		ck := CanonicalHeaderKey(k)
		if !replaced[ck] {
			out[ck] = nil
			replaced[ck] = true
		}
		out[ck] = append(out[ck], v...)
	}
	return out
}

// HeaderValues returns every value stored under a key equal to name ignoring
// case.
func HeaderValues(h http.Header, name string) []string {
	var out []string
	for k, v := range h {
		if strings.EqualFold(k, name) {
			out = append(out, v...)
		}
	}
	return out
}
