package internal

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeout          = errors.New("http: timeout")
	ErrTooManyRedirects = errors.New("http: too many redirects")
	ErrClientClosed     = errors.New("http: client closed")
)

// TimeoutError is returned when an exchange, including reading the whole
// response body, does not finish within the client's timeout.
type TimeoutError struct {
	Method   string
	URL      string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timeout: %s", e.Method, e.URL, e.Duration)
}

func (e *TimeoutError) Timeout() bool { return true }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }

type TooManyRedirectsError struct {
	Method    string
	URL       string // the location that was not followed
	Redirects int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("%s %s: stopped after %d redirects", e.Method, e.URL, e.Redirects)
}

func (e *TooManyRedirectsError) Is(target error) bool { return target == ErrTooManyRedirects }
