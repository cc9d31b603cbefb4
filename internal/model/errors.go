package model

import (
	"errors"
	"strconv"
)

var (
	ErrDecode = errors.New("response: decode error")
	ErrParse  = errors.New("response: parse error")

	errNotObject    = errors.New("not an object")
	errTrailingData = errors.New("trailing data after value")
)

// DecodeError reports a body that is malformed for the chosen encoding.
type DecodeError struct {
	Encoding string
	Offset   int // first offending byte, -1 when unknown
	Err      error
}

func (e *DecodeError) Error() string {
	msg := "response: cannot decode body as " + e.Encoding
	if e.Offset >= 0 {
		msg += " at byte " + strconv.Itoa(e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(err error) bool { return err == ErrDecode }

// ParseError reports a body that is not valid in a structured format.
type ParseError struct {
	Format string // "json" or "plist"
	Err    error
}

func (e *ParseError) Error() string {
	return "response: invalid " + e.Format + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(err error) bool { return err == ErrParse }
