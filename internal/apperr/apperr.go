// Package apperr defines the error kinds shared by the normalizer, the domain
// services, the session machines and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Kind classifies a failure for callers that need to react to it.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindTransport    Kind = "transport"
	KindMalformed    Kind = "malformed_response"
	KindSchema       Kind = "schema_violation"
	KindEmptyResult  Kind = "empty_result"
	KindMediaAccess  Kind = "media_access"
	KindTimeout      Kind = "timeout"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// snippetLimit bounds the offending text kept on malformed-response errors.
const snippetLimit = 200

// Error is a classified failure. Snippet holds the offending upstream text,
// truncated, when the failure came from parsing a completion.
type Error struct {
	Kind    Kind
	Msg     string
	Snippet string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, apperr.EmptyResult) works
// against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	Validation   = &Error{Kind: KindValidation}
	Transport    = &Error{Kind: KindTransport}
	Malformed    = &Error{Kind: KindMalformed}
	Schema       = &Error{Kind: KindSchema}
	EmptyResult  = &Error{Kind: KindEmptyResult}
	MediaAccess  = &Error{Kind: KindMediaAccess}
	Timeout      = &Error{Kind: KindTimeout}
	NotFound     = &Error{Kind: KindNotFound}
	Unauthorized = &Error{Kind: KindUnauthorized}
	Conflict     = &Error{Kind: KindConflict}
)

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// MalformedResponse records text that could not be parsed as JSON.
func MalformedResponse(text string, err error) *Error {
	return &Error{Kind: KindMalformed, Msg: "response is not valid JSON", Snippet: Truncate(text, snippetLimit), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
// Context deadline errors count as timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// HTTPStatus maps a kind to the status code the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindMediaAccess:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindConflict:
		return http.StatusConflict
	case KindMalformed, KindSchema, KindEmptyResult, KindTransport:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Truncate shortens s to at most n runes, marking the cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
