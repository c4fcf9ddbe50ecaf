package types

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a rejected request.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindQuota
	KindForbidden
	KindNotFound
)

// Error is a side-effect-free rejection carrying the message shown to the
// caller under the "error" key.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Status returns the HTTP status the kind maps to on most routes.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindQuota, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) error     { return &Error{Kind: KindValidation, Message: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Message: msg} }
func QuotaExceeded(msg string) error  { return &Error{Kind: KindQuota, Message: msg} }
func Forbidden(msg string) error      { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Message: msg} }

// AsError unwraps err into a *Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
