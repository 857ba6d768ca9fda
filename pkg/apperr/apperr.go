package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the transport layer can pick the right
// HTTP status and the client can render a precise message.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindInvalidTransition
	KindPreconditionNotMet
	KindSessionConflict
	KindNotFound
	KindInfrastructure
)

type Error struct {
	Kind      Kind
	Message   string
	Current   string // current entity state, for rejected transitions
	Requested string // requested action or target state
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func InvalidTransition(msg, current, requested string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: msg, Current: current, Requested: requested}
}

func PreconditionNotMet(msg string) *Error {
	return &Error{Kind: KindPreconditionNotMet, Message: msg}
}

func SessionConflict(msg string) *Error {
	return &Error{Kind: KindSessionConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Infrastructure(msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, Err: err}
}

// Code is the stable machine-readable identifier sent to clients.
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return "validation_error"
	case KindAuthorization:
		return "authorization_error"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindPreconditionNotMet:
		return "precondition_not_met"
	case KindSessionConflict:
		return "session_conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "infrastructure_error"
	}
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindInvalidTransition, KindPreconditionNotMet, KindSessionConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// From extracts an *Error from err, wrapping unknown errors as
// infrastructure failures so nothing internal leaks to the client.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Infrastructure("internal error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
