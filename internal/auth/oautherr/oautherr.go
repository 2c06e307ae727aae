// Package oautherr classifies authorization endpoint failures by how they
// must be delivered: as an HTTP error body, as a redirect back to the
// client, or as an internal error.
package oautherr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindBadRequest is a protocol violation found before the redirect
	// target is trusted. It must never be delivered by redirect.
	KindBadRequest Kind = iota + 1
	// KindRedirectableBadRequest is delivered to the trusted redirect_uri
	// (RFC 6749 section 4.1.2.1).
	KindRedirectableBadRequest
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindRedirectableBadRequest:
		return "redirectable_bad_request"
	case KindServerError:
		return "server_error"
	}
	return "unknown"
}

// Error codes used at the authorization endpoint.
const (
	CodeInvalidRequest              = "invalid_request"
	CodeUnauthorizedClient          = "unauthorized_client"
	CodeAccessDenied                = "access_denied"
	CodeUnsupportedResponseType     = "unsupported_response_type"
	CodeInvalidScope                = "invalid_scope"
	CodeServerError                 = "server_error"
	CodeInvalidRequestObject        = "invalid_request_object"
	CodeInvalidRequestURI           = "invalid_request_uri"
	CodeInvalidAuthorizationDetails = "invalid_authorization_details"
	CodeLoginRequired               = "login_required"
)

type Error struct {
	Kind        Kind
	Code        string
	Description string

	// Redirect delivery, set only for KindRedirectableBadRequest.
	RedirectURI  string
	State        string
	ResponseMode string

	cause error
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) IsRedirectable() bool {
	return e.Kind == KindRedirectableBadRequest && e.RedirectURI != ""
}

func BadRequest(code, description string) *Error {
	return &Error{Kind: KindBadRequest, Code: code, Description: description}
}

func ServerError(description string, cause error) *Error {
	return &Error{Kind: KindServerError, Code: CodeServerError, Description: description, cause: cause}
}

// Redirectable builds an error for the client's trusted redirect target.
func Redirectable(code, description string, target Target) *Error {
	return &Error{
		Kind:         KindRedirectableBadRequest,
		Code:         code,
		Description:  description,
		RedirectURI:  target.RedirectURI,
		State:        target.State,
		ResponseMode: target.ResponseMode,
	}
}

// Target is where a redirectable error is sent.
type Target struct {
	RedirectURI  string
	State        string
	ResponseMode string
}

// As extracts an *Error from err. Unclassified errors become server errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ServerError("unexpected error", err)
}
