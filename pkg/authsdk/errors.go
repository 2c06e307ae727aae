package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// OAuth 2.0 and extension error codes.
const (
	ErrorCodeInvalidRequest              = "invalid_request"
	ErrorCodeInvalidClient               = "invalid_client"
	ErrorCodeInvalidGrant                = "invalid_grant"
	ErrorCodeUnauthorizedClient          = "unauthorized_client"
	ErrorCodeUnsupportedGrantType        = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType     = "unsupported_response_type"
	ErrorCodeUnsupportedTokenType        = "unsupported_token_type"
	ErrorCodeInvalidScope                = "invalid_scope"
	ErrorCodeAccessDenied                = "access_denied"
	ErrorCodeServerError                 = "server_error"
	ErrorCodeInvalidToken                = "invalid_token"
	ErrorCodeInvalidRequestObject        = "invalid_request_object"
	ErrorCodeInvalidRequestURI           = "invalid_request_uri"
	ErrorCodeInvalidAuthorizationDetails = "invalid_authorization_details"
	ErrorCodeLoginRequired               = "login_required"
	ErrorCodeRequestNotSupported         = "request_not_supported"
)

// OAuth2Error is the RFC 6749 section 5.2 error body. The server writes it
// and the client SDK decodes it.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as a non-cacheable JSON response. invalid_client over
// HTTP Basic also gets a WWW-Authenticate challenge.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized && e.Code == ErrorCodeInvalidClient {
		w.Header().Set("WWW-Authenticate", `Basic realm="tollgate"`)
	}
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of e carrying desc.
func (e *OAuth2Error) WithDescription(desc string) *OAuth2Error {
	c := *e
	c.Description = desc
	return &c
}

func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrInvalidRequest = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"the request is malformed or missing required parameters")
	ErrInvalidClient = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeInvalidClient,
		"client authentication failed")
	ErrInvalidGrant = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidGrant,
		"the provided grant is invalid, expired or revoked")
	ErrUnauthorizedClient = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnauthorizedClient,
		"the client is not authorized to use this grant type")
	ErrUnsupportedGrantType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnsupportedGrantType,
		"grant type not supported")
	ErrUnsupportedTokenType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnsupportedTokenType,
		"token type not supported")
	ErrInvalidScope = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidScope,
		"requested scope is invalid")
	ErrAccessDenied = NewOAuth2Error(http.StatusForbidden, ErrorCodeAccessDenied,
		"access denied")
	ErrServerError = NewOAuth2Error(http.StatusInternalServerError, ErrorCodeServerError,
		"internal server error")
	ErrInvalidContentType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"content-type must be application/x-www-form-urlencoded")
	ErrInvalidFormBody = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"invalid form body")
	ErrNotFound = NewOAuth2Error(http.StatusNotFound, ErrorCodeInvalidRequest,
		"not found")
)

// decodeError turns a non-2xx response body into an *OAuth2Error.
func decodeError(resp *http.Response, body []byte) error {
	var e OAuth2Error
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		e.StatusCode = resp.StatusCode
		return &e
	}
	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
