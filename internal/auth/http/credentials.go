package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var errMultipleAuthMethods = errors.New("client used more than one authentication method")

// parseForm enforces the urlencoded content type and parses the body. It
// writes the error response itself and reports whether to continue.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !httpx.IsFormContentType(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return false
	}
	return true
}

// clientCredentials collects whatever the client presented: HTTP Basic
// (RFC 6749 section 2.3.1, form encoded before base64), client_id and
// client_secret in the body, and the TLS client certificate.
func clientCredentials(r *http.Request, certHeader string) (service.ClientCredentials, error) {
	var creds service.ClientCredentials

	if id, secret, ok := r.BasicAuth(); ok {
		if r.PostForm.Get("client_secret") != "" {
			return creds, errMultipleAuthMethods
		}
		var err error
		if creds.ClientID, err = url.QueryUnescape(id); err != nil {
			return creds, service.ErrInvalidClient
		}
		if creds.Secret, err = url.QueryUnescape(secret); err != nil {
			return creds, service.ErrInvalidClient
		}
		creds.Source = service.CredentialsBasic
	} else {
		creds.ClientID = strings.TrimSpace(r.PostForm.Get("client_id"))
		creds.Secret = r.PostForm.Get("client_secret")
		if creds.Secret != "" {
			creds.Source = service.CredentialsPost
		}
	}

	cert, err := httpx.ClientCertificate(r, certHeader)
	if err != nil {
		return creds, service.ErrInvalidClient
	}
	creds.Certificate = cert
	return creds, nil
}

// writeServiceError maps token, introspection and revocation failures onto
// the wire.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMultipleAuthMethods) {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}

	switch service.ErrorCode(err) {
	case authsdk.ErrorCodeInvalidRequest:
		var oe *oautherr.Error
		if errors.As(err, &oe) && oe.Description != "" {
			authsdk.ErrInvalidRequest.WithDescription(oe.Description).WriteError(w)
			return
		}
		authsdk.ErrInvalidRequest.WriteError(w)
	case authsdk.ErrorCodeInvalidClient:
		authsdk.ErrInvalidClient.WriteError(w)
	case authsdk.ErrorCodeUnsupportedGrantType:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	case authsdk.ErrorCodeUnsupportedTokenType:
		authsdk.ErrUnsupportedTokenType.WriteError(w)
	case authsdk.ErrorCodeUnauthorizedClient:
		authsdk.ErrUnauthorizedClient.WriteError(w)
	case authsdk.ErrorCodeInvalidGrant:
		authsdk.ErrInvalidGrant.WriteError(w)
	case authsdk.ErrorCodeInvalidScope:
		authsdk.ErrInvalidScope.WriteError(w)
	case authsdk.ErrorCodeServerError:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		authsdk.ErrServerError.WriteError(w)
	default:
		writeOAuthError(w, r, err)
	}
}
