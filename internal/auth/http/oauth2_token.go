package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// TokenHandler serves POST /{tenant}/v1/tokens.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
	// CertHeader names the proxy header carrying the client certificate.
	CertHeader string
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues access, refresh and ID tokens (authorization_code, refresh_token, client_credentials, password).
//	@Description	Clients authenticate with client_secret_basic, client_secret_post, tls_client_auth or none.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			tenant			path		string					true	"Tenant identifier"
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token, client_credentials, password)
//	@Param			code			formData	string					false	"Authorization code (authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used in the authorization request"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier"
//	@Param			refresh_token	formData	string					false	"Refresh token (refresh_token grant)"
//	@Param			username		formData	string					false	"Resource owner username (password grant)"
//	@Param			password		formData	string					false	"Resource owner password (password grant)"
//	@Param			client_id		formData	string					false	"Client identifier when not using HTTP Basic"
//	@Param			client_secret	formData	string					false	"Client secret for client_secret_post"
//	@Param			scope			formData	string					false	"Space-delimited list of scopes"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, token_type, expires_in, refresh_token, id_token, scope"
//	@Failure		400				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Failure		500				{object}	authsdk.OAuth2Error		"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/{tenant}/v1/tokens [post]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Ensure the right content-type and parse the body
	if !parseForm(w, r) {
		return
	}

	// 2. Collect client credentials
	creds, err := clientCredentials(r, h.CertHeader)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// 3. Dispatch on the grant type
	form := r.PostForm
	tenant, _ := TenantFromContext(ctx)
	tok, err := h.TokenService.Exchange(ctx, tenant, service.TokenRequest{
		GrantType:    domain.GrantType(strings.TrimSpace(form.Get("grant_type"))),
		Credentials:  creds,
		Scope:        form.Get("scope"),
		Code:         strings.TrimSpace(form.Get("code")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(form.Get("code_verifier")),
		RefreshToken: form.Get("refresh_token"),
		Username:     strings.TrimSpace(form.Get("username")),
		Password:     form.Get("password"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := authsdk.TokenResponse{
		AccessToken: tok.AccessToken.Value,
		TokenType:   tok.TokenType,
		ExpiresIn:   service.ExpiresIn(tok),
		Scope:       domain.JoinScopes(tok.Scopes),
	}
	if tok.RefreshToken != nil {
		response.RefreshToken = tok.RefreshToken.Value
	}
	if tok.IDToken != nil {
		response.IDToken = tok.IDToken.Value
	}
	if len(tok.AuthorizationDetails) > 0 {
		raw, err := json.Marshal(tok.AuthorizationDetails)
		if err != nil {
			slogx.FromContext(ctx).Error("encode authorization_details", "error", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}
		response.AuthorizationDetails = raw
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
