package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var errLoginFailed = authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied,
	"invalid username or password")

// AuthorizeHandler serves the authorization endpoint and the two follow up
// calls the login UI makes once the user has answered.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// HandleRequest godoc
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Verifies an authorization request against the tenant's profile (OAuth2, OIDC, FAPI baseline, FAPI advance) and stores it.
//	@Description	Parameters may also arrive in a signed request object (request or request_uri).
//	@Description
//	@Description	**Response:**
//	@Description	- Accepted: 302 to the tenant login URI with ?id=, or 200 JSON when no login URI is configured
//	@Description	- Error with a trusted redirect target: 302 to redirect_uri carrying error and state
//	@Description	- Any other error: JSON error response
//	@Tags			OAuth2
//	@Produce		json
//	@Param			tenant					path		string							true	"Tenant identifier"
//	@Param			response_type			query		string							true	"code, code id_token, ..."
//	@Param			client_id				query		string							true	"Client identifier"
//	@Param			redirect_uri			query		string							false	"Callback URI (must match a registered redirect URI)"
//	@Param			scope					query		string							false	"Space-delimited list of scopes"
//	@Param			state					query		string							false	"Opaque value echoed on the redirect"
//	@Param			nonce					query		string							false	"OIDC nonce"
//	@Param			response_mode			query		string							false	"query, fragment, jwt, query.jwt or fragment.jwt"
//	@Param			code_challenge			query		string							false	"PKCE code challenge"
//	@Param			code_challenge_method	query		string							false	"PKCE method"	Enums(S256, plain)
//	@Param			request					query		string							false	"Signed request object"
//	@Param			request_uri				query		string							false	"Reference to a request object"
//	@Success		200						{object}	authsdk.AuthorizationResponse	"Request accepted"
//	@Success		302						{string}	string							"Redirect to the login URI or an error redirect"
//	@Failure		400						{object}	authsdk.OAuth2Error				"error, error_description"
//	@Failure		404						{object}	authsdk.OAuth2Error				"Unknown tenant"
//	@Router			/{tenant}/v1/authorizations [get]
//	@Router			/{tenant}/v1/authorizations [post]
func (h *AuthorizeHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant, _ := TenantFromContext(ctx)

	values := r.URL.Query()
	if r.Method == http.MethodPost {
		if !parseForm(w, r) {
			return
		}
		values = r.Form
	}
	params := request.Parameters(values)

	req, err := h.AuthorizeService.Request(ctx, tenant, params)
	if err != nil {
		oe := oautherr.As(err)
		if oe.IsRedirectable() {
			redirect, rerr := h.AuthorizeService.ErrorRedirect(tenant, params.Values().ClientID(), oe)
			if rerr == nil {
				http.Redirect(w, r, redirect.RedirectURI, http.StatusFound)
				return
			}
			slogx.FromContext(ctx).Error("error redirect failed", "error", rerr)
		}
		writeOAuthError(w, r, err)
		return
	}

	if login := tenant.Server.LoginURI; login != "" {
		u, err := url.Parse(login)
		if err == nil {
			q := u.Query()
			q.Set("id", req.ID)
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.String(), http.StatusFound)
			return
		}
		slogx.FromContext(ctx).Error("invalid tenant login uri", "login_uri", login, "error", err)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthorizationResponse{
		ID:       req.ID,
		Profile:  string(req.Profile),
		LoginURI: tenant.Server.LoginURI,
	})
}

// HandleAuthorize godoc
//
//	@Summary		Complete an authorization request
//	@Description	Authenticates the resource owner against a pending authorization request and returns the redirect carrying the code, ID token or access token.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			tenant		path		string						true	"Tenant identifier"
//	@Param			id			path		string						true	"Authorization request id"
//	@Param			username	formData	string						true	"Username"
//	@Param			password	formData	string						true	"Password"
//	@Success		200			{object}	authsdk.RedirectResponse	"Where to send the user agent"
//	@Failure		400			{object}	authsdk.OAuth2Error			"error, error_description"
//	@Failure		401			{object}	authsdk.OAuth2Error			"Login failed"
//	@Failure		404			{object}	authsdk.OAuth2Error			"Unknown or expired authorization request"
//	@Router			/{tenant}/v1/authorizations/{id}/authorize [post]
func (h *AuthorizeHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	tenant, _ := TenantFromContext(r.Context())
	redirect, err := h.AuthorizeService.Authorize(r.Context(), tenant, r.PathValue("id"), username, password)
	h.writeRedirect(w, r, redirect, err)
}

// HandleDeny godoc
//
//	@Summary		Deny an authorization request
//	@Description	Answers a pending authorization request with access_denied.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			tenant	path		string						true	"Tenant identifier"
//	@Param			id		path		string						true	"Authorization request id"
//	@Success		200		{object}	authsdk.RedirectResponse	"Where to send the user agent"
//	@Failure		404		{object}	authsdk.OAuth2Error			"Unknown or expired authorization request"
//	@Router			/{tenant}/v1/authorizations/{id}/deny [post]
func (h *AuthorizeHandler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	tenant, _ := TenantFromContext(r.Context())
	redirect, err := h.AuthorizeService.Deny(r.Context(), tenant, r.PathValue("id"))
	h.writeRedirect(w, r, redirect, err)
}

func (h *AuthorizeHandler) writeRedirect(w http.ResponseWriter, r *http.Request, redirect service.Redirect, err error) {
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, authsdk.RedirectResponse{RedirectURI: redirect.RedirectURI})
	case errors.Is(err, service.ErrAuthorizationRequestNotFound):
		authsdk.ErrNotFound.WithDescription("authorization request not found or expired").WriteError(w)
	case errors.Is(err, service.ErrLoginFailed):
		errLoginFailed.WriteError(w)
	default:
		writeOAuthError(w, r, err)
	}
}
