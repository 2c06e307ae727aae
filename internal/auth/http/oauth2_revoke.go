package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// RevokeHandler serves POST /{tenant}/v1/tokens/revocation following RFC
// 7009. Unknown tokens return 200 OK to prevent token scanning.
type RevokeHandler struct {
	RevocationService *service.RevocationService
	CertHeader        string
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Revocation Endpoint
//	@Description	Revokes an access or refresh token together with everything issued alongside it (RFC 7009).
//	@Description	The endpoint is idempotent and returns 200 OK even for invalid or unknown tokens.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			tenant			path		string				true	"Tenant identifier"
//	@Param			token			formData	string				true	"The token to revoke"
//	@Param			token_type_hint	formData	string				false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200				"Token revoked successfully (or was already invalid)"
//	@Failure		400				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Failure		401				{object}	authsdk.OAuth2Error	"error, error_description"
//	@Header			200				{string}	Cache-Control		"no-store"
//	@Header			200				{string}	Pragma				"no-cache"
//	@Router			/{tenant}/v1/tokens/revocation [post]
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	creds, err := clientCredentials(r, h.CertHeader)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token := r.PostForm.Get("token")
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	tenant, _ := TenantFromContext(r.Context())
	if err := h.RevocationService.Revoke(r.Context(), tenant, creds, token, r.PostForm.Get("token_type_hint")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
