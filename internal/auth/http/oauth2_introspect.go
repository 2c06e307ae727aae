package http

import (
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// IntrospectHandler serves POST /{tenant}/v1/tokens/introspection following
// RFC 7662. A resource server that received a certificate bound token may
// forward the caller's certificate as URL escaped PEM in client_certificate.
type IntrospectHandler struct {
	IntrospectionService *service.IntrospectionService
	CertHeader           string
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Introspection Endpoint
//	@Description	Introspects an access token (RFC 7662). Any problem with the token itself yields {"active": false}.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			tenant				path		string							true	"Tenant identifier"
//	@Param			token				formData	string							true	"The token to introspect"
//	@Param			scope				formData	string							false	"Scopes the token must carry"
//	@Param			client_certificate	formData	string							false	"URL escaped PEM certificate the token must be bound to"
//	@Success		200					{object}	authsdk.IntrospectionResponse	"Token introspection result"
//	@Failure		400					{object}	authsdk.OAuth2Error				"error, error_description"
//	@Failure		401					{object}	authsdk.OAuth2Error				"error, error_description"
//	@Header			200					{string}	Cache-Control					"no-store"
//	@Header			200					{string}	Pragma							"no-cache"
//	@Router			/{tenant}/v1/tokens/introspection [post]
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	creds, err := clientCredentials(r, h.CertHeader)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	req := service.IntrospectionRequest{
		Credentials: creds,
		Token:       r.PostForm.Get("token"),
		Scope:       r.PostForm.Get("scope"),
	}
	if raw := r.PostForm.Get("client_certificate"); raw != "" {
		pemText, err := url.QueryUnescape(raw)
		if err == nil {
			req.Certificate, _ = cryptox.ParseCertificatePEM([]byte(pemText))
		}
		if req.Certificate == nil {
			// An unreadable certificate cannot match any binding. The
			// caller is still authenticated before it learns that.
			req.Token = ""
		}
	}

	tenant, _ := TenantFromContext(r.Context())
	resp, err := h.IntrospectionService.Introspect(r.Context(), tenant, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
