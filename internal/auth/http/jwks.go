package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// JWKSHandler exposes the public signing keys. Keys are shared by every
// tenant, so the tenant segment only scopes the URL.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access tokens, ID tokens and JARM responses.
//	@Tags			well-known
//	@Produce		json
//	@Param			tenant	path		string	true	"Tenant identifier"
//	@Success		200		{object}	object	"The JSON Web Key Set"
//	@Router			/{tenant}/v1/jwks [get]
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.KeySet().JWKS())
	}
}
